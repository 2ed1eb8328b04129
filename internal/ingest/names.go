package ingest

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Names groups the correlated identifiers for one encode run. All three share
// the same uniqueness token; the two handlers never talk to each other, so
// this naming scheme is the only correlation between them.
type Names struct {
	Token       string
	Job         string
	InputAsset  string
	OutputAsset string
}

const (
	jobPrefix    = "job-"
	inputPrefix  = "input-"
	outputPrefix = "output-"
)

// DeriveNames mints a fresh uniqueness token and the job/input/output names
// built from it.
func DeriveNames() Names {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return Names{
		Token:       token,
		Job:         jobPrefix + token,
		InputAsset:  inputPrefix + token,
		OutputAsset: outputPrefix + token,
	}
}

// CollisionFreeName derives a replacement output asset name from the original
// file name and a fresh random identifier, lower-cased. Used when the derived
// output name is already taken; the collided name is never reused.
func CollisionFreeName(fileName string) string {
	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	if base == "" {
		base = "output"
	}
	return strings.ToLower(base + "-" + uuid.NewString())
}
