package media

import "time"

// Asset is a named reference to a storage container holding media content in
// the remote encoding account. Names are unique per account.
type Asset struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Container   string    `json:"container,omitempty"`
	Created     time.Time `json:"created,omitempty"`
}

// Transform is a reusable, named encoding pipeline definition. It is created
// once and referenced by name on every job submission.
type Transform struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Outputs     []TransformOutput `json:"outputs"`
}

// TransformOutput holds a single encoder preset of a transform.
type TransformOutput struct {
	Preset EncoderPreset `json:"preset"`
}

// EncoderPreset identifies a built-in encoder configuration.
type EncoderPreset struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// PresetAdaptiveStreaming is the built-in content-adaptive multi-bitrate
// preset every submitted job encodes with.
var PresetAdaptiveStreaming = EncoderPreset{
	Type: "BuiltInStandardEncoderPreset",
	Name: "AdaptiveStreaming",
}

// Job is one execution of a Transform against an input asset, writing into
// one or more output assets. Its lifecycle is driven entirely by the remote
// service; state is observed only through emitted notifications.
type Job struct {
	Name      string      `json:"name"`
	Transform string      `json:"transform,omitempty"`
	State     string      `json:"state,omitempty"`
	Input     JobInput    `json:"input"`
	Outputs   []JobOutput `json:"outputs"`
	Created   time.Time   `json:"created,omitempty"`
}

// JobInput names the asset a job reads from.
type JobInput struct {
	AssetName string `json:"assetName"`
}

// JobOutput names an asset a job writes into, with the remote service's last
// reported state for that output.
type JobOutput struct {
	AssetName string `json:"assetName"`
	State     string `json:"state,omitempty"`
}

// Job output states reported by the encoding service.
const (
	JobStateFinished   = "Finished"
	JobStateProcessing = "Processing"
	JobStateError      = "Error"
)

// StreamingLocator binds an asset to a streaming policy, exposing it for
// playback. Locators are write-once; each publish mints a new one under a
// fresh random name.
type StreamingLocator struct {
	Name       string    `json:"name"`
	AssetName  string    `json:"assetName"`
	PolicyName string    `json:"streamingPolicyName"`
	Created    time.Time `json:"created,omitempty"`
}
