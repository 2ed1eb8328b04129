package media

import (
	"context"
	"io"
	"time"
)

// Client represents the capabilities the ingest and completion handlers
// expect from the remote encoding service.
type Client interface {
	// Login acquires a token-authenticated session, or reuses the cached one
	// when it has not expired. Safe for concurrent use.
	Login(ctx context.Context) error

	CreateAsset(ctx context.Context, name, description string) (*Asset, error)

	// GetAsset returns (nil, nil) when no asset exists under name.
	GetAsset(ctx context.Context, name string) (*Asset, error)

	// UploadContainerURL returns a write-enabled, time-bounded URL for the
	// asset's backing container.
	UploadContainerURL(ctx context.Context, assetName string, expiry time.Duration) (string, error)

	// UploadContent writes the blob bytes into the container behind url,
	// stored under fileName with a video content type.
	UploadContent(ctx context.Context, url, fileName string, r io.Reader, size int64) error

	// GetOrCreateTransform looks up the named transform, creating it with the
	// adaptive-streaming preset on first miss. Idempotent.
	GetOrCreateTransform(ctx context.Context, name string) (*Transform, error)

	SubmitJob(ctx context.Context, transformName, jobName, inputAssetName string, outputAssetNames []string) (*Job, error)

	// PublishAsset creates a streaming locator for the asset under a fresh
	// random name. The error is returned; deciding whether a publish failure
	// is fatal belongs to the caller.
	PublishAsset(ctx context.Context, assetName, streamingPolicyName string) error
}
