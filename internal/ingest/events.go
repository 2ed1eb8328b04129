package ingest

import "time"

// EventTypeJobSubmitted tags the lifecycle event emitted after a successful
// job submission.
const EventTypeJobSubmitted = "encode.job.submitted"

// JobSubmittedEvent announces a submitted encoding job to downstream
// consumers of the lifecycle topic.
type JobSubmittedEvent struct {
	ID          string    `json:"id"`
	JobName     string    `json:"job_name"`
	InputAsset  string    `json:"input_asset"`
	OutputAsset string    `json:"output_asset"`
	Transform   string    `json:"transform"`
	FileName    string    `json:"file_name"`
	SizeBytes   int64     `json:"size_bytes"`
	SubmittedAt time.Time `json:"submitted_at"`
}
