package domain

// JobStatus enumerates the lifecycle states reported by the image-generation
// backend.
type JobStatus string

const (
	JobStatusStarting   JobStatus = "starting"
	JobStatusProcessing JobStatus = "processing"
	JobStatusSucceeded  JobStatus = "succeeded"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCanceled   JobStatus = "canceled"
)

// Terminal reports whether polling must stop for this status.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCanceled:
		return true
	}
	return false
}

// Known reports whether the status is one the poller understands. Unknown
// statuses are tolerated (polling continues) but surfaced as warnings.
func (s JobStatus) Known() bool {
	switch s {
	case JobStatusStarting, JobStatusProcessing, JobStatusSucceeded, JobStatusFailed, JobStatusCanceled:
		return true
	}
	return false
}

// GenerationJob tracks one asynchronous image-generation task. Created by the
// submitter, mutated only by poll responses, immutable once Status is
// terminal.
type GenerationJob struct {
	ID          string    `json:"id"`
	Status      JobStatus `json:"status"`
	ResultURL   string    `json:"result_url,omitempty"`
	ErrorReason string    `json:"error_reason,omitempty"`
}
