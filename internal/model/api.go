package model

import "time"

// JobCreateRequest is the optional body of POST /api/jobs. When Text is
// empty the pipeline summarizes the canonical default guideline document.
type JobCreateRequest struct {
	Text string `json:"text"`
}

// JobCreateResponse carries the tracking identifier back to the client.
type JobCreateResponse struct {
	EventID string `json:"event_id"`
}

// JobProgress describes how far a processing job has advanced.
type JobProgress struct {
	StepsCompleted []string `json:"steps_completed"`
	CurrentStep    string   `json:"current_step"`
}

// JobStatusResponse is the client-facing projection of a job record.
// Progress, Result, Error and FailedAt are populated per status.
type JobStatusResponse struct {
	EventID   string       `json:"event_id"`
	Status    JobStatus    `json:"status"`
	Message   string       `json:"message"`
	Progress  *JobProgress `json:"progress,omitempty"`
	Result    *JobResult   `json:"result,omitempty"`
	Error     string       `json:"error,omitempty"`
	FailedAt  *time.Time   `json:"failed_at,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
