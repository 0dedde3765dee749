package service

import "github.com/avolab/guideline-api/internal/model"

// Status messages returned with each projection. Derived from status, never
// read back from the record.
var statusMessages = map[model.JobStatus]string{
	model.JobStatusPending:    "Job is waiting to be processed.",
	model.JobStatusProcessing: "Job is being processed.",
	model.JobStatusCompleted:  "Job completed successfully.",
	model.JobStatusFailed:     "Job processing failed.",
}

// ProjectStatus builds the read-only client view of a job. The record is
// never mutated; status decides which parts of the result surface:
//
//	pending     message only
//	processing  message + progress (when a partial result exists)
//	completed   message + full result
//	failed      message + error and failed_at lifted out of the result
func ProjectStatus(job *model.Job) *model.JobStatusResponse {
	resp := &model.JobStatusResponse{
		EventID:   job.EventID,
		Status:    job.Status,
		Message:   statusMessages[job.Status],
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}

	switch job.Status {
	case model.JobStatusProcessing:
		if job.Result != nil && job.Result.StepsCompleted != nil {
			resp.Progress = &model.JobProgress{
				StepsCompleted: job.Result.StepsCompleted,
				CurrentStep:    model.CurrentStep(job.Result.StepsCompleted),
			}
		}
	case model.JobStatusCompleted:
		resp.Result = job.Result
	case model.JobStatusFailed:
		if job.Result != nil {
			resp.Error = job.Result.Error
			resp.FailedAt = job.Result.FailedAt
		}
	}

	return resp
}
