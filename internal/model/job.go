package model

import (
	"fmt"
	"time"
)

// JobStatus is the lifecycle state of a guideline-ingest job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// statusTransitions is the full set of legal forward moves. Anything
// absent here (including any move out of a terminal state) is rejected.
var statusTransitions = map[JobStatus]map[JobStatus]bool{
	JobStatusPending: {
		JobStatusProcessing: true,
		JobStatusFailed:     true,
	},
	JobStatusProcessing: {
		JobStatusCompleted: true,
		JobStatusFailed:    true,
	},
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	return statusTransitions[s][next]
}

// IsTerminal reports whether the status admits no further transitions.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Pipeline step markers recorded in result.steps_completed.
const (
	StepSummaryGenerated   = "summary_generated"
	StepChecklistGenerated = "checklist_generated"
)

// Current-step names derived for status responses.
const (
	CurrentStepSummary    = "summary_generation"
	CurrentStepChecklist  = "checklist_generation"
	CurrentStepFinalizing = "finalizing"
)

// CurrentStep derives the in-flight pipeline stage from the completed steps.
func CurrentStep(stepsCompleted []string) string {
	done := make(map[string]bool, len(stepsCompleted))
	for _, s := range stepsCompleted {
		done[s] = true
	}
	switch {
	case !done[StepSummaryGenerated]:
		return CurrentStepSummary
	case !done[StepChecklistGenerated]:
		return CurrentStepChecklist
	default:
		return CurrentStepFinalizing
	}
}

// Job is the persistent record of one guideline-ingest request.
// EventID is the only identifier ever exposed to clients; ID is internal.
type Job struct {
	ID        string     `json:"id"`
	EventID   string     `json:"event_id"`
	Status    JobStatus  `json:"status"`
	Message   string     `json:"message,omitempty"`
	InputText string     `json:"input_text,omitempty"`
	Result    *JobResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TransitionTo moves the job to the next status, rejecting illegal moves.
func (j *Job) TransitionTo(next JobStatus) error {
	if !j.Status.CanTransitionTo(next) {
		return fmt.Errorf("illegal status transition %s -> %s", j.Status, next)
	}
	j.Status = next
	return nil
}

// IsCompleted reports whether the job reached a terminal state.
func (j *Job) IsCompleted() bool {
	return j.Status.IsTerminal()
}

// JobResult is the status-shaped payload persisted with a job. Each write
// replaces the whole value; the populated fields depend on the status:
// summary-only while the checklist is still being generated, summary +
// checklist + processed_at once completed, error + failed_at on failure.
type JobResult struct {
	Summary        *Summary   `json:"summary,omitempty"`
	Checklist      *Checklist `json:"checklist,omitempty"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
	StepsCompleted []string   `json:"steps_completed,omitempty"`
	Error          string     `json:"error,omitempty"`
	FailedAt       *time.Time `json:"failed_at,omitempty"`
}

// Summary is the structured output of pipeline stage 1.
// Source and Model are provenance metadata attached by the generator;
// nothing in the pipeline depends on their presence.
type Summary struct {
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	KeyPoints []string `json:"key_points"`
	WordCount int      `json:"word_count"`
	Source    string   `json:"source,omitempty"`
	Model     string   `json:"model,omitempty"`
}

// ChecklistItem is a single actionable check derived from the summary.
type ChecklistItem struct {
	ID       int    `json:"id"`
	Text     string `json:"text"`
	Required bool   `json:"required"`
}

// ChecklistCategory groups related checklist items.
type ChecklistCategory struct {
	Name  string          `json:"name"`
	Items []ChecklistItem `json:"items"`
}

// Checklist is the structured output of pipeline stage 2.
type Checklist struct {
	Categories    []ChecklistCategory `json:"categories"`
	TotalItems    int                 `json:"total_items"`
	RequiredItems int                 `json:"required_items"`
	Source        string              `json:"source,omitempty"`
	Model         string              `json:"model,omitempty"`
}
