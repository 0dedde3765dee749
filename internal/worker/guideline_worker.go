package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/avolab/guideline-api/internal/generator"
	"github.com/avolab/guideline-api/internal/model"
	"github.com/avolab/guideline-api/internal/store"
	"github.com/avolab/guideline-api/internal/websocket"
)

// GuidelineWorker consumes guideline-ingest tasks and runs the two-stage
// pipeline: summarize the guideline document, then derive a checklist from
// the summary. Each stage's output is persisted as it lands so pollers can
// observe progress.
//
// Error conventions follow asynq semantics: a plain error return asks for
// redelivery (store outages), while errors wrapping asynq.SkipRetry are
// logged and acknowledged (the job already reached a terminal state, or the
// task references a record that no longer exists).
type GuidelineWorker struct {
	store     store.JobStore
	generator generator.TextGenerator
	hub       *websocket.Hub // nil disables live push
}

func NewGuidelineWorker(jobStore store.JobStore, gen generator.TextGenerator, hub *websocket.Hub) *GuidelineWorker {
	return &GuidelineWorker{
		store:     jobStore,
		generator: gen,
		hub:       hub,
	}
}

// ProcessTask handles one delivery of a guideline-ingest task. The payload
// is the bare event ID.
func (w *GuidelineWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	eventID := string(t.Payload())
	log.Printf("Starting guideline job: %s", eventID)

	job, err := w.store.Get(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) {
		// The reference is permanently invalid; there is no record to
		// mark failed. Acknowledge so the queue drops it.
		log.Printf("Job %s not found at pickup, dropping task", eventID)
		return fmt.Errorf("job %s not found: %w", eventID, asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("loading job %s: %w", eventID, err)
	}

	// Redelivery onto a terminal job is a no-op: the result must not be
	// overwritten and the generator must not run twice.
	if job.Status.IsTerminal() {
		log.Printf("Job %s already %s, ignoring redelivery", eventID, job.Status)
		return nil
	}

	job, err = w.store.Update(ctx, eventID, func(j *model.Job) error {
		if j.Status == model.JobStatusProcessing {
			// Redelivered mid-flight; re-run the stages from the top.
			return nil
		}
		j.Message = "Processing guideline document"
		return j.TransitionTo(model.JobStatusProcessing)
	})
	if errors.Is(err, store.ErrNotFound) {
		log.Printf("Job %s disappeared before processing, dropping task", eventID)
		return fmt.Errorf("job %s not found: %w", eventID, asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("marking job %s processing: %w", eventID, err)
	}
	w.broadcastStatus(eventID, model.JobStatusProcessing, model.CurrentStepSummary)

	// Stage 1: summary.
	summary, err := w.generator.Summarize(ctx, job.InputText)
	if err != nil {
		return w.failJob(ctx, eventID, err)
	}

	_, err = w.store.Update(ctx, eventID, func(j *model.Job) error {
		j.Result = &model.JobResult{
			Summary:        summary,
			StepsCompleted: []string{model.StepSummaryGenerated},
		}
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return w.failJob(ctx, eventID, err)
	}
	if err != nil {
		return fmt.Errorf("persisting summary for job %s: %w", eventID, err)
	}
	log.Printf("Summary generated for job %s", eventID)
	w.broadcastStatus(eventID, model.JobStatusProcessing, model.CurrentStepChecklist)

	// Stage 2: checklist derived from the summary.
	checklist, err := w.generator.Checklist(ctx, summary)
	if err != nil {
		return w.failJob(ctx, eventID, err)
	}

	now := time.Now().UTC()
	job, err = w.store.Update(ctx, eventID, func(j *model.Job) error {
		if err := j.TransitionTo(model.JobStatusCompleted); err != nil {
			return err
		}
		j.Message = "Guideline processing complete"
		j.Result = &model.JobResult{
			Summary:        summary,
			Checklist:      checklist,
			ProcessedAt:    &now,
			StepsCompleted: []string{model.StepSummaryGenerated, model.StepChecklistGenerated},
		}
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return w.failJob(ctx, eventID, err)
	}
	if err != nil {
		return fmt.Errorf("completing job %s: %w", eventID, err)
	}

	if w.hub != nil {
		w.hub.BroadcastComplete(eventID, job.Result)
	}
	log.Printf("Guideline job %s completed", eventID)
	return nil
}

// failJob moves the job to failed, preserving the cause verbatim with a
// failure timestamp. The returned error wraps asynq.SkipRetry: the job is
// terminal now, so the queue must log and acknowledge, not redeliver.
func (w *GuidelineWorker) failJob(ctx context.Context, eventID string, cause error) error {
	now := time.Now().UTC()
	_, err := w.store.Update(ctx, eventID, func(j *model.Job) error {
		if err := j.TransitionTo(model.JobStatusFailed); err != nil {
			return err
		}
		j.Message = "Guideline processing failed"
		j.Result = &model.JobResult{
			Error:    cause.Error(),
			FailedAt: &now,
		}
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		// Record gone mid-flight; nothing left to write.
		log.Printf("Job %s disappeared, could not record failure: %v", eventID, cause)
	} else if err != nil {
		log.Printf("Failed to mark job %s failed: %v", eventID, err)
	}

	if w.hub != nil {
		w.hub.BroadcastError(eventID, cause.Error())
	}
	return fmt.Errorf("processing job %s: %v: %w", eventID, cause, asynq.SkipRetry)
}

func (w *GuidelineWorker) broadcastStatus(eventID string, status model.JobStatus, currentStep string) {
	if w.hub != nil {
		w.hub.BroadcastStatus(eventID, status, currentStep)
	}
}
