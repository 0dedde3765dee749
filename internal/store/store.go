package store

import (
	"context"
	"errors"

	"github.com/avolab/guideline-api/internal/model"
)

// ErrNotFound is returned when no job exists for the given event ID.
// Callers distinguish it with errors.Is.
var ErrNotFound = errors.New("job not found")

// JobStore is the durable keyed record of job state. Concurrent operations
// on different jobs are independent; updates to the same job are serialized
// by the single worker that owns it during processing.
type JobStore interface {
	// Create inserts a new pending job with a freshly minted event ID
	// and no result. inputText may be empty.
	Create(ctx context.Context, inputText string) (*model.Job, error)

	// Get returns the job for eventID, or ErrNotFound.
	Get(ctx context.Context, eventID string) (*model.Job, error)

	// Update loads the job, applies mutate, refreshes updated_at and
	// persists the whole record atomically. A mutate error aborts the
	// write and is returned as-is. Returns the persisted job.
	Update(ctx context.Context, eventID string, mutate func(*model.Job) error) (*model.Job, error)
}
