package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avolab/guideline-api/internal/model"
)

// MemoryJobStore is an in-process JobStore used by tests and by local
// development without Redis. Jobs are copied on the way in and out so
// callers never alias the stored record.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*model.Job
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		jobs: make(map[string]*model.Job),
	}
}

func (s *MemoryJobStore) Create(_ context.Context, inputText string) (*model.Job, error) {
	now := time.Now().UTC()
	job := &model.Job{
		ID:        uuid.New().String(),
		EventID:   uuid.New().String(),
		Status:    model.JobStatusPending,
		InputText: inputText,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.jobs[job.EventID] = cloneJob(job)
	s.mu.Unlock()

	return job, nil
}

func (s *MemoryJobStore) Get(_ context.Context, eventID string) (*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[eventID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneJob(job), nil
}

func (s *MemoryJobStore) Update(_ context.Context, eventID string, mutate func(*model.Job) error) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[eventID]
	if !ok {
		return nil, ErrNotFound
	}

	next := cloneJob(job)
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = time.Now().UTC()

	s.jobs[eventID] = next
	return cloneJob(next), nil
}

// Delete removes a job record. Only tests use it, to simulate a record
// disappearing underneath a running pipeline.
func (s *MemoryJobStore) Delete(eventID string) {
	s.mu.Lock()
	delete(s.jobs, eventID)
	s.mu.Unlock()
}

func cloneJob(job *model.Job) *model.Job {
	c := *job
	if job.Result != nil {
		r := *job.Result
		if job.Result.StepsCompleted != nil {
			r.StepsCompleted = append([]string(nil), job.Result.StepsCompleted...)
		}
		c.Result = &r
	}
	return &c
}
