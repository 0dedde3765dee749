package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/avolab/guideline-api/internal/model"
	"github.com/avolab/guideline-api/internal/store"
)

// TaskTypeGuidelineIngest is the asynq task type for the guideline pipeline.
const TaskTypeGuidelineIngest = "guideline:ingest"

// TaskEnqueuer is the slice of *asynq.Client the service needs; tests swap
// in a recording fake.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueConfig carries the dispatch settings for guideline tasks.
type QueueConfig struct {
	Queue     string
	MaxRetry  int
	Retention time.Duration
}

// JobService creates guideline-ingest jobs and serves their status.
type JobService struct {
	store    store.JobStore
	enqueuer TaskEnqueuer
	queue    QueueConfig
}

func NewJobService(jobStore store.JobStore, enqueuer TaskEnqueuer, queue QueueConfig) *JobService {
	return &JobService{
		store:    jobStore,
		enqueuer: enqueuer,
		queue:    queue,
	}
}

// CreateJob inserts a pending job and enqueues exactly one pipeline task for
// it before returning. The task payload is the bare event ID; everything
// else lives on the job record. Generation work never runs on this path.
func (s *JobService) CreateJob(ctx context.Context, inputText string) (*model.JobCreateResponse, error) {
	job, err := s.store.Create(ctx, inputText)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	task := asynq.NewTask(TaskTypeGuidelineIngest, []byte(job.EventID))
	_, err = s.enqueuer.Enqueue(task,
		asynq.Queue(s.queue.Queue),
		asynq.MaxRetry(s.queue.MaxRetry),
		asynq.Retention(s.queue.Retention),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue job %s: %w", job.EventID, err)
	}

	return &model.JobCreateResponse{EventID: job.EventID}, nil
}

// GetStatus returns the client-facing projection of a job, or
// store.ErrNotFound when no job exists for eventID.
func (s *JobService) GetStatus(ctx context.Context, eventID string) (*model.JobStatusResponse, error) {
	job, err := s.store.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return ProjectStatus(job), nil
}
