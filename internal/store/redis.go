package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/avolab/guideline-api/internal/model"
)

// watchRetries bounds optimistic-lock retries on a WATCH conflict. In
// normal operation a job has a single writer, so conflicts are rare.
const watchRetries = 3

// RedisJobStore persists jobs as JSON blobs under job:<event_id>.
type RedisJobStore struct {
	client *redis.Client
	ttl    time.Duration // 0 means keep records forever
}

// NewRedisJobStore creates a Redis-backed job store. ttl of zero disables
// expiry; retention is otherwise an operational concern.
func NewRedisJobStore(client *redis.Client, ttl time.Duration) *RedisJobStore {
	return &RedisJobStore{
		client: client,
		ttl:    ttl,
	}
}

func jobKey(eventID string) string {
	return "job:" + eventID
}

// Create inserts a new pending job. SetNX guards the one-record-per-event_id
// invariant even in the (practically impossible) case of a UUID collision.
func (s *RedisJobStore) Create(ctx context.Context, inputText string) (*model.Job, error) {
	now := time.Now().UTC()
	job := &model.Job{
		ID:        uuid.New().String(),
		EventID:   uuid.New().String(),
		Status:    model.JobStatusPending,
		InputText: inputText,
		CreatedAt: now,
		UpdatedAt: now,
	}

	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	ok, err := s.client.SetNX(ctx, jobKey(job.EventID), data, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("event id %s already exists", job.EventID)
	}

	return job, nil
}

// Get returns the job for eventID, or ErrNotFound.
func (s *RedisJobStore) Get(ctx context.Context, eventID string) (*model.Job, error) {
	data, err := s.client.Get(ctx, jobKey(eventID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", eventID, err)
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", eventID, err)
	}

	return &job, nil
}

// Update applies mutate inside a WATCH transaction so the read-modify-write
// replaces the record atomically per job.
func (s *RedisJobStore) Update(ctx context.Context, eventID string, mutate func(*model.Job) error) (*model.Job, error) {
	key := jobKey(eventID)
	var updated *model.Job

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load job %s: %w", eventID, err)
		}

		var job model.Job
		if err := json.Unmarshal(data, &job); err != nil {
			return fmt.Errorf("failed to unmarshal job %s: %w", eventID, err)
		}

		if err := mutate(&job); err != nil {
			return err
		}
		job.UpdatedAt = time.Now().UTC()

		buf, err := json.Marshal(&job)
		if err != nil {
			return fmt.Errorf("failed to marshal job %s: %w", eventID, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, buf, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}

		updated = &job
		return nil
	}

	for i := 0; i < watchRetries; i++ {
		err := s.client.Watch(ctx, txn, key)
		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}

	return nil, fmt.Errorf("failed to update job %s: too many conflicts", eventID)
}
