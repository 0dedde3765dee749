package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolab/guideline-api/internal/model"
	"github.com/avolab/guideline-api/internal/service"
	"github.com/avolab/guideline-api/internal/store"
)

type stubGenerator struct {
	summary        *model.Summary
	checklist      *model.Checklist
	summarizeErr   error
	checklistErr   error
	summarizeCalls int
	checklistCalls int
	lastInput      string
}

func (g *stubGenerator) Summarize(_ context.Context, text string) (*model.Summary, error) {
	g.summarizeCalls++
	g.lastInput = text
	if g.summarizeErr != nil {
		return nil, g.summarizeErr
	}
	return g.summary, nil
}

func (g *stubGenerator) Checklist(_ context.Context, _ *model.Summary) (*model.Checklist, error) {
	g.checklistCalls++
	if g.checklistErr != nil {
		return nil, g.checklistErr
	}
	return g.checklist, nil
}

func testGenerator() *stubGenerator {
	return &stubGenerator{
		summary: &model.Summary{
			Title:     "T",
			Content:   "C",
			KeyPoints: []string{"a", "b"},
			WordCount: 10,
		},
		checklist: &model.Checklist{
			Categories:    []model.ChecklistCategory{},
			TotalItems:    0,
			RequiredItems: 0,
		},
	}
}

func ingestTask(eventID string) *asynq.Task {
	return asynq.NewTask(service.TaskTypeGuidelineIngest, []byte(eventID))
}

func TestProcessTaskSuccess(t *testing.T) {
	jobStore := store.NewMemoryJobStore()
	gen := testGenerator()
	w := NewGuidelineWorker(jobStore, gen, nil)
	ctx := context.Background()

	job, err := jobStore.Create(ctx, "")
	require.NoError(t, err)

	require.NoError(t, w.ProcessTask(ctx, ingestTask(job.EventID)))

	got, err := jobStore.Get(ctx, job.EventID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, "T", got.Result.Summary.Title)
	assert.Equal(t, 0, got.Result.Checklist.TotalItems)
	assert.Equal(t, []string{model.StepSummaryGenerated, model.StepChecklistGenerated},
		got.Result.StepsCompleted)
	require.NotNil(t, got.Result.ProcessedAt)
	assert.False(t, got.Result.ProcessedAt.IsZero())

	assert.Equal(t, 1, gen.summarizeCalls)
	assert.Equal(t, 1, gen.checklistCalls)
}

func TestProcessTaskPassesInputText(t *testing.T) {
	jobStore := store.NewMemoryJobStore()
	gen := testGenerator()
	w := NewGuidelineWorker(jobStore, gen, nil)
	ctx := context.Background()

	job, err := jobStore.Create(ctx, "my guideline document")
	require.NoError(t, err)

	require.NoError(t, w.ProcessTask(ctx, ingestTask(job.EventID)))
	assert.Equal(t, "my guideline document", gen.lastInput)
}

func TestProcessTaskSummarizeFailure(t *testing.T) {
	jobStore := store.NewMemoryJobStore()
	gen := testGenerator()
	gen.summarizeErr = errors.New("timeout")
	w := NewGuidelineWorker(jobStore, gen, nil)
	ctx := context.Background()

	job, err := jobStore.Create(ctx, "")
	require.NoError(t, err)

	err = w.ProcessTask(ctx, ingestTask(job.EventID))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry, "terminal failure must not be requeued")

	got, err := jobStore.Get(ctx, job.EventID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	require.NotNil(t, got.Result)
	assert.Contains(t, got.Result.Error, "timeout")
	require.NotNil(t, got.Result.FailedAt)
	assert.Nil(t, got.Result.Summary)
	assert.Equal(t, 0, gen.checklistCalls, "stage 2 must not run after stage 1 failed")
}

func TestProcessTaskChecklistFailure(t *testing.T) {
	jobStore := store.NewMemoryJobStore()
	gen := testGenerator()
	gen.checklistErr = errors.New("model unavailable")
	w := NewGuidelineWorker(jobStore, gen, nil)
	ctx := context.Background()

	job, err := jobStore.Create(ctx, "")
	require.NoError(t, err)

	err = w.ProcessTask(ctx, ingestTask(job.EventID))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)

	// The failed result replaces the partial summary wholesale.
	got, err := jobStore.Get(ctx, job.EventID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	require.NotNil(t, got.Result)
	assert.Contains(t, got.Result.Error, "model unavailable")
	require.NotNil(t, got.Result.FailedAt)
	assert.Nil(t, got.Result.Summary)
	assert.Empty(t, got.Result.StepsCompleted)
}

func TestProcessTaskJobNotFound(t *testing.T) {
	jobStore := store.NewMemoryJobStore()
	gen := testGenerator()
	w := NewGuidelineWorker(jobStore, gen, nil)

	err := w.ProcessTask(context.Background(), ingestTask(uuid.New().String()))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry, "invalid reference must be dropped, not retried")
	assert.Equal(t, 0, gen.summarizeCalls)
}

func TestProcessTaskRedeliveryOnCompletedIsNoop(t *testing.T) {
	jobStore := store.NewMemoryJobStore()
	gen := testGenerator()
	w := NewGuidelineWorker(jobStore, gen, nil)
	ctx := context.Background()

	job, err := jobStore.Create(ctx, "")
	require.NoError(t, err)

	require.NoError(t, w.ProcessTask(ctx, ingestTask(job.EventID)))
	first, err := jobStore.Get(ctx, job.EventID)
	require.NoError(t, err)

	// Redeliver the same event ID after completion.
	require.NoError(t, w.ProcessTask(ctx, ingestTask(job.EventID)))
	second, err := jobStore.Get(ctx, job.EventID)
	require.NoError(t, err)

	assert.Equal(t, first, second, "redelivery must not change a terminal job")
	assert.Equal(t, 1, gen.summarizeCalls, "generator must not run twice")
	assert.Equal(t, 1, gen.checklistCalls)
}

func TestProcessTaskRedeliveryOnFailedIsNoop(t *testing.T) {
	jobStore := store.NewMemoryJobStore()
	gen := testGenerator()
	gen.summarizeErr = errors.New("boom")
	w := NewGuidelineWorker(jobStore, gen, nil)
	ctx := context.Background()

	job, err := jobStore.Create(ctx, "")
	require.NoError(t, err)

	require.Error(t, w.ProcessTask(ctx, ingestTask(job.EventID)))

	gen.summarizeErr = nil
	require.NoError(t, w.ProcessTask(ctx, ingestTask(job.EventID)))

	got, err := jobStore.Get(ctx, job.EventID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, got.Status, "failed is terminal, no second attempt")
}

func TestProcessTaskRedeliveryMidFlightReruns(t *testing.T) {
	jobStore := store.NewMemoryJobStore()
	gen := testGenerator()
	w := NewGuidelineWorker(jobStore, gen, nil)
	ctx := context.Background()

	job, err := jobStore.Create(ctx, "")
	require.NoError(t, err)

	// Simulate a worker crash after the processing transition.
	_, err = jobStore.Update(ctx, job.EventID, func(j *model.Job) error {
		return j.TransitionTo(model.JobStatusProcessing)
	})
	require.NoError(t, err)

	require.NoError(t, w.ProcessTask(ctx, ingestTask(job.EventID)))

	got, err := jobStore.Get(ctx, job.EventID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
}

func TestProcessTaskRecordDisappearsMidFlight(t *testing.T) {
	jobStore := store.NewMemoryJobStore()
	gen := testGenerator()
	w := NewGuidelineWorker(jobStore, gen, nil)
	ctx := context.Background()

	job, err := jobStore.Create(ctx, "")
	require.NoError(t, err)

	// Delete the record once stage 1 runs, before its result is persisted.
	deleting := &deletingGenerator{inner: gen, store: jobStore, eventID: job.EventID}
	w = NewGuidelineWorker(jobStore, deleting, nil)

	// Best-effort failure write also misses; the worker logs and resolves
	// the task without asking for redelivery.
	err = w.ProcessTask(ctx, ingestTask(job.EventID))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

// flakyStore wraps a real store and injects a generic failure, standing in
// for a redis outage. getErr fails every Get; failUpdate fails the Nth
// Update (1-based), letting earlier writes through.
type flakyStore struct {
	store.JobStore
	getErr     error
	failUpdate int
	updateErr  error
	updates    int
}

func (s *flakyStore) Get(ctx context.Context, eventID string) (*model.Job, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.JobStore.Get(ctx, eventID)
}

func (s *flakyStore) Update(ctx context.Context, eventID string, mutate func(*model.Job) error) (*model.Job, error) {
	s.updates++
	if s.failUpdate != 0 && s.updates == s.failUpdate {
		return nil, s.updateErr
	}
	return s.JobStore.Update(ctx, eventID, mutate)
}

func TestProcessTaskStoreUnavailableOnLoad(t *testing.T) {
	jobStore := store.NewMemoryJobStore()
	ctx := context.Background()

	job, err := jobStore.Create(ctx, "")
	require.NoError(t, err)

	flaky := &flakyStore{JobStore: jobStore, getErr: errors.New("connection refused")}
	gen := testGenerator()
	w := NewGuidelineWorker(flaky, gen, nil)

	err = w.ProcessTask(ctx, ingestTask(job.EventID))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry, "store outage must be redelivered")
	assert.Equal(t, 0, gen.summarizeCalls)

	// The record is intact for the retry.
	got, err := jobStore.Get(ctx, job.EventID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPending, got.Status)
}

func TestProcessTaskStoreUnavailableOnWrite(t *testing.T) {
	cases := []struct {
		name       string
		failUpdate int
	}{
		{"processing transition", 1},
		{"summary persist", 2},
		{"completion", 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			jobStore := store.NewMemoryJobStore()
			ctx := context.Background()

			job, err := jobStore.Create(ctx, "")
			require.NoError(t, err)

			flaky := &flakyStore{
				JobStore:   jobStore,
				failUpdate: tc.failUpdate,
				updateErr:  errors.New("connection refused"),
			}
			w := NewGuidelineWorker(flaky, testGenerator(), nil)

			err = w.ProcessTask(ctx, ingestTask(job.EventID))
			require.Error(t, err)
			assert.NotErrorIs(t, err, asynq.SkipRetry, "store outage must be redelivered")

			// No failed result is written: the job stays non-terminal so the
			// redelivered task can finish it.
			got, err := jobStore.Get(ctx, job.EventID)
			require.NoError(t, err)
			assert.False(t, got.Status.IsTerminal())
		})
	}
}

// deletingGenerator removes the job record during stage 1.
type deletingGenerator struct {
	inner   *stubGenerator
	store   *store.MemoryJobStore
	eventID string
}

func (g *deletingGenerator) Summarize(ctx context.Context, text string) (*model.Summary, error) {
	g.store.Delete(g.eventID)
	return g.inner.Summarize(ctx, text)
}

func (g *deletingGenerator) Checklist(ctx context.Context, s *model.Summary) (*model.Checklist, error) {
	return g.inner.Checklist(ctx, s)
}
