package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"github.com/avolab/guideline-api/internal/generator"
	"github.com/avolab/guideline-api/internal/handler"
	"github.com/avolab/guideline-api/internal/service"
	"github.com/avolab/guideline-api/internal/store"
	"github.com/avolab/guideline-api/internal/worker"
)

// testApp holds all components needed for testing
type testApp struct {
	app    *fiber.App
	store  *store.MemoryJobStore
	worker *worker.GuidelineWorker
}

// fakeEnqueuer records tasks instead of touching a broker.
type fakeEnqueuer struct {
	tasks []*asynq.Task
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

// setupApp wires the routes the same way main.go does, backed by the
// in-memory store and the static generator so no Redis or OpenAI access
// is needed. The returned worker lets tests run the pipeline by hand.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	jobStore := store.NewMemoryJobStore()
	gen := generator.NewStaticGenerator()

	jobService := service.NewJobService(jobStore, &fakeEnqueuer{}, service.QueueConfig{
		Queue:     "guideline_queue",
		MaxRetry:  3,
		Retention: time.Hour,
	})
	jobHandler := handler.NewJobHandler(jobService, validator.New())

	app := fiber.New()

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service":   "guideline-api",
			"version":   "1.0.0",
			"timestamp": time.Now().Unix(),
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis":     false,
				"generator": "static",
			},
		})
	})

	api := app.Group("/api")
	api.Post("/jobs", jobHandler.Create)
	api.Get("/jobs/:eventId", jobHandler.Status)

	return &testApp{
		app:    app,
		store:  jobStore,
		worker: worker.NewGuidelineWorker(jobStore, gen, nil),
	}
}

// runPipeline delivers a guideline-ingest task for eventID to the worker,
// the way the queue would.
func (ta *testApp) runPipeline(t *testing.T, eventID string) error {
	t.Helper()
	task := asynq.NewTask(service.TaskTypeGuidelineIngest, []byte(eventID))
	return ta.worker.ProcessTask(context.Background(), task)
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	return app.Test(req, -1)
}

func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d", want, resp.StatusCode)
	}
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertErrorCode checks the error envelope code.
func assertErrorCode(t *testing.T, body map[string]interface{}, want string) {
	t.Helper()
	errObj, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error envelope, got %v", body)
	}
	if errObj["code"] != want {
		t.Errorf("expected error code %s, got %v", want, errObj["code"])
	}
}
