package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/avolab/guideline-api/internal/model"
	"github.com/avolab/guideline-api/internal/service"
	"github.com/avolab/guideline-api/internal/store"
	"github.com/avolab/guideline-api/pkg/response"
)

type JobHandler struct {
	service   *service.JobService
	validator *validator.Validate
}

func NewJobHandler(svc *service.JobService, v *validator.Validate) *JobHandler {
	return &JobHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/jobs. The body is optional; when present it may
// carry guideline text for the pipeline. The response returns as soon as
// the job is stored and dispatched; no generation work happens here.
func (h *JobHandler) Create(c *fiber.Ctx) error {
	var req model.JobCreateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.ValidationError(c, "Invalid request body", nil)
		}
	}

	result, err := h.service.CreateJob(c.Context(), req.Text)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Created(c, result)
}

// Status handles GET /api/jobs/:eventId. A valid event ID always yields a
// well-formed 200 projection; generator failures show up as a readable
// failed status, never as a 5xx.
func (h *JobHandler) Status(c *fiber.Ctx) error {
	eventID := c.Params("eventId")
	if err := h.validator.Var(eventID, "required,uuid4"); err != nil {
		return response.NotFound(c, "Job not found")
	}

	result, err := h.service.GetStatus(c.Context(), eventID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}
