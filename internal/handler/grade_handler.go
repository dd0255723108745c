package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/acadex-api/internal/dto"
	"github.com/noah-isme/acadex-api/internal/realtime"
	"github.com/noah-isme/acadex-api/internal/service"
	"github.com/noah-isme/acadex-api/internal/utils"
)

// GradeHandler exposes grading endpoints.
type GradeHandler struct {
	service   service.GradingService
	logger    zerolog.Logger
	keepAlive time.Duration
}

// NewGradeHandler constructs a grade handler.
func NewGradeHandler(service service.GradingService, logger zerolog.Logger, keepAlive time.Duration) *GradeHandler {
	return &GradeHandler{
		service:   service,
		logger:    logger.With().Str("component", "grade_handler").Logger(),
		keepAlive: keepAlive,
	}
}

// Register binds the grade routes.
func (h *GradeHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/", h.create)
	router.Get("/stream", h.stream)
}

func (h *GradeHandler) list(c *fiber.Ctx) error {
	if queryActor(c).ID == "" {
		return missingIdentity(c)
	}

	var query dto.GradeListQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendErrorWithDetail(c, fiber.StatusBadRequest, "invalid query parameters", errorValidation)
	}

	grades, err := h.service.List(requestContext(c), query)
	if err != nil {
		return writeServiceError(c, h.logger, err, "fetch grades")
	}

	return utils.SendSuccess(c, "grades retrieved", fiber.Map{"grades": grades})
}

func (h *GradeHandler) create(c *fiber.Ctx) error {
	var payload dto.GradeCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendErrorWithDetail(c, fiber.StatusBadRequest, "invalid request body", errorValidation)
	}

	actor := actorFromRequest(c, payload.UserID, payload.UserRole)
	if actor.ID == "" {
		return missingIdentity(c)
	}

	created, err := h.service.Create(requestContext(c), actor, payload)
	if err != nil {
		return writeServiceError(c, h.logger, err, "create grade")
	}

	requestLogger(h.logger, c).Info().
		Str("grade_id", created.ID).
		Str("submission_id", payload.SubmissionID).
		Float64("total", created.Total).
		Msg("grade recorded")
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "Grade submitted successfully", fiber.Map{"id": created.ID, "total": created.Total})
}

func (h *GradeHandler) stream(c *fiber.Ctx) error {
	if queryActor(c).ID == "" {
		return missingIdentity(c)
	}

	var query dto.GradeListQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendErrorWithDetail(c, fiber.StatusBadRequest, "invalid query parameters", errorValidation)
	}

	return streamSnapshots(c, h.logger, h.keepAlive, string(realtime.ResourceGrades),
		func(ctx context.Context) *realtime.Subscription[[]dto.GradeResponse] {
			return h.service.Watch(ctx, query)
		})
}
