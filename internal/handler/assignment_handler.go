package handler

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/acadex-api/internal/dto"
	"github.com/noah-isme/acadex-api/internal/realtime"
	"github.com/noah-isme/acadex-api/internal/service"
	"github.com/noah-isme/acadex-api/internal/utils"
)

// AssignmentHandler exposes assignment endpoints.
type AssignmentHandler struct {
	service   service.AssignmentService
	logger    zerolog.Logger
	keepAlive time.Duration
}

// NewAssignmentHandler constructs an assignment handler.
func NewAssignmentHandler(service service.AssignmentService, logger zerolog.Logger, keepAlive time.Duration) *AssignmentHandler {
	return &AssignmentHandler{
		service:   service,
		logger:    logger.With().Str("component", "assignment_handler").Logger(),
		keepAlive: keepAlive,
	}
}

// Register binds the assignment routes.
func (h *AssignmentHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/", h.create)
	router.Get("/stream", h.stream)
	router.Get("/:id", h.get)
}

func (h *AssignmentHandler) list(c *fiber.Ctx) error {
	if queryActor(c).ID == "" {
		return missingIdentity(c)
	}

	var query dto.AssignmentListQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendErrorWithDetail(c, fiber.StatusBadRequest, "invalid query parameters", errorValidation)
	}

	assignments, err := h.service.List(requestContext(c), query)
	if err != nil {
		return writeServiceError(c, h.logger, err, "fetch assignments")
	}

	return utils.SendSuccess(c, "assignments retrieved", fiber.Map{"assignments": assignments})
}

func (h *AssignmentHandler) create(c *fiber.Ctx) error {
	var payload dto.AssignmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendErrorWithDetail(c, fiber.StatusBadRequest, "invalid request body", errorValidation)
	}

	actor := actorFromRequest(c, payload.UserID, payload.UserRole)
	if actor.ID == "" {
		return missingIdentity(c)
	}

	created, err := h.service.Create(requestContext(c), actor, payload)
	if err != nil {
		return writeServiceError(c, h.logger, err, "create assignment")
	}

	requestLogger(h.logger, c).Info().Str("assignment_id", created.ID).Str("teacher_id", actor.ID).Msg("assignment created")
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "Assignment created successfully", fiber.Map{"id": created.ID})
}

func (h *AssignmentHandler) get(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return utils.SendErrorWithDetail(c, fiber.StatusBadRequest, "assignment id required", errorValidation)
	}

	assignment, err := h.service.Get(requestContext(c), id)
	if err != nil {
		return writeServiceError(c, h.logger, err, "fetch assignment")
	}

	return utils.SendSuccess(c, "assignment retrieved", fiber.Map{"assignment": assignment})
}

func (h *AssignmentHandler) stream(c *fiber.Ctx) error {
	if queryActor(c).ID == "" {
		return missingIdentity(c)
	}

	var query dto.AssignmentListQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendErrorWithDetail(c, fiber.StatusBadRequest, "invalid query parameters", errorValidation)
	}

	return streamSnapshots(c, h.logger, h.keepAlive, string(realtime.ResourceAssignments),
		func(ctx context.Context) *realtime.Subscription[[]dto.AssignmentResponse] {
			return h.service.Watch(ctx, query)
		})
}
