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

// SubmissionHandler exposes submission endpoints.
type SubmissionHandler struct {
	service   service.SubmissionService
	logger    zerolog.Logger
	keepAlive time.Duration
}

// NewSubmissionHandler constructs a submission handler.
func NewSubmissionHandler(service service.SubmissionService, logger zerolog.Logger, keepAlive time.Duration) *SubmissionHandler {
	return &SubmissionHandler{
		service:   service,
		logger:    logger.With().Str("component", "submission_handler").Logger(),
		keepAlive: keepAlive,
	}
}

// Register binds the submission routes. uploadGuards run before the
// multi-file upload.
func (h *SubmissionHandler) Register(router fiber.Router, uploadGuards ...fiber.Handler) {
	router.Get("/", h.list)
	router.Post("/", h.create)
	router.Post("/files", append(append([]fiber.Handler{}, uploadGuards...), h.submitFiles)...)
	router.Get("/latest", h.latest)
	router.Get("/stream", h.stream)
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	if queryActor(c).ID == "" {
		return missingIdentity(c)
	}

	var query dto.SubmissionListQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendErrorWithDetail(c, fiber.StatusBadRequest, "invalid query parameters", errorValidation)
	}

	submissions, err := h.service.List(requestContext(c), query)
	if err != nil {
		return writeServiceError(c, h.logger, err, "fetch submissions")
	}

	return utils.SendSuccess(c, "submissions retrieved", fiber.Map{"submissions": submissions})
}

func (h *SubmissionHandler) create(c *fiber.Ctx) error {
	var payload dto.SubmissionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendErrorWithDetail(c, fiber.StatusBadRequest, "invalid request body", errorValidation)
	}

	actor := actorFromRequest(c, payload.UserID, payload.UserRole)
	if actor.ID == "" {
		return missingIdentity(c)
	}

	created, err := h.service.Create(requestContext(c), actor, payload)
	if err != nil {
		return writeServiceError(c, h.logger, err, "create submission")
	}

	requestLogger(h.logger, c).Info().
		Str("submission_id", created.ID).
		Str("assignment_id", payload.AssignmentID).
		Str("student_id", actor.ID).
		Msg("submission created")
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "Submission created successfully", fiber.Map{"id": created.ID})
}

func (h *SubmissionHandler) submitFiles(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return utils.SendErrorWithDetail(c, fiber.StatusBadRequest, "multipart form required", errorValidation)
	}

	actor := actorFromRequest(c, firstValue(form.Value["userId"]), firstValue(form.Value["userRole"]))
	if actor.ID == "" {
		return missingIdentity(c)
	}

	assignmentID := firstValue(form.Value["assignmentId"])
	logger := requestLogger(h.logger, c)

	result, err := h.service.SubmitFiles(requestContext(c), actor, assignmentID, form.File["files"], func(progress service.UploadProgress) {
		logger.Debug().
			Int("completed", progress.Completed).
			Int("total", progress.Total).
			Str("path", progress.File.Path).
			Msg("submission file uploaded")
	})
	if err != nil {
		return writeServiceError(c, h.logger, err, "submit files")
	}

	logger.Info().
		Str("submission_id", result.ID).
		Str("assignment_id", assignmentID).
		Int("files", len(result.Files)).
		Msg("files submitted")
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "Submission created successfully", fiber.Map{"id": result.ID, "files": result.Files})
}

// latest returns the active submission of a student for one assignment.
// Students may only look up their own work.
func (h *SubmissionHandler) latest(c *fiber.Ctx) error {
	actor := queryActor(c)
	if actor.ID == "" {
		return missingIdentity(c)
	}

	studentID := strings.TrimSpace(c.Query("studentId"))
	if studentID == "" {
		studentID = actor.ID
	}
	if studentID != actor.ID && !actor.HasRole(service.RoleTeacher) {
		return utils.SendErrorWithDetail(c, fiber.StatusForbidden, "students can only view their own submissions", errorPermission)
	}

	submission, err := h.service.Latest(requestContext(c), c.Query("assignmentId"), studentID)
	if err != nil {
		return writeServiceError(c, h.logger, err, "fetch submission")
	}

	return utils.SendSuccess(c, "submission retrieved", fiber.Map{"submission": submission})
}

func (h *SubmissionHandler) stream(c *fiber.Ctx) error {
	if queryActor(c).ID == "" {
		return missingIdentity(c)
	}

	var query dto.SubmissionListQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendErrorWithDetail(c, fiber.StatusBadRequest, "invalid query parameters", errorValidation)
	}

	return streamSnapshots(c, h.logger, h.keepAlive, string(realtime.ResourceSubmissions),
		func(ctx context.Context) *realtime.Subscription[[]dto.SubmissionResponse] {
			return h.service.Watch(ctx, query)
		})
}

func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
