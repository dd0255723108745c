package handler

import (
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/acadex-api/internal/service"
	"github.com/noah-isme/acadex-api/internal/utils"
)

// UploadHandler accepts single PDF uploads destined for a submission.
type UploadHandler struct {
	service service.UploadService
	logger  zerolog.Logger
}

// NewUploadHandler constructs an upload handler.
func NewUploadHandler(service service.UploadService, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		service: service,
		logger:  logger.With().Str("component", "upload_handler").Logger(),
	}
}

// Register wires upload routes.
func (h *UploadHandler) Register(router fiber.Router) {
	router.Post("", h.upload)
}

func (h *UploadHandler) upload(c *fiber.Ctx) error {
	var file *multipart.FileHeader
	if header, err := c.FormFile("file"); err == nil {
		file = header
	}

	studentID := c.FormValue("studentId")
	if studentID == "" {
		studentID = actorFromRequest(c, "", "").ID
	}

	result, err := h.service.Upload(requestContext(c), file, c.FormValue("assignmentId"), studentID)
	if err != nil {
		return writeServiceError(c, h.logger, err, "upload file")
	}

	return utils.SendSuccess(c, "File uploaded successfully", fiber.Map{"file": result})
}
