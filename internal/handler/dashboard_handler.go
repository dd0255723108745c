package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/acadex-api/internal/service"
	"github.com/noah-isme/acadex-api/internal/utils"
)

// DashboardHandler exposes the student and teacher summaries.
type DashboardHandler struct {
	service service.DashboardService
	logger  zerolog.Logger
}

// NewDashboardHandler creates a new handler instance.
func NewDashboardHandler(service service.DashboardService, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: service,
		logger:  logger.With().Str("component", "dashboard_handler").Logger(),
	}
}

// Register attaches the dashboard endpoints. Extra handlers run before the
// teacher summary.
func (h *DashboardHandler) Register(router fiber.Router, teacherGuards ...fiber.Handler) {
	router.Get("/student", h.student)

	teacher := append(append([]fiber.Handler{}, teacherGuards...), h.teacher)
	router.Get("/teacher", teacher...)
}

func (h *DashboardHandler) student(c *fiber.Ctx) error {
	actor := queryActor(c)
	if actor.ID == "" {
		return missingIdentity(c)
	}

	// Teachers may look at any student; students only at themselves.
	studentID := actor.ID
	if requested := strings.TrimSpace(c.Query("studentId")); requested != "" && requested != actor.ID {
		if !actor.HasRole(service.RoleTeacher) {
			return utils.SendErrorWithDetail(c, fiber.StatusForbidden, "students can only view their own dashboard", errorPermission)
		}
		studentID = requested
	}

	dashboard, err := h.service.Student(requestContext(c), studentID, c.Query("classId"))
	if err != nil {
		return writeServiceError(c, h.logger, err, "load dashboard")
	}

	return utils.SendSuccess(c, "dashboard retrieved", fiber.Map{
		"studentId":   dashboard.StudentID,
		"summary":     dashboard.Summary,
		"assignments": dashboard.Assignments,
	})
}

func (h *DashboardHandler) teacher(c *fiber.Ctx) error {
	actor := queryActor(c)
	if actor.ID == "" {
		return missingIdentity(c)
	}
	if !actor.HasRole(service.RoleTeacher) {
		return utils.SendErrorWithDetail(c, fiber.StatusForbidden, "only teachers can view the teacher dashboard", errorPermission)
	}

	dashboard, err := h.service.Teacher(requestContext(c), actor.ID)
	if err != nil {
		return writeServiceError(c, h.logger, err, "load dashboard")
	}

	return utils.SendSuccess(c, "dashboard retrieved", fiber.Map{
		"teacherId":   dashboard.TeacherID,
		"assignments": dashboard.Assignments,
		"totals":      dashboard.Totals,
	})
}
