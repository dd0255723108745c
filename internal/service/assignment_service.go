package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/acadex-api/internal/cache"
	"github.com/noah-isme/acadex-api/internal/dto"
	"github.com/noah-isme/acadex-api/internal/models"
	"github.com/noah-isme/acadex-api/internal/realtime"
	"github.com/noah-isme/acadex-api/internal/repository"
)

// AssignmentService exposes assignment use cases.
type AssignmentService interface {
	Create(ctx context.Context, actor Actor, payload dto.AssignmentCreateRequest) (dto.CreatedResponse, error)
	List(ctx context.Context, query dto.AssignmentListQuery) ([]dto.AssignmentResponse, error)
	Get(ctx context.Context, id string) (dto.AssignmentResponse, error)
	Watch(ctx context.Context, query dto.AssignmentListQuery) *realtime.Subscription[[]dto.AssignmentResponse]
}

// DashboardInvalidator drops cached dashboard summaries after a write.
type DashboardInvalidator interface {
	Invalidate(ctx context.Context)
}

type assignmentService struct {
	repo       repository.AssignmentRepository
	validator  *validator.Validate
	cache      cache.Cache
	cacheTTL   time.Duration
	hub        *realtime.Hub
	dashboards DashboardInvalidator
	logger     zerolog.Logger
	now        func() time.Time
}

// NewAssignmentService builds a new assignment service. cacheStore and dashboards may be nil.
func NewAssignmentService(repo repository.AssignmentRepository, validate *validator.Validate, cacheStore cache.Cache, cacheTTL time.Duration, hub *realtime.Hub, dashboards DashboardInvalidator, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		repo:       repo,
		validator:  validate,
		cache:      cacheStore,
		cacheTTL:   cacheTTL,
		hub:        hub,
		dashboards: dashboards,
		logger:     logger.With().Str("component", "assignment_service").Logger(),
		now:        time.Now,
	}
}

func (s *assignmentService) Create(ctx context.Context, actor Actor, payload dto.AssignmentCreateRequest) (dto.CreatedResponse, error) {
	if blank(actor.ID) {
		return dto.CreatedResponse{}, validationErrorf("user id required")
	}
	if blank(payload.Title) || blank(payload.ClassID) || blank(payload.Description) || blank(payload.DueDate) || len(payload.Questions) == 0 {
		return dto.CreatedResponse{}, validationErrorf("title, classId, description, dueDate and at least one question are required")
	}
	if !actor.HasRole(RoleTeacher) {
		return dto.CreatedResponse{}, permissionErrorf("only teachers can create assignments")
	}

	questions := make([]models.Question, 0, len(payload.Questions))
	seen := make(map[string]struct{}, len(payload.Questions))
	for i, question := range payload.Questions {
		if err := s.validator.Struct(question); err != nil {
			return dto.CreatedResponse{}, describeItem("questions", i, err)
		}
		if blank(question.ID) || blank(question.Text) {
			return dto.CreatedResponse{}, validationErrorf("questions[%d] requires an id and text", i)
		}
		if !finite(*question.MaxMarks) {
			return dto.CreatedResponse{}, validationErrorf("questions[%d].maxMarks must be a finite number", i)
		}
		if _, dup := seen[question.ID]; dup {
			return dto.CreatedResponse{}, validationErrorf("questions[%d].id %q is duplicated", i, question.ID)
		}
		seen[question.ID] = struct{}{}

		questions = append(questions, models.Question{ID: question.ID, Text: question.Text, MaxMarks: *question.MaxMarks})
	}

	totalMarks := models.SumMaxMarks(questions)
	if !finite(totalMarks) {
		return dto.CreatedResponse{}, validationErrorf("total of question maxMarks must be a finite number")
	}

	dueDate, err := time.Parse(time.RFC3339, strings.TrimSpace(payload.DueDate))
	if err != nil {
		return dto.CreatedResponse{}, validationErrorf("dueDate must be an RFC 3339 timestamp")
	}

	if containsMarkup(payload.Title) || containsMarkup(payload.Description) {
		return dto.CreatedResponse{}, validationErrorf("title and description must not contain markup")
	}
	for i, question := range questions {
		if containsMarkup(question.Text) {
			return dto.CreatedResponse{}, validationErrorf("questions[%d].text must not contain markup", i)
		}
	}

	now := s.now().UTC()
	assignment := models.Assignment{
		Title:          payload.Title,
		ClassID:        strings.TrimSpace(payload.ClassID),
		Description:    payload.Description,
		DueDate:        dueDate.UTC(),
		Questions:      questions,
		TotalQuestions: len(questions),
		TotalMarks:     totalMarks,
		CreatedBy:      actor.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, &assignment); err != nil {
		return dto.CreatedResponse{}, backendError("create assignment", err)
	}

	s.logger.Info().
		Str("assignment_id", assignment.ID).
		Str("class_id", assignment.ClassID).
		Str("created_by", assignment.CreatedBy).
		Msg("assignment created")

	s.hub.Publish(ctx, realtime.ResourceAssignments, assignment.ID)
	if s.dashboards != nil {
		s.dashboards.Invalidate(ctx)
	}

	return dto.CreatedResponse{ID: assignment.ID}, nil
}

func (s *assignmentService) List(ctx context.Context, query dto.AssignmentListQuery) ([]dto.AssignmentResponse, error) {
	filter := repository.AssignmentFilter{
		ClassID:   strings.TrimSpace(query.ClassID),
		CreatedBy: strings.TrimSpace(query.TeacherID),
	}

	assignments, err := listWithFallback(ctx, "assignments", s.logger,
		func(ctx context.Context) ([]models.Assignment, error) { return s.repo.ListOrdered(ctx, filter) },
		func(ctx context.Context) ([]models.Assignment, error) { return s.repo.List(ctx, filter) },
		func(a, b models.Assignment) bool {
			if a.CreatedAt.Equal(b.CreatedAt) {
				return a.ID > b.ID
			}
			return a.CreatedAt.After(b.CreatedAt)
		},
	)
	if err != nil {
		return nil, backendError("fetch assignments", err)
	}

	return dto.NewAssignmentResponseSlice(assignments), nil
}

func (s *assignmentService) Get(ctx context.Context, id string) (dto.AssignmentResponse, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return dto.AssignmentResponse{}, validationErrorf("assignment id required")
	}

	key := "assignment:" + id
	if s.cache != nil {
		var cached dto.AssignmentResponse
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn().Err(err).Str("assignment_id", id).Msg("failed to read assignment cache")
		} else if hit {
			return cached, nil
		}
	}

	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, backendError("fetch assignment", err)
	}

	response := dto.NewAssignmentResponse(assignment)
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, response, s.cacheTTL); err != nil {
			s.logger.Warn().Err(err).Str("assignment_id", id).Msg("failed to store assignment cache")
		}
	}

	return response, nil
}

func (s *assignmentService) Watch(ctx context.Context, query dto.AssignmentListQuery) *realtime.Subscription[[]dto.AssignmentResponse] {
	return realtime.Watch(ctx, s.hub, func(ctx context.Context) ([]dto.AssignmentResponse, error) {
		return s.List(ctx, query)
	}, s.logger, realtime.ResourceAssignments)
}
