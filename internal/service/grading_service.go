package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/acadex-api/internal/dto"
	"github.com/noah-isme/acadex-api/internal/models"
	"github.com/noah-isme/acadex-api/internal/observability"
	"github.com/noah-isme/acadex-api/internal/realtime"
	"github.com/noah-isme/acadex-api/internal/repository"
)

// GradingService exposes grading use cases.
type GradingService interface {
	Create(ctx context.Context, actor Actor, payload dto.GradeCreateRequest) (dto.GradeCreatedResponse, error)
	List(ctx context.Context, query dto.GradeListQuery) ([]dto.GradeResponse, error)
	Watch(ctx context.Context, query dto.GradeListQuery) *realtime.Subscription[[]dto.GradeResponse]
}

type gradingService struct {
	repo        repository.GradeRepository
	submissions repository.SubmissionRepository
	assignments repository.AssignmentRepository
	validator   *validator.Validate
	hub         *realtime.Hub
	dashboards  DashboardInvalidator
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewGradingService constructs the grading service.
func NewGradingService(
	repo repository.GradeRepository,
	submissions repository.SubmissionRepository,
	assignments repository.AssignmentRepository,
	validate *validator.Validate,
	hub *realtime.Hub,
	dashboards DashboardInvalidator,
	logger zerolog.Logger,
) GradingService {
	return &gradingService{
		repo:        repo,
		submissions: submissions,
		assignments: assignments,
		validator:   validate,
		hub:         hub,
		dashboards:  dashboards,
		logger:      logger.With().Str("component", "grading_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/acadex-api/internal/service/grading"),
		now:         time.Now,
	}
}

func (s *gradingService) Create(ctx context.Context, actor Actor, payload dto.GradeCreateRequest) (dto.GradeCreatedResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grades.create", trace.WithAttributes(
		attribute.String("grade.submission_id", payload.SubmissionID),
		attribute.String("grade.teacher_id", payload.TeacherID),
	))
	defer span.End()

	response, err := s.create(ctx, actor, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "grading failed")
		return dto.GradeCreatedResponse{}, err
	}

	span.SetAttributes(attribute.Float64("grade.total", response.Total))
	span.SetStatus(codes.Ok, "graded")
	return response, nil
}

func (s *gradingService) create(ctx context.Context, actor Actor, payload dto.GradeCreateRequest) (dto.GradeCreatedResponse, error) {
	if blank(actor.ID) {
		return dto.GradeCreatedResponse{}, validationErrorf("user id required")
	}
	if blank(payload.SubmissionID) || blank(payload.TeacherID) || len(payload.Marks) == 0 {
		return dto.GradeCreatedResponse{}, validationErrorf("submissionId, teacherId and at least one mark are required")
	}
	if !actor.HasRole(RoleTeacher) {
		return dto.GradeCreatedResponse{}, permissionErrorf("only teachers can grade submissions")
	}

	marks := make([]models.QuestionMark, 0, len(payload.Marks))
	seen := make(map[string]struct{}, len(payload.Marks))
	for i, mark := range payload.Marks {
		if err := s.validator.Struct(mark); err != nil {
			return dto.GradeCreatedResponse{}, describeItem("marks", i, err)
		}
		if blank(mark.QuestionID) {
			return dto.GradeCreatedResponse{}, validationErrorf("marks[%d].questionId is required", i)
		}
		if !finite(*mark.Mark) {
			return dto.GradeCreatedResponse{}, validationErrorf("marks[%d].mark must be a finite number", i)
		}
		if _, dup := seen[mark.QuestionID]; dup {
			return dto.GradeCreatedResponse{}, validationErrorf("marks[%d] grades question %q twice", i, mark.QuestionID)
		}
		seen[mark.QuestionID] = struct{}{}

		marks = append(marks, models.QuestionMark{QuestionID: mark.QuestionID, Mark: *mark.Mark})
	}

	if containsMarkup(payload.Feedback) {
		return dto.GradeCreatedResponse{}, validationErrorf("feedback must not contain markup")
	}
	if actor.ID != strings.TrimSpace(payload.TeacherID) {
		return dto.GradeCreatedResponse{}, permissionErrorf("teachers can only record grades in their own name")
	}

	submission, err := s.submissions.GetByID(ctx, payload.SubmissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradeCreatedResponse{}, ErrSubmissionNotFound
		}
		return dto.GradeCreatedResponse{}, backendError("fetch submission", err)
	}

	assignment, err := s.assignments.GetByID(ctx, submission.AssignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradeCreatedResponse{}, ErrAssignmentNotFound
		}
		return dto.GradeCreatedResponse{}, backendError("fetch assignment", err)
	}

	for i, mark := range marks {
		question, ok := assignment.FindQuestion(mark.QuestionID)
		if !ok {
			return dto.GradeCreatedResponse{}, validationErrorf("marks[%d].questionId %q is not part of the assignment", i, mark.QuestionID)
		}
		if mark.Mark > question.MaxMarks {
			return dto.GradeCreatedResponse{}, validationErrorf("marks[%d].mark exceeds the maximum of %g", i, question.MaxMarks)
		}
	}

	if submission.IsGraded() {
		return dto.GradeCreatedResponse{}, ErrSubmissionAlreadyGraded
	}
	if !submission.Status.CanTransitionTo(models.SubmissionStatusGraded) {
		return dto.GradeCreatedResponse{}, validationErrorf("submission in status %q cannot be graded", submission.Status)
	}

	now := s.now().UTC()
	grade := models.Grade{
		SubmissionID: submission.ID,
		AssignmentID: submission.AssignmentID,
		StudentID:    submission.StudentID,
		TeacherID:    strings.TrimSpace(payload.TeacherID),
		Marks:        marks,
		Total:        models.SumMarks(marks),
		Feedback:     payload.Feedback,
		GradedAt:     now,
		CreatedAt:    now,
	}

	if err := s.repo.Record(ctx, &grade); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return dto.GradeCreatedResponse{}, ErrSubmissionAlreadyGraded
		}
		return dto.GradeCreatedResponse{}, backendError("record grade", err)
	}

	observability.GradesRecorded().Inc()
	s.logger.Info().
		Str("grade_id", grade.ID).
		Str("submission_id", grade.SubmissionID).
		Str("teacher_id", grade.TeacherID).
		Float64("total", grade.Total).
		Msg("grade recorded")

	s.hub.Publish(ctx, realtime.ResourceGrades, grade.ID)
	s.hub.Publish(ctx, realtime.ResourceSubmissions, grade.SubmissionID)
	if s.dashboards != nil {
		s.dashboards.Invalidate(ctx)
	}

	return dto.GradeCreatedResponse{ID: grade.ID, Total: grade.Total}, nil
}

func (s *gradingService) List(ctx context.Context, query dto.GradeListQuery) ([]dto.GradeResponse, error) {
	filter := repository.GradeFilter{
		SubmissionID: strings.TrimSpace(query.SubmissionID),
		StudentID:    strings.TrimSpace(query.StudentID),
	}

	grades, err := listWithFallback(ctx, "grades", s.logger,
		func(ctx context.Context) ([]models.Grade, error) { return s.repo.ListOrdered(ctx, filter) },
		func(ctx context.Context) ([]models.Grade, error) { return s.repo.List(ctx, filter) },
		func(a, b models.Grade) bool {
			if a.GradedAt.Equal(b.GradedAt) {
				return a.ID > b.ID
			}
			return a.GradedAt.After(b.GradedAt)
		},
	)
	if err != nil {
		return nil, backendError("fetch grades", err)
	}

	return dto.NewGradeResponseSlice(grades), nil
}

func (s *gradingService) Watch(ctx context.Context, query dto.GradeListQuery) *realtime.Subscription[[]dto.GradeResponse] {
	return realtime.Watch(ctx, s.hub, func(ctx context.Context) ([]dto.GradeResponse, error) {
		return s.List(ctx, query)
	}, s.logger, realtime.ResourceGrades)
}
