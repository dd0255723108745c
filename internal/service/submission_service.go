package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/acadex-api/internal/dto"
	"github.com/noah-isme/acadex-api/internal/models"
	"github.com/noah-isme/acadex-api/internal/realtime"
	"github.com/noah-isme/acadex-api/internal/repository"
)

// MaxFilesPerSubmission bounds multi-file submissions.
const MaxFilesPerSubmission = 5

// UploadProgress reports how many files of a batch have been stored.
type UploadProgress struct {
	Completed int
	Total     int
	File      dto.UploadResponse
}

// SubmissionService exposes submission use cases.
type SubmissionService interface {
	Create(ctx context.Context, actor Actor, payload dto.SubmissionCreateRequest) (dto.CreatedResponse, error)
	SubmitFiles(ctx context.Context, actor Actor, assignmentID string, files []*multipart.FileHeader, progress func(UploadProgress)) (dto.FileSubmissionResponse, error)
	List(ctx context.Context, query dto.SubmissionListQuery) ([]dto.SubmissionResponse, error)
	Latest(ctx context.Context, assignmentID, studentID string) (dto.SubmissionResponse, error)
	Watch(ctx context.Context, query dto.SubmissionListQuery) *realtime.Subscription[[]dto.SubmissionResponse]
}

type submissionService struct {
	repo        repository.SubmissionRepository
	assignments repository.AssignmentRepository
	grades      repository.GradeRepository
	uploads     UploadService
	validator   *validator.Validate
	hub         *realtime.Hub
	dashboards  DashboardInvalidator
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs the submission service.
func NewSubmissionService(
	repo repository.SubmissionRepository,
	assignments repository.AssignmentRepository,
	grades repository.GradeRepository,
	uploads UploadService,
	validate *validator.Validate,
	hub *realtime.Hub,
	dashboards DashboardInvalidator,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionService{
		repo:        repo,
		assignments: assignments,
		grades:      grades,
		uploads:     uploads,
		validator:   validate,
		hub:         hub,
		dashboards:  dashboards,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

func (s *submissionService) Create(ctx context.Context, actor Actor, payload dto.SubmissionCreateRequest) (dto.CreatedResponse, error) {
	if blank(actor.ID) {
		return dto.CreatedResponse{}, validationErrorf("user id required")
	}
	if blank(payload.AssignmentID) || blank(payload.StudentID) || len(payload.Files) == 0 {
		return dto.CreatedResponse{}, validationErrorf("assignmentId, studentId and at least one file are required")
	}
	if !actor.HasRole(RoleStudent) {
		return dto.CreatedResponse{}, permissionErrorf("only students can submit assignments")
	}

	files := make([]models.SubmissionFile, 0, len(payload.Files))
	for i, file := range payload.Files {
		if err := s.validator.Struct(file); err != nil {
			return dto.CreatedResponse{}, describeItem("files", i, err)
		}
		if blank(file.URL) || blank(file.Name) {
			return dto.CreatedResponse{}, validationErrorf("files[%d] requires a url and name", i)
		}
		files = append(files, models.SubmissionFile{URL: file.URL, Name: file.Name, Size: *file.Size})
	}

	if actor.ID != payload.StudentID {
		return dto.CreatedResponse{}, permissionErrorf("students can only submit their own work")
	}

	if _, err := s.assignments.GetByID(ctx, payload.AssignmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CreatedResponse{}, ErrAssignmentNotFound
		}
		return dto.CreatedResponse{}, backendError("fetch assignment", err)
	}

	now := s.now().UTC()
	submission := models.Submission{
		AssignmentID: payload.AssignmentID,
		StudentID:    payload.StudentID,
		Files:        files,
		SubmittedAt:  now,
		Status:       models.SubmissionStatusSubmitted,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, &submission); err != nil {
		return dto.CreatedResponse{}, backendError("create submission", err)
	}

	s.logger.Info().
		Str("submission_id", submission.ID).
		Str("assignment_id", submission.AssignmentID).
		Str("student_id", submission.StudentID).
		Int("files", len(files)).
		Msg("submission created")

	s.hub.Publish(ctx, realtime.ResourceSubmissions, submission.ID)
	if s.dashboards != nil {
		s.dashboards.Invalidate(ctx)
	}

	return dto.CreatedResponse{ID: submission.ID}, nil
}

func (s *submissionService) SubmitFiles(ctx context.Context, actor Actor, assignmentID string, files []*multipart.FileHeader, progress func(UploadProgress)) (dto.FileSubmissionResponse, error) {
	if blank(actor.ID) {
		return dto.FileSubmissionResponse{}, validationErrorf("user id required")
	}
	if blank(assignmentID) || len(files) == 0 {
		return dto.FileSubmissionResponse{}, validationErrorf("assignmentId and at least one file are required")
	}
	if len(files) > MaxFilesPerSubmission {
		return dto.FileSubmissionResponse{}, validationErrorf("at most %d files can be submitted at once", MaxFilesPerSubmission)
	}
	if !actor.HasRole(RoleStudent) {
		return dto.FileSubmissionResponse{}, permissionErrorf("only students can submit assignments")
	}

	if _, err := s.assignments.GetByID(ctx, assignmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FileSubmissionResponse{}, ErrAssignmentNotFound
		}
		return dto.FileSubmissionResponse{}, backendError("fetch assignment", err)
	}

	uploaded := make([]dto.UploadResponse, 0, len(files))
	inputs := make([]dto.SubmissionFileInput, 0, len(files))
	for i, file := range files {
		stored, err := s.uploads.Upload(ctx, file, assignmentID, actor.ID)
		if err != nil {
			s.logger.Warn().Err(err).Int("file_index", i).Str("assignment_id", assignmentID).Msg("batch upload aborted")
			return dto.FileSubmissionResponse{}, err
		}

		uploaded = append(uploaded, stored)
		size := stored.Size
		inputs = append(inputs, dto.SubmissionFileInput{URL: stored.URL, Name: stored.Name, Size: &size})

		if progress != nil {
			progress(UploadProgress{Completed: i + 1, Total: len(files), File: stored})
		}
	}

	created, err := s.Create(ctx, actor, dto.SubmissionCreateRequest{
		AssignmentID: assignmentID,
		StudentID:    actor.ID,
		Files:        inputs,
	})
	if err != nil {
		return dto.FileSubmissionResponse{}, err
	}

	return dto.FileSubmissionResponse{ID: created.ID, Files: uploaded}, nil
}

func (s *submissionService) List(ctx context.Context, query dto.SubmissionListQuery) ([]dto.SubmissionResponse, error) {
	filter := repository.SubmissionFilter{
		AssignmentID: strings.TrimSpace(query.AssignmentID),
		StudentID:    strings.TrimSpace(query.StudentID),
	}

	submissions, err := listWithFallback(ctx, "submissions", s.logger,
		func(ctx context.Context) ([]models.Submission, error) { return s.repo.ListOrdered(ctx, filter) },
		func(ctx context.Context) ([]models.Submission, error) { return s.repo.List(ctx, filter) },
		func(a, b models.Submission) bool {
			if a.SubmittedAt.Equal(b.SubmittedAt) {
				return a.ID > b.ID
			}
			return a.SubmittedAt.After(b.SubmittedAt)
		},
	)
	if err != nil {
		return nil, backendError("fetch submissions", err)
	}

	return s.decorate(ctx, submissions)
}

func (s *submissionService) Latest(ctx context.Context, assignmentID, studentID string) (dto.SubmissionResponse, error) {
	if blank(assignmentID) || blank(studentID) {
		return dto.SubmissionResponse{}, validationErrorf("assignmentId and studentId are required")
	}

	submission, err := s.repo.Latest(ctx, assignmentID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, backendError("fetch submission", err)
	}

	decorated, err := s.decorate(ctx, []models.Submission{submission})
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	return decorated[0], nil
}

func (s *submissionService) Watch(ctx context.Context, query dto.SubmissionListQuery) *realtime.Subscription[[]dto.SubmissionResponse] {
	return realtime.Watch(ctx, s.hub, func(ctx context.Context) ([]dto.SubmissionResponse, error) {
		return s.List(ctx, query)
	}, s.logger, realtime.ResourceSubmissions, realtime.ResourceGrades)
}

// decorate derives the late flag and reconciles the status with recorded grades.
func (s *submissionService) decorate(ctx context.Context, submissions []models.Submission) ([]dto.SubmissionResponse, error) {
	responses := make([]dto.SubmissionResponse, 0, len(submissions))
	if len(submissions) == 0 {
		return responses, nil
	}

	assignmentIDs := make([]string, 0)
	submissionIDs := make([]string, 0, len(submissions))
	seen := make(map[string]struct{})
	for _, submission := range submissions {
		submissionIDs = append(submissionIDs, submission.ID)
		if _, ok := seen[submission.AssignmentID]; !ok {
			seen[submission.AssignmentID] = struct{}{}
			assignmentIDs = append(assignmentIDs, submission.AssignmentID)
		}
	}

	assignments, err := s.assignments.GetByIDs(ctx, assignmentIDs)
	if err != nil {
		return nil, backendError("fetch assignments", err)
	}
	dueDates := make(map[string]time.Time, len(assignments))
	for _, assignment := range assignments {
		dueDates[assignment.ID] = assignment.DueDate
	}

	grades, err := s.grades.List(ctx, repository.GradeFilter{SubmissionIDs: submissionIDs})
	if err != nil {
		return nil, backendError("fetch grades", err)
	}
	graded := make(map[string]struct{}, len(grades))
	for _, grade := range grades {
		graded[grade.SubmissionID] = struct{}{}
	}

	for _, submission := range submissions {
		response := dto.NewSubmissionResponse(submission)
		response.Late = submission.IsLate(dueDates[submission.AssignmentID])
		if _, ok := graded[submission.ID]; ok {
			response.Status = string(models.SubmissionStatusGraded)
		}
		responses = append(responses, response)
	}

	return responses, nil
}
