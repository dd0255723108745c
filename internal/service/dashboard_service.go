package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/acadex-api/internal/cache"
	"github.com/noah-isme/acadex-api/internal/dto"
	"github.com/noah-isme/acadex-api/internal/models"
	"github.com/noah-isme/acadex-api/internal/repository"
)

const dashboardEpochKey = "dashboard:epoch"

// Progress states reported per assignment on the student dashboard.
const (
	ProgressNotSubmitted = "not_submitted"
	ProgressSubmitted    = "submitted"
	ProgressGraded       = "graded"
)

// DashboardService builds cached progress summaries for students and teachers.
type DashboardService interface {
	Student(ctx context.Context, studentID, classID string) (dto.StudentDashboardResponse, error)
	Teacher(ctx context.Context, teacherID string) (dto.TeacherDashboardResponse, error)
	Invalidate(ctx context.Context)
}

type dashboardService struct {
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	grades      repository.GradeRepository
	cache       cache.Cache
	cacheTTL    time.Duration
	logger      zerolog.Logger
}

// NewDashboardService constructs the dashboard service. cacheStore may be nil.
func NewDashboardService(assignments repository.AssignmentRepository, submissions repository.SubmissionRepository, grades repository.GradeRepository, cacheStore cache.Cache, ttl time.Duration, logger zerolog.Logger) DashboardService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &dashboardService{
		assignments: assignments,
		submissions: submissions,
		grades:      grades,
		cache:       cacheStore,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "dashboard_service").Logger(),
	}
}

// Invalidate drops the cache generation key. Summaries cached under the old
// generation are never read again and age out with their ttl.
func (s *dashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, dashboardEpochKey); err != nil {
		s.logger.Warn().Err(err).Msg("failed to drop dashboard cache generation")
	}
}

func (s *dashboardService) Student(ctx context.Context, studentID, classID string) (dto.StudentDashboardResponse, error) {
	studentID = strings.TrimSpace(studentID)
	classID = strings.TrimSpace(classID)
	if studentID == "" {
		return dto.StudentDashboardResponse{}, validationErrorf("user id required")
	}

	var response dto.StudentDashboardResponse
	key := s.cacheKey(ctx, "student", studentID, classID)
	if s.readCache(ctx, key, &response) {
		return response, nil
	}

	assignments, err := s.assignments.ListOrdered(ctx, repository.AssignmentFilter{ClassID: classID})
	if err != nil {
		return dto.StudentDashboardResponse{}, backendError("fetch assignments", err)
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{StudentID: studentID})
	if err != nil {
		return dto.StudentDashboardResponse{}, backendError("fetch submissions", err)
	}

	grades, err := s.grades.List(ctx, repository.GradeFilter{StudentID: studentID})
	if err != nil {
		return dto.StudentDashboardResponse{}, backendError("fetch grades", err)
	}

	latest := latestByAssignment(submissions)
	gradeBySubmission := make(map[string]models.Grade, len(grades))
	for _, grade := range grades {
		gradeBySubmission[grade.SubmissionID] = grade
	}

	response = dto.StudentDashboardResponse{
		StudentID:   studentID,
		Assignments: make([]dto.AssignmentProgress, 0, len(assignments)),
	}
	var scoreSum float64
	for _, assignment := range assignments {
		progress := dto.AssignmentProgress{
			AssignmentID: assignment.ID,
			Title:        assignment.Title,
			DueDate:      assignment.DueDate,
			Status:       ProgressNotSubmitted,
			MaxMarks:     assignment.TotalMarks,
		}

		submission, ok := latest[assignment.ID]
		if !ok {
			response.Summary.Pending++
			response.Assignments = append(response.Assignments, progress)
			continue
		}

		submittedAt := submission.SubmittedAt
		progress.SubmissionID = submission.ID
		progress.SubmittedAt = &submittedAt
		progress.Late = submission.IsLate(assignment.DueDate)
		progress.Status = ProgressSubmitted
		response.Summary.Submitted++
		if progress.Late {
			response.Summary.Late++
		}

		if grade, graded := gradeBySubmission[submission.ID]; graded {
			total := grade.Total
			progress.Status = ProgressGraded
			progress.Total = &total
			response.Summary.Graded++
			if assignment.TotalMarks > 0 {
				scoreSum += grade.Total / assignment.TotalMarks * 100
			}
		}

		response.Assignments = append(response.Assignments, progress)
	}

	response.Summary.TotalAssignments = len(assignments)
	if response.Summary.Graded > 0 {
		response.Summary.AverageScore = math.Round(scoreSum/float64(response.Summary.Graded)*100) / 100
	}

	s.writeCache(ctx, key, response)
	return response, nil
}

func (s *dashboardService) Teacher(ctx context.Context, teacherID string) (dto.TeacherDashboardResponse, error) {
	teacherID = strings.TrimSpace(teacherID)
	if teacherID == "" {
		return dto.TeacherDashboardResponse{}, validationErrorf("user id required")
	}

	var response dto.TeacherDashboardResponse
	key := s.cacheKey(ctx, "teacher", teacherID, "")
	if s.readCache(ctx, key, &response) {
		return response, nil
	}

	assignments, err := s.assignments.ListOrdered(ctx, repository.AssignmentFilter{CreatedBy: teacherID})
	if err != nil {
		return dto.TeacherDashboardResponse{}, backendError("fetch assignments", err)
	}

	assignmentIDs := make([]string, 0, len(assignments))
	for _, assignment := range assignments {
		assignmentIDs = append(assignmentIDs, assignment.ID)
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{AssignmentIDs: assignmentIDs})
	if err != nil {
		return dto.TeacherDashboardResponse{}, backendError("fetch submissions", err)
	}

	grades, err := s.grades.List(ctx, repository.GradeFilter{AssignmentIDs: assignmentIDs})
	if err != nil {
		return dto.TeacherDashboardResponse{}, backendError("fetch grades", err)
	}
	graded := make(map[string]struct{}, len(grades))
	for _, grade := range grades {
		graded[grade.SubmissionID] = struct{}{}
	}

	// Only each student's most recent submission counts towards the workload.
	active := make(map[string]map[string]models.Submission)
	for _, submission := range submissions {
		byStudent, ok := active[submission.AssignmentID]
		if !ok {
			byStudent = make(map[string]models.Submission)
			active[submission.AssignmentID] = byStudent
		}
		if current, exists := byStudent[submission.StudentID]; !exists || newer(submission, current) {
			byStudent[submission.StudentID] = submission
		}
	}

	response = dto.TeacherDashboardResponse{
		TeacherID:   teacherID,
		Assignments: make([]dto.AssignmentWorkload, 0, len(assignments)),
	}
	for _, assignment := range assignments {
		workload := dto.AssignmentWorkload{
			AssignmentID: assignment.ID,
			Title:        assignment.Title,
			ClassID:      assignment.ClassID,
			DueDate:      assignment.DueDate,
		}
		for _, submission := range active[assignment.ID] {
			workload.Submissions++
			if _, ok := graded[submission.ID]; ok {
				workload.Graded++
			} else {
				workload.AwaitingGrading++
			}
		}

		response.Totals.Submissions += workload.Submissions
		response.Totals.Graded += workload.Graded
		response.Totals.AwaitingGrading += workload.AwaitingGrading
		response.Assignments = append(response.Assignments, workload)
	}
	response.Totals.Assignments = len(assignments)

	s.writeCache(ctx, key, response)
	return response, nil
}

func (s *dashboardService) cacheKey(ctx context.Context, kind, userID, classID string) string {
	if s.cache == nil {
		return ""
	}

	var epoch string
	hit, err := s.cache.Get(ctx, dashboardEpochKey, &epoch)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to read dashboard cache generation")
		return ""
	}
	if !hit || epoch == "" {
		epoch = uuid.NewString()
		if err := s.cache.Set(ctx, dashboardEpochKey, epoch, 0); err != nil {
			s.logger.Warn().Err(err).Msg("failed to store dashboard cache generation")
			return ""
		}
	}

	return fmt.Sprintf("dashboard:%s:%s:%s:%s", epoch, kind, userID, classID)
}

func (s *dashboardService) readCache(ctx context.Context, key string, dest interface{}) bool {
	if key == "" {
		return false
	}

	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to read dashboard cache")
		return false
	}
	if hit {
		s.logger.Debug().Str("key", key).Msg("dashboard cache hit")
	}
	return hit
}

func (s *dashboardService) writeCache(ctx context.Context, key string, value interface{}) {
	if key == "" {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to store dashboard cache")
	}
}

func latestByAssignment(submissions []models.Submission) map[string]models.Submission {
	latest := make(map[string]models.Submission, len(submissions))
	for _, submission := range submissions {
		if current, ok := latest[submission.AssignmentID]; !ok || newer(submission, current) {
			latest[submission.AssignmentID] = submission
		}
	}
	return latest
}

func newer(a, b models.Submission) bool {
	if a.SubmittedAt.Equal(b.SubmittedAt) {
		return a.ID > b.ID
	}
	return a.SubmittedAt.After(b.SubmittedAt)
}
