package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/acadex-api/internal/cache"
	"github.com/noah-isme/acadex-api/internal/dto"
)

func TestDashboardServiceStudentAggregationAndCaching(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	env := newTestEnv(t)
	store := cache.NewRedisCache(redis.NewClient(&redis.Options{Addr: mini.Addr()}), "acadex")
	dashboards := NewDashboardService(env.assignments, env.submissions, env.grades, store, time.Minute, zerolog.Nop())

	assignments := NewAssignmentService(env.assignments, NewValidator(), nil, time.Minute, env.hub, dashboards, zerolog.Nop())
	submissions := NewSubmissionService(env.submissions, env.assignments, env.grades, env.uploadService(), NewValidator(), env.hub, dashboards, zerolog.Nop())
	grading := NewGradingService(env.grades, env.submissions, env.assignments, NewValidator(), env.hub, dashboards, zerolog.Nop())

	first, err := assignments.Create(context.Background(), teacher, validAssignmentRequest())
	require.NoError(t, err)
	second, err := assignments.Create(context.Background(), teacher, validAssignmentRequest())
	require.NoError(t, err)
	_, err = assignments.Create(context.Background(), teacher, validAssignmentRequest())
	require.NoError(t, err)

	submit := func(assignmentID string) string {
		created, err := submissions.Create(context.Background(), student, dto.SubmissionCreateRequest{
			AssignmentID: assignmentID,
			StudentID:    student.ID,
			Files:        []dto.SubmissionFileInput{{URL: "https://files.example.com/a.pdf", Name: "a.pdf", Size: int64Ptr(10)}},
		})
		require.NoError(t, err)
		return created.ID
	}

	gradedSubmission := submit(first.ID)
	submit(second.ID)

	_, err = grading.Create(context.Background(), teacher, gradeRequest(gradedSubmission,
		dto.QuestionMarkInput{QuestionID: "q1", Mark: floatPtr(5)},
		dto.QuestionMarkInput{QuestionID: "q2", Mark: floatPtr(7)},
	))
	require.NoError(t, err)

	summary, err := dashboards.Student(context.Background(), student.ID, "bio-101")
	require.NoError(t, err)
	require.Equal(t, 3, summary.Summary.TotalAssignments)
	require.Equal(t, 2, summary.Summary.Submitted)
	require.Equal(t, 1, summary.Summary.Graded)
	require.Equal(t, 1, summary.Summary.Pending)
	require.Equal(t, 80.0, summary.Summary.AverageScore)

	statuses := map[string]string{}
	for _, progress := range summary.Assignments {
		statuses[progress.AssignmentID] = progress.Status
	}
	require.Equal(t, ProgressGraded, statuses[first.ID])
	require.Equal(t, ProgressSubmitted, statuses[second.ID])

	keysBefore := len(mini.Keys())
	cached, err := dashboards.Student(context.Background(), student.ID, "bio-101")
	require.NoError(t, err)
	require.Equal(t, summary.Summary, cached.Summary)
	require.Len(t, cached.Assignments, len(summary.Assignments))
	require.Equal(t, keysBefore, len(mini.Keys()))

	require.True(t, mini.Exists("acadex:dashboard:epoch"))
	third, err := assignments.Create(context.Background(), teacher, validAssignmentRequest())
	require.NoError(t, err)
	require.False(t, mini.Exists("acadex:dashboard:epoch"), "writes drop the cache generation")
	submit(third.ID)

	refreshed, err := dashboards.Student(context.Background(), student.ID, "bio-101")
	require.NoError(t, err)
	require.Equal(t, 4, refreshed.Summary.TotalAssignments)
	require.Equal(t, 3, refreshed.Summary.Submitted)
}

func TestDashboardServiceTeacherWorkload(t *testing.T) {
	env := newTestEnv(t)
	dashboards := NewDashboardService(env.assignments, env.submissions, env.grades, cache.NewMemoryCache(32, time.Minute), time.Minute, zerolog.Nop())

	assignmentID := env.createAssignment(t)
	env.createSubmission(t, assignmentID, student)
	latest := env.createSubmission(t, assignmentID, student)
	other := env.createSubmission(t, assignmentID, Actor{ID: "student-2", Role: RoleStudent})

	_, err := env.gradingService().Create(context.Background(), teacher, gradeRequest(other))
	require.NoError(t, err)

	workload, err := dashboards.Teacher(context.Background(), teacher.ID)
	require.NoError(t, err)
	require.Len(t, workload.Assignments, 1)
	require.Equal(t, 2, workload.Assignments[0].Submissions, "resubmissions count once")
	require.Equal(t, 1, workload.Assignments[0].Graded)
	require.Equal(t, 1, workload.Assignments[0].AwaitingGrading)
	require.Equal(t, 1, workload.Totals.Assignments)

	_, err = env.gradingService().Create(context.Background(), teacher, gradeRequest(latest))
	require.NoError(t, err)

	stale, err := dashboards.Teacher(context.Background(), teacher.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stale.Totals.AwaitingGrading, "grading service without invalidator leaves cache untouched")

	dashboards.Invalidate(context.Background())
	fresh, err := dashboards.Teacher(context.Background(), teacher.ID)
	require.NoError(t, err)
	require.Equal(t, 0, fresh.Totals.AwaitingGrading)
	require.Equal(t, 2, fresh.Totals.Graded)

	empty, err := dashboards.Teacher(context.Background(), "teacher-9")
	require.NoError(t, err)
	require.Empty(t, empty.Assignments)
}
