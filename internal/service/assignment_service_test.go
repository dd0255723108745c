package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/acadex-api/internal/cache"
	"github.com/noah-isme/acadex-api/internal/dto"
	"github.com/noah-isme/acadex-api/internal/models"
	"github.com/noah-isme/acadex-api/internal/repository"
)

func TestAssignmentServiceCreateComputesTotals(t *testing.T) {
	env := newTestEnv(t)
	svc := env.assignmentService()

	created, err := svc.Create(context.Background(), teacher, validAssignmentRequest())
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	stored, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, 2, stored.TotalQuestions)
	require.Equal(t, 15.0, stored.TotalMarks)
	require.Equal(t, teacher.ID, stored.CreatedBy)
	require.Equal(t, "Photosynthesis", stored.Title)
	require.Len(t, stored.Questions, 2)
	require.Equal(t, "Describe the Calvin cycle", stored.Questions[1].Text)
	require.False(t, stored.CreatedAt.IsZero())
}

func TestAssignmentServiceCreateValidationOrder(t *testing.T) {
	cases := []struct {
		name   string
		actor  Actor
		mutate func(*dto.AssignmentCreateRequest)
		target error
	}{
		{
			name:   "missing title is validation even for students",
			actor:  student,
			mutate: func(r *dto.AssignmentCreateRequest) { r.Title = "" },
			target: ErrValidation,
		},
		{
			name:   "empty question list",
			actor:  teacher,
			mutate: func(r *dto.AssignmentCreateRequest) { r.Questions = nil },
			target: ErrValidation,
		},
		{
			name:   "student with complete payload",
			actor:  student,
			mutate: func(*dto.AssignmentCreateRequest) {},
			target: ErrPermissionDenied,
		},
		{
			name:   "student with invalid question",
			actor:  student,
			mutate: func(r *dto.AssignmentCreateRequest) { r.Questions[0].MaxMarks = floatPtr(0) },
			target: ErrPermissionDenied,
		},
		{
			name:   "zero max marks",
			actor:  teacher,
			mutate: func(r *dto.AssignmentCreateRequest) { r.Questions[0].MaxMarks = floatPtr(0) },
			target: ErrValidation,
		},
		{
			name:   "missing max marks",
			actor:  teacher,
			mutate: func(r *dto.AssignmentCreateRequest) { r.Questions[1].MaxMarks = nil },
			target: ErrValidation,
		},
		{
			name:   "question without text",
			actor:  teacher,
			mutate: func(r *dto.AssignmentCreateRequest) { r.Questions[0].Text = "" },
			target: ErrValidation,
		},
		{
			name:   "duplicate question ids",
			actor:  teacher,
			mutate: func(r *dto.AssignmentCreateRequest) { r.Questions[1].ID = "q1" },
			target: ErrValidation,
		},
		{
			name:  "max marks overflow when summed",
			actor: teacher,
			mutate: func(r *dto.AssignmentCreateRequest) {
				r.Questions[0].MaxMarks = floatPtr(1e308)
				r.Questions[1].MaxMarks = floatPtr(1e308)
			},
			target: ErrValidation,
		},
		{
			name:   "due date not rfc3339",
			actor:  teacher,
			mutate: func(r *dto.AssignmentCreateRequest) { r.DueDate = "next friday" },
			target: ErrValidation,
		},
		{
			name:   "markup in description",
			actor:  teacher,
			mutate: func(r *dto.AssignmentCreateRequest) { r.Description = `<script>alert("x")</script>` },
			target: ErrValidation,
		},
		{
			name:   "missing actor id",
			actor:  Actor{Role: RoleTeacher},
			mutate: func(*dto.AssignmentCreateRequest) {},
			target: ErrValidation,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			request := validAssignmentRequest()
			tc.mutate(&request)

			_, err := env.assignmentService().Create(context.Background(), tc.actor, request)
			require.ErrorIs(t, err, tc.target)

			var count int64
			require.NoError(t, env.db.Model(&models.Assignment{}).Count(&count).Error)
			require.Zero(t, count, "rejected requests must not write")
		})
	}
}

func TestAssignmentServiceKeepsPlainTextVerbatim(t *testing.T) {
	env := newTestEnv(t)
	svc := env.assignmentService()

	request := validAssignmentRequest()
	request.Title = "Rates & ratios: a < b"
	created, err := svc.Create(context.Background(), teacher, request)
	require.NoError(t, err)

	stored, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, "Rates & ratios: a < b", stored.Title)
}

func TestAssignmentServiceListFiltersAndOrders(t *testing.T) {
	env := newTestEnv(t)
	svc := env.assignmentService().(*assignmentService)

	clock := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	first, err := svc.Create(context.Background(), teacher, validAssignmentRequest())
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), teacher, validAssignmentRequest())
	require.NoError(t, err)

	other := validAssignmentRequest()
	other.ClassID = "chem-201"
	_, err = svc.Create(context.Background(), Actor{ID: "teacher-2", Role: RoleTeacher}, other)
	require.NoError(t, err)

	items, err := svc.List(context.Background(), dto.AssignmentListQuery{ClassID: "bio-101", TeacherID: teacher.ID})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, second.ID, items[0].ID)
	require.Equal(t, first.ID, items[1].ID)

	byTeacher, err := svc.List(context.Background(), dto.AssignmentListQuery{TeacherID: "teacher-2"})
	require.NoError(t, err)
	require.Len(t, byTeacher, 1)
	require.Equal(t, "chem-201", byTeacher[0].ClassID)

	all, err := svc.List(context.Background(), dto.AssignmentListQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
}

type unorderedAssignments struct {
	repository.AssignmentRepository
}

func (unorderedAssignments) ListOrdered(context.Context, repository.AssignmentFilter) ([]models.Assignment, error) {
	return nil, errors.New("index not ready")
}

func TestAssignmentServiceListFallsBackToInMemorySort(t *testing.T) {
	env := newTestEnv(t)
	now := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	for i, title := range []string{"oldest", "newest", "middle"} {
		offsets := []time.Duration{0, 2 * time.Hour, time.Hour}
		assignment := models.Assignment{
			Title:          title,
			ClassID:        "bio-101",
			Description:    "d",
			DueDate:        now.Add(72 * time.Hour),
			Questions:      []models.Question{{ID: "q1", Text: "t", MaxMarks: 1}},
			TotalQuestions: 1,
			TotalMarks:     1,
			CreatedBy:      teacher.ID,
			CreatedAt:      now.Add(offsets[i]),
		}
		require.NoError(t, env.db.Create(&assignment).Error)
	}

	svc := NewAssignmentService(unorderedAssignments{env.assignments}, NewValidator(), nil, time.Minute, env.hub, nil, zerolog.Nop())
	items, err := svc.List(context.Background(), dto.AssignmentListQuery{ClassID: "bio-101"})
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, "newest", items[0].Title)
	require.Equal(t, "middle", items[1].Title)
	require.Equal(t, "oldest", items[2].Title)
}

func TestAssignmentServiceGetUsesCache(t *testing.T) {
	env := newTestEnv(t)
	store := cache.NewMemoryCache(16, time.Minute)
	svc := NewAssignmentService(env.assignments, NewValidator(), store, time.Minute, env.hub, nil, zerolog.Nop())

	created, err := svc.Create(context.Background(), teacher, validAssignmentRequest())
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	require.NoError(t, env.db.Exec("DELETE FROM assignments").Error)

	cached, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, cached.ID)

	_, err = svc.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}

type failingAssignments struct {
	repository.AssignmentRepository
}

func (failingAssignments) Create(context.Context, *models.Assignment) error {
	return errors.New("connection refused")
}

func TestAssignmentServiceCreateWrapsStoreFailures(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAssignmentService(failingAssignments{env.assignments}, NewValidator(), nil, time.Minute, env.hub, nil, zerolog.Nop())

	_, err := svc.Create(context.Background(), teacher, validAssignmentRequest())
	require.ErrorIs(t, err, ErrBackendUnavailable)
	require.NotErrorIs(t, err, ErrValidation)
}

func TestAssignmentServiceWatchDeliversSnapshots(t *testing.T) {
	env := newTestEnv(t)
	svc := env.assignmentService()

	sub := svc.Watch(context.Background(), dto.AssignmentListQuery{ClassID: "bio-101"})
	defer sub.Cancel()

	select {
	case snapshot := <-sub.Updates():
		require.Empty(t, snapshot)
	case <-time.After(2 * time.Second):
		t.Fatal("expected initial snapshot")
	}

	created, err := svc.Create(context.Background(), teacher, validAssignmentRequest())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		select {
		case snapshot := <-sub.Updates():
			return len(snapshot) == 1 && snapshot[0].ID == created.ID
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	sub.Cancel()
	sub.Cancel()
}
