package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/acadex-api/internal/dto"
	"github.com/noah-isme/acadex-api/internal/models"
	"github.com/noah-isme/acadex-api/internal/realtime"
	"github.com/noah-isme/acadex-api/internal/repository"
)

var (
	teacher = Actor{ID: "teacher-1", Role: RoleTeacher}
	student = Actor{ID: "student-1", Role: RoleStudent}
)

type testEnv struct {
	db          *gorm.DB
	hub         *realtime.Hub
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	grades      repository.GradeRepository
	blobs       *memoryBlobStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Assignment{}, &models.Submission{}, &models.Grade{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return &testEnv{
		db:          db,
		hub:         realtime.NewHub(nil, nil, "", zerolog.Nop()),
		assignments: repository.NewAssignmentRepository(db),
		submissions: repository.NewSubmissionRepository(db),
		grades:      repository.NewGradeRepository(db),
		blobs:       newMemoryBlobStore(),
	}
}

func (e *testEnv) assignmentService() AssignmentService {
	return NewAssignmentService(e.assignments, NewValidator(), nil, time.Minute, e.hub, nil, zerolog.Nop())
}

func (e *testEnv) uploadService() UploadService {
	return NewUploadService(e.blobs, "acadex", zerolog.Nop())
}

func (e *testEnv) submissionService() SubmissionService {
	return NewSubmissionService(e.submissions, e.assignments, e.grades, e.uploadService(), NewValidator(), e.hub, nil, zerolog.Nop())
}

func (e *testEnv) gradingService() GradingService {
	return NewGradingService(e.grades, e.submissions, e.assignments, NewValidator(), e.hub, nil, zerolog.Nop())
}

func floatPtr(value float64) *float64 {
	return &value
}

func int64Ptr(value int64) *int64 {
	return &value
}

func validAssignmentRequest() dto.AssignmentCreateRequest {
	return dto.AssignmentCreateRequest{
		Title:       "Photosynthesis",
		ClassID:     "bio-101",
		Description: "Explain the light reactions",
		DueDate:     time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		Questions: []dto.QuestionInput{
			{ID: "q1", Text: "Define photosynthesis", MaxMarks: floatPtr(5)},
			{ID: "q2", Text: "Describe the Calvin cycle", MaxMarks: floatPtr(10)},
		},
	}
}

func (e *testEnv) createAssignment(t *testing.T) string {
	t.Helper()
	created, err := e.assignmentService().Create(context.Background(), teacher, validAssignmentRequest())
	require.NoError(t, err)
	return created.ID
}

func (e *testEnv) createSubmission(t *testing.T, assignmentID string, actor Actor) string {
	t.Helper()
	created, err := e.submissionService().Create(context.Background(), actor, dto.SubmissionCreateRequest{
		AssignmentID: assignmentID,
		StudentID:    actor.ID,
		Files:        []dto.SubmissionFileInput{{URL: "https://files.example.com/answer.pdf", Name: "answer.pdf", Size: int64Ptr(2048)}},
	})
	require.NoError(t, err)
	return created.ID
}

type memoryBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newMemoryBlobStore() *memoryBlobStore {
	return &memoryBlobStore{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (m *memoryBlobStore) Upload(_ context.Context, path string, reader io.Reader, contentType string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	payload, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = payload
	m.types[path] = contentType
	return "https://blobs.example.com/" + path, nil
}

func (m *memoryBlobStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

func pdfBytes(size int) []byte {
	header := []byte("%PDF-1.7\n")
	if size < len(header) {
		size = len(header)
	}
	payload := bytes.Repeat([]byte("0"), size)
	copy(payload, header)
	return payload
}

func newFileHeader(t *testing.T, name, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, name))
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	require.Len(t, form.File["file"], 1)
	return form.File["file"][0]
}
