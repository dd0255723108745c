package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/acadex-api/internal/cache"
	"github.com/noah-isme/acadex-api/internal/config"
	"github.com/noah-isme/acadex-api/internal/handler"
	"github.com/noah-isme/acadex-api/internal/middleware"
	"github.com/noah-isme/acadex-api/internal/models"
	"github.com/noah-isme/acadex-api/internal/realtime"
	"github.com/noah-isme/acadex-api/internal/repository"
	"github.com/noah-isme/acadex-api/internal/router"
	"github.com/noah-isme/acadex-api/internal/service"
)

const testSecret = "test-secret"

type stubBlobStore struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (s *stubBlobStore) Upload(_ context.Context, path string, reader io.Reader, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = append(s.paths, path)
	return "https://blobs.example.com/" + path, nil
}

func (s *stubBlobStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paths)
}

type testApp struct {
	app   *fiber.App
	db    *gorm.DB
	blobs *stubBlobStore
}

func setupApp(t *testing.T, authEnabled bool, overrides ...func(*config.Config)) *testApp {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Assignment{}, &models.Submission{}, &models.Grade{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	logger := zerolog.New(io.Discard)
	validate := service.NewValidator()
	hub := realtime.NewHub(nil, nil, "", logger)
	blobs := &stubBlobStore{}
	cacheStore := cache.NewMemoryCache(64, time.Minute)

	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	gradeRepo := repository.NewGradeRepository(db)

	dashboards := service.NewDashboardService(assignmentRepo, submissionRepo, gradeRepo, cacheStore, time.Minute, logger)
	assignments := service.NewAssignmentService(assignmentRepo, validate, cacheStore, time.Minute, hub, dashboards, logger)
	uploads := service.NewUploadService(blobs, "acadex", logger)
	submissions := service.NewSubmissionService(submissionRepo, assignmentRepo, gradeRepo, uploads, validate, hub, dashboards, logger)
	grades := service.NewGradingService(gradeRepo, submissionRepo, assignmentRepo, validate, hub, dashboards, logger)

	cfg := config.Config{AppName: "Acadex Test", AppEnv: "test", AuthEnabled: authEnabled, JWTSecret: testSecret, UploadRateLimit: 100}
	for _, override := range overrides {
		override(&cfg)
	}

	app := fiber.New(fiber.Config{BodyLimit: 64 * 1024 * 1024})
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AssignmentHandler: handler.NewAssignmentHandler(assignments, logger, time.Second),
		SubmissionHandler: handler.NewSubmissionHandler(submissions, logger, time.Second),
		GradeHandler:      handler.NewGradeHandler(grades, logger, time.Second),
		UploadHandler:     handler.NewUploadHandler(uploads, logger),
		DashboardHandler:  handler.NewDashboardHandler(dashboards, logger),
		WatchHandler:      handler.NewWatchHandler(assignments, submissions, grades, logger),
		JWTMiddleware:     middleware.JWTProtected(testSecret),
		NodeID:            hub.NodeID(),
	})

	return &testApp{app: app, db: db, blobs: blobs}
}

func signToken(t *testing.T, subject, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`

	raw []byte
}

func (a *testApp) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, body
}

func (a *testApp) doJSON(t *testing.T, method, target string, payload interface{}) (int, envelope, []byte) {
	t.Helper()
	return a.doJSONWithToken(t, method, target, payload, "")
}

func (a *testApp) doJSONWithToken(t *testing.T, method, target string, payload interface{}, token string) (int, envelope, []byte) {
	t.Helper()

	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if payload != nil {
		req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, body := a.do(t, req)
	return resp.StatusCode, decodeEnvelope(t, body), body
}

func decodeEnvelope(t *testing.T, body []byte) envelope {
	t.Helper()
	var decoded envelope
	require.NoError(t, json.Unmarshal(body, &decoded), string(body))
	decoded.raw = body
	return decoded
}

// decodeData reads the response fields that sit next to success and message.
func decodeData(t *testing.T, env envelope, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.raw, dest), string(env.raw))
}

func requireContract(t *testing.T, name string, body []byte) {
	t.Helper()

	schemaPath, err := filepath.Abs(filepath.Join("testdata", "contracts", name+".schema.json"))
	require.NoError(t, err)

	schema, err := jsonschema.NewCompiler().Compile("file://" + filepath.ToSlash(schemaPath))
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}

func assignmentPayload(userID, role string) map[string]interface{} {
	return map[string]interface{}{
		"title":       "Photosynthesis",
		"classId":     "bio-101",
		"description": "Explain the light reactions",
		"dueDate":     time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		"questions": []map[string]interface{}{
			{"id": "q1", "text": "Define photosynthesis", "maxMarks": 5},
			{"id": "q2", "text": "Describe the Calvin cycle", "maxMarks": 10},
		},
		"userId":   userID,
		"userRole": role,
	}
}

func (a *testApp) createAssignment(t *testing.T) string {
	t.Helper()
	status, env, body := a.doJSON(t, http.MethodPost, "/api/assignments", assignmentPayload("teacher-1", "teacher"))
	require.Equal(t, fiber.StatusCreated, status, string(body))
	requireContract(t, "created", body)

	var created struct {
		ID string `json:"id"`
	}
	decodeData(t, env, &created)
	require.NotEmpty(t, created.ID)
	return created.ID
}

func (a *testApp) createSubmission(t *testing.T, assignmentID, studentID string) string {
	t.Helper()
	status, env, body := a.doJSON(t, http.MethodPost, "/api/submissions", map[string]interface{}{
		"assignmentId": assignmentID,
		"studentId":    studentID,
		"files":        []map[string]interface{}{{"url": "https://files.example.com/answer.pdf", "name": "answer.pdf", "size": 2048}},
		"userId":       studentID,
		"userRole":     "student",
	})
	require.Equal(t, fiber.StatusCreated, status, string(body))

	var created struct {
		ID string `json:"id"`
	}
	decodeData(t, env, &created)
	require.NotEmpty(t, created.ID)
	return created.ID
}

type formFile struct {
	field       string
	name        string
	contentType string
	content     []byte
}

func multipartRequest(t *testing.T, target string, fields map[string]string, files ...formFile) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	for _, file := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, file.field, file.name))
		header.Set("Content-Type", file.contentType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(file.content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
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

var errBlobUnavailable = errors.New("blob store unavailable")
