package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/acadex-api/internal/dto"
	"github.com/noah-isme/acadex-api/internal/observability"
)

const (
	// MaxUploadBytes is the largest accepted submission file.
	MaxUploadBytes int64 = 10 * 1024 * 1024
	pdfMediaType         = "application/pdf"
)

// BlobStore persists file bytes under a storage path and returns a download URL.
type BlobStore interface {
	Upload(ctx context.Context, path string, reader io.Reader, contentType string) (string, error)
}

// UploadService validates submission files and stores them in the blob store.
type UploadService interface {
	Upload(ctx context.Context, file *multipart.FileHeader, assignmentID, studentID string) (dto.UploadResponse, error)
}

type uploadService struct {
	storage   BlobStore
	namespace string
	maxSize   int64
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewUploadService constructs the upload gateway. Files land under namespace/submissions.
func NewUploadService(storage BlobStore, namespace string, logger zerolog.Logger) UploadService {
	namespace = strings.Trim(strings.TrimSpace(namespace), "/")
	if namespace == "" {
		namespace = "acadex"
	}

	return &uploadService{
		storage:   storage,
		namespace: namespace,
		maxSize:   MaxUploadBytes,
		logger:    logger.With().Str("component", "upload_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/acadex-api/internal/service/upload"),
		now:       time.Now,
	}
}

func (s *uploadService) Upload(ctx context.Context, file *multipart.FileHeader, assignmentID, studentID string) (dto.UploadResponse, error) {
	ctx, span := s.tracer.Start(ctx, "upload.store")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("upload.max_bytes", s.maxSize),
		attribute.String("upload.assignment_id", assignmentID),
		attribute.String("upload.student_id", studentID),
	)

	start := time.Now()
	defer func() {
		observability.UploadLatency().Observe(time.Since(start).Seconds())
	}()

	reject := func(reason string, err error) (dto.UploadResponse, error) {
		observability.UploadsRejected().WithLabelValues(reason).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		return dto.UploadResponse{}, err
	}

	if file == nil {
		return reject("missing", validationErrorf("file is required"))
	}
	if err := validateStorageID("assignmentId", assignmentID); err != nil {
		return reject("ids", err)
	}
	if err := validateStorageID("studentId", studentID); err != nil {
		return reject("ids", err)
	}

	name := baseFileName(file.Filename)
	span.SetAttributes(
		attribute.String("upload.original_name", name),
		attribute.Int64("upload.request_size", file.Size),
	)

	if declared := strings.TrimSpace(file.Header.Get("Content-Type")); declared != pdfMediaType {
		return reject("type", validationErrorf("unsupported type: only PDF files are allowed"))
	}

	if file.Size > s.maxSize {
		return reject("size", validationErrorf("too large: file must not exceed 10 MB"))
	}

	handle, err := file.Open()
	if err != nil {
		return reject("read", backendError("read upload", err))
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		return reject("read", backendError("read upload", err))
	}
	if int64(buf.Len()) > s.maxSize {
		return reject("size", validationErrorf("too large: file must not exceed 10 MB"))
	}

	detected := mimetype.Detect(buf.Bytes())
	span.SetAttributes(attribute.String("upload.detected_mime", detected.String()))
	if !detected.Is(pdfMediaType) {
		return reject("content", validationErrorf("unsupported type: file content is not a PDF"))
	}

	storagePath := fmt.Sprintf("%s/submissions/%s/%s/%d_%s", s.namespace, assignmentID, studentID, s.now().UnixMilli(), name)
	span.SetAttributes(attribute.String("upload.path", storagePath))

	url, err := s.storage.Upload(ctx, storagePath, bytes.NewReader(buf.Bytes()), pdfMediaType)
	if err != nil {
		return reject("storage", backendError("upload file", err))
	}

	observability.UploadsAccepted().Inc()
	span.SetStatus(codes.Ok, "stored")
	s.logger.Info().Str("path", storagePath).Int("bytes", buf.Len()).Msg("submission file stored")

	return dto.UploadResponse{
		URL:  url,
		Name: name,
		Size: int64(buf.Len()),
		Path: storagePath,
	}, nil
}

func validateStorageID(field, value string) error {
	if blank(value) {
		return validationErrorf("assignmentId and studentId are required")
	}
	if strings.ContainsAny(value, `/\`) || value == "." || value == ".." {
		return validationErrorf("%s must not contain path separators", field)
	}
	return nil
}

// baseFileName keeps the last element of a client supplied file name.
func baseFileName(name string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if base == "." || base == "/" || base == "" {
		return "submission.pdf"
	}
	return base
}
