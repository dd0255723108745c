package dto

import (
	"time"

	"github.com/jinzhu/copier"

	"github.com/noah-isme/acadex-api/internal/models"
)

// SubmissionFileInput describes one stored file referenced by a submission.
type SubmissionFileInput struct {
	URL  string `json:"url" validate:"required"`
	Name string `json:"name" validate:"required"`
	Size *int64 `json:"size" validate:"required,gte=0"`
}

// SubmissionCreateRequest describes the payload for handing in files.
type SubmissionCreateRequest struct {
	AssignmentID string                `json:"assignmentId"`
	StudentID    string                `json:"studentId"`
	Files        []SubmissionFileInput `json:"files"`
	UserID       string                `json:"userId"`
	UserRole     string                `json:"userRole"`
}

// SubmissionListQuery narrows submission listings.
type SubmissionListQuery struct {
	AssignmentID string `query:"assignmentId"`
	StudentID    string `query:"studentId"`
}

// SubmissionFileResponse is a serialized submission file.
type SubmissionFileResponse struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// SubmissionResponse represents a submission returned to API clients.
type SubmissionResponse struct {
	ID           string                   `json:"id"`
	AssignmentID string                   `json:"assignmentId"`
	StudentID    string                   `json:"studentId"`
	Files        []SubmissionFileResponse `json:"files"`
	SubmittedAt  time.Time                `json:"submittedAt"`
	Status       string                   `json:"status"`
	Late         bool                     `json:"late"`
	CreatedAt    time.Time                `json:"createdAt"`
	UpdatedAt    time.Time                `json:"updatedAt"`
}

// FileSubmissionResponse is returned after a multi-file upload created a submission.
type FileSubmissionResponse struct {
	ID    string           `json:"id"`
	Files []UploadResponse `json:"files"`
}

// NewSubmissionResponse converts a model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	var response SubmissionResponse
	_ = copier.Copy(&response, &model)

	response.Status = string(model.Status)
	response.Files = make([]SubmissionFileResponse, 0, len(model.Files))
	_ = copier.Copy(&response.Files, []models.SubmissionFile(model.Files))

	return response
}
