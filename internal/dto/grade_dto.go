package dto

import (
	"time"

	"github.com/jinzhu/copier"

	"github.com/noah-isme/acadex-api/internal/models"
)

// QuestionMarkInput is the mark awarded for one question.
type QuestionMarkInput struct {
	QuestionID string   `json:"questionId" validate:"required"`
	Mark       *float64 `json:"mark" validate:"required,gte=0"`
}

// GradeCreateRequest describes the payload for grading a submission.
type GradeCreateRequest struct {
	SubmissionID string              `json:"submissionId"`
	TeacherID    string              `json:"teacherId"`
	Marks        []QuestionMarkInput `json:"marks"`
	Feedback     string              `json:"feedback"`
	UserID       string              `json:"userId"`
	UserRole     string              `json:"userRole"`
}

// GradeListQuery narrows grade listings.
type GradeListQuery struct {
	SubmissionID string `query:"submissionId"`
	StudentID    string `query:"studentId"`
}

// QuestionMarkResponse is a serialized per-question mark.
type QuestionMarkResponse struct {
	QuestionID string  `json:"questionId"`
	Mark       float64 `json:"mark"`
}

// GradeResponse represents a recorded grade.
type GradeResponse struct {
	ID           string                 `json:"id"`
	SubmissionID string                 `json:"submissionId"`
	AssignmentID string                 `json:"assignmentId"`
	StudentID    string                 `json:"studentId"`
	TeacherID    string                 `json:"teacherId"`
	Marks        []QuestionMarkResponse `json:"marks"`
	Total        float64                `json:"total"`
	Feedback     string                 `json:"feedback"`
	GradedAt     time.Time              `json:"gradedAt"`
	CreatedAt    time.Time              `json:"createdAt"`
}

// GradeCreatedResponse is returned after a grade was recorded.
type GradeCreatedResponse struct {
	ID    string  `json:"id"`
	Total float64 `json:"total"`
}

// NewGradeResponse converts a model into a DTO.
func NewGradeResponse(model models.Grade) GradeResponse {
	var response GradeResponse
	_ = copier.Copy(&response, &model)

	response.Marks = make([]QuestionMarkResponse, 0, len(model.Marks))
	_ = copier.Copy(&response.Marks, []models.QuestionMark(model.Marks))

	return response
}

// NewGradeResponseSlice converts a slice of models into DTOs.
func NewGradeResponseSlice(grades []models.Grade) []GradeResponse {
	responses := make([]GradeResponse, 0, len(grades))
	for _, grade := range grades {
		responses = append(responses, NewGradeResponse(grade))
	}
	return responses
}
