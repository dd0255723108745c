package dto

import (
	"time"

	"github.com/jinzhu/copier"

	"github.com/noah-isme/acadex-api/internal/models"
)

// QuestionInput is one question of an assignment create request.
type QuestionInput struct {
	ID       string   `json:"id" validate:"required"`
	Text     string   `json:"text" validate:"required"`
	MaxMarks *float64 `json:"maxMarks" validate:"required,gt=0"`
}

// AssignmentCreateRequest describes the payload for creating a new assignment.
type AssignmentCreateRequest struct {
	Title       string          `json:"title"`
	ClassID     string          `json:"classId"`
	Description string          `json:"description"`
	DueDate     string          `json:"dueDate"`
	Questions   []QuestionInput `json:"questions"`
	UserID      string          `json:"userId"`
	UserRole    string          `json:"userRole"`
}

// AssignmentListQuery narrows assignment listings.
type AssignmentListQuery struct {
	ClassID   string `query:"classId"`
	TeacherID string `query:"teacherId"`
}

// QuestionResponse is a serialized assignment question.
type QuestionResponse struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	MaxMarks float64 `json:"maxMarks"`
}

// AssignmentResponse is the serialized representation returned to API clients.
type AssignmentResponse struct {
	ID             string             `json:"id"`
	Title          string             `json:"title"`
	ClassID        string             `json:"classId"`
	Description    string             `json:"description"`
	DueDate        time.Time          `json:"dueDate"`
	Questions      []QuestionResponse `json:"questions"`
	TotalQuestions int                `json:"totalQuestions"`
	TotalMarks     float64            `json:"totalMarks"`
	CreatedBy      string             `json:"createdBy"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

// CreatedResponse is returned by create operations.
type CreatedResponse struct {
	ID string `json:"id"`
}

// NewAssignmentResponse converts a model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	var response AssignmentResponse
	_ = copier.Copy(&response, &model)

	response.Questions = make([]QuestionResponse, 0, len(model.Questions))
	_ = copier.Copy(&response.Questions, []models.Question(model.Questions))

	return response
}

// NewAssignmentResponseSlice converts a slice of models into DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment))
	}

	return responses
}
