package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/acadex-api/internal/schema"
)

// Question is a single gradable item of an assignment.
type Question struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	MaxMarks float64 `json:"maxMarks"`
}

// Assignment represents a teacher-defined piece of work made of questions.
type Assignment struct {
	ID             string                        `gorm:"primaryKey;size:36" json:"id"`
	Title          string                        `gorm:"size:255;not null" json:"title"`
	ClassID        string                        `gorm:"size:128;not null;index" json:"classId"`
	Description    string                        `gorm:"type:text;not null" json:"description"`
	DueDate        time.Time                     `gorm:"not null" json:"dueDate"`
	Questions      datatypes.JSONSlice[Question] `gorm:"not null" json:"questions"`
	TotalQuestions int                           `gorm:"not null" json:"totalQuestions"`
	TotalMarks     float64                       `gorm:"not null" json:"totalMarks"`
	CreatedBy      string                        `gorm:"size:128;not null;index" json:"createdBy"`
	CreatedAt      time.Time                     `gorm:"index" json:"createdAt"`
	UpdatedAt      time.Time                     `json:"updatedAt"`
}

// BeforeSave assigns the opaque identifier and rejects records that do not match the stored shape.
func (a *Assignment) BeforeSave(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return schema.Validate(schema.KindAssignment, a)
}

// AfterFind rejects rows whose stored shape is not a valid assignment.
func (a *Assignment) AfterFind(*gorm.DB) error {
	return schema.Validate(schema.KindAssignment, a)
}

// FindQuestion returns the question with the given id.
func (a Assignment) FindQuestion(id string) (Question, bool) {
	for _, question := range a.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}

// SumMaxMarks returns the total marks available across all questions.
func SumMaxMarks(questions []Question) float64 {
	var total float64
	for _, question := range questions {
		total += question.MaxMarks
	}
	return total
}
