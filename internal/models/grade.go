package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/acadex-api/internal/schema"
)

// QuestionMark is the score awarded for one question.
type QuestionMark struct {
	QuestionID string  `json:"questionId"`
	Mark       float64 `json:"mark"`
}

// Grade records a teacher's evaluation of a single submission.
type Grade struct {
	ID           string                            `gorm:"primaryKey;size:36" json:"id"`
	SubmissionID string                            `gorm:"size:36;not null;uniqueIndex" json:"submissionId"`
	AssignmentID string                            `gorm:"size:36;not null;index" json:"assignmentId"`
	StudentID    string                            `gorm:"size:128;not null;index" json:"studentId"`
	TeacherID    string                            `gorm:"size:128;not null;index" json:"teacherId"`
	Marks        datatypes.JSONSlice[QuestionMark] `gorm:"not null" json:"marks"`
	Total        float64                           `gorm:"not null" json:"total"`
	Feedback     string                            `gorm:"type:text" json:"feedback"`
	GradedAt     time.Time                         `gorm:"not null;index" json:"gradedAt"`
	CreatedAt    time.Time                         `json:"createdAt"`
}

// BeforeSave assigns the opaque identifier and rejects records that do not match the stored shape.
func (g *Grade) BeforeSave(*gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return schema.Validate(schema.KindGrade, g)
}

// AfterFind rejects rows whose stored shape is not a valid grade.
func (g *Grade) AfterFind(*gorm.DB) error {
	return schema.Validate(schema.KindGrade, g)
}

// SumMarks returns the total of the awarded marks.
func SumMarks(marks []QuestionMark) float64 {
	var total float64
	for _, mark := range marks {
		total += mark.Mark
	}
	return total
}
