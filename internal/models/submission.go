package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/acadex-api/internal/schema"
)

// SubmissionStatus is the lifecycle state of a submission.
type SubmissionStatus string

const (
	// SubmissionStatusDraft is reserved for partially saved submissions.
	SubmissionStatusDraft SubmissionStatus = "draft"
	// SubmissionStatusSubmitted indicates the submission has been handed in but not graded.
	SubmissionStatusSubmitted SubmissionStatus = "submitted"
	// SubmissionStatusGraded indicates a grade has been recorded for the submission.
	SubmissionStatusGraded SubmissionStatus = "graded"
)

func (s SubmissionStatus) rank() int {
	switch s {
	case SubmissionStatusDraft:
		return 0
	case SubmissionStatusSubmitted:
		return 1
	case SubmissionStatusGraded:
		return 2
	default:
		return -1
	}
}

// Valid reports whether the status is one of the known lifecycle states.
func (s SubmissionStatus) Valid() bool {
	return s.rank() >= 0
}

// CanTransitionTo reports whether moving from s to next is a single forward step.
func (s SubmissionStatus) CanTransitionTo(next SubmissionStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	return next.rank() == s.rank()+1
}

// SubmissionFile describes one uploaded file attached to a submission.
type SubmissionFile struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Submission represents the files a student handed in for an assignment.
type Submission struct {
	ID           string                              `gorm:"primaryKey;size:36" json:"id"`
	AssignmentID string                              `gorm:"size:36;not null;index:idx_submission_owner" json:"assignmentId"`
	StudentID    string                              `gorm:"size:128;not null;index:idx_submission_owner;index" json:"studentId"`
	Files        datatypes.JSONSlice[SubmissionFile] `gorm:"not null" json:"files"`
	SubmittedAt  time.Time                           `gorm:"not null;index" json:"submittedAt"`
	Status       SubmissionStatus                    `gorm:"size:16;not null" json:"status"`
	CreatedAt    time.Time                           `json:"createdAt"`
	UpdatedAt    time.Time                           `json:"updatedAt"`
}

// BeforeSave assigns the opaque identifier and rejects records that do not match the stored shape.
func (s *Submission) BeforeSave(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return schema.Validate(schema.KindSubmission, s)
}

// AfterFind rejects rows whose stored shape is not a valid submission.
func (s *Submission) AfterFind(*gorm.DB) error {
	return schema.Validate(schema.KindSubmission, s)
}

// IsGraded reports whether the submission has a recorded grade.
func (s Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded
}

// IsLate reports whether the submission was handed in after the due date.
func (s Submission) IsLate(dueDate time.Time) bool {
	return !dueDate.IsZero() && s.SubmittedAt.After(dueDate)
}
