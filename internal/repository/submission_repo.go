package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/acadex-api/internal/models"
)

// SubmissionFilter allows narrowing submission queries. Empty fields are ignored.
type SubmissionFilter struct {
	AssignmentID  string
	StudentID     string
	AssignmentIDs []string
}

// SubmissionRepository defines data operations for submissions.
type SubmissionRepository interface {
	// ListOrdered returns matching submissions, most recently submitted first.
	ListOrdered(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	// List returns matching submissions in store order.
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	GetByID(ctx context.Context, id string) (models.Submission, error)
	Latest(ctx context.Context, assignmentID, studentID string) (models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) filtered(ctx context.Context, filter SubmissionFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Submission{})

	if assignmentID := strings.TrimSpace(filter.AssignmentID); assignmentID != "" {
		query = query.Where("assignment_id = ?", assignmentID)
	}

	if studentID := strings.TrimSpace(filter.StudentID); studentID != "" {
		query = query.Where("student_id = ?", studentID)
	}

	if filter.AssignmentIDs != nil {
		query = query.Where("assignment_id IN ?", nonEmpty(filter.AssignmentIDs))
	}

	return query
}

func (r *submissionRepository) ListOrdered(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.filtered(ctx, filter).Order("submitted_at DESC").Order("id DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.filtered(ctx, filter).Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id string) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) Latest(ctx context.Context, assignmentID, studentID string) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Where("student_id = ?", studentID).
		Order("submitted_at DESC").
		Order("id DESC").
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

// nonEmpty keeps IN clauses valid when the caller passes an empty slice.
func nonEmpty(ids []string) []string {
	if len(ids) == 0 {
		return []string{""}
	}
	return ids
}
