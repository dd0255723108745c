package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/acadex-api/internal/models"
)

// ErrStatusConflict indicates the submission was not in a state that allows grading.
var ErrStatusConflict = errors.New("submission status does not allow grading")

// GradeFilter narrows grade queries. Empty fields are ignored.
type GradeFilter struct {
	SubmissionID  string
	StudentID     string
	SubmissionIDs []string
	AssignmentIDs []string
}

// GradeRepository defines data operations for grades.
type GradeRepository interface {
	// ListOrdered returns matching grades, most recently graded first.
	ListOrdered(ctx context.Context, filter GradeFilter) ([]models.Grade, error)
	// List returns matching grades in store order.
	List(ctx context.Context, filter GradeFilter) ([]models.Grade, error)
	// Record inserts the grade and moves its submission to graded in one transaction.
	Record(ctx context.Context, grade *models.Grade) error
}

type gradeRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGradeRepository instantiates the repository.
func NewGradeRepository(db *gorm.DB) GradeRepository {
	return &gradeRepository{db: db, now: time.Now}
}

func (r *gradeRepository) filtered(ctx context.Context, filter GradeFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Grade{})

	if submissionID := strings.TrimSpace(filter.SubmissionID); submissionID != "" {
		query = query.Where("submission_id = ?", submissionID)
	}

	if studentID := strings.TrimSpace(filter.StudentID); studentID != "" {
		query = query.Where("student_id = ?", studentID)
	}

	if filter.SubmissionIDs != nil {
		query = query.Where("submission_id IN ?", nonEmpty(filter.SubmissionIDs))
	}

	if filter.AssignmentIDs != nil {
		query = query.Where("assignment_id IN ?", nonEmpty(filter.AssignmentIDs))
	}

	return query
}

func (r *gradeRepository) ListOrdered(ctx context.Context, filter GradeFilter) ([]models.Grade, error) {
	var grades []models.Grade
	if err := r.filtered(ctx, filter).Order("graded_at DESC").Order("id DESC").Find(&grades).Error; err != nil {
		return nil, err
	}

	return grades, nil
}

func (r *gradeRepository) List(ctx context.Context, filter GradeFilter) ([]models.Grade, error) {
	var grades []models.Grade
	if err := r.filtered(ctx, filter).Find(&grades).Error; err != nil {
		return nil, err
	}

	return grades, nil
}

func (r *gradeRepository) Record(ctx context.Context, grade *models.Grade) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Submission{}).
			Where("id = ?", grade.SubmissionID).
			Where("status = ?", models.SubmissionStatusSubmitted).
			UpdateColumns(map[string]interface{}{
				"status":     models.SubmissionStatusGraded,
				"updated_at": r.now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStatusConflict
		}

		return tx.Create(grade).Error
	})
}
