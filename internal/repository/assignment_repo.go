package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/acadex-api/internal/models"
)

// AssignmentFilter narrows assignment queries. Empty fields are ignored.
type AssignmentFilter struct {
	ClassID   string
	CreatedBy string
}

// AssignmentRepository defines persistence operations for assignments.
type AssignmentRepository interface {
	// ListOrdered returns matching assignments, most recently created first.
	ListOrdered(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, error)
	// List returns matching assignments in store order.
	List(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, error)
	GetByID(ctx context.Context, id string) (models.Assignment, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates a GORM-backed repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) filtered(ctx context.Context, filter AssignmentFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Assignment{})

	if classID := strings.TrimSpace(filter.ClassID); classID != "" {
		query = query.Where("class_id = ?", classID)
	}

	if createdBy := strings.TrimSpace(filter.CreatedBy); createdBy != "" {
		query = query.Where("created_by = ?", createdBy)
	}

	return query
}

func (r *assignmentRepository) ListOrdered(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, error) {
	var assignments []models.Assignment
	if err := r.filtered(ctx, filter).Order("created_at DESC").Order("id DESC").Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *assignmentRepository) List(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, error) {
	var assignments []models.Assignment
	if err := r.filtered(ctx, filter).Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *assignmentRepository) GetByID(ctx context.Context, id string) (models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&assignment).Error; err != nil {
		return models.Assignment{}, err
	}

	return assignment, nil
}

func (r *assignmentRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Assignment, error) {
	if len(ids) == 0 {
		return []models.Assignment{}, nil
	}

	var assignments []models.Assignment
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}
