package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"letterdesk/internal/model"
)

// TemplateRepository defines letter template persistence operations.
type TemplateRepository interface {
	CRUDRepository[model.LetterTemplate]
	ListByType(ctx context.Context, letterTypeID uint, activeOnly bool) ([]model.LetterTemplate, error)
}

type templateRepository struct {
	*crudRepository[model.LetterTemplate]
}

// NewTemplateRepository creates a new template repository.
func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{
		crudRepository: &crudRepository[model.LetterTemplate]{db: db, order: "name", preloads: []string{"LetterType"}},
	}
}

// ListByType lists templates of one letter type.
func (r *templateRepository) ListByType(ctx context.Context, letterTypeID uint, activeOnly bool) ([]model.LetterTemplate, error) {
	q := r.query(ctx).Where("letter_type_id = ?", letterTypeID)
	if activeOnly {
		q = q.Where("active = ?", true)
	}

	var templates []model.LetterTemplate
	if err := q.Order("name").Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

// LetterFilter narrows letter listings. Zero values mean no filtering.
type LetterFilter struct {
	CreatedBy    uint
	Status       model.LetterStatus
	LetterTypeID uint
}

// LetterRepository defines letter persistence operations.
type LetterRepository interface {
	Create(ctx context.Context, letter *model.Letter) error
	Update(ctx context.Context, letter *model.Letter) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Letter, error)
	List(ctx context.Context, filter LetterFilter) ([]model.Letter, error)
}

type letterRepository struct {
	db *gorm.DB
}

// NewLetterRepository creates a new letter repository.
func NewLetterRepository(db *gorm.DB) LetterRepository {
	return &letterRepository{db: db}
}

// Create creates a new letter.
func (r *letterRepository) Create(ctx context.Context, letter *model.Letter) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(letter).Error
}

// Update updates an existing letter.
func (r *letterRepository) Update(ctx context.Context, letter *model.Letter) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(letter).Error
}

// Delete soft-deletes a letter.
func (r *letterRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Letter{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindByID finds a letter by ID.
func (r *letterRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Letter, error) {
	var letter model.Letter
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&letter).Error; err != nil {
		return nil, err
	}
	return &letter, nil
}

// List returns letters newest first.
func (r *letterRepository) List(ctx context.Context, filter LetterFilter) ([]model.Letter, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if filter.CreatedBy != 0 {
		q = q.Where("created_by = ?", filter.CreatedBy)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.LetterTypeID != 0 {
		q = q.Where("letter_type_id = ?", filter.LetterTypeID)
	}

	var letters []model.Letter
	if err := q.Find(&letters).Error; err != nil {
		return nil, err
	}
	return letters, nil
}

// ActivityRepository defines letter activity persistence operations.
type ActivityRepository interface {
	Create(ctx context.Context, activity *model.LetterActivity) error
	CreateBatch(ctx context.Context, activities []model.LetterActivity) error
	ListByLetter(ctx context.Context, letterID uuid.UUID) ([]model.LetterActivity, error)
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository creates a new activity repository.
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

// Create creates a new activity entry.
func (r *activityRepository) Create(ctx context.Context, activity *model.LetterActivity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

// CreateBatch creates multiple activity entries in a single statement per 100 rows.
func (r *activityRepository) CreateBatch(ctx context.Context, activities []model.LetterActivity) error {
	if len(activities) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(activities, 100).Error
}

// ListByLetter returns a letter's history oldest first.
func (r *activityRepository) ListByLetter(ctx context.Context, letterID uuid.UUID) ([]model.LetterActivity, error) {
	var activities []model.LetterActivity
	if err := r.db.WithContext(ctx).Where("letter_id = ?", letterID).Order("created_at").Find(&activities).Error; err != nil {
		return nil, err
	}
	return activities, nil
}
