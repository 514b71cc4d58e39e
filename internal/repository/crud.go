package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"letterdesk/internal/model"
)

// CRUDRepository covers the plain directory tables keyed by a numeric id.
type CRUDRepository[T any] interface {
	Create(ctx context.Context, record *T) error
	Update(ctx context.Context, record *T) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*T, error)
	List(ctx context.Context) ([]T, error)
}

type crudRepository[T any] struct {
	db       *gorm.DB
	preloads []string
	order    string
}

// NewOfficeRepository builds the office repository.
func NewOfficeRepository(db *gorm.DB) CRUDRepository[model.Office] {
	return &crudRepository[model.Office]{db: db, order: "name"}
}

// NewDepartmentRepository builds the department repository.
func NewDepartmentRepository(db *gorm.DB) CRUDRepository[model.Department] {
	return &crudRepository[model.Department]{db: db, order: "name", preloads: []string{"Office"}}
}

// NewStaffRepository builds the staff directory repository.
func NewStaffRepository(db *gorm.DB) CRUDRepository[model.Staff] {
	return &crudRepository[model.Staff]{db: db, order: "name", preloads: []string{"Office", "Department"}}
}

// NewLetterTypeRepository builds the letter type repository.
func NewLetterTypeRepository(db *gorm.DB) CRUDRepository[model.LetterType] {
	return &crudRepository[model.LetterType]{db: db, order: "name"}
}

func (r *crudRepository[T]) query(ctx context.Context) *gorm.DB {
	q := r.db.WithContext(ctx)
	for _, p := range r.preloads {
		q = q.Preload(p)
	}
	return q
}

func (r *crudRepository[T]) Create(ctx context.Context, record *T) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// Update saves every column of record. Associations are not touched.
func (r *crudRepository[T]) Update(ctx context.Context, record *T) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(record).Error
}

func (r *crudRepository[T]) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(new(T), id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *crudRepository[T]) FindByID(ctx context.Context, id uint) (*T, error) {
	var record T
	if err := r.query(ctx).First(&record, id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *crudRepository[T]) List(ctx context.Context) ([]T, error) {
	var records []T
	if err := r.query(ctx).Order(r.order).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
