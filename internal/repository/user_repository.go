package repository

import (
	"context"

	"gorm.io/gorm"

	"letterdesk/internal/model"
)

// UserRepository defines persistence operations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	// UpdateFields writes only the given columns of user id.
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, filter UserFilter) ([]model.User, error)
	Count(ctx context.Context) (int64, error)
	// WithTransaction executes fn within a database transaction.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo UserRepository) error) error
}

// UserFilter narrows List results. Zero values mean no filtering.
type UserFilter struct {
	Role   model.Role
	Search string
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// MySQL reports 0 affected rows for unchanged values, so check existence.
		var n int64
		if err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return gorm.ErrRecordNotFound
		}
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.User{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail matches the email exactly. The column uses a binary collation so
// the comparison is case-sensitive.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]model.User, error) {
	q := r.db.WithContext(ctx).Order("id")
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("name LIKE ? OR email LIKE ?", like, like)
	}

	var users []model.User
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Count(&n).Error
	return n, err
}

func (r *userRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo UserRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &userRepository{db: tx})
	})
}
