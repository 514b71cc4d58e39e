package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"letterdesk/internal/audit"
	"letterdesk/internal/auth"
	"letterdesk/internal/authz"
	"letterdesk/internal/cache"
	apperrors "letterdesk/internal/errors"
	"letterdesk/internal/model"
	"letterdesk/internal/repository"
)

const userCacheTTL = 5 * time.Minute

func userCacheKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

// CreateUserInput is the admin payload for a new account.
type CreateUserInput struct {
	Name       string
	Email      string
	Password   string
	Role       model.Role
	Position   string
	Department string
	Office     string
	Phone      string
}

// UpdateUserInput holds the fields to change. Nil fields are left alone.
type UpdateUserInput struct {
	Name       *string
	Email      *string
	Password   *string
	Role       *model.Role
	Position   *string
	Department *string
	Office     *string
	Phone      *string
}

// selfOnly reports whether the update touches only what users may change on
// their own account.
func (in UpdateUserInput) selfOnly() bool {
	return in.Email == nil && in.Role == nil && in.Department == nil && in.Office == nil
}

// UserService exposes user account operations.
type UserService interface {
	CreateUser(ctx context.Context, actor auth.Actor, in CreateUserInput) (*model.User, error)
	GetUser(ctx context.Context, actor auth.Actor, id uint) (*model.User, error)
	ListUsers(ctx context.Context, actor auth.Actor, filter repository.UserFilter) ([]model.User, error)
	UpdateUser(ctx context.Context, actor auth.Actor, id uint, in UpdateUserInput) (*model.User, error)
	DeleteUser(ctx context.Context, actor auth.Actor, id uint) error
	// EnsureAdmin creates an admin with the given credentials unless the email exists.
	EnsureAdmin(ctx context.Context, name, email, password string) (*model.User, bool, error)
}

type userService struct {
	repo       repository.UserRepository
	cache      *cache.Client
	audit      *audit.Logger
	bcryptCost int
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, cache *cache.Client, auditLog *audit.Logger, bcryptCost int) UserService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if auditLog == nil {
		auditLog = audit.Nop()
	}
	return &userService{repo: repo, cache: cache, audit: auditLog, bcryptCost: bcryptCost}
}

func (s *userService) CreateUser(ctx context.Context, actor auth.Actor, in CreateUserInput) (*model.User, error) {
	if !actor.Can(authz.ManageUsers) {
		return nil, apperrors.ErrForbidden
	}
	if !in.Role.Valid() {
		return nil, invalidInput("%v", model.ErrUnknownRole)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: string(hash),
		Role:         in.Role,
		Position:     in.Position,
		Department:   in.Department,
		Office:       in.Office,
		Phone:        in.Phone,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, storeError("user", err)
	}

	s.audit.UserCreated(actor.UserID, user.ID, user.Email, string(user.Role))
	return user, nil
}

func (s *userService) GetUser(ctx context.Context, actor auth.Actor, id uint) (*model.User, error) {
	if actor.UserID != id && !actor.Can(authz.ManageUsers) {
		return nil, apperrors.ErrForbidden
	}

	return loadUser(ctx, s.repo, s.cache, id)
}

// loadUser reads a user through the user:<id> cache entry. Writers evict that
// entry, so a hit never outlives an update or delete.
func loadUser(ctx context.Context, repo repository.UserRepository, c *cache.Client, id uint) (*model.User, error) {
	var cached model.User
	if c.GetJSON(ctx, userCacheKey(id), &cached) {
		return &cached, nil
	}

	user, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError("user", err)
	}

	c.SetJSON(ctx, userCacheKey(id), user, userCacheTTL)
	return user, nil
}

type userLookup struct {
	repo  repository.UserRepository
	cache *cache.Client
}

// NewUserLookup resolves token subjects for the actor middleware.
func NewUserLookup(repo repository.UserRepository, cache *cache.Client) auth.UserLookup {
	return &userLookup{repo: repo, cache: cache}
}

func (l *userLookup) FindByID(ctx context.Context, id uint) (*model.User, error) {
	return loadUser(ctx, l.repo, l.cache, id)
}

func (s *userService) ListUsers(ctx context.Context, actor auth.Actor, filter repository.UserFilter) ([]model.User, error) {
	if !actor.Can(authz.ManageUsers) {
		return nil, apperrors.ErrForbidden
	}
	users, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, storeError("users", err)
	}
	return users, nil
}

func (s *userService) UpdateUser(ctx context.Context, actor auth.Actor, id uint, in UpdateUserInput) (*model.User, error) {
	isAdmin := actor.Can(authz.ManageUsers)
	if !isAdmin && (actor.UserID != id || !in.selfOnly()) {
		return nil, apperrors.ErrForbidden
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError("user", err)
	}

	fields := map[string]interface{}{}
	setString := func(col string, v *string) {
		if v != nil {
			fields[col] = strings.TrimSpace(*v)
		}
	}
	setString("name", in.Name)
	setString("email", in.Email)
	setString("position", in.Position)
	setString("department", in.Department)
	setString("office", in.Office)
	setString("phone", in.Phone)

	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, invalidInput("%v", model.ErrUnknownRole)
		}
		fields["role"] = *in.Role
	}
	if in.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		fields["password_hash"] = string(hash)
	}

	if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
		return nil, storeError("user", err)
	}
	_ = s.cache.Delete(ctx, userCacheKey(id))

	if in.Role != nil && *in.Role != current.Role {
		s.audit.RoleChanged(actor.UserID, id, string(current.Role), string(*in.Role))
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError("user", err)
	}
	return updated, nil
}

func (s *userService) DeleteUser(ctx context.Context, actor auth.Actor, id uint) error {
	if !actor.Can(authz.ManageUsers) {
		return apperrors.ErrForbidden
	}
	if actor.UserID == id {
		return apperrors.ErrCannotDeleteSelf
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError("user", err)
	}
	_ = s.cache.Delete(ctx, userCacheKey(id))
	s.audit.UserDeleted(actor.UserID, id)
	return nil
}

func (s *userService) EnsureAdmin(ctx context.Context, name, email, password string) (*model.User, bool, error) {
	existing, err := s.repo.FindByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, storeError("user", err)
	}

	user, err := s.CreateUser(ctx, auth.System, CreateUserInput{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     model.RoleAdmin,
	})
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}
