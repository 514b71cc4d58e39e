package service

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"letterdesk/internal/auth"
	"letterdesk/internal/authz"
	apperrors "letterdesk/internal/errors"
	"letterdesk/internal/model"
	"letterdesk/internal/repository"
)

// DirectoryService manages one of the reference tables (offices,
// departments, staff, letter types). Reads need ViewDirectory; writes need
// the table's own manage action.
type DirectoryService[T any] interface {
	List(ctx context.Context, actor auth.Actor) ([]T, error)
	Get(ctx context.Context, actor auth.Actor, id uint) (*T, error)
	Create(ctx context.Context, actor auth.Actor, record *T) (*T, error)
	Update(ctx context.Context, actor auth.Actor, id uint, record *T) (*T, error)
	Delete(ctx context.Context, actor auth.Actor, id uint) error
}

type directoryService[T any] struct {
	repo   repository.CRUDRepository[T]
	name   string
	manage authz.Action
	// setID assigns the primary key before a write.
	setID func(record *T, id uint)
	// check validates record before it is stored.
	check func(ctx context.Context, record *T) error
}

func (s *directoryService[T]) List(ctx context.Context, actor auth.Actor) ([]T, error) {
	if !actor.Can(authz.ViewDirectory) {
		return nil, apperrors.ErrForbidden
	}
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, storeError(s.name, err)
	}
	return records, nil
}

func (s *directoryService[T]) Get(ctx context.Context, actor auth.Actor, id uint) (*T, error) {
	if !actor.Can(authz.ViewDirectory) {
		return nil, apperrors.ErrForbidden
	}
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(s.name, err)
	}
	return record, nil
}

func (s *directoryService[T]) Create(ctx context.Context, actor auth.Actor, record *T) (*T, error) {
	if !actor.Can(s.manage) {
		return nil, apperrors.ErrForbidden
	}
	s.setID(record, 0)
	if err := s.check(ctx, record); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, storeError(s.name, err)
	}
	return record, nil
}

func (s *directoryService[T]) Update(ctx context.Context, actor auth.Actor, id uint, record *T) (*T, error) {
	if !actor.Can(s.manage) {
		return nil, apperrors.ErrForbidden
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(s.name, err)
	}
	s.setID(record, id)
	if err := s.check(ctx, record); err != nil {
		return nil, err
	}
	copyCreatedAt(existing, record)
	if err := s.repo.Update(ctx, record); err != nil {
		return nil, storeError(s.name, err)
	}
	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(s.name, err)
	}
	return updated, nil
}

func (s *directoryService[T]) Delete(ctx context.Context, actor auth.Actor, id uint) error {
	if !actor.Can(s.manage) {
		return apperrors.ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError(s.name, err)
	}
	return nil
}

// copyCreatedAt keeps the stored creation time across a full-row save.
func copyCreatedAt[T any](from, to *T) {
	switch f := any(from).(type) {
	case *model.Office:
		any(to).(*model.Office).CreatedAt = f.CreatedAt
	case *model.Department:
		any(to).(*model.Department).CreatedAt = f.CreatedAt
	case *model.Staff:
		any(to).(*model.Staff).CreatedAt = f.CreatedAt
	case *model.LetterType:
		any(to).(*model.LetterType).CreatedAt = f.CreatedAt
	}
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalidInput("%s is required", field)
	}
	return nil
}

// NewOfficeService manages offices.
func NewOfficeService(repo repository.CRUDRepository[model.Office]) DirectoryService[model.Office] {
	return &directoryService[model.Office]{
		repo:   repo,
		name:   "office",
		manage: authz.ManageOffices,
		setID:  func(o *model.Office, id uint) { o.ID = id },
		check: func(_ context.Context, o *model.Office) error {
			o.Name, o.Code = strings.TrimSpace(o.Name), strings.TrimSpace(o.Code)
			if err := required("name", o.Name); err != nil {
				return err
			}
			return required("code", o.Code)
		},
	}
}

// NewDepartmentService manages departments. A referenced office must exist.
func NewDepartmentService(repo repository.CRUDRepository[model.Department], offices repository.CRUDRepository[model.Office]) DirectoryService[model.Department] {
	return &directoryService[model.Department]{
		repo:   repo,
		name:   "department",
		manage: authz.ManageDepartments,
		setID:  func(d *model.Department, id uint) { d.ID = id },
		check: func(ctx context.Context, d *model.Department) error {
			d.Name, d.Code = strings.TrimSpace(d.Name), strings.TrimSpace(d.Code)
			d.Office = nil
			if err := required("name", d.Name); err != nil {
				return err
			}
			if err := required("code", d.Code); err != nil {
				return err
			}
			return referenceExists(ctx, offices, "office", d.OfficeID)
		},
	}
}

// NewStaffService manages the staff directory.
func NewStaffService(
	repo repository.CRUDRepository[model.Staff],
	offices repository.CRUDRepository[model.Office],
	departments repository.CRUDRepository[model.Department],
) DirectoryService[model.Staff] {
	return &directoryService[model.Staff]{
		repo:   repo,
		name:   "staff",
		manage: authz.ManageStaff,
		setID:  func(st *model.Staff, id uint) { st.ID = id },
		check: func(ctx context.Context, st *model.Staff) error {
			st.Name = strings.TrimSpace(st.Name)
			st.Office, st.Department = nil, nil
			if err := required("name", st.Name); err != nil {
				return err
			}
			if err := referenceExists(ctx, offices, "office", st.OfficeID); err != nil {
				return err
			}
			return referenceExists(ctx, departments, "department", st.DepartmentID)
		},
	}
}

// NewLetterTypeService manages letter types.
func NewLetterTypeService(repo repository.CRUDRepository[model.LetterType]) DirectoryService[model.LetterType] {
	return &directoryService[model.LetterType]{
		repo:   repo,
		name:   "letter type",
		manage: authz.ManageLetterTypes,
		setID:  func(lt *model.LetterType, id uint) { lt.ID = id },
		check: func(_ context.Context, lt *model.LetterType) error {
			lt.Name, lt.Code = strings.TrimSpace(lt.Name), strings.TrimSpace(lt.Code)
			if err := required("name", lt.Name); err != nil {
				return err
			}
			return required("code", lt.Code)
		},
	}
}

func referenceExists[T any](ctx context.Context, repo repository.CRUDRepository[T], name string, id *uint) error {
	if id == nil {
		return nil
	}
	_, err := repo.FindByID(ctx, *id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return invalidInput("%s %d does not exist", name, *id)
	}
	return storeError(name, err)
}
