package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	apperrors "letterdesk/internal/errors"
	"letterdesk/internal/model"
)

type memoryOffices struct {
	offices map[uint]model.Office
	nextID  uint
}

func newMemoryOffices(seed ...model.Office) *memoryOffices {
	m := &memoryOffices{offices: map[uint]model.Office{}}
	for _, o := range seed {
		m.nextID++
		o.ID = m.nextID
		m.offices[o.ID] = o
	}
	return m
}

func (m *memoryOffices) Create(_ context.Context, o *model.Office) error {
	for _, existing := range m.offices {
		if existing.Code == o.Code {
			return gorm.ErrDuplicatedKey
		}
	}
	m.nextID++
	o.ID = m.nextID
	m.offices[o.ID] = *o
	return nil
}

func (m *memoryOffices) Update(_ context.Context, o *model.Office) error {
	m.offices[o.ID] = *o
	return nil
}

func (m *memoryOffices) Delete(_ context.Context, id uint) error {
	if _, ok := m.offices[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.offices, id)
	return nil
}

func (m *memoryOffices) FindByID(_ context.Context, id uint) (*model.Office, error) {
	o, ok := m.offices[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &o, nil
}

func (m *memoryOffices) List(context.Context) ([]model.Office, error) {
	out := make([]model.Office, 0, len(m.offices))
	for _, o := range m.offices {
		out = append(out, o)
	}
	return out, nil
}

type memoryDepartments struct {
	saved []model.Department
}

func (m *memoryDepartments) Create(_ context.Context, d *model.Department) error {
	d.ID = uint(len(m.saved) + 1)
	m.saved = append(m.saved, *d)
	return nil
}

func (m *memoryDepartments) Update(context.Context, *model.Department) error  { return nil }
func (m *memoryDepartments) Delete(context.Context, uint) error               { return nil }
func (m *memoryDepartments) List(context.Context) ([]model.Department, error) { return m.saved, nil }

func (m *memoryDepartments) FindByID(_ context.Context, id uint) (*model.Department, error) {
	for _, d := range m.saved {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func TestOfficeService_Permissions(t *testing.T) {
	svc := NewOfficeService(newMemoryOffices(model.Office{Name: "HQ", Code: "HQ"}))
	ctx := context.Background()

	list, err := svc.List(ctx, staffActor)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.Create(ctx, staffActor, &model.Office{Name: "Branch", Code: "BR"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = svc.Create(ctx, executiveActor, &model.Office{Name: "Branch", Code: "BR"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	created, err := svc.Create(ctx, adminActor, &model.Office{Name: " Branch ", Code: "BR"})
	require.NoError(t, err)
	assert.Equal(t, "Branch", created.Name)
}

func TestOfficeService_Validation(t *testing.T) {
	svc := NewOfficeService(newMemoryOffices(model.Office{Name: "HQ", Code: "HQ"}))
	ctx := context.Background()

	_, err := svc.Create(ctx, adminActor, &model.Office{Name: "", Code: "X"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = svc.Create(ctx, adminActor, &model.Office{Name: "Other", Code: "HQ"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestOfficeService_UpdateKeepsCreatedAt(t *testing.T) {
	created := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
	repo := newMemoryOffices(model.Office{Name: "HQ", Code: "HQ", CreatedAt: created})
	svc := NewOfficeService(repo)

	updated, err := svc.Update(context.Background(), adminActor, 1, &model.Office{Name: "Head Office", Code: "HQ"})

	require.NoError(t, err)
	assert.Equal(t, "Head Office", updated.Name)
	assert.Equal(t, created, updated.CreatedAt)

	_, err = svc.Update(context.Background(), adminActor, 99, &model.Office{Name: "x", Code: "y"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOfficeService_Delete(t *testing.T) {
	svc := NewOfficeService(newMemoryOffices(model.Office{Name: "HQ", Code: "HQ"}))

	assert.NoError(t, svc.Delete(context.Background(), adminActor, 1))
	assert.ErrorIs(t, svc.Delete(context.Background(), adminActor, 1), apperrors.ErrNotFound)
}

func TestDepartmentService_OfficeMustExist(t *testing.T) {
	offices := newMemoryOffices(model.Office{Name: "HQ", Code: "HQ"})
	svc := NewDepartmentService(&memoryDepartments{}, offices)
	ctx := context.Background()

	missing := uint(42)
	_, err := svc.Create(ctx, adminActor, &model.Department{Name: "Legal", Code: "LEG", OfficeID: &missing})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	hq := uint(1)
	dept, err := svc.Create(ctx, adminActor, &model.Department{Name: "Legal", Code: "LEG", OfficeID: &hq})
	require.NoError(t, err)
	assert.Equal(t, "LEG", dept.Code)

	noOffice, err := svc.Create(ctx, adminActor, &model.Department{Name: "Floating", Code: "FLT"})
	require.NoError(t, err)
	assert.Nil(t, noOffice.OfficeID)
}
