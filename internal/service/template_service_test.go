package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	apperrors "letterdesk/internal/errors"
	"letterdesk/internal/model"
	"letterdesk/internal/repository"
)

type stubLetterTypes struct {
	repository.CRUDRepository[model.LetterType]
}

func (stubLetterTypes) FindByID(_ context.Context, id uint) (*model.LetterType, error) {
	if id != 2 {
		return nil, gorm.ErrRecordNotFound
	}
	return &model.LetterType{ID: 2, Name: "Appointment", Code: "APP"}, nil
}

type savingTemplates struct {
	memoryTemplates
	created []model.LetterTemplate
}

func (s *savingTemplates) Create(_ context.Context, tpl *model.LetterTemplate) error {
	tpl.ID = uint(len(s.created) + 1)
	s.created = append(s.created, *tpl)
	return nil
}

func TestTemplateService_Create(t *testing.T) {
	valid := func() *model.LetterTemplate {
		return &model.LetterTemplate{
			LetterTypeID: 2,
			Name:         "Offer",
			Subject:      "Offer for {{.name}}",
			Body:         "Hello {{.name}}",
			Active:       true,
			Fields:       []model.FieldSpec{{Name: "name", Type: model.FieldText, Required: true}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*model.LetterTemplate)
		wantErr error
	}{
		{name: "valid", mutate: func(*model.LetterTemplate) {}},
		{name: "unknown letter type", mutate: func(tpl *model.LetterTemplate) { tpl.LetterTypeID = 9 }, wantErr: apperrors.ErrInvalidInput},
		{name: "bad field name", mutate: func(tpl *model.LetterTemplate) { tpl.Fields[0].Name = "first name" }, wantErr: apperrors.ErrInvalidInput},
		{name: "duplicate field", mutate: func(tpl *model.LetterTemplate) {
			tpl.Fields = append(tpl.Fields, model.FieldSpec{Name: "name", Type: model.FieldText})
		}, wantErr: apperrors.ErrInvalidInput},
		{name: "select without options", mutate: func(tpl *model.LetterTemplate) { tpl.Fields[0].Type = model.FieldSelect }, wantErr: apperrors.ErrInvalidInput},
		{name: "unknown type", mutate: func(tpl *model.LetterTemplate) { tpl.Fields[0].Type = "colour" }, wantErr: apperrors.ErrInvalidInput},
		{name: "body does not parse", mutate: func(tpl *model.LetterTemplate) { tpl.Body = "Hello {{.name" }, wantErr: apperrors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &savingTemplates{}
			svc := NewTemplateService(repo, stubLetterTypes{})
			tpl := valid()
			tt.mutate(tpl)

			created, err := svc.Create(context.Background(), adminActor, tpl)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, repo.created)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, created.ID)
		})
	}
}

func TestTemplateService_CreateForbiddenForExecutive(t *testing.T) {
	svc := NewTemplateService(&savingTemplates{}, stubLetterTypes{})

	_, err := svc.Create(context.Background(), executiveActor, &model.LetterTemplate{})

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestTemplateService_Form(t *testing.T) {
	repo := &savingTemplates{memoryTemplates: memoryTemplates{templates: map[uint]model.LetterTemplate{10: appointmentTemplate}}}
	svc := NewTemplateService(repo, stubLetterTypes{})

	form, err := svc.Form(context.Background(), staffActor, 10)

	require.NoError(t, err)
	assert.Equal(t, uint(10), form.TemplateID)
	require.Len(t, form.Fields, len(appointmentTemplate.Fields))

	widgets := map[string]FormWidget{}
	for _, w := range form.Fields {
		widgets[w.Name] = w
	}
	assert.Equal(t, "date", widgets["start_date"].Widget)
	assert.Equal(t, "select", widgets["grade"].Widget)
	assert.Equal(t, []string{"A", "B"}, widgets["grade"].Options)
	assert.Equal(t, "number", widgets["salary"].Widget)
	assert.Equal(t, "email", widgets["contact"].Widget)
	assert.True(t, widgets["employee"].Required)
	assert.Equal(t, "employee", widgets["employee"].Label)
}

func TestTemplateService_FormNotFound(t *testing.T) {
	svc := NewTemplateService(&savingTemplates{memoryTemplates: memoryTemplates{templates: map[uint]model.LetterTemplate{}}}, stubLetterTypes{})

	_, err := svc.Form(context.Background(), staffActor, 99)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
