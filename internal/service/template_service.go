package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"text/template"

	"gorm.io/gorm"

	"letterdesk/internal/auth"
	"letterdesk/internal/authz"
	apperrors "letterdesk/internal/errors"
	"letterdesk/internal/model"
	"letterdesk/internal/repository"
)

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// FormWidget is one input of a rendered letter form.
type FormWidget struct {
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Widget      string   `json:"widget"`
	Required    bool     `json:"required"`
	Options     []string `json:"options,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
}

// FormDescriptor tells a client how to render the form for a template.
type FormDescriptor struct {
	TemplateID   uint         `json:"template_id"`
	TemplateName string       `json:"template_name"`
	LetterTypeID uint         `json:"letter_type_id"`
	Subject      string       `json:"subject"`
	Fields       []FormWidget `json:"fields"`
}

// TemplateService manages letter templates.
type TemplateService interface {
	List(ctx context.Context, actor auth.Actor, letterTypeID uint, activeOnly bool) ([]model.LetterTemplate, error)
	Get(ctx context.Context, actor auth.Actor, id uint) (*model.LetterTemplate, error)
	Create(ctx context.Context, actor auth.Actor, tpl *model.LetterTemplate) (*model.LetterTemplate, error)
	Update(ctx context.Context, actor auth.Actor, id uint, tpl *model.LetterTemplate) (*model.LetterTemplate, error)
	Delete(ctx context.Context, actor auth.Actor, id uint) error
	Form(ctx context.Context, actor auth.Actor, id uint) (*FormDescriptor, error)
}

type templateService struct {
	repo  repository.TemplateRepository
	types repository.CRUDRepository[model.LetterType]
}

// NewTemplateService creates a template service.
func NewTemplateService(repo repository.TemplateRepository, types repository.CRUDRepository[model.LetterType]) TemplateService {
	return &templateService{repo: repo, types: types}
}

func (s *templateService) List(ctx context.Context, _ auth.Actor, letterTypeID uint, activeOnly bool) ([]model.LetterTemplate, error) {
	var (
		templates []model.LetterTemplate
		err       error
	)
	if letterTypeID != 0 {
		templates, err = s.repo.ListByType(ctx, letterTypeID, activeOnly)
	} else {
		templates, err = s.repo.List(ctx)
		if err == nil && activeOnly {
			templates = activeTemplates(templates)
		}
	}
	if err != nil {
		return nil, storeError("templates", err)
	}
	return templates, nil
}

func activeTemplates(all []model.LetterTemplate) []model.LetterTemplate {
	out := all[:0]
	for _, t := range all {
		if t.Active {
			out = append(out, t)
		}
	}
	return out
}

func (s *templateService) Get(ctx context.Context, _ auth.Actor, id uint) (*model.LetterTemplate, error) {
	tpl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError("template", err)
	}
	return tpl, nil
}

func (s *templateService) Create(ctx context.Context, actor auth.Actor, tpl *model.LetterTemplate) (*model.LetterTemplate, error) {
	if !actor.Can(authz.ManageTemplates) {
		return nil, apperrors.ErrForbidden
	}
	tpl.ID = 0
	if err := s.check(ctx, tpl); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, tpl); err != nil {
		return nil, storeError("template", err)
	}
	return tpl, nil
}

func (s *templateService) Update(ctx context.Context, actor auth.Actor, id uint, tpl *model.LetterTemplate) (*model.LetterTemplate, error) {
	if !actor.Can(authz.ManageTemplates) {
		return nil, apperrors.ErrForbidden
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError("template", err)
	}
	tpl.ID = id
	tpl.CreatedAt = existing.CreatedAt
	if err := s.check(ctx, tpl); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, tpl); err != nil {
		return nil, storeError("template", err)
	}
	return s.Get(ctx, actor, id)
}

func (s *templateService) Delete(ctx context.Context, actor auth.Actor, id uint) error {
	if !actor.Can(authz.ManageTemplates) {
		return apperrors.ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError("template", err)
	}
	return nil
}

func (s *templateService) Form(ctx context.Context, actor auth.Actor, id uint) (*FormDescriptor, error) {
	tpl, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return BuildForm(tpl), nil
}

// BuildForm derives the form descriptor from a template's field schema.
func BuildForm(tpl *model.LetterTemplate) *FormDescriptor {
	form := &FormDescriptor{
		TemplateID:   tpl.ID,
		TemplateName: tpl.Name,
		LetterTypeID: tpl.LetterTypeID,
		Subject:      tpl.Subject,
		Fields:       make([]FormWidget, 0, len(tpl.Fields)),
	}
	for _, f := range tpl.Fields {
		w := FormWidget{
			Name:        f.Name,
			Label:       f.Label,
			Widget:      widgetFor(f.Type),
			Required:    f.Required,
			Placeholder: f.Placeholder,
		}
		if f.Type == model.FieldSelect {
			w.Options = f.Options
		}
		if w.Label == "" {
			w.Label = f.Name
		}
		form.Fields = append(form.Fields, w)
	}
	return form
}

func widgetFor(t model.FieldType) string {
	switch t {
	case model.FieldText:
		return "text"
	case model.FieldTextarea:
		return "textarea"
	case model.FieldNumber:
		return "number"
	case model.FieldDate:
		return "date"
	case model.FieldEmail:
		return "email"
	case model.FieldSelect:
		return "select"
	default:
		return "text"
	}
}

func (s *templateService) check(ctx context.Context, tpl *model.LetterTemplate) error {
	tpl.Name = strings.TrimSpace(tpl.Name)
	tpl.LetterType = nil
	if err := required("name", tpl.Name); err != nil {
		return err
	}
	if err := required("body", tpl.Body); err != nil {
		return err
	}
	if _, err := s.types.FindByID(ctx, tpl.LetterTypeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalidInput("letter type %d does not exist", tpl.LetterTypeID)
		}
		return storeError("letter type", err)
	}
	if err := ValidateFieldSchema(tpl.Fields); err != nil {
		return err
	}
	if _, err := template.New("body").Option("missingkey=zero").Parse(tpl.Body); err != nil {
		return invalidInput("body is not a valid template: %v", err)
	}
	if _, err := template.New("subject").Parse(tpl.Subject); err != nil {
		return invalidInput("subject is not a valid template: %v", err)
	}
	return nil
}

// ValidateFieldSchema checks names are unique identifiers, types are known and
// select fields carry options.
func ValidateFieldSchema(fields []model.FieldSpec) error {
	seen := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		if !fieldNamePattern.MatchString(f.Name) {
			return invalidInput("field %d: name %q must be an identifier", i+1, f.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return invalidInput("field %q is defined twice", f.Name)
		}
		seen[f.Name] = struct{}{}

		switch f.Type {
		case model.FieldText, model.FieldTextarea, model.FieldNumber, model.FieldDate, model.FieldEmail:
		case model.FieldSelect:
			if len(f.Options) == 0 {
				return invalidInput("field %q: select requires options", f.Name)
			}
		default:
			return invalidInput("field %q: unknown type %q", f.Name, f.Type)
		}
	}
	return nil
}
