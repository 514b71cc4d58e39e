package service

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"letterdesk/internal/audit"
	"letterdesk/internal/auth"
	"letterdesk/internal/authz"
	apperrors "letterdesk/internal/errors"
	"letterdesk/internal/events"
	"letterdesk/internal/metrics"
	"letterdesk/internal/model"
	"letterdesk/internal/repository"
)

const dateLayout = "2006-01-02"

var fieldValidator = validator.New()

// LetterInput is the editable content of a letter.
type LetterInput struct {
	TemplateID   uint
	Subject      string
	Recipient    string
	Data         map[string]string
	OfficeID     *uint
	DepartmentID *uint
}

// LetterService runs the letter workflow: draft, pending, approved or rejected.
type LetterService interface {
	Create(ctx context.Context, actor auth.Actor, in LetterInput) (*model.Letter, error)
	Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*model.Letter, error)
	List(ctx context.Context, actor auth.Actor, filter repository.LetterFilter) ([]model.Letter, error)
	Update(ctx context.Context, actor auth.Actor, id uuid.UUID, in LetterInput) (*model.Letter, error)
	Submit(ctx context.Context, actor auth.Actor, id uuid.UUID) (*model.Letter, error)
	Approve(ctx context.Context, actor auth.Actor, id uuid.UUID, remarks string) (*model.Letter, error)
	Reject(ctx context.Context, actor auth.Actor, id uuid.UUID, remarks string) (*model.Letter, error)
	Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error
	History(ctx context.Context, actor auth.Actor, id uuid.UUID) ([]model.LetterActivity, error)
	// Close flushes pending activity entries.
	Close()
}

type letterService struct {
	letters    repository.LetterRepository
	templates  repository.TemplateRepository
	activities repository.ActivityRepository
	recorder   *activityRecorder
	publisher  events.Publisher
	audit      *audit.Logger
	now        func() time.Time
}

// NewLetterService creates a letter service and starts its activity writer.
func NewLetterService(
	letters repository.LetterRepository,
	templates repository.TemplateRepository,
	activities repository.ActivityRepository,
	publisher events.Publisher,
	auditLog *audit.Logger,
) LetterService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if auditLog == nil {
		auditLog = audit.Nop()
	}
	return &letterService{
		letters:    letters,
		templates:  templates,
		activities: activities,
		recorder:   newActivityRecorder(activities),
		publisher:  publisher,
		audit:      auditLog,
		now:        time.Now,
	}
}

func (s *letterService) Close() {
	s.recorder.Close()
}

func (s *letterService) Create(ctx context.Context, actor auth.Actor, in LetterInput) (*model.Letter, error) {
	if !actor.Can(authz.CreateLetter) {
		return nil, apperrors.ErrForbidden
	}

	tpl, err := s.templates.FindByID(ctx, in.TemplateID)
	if err != nil {
		return nil, storeError("template", err)
	}
	if !tpl.Active {
		return nil, invalidInput("template %d is not active", tpl.ID)
	}

	now := s.now()
	letter := &model.Letter{
		ReferenceNo:  referenceNumber(now),
		LetterTypeID: tpl.LetterTypeID,
		TemplateID:   tpl.ID,
		Status:       model.LetterDraft,
		CreatedBy:    actor.UserID,
	}
	if err := s.fill(letter, tpl, in); err != nil {
		return nil, err
	}

	if err := s.letters.Create(ctx, letter); err != nil {
		return nil, storeError("letter", err)
	}

	s.transitioned(ctx, actor, letter, model.ActivityCreated, "")
	return letter, nil
}

func (s *letterService) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*model.Letter, error) {
	letter, err := s.letters.FindByID(ctx, id)
	if err != nil {
		return nil, storeError("letter", err)
	}
	if !canView(actor, letter) {
		return nil, fmt.Errorf("letter: %w", apperrors.ErrNotFound)
	}
	return letter, nil
}

func (s *letterService) List(ctx context.Context, actor auth.Actor, filter repository.LetterFilter) ([]model.Letter, error) {
	if !actor.Can(authz.ViewAllLetters) {
		filter.CreatedBy = actor.UserID
	}
	letters, err := s.letters.List(ctx, filter)
	if err != nil {
		return nil, storeError("letters", err)
	}
	return letters, nil
}

func (s *letterService) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, in LetterInput) (*model.Letter, error) {
	letter, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if letter.CreatedBy != actor.UserID && !actor.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	if !letter.Status.Editable() {
		return nil, fmt.Errorf("%w: %s letters cannot be edited", apperrors.ErrInvalidTransition, letter.Status)
	}

	tpl, err := s.templates.FindByID(ctx, letter.TemplateID)
	if err != nil {
		return nil, storeError("template", err)
	}
	if err := s.fill(letter, tpl, in); err != nil {
		return nil, err
	}

	if err := s.letters.Update(ctx, letter); err != nil {
		return nil, storeError("letter", err)
	}
	s.recorder.Record(ctx, model.LetterActivity{LetterID: letter.ID, ActorID: actor.UserID, Action: model.ActivityUpdated})
	return letter, nil
}

func (s *letterService) Submit(ctx context.Context, actor auth.Actor, id uuid.UUID) (*model.Letter, error) {
	letter, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if letter.CreatedBy != actor.UserID {
		return nil, apperrors.ErrForbidden
	}
	if !letter.Status.Editable() {
		return nil, fmt.Errorf("%w: cannot submit a %s letter", apperrors.ErrInvalidTransition, letter.Status)
	}

	letter.Status = model.LetterPending
	if err := s.letters.Update(ctx, letter); err != nil {
		return nil, storeError("letter", err)
	}
	s.transitioned(ctx, actor, letter, model.ActivitySubmitted, "")
	return letter, nil
}

func (s *letterService) Approve(ctx context.Context, actor auth.Actor, id uuid.UUID, remarks string) (*model.Letter, error) {
	return s.decide(ctx, actor, id, model.LetterApproved, strings.TrimSpace(remarks))
}

func (s *letterService) Reject(ctx context.Context, actor auth.Actor, id uuid.UUID, remarks string) (*model.Letter, error) {
	remarks = strings.TrimSpace(remarks)
	if remarks == "" {
		return nil, invalidInput("remarks are required when rejecting")
	}
	return s.decide(ctx, actor, id, model.LetterRejected, remarks)
}

func (s *letterService) decide(ctx context.Context, actor auth.Actor, id uuid.UUID, status model.LetterStatus, remarks string) (*model.Letter, error) {
	if !actor.Can(authz.ApproveLetter) {
		return nil, apperrors.ErrForbidden
	}
	letter, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if letter.CreatedBy == actor.UserID && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: cannot decide on your own letter", apperrors.ErrForbidden)
	}
	if letter.Status != model.LetterPending {
		return nil, fmt.Errorf("%w: only pending letters can be %s", apperrors.ErrInvalidTransition, status)
	}

	letter.Status = status
	letter.Remarks = remarks
	action := model.ActivityRejected
	if status == model.LetterApproved {
		now := s.now()
		approver := actor.UserID
		letter.ApprovedBy = &approver
		letter.ApprovedAt = &now
		action = model.ActivityApproved
	}

	if err := s.letters.Update(ctx, letter); err != nil {
		return nil, storeError("letter", err)
	}
	s.audit.LetterDecision(actor.UserID, letter.ID.String(), letter.ReferenceNo, string(status))
	s.transitioned(ctx, actor, letter, action, remarks)
	return letter, nil
}

func (s *letterService) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	letter, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		if letter.CreatedBy != actor.UserID {
			return apperrors.ErrForbidden
		}
		if letter.Status != model.LetterDraft {
			return fmt.Errorf("%w: only drafts can be deleted", apperrors.ErrInvalidTransition)
		}
	}

	if err := s.letters.Delete(ctx, id); err != nil {
		return storeError("letter", err)
	}
	s.recorder.Record(ctx, model.LetterActivity{LetterID: letter.ID, ActorID: actor.UserID, Action: model.ActivityDeleted})
	s.publish(ctx, actor, letter, string(model.ActivityDeleted))
	return nil
}

func (s *letterService) History(ctx context.Context, actor auth.Actor, id uuid.UUID) ([]model.LetterActivity, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	entries, err := s.activities.ListByLetter(ctx, id)
	if err != nil {
		return nil, storeError("letter activity", err)
	}
	return entries, nil
}

// transitioned records the activity, metrics and event for a status change.
func (s *letterService) transitioned(ctx context.Context, actor auth.Actor, letter *model.Letter, action model.ActivityAction, remarks string) {
	s.recorder.Record(ctx, model.LetterActivity{
		LetterID: letter.ID,
		ActorID:  actor.UserID,
		Action:   action,
		Remarks:  remarks,
	})
	metrics.RecordLetterTransition(string(letter.Status))
	s.publish(ctx, actor, letter, string(letter.Status))
}

func (s *letterService) publish(ctx context.Context, actor auth.Actor, letter *model.Letter, status string) {
	evt := events.LetterStatusChanged{
		LetterID:    letter.ID.String(),
		ReferenceNo: letter.ReferenceNo,
		Status:      status,
		ActorID:     actor.UserID,
		CreatedBy:   letter.CreatedBy,
		At:          s.now().UTC(),
	}
	if err := s.publisher.PublishLetterStatusChanged(ctx, evt); err != nil {
		log.Warn().Err(err).Str("letter_id", evt.LetterID).Msg("publish letters.status.changed failed")
	}
}

// fill validates in against the template and renders subject and body.
func (s *letterService) fill(letter *model.Letter, tpl *model.LetterTemplate, in LetterInput) error {
	data, err := ValidateLetterData(tpl.Fields, in.Data)
	if err != nil {
		return err
	}

	body, err := render("body", tpl.Body, data)
	if err != nil {
		return invalidInput("render body: %v", err)
	}

	subject := strings.TrimSpace(in.Subject)
	if subject == "" {
		if subject, err = render("subject", tpl.Subject, data); err != nil {
			return invalidInput("render subject: %v", err)
		}
	}
	if subject == "" {
		return invalidInput("subject is required")
	}

	letter.Subject = subject
	letter.Recipient = strings.TrimSpace(in.Recipient)
	letter.Data = data
	letter.Body = body
	letter.OfficeID = in.OfficeID
	letter.DepartmentID = in.DepartmentID
	letter.Template = nil
	return nil
}

func render(name, text string, data map[string]string) (string, error) {
	t, err := template.New(name).Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// ValidateLetterData checks data against the template fields and returns the
// trimmed values. Keys the template does not define are rejected.
func ValidateLetterData(fields []model.FieldSpec, data map[string]string) (map[string]string, error) {
	known := make(map[string]model.FieldSpec, len(fields))
	for _, f := range fields {
		known[f.Name] = f
	}
	for key := range data {
		if _, ok := known[key]; !ok {
			return nil, invalidInput("unknown field %q", key)
		}
	}

	out := make(map[string]string, len(fields))
	for _, f := range fields {
		v := strings.TrimSpace(data[f.Name])
		if v == "" {
			if f.Required {
				return nil, invalidInput("%s is required", f.Name)
			}
			continue
		}

		switch f.Type {
		case model.FieldNumber:
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				return nil, invalidInput("%s must be a number", f.Name)
			}
		case model.FieldDate:
			if _, err := time.Parse(dateLayout, v); err != nil {
				return nil, invalidInput("%s must be a date (YYYY-MM-DD)", f.Name)
			}
		case model.FieldEmail:
			if err := fieldValidator.Var(v, "email"); err != nil {
				return nil, invalidInput("%s must be a valid email address", f.Name)
			}
		case model.FieldSelect:
			if !slices.Contains(f.Options, v) {
				return nil, invalidInput("%s must be one of: %s", f.Name, strings.Join(f.Options, ", "))
			}
		}
		out[f.Name] = v
	}
	return out, nil
}

func canView(actor auth.Actor, letter *model.Letter) bool {
	return actor.Can(authz.ViewAllLetters) || letter.CreatedBy == actor.UserID
}

// referenceNumber builds LTR-YYYYMMDD-XXXXXXXX with a random suffix.
func referenceNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "LTR-" + now.Format("20060102") + "-" + suffix
}
