package service

import (
	"context"
	"regexp"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"letterdesk/internal/auth"
	apperrors "letterdesk/internal/errors"
	"letterdesk/internal/events"
	"letterdesk/internal/model"
	"letterdesk/internal/repository"
)

type memoryLetters struct {
	mu      sync.Mutex
	letters map[uuid.UUID]model.Letter
}

func (m *memoryLetters) Create(_ context.Context, l *model.Letter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	m.letters[l.ID] = *l
	return nil
}

func (m *memoryLetters) Update(_ context.Context, l *model.Letter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.letters[l.ID] = *l
	return nil
}

func (m *memoryLetters) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.letters[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.letters, id)
	return nil
}

func (m *memoryLetters) FindByID(_ context.Context, id uuid.UUID) (*model.Letter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.letters[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &l, nil
}

func (m *memoryLetters) List(_ context.Context, f repository.LetterFilter) ([]model.Letter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Letter
	for _, l := range m.letters {
		if f.CreatedBy != 0 && l.CreatedBy != f.CreatedBy {
			continue
		}
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

type memoryTemplates struct {
	repository.CRUDRepository[model.LetterTemplate]
	templates map[uint]model.LetterTemplate
}

func (m *memoryTemplates) FindByID(_ context.Context, id uint) (*model.LetterTemplate, error) {
	t, ok := m.templates[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (m *memoryTemplates) ListByType(context.Context, uint, bool) ([]model.LetterTemplate, error) {
	return nil, nil
}

type memoryActivities struct {
	mu      sync.Mutex
	entries []model.LetterActivity
}

func (m *memoryActivities) Create(_ context.Context, a *model.LetterActivity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *a)
	return nil
}

func (m *memoryActivities) CreateBatch(_ context.Context, batch []model.LetterActivity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, batch...)
	return nil
}

func (m *memoryActivities) ListByLetter(_ context.Context, id uuid.UUID) ([]model.LetterActivity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.LetterActivity
	for _, a := range m.entries {
		if a.LetterID == id {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memoryActivities) actions() []model.ActivityAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ActivityAction, 0, len(m.entries))
	for _, a := range m.entries {
		out = append(out, a.Action)
	}
	return out
}

type recordingPublisher struct {
	events.NoopPublisher
	mu       sync.Mutex
	statuses []string
	imports  []events.UsersImported
}

func (p *recordingPublisher) PublishLetterStatusChanged(_ context.Context, evt events.LetterStatusChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, evt.Status)
	return nil
}

func (p *recordingPublisher) PublishUsersImported(_ context.Context, evt events.UsersImported) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.imports = append(p.imports, evt)
	return nil
}

var appointmentTemplate = model.LetterTemplate{
	ID:           10,
	LetterTypeID: 2,
	Name:         "Appointment",
	Subject:      "Appointment of {{.employee}}",
	Body:         "Dear {{.employee}}, you start on {{.start_date}} as {{.grade}}.",
	Active:       true,
	Fields: []model.FieldSpec{
		{Name: "employee", Type: model.FieldText, Required: true},
		{Name: "start_date", Type: model.FieldDate, Required: true},
		{Name: "grade", Type: model.FieldSelect, Options: []string{"A", "B"}},
		{Name: "salary", Type: model.FieldNumber},
		{Name: "contact", Type: model.FieldEmail},
	},
}

type letterFixture struct {
	svc        LetterService
	letters    *memoryLetters
	activities *memoryActivities
	publisher  *recordingPublisher
}

func newLetterFixture(t *testing.T) *letterFixture {
	t.Helper()
	inactive := appointmentTemplate
	inactive.ID, inactive.Active = 11, false

	f := &letterFixture{
		letters:    &memoryLetters{letters: map[uuid.UUID]model.Letter{}},
		activities: &memoryActivities{},
		publisher:  &recordingPublisher{},
	}
	templates := &memoryTemplates{templates: map[uint]model.LetterTemplate{10: appointmentTemplate, 11: inactive}}
	f.svc = NewLetterService(f.letters, templates, f.activities, f.publisher, nil)
	t.Cleanup(f.svc.Close)
	return f
}

func validInput() LetterInput {
	return LetterInput{
		TemplateID: 10,
		Recipient:  "HR",
		Data:       map[string]string{"employee": "Ada", "start_date": "2024-02-01", "grade": "A"},
	}
}

func TestLetterService_CreateRendersDraft(t *testing.T) {
	f := newLetterFixture(t)

	letter, err := f.svc.Create(context.Background(), staffActor, validInput())

	require.NoError(t, err)
	assert.Equal(t, model.LetterDraft, letter.Status)
	assert.Equal(t, "Appointment of Ada", letter.Subject)
	assert.Equal(t, "Dear Ada, you start on 2024-02-01 as A.", letter.Body)
	assert.Equal(t, staffActor.UserID, letter.CreatedBy)
	assert.Equal(t, uint(2), letter.LetterTypeID)
	assert.Regexp(t, regexp.MustCompile(`^LTR-\d{8}-[0-9A-F]{8}$`), letter.ReferenceNo)
}

func TestLetterService_CreateValidatesData(t *testing.T) {
	f := newLetterFixture(t)

	cases := map[string]map[string]string{
		"missing required": {"start_date": "2024-02-01"},
		"bad date":         {"employee": "Ada", "start_date": "01/02/2024"},
		"bad select":       {"employee": "Ada", "start_date": "2024-02-01", "grade": "Z"},
		"bad number":       {"employee": "Ada", "start_date": "2024-02-01", "salary": "lots"},
		"bad email":        {"employee": "Ada", "start_date": "2024-02-01", "contact": "nope"},
		"unknown key":      {"employee": "Ada", "start_date": "2024-02-01", "shoe": "44"},
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			in.Data = data
			_, err := f.svc.Create(context.Background(), staffActor, in)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}

func TestLetterService_CreateFromInactiveTemplate(t *testing.T) {
	f := newLetterFixture(t)
	in := validInput()
	in.TemplateID = 11

	_, err := f.svc.Create(context.Background(), staffActor, in)

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestLetterService_Workflow(t *testing.T) {
	f := newLetterFixture(t)
	ctx := context.Background()

	letter, err := f.svc.Create(ctx, staffActor, validInput())
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, executiveActor, letter.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition, "drafts cannot be approved")

	_, err = f.svc.Submit(ctx, executiveActor, letter.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden, "only the creator submits")

	letter, err = f.svc.Submit(ctx, staffActor, letter.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LetterPending, letter.Status)

	_, err = f.svc.Update(ctx, staffActor, letter.ID, validInput())
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition, "pending letters are locked")

	_, err = f.svc.Reject(ctx, executiveActor, letter.ID, " ")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput, "rejection needs remarks")

	letter, err = f.svc.Reject(ctx, executiveActor, letter.ID, "wrong grade")
	require.NoError(t, err)
	assert.Equal(t, model.LetterRejected, letter.Status)
	assert.Equal(t, "wrong grade", letter.Remarks)

	in := validInput()
	in.Data["grade"] = "B"
	letter, err = f.svc.Update(ctx, staffActor, letter.ID, in)
	require.NoError(t, err)
	assert.Contains(t, letter.Body, "as B.")

	_, err = f.svc.Submit(ctx, staffActor, letter.ID)
	require.NoError(t, err)

	letter, err = f.svc.Approve(ctx, executiveActor, letter.ID, "ok")
	require.NoError(t, err)
	assert.Equal(t, model.LetterApproved, letter.Status)
	require.NotNil(t, letter.ApprovedBy)
	assert.Equal(t, executiveActor.UserID, *letter.ApprovedBy)
	assert.NotNil(t, letter.ApprovedAt)

	f.svc.Close()
	assert.Equal(t, []model.ActivityAction{
		model.ActivityCreated,
		model.ActivitySubmitted,
		model.ActivityRejected,
		model.ActivityUpdated,
		model.ActivitySubmitted,
		model.ActivityApproved,
	}, f.activities.actions())
	assert.Equal(t, []string{"draft", "pending", "rejected", "pending", "approved"}, f.publisher.statuses)
}

func TestLetterService_CannotApproveOwnLetter(t *testing.T) {
	f := newLetterFixture(t)
	ctx := context.Background()

	letter, err := f.svc.Create(ctx, executiveActor, validInput())
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, executiveActor, letter.ID)
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, executiveActor, letter.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.svc.Approve(ctx, adminActor, letter.ID, "")
	assert.NoError(t, err)
}

func TestLetterService_StaffCannotApprove(t *testing.T) {
	f := newLetterFixture(t)

	_, err := f.svc.Approve(context.Background(), staffActor, uuid.New(), "")

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestLetterService_Visibility(t *testing.T) {
	f := newLetterFixture(t)
	ctx := context.Background()

	mine, err := f.svc.Create(ctx, staffActor, validInput())
	require.NoError(t, err)
	other := auth.Actor{UserID: 4, Email: "other@example.com", Role: model.RoleStaff}
	theirs, err := f.svc.Create(ctx, other, validInput())
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, staffActor, theirs.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	list, err := f.svc.List(ctx, staffActor, repository.LetterFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	all, err := f.svc.List(ctx, executiveActor, repository.LetterFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestLetterService_Delete(t *testing.T) {
	f := newLetterFixture(t)
	ctx := context.Background()

	draft, err := f.svc.Create(ctx, staffActor, validInput())
	require.NoError(t, err)
	submitted, err := f.svc.Create(ctx, staffActor, validInput())
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, staffActor, submitted.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, staffActor, submitted.ID), apperrors.ErrInvalidTransition)
	assert.NoError(t, f.svc.Delete(ctx, staffActor, draft.ID))
	assert.NoError(t, f.svc.Delete(ctx, adminActor, submitted.ID))

	_, err = f.svc.Get(ctx, adminActor, draft.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLetterService_History(t *testing.T) {
	f := newLetterFixture(t)
	ctx := context.Background()

	letter, err := f.svc.Create(ctx, staffActor, validInput())
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, staffActor, letter.ID)
	require.NoError(t, err)

	f.svc.Close()
	history, err := f.svc.History(ctx, staffActor, letter.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestValidateLetterData_TrimsAndDropsEmptyOptional(t *testing.T) {
	out, err := ValidateLetterData(appointmentTemplate.Fields, map[string]string{
		"employee":   "  Ada ",
		"start_date": "2024-02-01",
		"salary":     "",
	})

	require.NoError(t, err)
	assert.Equal(t, map[string]string{"employee": "Ada", "start_date": "2024-02-01"}, out)
}
