package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"letterdesk/internal/auth"
	apperrors "letterdesk/internal/errors"
	"letterdesk/internal/importer"
	"letterdesk/internal/model"
	"letterdesk/internal/repository"
	"letterdesk/internal/service"
)

type testValidator struct{ v *validator.Validate }

func (tv testValidator) Validate(i interface{}) error { return tv.v.Struct(i) }

var adminActor = auth.Actor{UserID: 1, Email: "admin@example.com", Role: model.RoleAdmin}

// serve runs h against req as actor and returns the recorded response.
// Errors are rendered by echo's default error handler as in production.
func serve(t *testing.T, h echo.HandlerFunc, req *http.Request, actor *auth.Actor, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.Validator = testValidator{v: validator.New()}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if len(params)%2 != 0 {
		t.Fatal("params must be name/value pairs")
	}
	var names, values []string
	for i := 0; i < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	if actor != nil {
		auth.SetActor(c, *actor)
	}
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var body apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// --- service mocks ---

type mockAuthService struct{ mock.Mock }

func (m *mockAuthService) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	args := m.Called(ctx, name, email, password)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*service.TokenPair, *model.User, error) {
	args := m.Called(ctx, email, password)
	tp, _ := args.Get(0).(*service.TokenPair)
	u, _ := args.Get(1).(*model.User)
	return tp, u, args.Error(2)
}

func (m *mockAuthService) RefreshToken(ctx context.Context, refresh string) (string, error) {
	args := m.Called(ctx, refresh)
	return args.String(0), args.Error(1)
}

func (m *mockAuthService) Logout(ctx context.Context, refresh, access string) error {
	return m.Called(ctx, refresh, access).Error(0)
}

type mockImportService struct{ mock.Mock }

func (m *mockImportService) ImportUsers(ctx context.Context, actor auth.Actor, source string, r io.Reader) (*importer.Summary, error) {
	data, _ := io.ReadAll(r)
	args := m.Called(ctx, actor, source, string(data))
	s, _ := args.Get(0).(*importer.Summary)
	return s, args.Error(1)
}

func (m *mockImportService) Template() []byte { return importer.TemplateCSV() }

type mockLetterService struct {
	mock.Mock
	service.LetterService
}

func (m *mockLetterService) Approve(ctx context.Context, actor auth.Actor, id uuid.UUID, remarks string) (*model.Letter, error) {
	args := m.Called(ctx, actor, id, remarks)
	l, _ := args.Get(0).(*model.Letter)
	return l, args.Error(1)
}

func (m *mockLetterService) Reject(ctx context.Context, actor auth.Actor, id uuid.UUID, remarks string) (*model.Letter, error) {
	args := m.Called(ctx, actor, id, remarks)
	l, _ := args.Get(0).(*model.Letter)
	return l, args.Error(1)
}

func (m *mockLetterService) List(ctx context.Context, actor auth.Actor, filter repository.LetterFilter) ([]model.Letter, error) {
	args := m.Called(ctx, actor, filter)
	l, _ := args.Get(0).([]model.Letter)
	return l, args.Error(1)
}

type stubOffices struct {
	service.DirectoryService[model.Office]
	err error
}

func (s stubOffices) Create(_ context.Context, _ auth.Actor, o *model.Office) (*model.Office, error) {
	if s.err != nil {
		return nil, s.err
	}
	o.ID = 7
	return o, nil
}

// --- multipart helper ---

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/users/import", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

// --- auth ---

func TestAuthHandler_LoginInvalidCredentials(t *testing.T) {
	svc := new(mockAuthService)
	svc.On("Login", mock.Anything, "a@example.com", "wrongpass").Return(nil, nil, service.ErrInvalidCredentials)
	h := NewAuthHandler(svc, nil)

	rec := serve(t, h.Login, jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"a@example.com","password":"wrongpass"}`), nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decodeError(t, rec).Code)
}

func TestAuthHandler_LoginValidation(t *testing.T) {
	h := NewAuthHandler(new(mockAuthService), nil)

	rec := serve(t, h.Login, jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"not-an-email"}`), nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)
}

func TestAuthHandler_RegisterConflict(t *testing.T) {
	svc := new(mockAuthService)
	svc.On("Register", mock.Anything, "Jane", "jane@example.com", "secret123").Return(nil, service.ErrUserAlreadyExists)
	h := NewAuthHandler(svc, nil)

	rec := serve(t, h.Register, jsonRequest(http.MethodPost, "/api/auth/register",
		`{"name":"Jane","email":"jane@example.com","password":"secret123"}`), nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "USER_ALREADY_EXISTS", decodeError(t, rec).Code)
}

func TestAuthHandler_LogoutPassesBearerToken(t *testing.T) {
	svc := new(mockAuthService)
	svc.On("Logout", mock.Anything, "refresh-1", "access-1").Return(nil)
	h := NewAuthHandler(svc, nil)

	req := jsonRequest(http.MethodPost, "/api/auth/logout", `{"refresh_token":"refresh-1"}`)
	req.Header.Set(echo.HeaderAuthorization, "Bearer access-1")
	rec := serve(t, h.Logout, req, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

// --- import ---

func TestUserHandler_ImportUsers(t *testing.T) {
	csvBody := "name,email,password,role\nJane,jane@example.com,secret123,staff\n"
	imports := new(mockImportService)
	imports.On("ImportUsers", mock.Anything, adminActor, "upload:users.csv", csvBody).
		Return(&importer.Summary{Created: 1, Total: 1, Errors: []importer.RowError{}}, nil)
	h := NewUserHandler(nil, imports, 5<<20)

	rec := serve(t, h.ImportUsers, uploadRequest(t, "users.csv", csvBody), &adminActor)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body["imported"])
	assert.EqualValues(t, 0, body["updated"])
	assert.EqualValues(t, 0, body["errors"])
	assert.EqualValues(t, 1, body["total"])
	assert.NotContains(t, body, "UpdatedIDs")
	imports.AssertExpectations(t)
}

func TestUserHandler_ImportUsersRejectsFileType(t *testing.T) {
	h := NewUserHandler(nil, new(mockImportService), 5<<20)

	rec := serve(t, h.ImportUsers, uploadRequest(t, "users.xlsx", "x"), &adminActor)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_FILE_TYPE", decodeError(t, rec).Code)
}

func TestUserHandler_ImportUsersRejectsLargeFile(t *testing.T) {
	h := NewUserHandler(nil, new(mockImportService), 16)

	rec := serve(t, h.ImportUsers, uploadRequest(t, "users.csv", strings.Repeat("a", 64)), &adminActor)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "FILE_TOO_LARGE", decodeError(t, rec).Code)
}

func TestUserHandler_ImportUsersMissingFile(t *testing.T) {
	h := NewUserHandler(nil, new(mockImportService), 5<<20)

	req := httptest.NewRequest(http.MethodPost, "/api/users/import", nil)
	rec := serve(t, h.ImportUsers, req, &adminActor)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MISSING_FILE", decodeError(t, rec).Code)
}

func TestUserHandler_ImportUsersInvalidFormat(t *testing.T) {
	imports := new(mockImportService)
	imports.On("ImportUsers", mock.Anything, adminActor, "upload:users.csv", "name,role\n").
		Return(nil, apperrors.ErrInvalidFormat)
	h := NewUserHandler(nil, imports, 5<<20)

	rec := serve(t, h.ImportUsers, uploadRequest(t, "users.csv", "name,role\n"), &adminActor)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_FORMAT", decodeError(t, rec).Code)
}

func TestUserHandler_ImportTemplate(t *testing.T) {
	h := NewUserHandler(nil, new(mockImportService), 5<<20)

	rec := serve(t, h.ImportTemplate, httptest.NewRequest(http.MethodGet, "/api/users/import/template", nil), &adminActor)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/csv")
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "users_import_template.csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "name,email,password,role"))
}

func TestUserHandler_ListUsersRejectsUnknownRole(t *testing.T) {
	h := NewUserHandler(nil, nil, 0)

	rec := serve(t, h.ListUsers, httptest.NewRequest(http.MethodGet, "/api/users?role=manager", nil), &adminActor)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserHandler_RequiresActor(t *testing.T) {
	h := NewUserHandler(nil, nil, 0)

	rec := serve(t, h.GetUser, httptest.NewRequest(http.MethodGet, "/api/users/1", nil), nil, "id", "1")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// --- letters ---

func TestLetterHandler_InvalidID(t *testing.T) {
	h := NewLetterHandler(new(mockLetterService))

	rec := serve(t, h.Approve, jsonRequest(http.MethodPost, "/api/letters/x/approve", `{}`), &adminActor, "id", "not-a-uuid")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ID", decodeError(t, rec).Code)
}

func TestLetterHandler_RejectPassesRemarks(t *testing.T) {
	id := uuid.New()
	svc := new(mockLetterService)
	svc.On("Reject", mock.Anything, adminActor, id, "missing signature").
		Return(&model.Letter{ID: id, Status: model.LetterRejected, Remarks: "missing signature"}, nil)
	h := NewLetterHandler(svc)

	rec := serve(t, h.Reject, jsonRequest(http.MethodPost, "/", `{"remarks":"missing signature"}`), &adminActor, "id", id.String())

	require.Equal(t, http.StatusOK, rec.Code)
	var letter model.Letter
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &letter))
	assert.Equal(t, model.LetterRejected, letter.Status)
	svc.AssertExpectations(t)
}

func TestLetterHandler_ApproveWithoutBody(t *testing.T) {
	id := uuid.New()
	svc := new(mockLetterService)
	svc.On("Approve", mock.Anything, adminActor, id, "").Return(nil, apperrors.ErrInvalidTransition)
	h := NewLetterHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := serve(t, h.Approve, req, &adminActor, "id", id.String())

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_TRANSITION", decodeError(t, rec).Code)
}

func TestLetterHandler_ListStatusFilter(t *testing.T) {
	svc := new(mockLetterService)
	svc.On("List", mock.Anything, adminActor, repository.LetterFilter{Status: model.LetterPending, LetterTypeID: 3}).
		Return([]model.Letter{}, nil)
	h := NewLetterHandler(svc)

	rec := serve(t, h.List, httptest.NewRequest(http.MethodGet, "/api/letters?status=pending&letter_type_id=3", nil), &adminActor)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, h.List, httptest.NewRequest(http.MethodGet, "/api/letters?status=archived", nil), &adminActor)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertExpectations(t)
}

// --- directory ---

func TestDirectoryHandler_Create(t *testing.T) {
	h := NewDirectoryHandler[model.Office](stubOffices{})

	rec := serve(t, h.Create, jsonRequest(http.MethodPost, "/api/offices", `{"name":"HQ","code":"HQ"}`), &adminActor)

	require.Equal(t, http.StatusCreated, rec.Code)
	var office model.Office
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &office))
	assert.Equal(t, uint(7), office.ID)
}

func TestDirectoryHandler_CreateForbidden(t *testing.T) {
	h := NewDirectoryHandler[model.Office](stubOffices{err: apperrors.ErrForbidden})

	rec := serve(t, h.Create, jsonRequest(http.MethodPost, "/api/offices", `{"name":"HQ","code":"HQ"}`), &adminActor)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", decodeError(t, rec).Code)
}
