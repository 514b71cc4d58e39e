package handler

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"letterdesk/internal/errors"
	"letterdesk/internal/importer"
	"letterdesk/internal/model"
	"letterdesk/internal/repository"
	"letterdesk/internal/service"
)

// UserHandler serves user administration and bulk import.
type UserHandler struct {
	svc            service.UserService
	imports        service.ImportService
	importMaxBytes int64
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService, imports service.ImportService, importMaxBytes int64) *UserHandler {
	return &UserHandler{svc: svc, imports: imports, importMaxBytes: importMaxBytes}
}

// CreateUserRequest is the admin payload for a new user.
type CreateUserRequest struct {
	Name       string `json:"name" validate:"required,max=255"`
	Email      string `json:"email" validate:"required,email,max=255"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
	Role       string `json:"role" validate:"required,oneof=admin executive staff"`
	Position   string `json:"position" validate:"max=255"`
	Department string `json:"department" validate:"max=255"`
	Office     string `json:"office" validate:"max=255"`
	Phone      string `json:"phone" validate:"max=50"`
}

// UpdateUserRequest changes the given fields only.
type UpdateUserRequest struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=255"`
	Email      *string `json:"email" validate:"omitempty,email,max=255"`
	Password   *string `json:"password" validate:"omitempty,min=8,max=72"`
	Role       *string `json:"role" validate:"omitempty,oneof=admin executive staff"`
	Position   *string `json:"position" validate:"omitempty,max=255"`
	Department *string `json:"department" validate:"omitempty,max=255"`
	Office     *string `json:"office" validate:"omitempty,max=255"`
	Phone      *string `json:"phone" validate:"omitempty,max=50"`
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param role query string false "Filter by role"
// @Param q query string false "Search name or email"
// @Success 200 {array} model.User
// @Failure 403 {object} errors.ErrorResponse
// @Router /users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	filter := repository.UserFilter{Search: strings.TrimSpace(c.QueryParam("q"))}
	if raw := c.QueryParam("role"); raw != "" {
		role, err := model.ParseRole(raw)
		if err != nil {
			return badRequest("INVALID_QUERY", err.Error())
		}
		filter.Role = role
	}

	users, err := h.svc.ListUsers(c.Request().Context(), actor, filter)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

// GetUser godoc
// @Summary Get user by id
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	user, err := h.svc.GetUser(c.Request().Context(), actor, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// CreateUser godoc
// @Summary Create user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param user body CreateUserRequest true "User payload"
// @Success 201 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /users [post]
func (h *UserHandler) CreateUser(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var req CreateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	created, err := h.svc.CreateUser(c.Request().Context(), actor, service.CreateUserInput{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Role:       model.Role(req.Role),
		Position:   req.Position,
		Department: req.Department,
		Office:     req.Office,
		Phone:      req.Phone,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// UpdateUser godoc
// @Summary Update user
// @Description Admins may change every field. Users may change their own name, position, phone and password.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param user body UpdateUserRequest true "Fields to change"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /users/{id} [put]
func (h *UserHandler) UpdateUser(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req UpdateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	in := service.UpdateUserInput{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Position:   req.Position,
		Department: req.Department,
		Office:     req.Office,
		Phone:      req.Phone,
	}
	if req.Role != nil {
		role := model.Role(*req.Role)
		in.Role = &role
	}

	user, err := h.svc.UpdateUser(c.Request().Context(), actor, id, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// DeleteUser godoc
// @Summary Delete user
// @Tags users
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 204
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [delete]
func (h *UserHandler) DeleteUser(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteUser(c.Request().Context(), actor, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ImportUsers godoc
// @Summary Bulk import users from CSV
// @Description Creates users whose email is new and updates users whose email exists. Invalid rows are reported, not fatal.
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "CSV file with a header row"
// @Success 200 {object} importer.Summary
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 413 {object} errors.ErrorResponse
// @Router /users/import [post]
func (h *UserHandler) ImportUsers(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest("MISSING_FILE", "multipart field \"file\" is required")
	}
	if ext := strings.ToLower(filepath.Ext(fh.Filename)); ext != ".csv" && ext != ".txt" {
		return badRequest("INVALID_FILE_TYPE", "only .csv or .txt files are accepted")
	}
	if h.importMaxBytes > 0 && fh.Size > h.importMaxBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, errors.ErrorResponse{
			Error: fmt.Sprintf("file exceeds %d bytes", h.importMaxBytes),
			Code:  "FILE_TOO_LARGE",
		})
	}

	f, err := fh.Open()
	if err != nil {
		return fail(c, fmt.Errorf("open upload: %w", err))
	}
	defer f.Close()

	var r io.Reader = f
	if h.importMaxBytes > 0 {
		r = io.LimitReader(f, h.importMaxBytes)
	}

	summary, err := h.imports.ImportUsers(c.Request().Context(), actor, "upload:"+filepath.Base(fh.Filename), r)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

// ImportTemplate godoc
// @Summary Download the user import template
// @Tags users
// @Produce text/csv
// @Security BearerAuth
// @Success 200 {file} file
// @Router /users/import/template [get]
func (h *UserHandler) ImportTemplate(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", importer.TemplateFilename))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", h.imports.Template())
}
