package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"letterdesk/internal/model"
	"letterdesk/internal/service"
)

// DirectoryHandler serves CRUD endpoints for one reference table.
type DirectoryHandler[T any] struct {
	svc service.DirectoryService[T]
}

// NewDirectoryHandler creates a handler over svc.
func NewDirectoryHandler[T any](svc service.DirectoryService[T]) *DirectoryHandler[T] {
	return &DirectoryHandler[T]{svc: svc}
}

// Offices, departments, staff and letter types share the same handler shape.
type (
	OfficeHandler     = DirectoryHandler[model.Office]
	DepartmentHandler = DirectoryHandler[model.Department]
	StaffHandler      = DirectoryHandler[model.Staff]
	LetterTypeHandler = DirectoryHandler[model.LetterType]
)

func (h *DirectoryHandler[T]) List(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	records, err := h.svc.List(c.Request().Context(), actor)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, records)
}

func (h *DirectoryHandler[T]) Get(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	record, err := h.svc.Get(c.Request().Context(), actor, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, record)
}

func (h *DirectoryHandler[T]) Create(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	record := new(T)
	if err := c.Bind(record); err != nil {
		return badRequest("INVALID_BODY", "invalid request body")
	}
	created, err := h.svc.Create(c.Request().Context(), actor, record)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *DirectoryHandler[T]) Update(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	record := new(T)
	if err := c.Bind(record); err != nil {
		return badRequest("INVALID_BODY", "invalid request body")
	}
	updated, err := h.svc.Update(c.Request().Context(), actor, id, record)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *DirectoryHandler[T]) Delete(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), actor, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
