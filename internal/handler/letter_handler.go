package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"letterdesk/internal/auth"
	"letterdesk/internal/model"
	"letterdesk/internal/repository"
	"letterdesk/internal/service"
)

// LetterHandler serves the letter workflow.
type LetterHandler struct {
	svc service.LetterService
}

// NewLetterHandler creates a letter handler.
func NewLetterHandler(svc service.LetterService) *LetterHandler {
	return &LetterHandler{svc: svc}
}

// LetterRequest is the editable content of a letter.
type LetterRequest struct {
	TemplateID   uint              `json:"template_id" validate:"required"`
	Subject      string            `json:"subject" validate:"max=255"`
	Recipient    string            `json:"recipient" validate:"max=255"`
	Data         map[string]string `json:"data"`
	OfficeID     *uint             `json:"office_id"`
	DepartmentID *uint             `json:"department_id"`
}

func (r LetterRequest) toInput() service.LetterInput {
	return service.LetterInput{
		TemplateID:   r.TemplateID,
		Subject:      r.Subject,
		Recipient:    r.Recipient,
		Data:         r.Data,
		OfficeID:     r.OfficeID,
		DepartmentID: r.DepartmentID,
	}
}

// DecisionRequest carries reviewer remarks.
type DecisionRequest struct {
	Remarks string `json:"remarks" validate:"max=2000"`
}

func letterID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, badRequest("INVALID_ID", "invalid letter id")
	}
	return id, nil
}

// List godoc
// @Summary List letters
// @Description Staff see their own letters only.
// @Tags letters
// @Produce json
// @Security BearerAuth
// @Param status query string false "draft, pending, approved or rejected"
// @Param letter_type_id query int false "Filter by letter type"
// @Success 200 {array} model.Letter
// @Failure 400 {object} errors.ErrorResponse
// @Router /letters [get]
func (h *LetterHandler) List(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	letterTypeID, err := uintQuery(c, "letter_type_id")
	if err != nil {
		return err
	}
	filter := repository.LetterFilter{LetterTypeID: letterTypeID}
	if raw := c.QueryParam("status"); raw != "" {
		status := model.LetterStatus(raw)
		switch status {
		case model.LetterDraft, model.LetterPending, model.LetterApproved, model.LetterRejected:
			filter.Status = status
		default:
			return badRequest("INVALID_QUERY", "invalid status")
		}
	}

	letters, err := h.svc.List(c.Request().Context(), actor, filter)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, letters)
}

// Get godoc
// @Summary Get letter
// @Tags letters
// @Produce json
// @Security BearerAuth
// @Param id path string true "Letter ID"
// @Success 200 {object} model.Letter
// @Failure 404 {object} errors.ErrorResponse
// @Router /letters/{id} [get]
func (h *LetterHandler) Get(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := letterID(c)
	if err != nil {
		return err
	}
	letter, err := h.svc.Get(c.Request().Context(), actor, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, letter)
}

// Create godoc
// @Summary Draft a letter from a template
// @Tags letters
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param letter body LetterRequest true "Letter"
// @Success 201 {object} model.Letter
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /letters [post]
func (h *LetterHandler) Create(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var req LetterRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	letter, err := h.svc.Create(c.Request().Context(), actor, req.toInput())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, letter)
}

// Update godoc
// @Summary Edit a draft or rejected letter
// @Tags letters
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Letter ID"
// @Param letter body LetterRequest true "Letter"
// @Success 200 {object} model.Letter
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /letters/{id} [put]
func (h *LetterHandler) Update(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := letterID(c)
	if err != nil {
		return err
	}
	var req LetterRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	letter, err := h.svc.Update(c.Request().Context(), actor, id, req.toInput())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, letter)
}

// Submit godoc
// @Summary Submit a letter for approval
// @Tags letters
// @Produce json
// @Security BearerAuth
// @Param id path string true "Letter ID"
// @Success 200 {object} model.Letter
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /letters/{id}/submit [post]
func (h *LetterHandler) Submit(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := letterID(c)
	if err != nil {
		return err
	}
	letter, err := h.svc.Submit(c.Request().Context(), actor, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, letter)
}

// Approve godoc
// @Summary Approve a pending letter
// @Tags letters
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Letter ID"
// @Param decision body DecisionRequest false "Remarks"
// @Success 200 {object} model.Letter
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /letters/{id}/approve [post]
func (h *LetterHandler) Approve(c echo.Context) error {
	return h.decide(c, h.svc.Approve)
}

// Reject godoc
// @Summary Reject a pending letter
// @Tags letters
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Letter ID"
// @Param decision body DecisionRequest true "Remarks"
// @Success 200 {object} model.Letter
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /letters/{id}/reject [post]
func (h *LetterHandler) Reject(c echo.Context) error {
	return h.decide(c, h.svc.Reject)
}

type decisionFunc func(ctx context.Context, actor auth.Actor, id uuid.UUID, remarks string) (*model.Letter, error)

func (h *LetterHandler) decide(c echo.Context, fn decisionFunc) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := letterID(c)
	if err != nil {
		return err
	}
	var req DecisionRequest
	if c.Request().ContentLength != 0 {
		if err := bind(c, &req); err != nil {
			return err
		}
	}
	letter, err := fn(c.Request().Context(), actor, id, req.Remarks)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, letter)
}

// Delete godoc
// @Summary Delete a letter
// @Tags letters
// @Security BearerAuth
// @Param id path string true "Letter ID"
// @Success 204
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /letters/{id} [delete]
func (h *LetterHandler) Delete(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := letterID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), actor, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// History godoc
// @Summary Letter activity history
// @Tags letters
// @Produce json
// @Security BearerAuth
// @Param id path string true "Letter ID"
// @Success 200 {array} model.LetterActivity
// @Failure 404 {object} errors.ErrorResponse
// @Router /letters/{id}/history [get]
func (h *LetterHandler) History(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := letterID(c)
	if err != nil {
		return err
	}
	entries, err := h.svc.History(c.Request().Context(), actor, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}
