package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"letterdesk/internal/model"
	"letterdesk/internal/service"
)

// TemplateHandler serves letter template management and form descriptors.
type TemplateHandler struct {
	svc service.TemplateService
}

// NewTemplateHandler creates a template handler.
func NewTemplateHandler(svc service.TemplateService) *TemplateHandler {
	return &TemplateHandler{svc: svc}
}

// TemplateRequest is the payload for creating or replacing a template.
type TemplateRequest struct {
	LetterTypeID uint              `json:"letter_type_id" validate:"required"`
	Name         string            `json:"name" validate:"required,max=255"`
	Subject      string            `json:"subject" validate:"max=255"`
	Body         string            `json:"body" validate:"required"`
	Fields       []model.FieldSpec `json:"fields"`
	Active       *bool             `json:"active"`
}

func (r TemplateRequest) toModel() *model.LetterTemplate {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return &model.LetterTemplate{
		LetterTypeID: r.LetterTypeID,
		Name:         r.Name,
		Subject:      r.Subject,
		Body:         r.Body,
		Fields:       r.Fields,
		Active:       active,
	}
}

// List godoc
// @Summary List letter templates
// @Tags templates
// @Produce json
// @Security BearerAuth
// @Param letter_type_id query int false "Filter by letter type"
// @Param active query bool false "Only active templates"
// @Success 200 {array} model.LetterTemplate
// @Failure 400 {object} errors.ErrorResponse
// @Router /templates [get]
func (h *TemplateHandler) List(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	letterTypeID, err := uintQuery(c, "letter_type_id")
	if err != nil {
		return err
	}
	activeOnly := false
	if raw := c.QueryParam("active"); raw != "" {
		if activeOnly, err = strconv.ParseBool(raw); err != nil {
			return badRequest("INVALID_QUERY", "invalid active")
		}
	}

	templates, err := h.svc.List(c.Request().Context(), actor, letterTypeID, activeOnly)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, templates)
}

// Get godoc
// @Summary Get letter template
// @Tags templates
// @Produce json
// @Security BearerAuth
// @Param id path int true "Template ID"
// @Success 200 {object} model.LetterTemplate
// @Failure 404 {object} errors.ErrorResponse
// @Router /templates/{id} [get]
func (h *TemplateHandler) Get(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	tpl, err := h.svc.Get(c.Request().Context(), actor, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, tpl)
}

// Form godoc
// @Summary Describe the input form of a template
// @Description Returns one widget per template field for building the letter form.
// @Tags templates
// @Produce json
// @Security BearerAuth
// @Param id path int true "Template ID"
// @Success 200 {object} service.FormDescriptor
// @Failure 404 {object} errors.ErrorResponse
// @Router /templates/{id}/form [get]
func (h *TemplateHandler) Form(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	form, err := h.svc.Form(c.Request().Context(), actor, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, form)
}

// Create godoc
// @Summary Create letter template
// @Tags templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param template body TemplateRequest true "Template"
// @Success 201 {object} model.LetterTemplate
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /templates [post]
func (h *TemplateHandler) Create(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var req TemplateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	tpl, err := h.svc.Create(c.Request().Context(), actor, req.toModel())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, tpl)
}

// Update godoc
// @Summary Replace letter template
// @Tags templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Template ID"
// @Param template body TemplateRequest true "Template"
// @Success 200 {object} model.LetterTemplate
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /templates/{id} [put]
func (h *TemplateHandler) Update(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req TemplateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	tpl, err := h.svc.Update(c.Request().Context(), actor, id, req.toModel())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, tpl)
}

// Delete godoc
// @Summary Delete letter template
// @Tags templates
// @Security BearerAuth
// @Param id path int true "Template ID"
// @Success 204
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /templates/{id} [delete]
func (h *TemplateHandler) Delete(c echo.Context) error {
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
