package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"letterdesk/internal/auth"
	"letterdesk/internal/errors"
)

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// fail converts a service error into an echo HTTP error with a JSON body.
func fail(c echo.Context, err error) error {
	httpErr := errors.MapErrorToHTTP(err)
	if httpErr.StatusCode >= http.StatusInternalServerError {
		log.Error().Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Msg("request failed")
	}
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

func badRequest(code, message string) error {
	return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{Error: message, Code: code})
}

// bind decodes and validates the request body into req.
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return badRequest("INVALID_BODY", "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return badRequest("VALIDATION_ERROR", err.Error())
	}
	return nil
}

func idParam(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest("INVALID_ID", "invalid id")
	}
	return uint(id), nil
}

func uintQuery(c echo.Context, name string) (uint, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, badRequest("INVALID_QUERY", "invalid "+name)
	}
	return uint(v), nil
}

// actorOf returns the authenticated actor. Routes using it sit behind the
// actor middleware, so a missing actor means a wiring bug and reads as 401.
func actorOf(c echo.Context) (auth.Actor, error) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		return auth.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
			Error: "missing, invalid or expired token",
			Code:  "UNAUTHORIZED",
		})
	}
	return actor, nil
}
