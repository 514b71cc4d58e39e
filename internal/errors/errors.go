package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrForbidden is returned when the acting user's role does not allow the action.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict is returned when a unique field is already taken.
	ErrConflict = errors.New("record already exists")
	// ErrInvalidInput is returned when request data fails domain validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidTransition is returned when a letter cannot move to the requested status.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrCannotDeleteSelf is returned when an admin tries to delete their own account.
	ErrCannotDeleteSelf = errors.New("cannot delete your own account")
	// ErrInvalidFormat is returned when an import file has no header or lacks required columns.
	ErrInvalidFormat = errors.New("invalid file format: header row must contain the email column (recognized: name,email,password,role,position,department,office,phone)")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Wrapped errors keep their
// full message so validation details reach the client.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, err.Error(), "FORBIDDEN")
	case errors.Is(err, ErrConflict):
		return NewHTTPError(http.StatusConflict, err.Error(), "CONFLICT")
	case errors.Is(err, ErrInvalidInput):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_INPUT")
	case errors.Is(err, ErrInvalidTransition):
		return NewHTTPError(http.StatusConflict, err.Error(), "INVALID_TRANSITION")
	case errors.Is(err, ErrCannotDeleteSelf):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "CANNOT_DELETE_SELF")
	case errors.Is(err, ErrInvalidFormat):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_FORMAT")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
