package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{fmt.Errorf("office code: %w", ErrConflict), http.StatusConflict, "CONFLICT"},
		{fmt.Errorf("field subject: %w", ErrInvalidInput), http.StatusBadRequest, "INVALID_INPUT"},
		{ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
		{ErrCannotDeleteSelf, http.StatusBadRequest, "CANNOT_DELETE_SELF"},
		{ErrInvalidFormat, http.StatusBadRequest, "INVALID_FORMAT"},
		{errors.New("db down"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			httpErr := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.status, httpErr.StatusCode)
			assert.Equal(t, tt.code, httpErr.Code)
		})
	}
}

func TestMapErrorToHTTP_KeepsWrappedMessage(t *testing.T) {
	httpErr := MapErrorToHTTP(fmt.Errorf("field subject is required: %w", ErrInvalidInput))
	assert.Equal(t, "field subject is required: invalid input", httpErr.ToErrorResponse().Error)
}

func TestMapErrorToHTTP_HidesInternalMessage(t *testing.T) {
	httpErr := MapErrorToHTTP(errors.New("dial tcp 10.0.0.1:3306: refused"))
	assert.Equal(t, "internal server error", httpErr.Message)
}
