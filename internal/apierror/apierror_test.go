package apierror_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Alia5/keybridge/apitypes"
	"github.com/Alia5/keybridge/internal/apierror"
	"github.com/stretchr/testify/assert"
)

func TestWrapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		title  string
	}{
		{"nil", nil, 0, ""},
		{"plain error", errors.New("boom"), 500, "Internal Server Error"},
		{"api error pointer", apierror.ErrNotFound("x"), 404, "Not Found"},
		{"api error value", apitypes.ApiError{Status: 409, Title: "Conflict"}, 409, "Conflict"},
		{"wrapped api error", fmt.Errorf("ctx: %w", apierror.ErrBadRequest("y")), 400, "Bad Request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := apierror.WrapError(tt.err)
			if tt.err == nil {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.title, got.Title)
		})
	}
}

func TestApiErrorString(t *testing.T) {
	assert.Equal(t, "401 Unauthorized: invalid password", apierror.ErrUnauthorized("invalid password").Error())
	assert.Equal(t, "unknown error", apitypes.ApiError{}.Error())
	assert.Equal(t, "Oops: x", apitypes.ApiError{Title: "Oops", Detail: "x"}.Error())
}
