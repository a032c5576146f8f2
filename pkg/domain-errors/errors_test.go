package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	err := New(CodePrecondition, "document is already approved")
	assert.True(t, HasCode(err, CodePrecondition))
	assert.False(t, HasCode(err, CodeValidation))
	assert.False(t, HasCode(nil, CodePrecondition))
	assert.False(t, HasCode(errors.New("plain"), CodePrecondition))
}

func TestHasCodeThroughWrapping(t *testing.T) {
	inner := New(CodeNotFound, "profile not found")
	outer := fmt.Errorf("loading snapshot: %w", inner)
	assert.True(t, HasCode(outer, CodeNotFound))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeUnavailable, "payment lookup failed")

	assert.True(t, HasCode(err, CodeUnavailable))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestMessageOfHidesInternals(t *testing.T) {
	assert.Equal(t, "payment lookup failed",
		MessageOf(Wrap(errors.New("dsn=secret"), CodeUnavailable, "payment lookup failed")))
	assert.Equal(t, "internal error", MessageOf(errors.New("dsn=secret")))
}

func TestCodeOfDefaultsToInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	assert.Equal(t, CodeForbidden, CodeOf(New(CodeForbidden, "no")))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:   http.StatusBadRequest,
		CodePrecondition: http.StatusUnprocessableEntity,
		CodeConflict:     http.StatusConflict,
		CodeUnauthorized: http.StatusUnauthorized,
		CodeForbidden:    http.StatusForbidden,
		CodeNotFound:     http.StatusNotFound,
		CodeUnavailable:  http.StatusServiceUnavailable,
		CodeInternal:     http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), "code %s", code)
	}
}
