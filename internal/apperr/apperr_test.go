package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{New(Validation, "bad input"), http.StatusBadRequest},
		{New(Authorization, "no token"), http.StatusUnauthorized},
		{New(Forbidden, "not yours"), http.StatusForbidden},
		{New(NotFound, "missing"), http.StatusNotFound},
		{New(Conflict, "wrong state"), http.StatusConflict},
		{New(Duplicate, "already done"), http.StatusConflict},
		{New(Dependency, "upstream down"), http.StatusBadGateway},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, HTTPStatus(tc.err), "error: %v", tc.err)
	}
}

func TestKindOf_SurvivesWrapping(t *testing.T) {
	inner := New(NotFound, "listing not found")
	wrapped := fmt.Errorf("get listing: %w", inner)

	assert.Equal(t, NotFound, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, NotFound))
	assert.False(t, IsKind(wrapped, Conflict))
}

func TestPublicMessage_HidesInternalDetail(t *testing.T) {
	internal := Wrap(errors.New("connection refused to 10.0.0.5:27017"), "query failed")
	assert.Equal(t, "internal server error", PublicMessage(internal))

	domain := New(Validation, "price must be at least 1")
	assert.Equal(t, "price must be at least 1", PublicMessage(domain))
}

func TestWithCode(t *testing.T) {
	err := New(Forbidden, "identity verification required").WithCode("verification_required")
	assert.Equal(t, "verification_required", PublicCode(err))
	assert.Equal(t, "", PublicCode(New(NotFound, "nope")))
}
