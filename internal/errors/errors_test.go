package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsAndStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"validation", NewError("bad lat").WithHint("latitude out of range").Mark(ErrValidation), ErrCodeValidation, http.StatusBadRequest},
		{"authorization", NewError("not admin").Mark(ErrPermissionDenied), ErrCodeAuthorization, http.StatusForbidden},
		{"not found", NewError("missing").Mark(ErrNotFound), ErrCodeNotFound, http.StatusNotFound},
		{"conflict", NewError("stale").Mark(ErrConflict), ErrCodeConflict, http.StatusConflict},
		{"unmarked", fmt.Errorf("boom"), ErrCodeSystem, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, Code(tc.err))
			assert.Equal(t, tc.status, HTTPStatusFromErr(tc.err))
		})
	}
}

func TestMarkSurvivesWrapping(t *testing.T) {
	base := NewError("capacity above total").WithHint("available capacity must not exceed 10").Mark(ErrValidation)
	wrapped := fmt.Errorf("service: could not update capacity: %w", base)

	assert.True(t, IsValidation(wrapped))
	assert.False(t, IsNotFound(wrapped))
	assert.True(t, IsCallerError(wrapped))
	assert.Equal(t, "available capacity must not exceed 10", DisplayMessage(wrapped))
}

func TestDisplayMessageFallsBackToKind(t *testing.T) {
	err := NewError("row missing").Mark(ErrNotFound)
	assert.Equal(t, ErrNotFound.Message, DisplayMessage(err))
	assert.False(t, IsCallerError(WithError(fmt.Errorf("dial tcp")).Mark(ErrDatabase)))
}

func TestDetailsCarriedToCaller(t *testing.T) {
	err := NewError("capacity above total").
		WithHint("available capacity must not exceed 10").
		WithDetail("capacity", 10).
		WithDetails(map[string]any{"requested": 12}).
		Mark(ErrValidation)
	wrapped := fmt.Errorf("update capacity: %w", err)

	details := Details(wrapped)
	assert.Equal(t, map[string]any{"capacity": float64(10), "requested": float64(12)}, details)
	assert.True(t, IsValidation(wrapped))
	assert.Equal(t, "available capacity must not exceed 10", DisplayMessage(wrapped))
}

func TestDetailsOuterLayerWins(t *testing.T) {
	inner := NewError("denied").WithDetail("action", "verify").Mark(ErrPermissionDenied)
	outer := WithError(inner).WithDetail("action", "close").WithDetail("role", "citizen").Mark(ErrPermissionDenied)

	assert.Equal(t, map[string]any{"action": "close", "role": "citizen"}, Details(outer))
}

func TestDetailsAbsent(t *testing.T) {
	assert.Nil(t, Details(NewError("missing").Mark(ErrNotFound)))
	assert.Nil(t, Details(fmt.Errorf("plain")))
	assert.Nil(t, Details(nil))
}
