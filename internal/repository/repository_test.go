package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	ierr "github.com/shenikar/relief_locator/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestResourceError_MapsNoRowsToNotFound(t *testing.T) {
	err := resourceError(pgx.ErrNoRows, uuid.New(), "failed to get resource by id")
	assert.True(t, ierr.IsNotFound(err))
	assert.Equal(t, "Resource not found", ierr.DisplayMessage(err))

	wrapped := resourceError(fmt.Errorf("scan: %w", pgx.ErrNoRows), uuid.New(), "x")
	assert.True(t, ierr.IsNotFound(wrapped))
}

func TestDBError_MarksDatabase(t *testing.T) {
	cause := errors.New("connection refused")
	err := dbError(cause, "failed to list resources")

	assert.Equal(t, ierr.ErrCodeDatabase, ierr.Code(err))
	assert.False(t, ierr.IsCallerError(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed to list resources")
}

func TestAccountAndAlertErrors(t *testing.T) {
	assert.True(t, ierr.IsNotFound(accountError(pgx.ErrNoRows, uuid.New(), "x")))
	assert.True(t, ierr.IsNotFound(alertError(pgx.ErrNoRows, uuid.New(), "x")))
	assert.Equal(t, ierr.ErrCodeDatabase, ierr.Code(alertError(errors.New("boom"), uuid.New(), "x")))
}

func TestResourceKey(t *testing.T) {
	id := uuid.MustParse("5b0c1c5e-0000-4000-8000-000000000001")
	assert.Equal(t, "resource:5b0c1c5e-0000-4000-8000-000000000001", resourceKey(id))
}

func TestContainsPattern(t *testing.T) {
	assert.Equal(t, "", containsPattern(""))
	assert.Equal(t, "%north%", containsPattern("north"))
	// пользовательские % и _ ищутся буквально
	assert.Equal(t, `%50\% off\_now%`, containsPattern("50% off_now"))
	assert.Equal(t, `%a\\b%`, containsPattern(`a\b`))
}
