package services

import (
	"errors"
	"fmt"
	"testing"

	"rescuelink/internal/repositories/interfaces"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NotFound("SOS not found"))

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrForbidden)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, "SOS not found", NotFound("SOS not found").Error())
}

func TestInternalHidesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal("list sos", cause)

	assert.Equal(t, "internal server error", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestLookupError(t *testing.T) {
	assert.ErrorIs(t, lookupError(interfaces.ErrNotFound, "get", "missing"), ErrNotFound)
	assert.Equal(t, KindInternal, KindOf(lookupError(errors.New("timeout"), "get", "missing")))
}
