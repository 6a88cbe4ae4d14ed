package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validationf("bad input")))
	assert.Equal(t, KindNotFound, KindOf(NotFoundf("missing")))
	assert.Equal(t, KindForbidden, KindOf(Forbiddenf("no")))
	assert.Equal(t, KindConflict, KindOf(Conflictf("taken")))
	assert.Equal(t, KindInternal, KindOf(errors.New("raw")))
	assert.Equal(t, KindInternal, KindOf(nil))
}

func TestKindOfWrapped(t *testing.T) {
	inner := WrapError(KindSandboxOp, errors.New("socket gone"), "Failed to stop container")
	wrapped := fmt.Errorf("while stopping: %w", inner)

	assert.Equal(t, KindSandboxOp, KindOf(wrapped))
	assert.ErrorContains(t, wrapped, "socket gone")
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "Bot not found", PublicMessage(NotFoundf("Bot not found")))
	assert.Equal(t, "Internal server error", PublicMessage(errors.New("sql: connection refused")))

	// Internal-kind AppErrors are masked too.
	internal := WrapError(KindInternal, errors.New("boom"), "db write failed")
	assert.Equal(t, "Internal server error", PublicMessage(internal))
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := WrapError(KindSandboxCreate, cause, "Failed to create container")
	assert.ErrorIs(t, err, cause)
}
