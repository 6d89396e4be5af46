package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesPredefined(t *testing.T) {
	err := Clone(ErrNotFound, "student S1 not found")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrDuplicateKey))
	assert.Equal(t, "student S1 not found", err.Error())
}

func TestWrapAsKeepsCause(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := WrapAs(ErrQueryExecution, cause, "")
	assert.ErrorIs(t, err, ErrQueryExecution)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "query execution error: boom", err.Error())
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(fmt.Errorf("plain"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)

	wrapped := fmt.Errorf("outer: %w", Clone(ErrSyntax, "missing SELECT"))
	assert.Equal(t, ErrSyntax.Code, FromError(wrapped).Code)
	assert.Nil(t, FromError(nil))
}
