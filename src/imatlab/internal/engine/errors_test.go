package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	execErr := &ExecutionError{Identifier: "MATLAB:undefined", Message: "Undefined function 'foo'."}
	connErr := &ConnectionError{Message: "engine terminated"}

	assert.True(t, IsExecutionError(execErr))
	assert.False(t, IsConnectionError(execErr))

	assert.True(t, IsConnectionError(connErr))
	assert.False(t, IsExecutionError(connErr))

	wrapped := fmt.Errorf("running cell: %w", execErr)
	assert.True(t, IsExecutionError(wrapped))
}

func TestErrorMessages(t *testing.T) {
	assert.Contains(t, (&ExecutionError{Message: "boom"}).Error(), "boom")
	assert.Contains(t, (&ExecutionError{Identifier: "id:x", Message: "boom"}).Error(), "id:x")

	cause := fmt.Errorf("pipe closed")
	ce := &ConnectionError{Message: "engine terminated", Err: cause}
	assert.Contains(t, ce.Error(), "engine terminated")
	assert.Equal(t, cause, ce.Unwrap())
}
