package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := New(ErrValidate, "range too large", "pass --force-range to override")
	assert.Equal(t, ErrValidate, err.Code)
	assert.Contains(t, err.Error(), "range too large")
	assert.Contains(t, err.Error(), "--force-range")
}

func TestWrapWithCode_Unwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := WrapWithCode(cause, ErrTransport, "Can't reach node pve1", "Check the node is up")

	assert.Equal(t, cause, err.Unwrap())
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIsCode(t *testing.T) {
	transport := New(ErrTransport, "dial failed", "")
	execErr := New(ErrExec, "remote run failed", "")

	assert.True(t, IsCode(transport, ErrTransport))
	assert.False(t, IsCode(transport, ErrExec))
	assert.True(t, IsCode(execErr, ErrExec))
	assert.False(t, IsCode(nil, ErrTransport))
	assert.False(t, IsCode(fmt.Errorf("plain"), ErrTransport))
}

func TestIsCode_WrappedChain(t *testing.T) {
	inner := New(ErrTransport, "handshake failed", "")
	outer := fmt.Errorf("node pve2: %w", inner)

	assert.True(t, IsTransport(outer))
	assert.False(t, IsCode(outer, ErrExec))
}
