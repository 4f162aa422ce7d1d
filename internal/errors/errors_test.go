package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedErrors_WrapAndUnwrap(t *testing.T) {
	t.Parallel()

	err := NewTransportError("connect", "handshake failed", ErrConnectTimeout)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectTimeout)
	assert.Contains(t, err.Error(), "connect")
	assert.Contains(t, err.Error(), "handshake failed")

	var te *TransportError
	assert.True(t, As(err, &te))
	assert.Equal(t, "connect", te.Operation)
}

func TestTypedErrors_NilCause(t *testing.T) {
	t.Parallel()

	err := NewPacketError("decode", "bad frame", nil)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "<nil>")
}

func TestIsPassthrough(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("outer: %w", ErrQueueFull)
	assert.True(t, Is(wrapped, ErrQueueFull))
	assert.False(t, Is(wrapped, ErrQueueDisabled))
}

func TestSchedulerError(t *testing.T) {
	t.Parallel()

	err := NewSchedulerError("acquire", "gave up", ErrLockTimeout)
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestConfigError(t *testing.T) {
	t.Parallel()

	err := NewConfigError("server.port", "must be in range 1-65535")
	assert.Contains(t, err.Error(), "server.port")
}
