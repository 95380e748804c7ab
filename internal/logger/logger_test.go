package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferLogger(t *testing.T) {
	l := NewBufferLogger()
	l.Debug("connecting to %s", "pve1")
	l.Warn("retrying")

	assert.Len(t, l.Messages, 2)
	assert.Equal(t, "connecting to pve1", l.Messages[0].Message)
	assert.True(t, l.HasLevel("debug"))
	assert.True(t, l.HasLevel("warn"))
	assert.False(t, l.HasLevel("error"))

	l.Clear()
	assert.Empty(t, l.Messages)
}

func TestEnvLogger_DebugGated(t *testing.T) {
	t.Setenv("FLEET_DEBUG", "")

	// Just exercise the paths; envLogger writes to the standard logger.
	l := NewEnvLogger("[test]")
	l.Debug("not shown")
	l.Info("shown")

	t.Setenv("FLEET_DEBUG", "1")
	l.Debug("shown now")
}

func TestDefaultLogger(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	buf := NewBufferLogger()
	SetDefault(buf)
	Default().Info("hello")

	assert.True(t, buf.HasLevel("info"))
}

func TestNoop(t *testing.T) {
	l := Noop()
	l.Debug("a")
	l.Info("b")
	l.Warn("c")
	l.Error("d")
}
