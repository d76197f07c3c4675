package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNopLoggerBeforeInitialize(t *testing.T) {
	// The package-level logger must be usable before Initialize.
	require.NotNil(t, Logger)
	assert.NotPanics(t, func() {
		Info("pre-init message")
		Warnw("pre-init", "key", "value")
		Errorf("pre-init %d", 42)
	})
}

func TestInitializeJSON(t *testing.T) {
	err := Initialize(true)
	require.NoError(t, err)
	assert.True(t, JSONOutput)
	assert.NotNil(t, Logger)
	Cleanup()
}

func TestInitializeConsole(t *testing.T) {
	err := Initialize(false)
	require.NoError(t, err)
	assert.False(t, JSONOutput)
	assert.NotNil(t, Logger)
	Cleanup()
}

func TestVerbosityToLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, VerbosityToLevel(0))
	assert.Equal(t, zapcore.InfoLevel, VerbosityToLevel(1))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(2))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(7))
}
