package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_Defaults(t *testing.T) {
	logger, err := New(nil)
	require.NoError(t, err)
	require.NotNil(t, logger)

	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_DebugConsole(t *testing.T) {
	logger, err := New(&Config{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_ErrorLevel(t *testing.T) {
	logger, err := New(&Config{Level: "error", Format: "json"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.WarnLevel))
	assert.True(t, logger.Core().Enabled(zapcore.ErrorLevel))
}

func TestNew_ConstantFields(t *testing.T) {
	logger, err := New(&Config{
		Level:  "info",
		Format: "json",
		Fields: map[string]string{"service": "agentprobe"},
	})
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestNew_UnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "verbose"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown log level "verbose"`)
}

func TestParseLevel_EmptyDefaultsToInfo(t *testing.T) {
	level, err := parseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, level)
}
