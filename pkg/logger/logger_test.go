package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := FromZap(zap.New(core)).With("component", "capture")

	log.Info("stream acquired", "stream_id", "abc")
	log.Debug("dropped below level")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "stream acquired", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "capture", fields["component"])
	assert.Equal(t, "abc", fields["stream_id"])
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	log := New("not-a-level")
	require.NotNil(t, log)
	log.Info("still works")
}

func TestNopLogger(t *testing.T) {
	log := NewNop()
	log.Error("ignored", "k", 1)
	assert.NotNil(t, log.With("a", 1))
}
