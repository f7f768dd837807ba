package logger

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerWritesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core)).Named("registry")

	l.Debug("registered", map[string]interface{}{"id": "package-json", "priority": 10})
	l.Warn("skipped", nil)
	l.Error("discovery failed", errors.New("boom"), map[string]interface{}{"plugin": "x"})

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, "registered", entries[0].Message)
	assert.Equal(t, "registry", entries[0].LoggerName)
	assert.Equal(t, map[string]interface{}{"id": "package-json", "priority": int64(10)}, entries[0].ContextMap())

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Empty(t, entries[1].Context)

	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "boom", entries[2].ContextMap()["error"])
	assert.Equal(t, "x", entries[2].ContextMap()["plugin"])
}

func TestNopLogger(t *testing.T) {
	l := NewNop()
	assert.NotPanics(t, func() {
		l.Info("hello", map[string]interface{}{"k": "v"})
		l.Error("bad", nil, nil)
	})
}
