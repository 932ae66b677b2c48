package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := ZapLogger(zap.New(core))

	l.Log("connection ", "ready")
	l.Logf("queue %s bound", "Q1")

	entries := logs.All()
	assert.Len(t, entries, 2)
	assert.Equal(t, "connection ready", entries[0].Message)
	assert.Equal(t, "queue Q1 bound", entries[1].Message)
	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
}

func TestZapLogger_Nil(t *testing.T) {
	l := ZapLogger(nil)
	l.Log("ignored")
	l.Logf("ignored %d", 1)
}

func TestZapLogger_LevelFiltered(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	NewOptions(WithLogger(ZapLogger(zap.New(core)))).Logf("debug only")
	assert.Zero(t, logs.Len())
}
