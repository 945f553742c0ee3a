package logging

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/turtacn/molnotation/pkg/errors"
)

func newObserved(level zapcore.Level) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewLoggerFromCore(core), logs
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LogConfig
		wantErr bool
	}{
		{"json defaults", LogConfig{}, false},
		{"console", LogConfig{Level: LevelDebug, Format: "console", OutputPaths: []string{"stderr"}}, false},
		{"no outputs", LogConfig{OutputPaths: []string{}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLogger(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, l)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestZapLogger_Fields(t *testing.T) {
	l, logs := newObserved(zapcore.DebugLevel)

	l.With(String("component", "parser")).Info("parsed",
		Int("atoms", 9),
		Duration("took", 3*time.Millisecond),
		Bool("reaction", false),
		Notation("CCO"),
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "parser", ctx["component"])
	assert.Equal(t, int64(9), ctx["atoms"])
	assert.Equal(t, 3*time.Millisecond, ctx["took"])
	assert.Equal(t, "CCO", ctx["notation"])
}

func TestZapLogger_LevelFilter(t *testing.T) {
	l, logs := newObserved(zapcore.WarnLevel)
	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Named("http").Error("shown")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "http", entries[1].LoggerName)
}

func TestErrorFields(t *testing.T) {
	assert.Equal(t, "<nil>", Err(nil).Value)

	err := errors.New(errors.ErrCodeReactionNotFound, "reaction 9 not found")
	assert.Contains(t, Err(err).Value, "reaction 9 not found")
	assert.Equal(t, "REACTION_001", ErrCode(err).Value)
}

func TestNotation_Truncates(t *testing.T) {
	long := strings.Repeat("C", 1000)
	v := Notation(long).Value.(string)
	assert.True(t, strings.HasSuffix(v, "..."))
	assert.Len(t, v, 259)
}

func TestDefault(t *testing.T) {
	prev := Default()
	defer SetDefault(prev)

	l, logs := newObserved(zapcore.InfoLevel)
	SetDefault(l)
	SetDefault(nil)
	Default().Info("hello")
	assert.Equal(t, 1, logs.Len())
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Info("msg", String("k", "v"))
	assert.NotNil(t, l.With(Int("n", 1)).Named("x"))
	assert.NoError(t, l.Sync())
}
