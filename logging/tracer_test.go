package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedTracer() (*Tracer, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewTracer(zap.New(core)), logs
}

func TestTracerGating(t *testing.T) {
	tracer, logs := newObservedTracer()

	// Off by default
	tracer.Error(TraceComponentCollector, "dropped")
	require.Equal(t, 0, logs.Len())

	tracer.SetLevel(TraceLevelInfo)
	tracer.EnableComponent(TraceComponentCollector)

	tracer.Info(TraceComponentCollector, "kept", zap.Int("chunks", 2))
	tracer.Debug(TraceComponentCollector, "too verbose")
	tracer.Info(TraceComponentSource, "component disabled")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)

	fields := entries[0].ContextMap()
	assert.Equal(t, "COLLECTOR", fields["component"])
	assert.Equal(t, int64(2), fields["chunks"])

	tracer.DisableComponent(TraceComponentCollector)
	tracer.Info(TraceComponentCollector, "disabled again")
	require.Equal(t, 1, logs.Len())
}

func TestTracerVerboseMapsToDebug(t *testing.T) {
	tracer, logs := newObservedTracer()
	tracer.SetLevel(TraceLevelVerbose)
	tracer.EnableComponents("all")

	tracer.Verbose(TraceComponentDispatch, "scan")
	tracer.Warn(TraceComponentCatalog, "careful")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestTracerConfigureFromEnv(t *testing.T) {
	t.Setenv("FRAGSTATS_TRACE_LEVEL", "debug")
	t.Setenv("FRAGSTATS_TRACE_COMPONENTS", "source, catalog")

	tracer, _ := newObservedTracer()
	tracer.ConfigureFromEnv()

	assert.Equal(t, TraceLevelDebug, tracer.Level())
	assert.True(t, tracer.IsEnabled(TraceLevelDebug, TraceComponentSource))
	assert.True(t, tracer.IsEnabled(TraceLevelInfo, TraceComponentCatalog))
	assert.False(t, tracer.IsEnabled(TraceLevelDebug, TraceComponentCollector))
	assert.False(t, tracer.IsEnabled(TraceLevelVerbose, TraceComponentSource))
}

func TestParseTraceLevel(t *testing.T) {
	for _, level := range []TraceLevel{
		TraceLevelOff, TraceLevelError, TraceLevelWarn,
		TraceLevelInfo, TraceLevelDebug, TraceLevelVerbose,
	} {
		parsed, ok := ParseTraceLevel(level.String())
		require.True(t, ok, level.String())
		require.Equal(t, level, parsed)
	}

	_, ok := ParseTraceLevel("loud")
	require.False(t, ok)
	require.Equal(t, "UNKNOWN", TraceLevel(42).String())
}

func TestProductionLoggerKeepsDebugEntries(t *testing.T) {
	var written []zapcore.Entry
	logger, err := newProductionLogger(zap.Hooks(func(e zapcore.Entry) error {
		written = append(written, e)
		return nil
	}))
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	tracer := NewTracer(logger)
	tracer.SetLevel(TraceLevelVerbose)
	tracer.EnableComponent(TraceComponentCollector)

	tracer.Debug(TraceComponentCollector, "chunk collected")
	tracer.Verbose(TraceComponentCollector, "chunk collected")
	tracer.Info(TraceComponentSource, "disabled component")

	require.Len(t, written, 2)
	assert.Equal(t, zapcore.DebugLevel, written[0].Level)
	assert.Equal(t, zapcore.DebugLevel, written[1].Level)
}
