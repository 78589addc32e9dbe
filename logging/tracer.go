package logging

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TraceLevel represents different levels of tracing
type TraceLevel int

const (
	TraceLevelOff TraceLevel = iota
	TraceLevelError
	TraceLevelWarn
	TraceLevelInfo
	TraceLevelDebug
	TraceLevelVerbose
)

// String returns the string representation of TraceLevel
func (tl TraceLevel) String() string {
	switch tl {
	case TraceLevelOff:
		return "OFF"
	case TraceLevelError:
		return "ERROR"
	case TraceLevelWarn:
		return "WARN"
	case TraceLevelInfo:
		return "INFO"
	case TraceLevelDebug:
		return "DEBUG"
	case TraceLevelVerbose:
		return "VERBOSE"
	default:
		return "UNKNOWN"
	}
}

// ParseTraceLevel parses a level name, case-insensitively
func ParseTraceLevel(s string) (TraceLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OFF":
		return TraceLevelOff, true
	case "ERROR":
		return TraceLevelError, true
	case "WARN":
		return TraceLevelWarn, true
	case "INFO":
		return TraceLevelInfo, true
	case "DEBUG":
		return TraceLevelDebug, true
	case "VERBOSE":
		return TraceLevelVerbose, true
	default:
		return TraceLevelOff, false
	}
}

// zapLevel maps a trace level onto the zap level used to emit it. VERBOSE has
// no zap counterpart and is emitted at debug.
func (tl TraceLevel) zapLevel() zapcore.Level {
	switch tl {
	case TraceLevelError:
		return zapcore.ErrorLevel
	case TraceLevelWarn:
		return zapcore.WarnLevel
	case TraceLevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// TraceComponent represents different components that can be traced
type TraceComponent string

const (
	TraceComponentCollector TraceComponent = "COLLECTOR"
	TraceComponentDispatch  TraceComponent = "DISPATCH"
	TraceComponentSource    TraceComponent = "SOURCE"
	TraceComponentCatalog   TraceComponent = "CATALOG"
	TraceComponentStatsFile TraceComponent = "STATSFILE"
	TraceComponentCLI       TraceComponent = "CLI"
)

// AllComponents lists every known trace component
var AllComponents = []TraceComponent{
	TraceComponentCollector,
	TraceComponentDispatch,
	TraceComponentSource,
	TraceComponentCatalog,
	TraceComponentStatsFile,
	TraceComponentCLI,
}

const (
	envTraceLevel      = "FRAGSTATS_TRACE_LEVEL"
	envTraceComponents = "FRAGSTATS_TRACE_COMPONENTS"
)

// Tracer gates structured log entries by level and component
type Tracer struct {
	level             TraceLevel
	enabledComponents map[TraceComponent]bool
	logger            *zap.Logger
	mutex             sync.RWMutex
}

var (
	globalTracer *Tracer
	tracerOnce   sync.Once
)

// GetTracer returns the process-wide tracer, configured from the environment
// on first use.
func GetTracer() *Tracer {
	tracerOnce.Do(func() {
		logger, err := newProductionLogger()
		if err != nil {
			logger = zap.NewNop()
		}
		globalTracer = NewTracer(logger)
		globalTracer.ConfigureFromEnv()
	})
	return globalTracer
}

// newProductionLogger builds the JSON logger behind GetTracer. The core
// accepts every level and does not sample; the tracer level does the gating.
func newProductionLogger(opts ...zap.Option) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	cfg.Sampling = nil
	return cfg.Build(opts...)
}

// NewTracer creates a tracer that writes through logger. It starts switched
// off with no components enabled.
func NewTracer(logger *zap.Logger) *Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracer{
		level:             TraceLevelOff,
		enabledComponents: make(map[TraceComponent]bool),
		logger:            logger,
	}
}

// ConfigureFromEnv reads FRAGSTATS_TRACE_LEVEL and FRAGSTATS_TRACE_COMPONENTS
func (t *Tracer) ConfigureFromEnv() {
	if levelStr := os.Getenv(envTraceLevel); levelStr != "" {
		if level, ok := ParseTraceLevel(levelStr); ok {
			t.SetLevel(level)
		}
	}
	if componentsStr := os.Getenv(envTraceComponents); componentsStr != "" {
		t.EnableComponents(componentsStr)
	}
}

// SetLevel sets the trace level
func (t *Tracer) SetLevel(level TraceLevel) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.level = level
}

// Level returns the current trace level
func (t *Tracer) Level() TraceLevel {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.level
}

// SetLogger replaces the logger entries are written to
func (t *Tracer) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.logger = logger
}

// EnableComponents enables a comma-separated list of components, or all of
// them for "ALL".
func (t *Tracer) EnableComponents(list string) {
	if strings.EqualFold(strings.TrimSpace(list), "ALL") {
		for _, comp := range AllComponents {
			t.EnableComponent(comp)
		}
		return
	}
	for _, comp := range strings.Split(list, ",") {
		name := strings.TrimSpace(strings.ToUpper(comp))
		if name == "" {
			continue
		}
		t.EnableComponent(TraceComponent(name))
	}
}

// EnableComponent enables tracing for a specific component
func (t *Tracer) EnableComponent(component TraceComponent) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.enabledComponents[component] = true
}

// DisableComponent disables tracing for a specific component
func (t *Tracer) DisableComponent(component TraceComponent) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.enabledComponents[component] = false
}

// IsEnabled checks if tracing is enabled for a given level and component
func (t *Tracer) IsEnabled(level TraceLevel, component TraceComponent) bool {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return level != TraceLevelOff && t.level >= level && t.enabledComponents[component]
}

func (t *Tracer) trace(level TraceLevel, component TraceComponent, message string, fields []zap.Field) {
	if !t.IsEnabled(level, component) {
		return
	}

	t.mutex.RLock()
	logger := t.logger
	t.mutex.RUnlock()

	if ce := logger.Check(level.zapLevel(), message); ce != nil {
		all := make([]zap.Field, 0, len(fields)+1)
		all = append(all, zap.String("component", string(component)))
		all = append(all, fields...)
		ce.Write(all...)
	}
}

// Error logs an error-level trace
func (t *Tracer) Error(component TraceComponent, message string, fields ...zap.Field) {
	t.trace(TraceLevelError, component, message, fields)
}

// Warn logs a warning-level trace
func (t *Tracer) Warn(component TraceComponent, message string, fields ...zap.Field) {
	t.trace(TraceLevelWarn, component, message, fields)
}

// Info logs an info-level trace
func (t *Tracer) Info(component TraceComponent, message string, fields ...zap.Field) {
	t.trace(TraceLevelInfo, component, message, fields)
}

// Debug logs a debug-level trace
func (t *Tracer) Debug(component TraceComponent, message string, fields ...zap.Field) {
	t.trace(TraceLevelDebug, component, message, fields)
}

// Verbose logs a verbose-level trace
func (t *Tracer) Verbose(component TraceComponent, message string, fields ...zap.Field) {
	t.trace(TraceLevelVerbose, component, message, fields)
}

// Sync flushes buffered log entries
func (t *Tracer) Sync() error {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.logger.Sync()
}
