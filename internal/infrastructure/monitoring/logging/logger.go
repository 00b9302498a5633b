// Package logging provides the structured logging interface used by every
// component of the ingest pipeline, backed by go.uber.org/zap. Components
// depend on Logger only; zap is not imported outside this package.
//
// Initialisation order in cmd/scholaretl:
//
//  1. Parse configuration.
//  2. Call NewLogger(cfg.Log) and store the result with SetDefault.
//  3. Build the pipeline, injecting the Logger instance.
package logging

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	apperrors "github.com/turtacn/scholar-etl/pkg/errors"
)

// Level names accepted by LogConfig.Level.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Canonical field keys shared by pipeline components.
const (
	FieldRunID        = "run_id"
	FieldBatch        = "batch"
	FieldTotalBatches = "total_batches"
	FieldAttempt      = "attempt"
	FieldTable        = "table"
	FieldEntity       = "entity"
	FieldPaperID      = "paper_id"
	FieldRow          = "row"
	FieldElapsed      = "elapsed"
	FieldErrorCode    = "error_code"
)

// ─────────────────────────────────────────────────────────────────────────────
// Field
// ─────────────────────────────────────────────────────────────────────────────

// Field is a typed key-value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// String constructs a Field with a string value.
func String(key, val string) Field { return Field{Key: key, Value: val} }

// Int constructs a Field with an int value.
func Int(key string, val int) Field { return Field{Key: key, Value: val} }

// Int64 constructs a Field with an int64 value.
func Int64(key string, val int64) Field { return Field{Key: key, Value: val} }

// Float64 constructs a Field with a float64 value.
func Float64(key string, val float64) Field { return Field{Key: key, Value: val} }

// Bool constructs a Field with a bool value.
func Bool(key string, val bool) Field { return Field{Key: key, Value: val} }

// Err captures an error under the key "error". A nil error is logged as "<nil>".
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: "<nil>"}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Any constructs a Field with an arbitrary value.
func Any(key string, val interface{}) Field { return Field{Key: key, Value: val} }

// Duration constructs a Field with a time.Duration value.
func Duration(key string, val time.Duration) Field { return Field{Key: key, Value: val} }

// ─────────────────────────────────────────────────────────────────────────────
// Logger
// ─────────────────────────────────────────────────────────────────────────────

// Logger is the structured logging contract injected into every component.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// Fatal logs and then calls os.Exit(1). Reserve for startup failures.
	Fatal(msg string, fields ...Field)

	// With returns a child Logger that includes fields in every entry.
	With(fields ...Field) Logger

	// Named returns a child Logger whose name is appended to the parent's.
	Named(name string) Logger

	// WithError returns a child Logger carrying err and, for an AppError, its code.
	WithError(err error) Logger

	// Sync flushes buffered entries.
	Sync() error
}

// LogConfig carries the parameters required to construct a Logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `mapstructure:"level" yaml:"level" json:"level"`

	// Format is "json" or "console". Defaults to json.
	Format string `mapstructure:"format" yaml:"format" json:"format"`

	// OutputPaths defaults to ["stdout"] when nil. An explicitly empty
	// slice is rejected.
	OutputPaths []string `mapstructure:"output_paths" yaml:"output_paths" json:"output_paths"`

	// ErrorOutputPaths defaults to ["stderr"] when nil.
	ErrorOutputPaths []string `mapstructure:"error_output_paths" yaml:"error_output_paths" json:"error_output_paths"`
}

// ─────────────────────────────────────────────────────────────────────────────
// zapLogger
// ─────────────────────────────────────────────────────────────────────────────

type zapLogger struct {
	z *zap.Logger
}

func toZapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			out = append(out, zap.String(f.Key, v))
		case int:
			out = append(out, zap.Int(f.Key, v))
		case int64:
			out = append(out, zap.Int64(f.Key, v))
		case float64:
			out = append(out, zap.Float64(f.Key, v))
		case bool:
			out = append(out, zap.Bool(f.Key, v))
		case time.Duration:
			out = append(out, zap.Duration(f.Key, v))
		case error:
			out = append(out, zap.NamedError(f.Key, v))
		default:
			out = append(out, zap.Any(f.Key, v))
		}
	}
	return out
}

func (l *zapLogger) Debug(msg string, fields ...Field) { l.z.Debug(msg, toZapFields(fields)...) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.z.Info(msg, toZapFields(fields)...) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.z.Warn(msg, toZapFields(fields)...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.z.Error(msg, toZapFields(fields)...) }
func (l *zapLogger) Fatal(msg string, fields ...Field) { l.z.Fatal(msg, toZapFields(fields)...) }

func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{z: l.z.With(toZapFields(fields)...)}
}

func (l *zapLogger) Named(name string) Logger {
	return &zapLogger{z: l.z.Named(name)}
}

func (l *zapLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	fields := []Field{Err(err)}
	if code := apperrors.GetCode(err); code != apperrors.CodeUnknown {
		fields = append(fields, String(FieldErrorCode, code.String()))
	}
	return l.With(fields...)
}

func (l *zapLogger) Sync() error {
	return l.z.Sync()
}

// ─────────────────────────────────────────────────────────────────────────────
// Constructors
// ─────────────────────────────────────────────────────────────────────────────

// ParseLevel converts a level name to a zapcore.Level. Unknown names yield
// InfoLevel and an error.
func ParseLevel(s string) (zapcore.Level, error) {
	switch s {
	case "debug", "DEBUG":
		return zapcore.DebugLevel, nil
	case "", "info", "INFO":
		return zapcore.InfoLevel, nil
	case "warn", "WARN":
		return zapcore.WarnLevel, nil
	case "error", "ERROR":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("logging: unknown level %q", s)
	}
}

// NewLogger constructs a zap-backed Logger according to cfg.
func NewLogger(cfg LogConfig) (Logger, error) {
	if cfg.OutputPaths == nil {
		cfg.OutputPaths = []string{"stdout"}
	}
	if len(cfg.OutputPaths) == 0 {
		return nil, fmt.Errorf("logging: at least one output path is required")
	}
	if len(cfg.ErrorOutputPaths) == 0 {
		cfg.ErrorOutputPaths = []string{"stderr"}
	}

	level, _ := ParseLevel(cfg.Level)

	var encCfg zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encCfg = zap.NewDevelopmentEncoderConfig()
		encoding = "console"
	} else {
		encCfg = zap.NewProductionEncoderConfig()
	}
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      encoding == "console",
		Encoding:         encoding,
		EncoderConfig:    encCfg,
		OutputPaths:      cfg.OutputPaths,
		ErrorOutputPaths: cfg.ErrorOutputPaths,
	}

	z, err := zapCfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("logging: failed to build zap logger: %w", err)
	}
	return &zapLogger{z: z}, nil
}

// NewDefaultLogger returns a JSON info-level Logger writing to stdout, or a
// nop Logger if zap cannot be built.
func NewDefaultLogger() Logger {
	l, err := NewLogger(LogConfig{Level: LevelInfo, Format: "json"})
	if err != nil {
		return NewNopLogger()
	}
	return l
}

// NewDevelopmentLogger returns a console debug-level Logger writing to stderr.
func NewDevelopmentLogger() Logger {
	l, err := NewLogger(LogConfig{Level: LevelDebug, Format: "console", OutputPaths: []string{"stderr"}})
	if err != nil {
		return NewNopLogger()
	}
	return l
}

// NewLoggerFromCore constructs a Logger from an existing zapcore.Core.
func NewLoggerFromCore(core zapcore.Core) Logger {
	return &zapLogger{z: zap.New(core, zap.AddCallerSkip(1))}
}

// ─────────────────────────────────────────────────────────────────────────────
// nopLogger
// ─────────────────────────────────────────────────────────────────────────────

type nopLogger struct{}

func (nopLogger) Debug(_ string, _ ...Field)  {}
func (nopLogger) Info(_ string, _ ...Field)   {}
func (nopLogger) Warn(_ string, _ ...Field)   {}
func (nopLogger) Error(_ string, _ ...Field)  {}
func (nopLogger) Fatal(_ string, _ ...Field)  {}
func (n nopLogger) With(_ ...Field) Logger    { return n }
func (n nopLogger) Named(_ string) Logger     { return n }
func (n nopLogger) WithError(_ error) Logger  { return n }
func (nopLogger) Sync() error                 { return nil }

// NewNopLogger returns a Logger that discards all entries.
func NewNopLogger() Logger { return nopLogger{} }

// ─────────────────────────────────────────────────────────────────────────────
// Process default
// ─────────────────────────────────────────────────────────────────────────────

var (
	defaultMu     sync.RWMutex
	defaultLogger Logger = nopLogger{}
)

// SetDefault replaces the process-wide default Logger. nil is ignored.
func SetDefault(l Logger) {
	if l == nil {
		return
	}
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// Default returns the process-wide default Logger.
func Default() Logger {
	defaultMu.RLock()
	l := defaultLogger
	defaultMu.RUnlock()
	return l
}

// slowOperationThreshold is the duration above which LogOperationDuration
// logs at WARN.
const slowOperationThreshold = 30 * time.Second

// LogOperationDuration logs the completion of a named pipeline stage that
// started at start.
func LogOperationDuration(l Logger, operation string, start time.Time, fields ...Field) {
	elapsed := time.Since(start)
	fields = append(fields, String("operation", operation), Int64("duration_ms", elapsed.Milliseconds()))
	if elapsed > slowOperationThreshold {
		l.Warn("slow operation completed", fields...)
		return
	}
	l.Info("operation completed", fields...)
}

//Personal.AI order the ending
