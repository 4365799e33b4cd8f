package logger

import (
	"time"

	"github.com/fourpole/miniworks/sdk/contracts"
	"go.uber.org/zap"
)

// ZapLogger implements the Logger contract on top of Uber's zap.
type ZapLogger struct {
	logger *zap.Logger
	level  contracts.LogLevel
}

// NewZapLogger builds the default production logger.
func NewZapLogger() contracts.Logger {
	z, _ := zap.NewProduction(zap.AddCallerSkip(1))
	return &ZapLogger{logger: z, level: contracts.InfoLevel}
}

// NewNopLogger builds a logger that discards everything. Used in tests.
func NewNopLogger() contracts.Logger {
	return &ZapLogger{logger: zap.NewNop(), level: contracts.InfoLevel}
}

// severity orders contract levels for filtering. The contract declares its
// levels in an order that is not monotonic in severity, so they are ranked
// here instead of compared directly.
func severity(level contracts.LogLevel) int {
	switch level {
	case contracts.DebugLevel:
		return 0
	case contracts.InfoLevel:
		return 1
	case contracts.WarnLevel:
		return 2
	case contracts.ErrorLevel:
		return 3
	case contracts.FatalLevel:
		return 4
	}
	return 1
}

func (z *ZapLogger) enabled(level contracts.LogLevel) bool {
	return severity(level) >= severity(z.level)
}

// Info logs a message at the INFO level.
func (z *ZapLogger) Info(msg string, fields ...contracts.Field) {
	if z.enabled(contracts.InfoLevel) {
		z.logger.Info(msg, zapFields(fields)...)
	}
}

// Error logs a message at the ERROR level.
func (z *ZapLogger) Error(msg string, fields ...contracts.Field) {
	if z.enabled(contracts.ErrorLevel) {
		z.logger.Error(msg, zapFields(fields)...)
	}
}

// Debug logs a message at the DEBUG level.
func (z *ZapLogger) Debug(msg string, fields ...contracts.Field) {
	if z.enabled(contracts.DebugLevel) {
		z.logger.Debug(msg, zapFields(fields)...)
	}
}

// Warn logs a message at the WARN level.
func (z *ZapLogger) Warn(msg string, fields ...contracts.Field) {
	if z.enabled(contracts.WarnLevel) {
		z.logger.Warn(msg, zapFields(fields)...)
	}
}

// Fatal logs a message at the FATAL level and terminates the application.
func (z *ZapLogger) Fatal(msg string, fields ...contracts.Field) {
	z.logger.Fatal(msg, zapFields(fields)...)
}

// Field returns a new field builder.
func (z *ZapLogger) Field() contracts.Field {
	return &zapField{}
}

// SetLevel sets the logging level.
func (z *ZapLogger) SetLevel(level contracts.LogLevel) {
	z.level = level
}

// SetDestination is accepted for contract compatibility; zap output is
// configured at construction time.
func (z *ZapLogger) SetDestination(dest contracts.LogDestination, filePath ...string) {
}

// zapFields converts contract fields to zap fields.
func zapFields(fields []contracts.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		if f, ok := field.(*zapField); ok {
			out = append(out, zap.Any(f.key, f.value))
		}
	}
	return out
}

// zapField implements contracts.Field.
type zapField struct {
	key   string
	value interface{}
}

func (f *zapField) Bool(key string, val bool) contracts.Field {
	return &zapField{key, val}
}

func (f *zapField) Int(key string, val int) contracts.Field {
	return &zapField{key, val}
}

func (f *zapField) Float64(key string, val float64) contracts.Field {
	return &zapField{key, val}
}

func (f *zapField) String(key string, val string) contracts.Field {
	return &zapField{key, val}
}

func (f *zapField) Time(key string, val time.Time) contracts.Field {
	return &zapField{key, val}
}

func (f *zapField) Int64(key string, val int64) contracts.Field {
	return &zapField{key, val}
}

func (f *zapField) Error(key string, val error) contracts.Field {
	return &zapField{key, val}
}

func (f *zapField) Uint64(key string, val uint64) contracts.Field {
	return &zapField{key, val}
}

func (f *zapField) Uint8(key string, val uint8) contracts.Field {
	return &zapField{key, val}
}
