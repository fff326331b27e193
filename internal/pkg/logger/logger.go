package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Log is the global logger. It discards everything until Init is called,
	// so packages and tests can log without setup.
	Log = zap.NewNop()
)

// Init builds the global logger. encoding is "json" (default) or "console".
func Init(level, encoding string) error {
	logger, err := New(level, encoding)
	if err != nil {
		return err
	}
	Log = logger
	return nil
}

// New builds a production logger without touching the global one.
func New(level, encoding string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}
	if encoding != "console" {
		encoding = "json"
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
}

// WithContext returns the global logger with extra fields attached.
func WithContext(fields ...zapcore.Field) *zap.Logger {
	return Log.With(fields...)
}

// Debug logs at debug level.
func Debug(msg string, fields ...zapcore.Field) {
	Log.WithOptions(zap.AddCallerSkip(1)).Debug(msg, fields...)
}

// Info logs at info level.
func Info(msg string, fields ...zapcore.Field) {
	Log.WithOptions(zap.AddCallerSkip(1)).Info(msg, fields...)
}

// Warn logs at warn level.
func Warn(msg string, fields ...zapcore.Field) {
	Log.WithOptions(zap.AddCallerSkip(1)).Warn(msg, fields...)
}

// Error logs at error level.
func Error(msg string, fields ...zapcore.Field) {
	Log.WithOptions(zap.AddCallerSkip(1)).Error(msg, fields...)
}

// Fatal logs and exits the process.
func Fatal(msg string, fields ...zapcore.Field) {
	Log.WithOptions(zap.AddCallerSkip(1)).Fatal(msg, fields...)
	os.Exit(1)
}

// Field creates a loosely typed field.
func Field(key string, value interface{}) zapcore.Field {
	return zap.Any(key, value)
}

// Sync flushes buffered entries; errors from syncing stdout are ignored.
func Sync() {
	_ = Log.Sync()
}
