// Package log is the process-wide structured logger of g3. It wraps
// go.uber.org/zap with a JSON production encoder and a level that can be
// changed at runtime, either from LOG_LEVEL or from the `log` section of a
// loaded configuration.
package log

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var level = zap.NewAtomicLevelAt(zap.InfoLevel)

// Logger is the global logger instance.
var Logger = newLogger()

func newLogger() *zap.SugaredLogger {
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		if l, err := zapcore.ParseLevel(env); err == nil {
			level.SetLevel(l)
		}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableCaller = true

	l, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// SetLevel changes the minimum enabled level of Logger.
func SetLevel(l zapcore.Level) { level.SetLevel(l) }

// Level returns the minimum enabled level of Logger.
func Level() zapcore.Level { return level.Level() }

// With returns a child logger carrying the key-value pairs on every entry.
func With(kv ...any) *zap.SugaredLogger { return Logger.With(kv...) }

// Sync flushes buffered entries.
func Sync() error { return Logger.Sync() }

// Info logs msg at info level with alternating key-value pairs.
func Info(msg string, kv ...any) { Logger.Infow(msg, kv...) }

// Infof logs a printf style message at info level.
func Infof(format string, a ...any) { Logger.Infof(format, a...) }

// Warn logs msg at warn level with alternating key-value pairs.
func Warn(msg string, kv ...any) { Logger.Warnw(msg, kv...) }

// Warnf logs a printf style message at warn level.
func Warnf(format string, a ...any) { Logger.Warnf(format, a...) }

// Error logs msg at error level with alternating key-value pairs.
func Error(msg string, kv ...any) { Logger.Errorw(msg, kv...) }

// Errorf logs a printf style message at error level.
func Errorf(format string, a ...any) { Logger.Errorf(format, a...) }

// Debug logs msg at debug level with alternating key-value pairs.
func Debug(msg string, kv ...any) { Logger.Debugw(msg, kv...) }

// Debugf logs a printf style message at debug level.
func Debugf(format string, a ...any) { Logger.Debugf(format, a...) }

// Fatal logs msg at fatal level and exits the process with status 1.
func Fatal(msg string, kv ...any) { Logger.Fatalw(msg, kv...) }

// Fatalf logs a printf style message at fatal level and exits with status 1.
func Fatalf(format string, a ...any) { Logger.Fatalf(format, a...) }
