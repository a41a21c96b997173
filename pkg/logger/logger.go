// Package logger is the component-tagged logging front end used across the
// bot. Every entry carries a "component" field ("discord", "router", ...)
// plus optional structured fields.
package logger

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level = zapcore.Level

const (
	DEBUG = zapcore.DebugLevel
	INFO  = zapcore.InfoLevel
	WARN  = zapcore.WarnLevel
	ERROR = zapcore.ErrorLevel
	FATAL = zapcore.FatalLevel
)

// Options controls Init.
type Options struct {
	// Debug lowers the console level to DEBUG and annotates entries with
	// the caller's file and line.
	Debug bool
	// Dir, when set, additionally writes debug.log, error.log and
	// combined.log as JSON lines.
	Dir string
}

var (
	mu      sync.RWMutex
	current = newConsole(INFO)
	closers []func() error
)

func consoleCore(level Level) zapcore.Core {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), level)
}

func newConsole(level Level) *zap.Logger {
	return zap.New(consoleCore(level))
}

// Init replaces the process logger according to opts.
func Init(opts Options) error {
	level := INFO
	if opts.Debug {
		level = DEBUG
	}

	cores := []zapcore.Core{consoleCore(level)}

	var opened []func() error
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return err
		}
		jsonEnc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		files := []struct {
			name  string
			level zapcore.LevelEnabler
		}{
			{"debug.log", DEBUG},
			{"error.log", ERROR},
			{"combined.log", INFO},
		}
		for _, f := range files {
			fh, err := os.OpenFile(filepath.Join(opts.Dir, f.name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				for _, c := range opened {
					c()
				}
				return err
			}
			opened = append(opened, fh.Close)
			cores = append(cores, zapcore.NewCore(jsonEnc, zapcore.Lock(fh), f.level))
		}
	}

	zopts := []zap.Option{}
	if opts.Debug {
		// logf and the exported helper sit between zap and the caller.
		zopts = append(zopts, zap.AddCaller(), zap.AddCallerSkip(2))
	}

	mu.Lock()
	prevClosers := closers
	current = zap.New(zapcore.NewTee(cores...), zopts...)
	closers = opened
	mu.Unlock()

	for _, c := range prevClosers {
		c()
	}
	return nil
}

// Replace swaps the process logger, returning a func that restores the
// previous one. Tests use it with zaptest/observer.
func Replace(l *zap.Logger) func() {
	mu.Lock()
	prev := current
	current = l
	mu.Unlock()
	return func() {
		mu.Lock()
		current = prev
		mu.Unlock()
	}
}

// Sync flushes buffered entries and closes log files opened by Init.
func Sync() {
	mu.Lock()
	l := current
	cs := closers
	closers = nil
	mu.Unlock()

	_ = l.Sync()
	for _, c := range cs {
		c()
	}
}

func logf(level Level, component, msg string, fields map[string]any) {
	mu.RLock()
	l := current
	mu.RUnlock()

	ce := l.Check(level, msg)
	if ce == nil {
		return
	}
	zf := make([]zap.Field, 0, len(fields)+1)
	if component != "" {
		zf = append(zf, zap.String("component", component))
	}
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	ce.Write(zf...)
}

func Debug(msg string) { logf(DEBUG, "", msg, nil) }
func DebugC(component, msg string) { logf(DEBUG, component, msg, nil) }
func DebugCF(component, msg string, fields map[string]any) { logf(DEBUG, component, msg, fields) }
func Info(msg string) { logf(INFO, "", msg, nil) }
func InfoC(component, msg string) { logf(INFO, component, msg, nil) }
func InfoCF(component, msg string, fields map[string]any) { logf(INFO, component, msg, fields) }
func Warn(msg string) { logf(WARN, "", msg, nil) }
func WarnC(component, msg string) { logf(WARN, component, msg, nil) }
func WarnCF(component, msg string, fields map[string]any) { logf(WARN, component, msg, fields) }
func Error(msg string) { logf(ERROR, "", msg, nil) }
func ErrorC(component, msg string) { logf(ERROR, component, msg, nil) }
func ErrorCF(component, msg string, fields map[string]any) { logf(ERROR, component, msg, fields) }
func FatalCF(component, msg string, fields map[string]any) { logf(FATAL, component, msg, fields) }
