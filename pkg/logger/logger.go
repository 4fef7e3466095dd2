package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Leveled logger used across the session service.
// - package-level Debugf/Infof/Warnf/Errorf/Fatalf backed by zap
// - Init(level) may be called again at any time; InitWithEnvironment picks the encoder

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var (
	mu      sync.RWMutex
	out     io.Writer = os.Stdout
	json    bool
	atom              = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	level   Level     = LevelInfo
	sugared *zap.SugaredLogger
)

func init() {
	rebuild()
}

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Call early during startup. Default level is Info.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	s := strings.ToLower(strings.TrimSpace(l))
	switch s {
	case "debug":
		level = LevelDebug
	case "warn", "warning":
		level = LevelWarn
	case "error":
		level = LevelError
	case "fatal":
		level = LevelFatal
	default:
		level = LevelInfo
	}
	atom.SetLevel(zapLevel(level))
}

// InitWithEnvironment sets the level and switches to JSON output in production.
func InitWithEnvironment(l, environment string) {
	Init(l)
	mu.Lock()
	json = strings.EqualFold(environment, "production")
	rebuild()
	mu.Unlock()
}

// setOutput redirects log output; tests use it to capture lines.
func setOutput(w io.Writer) {
	mu.Lock()
	out = w
	rebuild()
	mu.Unlock()
}

// rebuild must be called with mu held (or from init).
func rebuild() {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	enc.EncodeCaller = zapcore.ShortCallerEncoder

	var encoder zapcore.Encoder
	if json {
		encoder = zapcore.NewJSONEncoder(enc)
	} else {
		encoder = zapcore.NewConsoleEncoder(enc)
	}
	core := zapcore.NewCore(encoder, zapcore.AddSync(out), atom)
	sugared = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

func zapLevel(l Level) zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	case LevelFatal:
		return zapcore.FatalLevel
	}
	return zapcore.InfoLevel
}

func get() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugared
}

func Debugf(format string, v ...interface{}) { get().Debugf(format, v...) }
func Infof(format string, v ...interface{})  { get().Infof(format, v...) }
func Warnf(format string, v ...interface{})  { get().Warnf(format, v...) }
func Errorf(format string, v ...interface{}) { get().Errorf(format, v...) }

// Fatalf always logs, then exits the process.
func Fatalf(format string, v ...interface{}) {
	l := get()
	l.Errorf("FATAL: "+format, v...)
	_ = l.Sync()
	os.Exit(1)
}

// With returns a sugared logger carrying the given key/value pairs, e.g. With("user_id", id).
func With(kv ...interface{}) *zap.SugaredLogger {
	return get().With(kv...)
}

// Sync flushes buffered entries; call before exit.
func Sync() error {
	return get().Sync()
}

// LevelString returns the current level as text.
func LevelString() string {
	mu.RLock()
	defer mu.RUnlock()
	switch level {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	}
	return "info"
}
