// Package logger wraps zap with the small, call-site-stable surface the
// rest of this module depends on so nothing outside this package needs to
// import zap directly.
package logger

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field is a structured logging field, re-exported from zap so call sites
// never need the zap import.
type Field = zap.Field

// Config controls logger construction.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // console or json
}

// Logger is a named, structured logger.
type Logger struct {
	z *zap.Logger
}

// New builds a Logger from Config.
func New(cfg Config) (*Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, err
		}
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
	}

	zcfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      false,
		Encoding:         encoding,
		EncoderConfig:    encoderCfg,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	z, err := zcfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}

	return &Logger{z: z}, nil
}

// NewNop returns a Logger that discards everything, for tests.
func NewNop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// Named returns a child logger with the given name appended.
func (l *Logger) Named(name string) *Logger {
	return &Logger{z: l.z.Named(name)}
}

// With returns a child logger with the given fields always attached.
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{z: l.z.With(fields...)}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.z.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.z.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.z.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...Field) { l.z.Error(msg, fields...) }

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error { return l.z.Sync() }

// Field constructors, thin aliases over zap's so this package is the only
// place that imports zap.
func String(key, val string) Field           { return zap.String(key, val) }
func Int(key string, val int) Field          { return zap.Int(key, val) }
func Float64(key string, val float64) Field  { return zap.Float64(key, val) }
func Bool(key string, val bool) Field        { return zap.Bool(key, val) }
func Error(err error) Field                  { return zap.Error(err) }
func Any(key string, val any) Field          { return zap.Any(key, val) }
func Time(key string, val time.Time) Field   { return zap.Time(key, val) }
func Duration(key string, d time.Duration) Field { return zap.Duration(key, d) }
