// internal/logger/logger.go
package logger

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config configures the process logger.
type Config struct {
	Level      string // debug, info, warn, error
	File       string // JSON log file; empty disables the file sink
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
	Compress   bool
	Pretty     bool // coloured one-line console output instead of plain console encoding
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		File:       "logs/launchlab.log",
		MaxSizeMB:  100,
		MaxAgeDays: 7,
		MaxBackups: 3,
		Compress:   true,
		Pretty:     true,
	}
}

// Logger extends zap.Logger with correlation helpers.
type Logger struct {
	*zap.Logger
	rotator *lumberjack.Logger
}

// New builds a logger writing to stdout and, when cfg.File is set, to a
// rotated JSON file.
func New(cfg Config) (*Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var console zapcore.Core
	if cfg.Pretty {
		console = &prettyCore{core: zapcore.NewCore(PrettyEncoder(), zapcore.Lock(os.Stdout), level)}
	} else {
		console = zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stdout), level)
	}

	cores := []zapcore.Core{console}
	var rotator *lumberjack.Logger
	if cfg.File != "" {
		rotator = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), level))
	}

	return &Logger{
		Logger: zap.New(zapcore.NewTee(cores...),
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
		),
		rotator: rotator,
	}, nil
}

// WithOperation returns a logger stamped with a fresh correlation id.
func WithOperation(l *zap.Logger, operation string) (*zap.Logger, string) {
	id := uuid.New().String()
	return l.With(
		zap.String("operation", operation),
		zap.String("correlation_id", id),
	), id
}

// TrackPerformance logs the duration of an operation when the returned func is called.
func TrackPerformance(l *zap.Logger, operation string) (end func()) {
	start := time.Now()
	opLogger, _ := WithOperation(l, operation)

	opLogger.Debug("Starting operation")

	return func() {
		duration := time.Since(start)
		opLogger.Debug("Operation completed",
			zap.Duration("duration", duration),
			zap.Float64("duration_ms", float64(duration.Microseconds())/1000),
		)
	}
}

// Sync flushes buffered entries, ignoring the errors stdout returns when it
// is a terminal.
func (l *Logger) Sync() error {
	err := l.Logger.Sync()
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		err = nil
	}
	return err
}

// Close syncs the logger and closes the file sink.
func (l *Logger) Close() error {
	syncErr := l.Sync()
	if l.rotator == nil {
		return syncErr
	}
	return errors.Join(syncErr, l.rotator.Close())
}
