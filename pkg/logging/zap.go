package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ZapOptions configures the zap-backed Logger used by the daemon binaries.
type ZapOptions struct {
	// Level is one of "debug", "info", "warn", "error". Empty means info.
	Level string
	// FilePath enables rotating file output in addition to stdout.
	FilePath string
	// MaxSizeMB / MaxBackups bound the rotated file output. Zero values
	// fall back to 50 MB and 5 backups.
	MaxSizeMB  int
	MaxBackups int
}

// NewZapLogger builds a Logger backed by a zap sugared logger. The returned
// flush function must be called before process exit.
func NewZapLogger(options ZapOptions) (Logger, func()) {
	level := parseLevel(options.Level)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewConsoleEncoder(encoderConfig)

	sinks := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
	if options.FilePath != "" {
		maxSize := options.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 50
		}
		maxBackups := options.MaxBackups
		if maxBackups <= 0 {
			maxBackups = 5
		}
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   options.FilePath,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			Compress:   true,
		}))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level)
	zapLogger := zap.New(core)
	sugar := zapLogger.Sugar()

	logger := NewLogger("", LogFuncs{
		Debugf: sugar.Debugf,
		Infof:  sugar.Infof,
		Warnf:  sugar.Warnf,
		Errorf: sugar.Errorf,
	})

	return logger, func() { _ = zapLogger.Sync() }
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "", "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
