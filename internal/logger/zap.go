package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap's SugaredLogger.
type Logger struct {
	*zap.SugaredLogger
}

// Unknown level strings fall back to info.
const defaultZapLevel = zapcore.InfoLevel

func toZapLevel(levelStr string) zapcore.Level {
	switch levelStr {
	case DebugLevel:
		return zapcore.DebugLevel
	case InfoLevel:
		return zapcore.InfoLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return defaultZapLevel
	}
}

func newEncoder(format string) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	if format == FormatJSON {
		return zapcore.NewJSONEncoder(cfg)
	}
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

func newCore(enc zapcore.Encoder, ws zapcore.WriteSyncer, level zapcore.Level) zapcore.Core {
	return zapcore.NewCore(enc, ws, zap.NewAtomicLevelAt(level))
}

// New builds a sugared logger writing to stdout.
func New(level, format string) *Logger {
	core := newCore(newEncoder(format), zapcore.Lock(os.Stdout), toZapLevel(level))
	return &Logger{SugaredLogger: zap.New(core, zap.AddCaller()).Sugar()}
}

// NewWithSyncer is New with a custom destination, used by tests.
func NewWithSyncer(level, format string, ws zapcore.WriteSyncer) *Logger {
	core := newCore(newEncoder(format), ws, toZapLevel(level))
	return &Logger{SugaredLogger: zap.New(core).Sugar()}
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}
