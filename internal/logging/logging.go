// Package logging builds the server's zap logger on top of a rotating file.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// TimeLayout is the local timestamp written in front of every entry.
const TimeLayout = "2006-01-02 15:04:05"

type Config struct {
	File       string
	Level      string
	MaxSizeMB  int
	MaxBackups int
	Stderr     bool
}

// New returns a logger appending to cfg.File. The file is rotated once it
// grows past MaxSizeMB. Write failures are swallowed: logging is best effort
// and never stops the server.
func New(cfg Config) (*zap.Logger, io.Closer, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: %w", err)
	}

	sink := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		LocalTime:  true,
	}

	enc := zapcore.NewConsoleEncoder(encoderConfig())
	core := zapcore.NewCore(enc, zapcore.AddSync(sink), level)
	if cfg.Stderr {
		core = zapcore.NewTee(core, zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level))
	}

	return zap.New(core, zap.ErrorOutput(zapcore.AddSync(io.Discard))), sink, nil
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "ts",
		LevelKey:         "level",
		NameKey:          "logger",
		MessageKey:       "msg",
		StacktraceKey:    "stacktrace",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeTime:       encodeTime,
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: " ",
	}
}

func encodeTime(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + t.Local().Format(TimeLayout) + "]")
}
