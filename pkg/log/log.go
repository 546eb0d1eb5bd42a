// Package log configures the zap logger of the sync job. Lines are written
// to stdout in console format so a cron or CI scheduler keeps them next to
// the printed run counts.
package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLog builds the process logger at lvl. fields are attached to every line.
func InitLog(lvl zap.AtomicLevel, fields ...zap.Field) *zap.Logger {
	cfg := zap.Config{
		Level:            lvl,
		Encoding:         "console",
		EncoderConfig:    encoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	logger, err := cfg.Build(zap.AddStacktrace(zap.DPanicLevel), zap.Fields(fields...))
	if err != nil {
		panic(err)
	}
	return logger
}

func encoderConfig() zapcore.EncoderConfig {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "time"
	enc.LevelKey = "severity"
	enc.MessageKey = "message"
	enc.EncodeTime = zapcore.RFC3339TimeEncoder
	enc.EncodeDuration = zapcore.MillisDurationEncoder
	return enc
}

// LevelFromString parses a level name ("debug", "info", ...). Unknown names fall back to info.
func LevelFromString(level string) zap.AtomicLevel {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	return lvl
}
