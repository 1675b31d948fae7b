// Package logger configures the process-wide zap logger.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the shared application logger. Call Init before use.
var Log *zap.Logger

// Init builds the global logger. A non-empty logFile switches to the JSON
// production encoder writing to both the file and stdout; otherwise the
// console development encoder is used.
func Init(level string, logFile string) error {
	var cfg zap.Config

	if logFile != "" {
		cfg = zap.NewProductionConfig()
		cfg.OutputPaths = []string{logFile, "stdout"}
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))

	var err error
	Log, err = cfg.Build()
	return err
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Sync flushes any buffered log entries.
func Sync() error {
	if Log != nil {
		return Log.Sync()
	}
	return nil
}
