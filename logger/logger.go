package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the global logger instance
	Logger *zap.SugaredLogger
	// JSONOutput tracks whether JSON output is enabled
	JSONOutput bool
)

func init() {
	// Initialize with a safe no-op logger at package load time.
	// This prevents nil pointer panics if the logger is used before
	// Initialize() is called.
	Logger = zap.NewNop().Sugar()
}

// Initialize sets up the global logger based on the JSON output preference.
func Initialize(jsonOutput bool) error {
	return InitializeWithLevel(jsonOutput, zapcore.InfoLevel)
}

// InitializeWithLevel sets up the global logger with an explicit level,
// typically derived from CLI verbosity flags via VerbosityToLevel.
func InitializeWithLevel(jsonOutput bool, level zapcore.Level) error {
	JSONOutput = jsonOutput

	var zapLogger *zap.Logger
	var err error

	if jsonOutput {
		// JSON structured output for machine consumption
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(level)
		zapLogger, err = config.Build()
	} else {
		// Human-readable console output
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapLogger = zap.New(
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(encoderConfig),
				zapcore.AddSync(os.Stdout),
				level,
			),
		)
	}

	if err != nil {
		return err
	}

	Logger = zapLogger.Sugar()
	return nil
}

// Get returns the global logger, never nil.
func Get() *zap.SugaredLogger {
	return Logger
}

// Package-level logging helpers delegating to the global logger.

func Debugw(msg string, keysAndValues ...interface{}) { Logger.Debugw(msg, keysAndValues...) }
func Infow(msg string, keysAndValues ...interface{})  { Logger.Infow(msg, keysAndValues...) }
func Warnw(msg string, keysAndValues ...interface{})  { Logger.Warnw(msg, keysAndValues...) }
func Errorw(msg string, keysAndValues ...interface{}) { Logger.Errorw(msg, keysAndValues...) }

// Sync flushes buffered log entries. Call before process exit.
func Sync() {
	_ = Logger.Sync()
}
