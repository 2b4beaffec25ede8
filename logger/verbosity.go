package logger

import "go.uber.org/zap/zapcore"

// Verbosity level constants for CLI flag counts.
const (
	VerbosityUser  = 0 // No flags: results and errors only
	VerbosityInfo  = 1 // -v: + progress, dispatch summaries
	VerbosityDebug = 2 // -vv: + compiled restrictions, paging, retries
	VerbosityTrace = 3 // -vvv: + full request/response bodies
)

// VerbosityToLevel maps verbosity flags (-v, -vv, etc.) to zap log levels.
//
// Mapping:
//
//	0 (none)  -> WarnLevel  (errors and warnings only)
//	1 (-v)    -> InfoLevel  (+ informational messages)
//	2+ (-vv)  -> DebugLevel (+ debug messages)
func VerbosityToLevel(verbosity int) zapcore.Level {
	switch verbosity {
	case VerbosityUser:
		return zapcore.WarnLevel
	case VerbosityInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}
