// Package logging builds the go-kit/log logger threaded through the
// orchestrator and every stage, the same logging library the teacher uses
// for its Iceberg maintenance goroutine (integrations/iceberg.go).
package logging

import (
	"os"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// New builds a logfmt logger filtered to the given level name
// ("debug", "info", "warn", "error"; unrecognized values default to info).
func New(levelName string) log.Logger {
	base := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	base = log.With(base, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	return level.NewFilter(base, parseLevel(levelName))
}

func parseLevel(name string) level.Option {
	switch name {
	case "debug":
		return level.AllowDebug()
	case "warn":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}

// WithFile annotates a logger with the identifiers the orchestrator
// carries through an invocation: the file hash and the target table name.
func WithFile(logger log.Logger, fileHash, tableName string) log.Logger {
	return log.With(logger, "file_hash", fileHash, "table", tableName)
}

// Info, Warn and Error are small convenience wrappers matching the
// level.Error(logger).Log(...) call shape used throughout the teacher's
// integrations package.
func Info(logger log.Logger, keyvals ...any) {
	level.Info(logger).Log(keyvals...)
}

func Warn(logger log.Logger, keyvals ...any) {
	level.Warn(logger).Log(keyvals...)
}

func Error(logger log.Logger, keyvals ...any) {
	level.Error(logger).Log(keyvals...)
}

// Since is a small helper for logging a stage's elapsed duration.
func Since(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
