// Package logging provides structured logging for idecore.
//
// It wraps Go's log/slog to write JSON lines, either to a file in a log
// directory or to stderr. Components derive child loggers carrying the
// attributes that identify where an entry came from.
//
// # Thread Safety
//
// [Logger] is safe for concurrent use. Child loggers created via the With*
// methods share the underlying handler and file.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/path/to/logs", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	ctxLog := logger.WithContextID(id).WithProject("/src/app")
//	ctxLog.WithStep("load-history").Warn("history file unreadable", "error", err)
//
// Output:
//
//	{"time":"...","level":"WARN","msg":"history file unreadable","context_id":"...","project":"/src/app","step":"load-history","error":"..."}
//
// # Testing
//
// [NopLogger] discards everything. [NewWriterLogger] writes to any
// io.Writer so tests can decode and assert on entries.
package logging
