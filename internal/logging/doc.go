// Package logging provides structured logging for netdisco.
//
// This package wraps a zap logger with convenience functions for the
// discovery components. The global logger is configured once by the CLI;
// library packages receive a *zap.Logger explicitly and treat nil as a
// no-op sink (see OrNop).
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (raw packets, dropped records)
//   - Info: Normal operations (scan cycles, lifecycle changes)
//   - Warn: Non-fatal issues (description fetch failures, browse errors)
//   - Error: Failures surfaced to the operator
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When no level is given the NETDISCO_LOG_LEVEL environment variable is
// consulted. If that is empty too, logging stays silent so command output
// is not interleaved with diagnostics.
//
// # Component Loggers
//
//	nd, err := discovery.New(discovery.Options{
//	    Logger: logging.Named("discovery"),
//	})
//
// # Thread Safety
//
// All logging functions are safe for concurrent use.
package logging
