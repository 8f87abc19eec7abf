// Package logging assembles structured slog loggers and formatting helpers used
// across subwatch.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so pass-scoped code tags every line with the
// pass identifier. The package also provides a no-op logger for tests and wiring
// code that cannot fail.
package logging
