// Package logging provides structured logging for Environmental Cloud Core.
//
// It wraps log/slog with level filtering, JSON or text output, and default
// service attributes. Components receive a *Logger (or the small Logger
// interface declared where it is consumed) via dependency injection.
package logging
