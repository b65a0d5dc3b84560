// Package logging builds slog loggers for the um service and CLI.
//
// It supplies console and JSON handlers, attribute helpers shared across
// packages, and a no-op logger for tests. Components derive their loggers
// through NewComponentLogger so log lines carry a stable component field.
package logging
