// Package logging wraps log/slog construction and the typed attribute
// helpers used throughout the pipeline.
//
// Loggers are built from the application config: console (text) output when
// attached to a terminal, JSON otherwise, with an optional append-only log
// file alongside. Field name constants keep event attributes consistent so
// downstream log tooling can filter on them.
package logging
