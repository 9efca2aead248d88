// Package logging builds the slog loggers used by the assembly CLI.
//
// It owns the console and JSON handlers, level parsing, optional mirroring of
// records into a JSON log file, and helpers that tag records with the run
// identifier and time point carried on a context. NewNop backs tests and
// wiring code that has no logger.
package logging
