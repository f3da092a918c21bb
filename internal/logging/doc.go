// Package logging provides structured logging helpers built on log/slog.
//
// It defines canonical attribute keys used across the pipeline (operation,
// component, action, turn, status, error) together with typed attribute
// constructors, so log lines stay queryable regardless of which package
// emitted them. User utterances are never logged verbatim; Utterance hashes
// them first.
package logging
