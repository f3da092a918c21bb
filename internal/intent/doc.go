// Package intent extracts structured calendar actions from natural-language
// utterances.
//
// The extractor makes a single model round trip per utterance, offering the
// model a fixed set of calendar tools (create, update, delete, list) and
// strictly validating the returned tool call against the action schema.
// Output that does not match the schema is an ExtractionError; the turn is
// aborted rather than guessed at. Relative time expressions and free-text
// event targets pass through unresolved; package resolver converts them to
// absolute values against live calendar state.
package intent
