// Package resolver turns extracted action drafts into dispatchable actions.
// It resolves relative time expressions against the utterance timestamp and
// pins free-text event references to concrete event IDs, asking the user for
// clarification whenever a reference is ambiguous.
package resolver
