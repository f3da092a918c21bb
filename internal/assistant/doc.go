// Package assistant runs the conversation loop: each user turn flows through
// intent extraction, resolution, and dispatch, with confirmations and
// clarifying questions carried between turns.
package assistant
