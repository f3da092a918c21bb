// Package server provides the runtime context shared by the MCP tools
// and the interactive chat loop.
//
// # Key Components
//
// ServerContext manages Google Calendar clients and OpenAI chat clients
// with lazy initialization and per-account caching. Calendar clients are
// only constructed once an OAuth token exists for the account, so the
// server can start before any account has been authorized.
//
// SessionManager caches one assistant session per Google account. A
// session carries the conversational state of the assistant (pending
// confirmations and clarifications), so routing every turn for an
// account through the same session keeps multi-turn exchanges coherent.
// Idle sessions are evicted after a timeout.
//
// MetricsServer exposes Prometheus metrics and a health endpoint on a
// separate HTTP listener, independent of the MCP stdio transport.
package server
