// Package common provides shared utilities for MCP tool implementations:
// account extraction from request arguments and instrumentation wrappers
// that give every tool the same metrics and tracing treatment.
package common
