// Package instrumentation provides OpenTelemetry instrumentation for the
// voicecal assistant.
//
// This package enables production-grade observability through:
//   - OpenTelemetry metrics for conversation turns, model requests, and calendar operations
//   - Distributed tracing across the extract/resolve/dispatch pipeline
//   - Prometheus metrics export via /metrics endpoint on a dedicated port
//   - OTLP export support for modern observability platforms
//
// # Metrics
//
// Conversation metrics:
//   - assistant_turns_total: Counter of turns by outcome
//   - assistant_turn_duration_seconds: Histogram of end-to-end turn durations
//   - active_sessions: Gauge of active assistant sessions
//
// Model boundary metrics:
//   - model_requests_total: Counter of extraction requests by model and status
//   - model_request_duration_seconds: Histogram of model request durations
//
// Calendar metrics:
//   - dispatches_total: Counter of dispatched actions by kind and status
//   - calendar_api_operations_total: Counter of Calendar API operations
//   - calendar_api_operation_duration_seconds: Histogram of Calendar API durations
//
// OAuth metrics:
//   - oauth_token_refresh_total: Counter of token refresh attempts by result
//
// MCP tool metrics:
//   - mcp_tool_invocations_total: Counter of tool invocations by name and status
//   - mcp_tool_duration_seconds: Histogram of tool execution durations
//
// # Tracing
//
// Spans are created for conversation turns (assistant.turn), MCP tool
// invocations (tool.<name>), and Calendar API calls (calendar.<operation>).
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: voicecal)
//   - AUDIT_LOGGING_INCLUDE_UTTERANCES: Log raw utterance text (default: false)
package instrumentation
