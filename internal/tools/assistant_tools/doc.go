// Package assistant_tools exposes the calendar assistant over MCP. The
// assistant_process tool runs one conversation turn through the extraction,
// resolution, and dispatch pipeline; assistant_reset clears a stuck
// conversation; calendar_list_events gives direct read access to the
// calendar for callers that do not need natural language.
package assistant_tools
