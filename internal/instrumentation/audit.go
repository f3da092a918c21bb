package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/voicecal/voicecal/internal/logging"
)

// TurnRecord captures one conversation turn for the audit trail: what the
// user asked, what action was taken, and how it ended.
//
// # Privacy Considerations
//
// The Utterance field is user speech and may contain personal details. When
// logging, the anonymized hash is used unless the audit logger is explicitly
// configured to include raw utterances. Reply text is never logged.
type TurnRecord struct {
	// TurnID identifies the turn across log lines and spans.
	TurnID string

	// Utterance is the raw user input for the turn.
	Utterance string

	// ActionKind is the extracted action (create, update, delete, query),
	// empty when extraction failed.
	ActionKind string

	// Outcome is the terminal state (applied, rejected, clarify, confirm).
	Outcome string

	// EventID is the affected calendar event, when any.
	EventID string

	// Execution details
	StartTime time.Time
	Duration  time.Duration
	Error     string

	// Tracing context
	TraceID string
	SpanID  string
}

// NewTurnRecord creates a record with timing started. Call Complete when the
// turn finishes.
func NewTurnRecord(turnID, utterance string) *TurnRecord {
	return &TurnRecord{
		TurnID:    turnID,
		Utterance: utterance,
		StartTime: time.Now(),
	}
}

// WithAction sets the extracted action kind.
func (tr *TurnRecord) WithAction(kind string) *TurnRecord {
	tr.ActionKind = kind
	return tr
}

// WithSpanContext extracts trace context from the current span.
func (tr *TurnRecord) WithSpanContext(ctx context.Context) *TurnRecord {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		tr.TraceID = span.SpanContext().TraceID().String()
		tr.SpanID = span.SpanContext().SpanID().String()
	}
	return tr
}

// Complete marks the turn as finished and calculates its duration.
func (tr *TurnRecord) Complete(outcome, eventID string, err error) *TurnRecord {
	tr.Duration = time.Since(tr.StartTime)
	tr.Outcome = outcome
	tr.EventID = eventID
	if err != nil {
		tr.Error = err.Error()
	}
	return tr
}

// logAttrs returns the slog attributes for the record. includeUtterance
// controls whether the raw text or only its hash is included.
func (tr *TurnRecord) logAttrs(includeUtterance bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("turn", tr.TurnID),
		slog.String("outcome", tr.Outcome),
		slog.Duration("duration", tr.Duration),
	}

	if includeUtterance {
		attrs = append(attrs, slog.String("utterance", tr.Utterance))
	} else {
		attrs = append(attrs, slog.String("utterance_hash", logging.AnonymizeUtterance(tr.Utterance)))
	}
	if tr.ActionKind != "" {
		attrs = append(attrs, slog.String("action", tr.ActionKind))
	}
	if tr.EventID != "" {
		attrs = append(attrs, slog.String("event_id", tr.EventID))
	}
	if tr.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", tr.TraceID))
	}
	if tr.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", tr.SpanID))
	}
	if tr.Error != "" {
		attrs = append(attrs, slog.String("error", tr.Error))
	}

	return attrs
}

// AuditLogger writes the per-turn audit trail. It wraps slog.Logger with PII
// controls: raw utterance text only appears when explicitly enabled.
type AuditLogger struct {
	logger            *slog.Logger
	includeUtterances bool
	enabled           bool
}

// NewAuditLogger creates an AuditLogger that logs anonymized utterance
// hashes.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:  logger,
		enabled: true,
	}
}

// NewAuditLoggerWithConfig creates an AuditLogger with the given
// configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:            logger,
		includeUtterances: config.IncludeUtterances,
		enabled:           config.Enabled,
	}
}

// SetIncludeUtterances sets whether raw utterance text appears in audit logs.
func (al *AuditLogger) SetIncludeUtterances(include bool) {
	al.includeUtterances = include
}

// SetEnabled sets whether audit logging is enabled.
func (al *AuditLogger) SetEnabled(enabled bool) {
	al.enabled = enabled
}

// LogTurn writes one audit line for a finished turn. Failed turns log at
// warn level so they stand out in operational views.
func (al *AuditLogger) LogTurn(tr *TurnRecord) {
	if !al.enabled {
		return
	}

	attrs := tr.logAttrs(al.includeUtterances)
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if tr.Error != "" {
		al.logger.Warn("turn_failed", args...)
	} else {
		al.logger.Info("turn_completed", args...)
	}
}
