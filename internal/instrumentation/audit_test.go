package instrumentation

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

const (
	testTurnID    = "6f1c2a3b"
	testUtterance = "cancel my 3pm with dr. smith"
)

func TestTurnRecord_NewAndComplete(t *testing.T) {
	tr := NewTurnRecord(testTurnID, testUtterance)

	if tr.TurnID != testTurnID {
		t.Errorf("TurnID = %q, want %q", tr.TurnID, testTurnID)
	}
	if tr.StartTime.IsZero() {
		t.Error("StartTime should not be zero")
	}

	tr.WithAction("delete").Complete("applied", "ev42", nil)

	if tr.ActionKind != "delete" {
		t.Errorf("ActionKind = %q, want %q", tr.ActionKind, "delete")
	}
	if tr.Outcome != "applied" {
		t.Errorf("Outcome = %q, want %q", tr.Outcome, "applied")
	}
	if tr.EventID != "ev42" {
		t.Errorf("EventID = %q, want %q", tr.EventID, "ev42")
	}
	if tr.Duration < 0 {
		t.Error("Duration should not be negative")
	}
	if tr.Error != "" {
		t.Errorf("Error = %q, want empty", tr.Error)
	}
}

func TestTurnRecord_CompleteWithError(t *testing.T) {
	tr := NewTurnRecord(testTurnID, testUtterance)
	tr.Complete("rejected", "", errors.New("version conflict"))

	if tr.Error != "version conflict" {
		t.Errorf("Error = %q, want %q", tr.Error, "version conflict")
	}
}

func auditOutput(t *testing.T, config AuditLoggingConfig, tr *TurnRecord) string {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	al := NewAuditLoggerWithConfig(logger, config)
	al.LogTurn(tr)
	return buf.String()
}

func TestAuditLogger_AnonymizesByDefault(t *testing.T) {
	tr := NewTurnRecord(testTurnID, testUtterance)
	tr.WithAction("delete").Complete("applied", "ev42", nil)

	out := auditOutput(t, AuditLoggingConfig{Enabled: true}, tr)

	if strings.Contains(out, "dr. smith") {
		t.Error("raw utterance must not appear in audit logs by default")
	}
	if !strings.Contains(out, "utterance_hash=") {
		t.Error("expected utterance_hash attribute")
	}
	if !strings.Contains(out, "turn_completed") {
		t.Error("expected turn_completed message")
	}
	if !strings.Contains(out, "event_id=ev42") {
		t.Error("expected event_id attribute")
	}
}

func TestAuditLogger_IncludeUtterances(t *testing.T) {
	tr := NewTurnRecord(testTurnID, testUtterance)
	tr.Complete("clarify", "", nil)

	out := auditOutput(t, AuditLoggingConfig{Enabled: true, IncludeUtterances: true}, tr)

	if !strings.Contains(out, "dr. smith") {
		t.Error("expected raw utterance when IncludeUtterances is set")
	}
}

func TestAuditLogger_FailedTurnLogsWarn(t *testing.T) {
	tr := NewTurnRecord(testTurnID, testUtterance)
	tr.Complete("rejected", "", errors.New("backend down"))

	out := auditOutput(t, AuditLoggingConfig{Enabled: true}, tr)

	if !strings.Contains(out, "turn_failed") {
		t.Error("expected turn_failed message for a turn with an error")
	}
	if !strings.Contains(out, "level=WARN") {
		t.Error("expected warn level")
	}
}

func TestAuditLogger_Disabled(t *testing.T) {
	tr := NewTurnRecord(testTurnID, testUtterance)
	tr.Complete("applied", "", nil)

	out := auditOutput(t, AuditLoggingConfig{Enabled: false}, tr)

	if out != "" {
		t.Errorf("expected no output when disabled, got %q", out)
	}
}

func TestAuditLogger_Setters(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	al.SetEnabled(false)
	al.LogTurn(NewTurnRecord(testTurnID, testUtterance).Complete("applied", "", nil))
	if buf.Len() != 0 {
		t.Error("expected no output after SetEnabled(false)")
	}

	al.SetEnabled(true)
	al.SetIncludeUtterances(true)
	al.LogTurn(NewTurnRecord(testTurnID, testUtterance).Complete("applied", "", nil))
	if !strings.Contains(buf.String(), "utterance=") {
		t.Error("expected raw utterance after SetIncludeUtterances(true)")
	}
}
