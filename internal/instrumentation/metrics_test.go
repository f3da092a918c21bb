package instrumentation

import (
	"context"
	"testing"
	"time"
)

func testProvider(t *testing.T, ctx context.Context) *Provider {
	t.Helper()

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: "prometheus",
		TracingExporter: "none",
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })
	return provider
}

func TestMetrics_RecordTurn(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := testProvider(t, ctx).Metrics()
	if metrics == nil {
		t.Fatal("expected metrics to be non-nil")
	}

	// Should not panic
	metrics.RecordTurn(ctx, "applied", 2*time.Second)
	metrics.RecordTurn(ctx, "clarify", 800*time.Millisecond)
	metrics.RecordTurn(ctx, "rejected", 1200*time.Millisecond)
}

func TestMetrics_RecordModelRequest(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := testProvider(t, ctx).Metrics()

	// Should not panic
	metrics.RecordModelRequest(ctx, "gpt-4o-mini", StatusSuccess, 900*time.Millisecond)
	metrics.RecordModelRequest(ctx, "gpt-4o-mini", StatusError, 30*time.Second)
}

func TestMetrics_RecordDispatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := testProvider(t, ctx).Metrics()

	// Should not panic
	metrics.RecordDispatch(ctx, "create", "applied")
	metrics.RecordDispatch(ctx, "delete", "rejected")
}

func TestMetrics_RecordCalendarOperation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := testProvider(t, ctx).Metrics()

	// Should not panic
	metrics.RecordCalendarOperation(ctx, OperationList, StatusSuccess, 200*time.Millisecond)
	metrics.RecordCalendarOperation(ctx, OperationCreate, StatusError, 500*time.Millisecond)
}

func TestMetrics_RecordOAuthTokenRefresh(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := testProvider(t, ctx).Metrics()

	// Should not panic
	metrics.RecordOAuthTokenRefresh(ctx, OAuthResultSuccess)
	metrics.RecordOAuthTokenRefresh(ctx, OAuthResultExpired)
}

func TestMetrics_RecordToolInvocation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := testProvider(t, ctx).Metrics()

	// Should not panic, with and without account
	metrics.RecordToolInvocation(ctx, "assistant_process", StatusSuccess, "", 1500*time.Millisecond)
	metrics.RecordToolInvocation(ctx, "calendar_list_events", StatusError, "work", 300*time.Millisecond)
}

func TestMetrics_ActiveSessions(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := testProvider(t, ctx).Metrics()

	// Should not panic
	metrics.IncrementActiveSessions(ctx)
	metrics.DecrementActiveSessions(ctx)
}

func TestMetrics_NilSafe(t *testing.T) {
	ctx := context.Background()

	// A zero-value Metrics must be safe to call (disabled instrumentation).
	m := &Metrics{}
	m.RecordTurn(ctx, "applied", time.Second)
	m.RecordModelRequest(ctx, "gpt-4o-mini", StatusSuccess, time.Second)
	m.RecordDispatch(ctx, "create", "applied")
	m.RecordCalendarOperation(ctx, OperationGet, StatusSuccess, time.Second)
	m.RecordOAuthTokenRefresh(ctx, OAuthResultSuccess)
	m.RecordToolInvocation(ctx, "assistant_process", StatusSuccess, "", time.Second)
	m.IncrementActiveSessions(ctx)
	m.DecrementActiveSessions(ctx)
}
