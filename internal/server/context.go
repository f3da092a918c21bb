package server

import (
	"context"
	"log/slog"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/voicecal/voicecal/internal/assistant"
	"github.com/voicecal/voicecal/internal/calendar"
	"github.com/voicecal/voicecal/internal/config"
	"github.com/voicecal/voicecal/internal/dispatch"
	"github.com/voicecal/voicecal/internal/instrumentation"
	"github.com/voicecal/voicecal/internal/intent"
	"github.com/voicecal/voicecal/internal/resolver"
)

// ServerContext holds the shared state for the MCP server: per-account
// calendar clients and assistant sessions, plus the instrumentation handles.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg        *config.Config
	chatClient *openai.Client

	calClients map[string]*calendar.Client
	sessions   *SessionManager

	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new server context. Calendar clients and
// sessions are created lazily on first use, so a missing OAuth token does not
// prevent startup; the auth tools can fix that while the server runs.
func NewServerContext(ctx context.Context, cfg *config.Config) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:        shutdownCtx,
		cancel:     cancel,
		cfg:        cfg,
		chatClient: openai.NewClient(cfg.OpenAIAPIKey),
		calClients: make(map[string]*calendar.Client),
	}
	sc.sessions = NewSessionManager(sc.buildSession)
	return sc
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Config returns the loaded configuration.
func (sc *ServerContext) Config() *config.Config {
	return sc.cfg
}

func (sc *ServerContext) retryPolicy() calendar.RetryPolicy {
	policy := calendar.DefaultRetryPolicy()
	policy.MaxRetries = uint64(sc.cfg.MaxRetries)
	policy.Timeout = sc.cfg.RequestTimeout
	return policy
}

// CalendarClientForAccount returns the calendar client for a specific
// account, creating and caching it on first use. Returns nil if the account
// has no stored OAuth token.
func (sc *ServerContext) CalendarClientForAccount(account string) *calendar.Client {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if client, ok := sc.calClients[account]; ok {
		return client
	}

	if !calendar.HasTokenForAccount(account) {
		return nil
	}

	client, err := calendar.NewClientForAccount(sc.ctx, account, sc.retryPolicy())
	if err != nil {
		slog.Warn("failed to create calendar client", "account", account, "error", err)
		return nil
	}

	sc.calClients[account] = client
	return client
}

// CalendarClient returns the calendar client for the default account.
func (sc *ServerContext) CalendarClient() *calendar.Client {
	return sc.CalendarClientForAccount("default")
}

// SetCalendarClientForAccount sets the calendar client for a specific
// account. Used after a fresh OAuth exchange and by tests.
func (sc *ServerContext) SetCalendarClientForAccount(account string, client *calendar.Client) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.calClients[account] = client
}

// SessionForAccount returns the assistant session for an account, creating
// it on first use. Returns an error if the account is not authorized yet.
func (sc *ServerContext) SessionForAccount(account string) (*assistant.Session, error) {
	return sc.sessions.Get(account)
}

// ResetSession drops the cached session for an account, discarding any
// pending confirmation or clarification.
func (sc *ServerContext) ResetSession(account string) {
	sc.sessions.Remove(account)
}

// buildSession wires the pipeline for one account on top of its calendar
// client.
func (sc *ServerContext) buildSession(account string) (*assistant.Session, error) {
	client := sc.CalendarClientForAccount(account)
	if client == nil {
		return nil, &NotAuthorizedError{Account: account}
	}

	extractor := intent.NewExtractor(sc.chatClient, sc.cfg.Model, sc.retryPolicy())
	extractor.SetContextEvents(sc.cfg.ContextEvents)
	res := resolver.New(client, sc.cfg.CalendarID)
	dispatcher := dispatch.New(client, sc.cfg.CalendarID, sc.cfg.MinConfidence)
	if m := sc.Metrics(); m != nil {
		extractor.SetMetrics(m)
		dispatcher.SetMetrics(m)
	}

	session := assistant.NewSession(extractor, res, dispatcher, client, sc.cfg.CalendarID, sc.cfg.TimeZone)
	session.SetMinConfidence(sc.cfg.MinConfidence)
	return session, nil
}

// NotAuthorizedError reports that an account has no usable OAuth token.
type NotAuthorizedError struct {
	Account string
}

func (e *NotAuthorizedError) Error() string {
	return "no valid Google OAuth token for account " + e.Account + "; run the auth flow first"
}

// SetMetrics sets the metrics recorder for instrumentation.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	sc.metrics = m
	sc.mu.Unlock()
	sc.sessions.SetMetrics(m)
}

// Metrics returns the metrics recorder, which may be nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetAuditLogger sets the audit logger.
func (sc *ServerContext) SetAuditLogger(al *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = al
}

// AuditLogger returns the audit logger, which may be nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// IsShutdown returns whether the server has been shutdown.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.sessions.Stop()
	sc.cancel()
	return nil
}
