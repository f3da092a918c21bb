package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/voicecal/voicecal/internal/assistant"
	"github.com/voicecal/voicecal/internal/instrumentation"
)

// DefaultSessionTimeout is how long an idle session is kept before its
// pending state (confirmations, clarifications) is discarded.
const DefaultSessionTimeout = 24 * time.Hour

// sessionEntry tracks a session and its last use for idle cleanup.
type sessionEntry struct {
	session    *assistant.Session
	lastAccess time.Time
}

// SessionManager caches one assistant session per account. Sessions carry
// conversational state between turns, so the same account must always get
// the same session back.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	build    func(account string) (*assistant.Session, error)

	metrics        *instrumentation.Metrics
	sessionTimeout time.Duration
	cleanupTicker  *time.Ticker
	cleanupDone    chan struct{}
	logger         *slog.Logger
}

// NewSessionManager creates a manager that builds sessions with the given
// constructor on first use.
func NewSessionManager(build func(account string) (*assistant.Session, error)) *SessionManager {
	return NewSessionManagerWithTimeout(build, DefaultSessionTimeout)
}

// NewSessionManagerWithTimeout creates a manager with a custom idle timeout.
func NewSessionManagerWithTimeout(build func(account string) (*assistant.Session, error), timeout time.Duration) *SessionManager {
	m := &SessionManager{
		sessions:       make(map[string]*sessionEntry),
		build:          build,
		sessionTimeout: timeout,
		cleanupTicker:  time.NewTicker(10 * time.Minute),
		cleanupDone:    make(chan struct{}),
		logger:         slog.Default(),
	}

	go m.cleanupExpiredSessions()

	return m
}

// SetMetrics sets the metrics recorder used for the active session gauge.
func (m *SessionManager) SetMetrics(metrics *instrumentation.Metrics) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = metrics
}

// Get returns the session for an account, building it on first use.
func (m *SessionManager) Get(account string) (*assistant.Session, error) {
	m.mu.Lock()
	if entry, ok := m.sessions[account]; ok {
		entry.lastAccess = time.Now()
		session := entry.session
		m.mu.Unlock()
		return session, nil
	}
	metrics := m.metrics
	m.mu.Unlock()

	// Build outside the lock; session construction may create a calendar
	// client.
	session, err := m.build(account)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another goroutine may have built the same session concurrently; keep
	// the first one so conversational state is not split.
	if entry, ok := m.sessions[account]; ok {
		entry.lastAccess = time.Now()
		return entry.session, nil
	}
	m.sessions[account] = &sessionEntry{session: session, lastAccess: time.Now()}
	if metrics != nil {
		metrics.IncrementActiveSessions(context.Background())
	}
	return session, nil
}

// Remove drops the session for an account, discarding its pending state.
func (m *SessionManager) Remove(account string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[account]; ok {
		delete(m.sessions, account)
		if m.metrics != nil {
			m.metrics.DecrementActiveSessions(context.Background())
		}
	}
}

// Accounts returns the accounts with an active session.
func (m *SessionManager) Accounts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	accounts := make([]string, 0, len(m.sessions))
	for account := range m.sessions {
		accounts = append(accounts, account)
	}
	return accounts
}

// cleanupExpiredSessions periodically drops idle sessions.
func (m *SessionManager) cleanupExpiredSessions() {
	for {
		select {
		case <-m.cleanupTicker.C:
			if expired := m.expireIdle(time.Now()); expired > 0 {
				m.logger.Info("cleaned up idle sessions", "count", expired)
			}
		case <-m.cleanupDone:
			return
		}
	}
}

// expireIdle drops sessions whose last access is older than the idle
// timeout, returning how many were dropped.
func (m *SessionManager) expireIdle(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	expired := 0
	for account, entry := range m.sessions {
		if now.Sub(entry.lastAccess) > m.sessionTimeout {
			delete(m.sessions, account)
			if m.metrics != nil {
				m.metrics.DecrementActiveSessions(context.Background())
			}
			expired++
		}
	}
	return expired
}

// Stop stops the idle cleanup goroutine.
func (m *SessionManager) Stop() {
	if m.cleanupTicker != nil {
		m.cleanupTicker.Stop()
	}
	if m.cleanupDone != nil {
		close(m.cleanupDone)
	}
}
