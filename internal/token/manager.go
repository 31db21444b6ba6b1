package token

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/olmedhq/erp-gateway/internal/domain"
	"github.com/olmedhq/erp-gateway/internal/metrics"
)

// DefaultRefreshWindow is how long before expiry a token counts as
// near-expiry and gets refreshed proactively.
const DefaultRefreshWindow = 5 * time.Minute

// AuthClient is the slice of the ERP API the manager needs.
type AuthClient interface {
	Login(ctx context.Context) (domain.TokenInfo, error)
	Refresh(ctx context.Context, current string) (domain.TokenInfo, error)
	Logout(ctx context.Context, current string) error
}

// Manager runs the refresh state machine over the store: fresh tokens
// are returned as-is, near-expiry ones are refreshed with the current
// token as credential, and an absent or expired token (or a failed
// refresh) falls back to a full login. The mutex keeps at most one
// refresh or login in flight; concurrent executions queue behind it
// and pick up the replaced token.
type Manager struct {
	mu            sync.Mutex
	store         *Store
	client        AuthClient
	logger        *slog.Logger
	provider      string
	refreshWindow time.Duration
	now           func() time.Time
}

func NewManager(store *Store, client AuthClient, logger *slog.Logger, provider string) *Manager {
	return &Manager{
		store:         store,
		client:        client,
		logger:        logger.With("component", "token_manager", "provider", provider),
		provider:      provider,
		refreshWindow: DefaultRefreshWindow,
		now:           time.Now,
	}
}

// Current returns the cached token without touching the network, or
// nil when absent/expired.
func (m *Manager) Current() *domain.TokenInfo {
	return m.store.Get(m.provider)
}

// EnsureFresh returns a token that is valid for at least the refresh
// window, refreshing or logging in as needed.
func (m *Manager) EnsureFresh(ctx context.Context) (domain.TokenInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	if tok := m.store.Get(m.provider); tok != nil {
		if !tok.ExpiresWithin(now, m.refreshWindow) {
			return *tok, nil
		}

		refreshed, err := m.client.Refresh(ctx, tok.Token)
		if err == nil {
			m.store.Set(m.provider, refreshed)
			metrics.TokenRefreshesTotal.WithLabelValues("refresh").Inc()
			m.logger.Info("token refreshed", "expires_at", refreshed.ExpiresAt)
			return refreshed, nil
		}
		m.logger.Warn("token refresh failed, falling back to login", "error", err)
	}

	return m.login(ctx)
}

// Login forces a fresh username/password exchange, replacing whatever
// is cached.
func (m *Manager) Login(ctx context.Context) (domain.TokenInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.login(ctx)
}

func (m *Manager) login(ctx context.Context) (domain.TokenInfo, error) {
	tok, err := m.client.Login(ctx)
	if err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues("failure").Inc()
		return domain.TokenInfo{}, fmt.Errorf("%w: %v", domain.ErrLoginFailed, err)
	}

	m.store.Set(m.provider, tok)
	metrics.TokenRefreshesTotal.WithLabelValues("login").Inc()
	m.logger.Info("logged in", "expires_at", tok.ExpiresAt)
	return tok, nil
}

// Logout tells the ERP to invalidate the session and always drops the
// local entry, even when the remote call fails. A token the remote side
// may have invalidated must never stay in the cache.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok := m.store.Get(m.provider)
	defer m.store.Remove(m.provider)

	if tok == nil {
		return
	}
	if err := m.client.Logout(ctx, tok.Token); err != nil {
		m.logger.Warn("remote logout failed, local token dropped anyway", "error", err)
	}
}

// KeepFresh refreshes the token on a fixed cadence until ctx is done.
// Run from main so job executions usually find a fresh token waiting.
func (m *Manager) KeepFresh(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.logger.Info("token keeper started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("token keeper shut down")
			return
		case <-ticker.C:
			if _, err := m.EnsureFresh(ctx); err != nil {
				m.logger.Error("scheduled token refresh", "error", err)
			}
		}
	}
}
