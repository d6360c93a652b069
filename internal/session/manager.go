package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/frahmantamala/hr-portal/internal/metrics"
)

var ErrNoSession = errors.New("no session")

type ManagerConfig struct {
	CookieName   string
	CookieSecure bool
	CookieTTL    time.Duration
	Store        StoreConfig
}

// Manager maps session cookies to stores and rebuilds stores from persisted
// credentials after a restart.
type Manager struct {
	cfg     ManagerConfig
	factory *ClientFactory
	tokens  TokenStore
	logger  *slog.Logger

	mu      sync.RWMutex
	stores  map[string]*Store
	restore singleflight.Group
}

func NewManager(cfg ManagerConfig, factory *ClientFactory, tokens TokenStore, logger *slog.Logger) *Manager {
	if cfg.CookieName == "" {
		cfg.CookieName = "hr_portal_session"
	}
	if cfg.CookieTTL <= 0 {
		cfg.CookieTTL = 7 * 24 * time.Hour
	}
	if tokens == nil {
		tokens = NewMemoryTokenStore(cfg.CookieTTL)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:     cfg,
		factory: factory,
		tokens:  tokens,
		logger:  logger.With("component", "session_manager"),
		stores:  make(map[string]*Store),
	}
}

func (m *Manager) sessionID(r *http.Request) string {
	c, err := r.Cookie(m.cfg.CookieName)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return c.Value
}

// Resolve returns the store behind the request cookie, restoring it from the token
// store when the gateway does not hold it yet. Concurrent requests share one restore.
func (m *Manager) Resolve(ctx context.Context, r *http.Request) (*Store, error) {
	id := m.sessionID(r)
	if id == "" {
		return nil, ErrNoSession
	}

	m.mu.RLock()
	store, ok := m.stores[id]
	m.mu.RUnlock()
	if ok {
		return store, nil
	}

	v, err, _ := m.restore.Do(id, func() (interface{}, error) {
		m.mu.RLock()
		existing, ok := m.stores[id]
		m.mu.RUnlock()
		if ok {
			return existing, nil
		}

		cred, err := m.tokens.Load(ctx, id)
		if err != nil {
			return nil, ErrNoSession
		}

		store, err := NewStore(id, m.cfg.Store, m.factory, m.tokens, m.logger)
		if err != nil {
			return nil, err
		}
		if _, err := store.Restore(context.WithoutCancel(ctx), cred); err != nil {
			store.Close()
			return nil, err
		}
		m.register(store)
		return store, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Store), nil
}

// Open returns the request's store or creates a fresh one and sets its cookie. A new
// session is only minted when there is none or the old one expired; a restore that
// failed for another reason is reported so its persisted credential survives.
func (m *Manager) Open(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Store, error) {
	store, err := m.Resolve(ctx, r)
	switch {
	case err == nil:
		return store, nil
	case !errors.Is(err, ErrNoSession) && !errors.Is(err, ErrSessionExpired):
		return nil, fmt.Errorf("open session: %w", err)
	}

	id := uuid.NewString()
	store, err = NewStore(id, m.cfg.Store, m.factory, m.tokens, m.logger)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	m.register(store)
	http.SetCookie(w, m.cookie(id, m.cfg.CookieTTL))
	return store, nil
}

// Close ends the session behind the request and expires its cookie.
func (m *Manager) Close(ctx context.Context, w http.ResponseWriter, store *Store) error {
	err := store.Logout(ctx)

	m.mu.Lock()
	if _, ok := m.stores[store.ID()]; ok {
		delete(m.stores, store.ID())
		metrics.SessionsActive.Dec()
	}
	m.mu.Unlock()

	store.Close()
	http.SetCookie(w, m.cookie("", -1))
	return err
}

func (m *Manager) register(store *Store) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stores[store.ID()]; !ok {
		metrics.SessionsActive.Inc()
	}
	m.stores[store.ID()] = store
}

func (m *Manager) cookie(value string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl < 0 {
		c.MaxAge = -1
	} else {
		c.MaxAge = int(ttl.Seconds())
	}
	return c
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.stores)
}

// Shutdown releases every store without logging anybody out; persisted
// credentials remain for the next process.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, store := range m.stores {
		store.Close()
		delete(m.stores, id)
		metrics.SessionsActive.Dec()
	}
}
