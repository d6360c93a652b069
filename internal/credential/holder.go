package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/frahmantamala/hr-portal/internal/core/events"
)

var (
	// ErrPropagation means at least one receiver refused the new token. The holder has
	// already cleared the credential everywhere when it is returned.
	ErrPropagation = errors.New("credential propagation failed")
	ErrNoExpiry    = errors.New("token carries no exp claim")
)

type Credential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (c Credential) Empty() bool {
	return c.AccessToken == ""
}

// ExpiresWithin reports whether the access token expires before now+window. Tokens whose
// expiry cannot be read are treated as fresh; the collaborator rejects them if they are not.
func (c Credential) ExpiresWithin(window time.Duration, now time.Time) bool {
	exp, err := ExpiresAt(c.AccessToken)
	if err != nil {
		return false
	}
	return !exp.After(now.Add(window))
}

// ExpiresAt reads the exp claim without verifying the signature. Verification is the
// auth service's job; the portal only needs to know when to refresh.
func ExpiresAt(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("parse token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("read exp claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiry
	}
	return exp.Time, nil
}

// Receiver is implemented by every collaborator client that sends the bearer token.
type Receiver interface {
	SetAccessToken(token string) error
}

type ReceiverFunc func(token string) error

func (f ReceiverFunc) SetAccessToken(token string) error {
	return f(token)
}

// Holder is the only writer of a session's credential. Every change is pushed to all
// subscribed receivers before Set returns.
type Holder struct {
	bus     *events.EventBus
	logger  *slog.Logger
	mu      sync.Mutex
	current atomic.Pointer[Credential]
}

func NewHolder(bus *events.EventBus, logger *slog.Logger) *Holder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Holder{bus: bus, logger: logger}
}

func (h *Holder) Subscribe(name string, r Receiver) {
	h.bus.Subscribe(events.EventTypeCredentialChanged, name, func(_ context.Context, e events.Event) error {
		changed, ok := e.(*events.CredentialChangedEvent)
		if !ok {
			return fmt.Errorf("unexpected event %T", e)
		}
		return r.SetAccessToken(changed.AccessToken)
	})
}

func (h *Holder) Unsubscribe(name string) {
	h.bus.Unsubscribe(events.EventTypeCredentialChanged, name)
}

// Set stores c and pushes it to every receiver. When any receiver fails, all receivers
// are reset to the empty token and ErrPropagation is returned.
func (h *Holder) Set(ctx context.Context, c Credential, reason string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.Empty() {
		return h.clearLocked(ctx, reason)
	}

	stored := c
	h.current.Store(&stored)

	err := h.bus.PublishSync(ctx, events.NewCredentialChangedEvent(c.AccessToken, reason))
	if err == nil {
		return nil
	}

	h.logger.Error("credential propagation failed, rolling back", "reason", reason, "error", err)
	if cerr := h.clearLocked(ctx, "rollback"); cerr != nil {
		h.logger.Error("credential rollback incomplete", "error", cerr)
	}
	return fmt.Errorf("%w: %v", ErrPropagation, err)
}

// Clear removes the credential from the holder and every receiver.
func (h *Holder) Clear(ctx context.Context, reason string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clearLocked(ctx, reason)
}

func (h *Holder) clearLocked(ctx context.Context, reason string) error {
	h.current.Store(nil)
	return h.bus.PublishAll(ctx, events.NewCredentialChangedEvent("", reason))
}

func (h *Holder) Current() (Credential, bool) {
	c := h.current.Load()
	if c == nil {
		return Credential{}, false
	}
	return *c, true
}
