package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/frahmantamala/hr-portal/internal/access"
	"github.com/frahmantamala/hr-portal/internal/auth"
	"github.com/frahmantamala/hr-portal/internal/core/events"
	"github.com/frahmantamala/hr-portal/internal/credential"
	"github.com/frahmantamala/hr-portal/internal/employee"
	"github.com/frahmantamala/hr-portal/internal/guard"
	"github.com/frahmantamala/hr-portal/internal/metrics"
	"github.com/frahmantamala/hr-portal/internal/notification"
)

var (
	ErrSessionExpired   = errors.New("session expired")
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSuperseded is returned by an operation that lost its session to a logout midway.
	ErrSuperseded = errors.New("session was reset during the operation")
)

const profileSubscriber = "session.profile"

// Snapshot is an immutable view of the session.
type Snapshot struct {
	guard.State
	Identity    *access.Identity        `json:"identity,omitempty"`
	Profile     *access.EmployeeProfile `json:"profile,omitempty"`
	Permissions []string                `json:"permissions"`
	// Degraded is set when the profile could not be fetched after sign in.
	Degraded bool `json:"degraded,omitempty"`
}

func guestSnapshot() Snapshot {
	return Snapshot{State: guard.Guest(), Permissions: []string{}}
}

type StoreConfig struct {
	RefreshSkew time.Duration
	RecentSize  int
}

// Store is the single owner of one browser session's identity, profile, access level
// and credential. Mutating operations are serialised; reads are snapshot based.
type Store struct {
	id      string
	cfg     StoreConfig
	clients *Clients
	holder  *credential.Holder
	bus     *events.EventBus
	hub     *notification.Hub
	tokens  TokenStore
	logger  *slog.Logger
	now     func() time.Time

	opMu       sync.Mutex
	mu         sync.RWMutex
	snap       Snapshot
	generation atomic.Uint64
	expiring   atomic.Bool
}

func NewStore(id string, cfg StoreConfig, factory *ClientFactory, tokens TokenStore, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("session_id", id)

	s := &Store{
		id:     id,
		cfg:    cfg,
		bus:    events.NewEventBus(logger),
		hub:    notification.NewHub(cfg.RecentSize),
		tokens: tokens,
		logger: logger,
		now:    time.Now,
		snap:   guestSnapshot(),
	}

	clients, err := factory.New(s.bus, s.expireAsync)
	if err != nil {
		return nil, err
	}
	s.clients = clients
	s.holder = credential.NewHolder(s.bus, logger)
	for _, r := range clients.Receivers() {
		s.holder.Subscribe(r.Name, r.Receiver)
	}

	s.hub.Attach(s.bus)
	s.bus.Subscribe(events.EventTypeNotificationReceived, profileSubscriber, s.onNotification)
	return s, nil
}

func (s *Store) ID() string                       { return s.id }
func (s *Store) Clients() *Clients                { return s.clients }
func (s *Store) Hub() *notification.Hub           { return s.hub }
func (s *Store) Bus() *events.EventBus            { return s.bus }
func (s *Store) Holder() *credential.Holder       { return s.holder }
func (s *Store) Listener() *notification.Listener { return s.clients.Notifications }

func (s *Store) State() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snap
	snap.Permissions = append([]string(nil), s.snap.Permissions...)
	return snap
}

// commit swaps in next unless a reset happened since gen was read. A superseded
// operation also withdraws whatever credential it wrote after the reset.
func (s *Store) commit(ctx context.Context, gen uint64, next Snapshot) error {
	s.mu.Lock()
	if s.generation.Load() == gen {
		s.snap = next
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	s.withdraw(ctx)
	return ErrSuperseded
}

// withdraw clears a credential written by an operation that lost its session to a
// reset. Callers hold opMu, so no newer sign in can own the credential yet.
func (s *Store) withdraw(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	if _, ok := s.holder.Current(); !ok {
		return
	}
	_ = s.holder.Clear(ctx, "superseded")
	if err := s.tokens.Delete(ctx, s.id); err != nil {
		s.logger.Warn("failed to delete persisted credential", "error", err)
	}
}

func (s *Store) setLoading(loading bool) {
	s.mu.Lock()
	s.snap.Loading = loading
	s.mu.Unlock()
}

// Login authenticates against the auth service, fans the credential out and loads
// the profile. A failed profile fetch leaves a degraded NEWCOMER session.
func (s *Store) Login(ctx context.Context, dto auth.LoginDTO) (Snapshot, error) {
	if verr := dto.Validate(); verr != nil {
		return Snapshot{}, verr
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()
	gen := s.generation.Load()

	s.setLoading(true)
	defer s.setLoading(false)

	resp, err := s.clients.Auth.Login(ctx, dto)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			metrics.LoginOutcomes.WithLabelValues("rejected").Inc()
		} else {
			metrics.LoginOutcomes.WithLabelValues("error").Inc()
		}
		return Snapshot{}, err
	}
	if s.generation.Load() != gen {
		return Snapshot{}, ErrSuperseded
	}

	cred := credential.Credential{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	if err := s.holder.Set(ctx, cred, "login"); err != nil {
		metrics.LoginOutcomes.WithLabelValues("propagation_failed").Inc()
		s.reset(ctx, "propagation failure")
		return Snapshot{}, err
	}
	s.persist(ctx, cred)

	identity := resp.User
	snap, err := s.loadProfile(ctx, gen, &identity, false)
	if err != nil {
		return Snapshot{}, err
	}
	metrics.LoginOutcomes.WithLabelValues("success").Inc()
	s.logger.Info("session signed in", "user_id", snap.Identity.ID, "level", snap.Level)
	return snap, nil
}

func (s *Store) Register(ctx context.Context, dto auth.RegisterDTO) (string, error) {
	if verr := dto.Validate(); verr != nil {
		return "", verr
	}
	return s.clients.Auth.Register(ctx, dto)
}

func (s *Store) VerifyEmail(ctx context.Context, token string) (string, error) {
	if verr := (auth.VerifyEmailDTO{Token: token}).Validate(); verr != nil {
		return "", verr
	}
	return s.clients.Auth.VerifyEmail(ctx, token)
}

// Logout wipes the session at once. It does not wait for operations in flight; their
// results are discarded when they try to commit.
func (s *Store) Logout(ctx context.Context) error {
	return s.reset(ctx, "logout")
}

func (s *Store) reset(ctx context.Context, reason string) error {
	s.generation.Add(1)
	err := s.holder.Clear(ctx, reason)
	if derr := s.tokens.Delete(ctx, s.id); derr != nil {
		s.logger.Warn("failed to delete persisted credential", "error", derr)
	}

	s.mu.Lock()
	s.snap = guestSnapshot()
	s.mu.Unlock()

	_ = s.bus.Publish(context.WithoutCancel(ctx), events.NewSessionResetEvent(reason))
	s.logger.Info("session reset", "reason", reason)
	return err
}

// RefreshToken trades the refresh token for a new pair. Any failure ends the session.
func (s *Store) RefreshToken(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Store) refreshLocked(ctx context.Context) error {
	gen := s.generation.Load()
	cur, ok := s.holder.Current()
	if !ok {
		return ErrNotAuthenticated
	}

	pair, err := s.clients.Auth.RefreshTokens(ctx, cur.RefreshToken)
	if err == nil && s.generation.Load() != gen {
		return ErrSuperseded
	}
	if err == nil {
		next := credential.Credential{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}
		if err = s.holder.Set(ctx, next, "refresh"); err == nil {
			s.persist(ctx, next)
			if s.generation.Load() != gen {
				s.withdraw(ctx)
				return ErrSuperseded
			}
			return nil
		}
	}

	s.reset(ctx, "refresh failed")
	return fmt.Errorf("%w: %v", ErrSessionExpired, err)
}

// EnsureFresh refreshes the credential when its access token expires within the
// configured skew.
func (s *Store) EnsureFresh(ctx context.Context) error {
	if s.cfg.RefreshSkew <= 0 || !s.expiresSoon() {
		return nil
	}
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if !s.expiresSoon() {
		return nil
	}
	return s.refreshLocked(ctx)
}

func (s *Store) expiresSoon() bool {
	cur, ok := s.holder.Current()
	return ok && cur.ExpiresWithin(s.cfg.RefreshSkew, s.now())
}

func (s *Store) RefreshProfile(ctx context.Context) (Snapshot, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if _, ok := s.holder.Current(); !ok {
		return Snapshot{}, ErrNotAuthenticated
	}
	gen := s.generation.Load()
	identity := s.State().Identity
	return s.loadProfile(ctx, gen, identity, true)
}

func (s *Store) UpdateProfile(ctx context.Context, dto employee.ProfileUpdateDTO) (Snapshot, error) {
	if verr := dto.Validate(); verr != nil {
		return Snapshot{}, verr
	}
	if _, ok := s.holder.Current(); !ok {
		return Snapshot{}, ErrNotAuthenticated
	}
	if _, err := s.clients.Employee.UpdateProfile(ctx, dto); err != nil {
		return Snapshot{}, err
	}
	return s.RefreshProfile(ctx)
}

// Restore rebuilds the session from a persisted credential. A credential the
// employee service rejects, or a malformed answer, clears the session.
func (s *Store) Restore(ctx context.Context, cred credential.Credential) (Snapshot, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	gen := s.generation.Load()

	s.setLoading(true)
	defer s.setLoading(false)

	if err := s.holder.Set(ctx, cred, "restore"); err != nil {
		s.reset(ctx, "propagation failure")
		return Snapshot{}, err
	}

	me, err := s.clients.Employee.Me(ctx)
	if err != nil {
		if errors.Is(err, employee.ErrUnauthorized) || errors.Is(err, employee.ErrInvalidResponse) {
			s.reset(ctx, "restore rejected")
			return Snapshot{}, fmt.Errorf("%w: %v", ErrSessionExpired, err)
		}
		_ = s.holder.Clear(ctx, "restore failed")
		return Snapshot{}, fmt.Errorf("restore session: %w", err)
	}

	identity := me.Identity()
	if user, err := s.clients.Auth.GetCurrentUser(ctx); err == nil && user.ID != "" {
		identity = *user
	} else if err != nil {
		s.logger.Debug("current user lookup failed, using employee identity", "error", err)
	}

	snap := buildSnapshot(&identity, me)
	if err := s.commit(ctx, gen, snap); err != nil {
		return Snapshot{}, err
	}
	s.logger.Info("session restored", "user_id", identity.ID, "level", snap.Level)
	return snap, nil
}

// loadProfile fetches the profile and commits the derived state. identity may be nil,
// in which case it is taken from the response. With strict set, a rejected credential
// ends the session instead of degrading it.
func (s *Store) loadProfile(ctx context.Context, gen uint64, identity *access.Identity, strict bool) (Snapshot, error) {
	me, err := s.clients.Employee.Me(ctx)
	if strict && errors.Is(err, employee.ErrUnauthorized) {
		s.reset(ctx, "profile rejected")
		return Snapshot{}, fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}
	var snap Snapshot
	if err != nil {
		s.logger.Warn("profile unavailable, continuing with minimal access", "error", err)
		snap = degradedSnapshot(identity)
	} else {
		if identity == nil || identity.ID == "" {
			id := me.Identity()
			identity = &id
		}
		snap = buildSnapshot(identity, me)
	}
	if err := s.commit(ctx, gen, snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func buildSnapshot(identity *access.Identity, me *employee.MeResponse) Snapshot {
	roles := me.EffectiveRoles()
	level := access.DeriveAccessLevel(me.Employee, roles)
	return Snapshot{
		State: guard.State{
			Authenticated:      true,
			Level:              level,
			VerificationStatus: access.VerificationStatusOf(me.Employee),
			ProfileStatus:      access.ProfileStatusOf(me.Employee),
			Roles:              roles,
		},
		Identity:    identity,
		Profile:     me.Employee,
		Permissions: access.PermissionsFor(me.Employee, roles, level),
	}
}

func degradedSnapshot(identity *access.Identity) Snapshot {
	return Snapshot{
		State: guard.State{
			Authenticated:      true,
			Level:              access.LevelNewcomer,
			VerificationStatus: access.StatusNotStarted,
			ProfileStatus:      access.ProfileNotCreated,
		},
		Identity:    identity,
		Permissions: append([]string(nil), access.MinimalPermissions...),
		Degraded:    true,
	}
}

func (s *Store) persist(ctx context.Context, c credential.Credential) {
	if err := s.tokens.Save(ctx, s.id, c); err != nil {
		s.logger.Warn("failed to persist credential", "error", err)
	}
}

// expireAsync ends the session after a proxied collaborator rejected the token.
// It runs outside the caller so it never waits on an operation holding opMu.
func (s *Store) expireAsync() {
	if !s.expiring.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer s.expiring.Store(false)
		if err := s.Logout(context.Background()); err != nil {
			s.logger.Warn("session reset after rejected credential incomplete", "error", err)
		}
	}()
}

func (s *Store) onNotification(ctx context.Context, e events.Event) error {
	evt, ok := e.(*events.NotificationReceivedEvent)
	if !ok || !notification.AffectsAccess(evt.MessageType) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if _, err := s.RefreshProfile(ctx); err != nil && !errors.Is(err, ErrNotAuthenticated) {
		return fmt.Errorf("refresh profile after %s: %w", evt.MessageType, err)
	}
	return nil
}

// Close releases the session's clients. The store must not be used afterwards.
func (s *Store) Close() {
	s.hub.Close()
	s.clients.Close()
}
