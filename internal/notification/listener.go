package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/sethvargo/go-retry"

	"github.com/frahmantamala/hr-portal/internal/core/events"
	"github.com/frahmantamala/hr-portal/internal/metrics"
	"github.com/frahmantamala/hr-portal/internal/transport/httpclient"
)

type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateGaveUp       State = "gave_up"
)

type ListenerConfig struct {
	URL         string
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	DialTimeout time.Duration
}

func (c ListenerConfig) withDefaults() ListenerConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
	return c
}

// Listener keeps one notification connection alive for a session. It is a credential
// receiver: a new token restarts the connection, an empty token stops it.
type Listener struct {
	cfg    ListenerConfig
	bus    *events.EventBus
	logger *slog.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	state    State
	attempts int
}

func NewListener(cfg ListenerConfig, bus *events.EventBus, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		cfg:    cfg.withDefaults(),
		bus:    bus,
		logger: logger.With("component", "notification_listener"),
		state:  StateIdle,
	}
}

func (l *Listener) SetAccessToken(token string) error {
	l.Stop()
	if token == "" || l.cfg.URL == "" {
		return nil
	}

	target, err := l.dialURL(token)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	l.mu.Lock()
	l.cancel = cancel
	l.done = done
	l.state = StateConnecting
	l.attempts = 0
	l.mu.Unlock()

	go func() {
		defer close(done)
		l.run(ctx, target)
	}()
	return nil
}

// Stop closes the connection and waits for the loop to exit.
func (l *Listener) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	l.mu.Lock()
	l.state = StateIdle
	l.attempts = 0
	l.mu.Unlock()
}

func (l *Listener) State() (State, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state, l.attempts
}

func (l *Listener) setState(s State, attempts int) {
	l.mu.Lock()
	l.state = s
	l.attempts = attempts
	l.mu.Unlock()
}

func (l *Listener) dialURL(token string) (string, error) {
	u, err := url.Parse(l.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("invalid notification url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

var errChannelClosed = errors.New("notification channel closed")

// run keeps the connection up. Each drop waits out the next delay of the schedule; a
// successful handshake starts a fresh schedule, so only consecutive failures count
// toward MaxAttempts.
func (l *Listener) run(ctx context.Context, target string) {
	var (
		failures int
		lastErr  error
		schedule = l.schedule()
	)
	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		delay, stop := schedule.Next()
		if stop {
			return 0, true
		}
		failures++
		l.setState(StateReconnecting, failures)
		metrics.NotificationReconnects.Inc()
		l.logger.Info("notification channel reconnecting", "attempt", failures, "delay", delay, "error", lastErr)
		return delay, false
	})

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		connected, err := l.connectOnce(ctx, target)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			failures = 0
			schedule = l.schedule()
		}
		if err == nil {
			err = errChannelClosed
		}
		lastErr = err
		return retry.RetryableError(err)
	})
	if ctx.Err() != nil {
		return
	}
	l.logger.Warn("notification channel gave up", "attempts", failures, "error", err)
	l.setState(StateGaveUp, failures)
}

func (l *Listener) schedule() retry.Backoff {
	return httpclient.NewBackoff(l.cfg.BaseDelay, l.cfg.MaxDelay, l.cfg.MaxAttempts)
}

// connectOnce dials and reads until the connection drops. connected reports whether the
// handshake succeeded. Frames that are not JSON envelopes are dropped without closing
// the connection.
func (l *Listener) connectOnce(ctx context.Context, target string) (connected bool, err error) {
	dialCtx, cancel := context.WithTimeout(ctx, l.cfg.DialTimeout)
	conn, _, err := websocket.Dial(dialCtx, target, nil)
	cancel()
	if err != nil {
		return false, err
	}
	defer conn.CloseNow()

	l.setState(StateConnected, 0)
	l.logger.Info("notification channel connected")

	for {
		typ, frame, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || errors.Is(err, context.Canceled) {
				return true, err
			}
			return true, fmt.Errorf("read notification: %w", err)
		}

		var env Envelope
		if typ != websocket.MessageText {
			l.logger.Debug("dropping binary notification frame", "bytes", len(frame))
			metrics.NotificationsReceived.WithLabelValues("binary", "false").Inc()
			continue
		}
		if err := json.Unmarshal(frame, &env); err != nil {
			l.logger.Warn("dropping malformed notification", "error", err, "bytes", len(frame))
			metrics.NotificationsReceived.WithLabelValues("malformed", "false").Inc()
			continue
		}
		l.dispatch(ctx, env)
	}
}

func (l *Listener) dispatch(ctx context.Context, env Envelope) {
	accepted := Consumed(env.Type)
	metrics.NotificationsReceived.WithLabelValues(env.Type, fmt.Sprint(accepted)).Inc()
	if !accepted {
		l.logger.Debug("dropping notification", "type", env.Type)
		return
	}
	_ = l.bus.Publish(context.WithoutCancel(ctx), events.NewNotificationReceivedEvent(env.Type, env.Data))
}
