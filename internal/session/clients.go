package session

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/hr-portal/internal/auth"
	"github.com/frahmantamala/hr-portal/internal/core/events"
	"github.com/frahmantamala/hr-portal/internal/credential"
	"github.com/frahmantamala/hr-portal/internal/department"
	"github.com/frahmantamala/hr-portal/internal/document"
	"github.com/frahmantamala/hr-portal/internal/employee"
	"github.com/frahmantamala/hr-portal/internal/notification"
	"github.com/frahmantamala/hr-portal/internal/task"
	"github.com/frahmantamala/hr-portal/internal/transport/httpclient"
)

type ServiceURLs struct {
	Auth       string
	Employee   string
	Department string
	Task       string
	Document   string
}

type FactoryConfig struct {
	Services     ServiceURLs
	Timeout      time.Duration
	Retry        httpclient.RetryConfig
	Notification notification.ListenerConfig
}

// Clients is the set of collaborator clients owned by one session. Every member
// receives the session's access token from its credential holder.
type Clients struct {
	Auth          *auth.Client
	Employee      *employee.Client
	Department    *department.Client
	Task          *task.Client
	Document      *document.Client
	Notifications *notification.Listener

	bases []*httpclient.Client
}

// Receivers lists the token receivers under a stable name, in the order they are updated.
func (c *Clients) Receivers() []NamedReceiver {
	return []NamedReceiver{
		{"auth", c.Auth},
		{"employee", c.Employee},
		{"department", c.Department},
		{"task", c.Task},
		{"document", c.Document},
		{"notifications", c.Notifications},
	}
}

func (c *Clients) Close() {
	c.Notifications.Stop()
	for _, b := range c.bases {
		b.Close()
	}
}

type NamedReceiver struct {
	Name     string
	Receiver credential.Receiver
}

// ClientFactory builds the collaborator clients of new sessions over one shared transport.
type ClientFactory struct {
	cfg        FactoryConfig
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClientFactory(cfg FactoryConfig, httpClient *http.Client, logger *slog.Logger) *ClientFactory {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ClientFactory{cfg: cfg, httpClient: httpClient, logger: logger}
}

// New builds one client set. onUnauthorized fires when a proxied collaborator
// (department, task, document) rejects the token.
func (f *ClientFactory) New(bus *events.EventBus, onUnauthorized func()) (*Clients, error) {
	build := func(name, baseURL string, hook func()) (*httpclient.Client, error) {
		c, err := httpclient.New(httpclient.Config{
			Name:           name,
			BaseURL:        baseURL,
			Timeout:        f.cfg.Timeout,
			Retry:          f.cfg.Retry,
			OnUnauthorized: hook,
		}, f.httpClient, f.logger)
		if err != nil {
			return nil, fmt.Errorf("build %s client: %w", name, err)
		}
		return c, nil
	}

	urls := f.cfg.Services
	specs := []struct {
		name string
		url  string
		hook func()
	}{
		{"auth", urls.Auth, nil},
		{"employee", urls.Employee, nil},
		{"department", urls.Department, onUnauthorized},
		{"task", urls.Task, onUnauthorized},
		{"document", urls.Document, onUnauthorized},
	}

	bases := make([]*httpclient.Client, 0, len(specs))
	for _, s := range specs {
		c, err := build(s.name, s.url, s.hook)
		if err != nil {
			return nil, err
		}
		bases = append(bases, c)
	}

	return &Clients{
		Auth:          auth.NewClient(bases[0]),
		Employee:      employee.NewClient(bases[1]),
		Department:    department.NewClient(bases[2]),
		Task:          task.NewClient(bases[3]),
		Document:      document.NewClient(bases[4]),
		Notifications: notification.NewListener(f.cfg.Notification, bus, f.logger),
		bases:         bases,
	}, nil
}
