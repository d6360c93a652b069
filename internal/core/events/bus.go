package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Event interface {
	EventType() string
	EventID() string
	OccurredAt() time.Time
	Payload() interface{}
}

type BaseEvent struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) EventID() string {
	return e.ID
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

func (e BaseEvent) Payload() interface{} {
	return e.Data
}

type Handler func(ctx context.Context, event Event) error

type subscription struct {
	name    string
	handler Handler
}

// EventBus is an in-process bus scoped to one portal session.
type EventBus struct {
	handlers map[string][]subscription
	logger   *slog.Logger
	mu       sync.RWMutex
	wg       sync.WaitGroup
}

func NewEventBus(logger *slog.Logger) *EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBus{
		handlers: make(map[string][]subscription),
		logger:   logger,
	}
}

// Subscribe registers handler under name. A second subscription with the same name
// for the same event type replaces the first.
func (eb *EventBus) Subscribe(eventType, name string, handler Handler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs := eb.handlers[eventType]
	for i, s := range subs {
		if s.name == name {
			subs[i].handler = handler
			return
		}
	}
	eb.handlers[eventType] = append(subs, subscription{name: name, handler: handler})
	eb.logger.Debug("event handler registered",
		"event_type", eventType,
		"handler", name,
		"total_handlers", len(eb.handlers[eventType]))
}

func (eb *EventBus) Unsubscribe(eventType, name string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs := eb.handlers[eventType]
	for i, s := range subs {
		if s.name == name {
			eb.handlers[eventType] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

func (eb *EventBus) snapshot(eventType string) []subscription {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	subs := eb.handlers[eventType]
	out := make([]subscription, len(subs))
	copy(out, subs)
	return out
}

// Publish runs every handler in its own goroutine. Failures are only logged.
func (eb *EventBus) Publish(ctx context.Context, event Event) error {
	subs := eb.snapshot(event.EventType())
	if len(subs) == 0 {
		eb.logger.Debug("no handlers for event type", "event_type", event.EventType())
		return nil
	}

	for _, s := range subs {
		eb.wg.Add(1)
		go func(s subscription) {
			defer eb.wg.Done()
			if err := s.handler(ctx, event); err != nil {
				eb.logger.Error("event handler failed",
					"event_type", event.EventType(),
					"event_id", event.EventID(),
					"handler", s.name,
					"error", err)
			}
		}(s)
	}

	return nil
}

// PublishSync runs handlers in registration order and stops at the first failure.
func (eb *EventBus) PublishSync(ctx context.Context, event Event) error {
	for _, s := range eb.snapshot(event.EventType()) {
		if err := s.handler(ctx, event); err != nil {
			eb.logger.Error("event handler failed",
				"event_type", event.EventType(),
				"event_id", event.EventID(),
				"handler", s.name,
				"error", err)
			return &HandlerError{Handler: s.name, EventType: event.EventType(), Err: err}
		}
	}
	return nil
}

// PublishAll runs every handler in registration order and joins their failures.
func (eb *EventBus) PublishAll(ctx context.Context, event Event) error {
	var errs []error
	for _, s := range eb.snapshot(event.EventType()) {
		if err := s.handler(ctx, event); err != nil {
			errs = append(errs, &HandlerError{Handler: s.name, EventType: event.EventType(), Err: err})
		}
	}
	return errors.Join(errs...)
}

// Wait blocks until every asynchronous handler started by Publish has returned.
func (eb *EventBus) Wait() {
	eb.wg.Wait()
}

type HandlerError struct {
	Handler   string
	EventType string
	Err       error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s failed for event %s: %v", e.Handler, e.EventType, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
