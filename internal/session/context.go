package session

import (
	"context"
	"net/http"

	apperrors "github.com/frahmantamala/hr-portal/internal"
	"github.com/frahmantamala/hr-portal/internal/department"
	"github.com/frahmantamala/hr-portal/internal/document"
	"github.com/frahmantamala/hr-portal/internal/guard"
	"github.com/frahmantamala/hr-portal/internal/notification"
	"github.com/frahmantamala/hr-portal/internal/task"
)

type ctxKey struct{}

func WithStore(ctx context.Context, s *Store) context.Context {
	ctx = apperrors.ContextWithSessionID(ctx, s.ID())
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (*Store, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Store)
	return s, ok && s != nil
}

// StateOf returns the guard state of the request's session, or a guest state.
func StateOf(ctx context.Context) guard.State {
	if s, ok := FromContext(ctx); ok {
		return s.State().State
	}
	return guard.Guest()
}

// Authenticated returns the request's store when it holds a signed-in session.
func Authenticated(r *http.Request) (*Store, error) {
	s, ok := FromContext(r.Context())
	if !ok || !s.State().Authenticated {
		return nil, apperrors.ErrNotAuthenticated
	}
	return s, nil
}

func DepartmentClient(r *http.Request) (*department.Client, error) {
	s, err := Authenticated(r)
	if err != nil {
		return nil, err
	}
	return s.Clients().Department, nil
}

func TaskClient(r *http.Request) (*task.Client, error) {
	s, err := Authenticated(r)
	if err != nil {
		return nil, err
	}
	return s.Clients().Task, nil
}

func DocumentClient(r *http.Request) (*document.Client, error) {
	s, err := Authenticated(r)
	if err != nil {
		return nil, err
	}
	return s.Clients().Document, nil
}

func Notifications(r *http.Request) (*notification.Hub, *notification.Listener, error) {
	s, err := Authenticated(r)
	if err != nil {
		return nil, nil, err
	}
	return s.Hub(), s.Listener(), nil
}
