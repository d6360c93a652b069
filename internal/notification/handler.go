package notification

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/frahmantamala/hr-portal/internal/transport"
)

const writeTimeout = 5 * time.Second

// SessionFunc resolves the hub and upstream listener of the session behind r.
type SessionFunc func(r *http.Request) (*Hub, *Listener, error)

type Handler struct {
	*transport.BaseHandler
	sessionFor     SessionFunc
	originPatterns []string
}

func NewHandler(sessionFor SessionFunc, originPatterns []string, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler:    transport.NewBaseHandler(logger),
		sessionFor:     sessionFor,
		originPatterns: originPatterns,
	}
}

type statusResponse struct {
	State    State      `json:"state"`
	Attempts int        `json:"attempts"`
	Recent   []Envelope `json:"recent"`
}

// Recent handles GET /notifications/recent?limit=
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	hub, listener, err := h.sessionFor(r)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	resp := statusResponse{State: StateIdle, Recent: hub.Recent(limit)}
	if listener != nil {
		resp.State, resp.Attempts = listener.State()
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

// Stream handles GET /ws/notifications. Every envelope reaching the session is
// forwarded to the browser as JSON.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	hub, _, err := h.sessionFor(r)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		h.Logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	updates, cancel := hub.Subscribe()
	defer cancel()

	ctx, stop := context.WithCancel(r.Context())
	defer stop()

	go func() {
		defer stop()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case env, ok := <-updates:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "session ended")
				return
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, conn, env)
			cancelWrite()
			if err != nil {
				return
			}
		}
	}
}
