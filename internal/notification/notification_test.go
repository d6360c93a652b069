package notification_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/hr-portal/internal/core/events"
	"github.com/frahmantamala/hr-portal/internal/metrics"
	"github.com/frahmantamala/hr-portal/internal/notification"
)

func TestNotification(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Notification Module Suite")
}

var _ = ginkgo.BeforeSuite(func() {
	metrics.Init()
})

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

var _ = ginkgo.Describe("Listener", func() {
	var (
		bus      *events.EventBus
		mu       sync.Mutex
		received []string
		tokens   chan string
		server   *httptest.Server
		listener *notification.Listener
	)

	ginkgo.BeforeEach(func() {
		bus = events.NewEventBus(nil)
		received = nil
		tokens = make(chan string, 4)
		bus.Subscribe(events.EventTypeNotificationReceived, "test", func(ctx context.Context, e events.Event) error {
			mu.Lock()
			defer mu.Unlock()
			received = append(received, e.(*events.NotificationReceivedEvent).MessageType)
			return nil
		})

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokens <- r.URL.Query().Get("token")
			conn, err := websocket.Accept(w, r, nil)
			if err != nil {
				return
			}
			defer conn.CloseNow()
			ctx := r.Context()
			_ = wsjson.Write(ctx, conn, map[string]string{"type": "heartbeat"})
			_ = conn.Write(ctx, websocket.MessageText, []byte(`{"type":"task-update",`))
			_ = conn.Write(ctx, websocket.MessageBinary, []byte{0x01, 0x02})
			_ = wsjson.Write(ctx, conn, map[string]interface{}{"type": "status-change", "data": map[string]string{"status": "VERIFIED"}})
			_, _, _ = conn.Read(ctx)
		}))

		listener = notification.NewListener(notification.ListenerConfig{
			URL:         wsURL(server) + "/ws",
			MaxAttempts: 2,
			BaseDelay:   10 * time.Millisecond,
			MaxDelay:    20 * time.Millisecond,
		}, bus, nil)
	})

	ginkgo.AfterEach(func() {
		listener.Stop()
		server.Close()
	})

	ginkgo.It("should dial with the token and publish only consumed envelopes on one connection", func() {
		gomega.Expect(listener.SetAccessToken("tok-1")).To(gomega.Succeed())

		gomega.Eventually(tokens).Should(gomega.Receive(gomega.Equal("tok-1")))
		gomega.Eventually(func() []string {
			mu.Lock()
			defer mu.Unlock()
			return append([]string(nil), received...)
		}).Should(gomega.Equal([]string{"status-change"}))

		state, _ := listener.State()
		gomega.Expect(state).To(gomega.Equal(notification.StateConnected))
		gomega.Consistently(tokens, 100*time.Millisecond).ShouldNot(gomega.Receive())
	})

	ginkgo.It("should reconnect with a new token and stop on an empty one", func() {
		gomega.Expect(listener.SetAccessToken("tok-1")).To(gomega.Succeed())
		gomega.Eventually(tokens).Should(gomega.Receive(gomega.Equal("tok-1")))

		gomega.Expect(listener.SetAccessToken("tok-2")).To(gomega.Succeed())
		gomega.Eventually(tokens).Should(gomega.Receive(gomega.Equal("tok-2")))

		gomega.Expect(listener.SetAccessToken("")).To(gomega.Succeed())
		state, _ := listener.State()
		gomega.Expect(state).To(gomega.Equal(notification.StateIdle))
	})

	ginkgo.It("should give up after the attempt budget", func() {
		server.Close()
		gomega.Expect(listener.SetAccessToken("tok-1")).To(gomega.Succeed())

		gomega.Eventually(func() notification.State {
			state, _ := listener.State()
			return state
		}, time.Second).Should(gomega.Equal(notification.StateGaveUp))

		_, attempts := listener.State()
		gomega.Expect(attempts).To(gomega.Equal(2))
	})
})

var _ = ginkgo.Describe("Hub", func() {
	ginkgo.It("should keep the newest envelopes first within capacity", func() {
		hub := notification.NewHub(3)
		for _, t := range []string{"a", "b", "c", "d"} {
			hub.Push(notification.Envelope{Type: t})
		}

		recent := hub.Recent(0)
		gomega.Expect(recent).To(gomega.HaveLen(3))
		gomega.Expect(recent[0].Type).To(gomega.Equal("d"))
		gomega.Expect(recent[2].Type).To(gomega.Equal("b"))
		gomega.Expect(hub.Recent(1)).To(gomega.HaveLen(1))
	})

	ginkgo.It("should fan out bus notifications to subscribers", func() {
		bus := events.NewEventBus(nil)
		hub := notification.NewHub(5)
		hub.Attach(bus)
		updates, cancel := hub.Subscribe()
		defer cancel()

		gomega.Expect(bus.PublishSync(context.Background(), events.NewNotificationReceivedEvent("task-update", nil))).To(gomega.Succeed())

		var env notification.Envelope
		gomega.Eventually(updates).Should(gomega.Receive(&env))
		gomega.Expect(env.Type).To(gomega.Equal("task-update"))
	})

	ginkgo.It("should close subscribers on Close", func() {
		hub := notification.NewHub(1)
		updates, _ := hub.Subscribe()
		hub.Close()
		gomega.Eventually(updates).Should(gomega.BeClosed())
	})
})

var _ = ginkgo.Describe("Handler.Stream", func() {
	ginkgo.It("should forward hub envelopes to the browser", func() {
		hub := notification.NewHub(5)
		h := notification.NewHandler(func(r *http.Request) (*notification.Hub, *notification.Listener, error) {
			return hub, nil, nil
		}, nil, nil)
		server := httptest.NewServer(http.HandlerFunc(h.Stream))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		conn, _, err := websocket.Dial(ctx, wsURL(server), nil)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		defer conn.CloseNow()

		// the server subscribes after the handshake, so keep pushing until one lands
		go func() {
			ticker := time.NewTicker(10 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					hub.Push(notification.Envelope{Type: "notification"})
				}
			}
		}()

		var env notification.Envelope
		gomega.Expect(wsjson.Read(ctx, conn, &env)).To(gomega.Succeed())
		gomega.Expect(env.Type).To(gomega.Equal("notification"))
	})
})
