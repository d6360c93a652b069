package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hr_portal_http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hr_portal_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hr_portal_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	GuardDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hr_portal_guard_decisions_total",
			Help: "Navigation decisions by outcome and rule.",
		},
		[]string{"outcome", "rule"},
	)

	LoginOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hr_portal_login_total",
			Help: "Login attempts by result.",
		},
		[]string{"result"},
	)

	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hr_portal_sessions_active",
		Help: "Sessions currently held in memory.",
	})

	NotificationReconnects = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hr_portal_notification_reconnects_total",
		Help: "Reconnect attempts of the notification channel.",
	})

	NotificationsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hr_portal_notifications_received_total",
			Help: "Notification envelopes received by type.",
		},
		[]string{"type", "accepted"},
	)
)

var registerOnce sync.Once

// Init registers the portal collectors in the default registry. Safe to call repeatedly.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			GuardDecisions, LoginOutcomes, SessionsActive,
			NotificationReconnects, NotificationsReceived,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records RPS, latency and in-flight requests. The chi route pattern is used
// as the path label when available to keep cardinality bounded.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
