package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "food_delivery",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "food_delivery",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "food_delivery",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	ordersPlaced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "food_delivery",
			Subsystem: "orders",
			Name:      "placed_total",
			Help:      "Total number of orders written to the store.",
		},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "food_delivery",
			Subsystem: "notifications",
			Name:      "sent_total",
			Help:      "New-order notification attempts by outcome.",
		},
		[]string{"success"},
	)

	notificationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "food_delivery",
			Subsystem: "notifications",
			Name:      "duration_seconds",
			Help:      "Duration of new-order notification attempts.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	uploads = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "food_delivery",
			Subsystem: "menu",
			Name:      "uploads_total",
			Help:      "Total number of menu images stored.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		ordersPlaced,
		notifications,
		notificationDuration,
		uploads,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	})
}

func RecordOrderPlaced() {
	ordersPlaced.Inc()
}

func RecordNotification(success bool, duration time.Duration) {
	notifications.WithLabelValues(strconv.FormatBool(success)).Inc()
	notificationDuration.Observe(duration.Seconds())
}

func RecordUpload() {
	uploads.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

var knownPaths = map[string]bool{
	"/":                  true,
	"/order":             true,
	"/admin":             true,
	"/admin/menu":        true,
	"/admin/menu/delete": true,
	"/health":            true,
}

// canonicalPath keeps the label set bounded: static files collapse into one label.
func canonicalPath(raw string) string {
	if raw == "" {
		return "/"
	}
	if knownPaths[raw] {
		return raw
	}
	trimmed := strings.TrimSuffix(raw, "/")
	if knownPaths[trimmed] {
		return trimmed
	}
	if strings.HasPrefix(raw, "/uploads/") {
		return "/uploads"
	}
	return "/static"
}
