package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "metabento",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "metabento",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "metabento",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	pointsCredited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "metabento",
			Subsystem: "ledger",
			Name:      "points_credited_total",
			Help:      "Points credited, by reason.",
		},
		[]string{"reason"},
	)

	pointsDebited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "metabento",
			Subsystem: "ledger",
			Name:      "points_debited_total",
			Help:      "Points debited, by reason.",
		},
		[]string{"reason"},
	)

	connectionsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "metabento",
			Subsystem: "ledger",
			Name:      "connections_created_total",
			Help:      "Mutual connections created, by type.",
		},
		[]string{"type"},
	)

	ledgerRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "metabento",
			Subsystem: "ledger",
			Name:      "rejections_total",
			Help:      "Ledger operations rejected, by operation and error kind.",
		},
		[]string{"operation", "kind"},
	)

	swapsRequested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "metabento",
			Subsystem: "ledger",
			Name:      "token_swaps_total",
			Help:      "Token swaps recorded as pending.",
		},
	)

	achievementsUnlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "metabento",
			Subsystem: "progression",
			Name:      "achievements_unlocked_total",
			Help:      "Achievements unlocked, by type.",
		},
		[]string{"type"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		pointsCredited,
		pointsDebited,
		connectionsCreated,
		ledgerRejections,
		swapsRequested,
		achievementsUnlocked,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency, labelled by the matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "/metrics" {
			c.Next()
			return
		}
		if path == "" {
			path = "unmatched"
		}
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		method := c.Request.Method
		httpRequests.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

func RecordCredit(reason string, amount int64) {
	if amount > 0 {
		pointsCredited.WithLabelValues(reason).Add(float64(amount))
	}
}

func RecordDebit(reason string, amount int64) {
	if amount > 0 {
		pointsDebited.WithLabelValues(reason).Add(float64(amount))
	}
}

func RecordConnection(connType string) {
	connectionsCreated.WithLabelValues(connType).Inc()
}

func RecordRejection(operation, kind string) {
	ledgerRejections.WithLabelValues(operation, kind).Inc()
}

func RecordSwap() {
	swapsRequested.Inc()
}

func RecordAchievement(t string) {
	achievementsUnlocked.WithLabelValues(t).Inc()
}
