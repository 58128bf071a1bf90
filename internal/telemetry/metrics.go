// Package telemetry provides application-level observability for the
// membership backend.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// automatically available on the side-channel HTTP server started by main.go:
//
//	GET http(s)://<host>:<SHB_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint returns data in the Prometheus text
// exposition format and is intended to be scraped every 15–60 seconds. It is
// NOT served by the Gin router.
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /api/society/:id)
// rather than the raw request URL to prevent unbounded label cardinality from
// user-supplied path segments such as society or group ids.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics — labelled by method, route template, and status code.
//
// HTTPRequestsTotal is a CounterVec with labels {method, path, status}. The
// path label holds the Gin route template, NOT the raw URL.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - Error rate (%):                    sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//
// HTTPRequestDuration is a HistogramVec with labels {method, path} and
// exponential-ish buckets from 5 ms to 30 s.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Authentication metrics.
//
// SignupsTotal counts completed signup attempts by result ("created",
// "invalid", "conflict"). LoginsTotal counts login attempts by result
// ("success", "bad_credentials", "locked", "unverified"). A rising locked or
// bad_credentials rate is the first signal of a credential-stuffing run.
//
// OTPVerificationsTotal counts OTP checks by result ("success", "mismatch",
// "expired", "exhausted").
var (
	SignupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signups_total",
			Help: "Total number of signup attempts, by result.",
		},
		[]string{"result"},
	)

	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logins_total",
			Help: "Total number of login attempts, by result.",
		},
		[]string{"result"},
	)

	OTPVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otp_verifications_total",
			Help: "Total number of OTP verification attempts, by result.",
		},
		[]string{"result"},
	)

	TokenRotationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_rotations_total",
			Help: "Total number of refresh-token rotation attempts, by result.",
		},
		[]string{"result"},
	)
)

// Membership workflow metrics.
//
// JoinRequestsTotal is a CounterVec with labels {action} where action is one
// of "submitted", "approved", "rejected". EventRegistrationsTotal is the
// event-side analogue.
//
// Example PromQL queries:
//   - Approval rate: sum(rate(join_requests_total{action="approved"}[1d])) / sum(rate(join_requests_total{action="submitted"}[1d]))
var (
	JoinRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "join_requests_total",
			Help: "Total number of membership join-request operations, by action.",
		},
		[]string{"action"},
	)

	EventRegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_registrations_total",
			Help: "Total number of event registration operations, by action.",
		},
		[]string{"action"},
	)
)

// Outbound email metrics.
//
// EmailsSentTotal and EmailSendFailuresTotal are labelled by kind ("otp",
// "join_request", "status_change", "bulk"). Notification failures never fail
// the triggering operation, so this counter is the only place delivery
// problems surface; alert on rate(email_send_failures_total[1h]) > 0.
var (
	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Total number of notification emails successfully sent, by kind.",
		},
		[]string{"kind"},
	)

	EmailSendFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_send_failures_total",
			Help: "Total number of notification emails that failed after all retries, by kind.",
		},
		[]string{"kind"},
	)
)

// ExportsTotal counts member and registration exports by format ("xlsx",
// "pdf"). ExportDuration times export generation; exports build the whole
// document in memory so long tails here predict memory pressure.
var (
	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exports_total",
			Help: "Total number of generated exports, by format.",
		},
		[]string{"format"},
	)

	ExportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "export_duration_seconds",
			Help:    "Duration of export document generation.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// CredentialSweepsTotal is a plain Counter incremented once per completed
// sweep of expired OTPs and refresh tokens by the background sweeper.
var CredentialSweepsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "credential_sweeps_total",
		Help: "Total number of completed expired-credential sweep cycles.",
	},
)

// DBOpenConnections is a Gauge that tracks the number of open connections
// currently held by the sql.DB pool. It is sampled every 30 seconds by
// StartDBStatsCollector rather than per-request.
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB
// connection pool statistics every 30 seconds and updates DBOpenConnections.
// The goroutine exits cleanly when the database becomes unreachable, which
// happens automatically when the application shuts down and closes the pool.
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
