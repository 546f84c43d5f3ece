package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Authorization handshake

	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_auth_attempts_total",
			Help: "Total number of authorization attempts by step and result",
		},
		[]string{"step", "result"},
	)

	// Appliance runs

	RunsStartedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_runs_started_total",
			Help: "Total number of appliance runs started",
		},
		[]string{"appliance"},
	)

	RunsFinishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_runs_finished_total",
			Help: "Total number of appliance runs closed, by outcome",
		},
		[]string{"appliance", "outcome"},
	)

	RefundedCentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_refunded_cents_total",
			Help: "Sum of refunds credited back to rooms, in cents",
		},
	)

	// Bank ingestion

	BankPaymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_bank_payments_total",
			Help: "Total number of bank transactions seen, by classification (valid, invalid, malformed)",
		},
		[]string{"kind"},
	)

	BankPollErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_bank_poll_errors_total",
			Help: "Total number of failed bank statement polls",
		},
	)

	// Notifications

	PushSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_push_sent_total",
			Help: "Total number of push notifications sent, by result",
		},
		[]string{"result"},
	)

	// HTTP

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "billing_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)
)

// Result labels
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Middleware records request count and latency per matched route. Requests
// that match no route are grouped under "unmatched" to bound label cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Result maps an error to a result label.
func Result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
