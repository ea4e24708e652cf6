package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/eaglebank/banking/shared/xerrors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "eaglebank",
	Subsystem: "ledger",
	Name:      "operations_total",
	Help:      "Ledger operations by operation and outcome.",
}, []string{"operation", "outcome"})

var LedgerOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "eaglebank",
	Subsystem: "ledger",
	Name:      "operation_duration_seconds",
	Help:      "Time spent inside a ledger unit of work.",
	Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
}, []string{"operation"})

var InsufficientFunds = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "eaglebank",
	Subsystem: "ledger",
	Name:      "insufficient_funds_total",
	Help:      "Debits rejected because the balance did not cover them.",
})

var EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "eaglebank",
	Subsystem: "ledger",
	Name:      "events_published_total",
	Help:      "Account events handed to the broker, by type and outcome.",
}, []string{"type", "outcome"})

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "eaglebank",
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "HTTP requests by route and status code.",
}, []string{"method", "route", "status"})

// ObserveOperation records the outcome and latency of one ledger operation.
func ObserveOperation(operation string, start time.Time, err error) {
	LedgerOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	LedgerOperations.WithLabelValues(operation, Outcome(err)).Inc()
	if errors.Is(err, xerrors.ErrInsufficientFunds) {
		InsufficientFunds.Inc()
	}
}

// ObservePublish records the result of handing an event to the broker.
func ObservePublish(eventType string, err error) {
	EventsPublished.WithLabelValues(eventType, Outcome(err)).Inc()
}

// Outcome buckets an error into a low-cardinality label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, xerrors.ErrInsufficientFunds):
		return "insufficient_funds"
	case xerrors.IsNotFound(err):
		return "not_found"
	case errors.Is(err, xerrors.ErrInvalidAmount),
		errors.Is(err, xerrors.ErrValidation),
		errors.Is(err, xerrors.ErrAccountNotActive),
		errors.Is(err, xerrors.ErrDuplicateAccountNumber):
		return "rejected"
	default:
		return "error"
	}
}

// HTTPMiddleware counts requests by matched route.
func HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
