package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	Registry *prometheus.Registry

	CounterRequests      *prometheus.CounterVec
	CounterRepsRecorded  prometheus.Counter
	CounterWebhookEvents *prometheus.CounterVec

	HistogramRequestDuration *prometheus.HistogramVec
}

func NewManager(namespace string) *Manager {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Manager{
		Registry: reg,
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "The total number of incoming HTTP requests",
		}, []string{"method", "status"}),
		CounterRepsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reps_recorded_total",
			Help:      "The total number of reps recorded",
		}),
		CounterWebhookEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "billing_webhook_events_total",
			Help:      "Billing webhook events received, by type",
		}, []string{"type"}),
		HistogramRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// RequestMetrics counts every request and times it.
func RequestMetrics(m *Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		begin := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			}
		}
		m.CounterRequests.With(prometheus.Labels{
			"method": c.Method(),
			"status": strconv.Itoa(status),
		}).Inc()
		m.HistogramRequestDuration.With(prometheus.Labels{
			"method": c.Method(),
		}).Observe(time.Since(begin).Seconds())

		return err
	}
}
