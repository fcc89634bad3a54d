package httpx

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ClientMetrics counts outgoing requests by method and status code.
type ClientMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewClientMetrics(namespace string) *ClientMetrics {
	return &ClientMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_client_requests_total",
				Help:      "Count of outgoing API requests by method and status code.",
			},
			[]string{"method", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_client_request_duration_seconds",
				Help:      "Latency of outgoing API requests.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}
}

// Register adds the collectors to reg. Registering twice is a no-op.
func (m *ClientMetrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.requests, m.duration} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

func (m *ClientMetrics) Middleware() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)
			m.duration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())

			code := "error"
			if err == nil {
				code = strconv.Itoa(resp.StatusCode)
			}
			m.requests.WithLabelValues(r.Method, code).Inc()
			return resp, err
		})
	}
}

// Requests exposes the counter for tests and dashboards.
func (m *ClientMetrics) Requests() *prometheus.CounterVec {
	return m.requests
}
