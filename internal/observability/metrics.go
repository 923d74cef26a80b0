package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the Prometheus instruments used by the service.
type Metrics struct {
	ChatRequests      *prometheus.CounterVec
	TokensUsed        prometheus.Counter
	GenerationLatency prometheus.Histogram
	ActiveSessions    prometheus.GaugeFunc
}

// NewMetrics registers all instruments under the given namespace. The
// activeSessions callback is polled on scrape.
func NewMetrics(namespace string, activeSessions func() float64) *Metrics {
	return &Metrics{
		ChatRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Chat requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		TokensUsed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_tokens_total",
			Help:      "Total tokens reported by the generation backend.",
		}),
		GenerationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_latency_seconds",
			Help:      "Wall-clock latency of generation calls in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 30},
		}),
		ActiveSessions: promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live conversation sessions.",
		}, activeSessions),
	}
}

// RecordChat counts one chat request and folds in the generation stats.
func (m *Metrics) RecordChat(endpoint string, failed bool, tokens int, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if failed {
		outcome = "degraded"
	}
	m.ChatRequests.WithLabelValues(endpoint, outcome).Inc()
	if tokens > 0 {
		m.TokensUsed.Add(float64(tokens))
	}
	m.GenerationLatency.Observe(elapsed.Seconds())
}

// Handler exposes the default registry for the /metrics route.
func Handler() http.Handler {
	return promhttp.Handler()
}
