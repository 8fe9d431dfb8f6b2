package server

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics instruments the consulta endpoint. Counters are labeled by
// the stable result code so dashboards can split success, parse
// failures, portal outages and exhausted budgets.
type Metrics struct {
	registry *prometheus.Registry

	queries         *prometheus.CounterVec
	duration        prometheus.Histogram
	captchaAttempts prometheus.Counter
}

// NewMetrics builds an isolated registry with the consulta collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "consulta",
			Name:      "queries_total",
			Help:      "Queries executed, labeled by result code.",
		}, []string{"code"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "consulta",
			Name:      "query_duration_seconds",
			Help:      "Wall-clock duration of full queries.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		captchaAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "consulta",
			Name:      "captcha_attempts_total",
			Help:      "CAPTCHA solver invocations across all queries.",
		}),
	}

	m.registry.MustRegister(m.queries, m.duration, m.captchaAttempts)
	return m
}

// Observe records one finished query.
func (m *Metrics) Observe(code int, seconds float64, captchaAttempts int) {
	m.queries.WithLabelValues(strconv.Itoa(code)).Inc()
	m.duration.Observe(seconds)
	m.captchaAttempts.Add(float64(captchaAttempts))
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
