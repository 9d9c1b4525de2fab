package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "spservice"

type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	calls           *prometheus.CounterVec
	resultSets      prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "procedure_calls_total",
			Help:      "Stored procedure invocations by outcome.",
		}, []string{"outcome"}),
		resultSets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_sets_total",
			Help:      "Result sets drained from procedure calls.",
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.calls,
		m.resultSets,
		prometheus.NewGoCollector(),
	)
	return m
}

func (m *Metrics) ObserveRequest(route, method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, status).Inc()
	m.requestDuration.WithLabelValues(route).Observe(seconds)
}

// ObserveCall counts one invocation. outcome is "ok" or an error class such as "invocation".
func (m *Metrics) ObserveCall(outcome string, sets int) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(outcome).Inc()
	m.resultSets.Add(float64(sets))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
