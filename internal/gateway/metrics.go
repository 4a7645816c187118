package gateway

import "github.com/prometheus/client_golang/prometheus"

const (
	MetricRequestsTotal  = "efresco_gateway_requests_total"
	MetricWakeTotal      = "efresco_gateway_wake_attempts_total"
	MetricFallbacksTotal = "efresco_gateway_fallbacks_total"
)

// Request outcomes
const (
	OutcomeOK       = "ok"
	OutcomeRetried  = "retried"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
)

// Metrics counts gateway traffic. A nil *Metrics is valid and records nothing.
type Metrics struct {
	requests  *prometheus.CounterVec
	wakes     *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
}

// NewMetrics creates the gateway counters and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRequestsTotal,
			Help: "Gateway requests by method and outcome",
		}, []string{"method", "outcome"}),
		wakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricWakeTotal,
			Help: "Health probes sent while waking the backend, by result",
		}, []string{"result"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricFallbacksTotal,
			Help: "Demo payloads served in place of live responses, by endpoint pattern",
		}, []string{"pattern"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.wakes, m.fallbacks)
	}
	return m
}

func (m *Metrics) request(method, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) wake(ok bool) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.wakes.WithLabelValues(result).Inc()
}

func (m *Metrics) fallback(pattern string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(pattern).Inc()
}
