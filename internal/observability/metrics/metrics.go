package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for model invocation flows.
type ChatMetrics struct {
	requestsTotal  *prometheus.CounterVec
	fragmentsTotal prometheus.Counter
	errorsTotal    *prometheus.CounterVec
	invokeLatency  *prometheus.HistogramVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aiagent",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Total model invocations by mode",
		}, []string{"mode", "status"}),
		fragmentsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aiagent",
			Subsystem: "chat",
			Name:      "stream_fragments_total",
			Help:      "Total text fragments delivered to clients",
		}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aiagent",
			Subsystem: "chat",
			Name:      "errors_total",
			Help:      "Total classified Bedrock errors",
		}, []string{"category"}),
		invokeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aiagent",
			Subsystem: "chat",
			Name:      "invoke_latency_seconds",
			Help:      "Latency of remote Bedrock calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.fragmentsTotal, m.errorsTotal, m.invokeLatency)
	return m
}

func (m *ChatMetrics) ObserveRequest(mode, status string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(mode, status).Inc()
}

func (m *ChatMetrics) ObserveFragments(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.fragmentsTotal.Add(float64(n))
}

func (m *ChatMetrics) ObserveError(category string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(category).Inc()
}

func (m *ChatMetrics) ObserveInvokeLatency(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.invokeLatency.WithLabelValues(operation).Observe(seconds)
}
