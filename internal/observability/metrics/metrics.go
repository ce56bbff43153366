package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics exposes counters/histograms for the chat pipeline.
type ConversationMetrics struct {
	inboundTotal    *prometheus.CounterVec
	repliesTotal    *prometheus.CounterVec
	toolCallsTotal  *prometheus.CounterVec
	exchangeLatency prometheus.Histogram
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turnero",
			Subsystem: "conversation",
			Name:      "inbound_total",
			Help:      "Total inbound Instagram messages",
		}, []string{"status"}),
		repliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turnero",
			Subsystem: "conversation",
			Name:      "replies_total",
			Help:      "Total replies produced per outcome",
		}, []string{"outcome"}),
		toolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turnero",
			Subsystem: "conversation",
			Name:      "tool_calls_total",
			Help:      "Total tool dispatches requested by the model",
		}, []string{"tool"}),
		exchangeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "turnero",
			Subsystem: "conversation",
			Name:      "exchange_latency_seconds",
			Help:      "Latency from flush to reply sent",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.repliesTotal, m.toolCallsTotal, m.exchangeLatency)
	return m
}

func (m *ConversationMetrics) ObserveInbound(status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(status).Inc()
}

func (m *ConversationMetrics) ObserveReply(outcome string) {
	if m == nil {
		return
	}
	m.repliesTotal.WithLabelValues(outcome).Inc()
}

func (m *ConversationMetrics) ObserveToolCall(tool string) {
	if m == nil {
		return
	}
	m.toolCallsTotal.WithLabelValues(tool).Inc()
}

func (m *ConversationMetrics) ObserveExchangeLatency(seconds float64) {
	if m == nil {
		return
	}
	m.exchangeLatency.Observe(seconds)
}
