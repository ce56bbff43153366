package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestConversationMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConversationMetrics(reg)
	m.ObserveInbound("accepted")
	m.ObserveReply("ok")
	m.ObserveToolCall("agendar_turno")
	m.ObserveExchangeLatency(0.5)
}

func TestConversationMetricsNilSafe(t *testing.T) {
	var m *ConversationMetrics
	m.ObserveInbound("accepted")
	m.ObserveReply("ok")
	m.ObserveToolCall("agendar_turno")
	m.ObserveExchangeLatency(0.1)
}
