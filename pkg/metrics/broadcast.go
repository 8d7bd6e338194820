package metrics

import "github.com/prometheus/client_golang/prometheus"

// BroadcastMetrics counts fan-out deliveries.
type BroadcastMetrics struct {
	sent   prometheus.Counter
	failed prometheus.Counter
	runs   *prometheus.CounterVec
}

// NewBroadcastMetrics registers broadcast counters on the provided registerer.
func NewBroadcastMetrics(reg prometheus.Registerer) *BroadcastMetrics {
	if reg == nil {
		return &BroadcastMetrics{}
	}
	sent := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcast_messages_sent_total",
		Help:      "Broadcast messages delivered.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcast_messages_failed_total",
		Help:      "Broadcast messages that failed to deliver.",
	})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcast_runs_total",
		Help:      "Broadcast runs by terminal outcome.",
	}, []string{"outcome"})
	reg.MustRegister(sent, failed, runs)
	return &BroadcastMetrics{sent: sent, failed: failed, runs: runs}
}

// IncSent counts one delivered message.
func (b *BroadcastMetrics) IncSent() {
	if b == nil || b.sent == nil {
		return
	}
	b.sent.Inc()
}

// IncFailed counts one failed delivery.
func (b *BroadcastMetrics) IncFailed() {
	if b == nil || b.failed == nil {
		return
	}
	b.failed.Inc()
}

// IncRun counts a finished run with its outcome (completed/canceled).
func (b *BroadcastMetrics) IncRun(outcome string) {
	if b == nil || b.runs == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	b.runs.WithLabelValues(outcome).Inc()
}
