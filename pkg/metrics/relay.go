package metrics

import "github.com/prometheus/client_golang/prometheus"

// Relay counts what the outbox publisher does with each event.
type Relay struct {
	events *prometheus.CounterVec
	pruned prometheus.Counter
}

func NewRelay(reg prometheus.Registerer) *Relay {
	if reg == nil {
		return &Relay{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "erp_outbox_events_total",
		Help: "Outbox events handled by the publisher, by outcome.",
	}, []string{"event_type", "outcome"})
	pruned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "erp_outbox_pruned_total",
		Help: "Published outbox rows removed by the retention sweep.",
	})
	reg.MustRegister(events, pruned)
	return &Relay{events: events, pruned: pruned}
}

// Event records one outcome (published, retry, dead_lettered) for eventType.
func (r *Relay) Event(eventType, outcome string) {
	if r == nil || r.events == nil {
		return
	}
	r.events.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func (r *Relay) Pruned(n int64) {
	if r == nil || r.pruned == nil || n <= 0 {
		return
	}
	r.pruned.Add(float64(n))
}
