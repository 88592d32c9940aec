package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Write outcomes recorded on journal_decision_writes_total.
const (
	OutcomeSuccess   = "success"
	OutcomeNoop      = "noop"
	OutcomeDuplicate = "duplicate"
	OutcomeConflict  = "conflict"
	OutcomeInvalid   = "invalid"
	OutcomeNotFound  = "not_found"
	OutcomeError     = "error"
)

// JournalMetrics records decision and stage event writes.
type JournalMetrics struct {
	decisionWrites *prometheus.CounterVec
	stageEvents    *prometheus.CounterVec
	writeDuration  *prometheus.HistogramVec
}

// NewJournalMetrics registers the journal metrics on the provided registerer.
// A nil registerer yields a recorder that drops everything.
func NewJournalMetrics(reg prometheus.Registerer) *JournalMetrics {
	if reg == nil {
		return &JournalMetrics{}
	}
	decisionWrites := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "journal_decision_writes_total",
		Help: "Decision create/update attempts by outcome.",
	}, []string{"op", "outcome"})
	stageEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "journal_stage_events_total",
		Help: "Stage events appended per pipeline stage.",
	}, []string{"stage"})
	writeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "journal_write_duration_seconds",
		Help:    "Duration of journal write transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	reg.MustRegister(decisionWrites, stageEvents, writeDuration)
	return &JournalMetrics{
		decisionWrites: decisionWrites,
		stageEvents:    stageEvents,
		writeDuration:  writeDuration,
	}
}

// ObserveDecisionWrite counts a decision write and its duration.
func (m *JournalMetrics) ObserveDecisionWrite(op, outcome string, duration time.Duration) {
	if m == nil || m.decisionWrites == nil {
		return
	}
	m.decisionWrites.WithLabelValues(normalizeLabel(op), normalizeLabel(outcome)).Inc()
	m.writeDuration.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

// ObserveStageEvent counts an appended stage event and its duration.
func (m *JournalMetrics) ObserveStageEvent(stage string, duration time.Duration) {
	if m == nil || m.stageEvents == nil {
		return
	}
	m.stageEvents.WithLabelValues(normalizeLabel(stage)).Inc()
	m.writeDuration.WithLabelValues("append_stage_event").Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
