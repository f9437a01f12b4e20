package intake

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records pipeline outcomes.
type Metrics interface {
	IncEvent(result string)
	IncDeletion(reason string)
	IncValidation(category string, valid bool)
	IncTranscription(result string)
	IncAuditConflict()
}

// NoopMetrics implements Metrics without emitting anything.
type NoopMetrics struct{}

func (NoopMetrics) IncEvent(string)            {}
func (NoopMetrics) IncDeletion(string)         {}
func (NoopMetrics) IncValidation(string, bool) {}
func (NoopMetrics) IncTranscription(string)    {}
func (NoopMetrics) IncAuditConflict()          {}

// PromMetrics implements Metrics backed by Prometheus counters.
type PromMetrics struct {
	events         *prometheus.CounterVec
	deletions      *prometheus.CounterVec
	validations    *prometheus.CounterVec
	transcriptions *prometheus.CounterVec
	auditConflicts prometheus.Counter
	once           sync.Once
}

// NewPromMetrics constructs and registers the pipeline counters.
func NewPromMetrics(namespace string) *PromMetrics {
	p := &PromMetrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Handled notifications by result",
		}, []string{"result"}),
		deletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deletions_total",
			Help:      "Deleted objects by reason",
		}, []string{"reason"}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Validation verdicts by category and outcome",
		}, []string{"category", "verdict"}),
		transcriptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcriptions_total",
			Help:      "Transcription attempts by result",
		}, []string{"result"}),
		auditConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_write_conflicts_total",
			Help:      "Audit log append attempts that lost the write race",
		}),
	}
	p.register()
	return p
}

func (p *PromMetrics) register() {
	p.once.Do(func() {
		prometheus.MustRegister(p.events, p.deletions, p.validations, p.transcriptions, p.auditConflicts)
	})
}

func (p *PromMetrics) IncEvent(result string) {
	p.events.WithLabelValues(result).Inc()
}

func (p *PromMetrics) IncDeletion(reason string) {
	p.deletions.WithLabelValues(reason).Inc()
}

func (p *PromMetrics) IncValidation(category string, valid bool) {
	verdict := "invalid"
	if valid {
		verdict = "valid"
	}
	p.validations.WithLabelValues(category, verdict).Inc()
}

func (p *PromMetrics) IncTranscription(result string) {
	p.transcriptions.WithLabelValues(result).Inc()
}

func (p *PromMetrics) IncAuditConflict() {
	p.auditConflicts.Inc()
}
