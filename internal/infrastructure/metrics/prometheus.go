package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements Collector on client_golang vectors.
type Prometheus struct {
	transitions      *prometheus.CounterVec
	conflicts        *prometheus.CounterVec
	assessments      *prometheus.CounterVec
	assessLatency    *prometheus.HistogramVec
	valuationCalls   *prometheus.CounterVec
	valuationTries   *prometheus.HistogramVec
	valuationLatency *prometheus.HistogramVec
	circuitState     *prometheus.GaugeVec
	payouts          prometheus.Counter
	payoutAmount     prometheus.Counter
	publishes        *prometheus.CounterVec
}

// NewPrometheus creates the collector and registers it with reg.
func NewPrometheus(namespace string, reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loan_status_transitions_total",
			Help:      "Loan status transitions by source and target status",
		}, []string{"from", "to"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "concurrency_conflicts_total",
			Help:      "Optimistic-lock conflicts per operation",
		}, []string{"operation"}),
		assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_total",
			Help:      "Risk assessments by recommendation and outcome",
		}, []string{"recommendation", "outcome"}),
		assessLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "assessment_duration_seconds",
			Help:      "End-to-end assessment latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		valuationCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "valuation_calls_total",
			Help:      "Valuation provider calls by outcome",
		}, []string{"outcome"}),
		valuationTries: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "valuation_attempts",
			Help:      "Attempts per valuation call",
			Buckets:   []float64{1, 2, 3, 4},
		}, []string{"outcome"}),
		valuationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "valuation_duration_seconds",
			Help:      "Valuation call latency including retries",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		circuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_state",
			Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		}, []string{"name"}),
		payouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guarantee_payouts_total",
			Help:      "Guarantee payouts processed",
		}),
		payoutAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guarantee_payout_amount_total",
			Help:      "Sum of guarantee payout amounts",
		}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_publishes_total",
			Help:      "Notification fan-out attempts per sink",
		}, []string{"sink", "success"}),
	}

	for _, c := range []prometheus.Collector{
		p.transitions, p.conflicts, p.assessments, p.assessLatency,
		p.valuationCalls, p.valuationTries, p.valuationLatency, p.circuitState,
		p.payouts, p.payoutAmount, p.publishes,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) RecordTransition(from, to string) {
	p.transitions.WithLabelValues(from, to).Inc()
}

func (p *Prometheus) RecordConflict(operation string) {
	p.conflicts.WithLabelValues(operation).Inc()
}

func (p *Prometheus) RecordAssessment(recommendation, outcome string, d time.Duration) {
	p.assessments.WithLabelValues(recommendation, outcome).Inc()
	p.assessLatency.WithLabelValues(outcome).Observe(d.Seconds())
}

func (p *Prometheus) RecordValuationCall(outcome string, attempts int, d time.Duration) {
	p.valuationCalls.WithLabelValues(outcome).Inc()
	p.valuationTries.WithLabelValues(outcome).Observe(float64(attempts))
	p.valuationLatency.WithLabelValues(outcome).Observe(d.Seconds())
}

func (p *Prometheus) RecordCircuitState(name string, state CircuitState) {
	p.circuitState.WithLabelValues(name).Set(float64(state))
}

func (p *Prometheus) RecordPayout(amount float64) {
	p.payouts.Inc()
	p.payoutAmount.Add(amount)
}

func (p *Prometheus) RecordPublish(sink string, success bool) {
	p.publishes.WithLabelValues(sink, strconv.FormatBool(success)).Inc()
}
