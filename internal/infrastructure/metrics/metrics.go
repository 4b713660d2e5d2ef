package metrics

import "time"

// Collector records service-level metrics. Implementations must be safe for
// concurrent use.
type Collector interface {
	// Loan lifecycle
	RecordTransition(from, to string)
	RecordConflict(operation string)

	// Assessments: outcome is applied, discarded or failed.
	RecordAssessment(recommendation, outcome string, duration time.Duration)

	// Valuation provider: outcome is ok, cache_hit, unavailable or error.
	RecordValuationCall(outcome string, attempts int, duration time.Duration)
	RecordCircuitState(name string, state CircuitState)

	// Guarantees
	RecordPayout(amount float64)

	// Notification fan-out
	RecordPublish(sink string, success bool)
}

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// NoOp discards every metric. It is the default when metrics are disabled.
type NoOp struct{}

func (NoOp) RecordTransition(string, string)                {}
func (NoOp) RecordConflict(string)                          {}
func (NoOp) RecordAssessment(string, string, time.Duration) {}
func (NoOp) RecordValuationCall(string, int, time.Duration) {}
func (NoOp) RecordCircuitState(string, CircuitState)        {}
func (NoOp) RecordPayout(float64)                           {}
func (NoOp) RecordPublish(string, bool)                     {}

// OrNoOp returns c, or NoOp when c is nil.
func OrNoOp(c Collector) Collector {
	if c == nil {
		return NoOp{}
	}
	return c
}
