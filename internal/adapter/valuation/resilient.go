package valuation

import (
	"context"
	"errors"
	"time"

	"credit-acceleration/internal/domain/apperr"
	"credit-acceleration/internal/domain/valuation"
	"credit-acceleration/internal/infrastructure/metrics"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type ResilienceConfig struct {
	// Timeout bounds each attempt (default: 5s)
	Timeout time.Duration
	// Retries after the first attempt (default: 3)
	Retries int
	// BaseBackoff is the first retry delay; later delays double (default: 200ms)
	BaseBackoff time.Duration
	// BreakerFailures consecutive failures open the breaker (default: 5)
	BreakerFailures uint32
	// BreakerCooldown is how long the breaker stays open (default: 30s)
	BreakerCooldown time.Duration
}

func (c *ResilienceConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 200 * time.Millisecond
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = 30 * time.Second
	}
}

// Resilient wraps a provider with a per-attempt timeout, exponential retry on
// transient failures and a circuit breaker. Exhausted retries surface as
// apperr.ErrExternalServiceUnavailable.
type Resilient struct {
	next    valuation.Provider
	cfg     ResilienceConfig
	cb      *gobreaker.CircuitBreaker
	log     *zap.Logger
	metrics metrics.Collector
}

func NewResilient(next valuation.Provider, cfg ResilienceConfig, log *zap.Logger, m metrics.Collector) *Resilient {
	cfg.defaults()
	if log == nil {
		log = zap.NewNop()
	}
	r := &Resilient{next: next, cfg: cfg, log: log.Named("valuation"), metrics: metrics.OrNoOp(m)}
	r.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "valuation",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: func(err error) bool { return err == nil || !transient(err) },
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			var state metrics.CircuitState
			switch to {
			case gobreaker.StateClosed:
				state = metrics.CircuitClosed
			case gobreaker.StateHalfOpen:
				state = metrics.CircuitHalfOpen
			case gobreaker.StateOpen:
				state = metrics.CircuitOpen
			}
			r.metrics.RecordCircuitState(name, state)
		},
	})
	return r
}

// transient reports whether err is worth retrying. Provider 4xx answers
// (other than 429) are not.
func transient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}

func (r *Resilient) attempt(ctx context.Context, address string) (*valuation.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()
	out, err := r.cb.Execute(func() (interface{}, error) {
		return r.next.Comparables(ctx, address)
	})
	if err != nil {
		return nil, err
	}
	return out.(*valuation.Report), nil
}

func (r *Resilient) Comparables(ctx context.Context, address string) (*valuation.Report, error) {
	start := time.Now()
	attempts := 0

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = r.cfg.BaseBackoff
	expo.Multiplier = 2
	expo.RandomizationFactor = 0.2

	report, err := backoff.Retry(ctx, func() (*valuation.Report, error) {
		attempts++
		rep, err := r.attempt(ctx, address)
		if err == nil {
			return rep, nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) || !transient(err) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	},
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(r.cfg.Retries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.log.Warn("valuation attempt failed, retrying",
				zap.String("address", address),
				zap.Int("attempt", attempts),
				zap.Duration("backoff", next),
				zap.Error(err),
			)
		}),
	)
	elapsed := time.Since(start)
	if err != nil {
		r.metrics.RecordValuationCall("unavailable", attempts, elapsed)
		r.log.Warn("valuation provider unavailable",
			zap.String("address", address),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return nil, apperr.Unavailable("valuation provider failed after %d attempt(s): %v", attempts, err)
	}
	r.metrics.RecordValuationCall("ok", attempts, elapsed)
	return report, nil
}
