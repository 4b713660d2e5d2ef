// Package aggregate serialises every write to a loan aggregate: one writer per
// loan at a time, one transaction per operation, notifications published only
// after commit.
package aggregate

import (
	"context"
	"errors"
	"time"

	"credit-acceleration/internal/domain/apperr"
	"credit-acceleration/internal/domain/loan"
	"credit-acceleration/internal/domain/notification"
	"credit-acceleration/internal/domain/uow"
	"credit-acceleration/internal/infrastructure/metrics"
	"credit-acceleration/pkg/clock"

	"go.uber.org/zap"
)

// Locker provides keyed mutual exclusion.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
	TryLock(ctx context.Context, key string) (func(), bool, error)
}

// Notifier numbers notifications inside a transaction and publishes them
// once the transaction has committed.
type Notifier interface {
	Record(ctx context.Context, r notification.Repository, l *loan.Loan, d notification.Draft) (*notification.Notification, error)
	Publish(batch []notification.Notification)
}

// TransitionObserver is called after a committed status change.
type TransitionObserver func(loanID string, from, to loan.Status)

type Runner struct {
	uow       uow.UnitOfWork
	locker    Locker
	notifier  Notifier
	clock     clock.Clock
	log       *zap.Logger
	metrics   metrics.Collector
	observers []TransitionObserver
}

func NewRunner(u uow.UnitOfWork, l Locker, n Notifier, clk clock.Clock, log *zap.Logger, m metrics.Collector) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		uow:      u,
		locker:   l,
		notifier: n,
		clock:    clk,
		log:      log.Named("aggregate"),
		metrics:  metrics.OrNoOp(m),
	}
}

// Observe registers fn for committed transitions. Not safe to call
// concurrently with Mutate; register during wiring.
func (r *Runner) Observe(fn TransitionObserver) { r.observers = append(r.observers, fn) }

func (r *Runner) Clock() clock.Clock { return r.clock }

// Repos returns non-transactional repositories for lookups outside Mutate.
func (r *Runner) Repos() uow.Repos { return r.uow.Repos() }

type transition struct{ from, to loan.Status }

// Tx is the mutable view of one loan inside Mutate.
type Tx struct {
	Repos uow.Repos
	Loan  *loan.Loan
	Now   time.Time

	drafts      []notification.Draft
	transitions []transition
	archivedBy  string
}

func (t *Tx) Notify(d notification.Draft) { t.drafts = append(t.drafts, d) }

// Transition moves the loan and queues the matching status notification.
func (t *Tx) Transition(to loan.Status, note string) error {
	from := t.Loan.Status
	if err := t.Loan.Transition(to, note, t.Now); err != nil {
		return err
	}
	t.transitions = append(t.transitions, transition{from: from, to: to})
	t.Notify(statusDraft(t.Loan.LoanID, from, to))
	return nil
}

// Archive soft-deletes the loan when the transaction commits.
func (t *Tx) Archive(actor string) { t.archivedBy = actor }

// Mutate runs fn against loanID under the loan's lock and row lock. The loan
// is saved with a version check after fn returns; any error rolls back fn's
// writes and nothing is published.
func (r *Runner) Mutate(ctx context.Context, loanID, op string, fn func(tx *Tx) error) error {
	unlock, err := r.locker.Lock(ctx, lockKey(loanID))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apperr.Conflict("loan %s is busy: %v", loanID, err)
	}
	var tx *Tx
	var published []notification.Notification
	err = r.uow.WithinLoanTx(ctx, loanID, func(repos uow.Repos, l *loan.Loan) error {
		tx = &Tx{Repos: repos, Loan: l, Now: r.clock.Now()}
		if err := fn(tx); err != nil {
			return err
		}
		var err error
		published, err = r.finish(ctx, tx)
		return err
	})
	if err == nil {
		r.notifier.Publish(published)
	}
	unlock()

	if err != nil {
		if errors.Is(err, apperr.ErrConcurrencyConflict) {
			r.metrics.RecordConflict(op)
			r.log.Warn("concurrency conflict", zap.String("loan_id", loanID), zap.String("op", op), zap.Error(err))
		}
		return err
	}
	r.committed(loanID, tx.transitions)
	return nil
}

// Create inserts a new loan and runs fn against it in the same transaction.
func (r *Runner) Create(ctx context.Context, l *loan.Loan, fn func(tx *Tx) error) error {
	var tx *Tx
	var published []notification.Notification
	err := r.uow.WithinTx(ctx, func(repos uow.Repos) error {
		if err := repos.Loans.Create(ctx, l); err != nil {
			return err
		}
		tx = &Tx{Repos: repos, Loan: l, Now: r.clock.Now()}
		if fn != nil {
			if err := fn(tx); err != nil {
				return err
			}
		}
		var err error
		published, err = r.finish(ctx, tx)
		return err
	})
	if err != nil {
		return err
	}
	r.notifier.Publish(published)
	r.committed(l.LoanID, tx.transitions)
	return nil
}

func (r *Runner) finish(ctx context.Context, tx *Tx) ([]notification.Notification, error) {
	out := make([]notification.Notification, 0, len(tx.drafts))
	for _, d := range tx.drafts {
		n, err := r.notifier.Record(ctx, tx.Repos.Notifications, tx.Loan, d)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	if tx.archivedBy != "" {
		return out, tx.Repos.Loans.Archive(ctx, tx.Loan, tx.archivedBy)
	}
	return out, tx.Repos.Loans.Save(ctx, tx.Loan)
}

func (r *Runner) committed(loanID string, ts []transition) {
	for _, t := range ts {
		r.metrics.RecordTransition(string(t.from), string(t.to))
		r.log.Info("loan status changed",
			zap.String("loan_id", loanID),
			zap.String("from", string(t.from)),
			zap.String("to", string(t.to)),
		)
		for _, obs := range r.observers {
			obs(loanID, t.from, t.to)
		}
	}
}

// LoanIDFor resolves a numeric loan id to its public id.
func (r *Runner) LoanIDFor(ctx context.Context, numericID uint64) (string, error) {
	l, err := r.uow.Repos().Loans.GetByID(ctx, numericID)
	if err != nil {
		return "", err
	}
	return l.LoanID, nil
}

func lockKey(loanID string) string { return "loan:" + loanID }
