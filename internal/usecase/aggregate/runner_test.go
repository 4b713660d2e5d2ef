package aggregate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"credit-acceleration/internal/domain/apperr"
	"credit-acceleration/internal/domain/loan"
	"credit-acceleration/internal/domain/notification"
	"credit-acceleration/internal/testutil/harness"
	"credit-acceleration/internal/usecase/aggregate"
	"credit-acceleration/pkg/id"
)

func newLoan(h *harness.Harness) *loan.Loan {
	return &loan.Loan{
		LoanID:          id.NewID32(),
		ApplicantID:     "applicant-1",
		Status:          loan.StatusPending,
		RequestedAmount: 250000,
		InterestRate:    0.045,
		TermMonths:      360,
		CreditScore:     740,
		StatusUpdatedAt: h.Clock.Now(),
	}
}

func create(t *testing.T, h *harness.Harness) *loan.Loan {
	t.Helper()
	l := newLoan(h)
	err := h.Runner.Create(context.Background(), l, func(tx *aggregate.Tx) error {
		tx.Notify(notification.Draft{Type: "application_received", Title: "Application received", Priority: notification.PriorityLow})
		return nil
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return l
}

func TestRunner_CreateRecordsAndPublishes(t *testing.T) {
	h := harness.New(t)
	l := create(t, h)

	got := h.Sink.Wait(t, 1)
	if got[0].Seq != 1 || got[0].LoanPublicID != l.LoanID || got[0].Type != "application_received" {
		t.Fatalf("published %+v", got[0])
	}
	stored, err := h.UoW.Repos().Loans.GetByLoanID(context.Background(), l.LoanID)
	if err != nil {
		t.Fatalf("GetByLoanID: %v", err)
	}
	if stored.NotificationSeq != 1 {
		t.Fatalf("NotificationSeq = %d, want 1", stored.NotificationSeq)
	}
}

func TestRunner_MutateTransitionsAndNotifiesObservers(t *testing.T) {
	h := harness.New(t)
	l := create(t, h)

	var seen []loan.Status
	h.Runner.Observe(func(loanID string, from, to loan.Status) {
		if loanID == l.LoanID {
			seen = append(seen, from, to)
		}
	})

	h.Clock.Advance(time.Hour)
	err := h.Runner.Mutate(context.Background(), l.LoanID, "test", func(tx *aggregate.Tx) error {
		return tx.Transition(loan.StatusProcessing, "")
	})
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}

	stored, _ := h.UoW.Repos().Loans.GetByLoanID(context.Background(), l.LoanID)
	if stored.Status != loan.StatusProcessing || !stored.StatusUpdatedAt.Equal(h.Clock.Now()) {
		t.Fatalf("stored %s at %v", stored.Status, stored.StatusUpdatedAt)
	}
	if len(seen) != 2 || seen[0] != loan.StatusPending || seen[1] != loan.StatusProcessing {
		t.Fatalf("observer saw %v", seen)
	}
	got := h.Sink.Wait(t, 2)
	if got[1].Seq != 2 || got[1].Type != "status_processing" {
		t.Fatalf("status notification %+v", got[1])
	}
}

func TestRunner_MutateErrorRollsBack(t *testing.T) {
	h := harness.New(t)
	l := create(t, h)
	h.Sink.Wait(t, 1)

	boom := errors.New("boom")
	err := h.Runner.Mutate(context.Background(), l.LoanID, "test", func(tx *aggregate.Tx) error {
		if err := tx.Transition(loan.StatusProcessing, ""); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}

	stored, _ := h.UoW.Repos().Loans.GetByLoanID(context.Background(), l.LoanID)
	if stored.Status != loan.StatusPending || stored.NotificationSeq != 1 {
		t.Fatalf("rolled back loan changed: %s seq=%d", stored.Status, stored.NotificationSeq)
	}
	ns, _ := h.UoW.Repos().Notifications.ListByLoanID(context.Background(), stored.ID, false)
	if len(ns) != 1 {
		t.Fatalf("notifications = %d, want 1", len(ns))
	}
	time.Sleep(20 * time.Millisecond)
	if n := len(h.Sink.All()); n != 1 {
		t.Fatalf("published %d, rollback must not publish", n)
	}
}

func TestRunner_InvalidTransitionLeavesLoanUntouched(t *testing.T) {
	h := harness.New(t)
	l := create(t, h)

	err := h.Runner.Mutate(context.Background(), l.LoanID, "test", func(tx *aggregate.Tx) error {
		return tx.Transition(loan.StatusFunded, "")
	})
	if !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("want ErrInvalidTransition, got %v", err)
	}
}

func TestRunner_StaleVersionIsConflict(t *testing.T) {
	h := harness.New(t)
	l := create(t, h)

	err := h.Runner.Mutate(context.Background(), l.LoanID, "test", func(tx *aggregate.Tx) error {
		tx.Loan.Version += 3
		return nil
	})
	if !errors.Is(err, apperr.ErrConcurrencyConflict) {
		t.Fatalf("want ErrConcurrencyConflict, got %v", err)
	}
	if !apperr.Retryable(err) {
		t.Fatal("conflicts must be retryable")
	}
}

func TestRunner_MutateWaitsForLockUntilContextDone(t *testing.T) {
	h := harness.New(t)
	l := create(t, h)

	unlock, err := h.Locker.Lock(context.Background(), "loan:"+l.LoanID)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err = h.Runner.Mutate(ctx, l.LoanID, "test", func(*aggregate.Tx) error {
		t.Fatal("fn must not run without the lock")
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want DeadlineExceeded, got %v", err)
	}
}

func TestRunner_ArchiveSoftDeletes(t *testing.T) {
	h := harness.New(t)
	l := create(t, h)

	err := h.Runner.Mutate(context.Background(), l.LoanID, "archive", func(tx *aggregate.Tx) error {
		tx.Archive("ops-1")
		return nil
	})
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if _, err := h.UoW.Repos().Loans.GetByLoanID(context.Background(), l.LoanID); !errors.Is(err, loan.ErrNotFound) {
		t.Fatalf("archived loan should be hidden, got %v", err)
	}
}

func TestRunner_LoanIDFor(t *testing.T) {
	h := harness.New(t)
	l := create(t, h)

	got, err := h.Runner.LoanIDFor(context.Background(), l.ID)
	if err != nil || got != l.LoanID {
		t.Fatalf("LoanIDFor = %q, %v", got, err)
	}
	if _, err := h.Runner.LoanIDFor(context.Background(), l.ID+100); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
