// Package harness wires the loan aggregate against an in-memory database so
// service tests exercise real transactions, locks and notification fan-out.
package harness

import (
	"context"
	"sync"
	"testing"
	"time"

	"credit-acceleration/internal/adapter/repository/mysql"
	"credit-acceleration/internal/domain/loan"
	"credit-acceleration/internal/domain/notification"
	"credit-acceleration/internal/infrastructure/lock"
	"credit-acceleration/internal/testutil/dbtest"
	"credit-acceleration/internal/usecase/aggregate"
	notifier "credit-acceleration/internal/usecase/notification"
	"credit-acceleration/pkg/clock"
	"credit-acceleration/pkg/id"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Epoch is the manual clock's starting point.
var Epoch = time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

type Harness struct {
	DB         *gorm.DB
	UoW        *mysql.GormUoW
	Clock      *clock.Manual
	Locker     *lock.Local
	Sink       *Sink
	Dispatcher *notifier.Dispatcher
	Runner     *aggregate.Runner
}

func New(t testing.TB) *Harness {
	t.Helper()
	db := dbtest.Open(t)
	u := mysql.NewGormUoW(db)
	clk := clock.NewManual(Epoch)
	sink := &Sink{}
	disp := notifier.NewDispatcher(u, []notifier.Sink{sink}, clk, zap.NewNop(), nil, notifier.Config{})
	t.Cleanup(disp.Close)
	locker := lock.NewLocal()
	return &Harness{
		DB:         db,
		UoW:        u,
		Clock:      clk,
		Locker:     locker,
		Sink:       sink,
		Dispatcher: disp,
		Runner:     aggregate.NewRunner(u, locker, disp, clk, zap.NewNop(), nil),
	}
}

// SeedLoan stores a pending 250,000 / 4.5% / 360-month application, after
// letting edit adjust it, without going through the registry.
func (h *Harness) SeedLoan(t testing.TB, edit func(l *loan.Loan)) *loan.Loan {
	t.Helper()
	l := &loan.Loan{
		LoanID:            id.NewID32(),
		ApplicantID:       "applicant-1",
		Status:            loan.StatusPending,
		RequestedAmount:   250000,
		InterestRate:      0.045,
		TermMonths:        360,
		CreditScore:       720,
		DebtToIncomeRatio: 0.3,
		AnnualIncome:      120000,
		EmploymentStatus:  loan.EmploymentEmployed,
		PropertyAddress:   "12 Harbor Lane, Portland, ME",
		StatusUpdatedAt:   h.Clock.Now(),
	}
	if edit != nil {
		edit(l)
	}
	if err := h.UoW.Repos().Loans.Create(context.Background(), l); err != nil {
		t.Fatalf("seed loan: %v", err)
	}
	return l
}

// Loan reloads a loan by public id.
func (h *Harness) Loan(t testing.TB, loanID string) *loan.Loan {
	t.Helper()
	l, err := h.UoW.Repos().Loans.GetByLoanID(context.Background(), loanID)
	if err != nil {
		t.Fatalf("load loan %s: %v", loanID, err)
	}
	return l
}

// Sink records every published notification.
type Sink struct {
	mu  sync.Mutex
	got []notification.Notification
}

func (s *Sink) Name() string { return "recording" }

func (s *Sink) Publish(_ context.Context, n notification.Notification) error {
	s.mu.Lock()
	s.got = append(s.got, n)
	s.mu.Unlock()
	return nil
}

func (s *Sink) All() []notification.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notification.Notification(nil), s.got...)
}

// Wait blocks until at least n notifications were published or fails t.
func (s *Sink) Wait(t testing.TB, n int) []notification.Notification {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		got := s.All()
		if len(got) >= n {
			return got
		}
		if time.Now().After(deadline) {
			t.Fatalf("published %d notifications, want %d", len(got), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
