package loan

import (
	"errors"
	"testing"
	"time"

	"credit-acceleration/internal/domain/apperr"
)

func TestCanTransition_MatchesTable(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusPending, StatusProcessing}: true,
		{StatusProcessing, StatusApproved}: true,
		{StatusProcessing, StatusDenied}:   true,
		{StatusApproved, StatusFunded}:     true,
		{StatusFunded, StatusActive}:       true,
		{StatusActive, StatusDefaulted}:    true,
		{StatusActive, StatusPaidOff}:      true,
	}
	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			want := allowed[[2]Status{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Fatalf("CanTransition(%s,%s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	for _, s := range []Status{StatusDenied, StatusDefaulted, StatusPaidOff} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
		for _, to := range AllStatuses {
			if CanTransition(s, to) {
				t.Fatalf("terminal %s must not reach %s", s, to)
			}
		}
	}
}

func TestLoanTransition(t *testing.T) {
	at := time.Date(2025, 9, 6, 10, 0, 0, 0, time.UTC)
	l := &Loan{LoanID: "LN-1", Status: StatusPending}

	if err := l.Transition(StatusProcessing, "", at); err != nil {
		t.Fatalf("pending->processing: %v", err)
	}
	if l.Status != StatusProcessing || !l.StatusUpdatedAt.Equal(at) {
		t.Fatalf("unexpected loan after transition: %+v", l)
	}
	if len(l.ProcessingNotes) != 1 || l.ProcessingNotes[0].From != StatusPending || l.ProcessingNotes[0].To != StatusProcessing {
		t.Fatalf("processing note not appended: %+v", l.ProcessingNotes)
	}

	err := l.Transition(StatusFunded, "", at)
	if !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("processing->funded err = %v, want invalid transition", err)
	}
	if l.Status != StatusProcessing || len(l.ProcessingNotes) != 1 {
		t.Fatal("failed transition must not mutate the loan")
	}

	if err := l.Transition("withdrawn", "", at); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("unknown status err = %v, want validation", err)
	}
}

func TestRecomputeLTV(t *testing.T) {
	approved := 225000.0
	l := &Loan{ApprovedAmount: &approved, TotalCollateralValue: 350000}
	l.RecomputeLTV()
	if diff := l.LoanToValueRatio - 0.642857; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("LTV = %v, want ~0.642857", l.LoanToValueRatio)
	}

	l.TotalCollateralValue = 0
	l.RecomputeLTV()
	if l.LoanToValueRatio != 0 {
		t.Fatalf("LTV without collateral = %v, want 0", l.LoanToValueRatio)
	}

	l2 := &Loan{TotalCollateralValue: 100}
	l2.RecomputeLTV()
	if l2.LoanToValueRatio != 0 {
		t.Fatalf("LTV without approval = %v, want 0", l2.LoanToValueRatio)
	}
}
