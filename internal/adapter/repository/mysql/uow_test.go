package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"credit-acceleration/internal/domain/assessment"
	loanDomain "credit-acceleration/internal/domain/loan"
	"credit-acceleration/internal/domain/uow"
	"credit-acceleration/internal/testutil/dbtest"
	"credit-acceleration/pkg/id"
)

func TestGormUoW_WithinTx_Commit(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	guow := NewGormUoW(db)

	l := makeLoan("app", loanDomain.StatusProcessing, 1000)
	err := guow.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Loans.Create(ctx, l); err != nil {
			return err
		}
		return r.Assessments.Create(ctx, &assessment.Assessment{
			AssessmentID:   id.NewID32(),
			LoanID:         l.ID,
			Recommendation: loanDomain.RecommendApprove,
		})
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}

	r := guow.Repos()
	if _, err := r.Loans.GetByLoanID(ctx, l.LoanID); err != nil {
		t.Fatalf("loan not committed: %v", err)
	}
	if a, err := r.Assessments.GetLatestByLoanID(ctx, l.ID); err != nil || a.Recommendation != loanDomain.RecommendApprove {
		t.Fatalf("assessment not committed: %+v, %v", a, err)
	}
}

func TestGormUoW_WithinTx_Rollback(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	guow := NewGormUoW(db)

	l := makeLoan("app", loanDomain.StatusPending, 1000)
	boom := errors.New("boom")
	err := guow.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Loans.Create(ctx, l); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	if _, err := guow.Repos().Loans.GetByLoanID(ctx, l.LoanID); !errors.Is(err, loanDomain.ErrNotFound) {
		t.Fatalf("loan should be rolled back, got %v", err)
	}
}

func TestGormUoW_WithinLoanTx(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	guow := NewGormUoW(db)

	l := makeLoan("app", loanDomain.StatusPending, 1000)
	if err := guow.Repos().Loans.Create(ctx, l); err != nil {
		t.Fatalf("Create: %v", err)
	}

	err := guow.WithinLoanTx(ctx, l.LoanID, func(r uow.Repos, got *loanDomain.Loan) error {
		if got.ID != l.ID {
			t.Fatalf("locked wrong loan: %d", got.ID)
		}
		if err := got.Transition(loanDomain.StatusProcessing, "", time.Now().UTC()); err != nil {
			return err
		}
		return r.Loans.Save(ctx, got)
	})
	if err != nil {
		t.Fatalf("WithinLoanTx: %v", err)
	}
	after, _ := guow.Repos().Loans.GetByLoanID(ctx, l.LoanID)
	if after.Status != loanDomain.StatusProcessing || len(after.ProcessingNotes) != 1 {
		t.Fatalf("transition not persisted: %+v", after)
	}

	err = guow.WithinLoanTx(ctx, "missing", func(uow.Repos, *loanDomain.Loan) error {
		t.Fatal("fn must not run for a missing loan")
		return nil
	})
	if !errors.Is(err, loanDomain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
