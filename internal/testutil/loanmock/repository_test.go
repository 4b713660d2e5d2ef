package loanmock

import (
	"context"
	"errors"
	"testing"

	domain "credit-acceleration/internal/domain/loan"
)

func TestRepo_UsesProvidedFuncs(t *testing.T) {
	ctx := context.Background()
	l := &domain.Loan{ID: 7, LoanID: "L-7"}
	boom := errors.New("boom")

	var saved, archivedBy string
	m := &Repo{
		GetByLoanIDForUpdateFn: func(_ context.Context, id string) (*domain.Loan, error) {
			if id != "L-7" {
				t.Fatalf("loanID mismatch: %s", id)
			}
			return l, nil
		},
		SaveFn: func(_ context.Context, got *domain.Loan) error {
			saved = got.LoanID
			return boom
		},
		ArchiveFn: func(_ context.Context, _ *domain.Loan, actor string) error {
			archivedBy = actor
			return nil
		},
	}

	got, err := m.GetByLoanIDForUpdate(ctx, "L-7")
	if err != nil || got != l {
		t.Fatalf("GetByLoanIDForUpdate: got %+v, %v", got, err)
	}
	if err := m.Save(ctx, l); !errors.Is(err, boom) || saved != "L-7" {
		t.Fatalf("Save: err=%v saved=%q", err, saved)
	}
	if err := m.Archive(ctx, l, "ops"); err != nil || archivedBy != "ops" {
		t.Fatalf("Archive: err=%v actor=%q", err, archivedBy)
	}
}

func TestRepo_Defaults(t *testing.T) {
	ctx := context.Background()
	m := &Repo{}

	if _, err := m.GetByLoanID(ctx, "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByLoanID default: want ErrNotFound, got %v", err)
	}
	if _, err := m.GetByLoanIDForUpdate(ctx, "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByLoanIDForUpdate default: want ErrNotFound, got %v", err)
	}
	if _, err := m.GetByID(ctx, 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByID default: want ErrNotFound, got %v", err)
	}
	if err := m.Create(ctx, &domain.Loan{}); err != nil {
		t.Fatalf("Create default: want nil, got %v", err)
	}
	if rows, n, err := m.Search(ctx, domain.SearchFilter{}); rows != nil || n != 0 || err != nil {
		t.Fatalf("Search default: got %v %d %v", rows, n, err)
	}
}
