package assessmentmock

import (
	"context"
	"errors"
	"testing"

	domain "credit-acceleration/internal/domain/assessment"
)

func TestRepo_Create(t *testing.T) {
	ctx := context.Background()
	a := &domain.Assessment{AssessmentID: "AS-1", LoanID: 123}

	called := false
	wantErr := errors.New("boom")
	m := &Repo{
		CreateFn: func(gotCtx context.Context, got *domain.Assessment) error {
			called = true
			if got != a {
				t.Fatalf("arg mismatch")
			}
			return wantErr
		},
	}
	if err := m.Create(ctx, a); !errors.Is(err, wantErr) {
		t.Fatalf("Create: want %v, got %v", wantErr, err)
	}
	if !called {
		t.Fatalf("CreateFn not called")
	}

	// Default (nil func) → no-op, nil error
	m = &Repo{}
	if err := m.Create(ctx, a); err != nil {
		t.Fatalf("Create default: want nil, got %v", err)
	}
}

func TestRepo_Defaults_NotFound(t *testing.T) {
	m := &Repo{}
	if _, err := m.GetLatestByLoanID(context.Background(), 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetLatestByLoanID default: want ErrNotFound, got %v", err)
	}
	if _, err := m.GetByAssessmentID(context.Background(), "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByAssessmentID default: want ErrNotFound, got %v", err)
	}
}

func TestRepo_GetLatestByLoanID(t *testing.T) {
	want := &domain.Assessment{AssessmentID: "AS-2", LoanID: 456}
	m := &Repo{
		GetLatestByLoanIDFn: func(_ context.Context, id uint64) (*domain.Assessment, error) {
			if id != 456 {
				t.Fatalf("loanNumericID mismatch: got %d", id)
			}
			return want, nil
		},
	}
	got, err := m.GetLatestByLoanID(context.Background(), 456)
	if err != nil || got != want {
		t.Fatalf("GetLatestByLoanID: got %+v, %v", got, err)
	}
}
