package loanmock

import (
	"context"

	domain "credit-acceleration/internal/domain/loan"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Unset lookups return domain.ErrNotFound; unset writes succeed.
type Repo struct {
	CreateFn               func(ctx context.Context, l *domain.Loan) error
	GetByLoanIDFn          func(ctx context.Context, loanID string) (*domain.Loan, error)
	GetByLoanIDForUpdateFn func(ctx context.Context, loanID string) (*domain.Loan, error)
	GetByIDFn              func(ctx context.Context, id uint64) (*domain.Loan, error)
	SaveFn                 func(ctx context.Context, l *domain.Loan) error
	ArchiveFn              func(ctx context.Context, l *domain.Loan, actor string) error
	SearchFn               func(ctx context.Context, f domain.SearchFilter) ([]domain.Loan, int64, error)
	TotalsByStatusFn       func(ctx context.Context) ([]domain.StatusTotals, error)
	CreatePaymentFn        func(ctx context.Context, p *domain.Payment) error
	ListPaymentsFn         func(ctx context.Context, loanNumericID uint64) ([]domain.Payment, error)
}

func (m *Repo) Create(ctx context.Context, l *domain.Loan) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return nil
}

func (m *Repo) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	if m.GetByLoanIDFn != nil {
		return m.GetByLoanIDFn(ctx, loanID)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*domain.Loan, error) {
	if m.GetByLoanIDForUpdateFn != nil {
		return m.GetByLoanIDForUpdateFn(ctx, loanID)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) GetByID(ctx context.Context, id uint64) (*domain.Loan, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) Save(ctx context.Context, l *domain.Loan) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, l)
	}
	return nil
}

func (m *Repo) Archive(ctx context.Context, l *domain.Loan, actor string) error {
	if m.ArchiveFn != nil {
		return m.ArchiveFn(ctx, l, actor)
	}
	return nil
}

func (m *Repo) Search(ctx context.Context, f domain.SearchFilter) ([]domain.Loan, int64, error) {
	if m.SearchFn != nil {
		return m.SearchFn(ctx, f)
	}
	return nil, 0, nil
}

func (m *Repo) TotalsByStatus(ctx context.Context) ([]domain.StatusTotals, error) {
	if m.TotalsByStatusFn != nil {
		return m.TotalsByStatusFn(ctx)
	}
	return nil, nil
}

func (m *Repo) CreatePayment(ctx context.Context, p *domain.Payment) error {
	if m.CreatePaymentFn != nil {
		return m.CreatePaymentFn(ctx, p)
	}
	return nil
}

func (m *Repo) ListPayments(ctx context.Context, loanNumericID uint64) ([]domain.Payment, error) {
	if m.ListPaymentsFn != nil {
		return m.ListPaymentsFn(ctx, loanNumericID)
	}
	return nil, nil
}
