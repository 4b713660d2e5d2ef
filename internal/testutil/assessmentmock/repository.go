package assessmentmock

import (
	"context"

	domain "credit-acceleration/internal/domain/assessment"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	CreateFn            func(ctx context.Context, a *domain.Assessment) error
	GetLatestByLoanIDFn func(ctx context.Context, loanNumericID uint64) (*domain.Assessment, error)
	GetByAssessmentIDFn func(ctx context.Context, assessmentID string) (*domain.Assessment, error)
}

func (m *Repo) Create(ctx context.Context, a *domain.Assessment) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, a)
	}
	return nil
}

func (m *Repo) GetLatestByLoanID(ctx context.Context, loanNumericID uint64) (*domain.Assessment, error) {
	if m.GetLatestByLoanIDFn != nil {
		return m.GetLatestByLoanIDFn(ctx, loanNumericID)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) GetByAssessmentID(ctx context.Context, assessmentID string) (*domain.Assessment, error) {
	if m.GetByAssessmentIDFn != nil {
		return m.GetByAssessmentIDFn(ctx, assessmentID)
	}
	return nil, domain.ErrNotFound
}
