package loan

import "context"

type SearchFilter struct {
	Statuses       []Status
	ApplicantID    string
	MinAmount      float64
	MaxAmount      float64
	MinCreditScore int
	Recommendation Recommendation
	Limit          int
	Offset         int
}

// StatusTotals is one row of per-status portfolio aggregates.
type StatusTotals struct {
	Status         Status
	Count          int64
	Requested      float64
	Approved       float64
	Outstanding    float64
	Collateral     float64
	LTVSum         float64
	LTVCount       int64
	RiskScoreSum   float64
	RiskScoreCount int64
}

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	GetByLoanID(ctx context.Context, loanID string) (*Loan, error)
	// Row-locks the loan for the rest of the transaction.
	GetByLoanIDForUpdate(ctx context.Context, loanID string) (*Loan, error)
	GetByID(ctx context.Context, id uint64) (*Loan, error)
	// Save persists l if its version still matches the stored one and bumps it.
	Save(ctx context.Context, l *Loan) error
	Archive(ctx context.Context, l *Loan, actor string) error
	Search(ctx context.Context, f SearchFilter) ([]Loan, int64, error)
	TotalsByStatus(ctx context.Context) ([]StatusTotals, error)

	CreatePayment(ctx context.Context, p *Payment) error
	ListPayments(ctx context.Context, loanNumericID uint64) ([]Payment, error)
}
