package uow

import (
	"context"

	"credit-acceleration/internal/domain/assessment"
	"credit-acceleration/internal/domain/collateral"
	"credit-acceleration/internal/domain/escrow"
	"credit-acceleration/internal/domain/guarantee"
	"credit-acceleration/internal/domain/loan"
	"credit-acceleration/internal/domain/notification"
	"credit-acceleration/internal/domain/token"
)

// Repos is every repository of the loan aggregate, bound to one transaction.
type Repos struct {
	Loans         loan.Repository
	Assessments   assessment.Repository
	Collateral    collateral.Repository
	Escrow        escrow.Repository
	Tokens        token.Repository
	Guarantees    guarantee.Repository
	Notifications notification.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: lock loan first, then pass it in
	WithinLoanTx(ctx context.Context, loanID string, fn func(r Repos, l *loan.Loan) error) error
	// repositories outside any transaction, for reads
	Repos() Repos
}
