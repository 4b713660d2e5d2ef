package escrow

import "context"

type Repository interface {
	Create(ctx context.Context, a *Account) error
	Save(ctx context.Context, a *Account) error
	GetByLoanID(ctx context.Context, loanID uint64) (*Account, error)
	AppendTransaction(ctx context.Context, tx *Transaction) error
	// Ordered by seq.
	ListTransactions(ctx context.Context, accountID uint64) ([]Transaction, error)
}
