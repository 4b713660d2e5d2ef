package collateral

import "context"

type Repository interface {
	Create(ctx context.Context, a *Asset) error
	Save(ctx context.Context, a *Asset) error
	GetByAssetID(ctx context.Context, assetID string) (*Asset, error)
	// Active assets of a loan (numeric id), oldest first.
	ListByLoanID(ctx context.Context, loanID uint64) ([]Asset, error)
	MarkTokenized(ctx context.Context, loanID uint64) error
}
