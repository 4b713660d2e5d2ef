package guarantee

import "context"

type Repository interface {
	Create(ctx context.Context, g *Guarantee) error
	Save(ctx context.Context, g *Guarantee) error
	GetByGuaranteeID(ctx context.Context, guaranteeID string) (*Guarantee, error)
	GetByID(ctx context.Context, id uint64) (*Guarantee, error)
	// Guarantee of a loan that is not cancelled, if any.
	GetCurrentByLoanID(ctx context.Context, loanID uint64) (*Guarantee, error)

	CreateClaim(ctx context.Context, c *Claim) error
	SaveClaim(ctx context.Context, c *Claim) error
	GetClaimByClaimID(ctx context.Context, claimID string) (*Claim, error)
	ListClaims(ctx context.Context, guaranteeID uint64) ([]Claim, error)

	CreatePayout(ctx context.Context, p *Payout) error
}
