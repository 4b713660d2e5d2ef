package token

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, t *Token) error
	Save(ctx context.Context, t *Token) error
	GetByTokenID(ctx context.Context, tokenID string) (*Token, error)
	GetByID(ctx context.Context, id uint64) (*Token, error)
	ListByLoanID(ctx context.Context, loanID uint64) ([]Token, error)
	CountByLoanID(ctx context.Context, loanID uint64) (int64, error)
	CountTokenizedLoans(ctx context.Context) (int64, error)

	// Returns a zero-balance holder (not persisted) when none exists.
	GetHolder(ctx context.Context, tokenID uint64, holderID string) (*Holder, error)
	SaveHolder(ctx context.Context, h *Holder) error
	ListHolders(ctx context.Context, tokenID uint64) ([]Holder, error)

	CreateListing(ctx context.Context, l *Listing) error
	SaveListing(ctx context.Context, l *Listing) error
	GetListingByListingID(ctx context.Context, listingID string) (*Listing, error)
	GetListingByID(ctx context.Context, id uint64) (*Listing, error)
	ListActiveListingsBySeller(ctx context.Context, tokenID uint64, sellerID string) ([]Listing, error)
	ListActiveListingsByLoan(ctx context.Context, loanID uint64) ([]Listing, error)
	// Active listings whose expiration is at or before now, across all loans.
	ListExpiredActiveListings(ctx context.Context, now time.Time, limit int) ([]Listing, error)

	CreateBid(ctx context.Context, b *Bid) error
	SaveBid(ctx context.Context, b *Bid) error
	GetBidByBidID(ctx context.Context, bidID string) (*Bid, error)
	ListBidsByListing(ctx context.Context, listingID uint64) ([]Bid, error)
	// Sets every active bid of the listing to status.
	CloseActiveBids(ctx context.Context, listingID uint64, status BidStatus) error

	AddPricePoint(ctx context.Context, p *PricePoint) error
	ListPriceHistory(ctx context.Context, tokenID uint64) ([]PricePoint, error)
}
