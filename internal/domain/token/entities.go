package token

import (
	"fmt"
	"time"

	"credit-acceleration/internal/domain/apperr"
)

var (
	ErrNotFound        = fmt.Errorf("%w: token", apperr.ErrNotFound)
	ErrListingNotFound = fmt.Errorf("%w: listing", apperr.ErrNotFound)
	ErrBidNotFound     = fmt.Errorf("%w: bid", apperr.ErrNotFound)
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
)

// Table: fractional_tokens.
// Invariant: TotalSupply == AvailableSupply + sum(holders.TokensOwned).
type Token struct {
	ID              uint64    `gorm:"primaryKey;column:id" json:"-"`
	TokenID         string    `gorm:"size:32;not null;uniqueIndex:ux_tokens_token_id" json:"token_id"`
	LoanID          uint64    `gorm:"not null;uniqueIndex:ux_tokens_loan_seq" json:"-"`
	IssuanceSeq     int       `gorm:"not null;uniqueIndex:ux_tokens_loan_seq" json:"issuance_seq"`
	ContractAddress string    `gorm:"size:42;not null;uniqueIndex:ux_tokens_contract" json:"contract_address"`
	Symbol          string    `gorm:"size:16" json:"symbol"`
	TotalSupply     int64     `json:"total_supply"`
	AvailableSupply int64     `json:"available_supply"`
	PricePerToken   float64   `gorm:"type:decimal(18,6)" json:"price_per_token"`
	CurrentValue    float64   `gorm:"type:decimal(18,6)" json:"current_value"`
	Status          Status    `gorm:"size:16;default:'active'" json:"status"`
	IssuedAt        time.Time `json:"issued_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Token) TableName() string { return "fractional_tokens" }

// Table: token_holders.
type Holder struct {
	ID           uint64    `gorm:"primaryKey;column:id" json:"-"`
	TokenID      uint64    `gorm:"not null;uniqueIndex:ux_token_holders" json:"-"`
	HolderID     string    `gorm:"size:64;not null;uniqueIndex:ux_token_holders" json:"holder_id"`
	TokensOwned  int64     `json:"tokens_owned"`
	AveragePrice float64   `gorm:"type:decimal(18,6)" json:"average_price"`
	AcquiredAt   time.Time `json:"acquired_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Holder) TableName() string { return "token_holders" }

type ListingStatus string

const (
	ListingActive    ListingStatus = "active"
	ListingSold      ListingStatus = "sold"
	ListingCancelled ListingStatus = "cancelled"
	ListingExpired   ListingStatus = "expired"
)

// Table: secondary_listings.
type Listing struct {
	ID             uint64        `gorm:"primaryKey;column:id" json:"-"`
	ListingID      string        `gorm:"size:32;not null;uniqueIndex:ux_listings_listing_id" json:"listing_id"`
	TokenID        uint64        `gorm:"not null;index:idx_listings_token_status" json:"-"`
	LoanID         uint64        `gorm:"not null;index:idx_listings_loan" json:"-"`
	SellerID       string        `gorm:"size:64;not null" json:"seller_id"`
	TokensForSale  int64         `json:"tokens_for_sale"`
	FilledTokens   int64         `json:"filled_tokens"`
	AskPrice       float64       `gorm:"type:decimal(18,6)" json:"ask_price"`
	Status         ListingStatus `gorm:"size:16;index:idx_listings_token_status;default:'active'" json:"status"`
	ExpirationDate time.Time     `gorm:"index:idx_listings_expiration" json:"expiration_date"`
	CreatedAt      time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Listing) TableName() string { return "secondary_listings" }

// Expired reports whether the listing can no longer trade at now.
func (l *Listing) Expired(now time.Time) bool { return !now.Before(l.ExpirationDate) }

type BidStatus string

const (
	BidActive   BidStatus = "active"
	BidAccepted BidStatus = "accepted"
	BidRejected BidStatus = "rejected"
	BidExpired  BidStatus = "expired"
)

// Table: market_bids. At most one accepted bid per listing.
type Bid struct {
	ID            uint64    `gorm:"primaryKey;column:id" json:"-"`
	BidID         string    `gorm:"size:32;not null;uniqueIndex:ux_bids_bid_id" json:"bid_id"`
	ListingID     uint64    `gorm:"not null;index:idx_bids_listing" json:"-"`
	BidderID      string    `gorm:"size:64;not null" json:"bidder_id"`
	Tokens        int64     `json:"tokens"`
	PricePerToken float64   `gorm:"type:decimal(18,6)" json:"price_per_token"`
	Status        BidStatus `gorm:"size:16;default:'active'" json:"status"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Bid) TableName() string { return "market_bids" }

type PriceSource string

const (
	SourcePrimary   PriceSource = "primary"
	SourceSecondary PriceSource = "secondary"
)

// Table: token_price_history.
type PricePoint struct {
	ID         uint64      `gorm:"primaryKey;column:id" json:"-"`
	TokenID    uint64      `gorm:"not null;index:idx_price_token" json:"-"`
	Price      float64     `gorm:"type:decimal(18,6)" json:"price"`
	Volume     int64       `json:"volume"`
	Source     PriceSource `gorm:"size:16" json:"source"`
	RecordedAt time.Time   `gorm:"index:idx_price_token" json:"recorded_at"`
}

func (PricePoint) TableName() string { return "token_price_history" }
