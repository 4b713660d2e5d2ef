package tokenization

import (
	"time"

	domain "credit-acceleration/internal/domain/token"
)

type Config struct {
	DefaultSupply int64
	DefaultPrice  float64
	// ListingTTL is used when a listing does not ask for its own (default: 30 days)
	ListingTTL time.Duration
	// SweepBatch bounds how many expired listings one sweep closes (default: 100)
	SweepBatch int
}

func (c *Config) defaults() {
	if c.DefaultSupply <= 0 {
		c.DefaultSupply = 1_000_000
	}
	if c.DefaultPrice <= 0 {
		c.DefaultPrice = 1.0
	}
	if c.ListingTTL <= 0 {
		c.ListingTTL = 30 * 24 * time.Hour
	}
	if c.SweepBatch <= 0 {
		c.SweepBatch = 100
	}
}

// TokenizeInput zero values take the configured defaults.
type TokenizeInput struct {
	TotalSupply   int64   `json:"total_supply"`
	PricePerToken float64 `json:"price_per_token"`
	Symbol        string  `json:"symbol"`
}

type PurchaseInput struct {
	BuyerID string `json:"buyer_id"`
	Tokens  int64  `json:"tokens"`
}

type PurchaseResult struct {
	Token  *domain.Token  `json:"token"`
	Holder *domain.Holder `json:"holder"`
}

type ListingInput struct {
	SellerID      string  `json:"seller_id"`
	TokensForSale int64   `json:"tokens_for_sale"`
	AskPrice      float64 `json:"ask_price"`
	// ExpiresInDays overrides the configured listing TTL when positive.
	ExpiresInDays int `json:"expires_in_days"`
}

type BidInput struct {
	BidderID      string  `json:"bidder_id"`
	Tokens        int64   `json:"tokens"`
	PricePerToken float64 `json:"price_per_token"`
}

// TradeResult is the state after a bid was accepted.
type TradeResult struct {
	Listing *domain.Listing `json:"listing"`
	Bid     *domain.Bid     `json:"bid"`
	Seller  *domain.Holder  `json:"seller"`
	Buyer   *domain.Holder  `json:"buyer"`
	Token   *domain.Token   `json:"token"`
}

type TokenView struct {
	Token        *domain.Token       `json:"token"`
	Holders      []domain.Holder     `json:"holders"`
	Listings     []domain.Listing    `json:"active_listings"`
	PriceHistory []domain.PricePoint `json:"price_history"`
}

type ListingView struct {
	Listing *domain.Listing `json:"listing"`
	Bids    []domain.Bid    `json:"bids"`
}
