// Package tokenization issues fractional tokens against funded loans and runs
// the primary sale and the secondary listing/bid market for them.
package tokenization

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"credit-acceleration/internal/domain/apperr"
	"credit-acceleration/internal/domain/loan"
	"credit-acceleration/internal/domain/notification"
	domain "credit-acceleration/internal/domain/token"
	"credit-acceleration/internal/usecase/aggregate"
	"credit-acceleration/pkg/id"
	"credit-acceleration/pkg/money"

	"go.uber.org/zap"
)

type Usecase struct {
	runner *aggregate.Runner
	cfg    Config
	log    *zap.Logger
}

func NewUsecase(r *aggregate.Runner, cfg Config, log *zap.Logger) *Usecase {
	cfg.defaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{runner: r, cfg: cfg, log: log.Named("tokenization")}
}

func (u *Usecase) TokenizeLoan(ctx context.Context, loanID string, in TokenizeInput) (*domain.Token, error) {
	if in.TotalSupply < 0 {
		return nil, apperr.Validation("total supply must be > 0")
	}
	if in.PricePerToken < 0 {
		return nil, apperr.Validation("price per token must be > 0")
	}
	supply := in.TotalSupply
	if supply == 0 {
		supply = u.cfg.DefaultSupply
	}
	price := in.PricePerToken
	if price == 0 {
		price = u.cfg.DefaultPrice
	}

	var out *domain.Token
	err := u.runner.Mutate(ctx, loanID, "tokenize", func(tx *aggregate.Tx) error {
		if s := tx.Loan.Status; s != loan.StatusFunded && s != loan.StatusActive {
			return apperr.InvalidState("loan %s is %s; tokenization requires funded or active", loanID, s)
		}
		n, err := tx.Repos.Tokens.CountByLoanID(ctx, tx.Loan.ID)
		if err != nil {
			return err
		}
		seq := int(n) + 1
		symbol := strings.ToUpper(strings.TrimSpace(in.Symbol))
		if symbol == "" {
			symbol = fmt.Sprintf("CA%s%d", strings.ToUpper(loanID[:6]), seq)
		}
		t := &domain.Token{
			TokenID:         id.NewID32(),
			LoanID:          tx.Loan.ID,
			IssuanceSeq:     seq,
			ContractAddress: id.ContractAddress(loanID, seq),
			Symbol:          symbol,
			TotalSupply:     supply,
			AvailableSupply: supply,
			PricePerToken:   money.RoundTo(price, 6),
			CurrentValue:    money.RoundTo(price, 6),
			Status:          domain.StatusActive,
			IssuedAt:        tx.Now,
		}
		if err := tx.Repos.Tokens.Create(ctx, t); err != nil {
			return err
		}
		if err := tx.Repos.Collateral.MarkTokenized(ctx, tx.Loan.ID); err != nil {
			return err
		}
		tx.Notify(notification.Draft{
			Type:     "loan_tokenized",
			Title:    "Loan tokenized",
			Message:  fmt.Sprintf("Issued %d %s tokens at %.6f under contract %s.", supply, symbol, t.PricePerToken, t.ContractAddress),
			Priority: notification.PriorityMedium,
		})
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.Info("loan tokenized",
		zap.String("loan_id", loanID),
		zap.String("token_id", out.TokenID),
		zap.String("contract", out.ContractAddress),
		zap.Int64("supply", out.TotalSupply),
	)
	return out, nil
}

// PurchaseTokens sells units from the available supply at the issue price.
func (u *Usecase) PurchaseTokens(ctx context.Context, tokenID string, in PurchaseInput) (*PurchaseResult, error) {
	buyer := strings.TrimSpace(in.BuyerID)
	if buyer == "" {
		return nil, apperr.Validation("buyer id is required")
	}
	if in.Tokens <= 0 {
		return nil, apperr.Validation("tokens must be > 0")
	}
	loanID, err := u.tokenOwner(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	var out *PurchaseResult
	err = u.runner.Mutate(ctx, loanID, "purchase_tokens", func(tx *aggregate.Tx) error {
		t, err := activeToken(ctx, tx, tokenID)
		if err != nil {
			return err
		}
		if in.Tokens > t.AvailableSupply {
			return apperr.InsufficientBalance("requested %d tokens, %d available", in.Tokens, t.AvailableSupply)
		}
		h, err := tx.Repos.Tokens.GetHolder(ctx, t.ID, buyer)
		if err != nil {
			return err
		}
		credit(h, in.Tokens, t.PricePerToken, tx.Now)
		if err := tx.Repos.Tokens.SaveHolder(ctx, h); err != nil {
			return err
		}
		t.AvailableSupply -= in.Tokens
		t.CurrentValue = t.PricePerToken
		if err := tx.Repos.Tokens.Save(ctx, t); err != nil {
			return err
		}
		if err := tx.Repos.Tokens.AddPricePoint(ctx, &domain.PricePoint{
			TokenID: t.ID, Price: t.PricePerToken, Volume: in.Tokens, Source: domain.SourcePrimary, RecordedAt: tx.Now,
		}); err != nil {
			return err
		}
		if err := checkSupply(ctx, tx, t); err != nil {
			return err
		}
		tx.Notify(notification.Draft{
			Type:     "tokens_purchased",
			Title:    "Tokens purchased",
			Message:  fmt.Sprintf("%s bought %d %s tokens.", buyer, in.Tokens, t.Symbol),
			Priority: notification.PriorityLow,
		})
		out = &PurchaseResult{Token: t, Holder: h}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *Usecase) CreateSecondaryListing(ctx context.Context, tokenID string, in ListingInput) (*domain.Listing, error) {
	seller := strings.TrimSpace(in.SellerID)
	switch {
	case seller == "":
		return nil, apperr.Validation("seller id is required")
	case in.TokensForSale <= 0:
		return nil, apperr.Validation("tokens for sale must be > 0")
	case in.AskPrice <= 0:
		return nil, apperr.Validation("ask price must be > 0")
	case in.ExpiresInDays < 0:
		return nil, apperr.Validation("expires in days must be >= 0")
	}
	ttl := u.cfg.ListingTTL
	if in.ExpiresInDays > 0 {
		ttl = time.Duration(in.ExpiresInDays) * 24 * time.Hour
	}
	loanID, err := u.tokenOwner(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	var out *domain.Listing
	err = u.runner.Mutate(ctx, loanID, "create_listing", func(tx *aggregate.Tx) error {
		t, err := activeToken(ctx, tx, tokenID)
		if err != nil {
			return err
		}
		h, err := tx.Repos.Tokens.GetHolder(ctx, t.ID, seller)
		if err != nil {
			return err
		}
		open, err := tx.Repos.Tokens.ListActiveListingsBySeller(ctx, t.ID, seller)
		if err != nil {
			return err
		}
		var committed int64
		for i := range open {
			if open[i].Expired(tx.Now) {
				if err := expire(ctx, tx, &open[i]); err != nil {
					return err
				}
				continue
			}
			committed += open[i].TokensForSale
		}
		if free := h.TokensOwned - committed; in.TokensForSale > free {
			return apperr.InsufficientBalance("seller %s holds %d tokens with %d already listed; cannot list %d",
				seller, h.TokensOwned, committed, in.TokensForSale)
		}
		l := &domain.Listing{
			ListingID:      id.NewID32(),
			TokenID:        t.ID,
			LoanID:         tx.Loan.ID,
			SellerID:       seller,
			TokensForSale:  in.TokensForSale,
			AskPrice:       money.RoundTo(in.AskPrice, 6),
			Status:         domain.ListingActive,
			ExpirationDate: tx.Now.Add(ttl),
		}
		if err := tx.Repos.Tokens.CreateListing(ctx, l); err != nil {
			return err
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PlaceBid records a bid on an open listing. An expired listing is closed as
// a side effect and the bid is rejected.
func (u *Usecase) PlaceBid(ctx context.Context, listingID string, in BidInput) (*domain.Bid, error) {
	bidder := strings.TrimSpace(in.BidderID)
	switch {
	case bidder == "":
		return nil, apperr.Validation("bidder id is required")
	case in.Tokens <= 0:
		return nil, apperr.Validation("tokens must be > 0")
	case in.PricePerToken <= 0:
		return nil, apperr.Validation("price per token must be > 0")
	}
	loanID, err := u.listingOwner(ctx, listingID)
	if err != nil {
		return nil, err
	}

	var out *domain.Bid
	var closed error
	err = u.runner.Mutate(ctx, loanID, "place_bid", func(tx *aggregate.Tx) error {
		l, err := tx.Repos.Tokens.GetListingByListingID(ctx, listingID)
		if err != nil {
			return err
		}
		if closed, err = openListing(ctx, tx, l); err != nil || closed != nil {
			return err
		}
		if bidder == l.SellerID {
			return apperr.Validation("seller cannot bid on their own listing")
		}
		if in.Tokens > l.TokensForSale {
			return apperr.InvalidAmount("bid for %d tokens exceeds the %d listed", in.Tokens, l.TokensForSale)
		}
		b := &domain.Bid{
			BidID:         id.NewID32(),
			ListingID:     l.ID,
			BidderID:      bidder,
			Tokens:        in.Tokens,
			PricePerToken: money.RoundTo(in.PricePerToken, 6),
			Status:        domain.BidActive,
		}
		if err := tx.Repos.Tokens.CreateBid(ctx, b); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	if closed != nil {
		return nil, closed
	}
	return out, nil
}

// AcceptBid settles a bid: units move from seller to bidder, every other
// active bid is rejected and the listing closes. A partial fill closes the
// listing as cancelled with FilledTokens recorded.
func (u *Usecase) AcceptBid(ctx context.Context, bidID string) (*TradeResult, error) {
	if strings.TrimSpace(bidID) == "" {
		return nil, apperr.Validation("bid id is required")
	}
	b, err := u.runner.Repos().Tokens.GetBidByBidID(ctx, bidID)
	if err != nil {
		return nil, err
	}
	l, err := u.runner.Repos().Tokens.GetListingByID(ctx, b.ListingID)
	if err != nil {
		return nil, err
	}
	loanID, err := u.runner.LoanIDFor(ctx, l.LoanID)
	if err != nil {
		return nil, err
	}

	var out *TradeResult
	var closed error
	err = u.runner.Mutate(ctx, loanID, "accept_bid", func(tx *aggregate.Tx) error {
		b, err := tx.Repos.Tokens.GetBidByBidID(ctx, bidID)
		if err != nil {
			return err
		}
		if b.Status != domain.BidActive {
			return apperr.InvalidState("bid %s is %s", bidID, b.Status)
		}
		l, err := tx.Repos.Tokens.GetListingByID(ctx, b.ListingID)
		if err != nil {
			return err
		}
		if closed, err = openListing(ctx, tx, l); err != nil || closed != nil {
			return err
		}
		t, err := tx.Repos.Tokens.GetByID(ctx, l.TokenID)
		if err != nil {
			return err
		}
		if t.Status != domain.StatusActive {
			return apperr.InvalidState("token %s is %s", t.TokenID, t.Status)
		}

		seller, err := tx.Repos.Tokens.GetHolder(ctx, t.ID, l.SellerID)
		if err != nil {
			return err
		}
		if seller.TokensOwned < b.Tokens {
			return apperr.InsufficientBalance("seller %s holds %d tokens, bid needs %d", l.SellerID, seller.TokensOwned, b.Tokens)
		}
		buyer, err := tx.Repos.Tokens.GetHolder(ctx, t.ID, b.BidderID)
		if err != nil {
			return err
		}
		seller.TokensOwned -= b.Tokens
		credit(buyer, b.Tokens, b.PricePerToken, tx.Now)
		if err := tx.Repos.Tokens.SaveHolder(ctx, seller); err != nil {
			return err
		}
		if err := tx.Repos.Tokens.SaveHolder(ctx, buyer); err != nil {
			return err
		}

		b.Status = domain.BidAccepted
		if err := tx.Repos.Tokens.SaveBid(ctx, b); err != nil {
			return err
		}
		if err := tx.Repos.Tokens.CloseActiveBids(ctx, l.ID, domain.BidRejected); err != nil {
			return err
		}
		l.FilledTokens = b.Tokens
		l.Status = domain.ListingSold
		if l.FilledTokens < l.TokensForSale {
			l.Status = domain.ListingCancelled
		}
		if err := tx.Repos.Tokens.SaveListing(ctx, l); err != nil {
			return err
		}

		t.CurrentValue = b.PricePerToken
		if err := tx.Repos.Tokens.Save(ctx, t); err != nil {
			return err
		}
		if err := tx.Repos.Tokens.AddPricePoint(ctx, &domain.PricePoint{
			TokenID: t.ID, Price: b.PricePerToken, Volume: b.Tokens, Source: domain.SourceSecondary, RecordedAt: tx.Now,
		}); err != nil {
			return err
		}
		if err := checkSupply(ctx, tx, t); err != nil {
			return err
		}
		tx.Notify(notification.Draft{
			Type:     "tokens_traded",
			Title:    "Secondary trade settled",
			Message:  fmt.Sprintf("%d %s tokens moved from %s to %s at %.6f.", b.Tokens, t.Symbol, l.SellerID, b.BidderID, b.PricePerToken),
			Priority: notification.PriorityLow,
		})
		out = &TradeResult{Listing: l, Bid: b, Seller: seller, Buyer: buyer, Token: t}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if closed != nil {
		return nil, closed
	}
	return out, nil
}

func (u *Usecase) CancelListing(ctx context.Context, listingID, sellerID string) (*domain.Listing, error) {
	loanID, err := u.listingOwner(ctx, listingID)
	if err != nil {
		return nil, err
	}
	var out *domain.Listing
	err = u.runner.Mutate(ctx, loanID, "cancel_listing", func(tx *aggregate.Tx) error {
		l, err := tx.Repos.Tokens.GetListingByListingID(ctx, listingID)
		if err != nil {
			return err
		}
		if l.SellerID != strings.TrimSpace(sellerID) {
			return apperr.Validation("listing %s belongs to another seller", listingID)
		}
		if l.Status != domain.ListingActive {
			return apperr.InvalidState("listing %s is %s", listingID, l.Status)
		}
		l.Status = domain.ListingCancelled
		if err := tx.Repos.Tokens.SaveListing(ctx, l); err != nil {
			return err
		}
		out = l
		return tx.Repos.Tokens.CloseActiveBids(ctx, l.ID, domain.BidRejected)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ExpireListings closes up to one batch of active listings past their
// expiration date and returns how many it closed.
func (u *Usecase) ExpireListings(ctx context.Context, now time.Time) (int, error) {
	due, err := u.runner.Repos().Tokens.ListExpiredActiveListings(ctx, now, u.cfg.SweepBatch)
	if err != nil {
		return 0, err
	}
	var errs []error
	n := 0
	for _, l := range due {
		loanID, err := u.runner.LoanIDFor(ctx, l.LoanID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		expired := false
		err = u.runner.Mutate(ctx, loanID, "expire_listing", func(tx *aggregate.Tx) error {
			cur, err := tx.Repos.Tokens.GetListingByID(ctx, l.ID)
			if err != nil {
				return err
			}
			if cur.Status != domain.ListingActive || !cur.Expired(now) {
				return nil
			}
			expired = true
			return expire(ctx, tx, cur)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("expire listing %s: %w", l.ListingID, err))
			continue
		}
		if expired {
			n++
		}
	}
	return n, errors.Join(errs...)
}

// RunSweeper calls ExpireListings every interval until ctx is done.
func (u *Usecase) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := u.ExpireListings(ctx, u.runner.Clock().Now())
			if err != nil {
				u.log.Warn("listing sweep failed", zap.Error(err))
			}
			if n > 0 {
				u.log.Info("listings expired", zap.Int("count", n))
			}
		}
	}
}

func (u *Usecase) GetToken(ctx context.Context, tokenID string) (*TokenView, error) {
	r := u.runner.Repos()
	t, err := r.Tokens.GetByTokenID(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	holders, err := r.Tokens.ListHolders(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	listings, err := r.Tokens.ListActiveListingsByLoan(ctx, t.LoanID)
	if err != nil {
		return nil, err
	}
	own := listings[:0]
	for _, l := range listings {
		if l.TokenID == t.ID {
			own = append(own, l)
		}
	}
	history, err := r.Tokens.ListPriceHistory(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	return &TokenView{Token: t, Holders: holders, Listings: own, PriceHistory: history}, nil
}

func (u *Usecase) GetListing(ctx context.Context, listingID string) (*ListingView, error) {
	r := u.runner.Repos()
	l, err := r.Tokens.GetListingByListingID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	bids, err := r.Tokens.ListBidsByListing(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	return &ListingView{Listing: l, Bids: bids}, nil
}

func (u *Usecase) tokenOwner(ctx context.Context, tokenID string) (string, error) {
	if strings.TrimSpace(tokenID) == "" {
		return "", apperr.Validation("token id is required")
	}
	t, err := u.runner.Repos().Tokens.GetByTokenID(ctx, tokenID)
	if err != nil {
		return "", err
	}
	return u.runner.LoanIDFor(ctx, t.LoanID)
}

func (u *Usecase) listingOwner(ctx context.Context, listingID string) (string, error) {
	if strings.TrimSpace(listingID) == "" {
		return "", apperr.Validation("listing id is required")
	}
	l, err := u.runner.Repos().Tokens.GetListingByListingID(ctx, listingID)
	if err != nil {
		return "", err
	}
	return u.runner.LoanIDFor(ctx, l.LoanID)
}

func activeToken(ctx context.Context, tx *aggregate.Tx, tokenID string) (*domain.Token, error) {
	t, err := tx.Repos.Tokens.GetByTokenID(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if t.LoanID != tx.Loan.ID {
		return nil, apperr.Conflict("token %s moved to another loan", tokenID)
	}
	if t.Status != domain.StatusActive {
		return nil, apperr.InvalidState("token %s is %s", tokenID, t.Status)
	}
	return t, nil
}

// openListing returns a non-nil closed error, with a nil err so the caller
// commits, when l just expired. Other non-active states are plain errors.
func openListing(ctx context.Context, tx *aggregate.Tx, l *domain.Listing) (closed, err error) {
	if l.Status != domain.ListingActive {
		return nil, apperr.InvalidState("listing %s is %s", l.ListingID, l.Status)
	}
	if l.Expired(tx.Now) {
		if err := expire(ctx, tx, l); err != nil {
			return nil, err
		}
		return apperr.InvalidState("listing %s expired at %s", l.ListingID, l.ExpirationDate.Format(time.RFC3339)), nil
	}
	return nil, nil
}

func expire(ctx context.Context, tx *aggregate.Tx, l *domain.Listing) error {
	l.Status = domain.ListingExpired
	if err := tx.Repos.Tokens.SaveListing(ctx, l); err != nil {
		return err
	}
	return tx.Repos.Tokens.CloseActiveBids(ctx, l.ID, domain.BidExpired)
}

// credit adds qty units bought at price to h, keeping a volume-weighted
// average purchase price.
func credit(h *domain.Holder, qty int64, price float64, now time.Time) {
	if h.TokensOwned == 0 {
		h.AcquiredAt = now
		h.AveragePrice = 0
	}
	cost := float64(h.TokensOwned)*h.AveragePrice + float64(qty)*price
	h.TokensOwned += qty
	h.AveragePrice = money.Ratio(cost, float64(h.TokensOwned), 6)
}

// checkSupply verifies totalSupply == availableSupply + sum(holdings).
func checkSupply(ctx context.Context, tx *aggregate.Tx, t *domain.Token) error {
	if t.AvailableSupply < 0 {
		return fmt.Errorf("token %s: available supply went negative (%d)", t.TokenID, t.AvailableSupply)
	}
	holders, err := tx.Repos.Tokens.ListHolders(ctx, t.ID)
	if err != nil {
		return err
	}
	held := t.AvailableSupply
	for _, h := range holders {
		held += h.TokensOwned
	}
	if held != t.TotalSupply {
		return fmt.Errorf("token %s: supply mismatch, total %d but available+held %d", t.TokenID, t.TotalSupply, held)
	}
	return nil
}
