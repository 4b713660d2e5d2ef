package tokenization_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"credit-acceleration/internal/domain/apperr"
	"credit-acceleration/internal/domain/collateral"
	"credit-acceleration/internal/domain/loan"
	domain "credit-acceleration/internal/domain/token"
	"credit-acceleration/internal/testutil/harness"
	"credit-acceleration/internal/usecase/tokenization"
	"credit-acceleration/pkg/id"
)

func funded(l *loan.Loan) { l.Status = loan.StatusFunded }

type fixture struct {
	h     *harness.Harness
	uc    *tokenization.Usecase
	loan  *loan.Loan
	token *domain.Token
}

// setup issues a default token and sells 1,000 units to "alice".
func setup(t *testing.T) fixture {
	t.Helper()
	h := harness.New(t)
	uc := tokenization.NewUsecase(h.Runner, tokenization.Config{}, nil)
	l := h.SeedLoan(t, funded)
	tok, err := uc.TokenizeLoan(context.Background(), l.LoanID, tokenization.TokenizeInput{})
	if err != nil {
		t.Fatalf("TokenizeLoan: %v", err)
	}
	if _, err := uc.PurchaseTokens(context.Background(), tok.TokenID, tokenization.PurchaseInput{BuyerID: "alice", Tokens: 1000}); err != nil {
		t.Fatalf("PurchaseTokens: %v", err)
	}
	return fixture{h: h, uc: uc, loan: l, token: tok}
}

func (f fixture) list(t *testing.T, seller string, n int64) *domain.Listing {
	t.Helper()
	l, err := f.uc.CreateSecondaryListing(context.Background(), f.token.TokenID, tokenization.ListingInput{
		SellerID: seller, TokensForSale: n, AskPrice: 1.2,
	})
	if err != nil {
		t.Fatalf("CreateSecondaryListing: %v", err)
	}
	return l
}

func (f fixture) bid(t *testing.T, listingID, bidder string, n int64, price float64) *domain.Bid {
	t.Helper()
	b, err := f.uc.PlaceBid(context.Background(), listingID, tokenization.BidInput{BidderID: bidder, Tokens: n, PricePerToken: price})
	if err != nil {
		t.Fatalf("PlaceBid: %v", err)
	}
	return b
}

func assertSupply(t *testing.T, f fixture) {
	t.Helper()
	v, err := f.uc.GetToken(context.Background(), f.token.TokenID)
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	held := v.Token.AvailableSupply
	for _, h := range v.Holders {
		held += h.TokensOwned
	}
	if held != v.Token.TotalSupply {
		t.Fatalf("supply broken: total %d, available+held %d", v.Token.TotalSupply, held)
	}
}

func TestTokenizeLoan_Defaults(t *testing.T) {
	h := harness.New(t)
	uc := tokenization.NewUsecase(h.Runner, tokenization.Config{}, nil)
	l := h.SeedLoan(t, funded)
	asset := &collateral.Asset{AssetID: id.NewID32(), LoanID: l.ID, Type: collateral.TypeRealEstate, EstimatedValue: 300000, LienPosition: 1, Status: collateral.StatusActive}
	if err := h.UoW.Repos().Collateral.Create(context.Background(), asset); err != nil {
		t.Fatalf("seed asset: %v", err)
	}

	tok, err := uc.TokenizeLoan(context.Background(), l.LoanID, tokenization.TokenizeInput{})
	if err != nil {
		t.Fatalf("TokenizeLoan: %v", err)
	}
	if tok.TotalSupply != 1_000_000 || tok.AvailableSupply != 1_000_000 || tok.PricePerToken != 1.0 {
		t.Fatalf("unexpected token %+v", tok)
	}
	if len(tok.TokenID) != 32 || tok.IssuanceSeq != 1 || !id.VerifyContractAddress(tok.ContractAddress, l.LoanID, 1) {
		t.Fatalf("token identity %+v", tok)
	}
	got, err := h.UoW.Repos().Collateral.GetByAssetID(context.Background(), asset.AssetID)
	if err != nil || !got.Tokenized {
		t.Fatalf("asset not marked tokenized: %+v %v", got, err)
	}

	second, err := uc.TokenizeLoan(context.Background(), l.LoanID, tokenization.TokenizeInput{TotalSupply: 500, PricePerToken: 2.5, Symbol: "harbor"})
	if err != nil {
		t.Fatalf("TokenizeLoan: %v", err)
	}
	if second.IssuanceSeq != 2 || second.ContractAddress == tok.ContractAddress || second.Symbol != "HARBOR" {
		t.Fatalf("second issuance %+v", second)
	}
	h.Sink.Wait(t, 2)
}

func TestTokenizeLoan_RequiresFundedOrActive(t *testing.T) {
	h := harness.New(t)
	uc := tokenization.NewUsecase(h.Runner, tokenization.Config{}, nil)
	l := h.SeedLoan(t, nil)

	if _, err := uc.TokenizeLoan(context.Background(), l.LoanID, tokenization.TokenizeInput{}); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	if _, err := uc.TokenizeLoan(context.Background(), l.LoanID, tokenization.TokenizeInput{TotalSupply: -1}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPurchaseTokens(t *testing.T) {
	f := setup(t)

	v, err := f.uc.GetToken(context.Background(), f.token.TokenID)
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	if v.Token.AvailableSupply != 999_000 || len(v.Holders) != 1 || v.Holders[0].TokensOwned != 1000 {
		t.Fatalf("after purchase: %+v holders %+v", v.Token, v.Holders)
	}
	if len(v.PriceHistory) != 1 || v.PriceHistory[0].Source != domain.SourcePrimary || v.PriceHistory[0].Volume != 1000 {
		t.Fatalf("price history %+v", v.PriceHistory)
	}

	_, err = f.uc.PurchaseTokens(context.Background(), f.token.TokenID, tokenization.PurchaseInput{BuyerID: "bob", Tokens: 999_001})
	if !errors.Is(err, apperr.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if _, err := f.uc.PurchaseTokens(context.Background(), "missing", tokenization.PurchaseInput{BuyerID: "bob", Tokens: 1}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected token not found, got %v", err)
	}
	assertSupply(t, f)
}

func TestCreateSecondaryListing_CountsOpenListings(t *testing.T) {
	f := setup(t)

	l := f.list(t, "alice", 600)
	if l.Status != domain.ListingActive || !l.ExpirationDate.Equal(harness.Epoch.Add(30*24*time.Hour)) {
		t.Fatalf("unexpected listing %+v", l)
	}
	_, err := f.uc.CreateSecondaryListing(context.Background(), f.token.TokenID, tokenization.ListingInput{SellerID: "alice", TokensForSale: 500, AskPrice: 1.1})
	if !errors.Is(err, apperr.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	f.list(t, "alice", 400)

	_, err = f.uc.CreateSecondaryListing(context.Background(), f.token.TokenID, tokenization.ListingInput{SellerID: "nobody", TokensForSale: 1, AskPrice: 1})
	if !errors.Is(err, apperr.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance for empty holder, got %v", err)
	}
}

func TestAcceptBid_FullFill(t *testing.T) {
	f := setup(t)
	l := f.list(t, "alice", 600)

	if _, err := f.uc.PlaceBid(context.Background(), l.ListingID, tokenization.BidInput{BidderID: "alice", Tokens: 1, PricePerToken: 1}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected seller bid to be rejected, got %v", err)
	}
	if _, err := f.uc.PlaceBid(context.Background(), l.ListingID, tokenization.BidInput{BidderID: "bob", Tokens: 601, PricePerToken: 1}); !errors.Is(err, apperr.ErrInvalidAmount) {
		t.Fatalf("expected oversized bid to be rejected, got %v", err)
	}
	win := f.bid(t, l.ListingID, "bob", 600, 1.1)
	lose := f.bid(t, l.ListingID, "carol", 300, 1.15)

	res, err := f.uc.AcceptBid(context.Background(), win.BidID)
	if err != nil {
		t.Fatalf("AcceptBid: %v", err)
	}
	if res.Listing.Status != domain.ListingSold || res.Listing.FilledTokens != 600 {
		t.Fatalf("listing %+v", res.Listing)
	}
	if res.Seller.TokensOwned != 400 || res.Buyer.TokensOwned != 600 || res.Buyer.AveragePrice != 1.1 {
		t.Fatalf("holders seller=%+v buyer=%+v", res.Seller, res.Buyer)
	}
	if res.Token.CurrentValue != 1.1 || res.Token.AvailableSupply != 999_000 {
		t.Fatalf("token %+v", res.Token)
	}

	view, err := f.uc.GetListing(context.Background(), l.ListingID)
	if err != nil {
		t.Fatalf("GetListing: %v", err)
	}
	statuses := map[string]domain.BidStatus{}
	for _, b := range view.Bids {
		statuses[b.BidID] = b.Status
	}
	if statuses[win.BidID] != domain.BidAccepted || statuses[lose.BidID] != domain.BidRejected {
		t.Fatalf("bid statuses %v", statuses)
	}
	if _, err := f.uc.AcceptBid(context.Background(), lose.BidID); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("expected second accept to fail, got %v", err)
	}

	tv, _ := f.uc.GetToken(context.Background(), f.token.TokenID)
	last := tv.PriceHistory[len(tv.PriceHistory)-1]
	if last.Source != domain.SourceSecondary || last.Price != 1.1 || last.Volume != 600 {
		t.Fatalf("secondary price point %+v", last)
	}
	assertSupply(t, f)
}

func TestAcceptBid_PartialFillClosesListing(t *testing.T) {
	f := setup(t)
	l := f.list(t, "alice", 600)
	b := f.bid(t, l.ListingID, "bob", 200, 0.95)

	res, err := f.uc.AcceptBid(context.Background(), b.BidID)
	if err != nil {
		t.Fatalf("AcceptBid: %v", err)
	}
	if res.Listing.Status != domain.ListingCancelled || res.Listing.FilledTokens != 200 {
		t.Fatalf("listing %+v", res.Listing)
	}
	if res.Seller.TokensOwned != 800 {
		t.Fatalf("seller holds %d, want 800", res.Seller.TokensOwned)
	}
	// the unfilled units are free to list again
	f.list(t, "alice", 800)
	assertSupply(t, f)
}

func TestPlaceBid_ExpiredListing(t *testing.T) {
	f := setup(t)
	l := f.list(t, "alice", 100)
	early := f.bid(t, l.ListingID, "bob", 50, 1)

	f.h.Clock.Advance(31 * 24 * time.Hour)
	_, err := f.uc.PlaceBid(context.Background(), l.ListingID, tokenization.BidInput{BidderID: "carol", Tokens: 10, PricePerToken: 1})
	if !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	view, err := f.uc.GetListing(context.Background(), l.ListingID)
	if err != nil {
		t.Fatalf("GetListing: %v", err)
	}
	if view.Listing.Status != domain.ListingExpired || len(view.Bids) != 1 || view.Bids[0].Status != domain.BidExpired {
		t.Fatalf("listing %+v bids %+v", view.Listing, view.Bids)
	}
	if _, err := f.uc.AcceptBid(context.Background(), early.BidID); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("expected expired bid to be rejected, got %v", err)
	}
}

func TestExpireListings(t *testing.T) {
	f := setup(t)
	a := f.list(t, "alice", 100)
	f.list(t, "alice", 100)
	f.bid(t, a.ListingID, "bob", 10, 1)

	n, err := f.uc.ExpireListings(context.Background(), f.h.Clock.Now())
	if err != nil || n != 0 {
		t.Fatalf("nothing due yet: n=%d err=%v", n, err)
	}

	f.h.Clock.Advance(30*24*time.Hour + time.Minute)
	n, err = f.uc.ExpireListings(context.Background(), f.h.Clock.Now())
	if err != nil {
		t.Fatalf("ExpireListings: %v", err)
	}
	if n != 2 {
		t.Fatalf("expired %d listings, want 2", n)
	}
	view, _ := f.uc.GetListing(context.Background(), a.ListingID)
	if view.Listing.Status != domain.ListingExpired || view.Bids[0].Status != domain.BidExpired {
		t.Fatalf("listing %+v bids %+v", view.Listing, view.Bids)
	}
}

func TestCancelListing(t *testing.T) {
	f := setup(t)
	l := f.list(t, "alice", 100)
	b := f.bid(t, l.ListingID, "bob", 10, 1)

	if _, err := f.uc.CancelListing(context.Background(), l.ListingID, "mallory"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	got, err := f.uc.CancelListing(context.Background(), l.ListingID, "alice")
	if err != nil {
		t.Fatalf("CancelListing: %v", err)
	}
	if got.Status != domain.ListingCancelled {
		t.Fatalf("listing %+v", got)
	}
	if _, err := f.uc.AcceptBid(context.Background(), b.BidID); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("expected rejected bid, got %v", err)
	}
	if _, err := f.uc.CancelListing(context.Background(), l.ListingID, "alice"); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("expected second cancel to fail, got %v", err)
	}
}
