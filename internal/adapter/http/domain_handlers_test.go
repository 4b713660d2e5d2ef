package http

import (
	stdhttp "net/http"
	"net/url"
	"testing"

	"credit-acceleration/internal/domain/guarantee"
	domain "credit-acceleration/internal/domain/loan"
	"credit-acceleration/internal/domain/notification"
	"credit-acceleration/internal/domain/token"
	"credit-acceleration/internal/domain/valuation"
	"credit-acceleration/internal/usecase/collateral"
	escrowUC "credit-acceleration/internal/usecase/escrow"
	guaranteeUC "credit-acceleration/internal/usecase/guarantee"
	"credit-acceleration/internal/usecase/tokenization"
)

func fundedLoan(t *testing.T, a *testAPI) *domain.Loan {
	t.Helper()
	approved := 225000.0
	return a.h.SeedLoan(t, func(l *domain.Loan) {
		l.Status = domain.StatusFunded
		l.ApprovedAmount = &approved
		l.CurrentBalance = approved
	})
}

func TestCollateralRoutes(t *testing.T) {
	a := newTestAPI(t)
	l := fundedLoan(t, a)

	rec := a.do(t, stdhttp.MethodPost, "/loans/"+l.LoanID+"/collateral", map[string]any{
		"type":            "real_estate",
		"address":         "12 Harbor Lane, Portland, ME",
		"estimated_value": 300000,
		"lien_position":   1,
	})
	wantStatus(t, rec, stdhttp.StatusCreated)
	res := decode[collateral.AssetResult](t, rec)
	if res.LoanToValueRatio != 0.75 || res.TotalCollateralValue != 300000 {
		t.Fatalf("asset result %+v", res)
	}

	wantCode(t, a.do(t, stdhttp.MethodPost, "/loans/"+l.LoanID+"/collateral", map[string]any{"type": "boat", "lien_position": 1}),
		stdhttp.StatusUnprocessableEntity, "validation_error")

	rec = a.do(t, stdhttp.MethodPut, "/collateral/"+res.Asset.AssetID+"/valuation", map[string]any{"new_value": 250000, "verified": true})
	wantStatus(t, rec, stdhttp.StatusOK)
	if got := decode[collateral.AssetResult](t, rec); got.LoanToValueRatio != 0.9 {
		t.Fatalf("ltv after revaluation = %v, want 0.9", got.LoanToValueRatio)
	}

	wantStatus(t, a.do(t, stdhttp.MethodPost, "/collateral/"+res.Asset.AssetID+"/revaluation", nil), stdhttp.StatusOK)
	wantStatus(t, a.do(t, stdhttp.MethodDelete, "/collateral/"+res.Asset.AssetID, nil), stdhttp.StatusOK)
	wantCode(t, a.do(t, stdhttp.MethodDelete, "/collateral/"+res.Asset.AssetID, nil), stdhttp.StatusConflict, "invalid_state")
}

func TestComparablesRoute(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, stdhttp.MethodGet, "/valuation/comparables?address="+url.QueryEscape("12 Harbor Lane"), nil)
	wantStatus(t, rec, stdhttp.StatusOK)
	if r := decode[valuation.Report](t, rec); r.Source != "stub" || len(r.Comparables) == 0 {
		t.Fatalf("report %+v", r)
	}

	wantCode(t, a.do(t, stdhttp.MethodGet, "/valuation/comparables", nil), stdhttp.StatusUnprocessableEntity, "validation_error")
}

func TestTokenRoutes_Trade(t *testing.T) {
	a := newTestAPI(t)
	l := fundedLoan(t, a)

	rec := a.do(t, stdhttp.MethodPost, "/loans/"+l.LoanID+"/tokens", map[string]any{})
	wantStatus(t, rec, stdhttp.StatusCreated)
	tok := decode[token.Token](t, rec)
	if tok.TotalSupply != 1000000 || tok.PricePerToken != 1 {
		t.Fatalf("token %+v", tok)
	}

	wantStatus(t, a.do(t, stdhttp.MethodPost, "/tokens/"+tok.TokenID+"/purchases", map[string]any{"buyer_id": "alice", "tokens": 1000}), stdhttp.StatusCreated)
	wantCode(t, a.do(t, stdhttp.MethodPost, "/tokens/"+tok.TokenID+"/purchases", map[string]any{"buyer_id": "alice", "tokens": 0}),
		stdhttp.StatusUnprocessableEntity, "validation_error")

	rec = a.do(t, stdhttp.MethodPost, "/tokens/"+tok.TokenID+"/listings", map[string]any{"seller_id": "alice", "tokens_for_sale": 400, "ask_price": 1.1})
	wantStatus(t, rec, stdhttp.StatusCreated)
	listing := decode[token.Listing](t, rec)

	rec = a.do(t, stdhttp.MethodPost, "/listings/"+listing.ListingID+"/bids", map[string]any{"bidder_id": "bob", "tokens": 400, "price_per_token": 1.1})
	wantStatus(t, rec, stdhttp.StatusCreated)
	bid := decode[token.Bid](t, rec)

	rec = a.do(t, stdhttp.MethodPost, "/bids/"+bid.BidID+"/accept", nil)
	wantStatus(t, rec, stdhttp.StatusOK)
	trade := decode[tokenization.TradeResult](t, rec)
	if trade.Listing.Status != token.ListingSold || trade.Seller.TokensOwned != 600 || trade.Buyer.TokensOwned != 400 {
		t.Fatalf("trade %+v seller %+v buyer %+v", trade.Listing, trade.Seller, trade.Buyer)
	}

	rec = a.do(t, stdhttp.MethodGet, "/tokens/"+tok.TokenID, nil)
	wantStatus(t, rec, stdhttp.StatusOK)
	if v := decode[tokenization.TokenView](t, rec); len(v.Holders) != 2 {
		t.Fatalf("holders %+v", v.Holders)
	}
}

func TestTokenRoutes_CancelListingNeedsSeller(t *testing.T) {
	a := newTestAPI(t)
	l := fundedLoan(t, a)
	tok := decode[token.Token](t, a.do(t, stdhttp.MethodPost, "/loans/"+l.LoanID+"/tokens", map[string]any{}))
	a.do(t, stdhttp.MethodPost, "/tokens/"+tok.TokenID+"/purchases", map[string]any{"buyer_id": "alice", "tokens": 100})
	listing := decode[token.Listing](t, a.do(t, stdhttp.MethodPost, "/tokens/"+tok.TokenID+"/listings",
		map[string]any{"seller_id": "alice", "tokens_for_sale": 50, "ask_price": 1.05}))

	path := "/listings/" + listing.ListingID
	wantCode(t, a.do(t, stdhttp.MethodDelete, path, nil), stdhttp.StatusBadRequest, "bad_request")
	wantCode(t, a.do(t, stdhttp.MethodDelete, path, nil, actorHeader...), stdhttp.StatusUnprocessableEntity, "validation_error")

	rec := a.do(t, stdhttp.MethodDelete, path, nil, "Ax-Actor-Id", "alice")
	wantStatus(t, rec, stdhttp.StatusOK)
	if got := decode[token.Listing](t, rec); got.Status != token.ListingCancelled {
		t.Fatalf("listing status = %s", got.Status)
	}
}

func TestGuaranteeRoutes_ClaimToPayout(t *testing.T) {
	a := newTestAPI(t)
	l := a.h.SeedLoan(t, func(l *domain.Loan) { l.Status = domain.StatusActive })

	rec := a.do(t, stdhttp.MethodPost, "/loans/"+l.LoanID+"/guarantee", map[string]any{
		"provider":            "Atlantic Mutual",
		"coverage_percentage": 0.8,
		"max_claim_amount":    50000,
		"deductible":          1000,
		"covered_events":      []string{"payment_default"},
	})
	wantStatus(t, rec, stdhttp.StatusCreated)
	g := decode[guarantee.Guarantee](t, rec)

	claims := "/guarantees/" + g.GuaranteeID + "/claims"
	wantCode(t, a.do(t, stdhttp.MethodPost, claims, map[string]any{"event_type": "death", "claim_amount": 1000}),
		stdhttp.StatusUnprocessableEntity, "validation_error")

	rec = a.do(t, stdhttp.MethodPost, claims, map[string]any{"event_type": "payment_default", "claim_amount": 40000})
	wantStatus(t, rec, stdhttp.StatusCreated)
	c := decode[guarantee.Claim](t, rec)

	wantCode(t, a.do(t, stdhttp.MethodPost, "/claims/"+c.ClaimID+"/payout", nil), stdhttp.StatusConflict, "claim_not_approved")
	wantCode(t, a.do(t, stdhttp.MethodPost, "/claims/"+c.ClaimID+"/decision", map[string]any{"approve": true}),
		stdhttp.StatusConflict, "invalid_transition")

	wantStatus(t, a.do(t, stdhttp.MethodPost, "/claims/"+c.ClaimID+"/investigation", nil), stdhttp.StatusOK)
	wantStatus(t, a.do(t, stdhttp.MethodPost, "/claims/"+c.ClaimID+"/decision", map[string]any{"approve": true, "reason": "verified default"}), stdhttp.StatusOK)

	rec = a.do(t, stdhttp.MethodPost, "/claims/"+c.ClaimID+"/payout", nil)
	wantStatus(t, rec, stdhttp.StatusCreated)
	if p := decode[guaranteeUC.PayoutResult](t, rec); p.Payout.Amount != 31200 {
		t.Fatalf("payout %+v", p.Payout)
	}

	rec = a.do(t, stdhttp.MethodGet, "/guarantees/"+g.GuaranteeID, nil)
	wantStatus(t, rec, stdhttp.StatusOK)
	if v := decode[guaranteeUC.GuaranteeView](t, rec); v.Guarantee.TotalClaimsPaid != 31200 || len(v.Claims) != 1 {
		t.Fatalf("view %+v", v)
	}
}

func TestEscrowRoutes(t *testing.T) {
	a := newTestAPI(t)
	l := fundedLoan(t, a)
	path := "/loans/" + l.LoanID + "/escrow"

	wantStatus(t, a.do(t, stdhttp.MethodPost, path, map[string]any{"monthly_tax_impound": 300, "monthly_insurance_impound": 120}), stdhttp.StatusCreated)
	wantCode(t, a.do(t, stdhttp.MethodPost, path, map[string]any{}), stdhttp.StatusConflict, "invalid_state")

	wantStatus(t, a.do(t, stdhttp.MethodPost, path+"/transactions", map[string]any{"type": "deposit", "amount": 1500}), stdhttp.StatusCreated)
	wantCode(t, a.do(t, stdhttp.MethodPost, path+"/transactions", map[string]any{"type": "gift", "amount": 1}),
		stdhttp.StatusUnprocessableEntity, "validation_error")

	rec := a.do(t, stdhttp.MethodGet, path, nil)
	wantStatus(t, rec, stdhttp.StatusOK)
	v := decode[escrowUC.AccountView](t, rec)
	if v.Account.Balance != 1500 || len(v.Transactions) != 1 {
		t.Fatalf("escrow view %+v", v)
	}
}

func TestNotificationRoutes(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, stdhttp.MethodPost, "/loans", createLoanBody())
	wantStatus(t, rec, stdhttp.StatusCreated)
	l := decode[domain.Loan](t, rec)

	rec = a.do(t, stdhttp.MethodGet, "/loans/"+l.LoanID+"/notifications?unread_only=true", nil)
	wantStatus(t, rec, stdhttp.StatusOK)
	list := decode[[]notification.Notification](t, rec)
	if len(list) != 1 || list[0].Type != "application_received" {
		t.Fatalf("notifications %+v", list)
	}

	wantStatus(t, a.do(t, stdhttp.MethodPost, "/notifications/"+list[0].NotificationID+"/read", nil), stdhttp.StatusOK)

	rec = a.do(t, stdhttp.MethodGet, "/loans/"+l.LoanID+"/notifications?unread_only=true", nil)
	if got := decode[[]notification.Notification](t, rec); len(got) != 0 {
		t.Fatalf("unread after mark = %d", len(got))
	}
	wantCode(t, a.do(t, stdhttp.MethodGet, "/loans/"+l.LoanID+"/notifications?unread_only=maybe", nil), stdhttp.StatusBadRequest, "bad_request")
}
