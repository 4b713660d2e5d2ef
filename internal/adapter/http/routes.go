package http

import (
	"github.com/labstack/echo/v4"
)

// Handlers groups every route handler the API serves.
type Handlers struct {
	Health       *Handler
	Loans        *LoanHandler
	Assessments  *AssessmentHandler
	Collateral   *CollateralHandler
	Tokens       *TokenHandler
	Escrow       *EscrowHandler
	Guarantees   *GuaranteeHandler
	Notification *NotificationHandler
}

// Register mounts the API. Mutating routes pass through mw (idempotency);
// reads bypass it.
func Register(e *echo.Echo, h Handlers, mw ...echo.MiddlewareFunc) {
	e.GET("/health", h.Health.Health)

	g := e.Group("", mw...)

	g.POST("/loans", h.Loans.CreateLoan)
	g.GET("/loans", h.Loans.SearchLoans)
	g.GET("/loans/:loan_id", h.Loans.GetLoan)
	g.PUT("/loans/:loan_id/status", h.Loans.UpdateStatus)
	g.POST("/loans/:loan_id/payments", h.Loans.ProcessPayment)
	g.DELETE("/loans/:loan_id", h.Loans.ArchiveLoan)
	g.GET("/loans/:loan_id/schedule", h.Loans.Schedule)
	g.GET("/portfolio/metrics", h.Loans.PortfolioMetrics)

	g.POST("/loans/:loan_id/assessment", h.Assessments.Assess)
	g.GET("/loans/:loan_id/assessment", h.Loans.LatestAssessment)
	g.DELETE("/loans/:loan_id/assessment", h.Assessments.Cancel)

	g.POST("/loans/:loan_id/collateral", h.Collateral.AddAsset)
	g.PUT("/collateral/:asset_id/valuation", h.Collateral.UpdateValuation)
	g.DELETE("/collateral/:asset_id", h.Collateral.RemoveAsset)
	g.POST("/collateral/:asset_id/revaluation", h.Collateral.Revalue)
	g.GET("/valuation/comparables", h.Collateral.Comparables)

	g.POST("/loans/:loan_id/tokens", h.Tokens.Tokenize)
	g.GET("/tokens/:token_id", h.Tokens.GetToken)
	g.POST("/tokens/:token_id/purchases", h.Tokens.Purchase)
	g.POST("/tokens/:token_id/listings", h.Tokens.CreateListing)
	g.GET("/listings/:listing_id", h.Tokens.GetListing)
	g.DELETE("/listings/:listing_id", h.Tokens.CancelListing)
	g.POST("/listings/:listing_id/bids", h.Tokens.PlaceBid)
	g.POST("/bids/:bid_id/accept", h.Tokens.AcceptBid)

	g.POST("/loans/:loan_id/escrow", h.Escrow.CreateAccount)
	g.GET("/loans/:loan_id/escrow", h.Escrow.GetAccount)
	g.POST("/loans/:loan_id/escrow/transactions", h.Escrow.Transact)

	g.POST("/loans/:loan_id/guarantee", h.Guarantees.Create)
	g.GET("/guarantees/:guarantee_id", h.Guarantees.Get)
	g.POST("/guarantees/:guarantee_id/claims", h.Guarantees.SubmitClaim)
	g.POST("/claims/:claim_id/investigation", h.Guarantees.StartInvestigation)
	g.POST("/claims/:claim_id/decision", h.Guarantees.Decide)
	g.POST("/claims/:claim_id/payout", h.Guarantees.Payout)

	g.GET("/loans/:loan_id/notifications", h.Notification.List)
	g.POST("/notifications/:notification_id/read", h.Notification.MarkRead)
}
