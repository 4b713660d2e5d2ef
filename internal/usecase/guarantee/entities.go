package guarantee

import (
	domain "credit-acceleration/internal/domain/guarantee"
)

type CreateInput struct {
	Provider           string   `json:"provider"`
	CoveragePercentage float64  `json:"coverage_percentage"`
	MaxClaimAmount     float64  `json:"max_claim_amount"`
	Deductible         float64  `json:"deductible"`
	Premium            float64  `json:"premium"`
	CoveredEvents      []string `json:"covered_events"`
	// TermMonths defaults to 120.
	TermMonths int `json:"term_months"`
}

type ClaimInput struct {
	EventType   string  `json:"event_type"`
	ClaimAmount float64 `json:"claim_amount"`
	Description string  `json:"description"`
}

type DecisionInput struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason"`
}

type PayoutResult struct {
	Payout    *domain.Payout    `json:"payout"`
	Claim     *domain.Claim     `json:"claim"`
	Guarantee *domain.Guarantee `json:"guarantee"`
}

type GuaranteeView struct {
	Guarantee *domain.Guarantee `json:"guarantee"`
	Claims    []domain.Claim    `json:"claims"`
}
