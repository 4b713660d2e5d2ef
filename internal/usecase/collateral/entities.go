package collateral

import (
	domain "credit-acceleration/internal/domain/collateral"
	"credit-acceleration/internal/domain/valuation"
)

type AddAssetInput struct {
	Type           string  `json:"type"`
	Description    string  `json:"description"`
	Address        string  `json:"address"`
	EstimatedValue float64 `json:"estimated_value"`
	LienPosition   int     `json:"lien_position"`
}

// AssetResult is the asset after a change plus the loan totals it produced.
type AssetResult struct {
	LoanID               string        `json:"loan_id"`
	Asset                *domain.Asset `json:"asset"`
	TotalCollateralValue float64       `json:"total_collateral_value"`
	LoanToValueRatio     float64       `json:"loan_to_value_ratio"`
}

// RevaluationResult carries the provider report that priced the asset.
type RevaluationResult struct {
	AssetResult
	Report *valuation.Report `json:"report"`
}
