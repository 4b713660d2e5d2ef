// Package valuation defines the port to the external comparable-sales
// valuation provider.
package valuation

import (
	"context"
	"time"
)

type Comparable struct {
	Address       string    `json:"address"`
	SalePrice     float64   `json:"sale_price"`
	SaleDate      time.Time `json:"sale_date"`
	SquareFeet    int       `json:"square_feet,omitempty"`
	DistanceMiles float64   `json:"distance_miles"`
}

// Report is a comparables-based estimate for one address.
type Report struct {
	Address        string       `json:"address"`
	EstimatedValue float64      `json:"estimated_value"`
	LowValue       float64      `json:"low_value"`
	HighValue      float64      `json:"high_value"`
	Confidence     float64      `json:"confidence"`
	Comparables    []Comparable `json:"comparables"`
	Source         string       `json:"source"`
	GeneratedAt    time.Time    `json:"generated_at"`
}

// Provider returns comparable-sales estimates. Implementations may be slow or
// fail transiently; callers apply their own timeout and retry policy.
type Provider interface {
	Comparables(ctx context.Context, address string) (*Report, error)
}
