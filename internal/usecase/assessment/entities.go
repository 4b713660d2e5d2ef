package assessment

import (
	domain "credit-acceleration/internal/domain/assessment"
)

type Config struct {
	// AutoDecide applies approve and deny recommendations as status changes.
	AutoDecide bool
}

// Outcome is the result of an asynchronous assessment run.
type Outcome struct {
	LoanID     string             `json:"loan_id"`
	Assessment *domain.Assessment `json:"assessment,omitempty"`
	Err        error              `json:"-"`
}
