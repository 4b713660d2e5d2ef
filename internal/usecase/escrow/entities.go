package escrow

import (
	"time"

	domain "credit-acceleration/internal/domain/escrow"
)

type CreateAccountInput struct {
	MonthlyTaxImpound       float64 `json:"monthly_tax_impound"`
	MonthlyInsuranceImpound float64 `json:"monthly_insurance_impound"`
}

type TransactionInput struct {
	Type        string     `json:"type"`
	Amount      float64    `json:"amount"`
	Description string     `json:"description"`
	Payee       string     `json:"payee"`
	OccurredAt  *time.Time `json:"occurred_at"`
}

type AccountView struct {
	LoanID       string               `json:"loan_id"`
	Account      *domain.Account      `json:"account"`
	Transactions []domain.Transaction `json:"transactions"`
}

// TransactionResult is the appended entry and the balance it produced.
type TransactionResult struct {
	Transaction *domain.Transaction `json:"transaction"`
	Balance     float64             `json:"balance"`
	Shortage    bool                `json:"shortage"`
}
