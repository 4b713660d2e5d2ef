package escrow

import (
	"fmt"
	"time"

	"credit-acceleration/internal/domain/apperr"
)

var ErrNotFound = fmt.Errorf("%w: escrow account", apperr.ErrNotFound)

type Status string

const (
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

type TxType string

const (
	TxDeposit          TxType = "deposit"
	TxWithdrawal       TxType = "withdrawal"
	TxTaxPayment       TxType = "tax_payment"
	TxInsurancePayment TxType = "insurance_payment"
)

func (t TxType) Valid() bool {
	switch t {
	case TxDeposit, TxWithdrawal, TxTaxPayment, TxInsurancePayment:
		return true
	}
	return false
}

// Signed returns amount with the sign the ledger stores for t.
func (t TxType) Signed(amount float64) float64 {
	if t == TxDeposit {
		return amount
	}
	return -amount
}

// Table: escrow_accounts. Balance always equals the sum of its transactions.
type Account struct {
	ID                      uint64    `gorm:"primaryKey;column:id" json:"-"`
	AccountID               string    `gorm:"size:32;not null;uniqueIndex:ux_escrow_account_id" json:"account_id"`
	LoanID                  uint64    `gorm:"not null;uniqueIndex:ux_escrow_loan" json:"-"`
	Balance                 float64   `gorm:"type:decimal(18,2)" json:"balance"`
	MonthlyTaxImpound       float64   `gorm:"type:decimal(18,2)" json:"monthly_tax_impound"`
	MonthlyInsuranceImpound float64   `gorm:"type:decimal(18,2)" json:"monthly_insurance_impound"`
	Status                  Status    `gorm:"size:16;default:'active'" json:"status"`
	NextAnalysisDate        time.Time `json:"next_analysis_date"`
	TxCount                 int64     `json:"transaction_count"`
	CreatedAt               time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt               time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string { return "escrow_accounts" }

// Table: escrow_transactions. Append-only.
type Transaction struct {
	ID            uint64    `gorm:"primaryKey;column:id" json:"-"`
	TransactionID string    `gorm:"size:32;not null;uniqueIndex:ux_escrow_tx_id" json:"transaction_id"`
	AccountID     uint64    `gorm:"not null;uniqueIndex:ux_escrow_tx_seq" json:"-"`
	Seq           int64     `gorm:"not null;uniqueIndex:ux_escrow_tx_seq" json:"seq"`
	Type          TxType    `gorm:"size:24" json:"type"`
	Amount        float64   `gorm:"type:decimal(18,2)" json:"amount"`
	Description   string    `gorm:"size:255" json:"description,omitempty"`
	Payee         string    `gorm:"size:128" json:"payee,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func (Transaction) TableName() string { return "escrow_transactions" }
