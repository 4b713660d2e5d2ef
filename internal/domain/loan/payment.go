package loan

import (
	"time"
)

type PaymentStatus string

const (
	PaymentPaid   PaymentStatus = "paid"
	PaymentLate   PaymentStatus = "late"
	PaymentMissed PaymentStatus = "missed"
)

// Table: loan_payments. Append-only payment history of a loan.
type Payment struct {
	ID              uint64        `gorm:"primaryKey;column:id" json:"-"`
	PaymentID       string        `gorm:"size:32;uniqueIndex:ux_loan_payments_payment_id" json:"payment_id"`
	LoanID          uint64        `gorm:"not null;index:idx_loan_payments_loan_due" json:"-"`
	DueDate         time.Time     `gorm:"index:idx_loan_payments_loan_due" json:"due_date"`
	PaidAt          *time.Time    `json:"paid_at,omitempty"`
	ScheduledAmount float64       `gorm:"type:decimal(18,2)" json:"scheduled_amount"`
	PrincipalAmount float64       `gorm:"type:decimal(18,2)" json:"principal_amount"`
	InterestAmount  float64       `gorm:"type:decimal(18,2)" json:"interest_amount"`
	EscrowAmount    float64       `gorm:"type:decimal(18,2)" json:"escrow_amount"`
	Status          PaymentStatus `gorm:"size:16" json:"status"`
	BalanceAfter    float64       `gorm:"type:decimal(18,2)" json:"balance_after"`
	CreatedAt       time.Time     `gorm:"autoCreateTime" json:"created_at"`
}

func (Payment) TableName() string { return "loan_payments" }

func (s PaymentStatus) Valid() bool {
	return s == PaymentPaid || s == PaymentLate || s == PaymentMissed
}
