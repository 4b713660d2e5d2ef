package guarantee

import (
	"fmt"
	"time"

	"credit-acceleration/internal/domain/apperr"

	"gorm.io/datatypes"
)

var (
	ErrNotFound      = fmt.Errorf("%w: guarantee", apperr.ErrNotFound)
	ErrClaimNotFound = fmt.Errorf("%w: guarantee claim", apperr.ErrNotFound)
)

type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusExhausted Status = "exhausted"
	StatusCancelled Status = "cancelled"
)

type EventType string

const (
	EventPaymentDefault EventType = "payment_default"
	EventBankruptcy     EventType = "bankruptcy"
	EventForeclosure    EventType = "foreclosure"
	EventDeath          EventType = "death"
	EventDisability     EventType = "disability"
)

func (e EventType) Valid() bool {
	switch e {
	case EventPaymentDefault, EventBankruptcy, EventForeclosure, EventDeath, EventDisability:
		return true
	}
	return false
}

var DefaultCoveredEvents = []EventType{EventPaymentDefault, EventBankruptcy, EventForeclosure}

// Table: loan_guarantees.
// Invariant: TotalClaimsPaid <= MaxClaimAmount over the guarantee's life.
type Guarantee struct {
	ID                 uint64                         `gorm:"primaryKey;column:id" json:"-"`
	GuaranteeID        string                         `gorm:"size:32;not null;uniqueIndex:ux_guarantees_guarantee_id" json:"guarantee_id"`
	LoanID             uint64                         `gorm:"not null;index:idx_guarantees_loan" json:"-"`
	Provider           string                         `gorm:"size:128" json:"provider"`
	CoveragePercentage float64                        `gorm:"type:decimal(5,4)" json:"coverage_percentage"`
	MaxClaimAmount     float64                        `gorm:"type:decimal(18,2)" json:"max_claim_amount"`
	Deductible         float64                        `gorm:"type:decimal(18,2)" json:"deductible"`
	Premium            float64                        `gorm:"type:decimal(18,2)" json:"premium"`
	TotalClaimsPaid    float64                        `gorm:"type:decimal(18,2)" json:"total_claims_paid"`
	CoveredEvents      datatypes.JSONSlice[EventType] `json:"covered_events"`
	Status             Status                         `gorm:"size:16;default:'active'" json:"status"`
	StartDate          time.Time                      `json:"start_date"`
	EndDate            time.Time                      `json:"end_date"`
	CreatedAt          time.Time                      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time                      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Guarantee) TableName() string { return "loan_guarantees" }

func (g *Guarantee) Covers(e EventType) bool {
	for _, c := range g.CoveredEvents {
		if c == e {
			return true
		}
	}
	return false
}

// Remaining is the cap still available for payouts.
func (g *Guarantee) Remaining() float64 { return g.MaxClaimAmount - g.TotalClaimsPaid }

type ClaimStatus string

const (
	ClaimSubmitted     ClaimStatus = "submitted"
	ClaimInvestigating ClaimStatus = "investigating"
	ClaimApproved      ClaimStatus = "approved"
	ClaimDenied        ClaimStatus = "denied"
	ClaimPaid          ClaimStatus = "paid"
)

var claimTransitions = map[ClaimStatus][]ClaimStatus{
	ClaimSubmitted:     {ClaimInvestigating},
	ClaimInvestigating: {ClaimApproved, ClaimDenied},
	ClaimApproved:      {ClaimPaid},
}

func CanTransitionClaim(from, to ClaimStatus) bool {
	for _, next := range claimTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Table: guarantee_claims.
type Claim struct {
	ID               uint64      `gorm:"primaryKey;column:id" json:"-"`
	ClaimID          string      `gorm:"size:32;not null;uniqueIndex:ux_claims_claim_id" json:"claim_id"`
	GuaranteeID      uint64      `gorm:"not null;index:idx_claims_guarantee" json:"-"`
	LoanID           uint64      `gorm:"not null;index:idx_claims_loan" json:"-"`
	EventType        EventType   `gorm:"size:24" json:"event_type"`
	ClaimAmount      float64     `gorm:"type:decimal(18,2)" json:"claim_amount"`
	SettlementAmount *float64    `gorm:"type:decimal(18,2)" json:"settlement_amount,omitempty"`
	Description      string      `gorm:"size:512" json:"description,omitempty"`
	DecisionReason   string      `gorm:"size:512" json:"decision_reason,omitempty"`
	Status           ClaimStatus `gorm:"size:16;default:'submitted'" json:"status"`
	SubmittedAt      time.Time   `json:"submitted_at"`
	DecidedAt        *time.Time  `json:"decided_at,omitempty"`
	PaidAt           *time.Time  `json:"paid_at,omitempty"`
	UpdatedAt        time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Claim) TableName() string { return "guarantee_claims" }

// Table: guarantee_payouts.
type Payout struct {
	ID          uint64    `gorm:"primaryKey;column:id" json:"-"`
	PayoutID    string    `gorm:"size:32;not null;uniqueIndex:ux_payouts_payout_id" json:"payout_id"`
	ClaimID     uint64    `gorm:"not null;uniqueIndex:ux_payouts_claim" json:"-"`
	GuaranteeID uint64    `gorm:"not null;index" json:"-"`
	Amount      float64   `gorm:"type:decimal(18,2)" json:"amount"`
	PaidAt      time.Time `json:"paid_at"`
}

func (Payout) TableName() string { return "guarantee_payouts" }
