package loan

import (
	"fmt"
	"time"

	"credit-acceleration/internal/domain/apperr"
	"credit-acceleration/pkg/money"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrNotFound = fmt.Errorf("%w: loan", apperr.ErrNotFound)
)

type Recommendation string

const (
	RecommendApprove Recommendation = "approve"
	RecommendReview  Recommendation = "review"
	RecommendDeny    Recommendation = "deny"
)

func (r Recommendation) Valid() bool {
	return r == RecommendApprove || r == RecommendReview || r == RecommendDeny
}

type EmploymentStatus string

const (
	EmploymentEmployed     EmploymentStatus = "employed"
	EmploymentSelfEmployed EmploymentStatus = "self_employed"
	EmploymentContract     EmploymentStatus = "contract"
	EmploymentRetired      EmploymentStatus = "retired"
	EmploymentUnemployed   EmploymentStatus = "unemployed"
)

func (e EmploymentStatus) Valid() bool {
	switch e {
	case EmploymentEmployed, EmploymentSelfEmployed, EmploymentContract, EmploymentRetired, EmploymentUnemployed:
		return true
	}
	return false
}

// RiskFactor is one weighted contributor to a risk assessment.
type RiskFactor struct {
	Factor      string  `json:"factor"`
	Weight      float64 `json:"weight"`
	Score       float64 `json:"score"`
	Impact      string  `json:"impact"` // positive | negative | neutral
	Description string  `json:"description"`
}

type ProcessingNote struct {
	At   time.Time `json:"at"`
	From Status    `json:"from,omitempty"`
	To   Status    `json:"to,omitempty"`
	Note string    `json:"note"`
}

// Table: loans. Aggregate root; children reference ID.
type Loan struct {
	ID          uint64 `gorm:"primaryKey;column:id" json:"-"`
	LoanID      string `gorm:"size:32;uniqueIndex:ux_loans_loan_id" json:"loan_id"`
	ApplicantID string `gorm:"size:64;index:idx_loans_applicant" json:"applicant_id"`
	Purpose     string `gorm:"size:255" json:"purpose,omitempty"`
	Status      Status `gorm:"size:16;index:idx_loans_status;not null;default:'pending'" json:"status"`

	RequestedAmount float64  `gorm:"type:decimal(18,2)" json:"requested_amount"`
	ApprovedAmount  *float64 `gorm:"type:decimal(18,2)" json:"approved_amount,omitempty"`
	InterestRate    float64  `gorm:"type:decimal(8,6)" json:"interest_rate"`
	TermMonths      int      `json:"term_months"`
	MonthlyPayment  *float64 `gorm:"type:decimal(18,2)" json:"monthly_payment,omitempty"`
	CurrentBalance  float64  `gorm:"type:decimal(18,2)" json:"current_balance"`

	CreditScore       int              `json:"credit_score"`
	DebtToIncomeRatio float64          `gorm:"type:decimal(8,4)" json:"debt_to_income_ratio"`
	AnnualIncome      float64          `gorm:"type:decimal(18,2)" json:"annual_income"`
	EmploymentStatus  EmploymentStatus `gorm:"size:24" json:"employment_status"`
	PropertyAddress   string           `gorm:"size:255" json:"property_address,omitempty"`

	AIRiskScore      *float64                            `gorm:"column:ai_risk_score;type:decimal(6,2)" json:"ai_risk_score,omitempty"`
	AIRecommendation Recommendation                      `gorm:"column:ai_recommendation;size:16" json:"ai_recommendation,omitempty"`
	AIConfidence     *float64                            `gorm:"column:ai_confidence;type:decimal(5,4)" json:"ai_confidence,omitempty"`
	RiskFactors      datatypes.JSONSlice[RiskFactor]     `gorm:"column:risk_factors" json:"risk_factors,omitempty"`
	ProcessingNotes  datatypes.JSONSlice[ProcessingNote] `gorm:"column:processing_notes" json:"processing_notes,omitempty"`

	TotalCollateralValue float64 `gorm:"type:decimal(18,2)" json:"total_collateral_value"`
	LoanToValueRatio     float64 `gorm:"type:decimal(12,6)" json:"loan_to_value_ratio"`

	NotificationSeq uint64 `json:"-"`
	Version         int64  `gorm:"not null;default:0" json:"version"`

	StatusUpdatedAt time.Time      `json:"status_updated_at"`
	FundedAt        *time.Time     `json:"funded_at,omitempty"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	DeletedBy       string         `gorm:"size:64" json:"-"`
}

func (Loan) TableName() string { return "loans" }

// PrincipalBase is the amount the loan is (or would be) funded for.
func (l *Loan) PrincipalBase() float64 {
	if l.ApprovedAmount != nil {
		return *l.ApprovedAmount
	}
	return l.RequestedAmount
}

// RecomputeLTV sets LoanToValueRatio = approvedAmount / totalCollateralValue,
// or 0 when there is no collateral or no approved amount yet.
func (l *Loan) RecomputeLTV() {
	if l.ApprovedAmount == nil || l.TotalCollateralValue <= 0 {
		l.LoanToValueRatio = 0
		return
	}
	l.LoanToValueRatio = money.Ratio(*l.ApprovedAmount, l.TotalCollateralValue, 6)
}

// RecomputeMonthlyPayment amortizes PrincipalBase over the term.
func (l *Loan) RecomputeMonthlyPayment() {
	p := MonthlyPayment(l.PrincipalBase(), l.InterestRate, l.TermMonths)
	l.MonthlyPayment = &p
}

// AddNote appends a processing note.
func (l *Loan) AddNote(at time.Time, from, to Status, note string) {
	l.ProcessingNotes = append(l.ProcessingNotes, ProcessingNote{At: at, From: from, To: to, Note: note})
}
