package assessment

import (
	"errors"
	"fmt"
	"time"

	"credit-acceleration/internal/domain/apperr"
	"credit-acceleration/internal/domain/loan"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = fmt.Errorf("%w: assessment", apperr.ErrNotFound)
	ErrImmutable = errors.New("assessments are immutable")
)

// Table: loan_assessments. One row per scoring run; never updated.
type Assessment struct {
	// Internal numeric PK
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	// Public identifier (32-char lowercase hex)
	AssessmentID string `gorm:"column:assessment_id;size:32;not null;uniqueIndex:ux_assessments_assessment_id" json:"assessment_id"`
	// FK to loans.id (numeric)
	LoanID uint64 `gorm:"column:loan_id;not null;index:idx_assessments_loan" json:"-"`

	CreditworthinessScore float64                              `gorm:"type:decimal(6,2)" json:"creditworthiness_score"`
	DefaultRiskScore      float64                              `gorm:"type:decimal(6,2)" json:"default_risk_score"`
	ProfitabilityScore    float64                              `gorm:"type:decimal(6,2)" json:"profitability_score"`
	RiskScore             float64                              `gorm:"type:decimal(6,2)" json:"risk_score"`
	Recommendation        loan.Recommendation                  `gorm:"size:16" json:"recommendation"`
	Confidence            float64                              `gorm:"type:decimal(5,4)" json:"confidence"`
	RecommendedAmount     float64                              `gorm:"type:decimal(18,2)" json:"recommended_amount"`
	RecommendedRate       float64                              `gorm:"type:decimal(8,6)" json:"recommended_rate"`
	RiskFactors           datatypes.JSONSlice[loan.RiskFactor] `gorm:"column:risk_factors" json:"risk_factors"`
	ModelVersion          string                               `gorm:"size:32" json:"model_version"`
	CreatedAt             time.Time                            `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Assessment) TableName() string { return "loan_assessments" }

// BeforeUpdate rejects any update so a stored run can only be referenced.
func (*Assessment) BeforeUpdate(*gorm.DB) error { return ErrImmutable }

// BeforeDelete rejects deletes for the same reason.
func (*Assessment) BeforeDelete(*gorm.DB) error { return ErrImmutable }
