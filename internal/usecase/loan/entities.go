package loan

import (
	"time"

	"credit-acceleration/internal/domain/assessment"
	"credit-acceleration/internal/domain/collateral"
	"credit-acceleration/internal/domain/escrow"
	"credit-acceleration/internal/domain/guarantee"
	"credit-acceleration/internal/domain/loan"
	"credit-acceleration/internal/domain/token"
)

type CreateLoanInput struct {
	ApplicantID       string  `json:"applicant_id"`
	Purpose           string  `json:"purpose"`
	RequestedAmount   float64 `json:"requested_amount"`
	InterestRate      float64 `json:"interest_rate"`
	TermMonths        int     `json:"term_months"`
	CreditScore       int     `json:"credit_score"`
	DebtToIncomeRatio float64 `json:"debt_to_income_ratio"`
	AnnualIncome      float64 `json:"annual_income"`
	EmploymentStatus  string  `json:"employment_status"`
	PropertyAddress   string  `json:"property_address"`
}

type PaymentInput struct {
	DueDate         time.Time  `json:"due_date"`
	PaidAt          *time.Time `json:"paid_at"`
	ScheduledAmount float64    `json:"scheduled_amount"`
	PrincipalAmount float64    `json:"principal_amount"`
	InterestAmount  float64    `json:"interest_amount"`
	EscrowAmount    float64    `json:"escrow_amount"`
	// paid (default), late or missed
	Status string `json:"status"`
}

type PaymentResult struct {
	Payment        *loan.Payment `json:"payment"`
	CurrentBalance float64       `json:"current_balance"`
	LoanStatus     loan.Status   `json:"loan_status"`
}

// LoanView is the whole aggregate as read outside any transaction.
type LoanView struct {
	Loan             *loan.Loan             `json:"loan"`
	Collateral       []collateral.Asset     `json:"collateral"`
	Payments         []loan.Payment         `json:"payments"`
	Escrow           *escrow.Account        `json:"escrow,omitempty"`
	Guarantee        *guarantee.Guarantee   `json:"guarantee,omitempty"`
	Tokens           []token.Token          `json:"tokens"`
	LatestAssessment *assessment.Assessment `json:"latest_assessment,omitempty"`
}

type SearchInput struct {
	Statuses       []string `json:"statuses"`
	ApplicantID    string   `json:"applicant_id"`
	MinAmount      float64  `json:"min_amount"`
	MaxAmount      float64  `json:"max_amount"`
	MinCreditScore int      `json:"min_credit_score"`
	Recommendation string   `json:"recommendation"`
	Limit          int      `json:"limit"`
	Offset         int      `json:"offset"`
}

type SearchResult struct {
	Items  []loan.Loan `json:"items"`
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

type PortfolioMetrics struct {
	TotalLoans       int64            `json:"total_loans"`
	ByStatus         map[string]int64 `json:"by_status"`
	TotalRequested   float64          `json:"total_requested"`
	TotalApproved    float64          `json:"total_approved"`
	TotalOutstanding float64          `json:"total_outstanding"`
	TotalCollateral  float64          `json:"total_collateral"`
	AverageLTV       float64          `json:"average_ltv"`
	AverageRiskScore float64          `json:"average_risk_score"`
	DefaultRate      float64          `json:"default_rate"`
	TokenizedLoans   int64            `json:"tokenized_loans"`
}
