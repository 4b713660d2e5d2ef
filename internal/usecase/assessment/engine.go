package assessment

import (
	"context"
	"fmt"
	"math"

	"credit-acceleration/internal/domain/loan"
	"credit-acceleration/pkg/money"
)

// Scorer produces a risk assessment for a snapshot of a loan. Implementations
// must not mutate l.
type Scorer interface {
	Assess(ctx context.Context, l *loan.Loan) (Result, error)
}

type Weights struct {
	Credit     float64
	DTI        float64
	Income     float64
	Employment float64
}

func (w Weights) total() float64 { return w.Credit + w.DTI + w.Income + w.Employment }

type EngineConfig struct {
	Weights      Weights
	ApproveScore int
	ReviewScore  int
	// Haircut is the share of the requested amount that is recommended.
	Haircut        float64
	BaseRate       float64
	MaxRiskPremium float64
	ModelVersion   string
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Weights:        Weights{Credit: 0.40, DTI: 0.25, Income: 0.20, Employment: 0.15},
		ApproveScore:   700,
		ReviewScore:    650,
		Haircut:        0.90,
		BaseRate:       0.045,
		MaxRiskPremium: 0.06,
		ModelVersion:   "weighted-v1",
	}
}

type Result struct {
	CreditworthinessScore float64
	DefaultRiskScore      float64
	ProfitabilityScore    float64
	// RiskScore is the default-risk score; higher is riskier.
	RiskScore         float64
	Recommendation    loan.Recommendation
	Confidence        float64
	RecommendedAmount float64
	RecommendedRate   float64
	RiskFactors       []loan.RiskFactor
	ModelVersion      string
}

// Engine is the deterministic weighted scorecard.
type Engine struct{ cfg EngineConfig }

func NewEngine(cfg EngineConfig) *Engine {
	def := DefaultEngineConfig()
	if cfg.Weights.total() <= 0 {
		cfg.Weights = def.Weights
	}
	if cfg.ApproveScore == 0 {
		cfg.ApproveScore = def.ApproveScore
	}
	if cfg.ReviewScore == 0 {
		cfg.ReviewScore = def.ReviewScore
	}
	if cfg.Haircut <= 0 || cfg.Haircut > 1 {
		cfg.Haircut = def.Haircut
	}
	if cfg.ModelVersion == "" {
		cfg.ModelVersion = def.ModelVersion
	}
	return &Engine{cfg: cfg}
}

var employmentStability = map[loan.EmploymentStatus]float64{
	loan.EmploymentEmployed:     1.0,
	loan.EmploymentSelfEmployed: 0.8,
	loan.EmploymentContract:     0.7,
	loan.EmploymentRetired:      0.6,
	loan.EmploymentUnemployed:   0.1,
}

func clamp01(v float64) float64 { return math.Max(0, math.Min(1, v)) }

// Normalised inputs, each in [0,1] where 1 is the least risky.
func creditFactor(score int) float64 { return clamp01(float64(score-300) / 550) }
func dtiFactor(dti float64) float64   { return clamp01(1 - dti/0.6) }
func incomeFactor(income float64) float64 {
	return clamp01(income / 120000)
}

func employmentFactor(e loan.EmploymentStatus) float64 {
	if v, ok := employmentStability[e]; ok {
		return v
	}
	return 0.5
}

func impact(v float64) string {
	switch {
	case v >= 0.6:
		return "positive"
	case v < 0.4:
		return "negative"
	}
	return "neutral"
}

func (e *Engine) Recommend(creditScore int) loan.Recommendation {
	switch {
	case creditScore >= e.cfg.ApproveScore:
		return loan.RecommendApprove
	case creditScore >= e.cfg.ReviewScore:
		return loan.RecommendReview
	}
	return loan.RecommendDeny
}

func (e *Engine) Assess(ctx context.Context, l *loan.Loan) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	w := e.cfg.Weights
	tw := w.total()
	credit := creditFactor(l.CreditScore)
	dti := dtiFactor(l.DebtToIncomeRatio)
	income := incomeFactor(l.AnnualIncome)
	employment := employmentFactor(l.EmploymentStatus)

	weighted := (w.Credit*credit + w.DTI*dti + w.Income*income + w.Employment*employment) / tw
	creditworthiness := money.Round2(100 * weighted)
	defaultRisk := money.Round2(100 - creditworthiness)
	rateScore := clamp01(l.InterestRate / 0.10)
	profitability := money.Round2(100 * clamp01(0.5*credit+0.3*rateScore+0.2*income))

	rec := e.Recommend(l.CreditScore)

	// Confidence grows with the distance from the nearest threshold and drops
	// when inputs are missing.
	nearest := math.Min(math.Abs(float64(l.CreditScore-e.cfg.ApproveScore)), math.Abs(float64(l.CreditScore-e.cfg.ReviewScore)))
	confidence := 0.5 + 0.5*math.Min(nearest/100, 1)
	if l.AnnualIncome == 0 {
		confidence -= 0.1
	}
	if _, ok := employmentStability[l.EmploymentStatus]; !ok {
		confidence -= 0.1
	}

	factors := []loan.RiskFactor{
		{
			Factor: "credit_score", Weight: money.RoundTo(w.Credit/tw, 4), Score: money.Round2(100 * credit), Impact: impact(credit),
			Description: fmt.Sprintf("Credit score of %d against an approval threshold of %d", l.CreditScore, e.cfg.ApproveScore),
		},
		{
			Factor: "debt_to_income", Weight: money.RoundTo(w.DTI/tw, 4), Score: money.Round2(100 * dti), Impact: impact(dti),
			Description: fmt.Sprintf("Debt-to-income ratio of %.0f%%", l.DebtToIncomeRatio*100),
		},
		{
			Factor: "income", Weight: money.RoundTo(w.Income/tw, 4), Score: money.Round2(100 * income), Impact: impact(income),
			Description: fmt.Sprintf("Annual income of %.2f", l.AnnualIncome),
		},
		{
			Factor: "employment_stability", Weight: money.RoundTo(w.Employment/tw, 4), Score: money.Round2(100 * employment), Impact: impact(employment),
			Description: fmt.Sprintf("Employment status %q", employmentLabel(l.EmploymentStatus)),
		},
	}

	return Result{
		CreditworthinessScore: creditworthiness,
		DefaultRiskScore:      defaultRisk,
		ProfitabilityScore:    profitability,
		RiskScore:             defaultRisk,
		Recommendation:        rec,
		Confidence:            money.RoundTo(clamp01(confidence), 4),
		RecommendedAmount:     money.Mul(l.RequestedAmount, e.cfg.Haircut),
		RecommendedRate:       money.RoundTo(e.cfg.BaseRate+e.cfg.MaxRiskPremium*defaultRisk/100, 6),
		RiskFactors:           factors,
		ModelVersion:          e.cfg.ModelVersion,
	}, nil
}

func employmentLabel(e loan.EmploymentStatus) string {
	if e == "" {
		return "unknown"
	}
	return string(e)
}
