package assessment

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"credit-acceleration/internal/domain/loan"
)

func sampleLoan() *loan.Loan {
	return &loan.Loan{
		RequestedAmount:   250000,
		InterestRate:      0.045,
		TermMonths:        360,
		CreditScore:       720,
		DebtToIncomeRatio: 0.3,
		AnnualIncome:      120000,
		EmploymentStatus:  loan.EmploymentEmployed,
	}
}

func TestEngine_Assess(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())
	res, err := e.Assess(context.Background(), sampleLoan())
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}

	if res.Recommendation != loan.RecommendApprove {
		t.Fatalf("recommendation %s, want approve", res.Recommendation)
	}
	if res.CreditworthinessScore != 78.05 || res.DefaultRiskScore != 21.95 || res.RiskScore != res.DefaultRiskScore {
		t.Fatalf("scores cw=%v dr=%v risk=%v", res.CreditworthinessScore, res.DefaultRiskScore, res.RiskScore)
	}
	if res.RecommendedAmount != 225000 {
		t.Fatalf("recommended amount %v, want 225000", res.RecommendedAmount)
	}
	if res.RecommendedRate != 0.05817 {
		t.Fatalf("recommended rate %v, want 0.05817", res.RecommendedRate)
	}
	if res.Confidence != 0.6 {
		t.Fatalf("confidence %v, want 0.6", res.Confidence)
	}

	var weights float64
	for _, f := range res.RiskFactors {
		weights += f.Weight
		if f.Description == "" || f.Impact == "" {
			t.Fatalf("factor %+v lacks description or impact", f)
		}
	}
	if len(res.RiskFactors) != 4 || math.Abs(weights-1) > 1e-9 {
		t.Fatalf("factors %d, weight sum %v", len(res.RiskFactors), weights)
	}

	again, _ := e.Assess(context.Background(), sampleLoan())
	if !reflect.DeepEqual(res, again) {
		t.Fatal("assessment must be deterministic")
	}
}

func TestEngine_RecommendationThresholds(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())
	cases := []struct {
		score int
		want  loan.Recommendation
	}{
		{850, loan.RecommendApprove},
		{720, loan.RecommendApprove},
		{700, loan.RecommendApprove},
		{699, loan.RecommendReview},
		{650, loan.RecommendReview},
		{649, loan.RecommendDeny},
		{300, loan.RecommendDeny},
	}
	for _, tc := range cases {
		l := sampleLoan()
		l.CreditScore = tc.score
		res, err := e.Assess(context.Background(), l)
		if err != nil {
			t.Fatalf("score %d: %v", tc.score, err)
		}
		if res.Recommendation != tc.want {
			t.Fatalf("score %d: got %s, want %s", tc.score, res.Recommendation, tc.want)
		}
		if res.Confidence < 0 || res.Confidence > 1 {
			t.Fatalf("score %d: confidence %v out of range", tc.score, res.Confidence)
		}
	}
}

func TestEngine_WeightsAreConfiguration(t *testing.T) {
	creditOnly := DefaultEngineConfig()
	creditOnly.Weights = Weights{Credit: 1}
	res, _ := NewEngine(creditOnly).Assess(context.Background(), sampleLoan())
	if res.CreditworthinessScore != 76.36 {
		t.Fatalf("credit-only creditworthiness %v, want 76.36", res.CreditworthinessScore)
	}

	haircut := DefaultEngineConfig()
	haircut.Haircut = 0.5
	res, _ = NewEngine(haircut).Assess(context.Background(), sampleLoan())
	if res.RecommendedAmount != 125000 {
		t.Fatalf("recommended amount %v, want 125000", res.RecommendedAmount)
	}

	zero := NewEngine(EngineConfig{})
	if zero.cfg.Weights != DefaultEngineConfig().Weights || zero.cfg.Haircut != 0.90 {
		t.Fatalf("zero config not defaulted: %+v", zero.cfg)
	}
}

func TestEngine_MissingInputsLowerConfidence(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())
	l := sampleLoan()
	l.AnnualIncome = 0
	l.EmploymentStatus = ""
	res, _ := e.Assess(context.Background(), l)
	if res.Confidence != 0.4 {
		t.Fatalf("confidence %v, want 0.4", res.Confidence)
	}
}

func TestEngine_HonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewEngine(DefaultEngineConfig()).Assess(ctx, sampleLoan()); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}
