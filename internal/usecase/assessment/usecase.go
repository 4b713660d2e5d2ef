package assessment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"credit-acceleration/internal/domain/apperr"
	domain "credit-acceleration/internal/domain/assessment"
	"credit-acceleration/internal/domain/loan"
	"credit-acceleration/internal/domain/notification"
	"credit-acceleration/internal/infrastructure/metrics"
	"credit-acceleration/internal/usecase/aggregate"
	"credit-acceleration/pkg/id"

	"go.uber.org/zap"
)

var errDiscarded = fmt.Errorf("%w: assessment result discarded", apperr.ErrInvalidState)

type run struct {
	cancel    context.CancelFunc
	cancelled atomic.Bool
}

// Usecase runs at most one assessment per loan. Scoring happens outside the
// loan lock; only the start and the write-back go through the runner.
type Usecase struct {
	runner  *aggregate.Runner
	locker  aggregate.Locker
	scorer  Scorer
	log     *zap.Logger
	metrics metrics.Collector
	cfg     Config

	mu       sync.Mutex
	inflight map[string]*run
	closed   bool
	wg       sync.WaitGroup
}

func NewUsecase(r *aggregate.Runner, locker aggregate.Locker, s Scorer, log *zap.Logger, m metrics.Collector, cfg Config) *Usecase {
	if log == nil {
		log = zap.NewNop()
	}
	u := &Usecase{
		runner:   r,
		locker:   locker,
		scorer:   s,
		log:      log.Named("assessment"),
		metrics:  metrics.OrNoOp(m),
		cfg:      cfg,
		inflight: make(map[string]*run),
	}
	r.Observe(u.onTransition)
	return u
}

func (u *Usecase) onTransition(loanID string, _, to loan.Status) {
	if to.Terminal() && u.Cancel(loanID) {
		u.log.Info("in-flight assessment cancelled by status change", zap.String("loan_id", loanID), zap.String("status", string(to)))
	}
}

// Cancel cancels the in-flight assessment of loanID, if any. A cancelled
// result is discarded when it arrives.
func (u *Usecase) Cancel(loanID string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	r, ok := u.inflight[loanID]
	if !ok {
		return false
	}
	r.cancelled.Store(true)
	r.cancel()
	return true
}

// InFlight reports whether an assessment is currently running for loanID.
func (u *Usecase) InFlight(loanID string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.inflight[loanID]
	return ok
}

func (u *Usecase) track(loanID string, cancel context.CancelFunc) *run {
	r := &run{cancel: cancel}
	u.mu.Lock()
	u.inflight[loanID] = r
	u.mu.Unlock()
	return r
}

func (u *Usecase) untrack(loanID string, r *run) {
	u.mu.Lock()
	if u.inflight[loanID] == r {
		delete(u.inflight, loanID)
	}
	u.mu.Unlock()
	r.cancel()
}

func inProgress(loanID string) error {
	return fmt.Errorf("%w: loan %s already has an assessment running", apperr.ErrAssessmentInProgress, loanID)
}

// AssessLoanApplication scores the loan and stores the result. A second call
// for the same loan while one is running fails with ErrAssessmentInProgress.
func (u *Usecase) AssessLoanApplication(ctx context.Context, loanID string) (*domain.Assessment, error) {
	unlock, ok, err := u.locker.TryLock(ctx, "assessment:"+loanID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, inProgress(loanID)
	}
	defer unlock()

	runCtx, cancel := context.WithCancel(ctx)
	r := u.track(loanID, cancel)
	defer u.untrack(loanID, r)

	var snapshot loan.Loan
	err = u.runner.Mutate(ctx, loanID, "assessment_start", func(tx *aggregate.Tx) error {
		switch tx.Loan.Status {
		case loan.StatusPending:
			if err := tx.Transition(loan.StatusProcessing, "risk assessment started"); err != nil {
				return err
			}
		case loan.StatusProcessing:
		default:
			return apperr.InvalidState("loan %s is %s; assessment requires pending or processing", loanID, tx.Loan.Status)
		}
		snapshot = *tx.Loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := u.scorer.Assess(runCtx, &snapshot)
	elapsed := time.Since(start)
	if r.cancelled.Load() {
		u.discard(loanID, "cancelled", elapsed)
		return nil, errDiscarded
	}
	if err != nil {
		u.metrics.RecordAssessment("", "error", elapsed)
		u.log.Warn("assessment failed", zap.String("loan_id", loanID), zap.Error(err))
		return nil, err
	}

	var out *domain.Assessment
	err = u.runner.Mutate(ctx, loanID, "assessment_apply", func(tx *aggregate.Tx) error {
		if r.cancelled.Load() || tx.Loan.Status != loan.StatusProcessing {
			return errDiscarded
		}
		out = u.apply(tx, res)
		if err := tx.Repos.Assessments.Create(ctx, out); err != nil {
			return err
		}
		if u.cfg.AutoDecide {
			switch res.Recommendation {
			case loan.RecommendApprove:
				return tx.Transition(loan.StatusApproved, "approved automatically by risk assessment "+out.AssessmentID)
			case loan.RecommendDeny:
				return tx.Transition(loan.StatusDenied, "denied automatically by risk assessment "+out.AssessmentID)
			}
		}
		return nil
	})
	if errors.Is(err, errDiscarded) {
		u.discard(loanID, "stale", elapsed)
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	u.metrics.RecordAssessment(string(res.Recommendation), "applied", elapsed)
	u.log.Info("assessment applied",
		zap.String("loan_id", loanID),
		zap.String("assessment_id", out.AssessmentID),
		zap.String("recommendation", string(res.Recommendation)),
		zap.Float64("risk_score", res.RiskScore),
	)
	return out, nil
}

func (u *Usecase) discard(loanID, reason string, elapsed time.Duration) {
	u.metrics.RecordAssessment("", "discarded", elapsed)
	u.log.Info("assessment result discarded", zap.String("loan_id", loanID), zap.String("reason", reason))
}

// apply copies res onto the locked loan and returns the record to store.
func (u *Usecase) apply(tx *aggregate.Tx, res Result) *domain.Assessment {
	l := tx.Loan
	a := &domain.Assessment{
		AssessmentID:          id.NewID32(),
		LoanID:                l.ID,
		CreditworthinessScore: res.CreditworthinessScore,
		DefaultRiskScore:      res.DefaultRiskScore,
		ProfitabilityScore:    res.ProfitabilityScore,
		RiskScore:             res.RiskScore,
		Recommendation:        res.Recommendation,
		Confidence:            res.Confidence,
		RecommendedAmount:     res.RecommendedAmount,
		RecommendedRate:       res.RecommendedRate,
		RiskFactors:           res.RiskFactors,
		ModelVersion:          res.ModelVersion,
	}

	risk, conf, amount := res.RiskScore, res.Confidence, res.RecommendedAmount
	l.AIRiskScore = &risk
	l.AIRecommendation = res.Recommendation
	l.AIConfidence = &conf
	l.RiskFactors = res.RiskFactors
	l.ApprovedAmount = &amount
	l.InterestRate = res.RecommendedRate
	l.RecomputeMonthlyPayment()
	l.RecomputeLTV()
	l.AddNote(tx.Now, l.Status, l.Status, fmt.Sprintf("risk assessment %s: %s (risk %.2f)", a.AssessmentID, res.Recommendation, res.RiskScore))

	d := notification.Draft{
		Type:     "assessment_completed",
		Title:    "Risk assessment completed",
		Message:  fmt.Sprintf("Loan %s assessed: %s with confidence %.2f.", l.LoanID, res.Recommendation, res.Confidence),
		Priority: notification.PriorityMedium,
	}
	if res.Recommendation == loan.RecommendReview {
		d.Priority = notification.PriorityHigh
		d.ActionRequired = true
	}
	tx.Notify(d)
	return a
}

// Submit starts an assessment in the background. The channel receives exactly
// one Outcome and is then closed.
func (u *Usecase) Submit(ctx context.Context, loanID string) (<-chan Outcome, error) {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return nil, apperr.Unavailable("assessment service is shutting down")
	}
	if _, busy := u.inflight[loanID]; busy {
		u.mu.Unlock()
		return nil, inProgress(loanID)
	}
	u.wg.Add(1)
	u.mu.Unlock()

	out := make(chan Outcome, 1)
	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer u.wg.Done()
		defer close(out)
		a, err := u.AssessLoanApplication(runCtx, loanID)
		out <- Outcome{LoanID: loanID, Assessment: a, Err: err}
	}()
	return out, nil
}

// Close rejects new submissions and waits for running ones to finish.
func (u *Usecase) Close() {
	u.mu.Lock()
	u.closed = true
	u.mu.Unlock()
	u.wg.Wait()
}
