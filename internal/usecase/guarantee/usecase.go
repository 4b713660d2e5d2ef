package guarantee

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"credit-acceleration/internal/domain/apperr"
	domain "credit-acceleration/internal/domain/guarantee"
	"credit-acceleration/internal/domain/notification"
	"credit-acceleration/internal/infrastructure/metrics"
	"credit-acceleration/internal/usecase/aggregate"
	"credit-acceleration/pkg/id"
	"credit-acceleration/pkg/money"

	"go.uber.org/zap"
)

const (
	defaultTermMonths = 120
	maxTermMonths     = 600
)

type Usecase struct {
	runner  *aggregate.Runner
	log     *zap.Logger
	metrics metrics.Collector
}

func NewUsecase(r *aggregate.Runner, log *zap.Logger, m metrics.Collector) *Usecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{runner: r, log: log.Named("guarantee"), metrics: metrics.OrNoOp(m)}
}

func (u *Usecase) CreateGuarantee(ctx context.Context, loanID string, in CreateInput) (*domain.Guarantee, error) {
	switch {
	case in.CoveragePercentage <= 0 || in.CoveragePercentage > 1:
		return nil, apperr.Validation("coverage percentage must be in (0, 1]")
	case in.MaxClaimAmount <= 0:
		return nil, apperr.Validation("max claim amount must be > 0")
	case in.Deductible < 0:
		return nil, apperr.Validation("deductible must be >= 0")
	case in.Premium < 0:
		return nil, apperr.Validation("premium must be >= 0")
	case in.TermMonths < 0 || in.TermMonths > maxTermMonths:
		return nil, apperr.Validation("term months must be in [1, %d]", maxTermMonths)
	}
	events := domain.DefaultCoveredEvents
	if len(in.CoveredEvents) > 0 {
		events = make([]domain.EventType, 0, len(in.CoveredEvents))
		for _, e := range in.CoveredEvents {
			ev := domain.EventType(strings.TrimSpace(e))
			if !ev.Valid() {
				return nil, apperr.Validation("covered event %q is not supported", e)
			}
			events = append(events, ev)
		}
	}
	term := in.TermMonths
	if term == 0 {
		term = defaultTermMonths
	}

	var out *domain.Guarantee
	err := u.runner.Mutate(ctx, loanID, "create_guarantee", func(tx *aggregate.Tx) error {
		cur, err := tx.Repos.Guarantees.GetCurrentByLoanID(ctx, tx.Loan.ID)
		switch {
		case err == nil && cur.Status == domain.StatusActive:
			return apperr.InvalidState("loan %s already has active guarantee %s", loanID, cur.GuaranteeID)
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return err
		}
		g := &domain.Guarantee{
			GuaranteeID:        id.NewID32(),
			LoanID:             tx.Loan.ID,
			Provider:           strings.TrimSpace(in.Provider),
			CoveragePercentage: money.RoundTo(in.CoveragePercentage, 4),
			MaxClaimAmount:     money.Round2(in.MaxClaimAmount),
			Deductible:         money.Round2(in.Deductible),
			Premium:            money.Round2(in.Premium),
			CoveredEvents:      events,
			Status:             domain.StatusActive,
			StartDate:          tx.Now,
			EndDate:            tx.Now.AddDate(0, term, 0),
		}
		if err := tx.Repos.Guarantees.Create(ctx, g); err != nil {
			return err
		}
		tx.Notify(notification.Draft{
			Type:     "guarantee_created",
			Title:    "Guarantee attached",
			Message:  fmt.Sprintf("Guarantee %s covers %.0f%% up to %.2f.", g.GuaranteeID, g.CoveragePercentage*100, g.MaxClaimAmount),
			Priority: notification.PriorityMedium,
		})
		out = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitGuaranteeClaim opens a claim against an active guarantee. A guarantee
// found past its end date is marked expired and the claim is refused.
func (u *Usecase) SubmitGuaranteeClaim(ctx context.Context, guaranteeID string, in ClaimInput) (*domain.Claim, error) {
	ev := domain.EventType(strings.TrimSpace(in.EventType))
	switch {
	case !ev.Valid():
		return nil, apperr.Validation("event type %q is not supported", in.EventType)
	case in.ClaimAmount <= 0:
		return nil, apperr.Validation("claim amount must be > 0")
	}
	g, err := u.runner.Repos().Guarantees.GetByGuaranteeID(ctx, guaranteeID)
	if err != nil {
		return nil, err
	}
	loanID, err := u.runner.LoanIDFor(ctx, g.LoanID)
	if err != nil {
		return nil, err
	}

	var out *domain.Claim
	var expired error
	err = u.runner.Mutate(ctx, loanID, "submit_claim", func(tx *aggregate.Tx) error {
		g, err := tx.Repos.Guarantees.GetByGuaranteeID(ctx, guaranteeID)
		if err != nil {
			return err
		}
		switch g.Status {
		case domain.StatusActive:
		case domain.StatusExpired:
			return fmt.Errorf("%w: guarantee %s ended %s", apperr.ErrGuaranteeExpired, guaranteeID, g.EndDate.Format("2006-01-02"))
		default:
			return apperr.InvalidState("guarantee %s is %s", guaranteeID, g.Status)
		}
		if !tx.Now.Before(g.EndDate) {
			g.Status = domain.StatusExpired
			expired = fmt.Errorf("%w: guarantee %s ended %s", apperr.ErrGuaranteeExpired, guaranteeID, g.EndDate.Format("2006-01-02"))
			tx.Notify(notification.Draft{
				Type:     "guarantee_expired",
				Title:    "Guarantee expired",
				Message:  fmt.Sprintf("Guarantee %s expired; claims are no longer accepted.", guaranteeID),
				Priority: notification.PriorityMedium,
			})
			return tx.Repos.Guarantees.Save(ctx, g)
		}
		if !g.Covers(ev) {
			return apperr.Validation("guarantee %s does not cover %s", guaranteeID, ev)
		}
		c := &domain.Claim{
			ClaimID:     id.NewID32(),
			GuaranteeID: g.ID,
			LoanID:      tx.Loan.ID,
			EventType:   ev,
			ClaimAmount: money.Round2(in.ClaimAmount),
			Description: strings.TrimSpace(in.Description),
			Status:      domain.ClaimSubmitted,
			SubmittedAt: tx.Now,
		}
		if err := tx.Repos.Guarantees.CreateClaim(ctx, c); err != nil {
			return err
		}
		tx.Notify(notification.Draft{
			Type:           "claim_submitted",
			Title:          "Guarantee claim submitted",
			Message:        fmt.Sprintf("Claim %s for %.2f (%s) awaits investigation.", c.ClaimID, c.ClaimAmount, ev),
			Priority:       notification.PriorityHigh,
			ActionRequired: true,
		})
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired != nil {
		return nil, expired
	}
	return out, nil
}

func (u *Usecase) StartInvestigation(ctx context.Context, claimID string) (*domain.Claim, error) {
	var out *domain.Claim
	err := u.withClaim(ctx, claimID, "investigate_claim", func(tx *aggregate.Tx, c *domain.Claim) error {
		if err := moveClaim(c, domain.ClaimInvestigating); err != nil {
			return err
		}
		out = c
		return tx.Repos.Guarantees.SaveClaim(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *Usecase) DecideClaim(ctx context.Context, claimID string, in DecisionInput) (*domain.Claim, error) {
	to := domain.ClaimDenied
	if in.Approve {
		to = domain.ClaimApproved
	}
	var out *domain.Claim
	err := u.withClaim(ctx, claimID, "decide_claim", func(tx *aggregate.Tx, c *domain.Claim) error {
		if err := moveClaim(c, to); err != nil {
			return err
		}
		now := tx.Now
		c.DecidedAt = &now
		c.DecisionReason = strings.TrimSpace(in.Reason)
		if err := tx.Repos.Guarantees.SaveClaim(ctx, c); err != nil {
			return err
		}
		tx.Notify(notification.Draft{
			Type:           "claim_" + string(to),
			Title:          "Guarantee claim " + string(to),
			Message:        fmt.Sprintf("Claim %s was %s.", c.ClaimID, to),
			Priority:       notification.PriorityHigh,
			ActionRequired: in.Approve,
		})
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Payout is min(maxClaim, claim - deductible) * coverage, floored at zero.
func Payout(g *domain.Guarantee, claimAmount float64) float64 {
	base := money.Min(g.MaxClaimAmount, money.Sub(claimAmount, g.Deductible))
	if base <= 0 {
		return 0
	}
	return money.Mul(base, g.CoveragePercentage)
}

func (u *Usecase) ProcessGuaranteePayout(ctx context.Context, claimID string) (*PayoutResult, error) {
	var out *PayoutResult
	err := u.withClaim(ctx, claimID, "guarantee_payout", func(tx *aggregate.Tx, c *domain.Claim) error {
		switch c.Status {
		case domain.ClaimApproved:
		case domain.ClaimPaid:
			return apperr.InvalidState("claim %s is already paid", claimID)
		default:
			return fmt.Errorf("%w: claim %s is %s", apperr.ErrClaimNotApproved, claimID, c.Status)
		}
		g, err := tx.Repos.Guarantees.GetByID(ctx, c.GuaranteeID)
		if err != nil {
			return err
		}
		switch g.Status {
		case domain.StatusCancelled:
			return apperr.InvalidState("guarantee %s is cancelled", g.GuaranteeID)
		case domain.StatusExhausted:
			return apperr.LimitExceeded("guarantee %s has paid its maximum of %.2f", g.GuaranteeID, g.MaxClaimAmount)
		}
		amount := Payout(g, c.ClaimAmount)
		total := money.Add(g.TotalClaimsPaid, amount)
		if total > g.MaxClaimAmount {
			return apperr.LimitExceeded("payout %.2f would bring claims paid to %.2f, above the %.2f cap",
				amount, total, g.MaxClaimAmount)
		}

		now := tx.Now
		c.Status = domain.ClaimPaid
		c.SettlementAmount = &amount
		c.PaidAt = &now
		if err := tx.Repos.Guarantees.SaveClaim(ctx, c); err != nil {
			return err
		}
		p := &domain.Payout{
			PayoutID:    id.NewID32(),
			ClaimID:     c.ID,
			GuaranteeID: g.ID,
			Amount:      amount,
			PaidAt:      now,
		}
		if err := tx.Repos.Guarantees.CreatePayout(ctx, p); err != nil {
			return err
		}
		g.TotalClaimsPaid = total
		if g.Remaining() < money.Cent {
			g.Status = domain.StatusExhausted
		}
		if err := tx.Repos.Guarantees.Save(ctx, g); err != nil {
			return err
		}
		tx.Notify(notification.Draft{
			Type:     "guarantee_payout",
			Title:    "Guarantee payout",
			Message:  fmt.Sprintf("Paid %.2f on claim %s; %.2f of %.2f used.", amount, claimID, total, g.MaxClaimAmount),
			Priority: notification.PriorityHigh,
		})
		out = &PayoutResult{Payout: p, Claim: c, Guarantee: g}
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.metrics.RecordPayout(out.Payout.Amount)
	u.log.Info("guarantee payout",
		zap.String("claim_id", claimID),
		zap.Float64("amount", out.Payout.Amount),
		zap.String("guarantee_status", string(out.Guarantee.Status)),
	)
	return out, nil
}

func (u *Usecase) GetGuarantee(ctx context.Context, guaranteeID string) (*GuaranteeView, error) {
	r := u.runner.Repos()
	g, err := r.Guarantees.GetByGuaranteeID(ctx, guaranteeID)
	if err != nil {
		return nil, err
	}
	claims, err := r.Guarantees.ListClaims(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	return &GuaranteeView{Guarantee: g, Claims: claims}, nil
}

// withClaim runs fn on the claim, reloaded under its loan's lock.
func (u *Usecase) withClaim(ctx context.Context, claimID, op string, fn func(tx *aggregate.Tx, c *domain.Claim) error) error {
	if strings.TrimSpace(claimID) == "" {
		return apperr.Validation("claim id is required")
	}
	c, err := u.runner.Repos().Guarantees.GetClaimByClaimID(ctx, claimID)
	if err != nil {
		return err
	}
	loanID, err := u.runner.LoanIDFor(ctx, c.LoanID)
	if err != nil {
		return err
	}
	return u.runner.Mutate(ctx, loanID, op, func(tx *aggregate.Tx) error {
		c, err := tx.Repos.Guarantees.GetClaimByClaimID(ctx, claimID)
		if err != nil {
			return err
		}
		return fn(tx, c)
	})
}

func moveClaim(c *domain.Claim, to domain.ClaimStatus) error {
	if !domain.CanTransitionClaim(c.Status, to) {
		return apperr.InvalidTransition("claim %s cannot move from %s to %s", c.ClaimID, c.Status, to)
	}
	c.Status = to
	return nil
}
