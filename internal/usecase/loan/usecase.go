package loan

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"credit-acceleration/internal/domain/apperr"
	"credit-acceleration/internal/domain/assessment"
	escrowDomain "credit-acceleration/internal/domain/escrow"
	"credit-acceleration/internal/domain/guarantee"
	"credit-acceleration/internal/domain/loan"
	"credit-acceleration/internal/domain/notification"
	"credit-acceleration/internal/domain/token"
	"credit-acceleration/internal/usecase/aggregate"
	"credit-acceleration/internal/usecase/escrow"
	"credit-acceleration/pkg/id"
	"credit-acceleration/pkg/money"

	"go.uber.org/zap"
)

const (
	DefaultSearchLimit = 50
	MaxSearchLimit     = 200
)

type Usecase struct {
	runner *aggregate.Runner
	log    *zap.Logger
}

func NewUsecase(r *aggregate.Runner, log *zap.Logger) *Usecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{runner: r, log: log.Named("loan")}
}

func validateApplication(in CreateLoanInput) error {
	switch {
	case strings.TrimSpace(in.ApplicantID) == "":
		return apperr.Validation("applicant_id is required")
	case len(in.ApplicantID) > 64:
		return apperr.Validation("applicant_id must be at most 64 characters")
	case in.RequestedAmount <= 0:
		return apperr.Validation("requested_amount must be > 0")
	case in.TermMonths < 1 || in.TermMonths > 600:
		return apperr.Validation("term_months must be between 1 and 600")
	case in.InterestRate < 0 || in.InterestRate > 1:
		return apperr.Validation("interest_rate must be between 0 and 1")
	case in.CreditScore < 300 || in.CreditScore > 850:
		return apperr.Validation("credit_score must be between 300 and 850")
	case in.DebtToIncomeRatio < 0 || in.DebtToIncomeRatio > 5:
		return apperr.Validation("debt_to_income_ratio must be between 0 and 5")
	case in.AnnualIncome < 0:
		return apperr.Validation("annual_income must be >= 0")
	}
	if in.EmploymentStatus != "" && !loan.EmploymentStatus(in.EmploymentStatus).Valid() {
		return apperr.Validation("employment_status %q is not recognised", in.EmploymentStatus)
	}
	return nil
}

func (u *Usecase) CreateLoanApplication(ctx context.Context, in CreateLoanInput) (*loan.Loan, error) {
	if err := validateApplication(in); err != nil {
		return nil, err
	}
	now := u.runner.Clock().Now()
	l := &loan.Loan{
		LoanID:            id.NewID32(),
		ApplicantID:       strings.TrimSpace(in.ApplicantID),
		Purpose:           in.Purpose,
		Status:            loan.StatusPending,
		RequestedAmount:   money.Round2(in.RequestedAmount),
		InterestRate:      in.InterestRate,
		TermMonths:        in.TermMonths,
		CreditScore:       in.CreditScore,
		DebtToIncomeRatio: in.DebtToIncomeRatio,
		AnnualIncome:      money.Round2(in.AnnualIncome),
		EmploymentStatus:  loan.EmploymentStatus(in.EmploymentStatus),
		PropertyAddress:   strings.TrimSpace(in.PropertyAddress),
		StatusUpdatedAt:   now,
	}
	l.RecomputeMonthlyPayment()
	l.AddNote(now, "", loan.StatusPending, "application received")

	err := u.runner.Create(ctx, l, func(tx *aggregate.Tx) error {
		tx.Notify(notification.Draft{
			Type:     "application_received",
			Title:    "Application received",
			Message:  fmt.Sprintf("Loan application %s for %.2f was received.", l.LoanID, l.RequestedAmount),
			Priority: notification.PriorityLow,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.Info("loan application created", zap.String("loan_id", l.LoanID), zap.Float64("requested_amount", l.RequestedAmount))
	return l, nil
}

func (u *Usecase) UpdateLoanStatus(ctx context.Context, loanID string, to loan.Status, note string) (*loan.Loan, error) {
	var out *loan.Loan
	err := u.runner.Mutate(ctx, loanID, "update_status", func(tx *aggregate.Tx) error {
		if err := tx.Transition(to, note); err != nil {
			return err
		}
		if to == loan.StatusFunded {
			now := tx.Now
			tx.Loan.FundedAt = &now
			tx.Loan.CurrentBalance = money.Round2(tx.Loan.PrincipalBase())
			tx.Loan.RecomputeMonthlyPayment()
		}
		out = tx.Loan
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func validatePayment(in PaymentInput) (loan.PaymentStatus, error) {
	status := loan.PaymentStatus(in.Status)
	if status == "" {
		status = loan.PaymentPaid
	}
	if !status.Valid() {
		return "", apperr.Validation("payment status %q is not one of paid, late, missed", in.Status)
	}
	if in.DueDate.IsZero() {
		return "", apperr.Validation("due_date is required")
	}
	if in.ScheduledAmount < 0 || in.PrincipalAmount < 0 || in.InterestAmount < 0 || in.EscrowAmount < 0 {
		return "", apperr.Validation("payment amounts must be >= 0")
	}
	return status, nil
}

// ProcessLoanPayment records one scheduled payment against an active loan.
// Missed payments are recorded for history and carry no amounts.
func (u *Usecase) ProcessLoanPayment(ctx context.Context, loanID string, in PaymentInput) (*PaymentResult, error) {
	status, err := validatePayment(in)
	if err != nil {
		return nil, err
	}
	var out *PaymentResult
	err = u.runner.Mutate(ctx, loanID, "payment", func(tx *aggregate.Tx) error {
		l := tx.Loan
		if l.Status != loan.StatusActive {
			return apperr.InvalidState("loan %s is %s; payments require active", l.LoanID, l.Status)
		}
		p := &loan.Payment{
			PaymentID:       id.NewID32(),
			LoanID:          l.ID,
			DueDate:         in.DueDate.UTC(),
			ScheduledAmount: money.Round2(in.ScheduledAmount),
			Status:          status,
		}
		if status == loan.PaymentMissed {
			if in.PrincipalAmount != 0 || in.InterestAmount != 0 || in.EscrowAmount != 0 {
				return apperr.InvalidAmount("a missed payment carries no principal, interest or escrow")
			}
		} else {
			if !money.Within(money.Add(in.PrincipalAmount, in.InterestAmount), in.ScheduledAmount, money.Cent) {
				return apperr.InvalidAmount("principal %.2f + interest %.2f does not match scheduled %.2f",
					in.PrincipalAmount, in.InterestAmount, in.ScheduledAmount)
			}
			if money.Round2(in.PrincipalAmount) > l.CurrentBalance {
				return apperr.InvalidAmount("principal %.2f exceeds current balance %.2f", in.PrincipalAmount, l.CurrentBalance)
			}
			paidAt := tx.Now
			if in.PaidAt != nil {
				paidAt = in.PaidAt.UTC()
			}
			p.PaidAt = &paidAt
			p.PrincipalAmount = money.Round2(in.PrincipalAmount)
			p.InterestAmount = money.Round2(in.InterestAmount)
			p.EscrowAmount = money.Round2(in.EscrowAmount)
			l.CurrentBalance = money.Sub(l.CurrentBalance, p.PrincipalAmount)
		}
		p.BalanceAfter = l.CurrentBalance
		if err := tx.Repos.Loans.CreatePayment(ctx, p); err != nil {
			return err
		}

		if p.EscrowAmount > 0 {
			if err := depositEscrow(ctx, tx, p); err != nil {
				return err
			}
		}

		switch status {
		case loan.PaymentLate, loan.PaymentMissed:
			tx.Notify(notification.Draft{
				Type:           "payment_" + string(status),
				Title:          "Payment " + string(status),
				Message:        fmt.Sprintf("Payment due %s on loan %s was %s.", p.DueDate.Format("2006-01-02"), l.LoanID, status),
				Priority:       notification.PriorityHigh,
				ActionRequired: true,
			})
		default:
			tx.Notify(notification.Draft{
				Type:     "payment_received",
				Title:    "Payment received",
				Message:  fmt.Sprintf("Payment of %.2f received on loan %s; balance %.2f.", p.ScheduledAmount, l.LoanID, l.CurrentBalance),
				Priority: notification.PriorityLow,
			})
		}

		if status != loan.PaymentMissed && l.CurrentBalance <= 0 {
			l.CurrentBalance = 0
			if err := tx.Transition(loan.StatusPaidOff, "balance repaid in full"); err != nil {
				return err
			}
		}
		out = &PaymentResult{Payment: p, CurrentBalance: l.CurrentBalance, LoanStatus: l.Status}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func depositEscrow(ctx context.Context, tx *aggregate.Tx, p *loan.Payment) error {
	acct, err := tx.Repos.Escrow.GetByLoanID(ctx, tx.Loan.ID)
	if errors.Is(err, escrowDomain.ErrNotFound) {
		return apperr.InvalidState("loan %s has no escrow account for escrow amount %.2f", tx.Loan.LoanID, p.EscrowAmount)
	}
	if err != nil {
		return err
	}
	_, err = escrow.Append(ctx, tx, acct, escrow.Entry{
		Type:        escrowDomain.TxDeposit,
		Amount:      p.EscrowAmount,
		Description: "escrow portion of payment " + p.PaymentID,
		OccurredAt:  *p.PaidAt,
	})
	return err
}

func (u *Usecase) GetLoan(ctx context.Context, loanID string) (*LoanView, error) {
	r := u.runner.Repos()
	l, err := r.Loans.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	v := &LoanView{Loan: l}
	if v.Collateral, err = r.Collateral.ListByLoanID(ctx, l.ID); err != nil {
		return nil, err
	}
	if v.Payments, err = r.Loans.ListPayments(ctx, l.ID); err != nil {
		return nil, err
	}
	if v.Tokens, err = r.Tokens.ListByLoanID(ctx, l.ID); err != nil {
		return nil, err
	}
	if v.Escrow, err = optional(r.Escrow.GetByLoanID(ctx, l.ID)); err != nil {
		return nil, err
	}
	if v.Guarantee, err = optional(r.Guarantees.GetCurrentByLoanID(ctx, l.ID)); err != nil {
		return nil, err
	}
	if v.LatestAssessment, err = optional(r.Assessments.GetLatestByLoanID(ctx, l.ID)); err != nil {
		return nil, err
	}
	return v, nil
}

// optional turns a not-found lookup into a nil result.
func optional[T any](v *T, err error) (*T, error) {
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

func (u *Usecase) SearchLoans(ctx context.Context, in SearchInput) (*SearchResult, error) {
	f := loan.SearchFilter{
		ApplicantID:    strings.TrimSpace(in.ApplicantID),
		MinAmount:      in.MinAmount,
		MaxAmount:      in.MaxAmount,
		MinCreditScore: in.MinCreditScore,
		Limit:          in.Limit,
		Offset:         in.Offset,
	}
	for _, s := range in.Statuses {
		st := loan.Status(strings.TrimSpace(s))
		if !st.Valid() {
			return nil, apperr.Validation("unknown loan status %q", s)
		}
		f.Statuses = append(f.Statuses, st)
	}
	if in.Recommendation != "" {
		rec := loan.Recommendation(in.Recommendation)
		if !rec.Valid() {
			return nil, apperr.Validation("unknown recommendation %q", in.Recommendation)
		}
		f.Recommendation = rec
	}
	if in.MinAmount < 0 || in.MaxAmount < 0 || (in.MaxAmount > 0 && in.MinAmount > in.MaxAmount) {
		return nil, apperr.Validation("amount range is invalid")
	}
	if f.Offset < 0 {
		return nil, apperr.Validation("offset must be >= 0")
	}
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultSearchLimit
	case f.Limit > MaxSearchLimit:
		f.Limit = MaxSearchLimit
	}

	items, total, err := u.runner.Repos().Loans.Search(ctx, f)
	if err != nil {
		return nil, err
	}
	return &SearchResult{Items: items, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

func (u *Usecase) GetPortfolioMetrics(ctx context.Context) (*PortfolioMetrics, error) {
	r := u.runner.Repos()
	rows, err := r.Loans.TotalsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	m := &PortfolioMetrics{ByStatus: make(map[string]int64, len(loan.AllStatuses))}
	for _, s := range loan.AllStatuses {
		m.ByStatus[string(s)] = 0
	}
	var ltvSum, riskSum float64
	var ltvCount, riskCount int64
	for _, row := range rows {
		m.ByStatus[string(row.Status)] = row.Count
		m.TotalLoans += row.Count
		m.TotalRequested = money.Add(m.TotalRequested, row.Requested)
		m.TotalApproved = money.Add(m.TotalApproved, row.Approved)
		m.TotalOutstanding = money.Add(m.TotalOutstanding, row.Outstanding)
		m.TotalCollateral = money.Add(m.TotalCollateral, row.Collateral)
		ltvSum += row.LTVSum
		ltvCount += row.LTVCount
		riskSum += row.RiskScoreSum
		riskCount += row.RiskScoreCount
	}
	if ltvCount > 0 {
		m.AverageLTV = money.RoundTo(ltvSum/float64(ltvCount), 6)
	}
	if riskCount > 0 {
		m.AverageRiskScore = money.RoundTo(riskSum/float64(riskCount), 2)
	}
	closed := m.ByStatus[string(loan.StatusActive)] + m.ByStatus[string(loan.StatusDefaulted)] + m.ByStatus[string(loan.StatusPaidOff)]
	if closed > 0 {
		m.DefaultRate = money.Ratio(float64(m.ByStatus[string(loan.StatusDefaulted)]), float64(closed), 6)
	}
	if m.TokenizedLoans, err = r.Tokens.CountTokenizedLoans(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// ArchiveLoan soft-deletes a loan that is not being serviced and closes
// everything hanging off it. No row is hard-deleted.
func (u *Usecase) ArchiveLoan(ctx context.Context, loanID, actor string) error {
	if strings.TrimSpace(actor) == "" {
		return apperr.Validation("actor is required")
	}
	err := u.runner.Mutate(ctx, loanID, "archive", func(tx *aggregate.Tx) error {
		l := tx.Loan
		if l.Status == loan.StatusFunded || l.Status == loan.StatusActive {
			return apperr.InvalidState("loan %s is %s and cannot be archived", l.LoanID, l.Status)
		}
		if err := closeChildren(ctx, tx); err != nil {
			return err
		}
		l.AddNote(tx.Now, l.Status, l.Status, "archived by "+actor)
		tx.Notify(notification.Draft{
			Type:     "loan_archived",
			Title:    "Loan archived",
			Message:  fmt.Sprintf("Loan %s was archived by %s.", l.LoanID, actor),
			Priority: notification.PriorityLow,
		})
		tx.Archive(actor)
		return nil
	})
	if err != nil {
		return err
	}
	u.log.Info("loan archived", zap.String("loan_id", loanID), zap.String("actor", actor))
	return nil
}

func closeChildren(ctx context.Context, tx *aggregate.Tx) error {
	r := tx.Repos
	loanNumericID := tx.Loan.ID

	acct, err := r.Escrow.GetByLoanID(ctx, loanNumericID)
	switch {
	case err == nil:
		if acct.Status != escrowDomain.StatusClosed {
			acct.Status = escrowDomain.StatusClosed
			if err := r.Escrow.Save(ctx, acct); err != nil {
				return err
			}
		}
	case !errors.Is(err, escrowDomain.ErrNotFound):
		return err
	}

	listings, err := r.Tokens.ListActiveListingsByLoan(ctx, loanNumericID)
	if err != nil {
		return err
	}
	for i := range listings {
		listings[i].Status = token.ListingCancelled
		if err := r.Tokens.SaveListing(ctx, &listings[i]); err != nil {
			return err
		}
		if err := r.Tokens.CloseActiveBids(ctx, listings[i].ID, token.BidRejected); err != nil {
			return err
		}
	}
	tokens, err := r.Tokens.ListByLoanID(ctx, loanNumericID)
	if err != nil {
		return err
	}
	for i := range tokens {
		if tokens[i].Status == token.StatusCancelled {
			continue
		}
		tokens[i].Status = token.StatusCancelled
		if err := r.Tokens.Save(ctx, &tokens[i]); err != nil {
			return err
		}
	}

	g, err := r.Guarantees.GetCurrentByLoanID(ctx, loanNumericID)
	switch {
	case err == nil:
		g.Status = guarantee.StatusCancelled
		return r.Guarantees.Save(ctx, g)
	case errors.Is(err, guarantee.ErrNotFound):
		return nil
	default:
		return err
	}
}

// LatestAssessment is the newest stored scoring run for the loan.
func (u *Usecase) LatestAssessment(ctx context.Context, loanID string) (*assessment.Assessment, error) {
	r := u.runner.Repos()
	l, err := r.Loans.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return r.Assessments.GetLatestByLoanID(ctx, l.ID)
}

// Schedule returns the amortization table for the loan's principal base.
func (u *Usecase) Schedule(ctx context.Context, loanID string) ([]loan.ScheduleEntry, error) {
	l, err := u.runner.Repos().Loans.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return loan.Schedule(l.PrincipalBase(), l.InterestRate, l.TermMonths), nil
}
