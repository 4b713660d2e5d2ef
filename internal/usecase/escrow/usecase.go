package escrow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"credit-acceleration/internal/domain/apperr"
	domain "credit-acceleration/internal/domain/escrow"
	"credit-acceleration/internal/domain/notification"
	"credit-acceleration/internal/usecase/aggregate"
	"credit-acceleration/pkg/id"
	"credit-acceleration/pkg/money"

	"go.uber.org/zap"
)

type Usecase struct {
	runner *aggregate.Runner
	log    *zap.Logger
}

func NewUsecase(r *aggregate.Runner, log *zap.Logger) *Usecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{runner: r, log: log.Named("escrow")}
}

func (u *Usecase) CreateEscrowAccount(ctx context.Context, loanID string, in CreateAccountInput) (*domain.Account, error) {
	if in.MonthlyTaxImpound < 0 || in.MonthlyInsuranceImpound < 0 {
		return nil, apperr.Validation("monthly impounds must be >= 0")
	}
	var out *domain.Account
	err := u.runner.Mutate(ctx, loanID, "create_escrow", func(tx *aggregate.Tx) error {
		existing, err := tx.Repos.Escrow.GetByLoanID(ctx, tx.Loan.ID)
		switch {
		case err == nil:
			return apperr.InvalidState("loan %s already has escrow account %s", loanID, existing.AccountID)
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}
		a := &domain.Account{
			AccountID:               id.NewID32(),
			LoanID:                  tx.Loan.ID,
			MonthlyTaxImpound:       money.Round2(in.MonthlyTaxImpound),
			MonthlyInsuranceImpound: money.Round2(in.MonthlyInsuranceImpound),
			Status:                  domain.StatusActive,
			NextAnalysisDate:        tx.Now.AddDate(1, 0, 0),
		}
		if err := tx.Repos.Escrow.Create(ctx, a); err != nil {
			return err
		}
		tx.Notify(notification.Draft{
			Type:     "escrow_opened",
			Title:    "Escrow account opened",
			Message:  fmt.Sprintf("Escrow account %s opened for loan %s.", a.AccountID, loanID),
			Priority: notification.PriorityLow,
		})
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *Usecase) ProcessEscrowTransaction(ctx context.Context, loanID string, in TransactionInput) (*TransactionResult, error) {
	typ := domain.TxType(strings.TrimSpace(in.Type))
	if !typ.Valid() {
		return nil, apperr.Validation("transaction type %q is not one of deposit, withdrawal, tax_payment, insurance_payment", in.Type)
	}
	if in.Amount <= 0 {
		return nil, apperr.Validation("amount must be > 0")
	}
	var out *TransactionResult
	err := u.runner.Mutate(ctx, loanID, "escrow_transaction", func(tx *aggregate.Tx) error {
		acct, err := tx.Repos.Escrow.GetByLoanID(ctx, tx.Loan.ID)
		if err != nil {
			return err
		}
		at := tx.Now
		if in.OccurredAt != nil {
			at = in.OccurredAt.UTC()
		}
		entry, err := Append(ctx, tx, acct, Entry{
			Type:        typ,
			Amount:      in.Amount,
			Description: in.Description,
			Payee:       in.Payee,
			OccurredAt:  at,
		})
		if err != nil {
			return err
		}
		out = &TransactionResult{Transaction: entry, Balance: acct.Balance, Shortage: acct.Balance < 0}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out.Shortage {
		u.log.Warn("escrow shortage",
			zap.String("loan_id", loanID),
			zap.String("transaction_id", out.Transaction.TransactionID),
			zap.Float64("balance", out.Balance),
		)
	}
	return out, nil
}

func (u *Usecase) GetEscrowAccount(ctx context.Context, loanID string) (*AccountView, error) {
	r := u.runner.Repos()
	l, err := r.Loans.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	a, err := r.Escrow.GetByLoanID(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	txs, err := r.Escrow.ListTransactions(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	return &AccountView{LoanID: loanID, Account: a, Transactions: txs}, nil
}

// Entry is one ledger movement before it is numbered.
type Entry struct {
	Type        domain.TxType
	Amount      float64
	Description string
	Payee       string
	OccurredAt  time.Time
}

// Append adds e to acct's log inside tx and resets the balance to the sum of
// the whole log. A resulting shortage queues a high-priority notification.
func Append(ctx context.Context, tx *aggregate.Tx, acct *domain.Account, e Entry) (*domain.Transaction, error) {
	if acct.Status != domain.StatusActive {
		return nil, apperr.InvalidState("escrow account %s is %s", acct.AccountID, acct.Status)
	}
	entry := &domain.Transaction{
		TransactionID: id.NewID32(),
		AccountID:     acct.ID,
		Seq:           acct.TxCount + 1,
		Type:          e.Type,
		Amount:        e.Type.Signed(money.Round2(e.Amount)),
		Description:   e.Description,
		Payee:         e.Payee,
		OccurredAt:    e.OccurredAt,
	}
	if err := tx.Repos.Escrow.AppendTransaction(ctx, entry); err != nil {
		return nil, err
	}
	log, err := tx.Repos.Escrow.ListTransactions(ctx, acct.ID)
	if err != nil {
		return nil, err
	}
	amounts := make([]float64, len(log))
	for i := range log {
		amounts[i] = log[i].Amount
	}
	acct.Balance = money.Sum(amounts...)
	acct.TxCount = int64(len(log))
	if err := tx.Repos.Escrow.Save(ctx, acct); err != nil {
		return nil, err
	}
	if acct.Balance < 0 {
		tx.Notify(notification.Draft{
			Type:           "escrow_shortage",
			Title:          "Escrow shortage",
			Message:        fmt.Sprintf("Escrow account %s is short by %.2f.", acct.AccountID, -acct.Balance),
			Priority:       notification.PriorityHigh,
			ActionRequired: true,
		})
	}
	return entry, nil
}
