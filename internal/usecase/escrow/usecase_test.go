package escrow_test

import (
	"context"
	"errors"
	"testing"

	"credit-acceleration/internal/domain/apperr"
	domain "credit-acceleration/internal/domain/escrow"
	"credit-acceleration/internal/domain/loan"
	"credit-acceleration/internal/domain/notification"
	"credit-acceleration/internal/testutil/harness"
	"credit-acceleration/internal/usecase/escrow"
)

func setup(t *testing.T) (*harness.Harness, *escrow.Usecase, *loan.Loan) {
	t.Helper()
	h := harness.New(t)
	uc := escrow.NewUsecase(h.Runner, nil)
	l := h.SeedLoan(t, func(l *loan.Loan) { l.Status = loan.StatusActive })
	return h, uc, l
}

func TestCreateEscrowAccount(t *testing.T) {
	_, uc, l := setup(t)
	ctx := context.Background()

	a, err := uc.CreateEscrowAccount(ctx, l.LoanID, escrow.CreateAccountInput{MonthlyTaxImpound: 250, MonthlyInsuranceImpound: 90.5})
	if err != nil {
		t.Fatalf("CreateEscrowAccount: %v", err)
	}
	if a.Balance != 0 || a.Status != domain.StatusActive {
		t.Fatalf("new account %+v", a)
	}
	if want := harness.Epoch.AddDate(1, 0, 0); !a.NextAnalysisDate.Equal(want) {
		t.Fatalf("next analysis %v, want %v", a.NextAnalysisDate, want)
	}

	if _, err := uc.CreateEscrowAccount(ctx, l.LoanID, escrow.CreateAccountInput{}); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("second account: want ErrInvalidState, got %v", err)
	}
	if _, err := uc.CreateEscrowAccount(ctx, "missing", escrow.CreateAccountInput{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("missing loan: want ErrNotFound, got %v", err)
	}
	if _, err := uc.CreateEscrowAccount(ctx, l.LoanID, escrow.CreateAccountInput{MonthlyTaxImpound: -1}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("negative impound: want ErrValidation, got %v", err)
	}
}

func TestProcessEscrowTransaction_BalanceIsSumOfLog(t *testing.T) {
	_, uc, l := setup(t)
	ctx := context.Background()
	if _, err := uc.CreateEscrowAccount(ctx, l.LoanID, escrow.CreateAccountInput{}); err != nil {
		t.Fatalf("CreateEscrowAccount: %v", err)
	}

	steps := []struct {
		typ     string
		amount  float64
		balance float64
	}{
		{"deposit", 0.1, 0.1},
		{"deposit", 0.2, 0.3},
		{"deposit", 1200, 1200.3},
		{"tax_payment", 800.15, 400.15},
		{"insurance_payment", 100, 300.15},
		{"withdrawal", 0.15, 300},
	}
	for _, s := range steps {
		res, err := uc.ProcessEscrowTransaction(ctx, l.LoanID, escrow.TransactionInput{Type: s.typ, Amount: s.amount})
		if err != nil {
			t.Fatalf("%s %.2f: %v", s.typ, s.amount, err)
		}
		if res.Balance != s.balance {
			t.Fatalf("%s %.2f: balance %v, want %v", s.typ, s.amount, res.Balance, s.balance)
		}
	}

	view, err := uc.GetEscrowAccount(ctx, l.LoanID)
	if err != nil {
		t.Fatalf("GetEscrowAccount: %v", err)
	}
	if len(view.Transactions) != len(steps) || view.Account.TxCount != int64(len(steps)) {
		t.Fatalf("log size %d, tx count %d", len(view.Transactions), view.Account.TxCount)
	}
	var sum float64
	for i, tx := range view.Transactions {
		if tx.Seq != int64(i+1) {
			t.Fatalf("seq %d at %d", tx.Seq, i)
		}
		sum += tx.Amount
	}
	if view.Account.Balance != 300 || sum < 299.999 || sum > 300.001 {
		t.Fatalf("stored balance %v, log sum %v", view.Account.Balance, sum)
	}
}

func TestProcessEscrowTransaction_ShortageNotifies(t *testing.T) {
	h, uc, l := setup(t)
	ctx := context.Background()
	if _, err := uc.CreateEscrowAccount(ctx, l.LoanID, escrow.CreateAccountInput{}); err != nil {
		t.Fatalf("CreateEscrowAccount: %v", err)
	}
	res, err := uc.ProcessEscrowTransaction(ctx, l.LoanID, escrow.TransactionInput{Type: "tax_payment", Amount: 1500, Payee: "County"})
	if err != nil {
		t.Fatalf("tax payment: %v", err)
	}
	if !res.Shortage || res.Balance != -1500 {
		t.Fatalf("result %+v", res)
	}

	got := h.Sink.Wait(t, 2)
	last := got[len(got)-1]
	if last.Type != "escrow_shortage" || last.Priority != notification.PriorityHigh || !last.ActionRequired {
		t.Fatalf("shortage notification %+v", last)
	}
}

func TestProcessEscrowTransaction_Rejections(t *testing.T) {
	h, uc, l := setup(t)
	ctx := context.Background()

	if _, err := uc.ProcessEscrowTransaction(ctx, l.LoanID, escrow.TransactionInput{Type: "deposit", Amount: 10}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("no account: want escrow ErrNotFound, got %v", err)
	}
	a, err := uc.CreateEscrowAccount(ctx, l.LoanID, escrow.CreateAccountInput{})
	if err != nil {
		t.Fatalf("CreateEscrowAccount: %v", err)
	}

	cases := []struct {
		name string
		in   escrow.TransactionInput
		want error
	}{
		{"unknown type", escrow.TransactionInput{Type: "refund", Amount: 1}, apperr.ErrValidation},
		{"zero amount", escrow.TransactionInput{Type: "deposit"}, apperr.ErrValidation},
		{"negative amount", escrow.TransactionInput{Type: "deposit", Amount: -5}, apperr.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := uc.ProcessEscrowTransaction(ctx, l.LoanID, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}

	a.Status = domain.StatusClosed
	if err := h.UoW.Repos().Escrow.Save(ctx, a); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := uc.ProcessEscrowTransaction(ctx, l.LoanID, escrow.TransactionInput{Type: "deposit", Amount: 10}); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("closed account: want ErrInvalidState, got %v", err)
	}
}
