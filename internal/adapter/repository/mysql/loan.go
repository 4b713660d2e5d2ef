package mysql

import (
	"context"

	"credit-acceleration/internal/domain/apperr"
	loanDomain "credit-acceleration/internal/domain/loan"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

// Tx runs fn in a db transaction, passing a repo bound to the tx
func (r *LoanRepository) Tx(ctx context.Context, fn func(repo loanDomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&LoanRepository{db: tx})
	})
}

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Create(l).Error
}

// Save writes every column guarded by the version the caller loaded. A
// concurrent writer that saved first makes this a ConcurrencyConflict.
func (r *LoanRepository) Save(ctx context.Context, l *loanDomain.Loan) error {
	prev := l.Version
	l.Version = prev + 1
	res := r.db.WithContext(ctx).
		Model(l).
		Where("version = ?", prev).
		Select("*").
		Omit("id", "created_at").
		Updates(l)
	if res.Error != nil {
		l.Version = prev
		return res.Error
	}
	if res.RowsAffected == 0 {
		l.Version = prev
		return apperr.Conflict("loan %s was modified concurrently (version %d)", l.LoanID, prev)
	}
	return nil
}

func (r *LoanRepository) Archive(ctx context.Context, l *loanDomain.Loan, actor string) error {
	l.DeletedBy = actor
	if err := r.Save(ctx, l); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(l).Error
}

func (r *LoanRepository) GetByLoanID(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).Where("loan_id = ?", loanID).First(&out)
	if res.Error != nil {
		return nil, notFound(res.Error, loanDomain.ErrNotFound)
	}
	return &out, nil
}

func (r *LoanRepository) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("loan_id = ?", loanID).
		First(&out)
	if res.Error != nil {
		return nil, notFound(res.Error, loanDomain.ErrNotFound)
	}
	return &out, nil
}

func (r *LoanRepository) GetByID(ctx context.Context, id uint64) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	if err := r.db.WithContext(ctx).First(&out, id).Error; err != nil {
		return nil, notFound(err, loanDomain.ErrNotFound)
	}
	return &out, nil
}

func (r *LoanRepository) Search(ctx context.Context, f loanDomain.SearchFilter) ([]loanDomain.Loan, int64, error) {
	q := r.db.WithContext(ctx).Model(&loanDomain.Loan{})
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.ApplicantID != "" {
		q = q.Where("applicant_id = ?", f.ApplicantID)
	}
	if f.MinAmount > 0 {
		q = q.Where("requested_amount >= ?", f.MinAmount)
	}
	if f.MaxAmount > 0 {
		q = q.Where("requested_amount <= ?", f.MaxAmount)
	}
	if f.MinCreditScore > 0 {
		q = q.Where("credit_score >= ?", f.MinCreditScore)
	}
	if f.Recommendation != "" {
		q = q.Where("ai_recommendation = ?", f.Recommendation)
	}

	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []loanDomain.Loan
	err := q.Order("created_at DESC, id DESC").Limit(f.Limit).Offset(f.Offset).Find(&out).Error
	return out, total, err
}

func (r *LoanRepository) TotalsByStatus(ctx context.Context) ([]loanDomain.StatusTotals, error) {
	var rows []loanDomain.StatusTotals
	err := r.db.WithContext(ctx).
		Model(&loanDomain.Loan{}).
		Select(`status,
			COUNT(*) AS count,
			COALESCE(SUM(requested_amount), 0) AS requested,
			COALESCE(SUM(approved_amount), 0) AS approved,
			COALESCE(SUM(current_balance), 0) AS outstanding,
			COALESCE(SUM(total_collateral_value), 0) AS collateral,
			COALESCE(SUM(CASE WHEN total_collateral_value > 0 THEN loan_to_value_ratio ELSE 0 END), 0) AS ltv_sum,
			COALESCE(SUM(CASE WHEN total_collateral_value > 0 AND approved_amount IS NOT NULL THEN 1 ELSE 0 END), 0) AS ltv_count,
			COALESCE(SUM(ai_risk_score), 0) AS risk_score_sum,
			COUNT(ai_risk_score) AS risk_score_count`).
		Group("status").
		Scan(&rows).Error
	return rows, err
}

func (r *LoanRepository) CreatePayment(ctx context.Context, p *loanDomain.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *LoanRepository) ListPayments(ctx context.Context, loanNumericID uint64) ([]loanDomain.Payment, error) {
	var out []loanDomain.Payment
	err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanNumericID).
		Order("due_date ASC, id ASC").
		Find(&out).Error
	return out, err
}
