package mysql

import (
	"context"

	escrowDomain "credit-acceleration/internal/domain/escrow"

	"gorm.io/gorm"
)

type EscrowRepository struct{ db *gorm.DB }

func NewEscrowRepository(db *gorm.DB) *EscrowRepository { return &EscrowRepository{db: db} }

func (r *EscrowRepository) Create(ctx context.Context, a *escrowDomain.Account) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *EscrowRepository) Save(ctx context.Context, a *escrowDomain.Account) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *EscrowRepository) GetByLoanID(ctx context.Context, loanNumericID uint64) (*escrowDomain.Account, error) {
	var out escrowDomain.Account
	if err := r.db.WithContext(ctx).Where("loan_id = ?", loanNumericID).First(&out).Error; err != nil {
		return nil, notFound(err, escrowDomain.ErrNotFound)
	}
	return &out, nil
}

func (r *EscrowRepository) AppendTransaction(ctx context.Context, tx *escrowDomain.Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *EscrowRepository) ListTransactions(ctx context.Context, accountID uint64) ([]escrowDomain.Transaction, error) {
	var out []escrowDomain.Transaction
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("seq ASC").
		Find(&out).Error
	return out, err
}
