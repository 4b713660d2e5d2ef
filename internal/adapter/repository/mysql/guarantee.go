package mysql

import (
	"context"

	guaranteeDomain "credit-acceleration/internal/domain/guarantee"

	"gorm.io/gorm"
)

type GuaranteeRepository struct{ db *gorm.DB }

func NewGuaranteeRepository(db *gorm.DB) *GuaranteeRepository {
	return &GuaranteeRepository{db: db}
}

func (r *GuaranteeRepository) Create(ctx context.Context, g *guaranteeDomain.Guarantee) error {
	return r.db.WithContext(ctx).Create(g).Error
}

func (r *GuaranteeRepository) Save(ctx context.Context, g *guaranteeDomain.Guarantee) error {
	return r.db.WithContext(ctx).Save(g).Error
}

func (r *GuaranteeRepository) GetByGuaranteeID(ctx context.Context, guaranteeID string) (*guaranteeDomain.Guarantee, error) {
	var out guaranteeDomain.Guarantee
	if err := r.db.WithContext(ctx).Where("guarantee_id = ?", guaranteeID).First(&out).Error; err != nil {
		return nil, notFound(err, guaranteeDomain.ErrNotFound)
	}
	return &out, nil
}

func (r *GuaranteeRepository) GetByID(ctx context.Context, id uint64) (*guaranteeDomain.Guarantee, error) {
	var out guaranteeDomain.Guarantee
	if err := r.db.WithContext(ctx).First(&out, id).Error; err != nil {
		return nil, notFound(err, guaranteeDomain.ErrNotFound)
	}
	return &out, nil
}

func (r *GuaranteeRepository) GetCurrentByLoanID(ctx context.Context, loanNumericID uint64) (*guaranteeDomain.Guarantee, error) {
	var out guaranteeDomain.Guarantee
	res := r.db.WithContext(ctx).
		Where("loan_id = ? AND status <> ?", loanNumericID, guaranteeDomain.StatusCancelled).
		Order("id DESC").
		First(&out)
	if res.Error != nil {
		return nil, notFound(res.Error, guaranteeDomain.ErrNotFound)
	}
	return &out, nil
}

func (r *GuaranteeRepository) CreateClaim(ctx context.Context, c *guaranteeDomain.Claim) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *GuaranteeRepository) SaveClaim(ctx context.Context, c *guaranteeDomain.Claim) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *GuaranteeRepository) GetClaimByClaimID(ctx context.Context, claimID string) (*guaranteeDomain.Claim, error) {
	var out guaranteeDomain.Claim
	if err := r.db.WithContext(ctx).Where("claim_id = ?", claimID).First(&out).Error; err != nil {
		return nil, notFound(err, guaranteeDomain.ErrClaimNotFound)
	}
	return &out, nil
}

func (r *GuaranteeRepository) ListClaims(ctx context.Context, guaranteeID uint64) ([]guaranteeDomain.Claim, error) {
	var out []guaranteeDomain.Claim
	err := r.db.WithContext(ctx).Where("guarantee_id = ?", guaranteeID).Order("id ASC").Find(&out).Error
	return out, err
}

func (r *GuaranteeRepository) CreatePayout(ctx context.Context, p *guaranteeDomain.Payout) error {
	return r.db.WithContext(ctx).Create(p).Error
}
