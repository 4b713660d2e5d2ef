package mysql

import (
	"context"

	collateralDomain "credit-acceleration/internal/domain/collateral"

	"gorm.io/gorm"
)

type CollateralRepository struct{ db *gorm.DB }

func NewCollateralRepository(db *gorm.DB) *CollateralRepository {
	return &CollateralRepository{db: db}
}

func (r *CollateralRepository) Create(ctx context.Context, a *collateralDomain.Asset) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *CollateralRepository) Save(ctx context.Context, a *collateralDomain.Asset) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *CollateralRepository) GetByAssetID(ctx context.Context, assetID string) (*collateralDomain.Asset, error) {
	var out collateralDomain.Asset
	if err := r.db.WithContext(ctx).Where("asset_id = ?", assetID).First(&out).Error; err != nil {
		return nil, notFound(err, collateralDomain.ErrNotFound)
	}
	return &out, nil
}

func (r *CollateralRepository) ListByLoanID(ctx context.Context, loanNumericID uint64) ([]collateralDomain.Asset, error) {
	var out []collateralDomain.Asset
	err := r.db.WithContext(ctx).
		Where("loan_id = ? AND status = ?", loanNumericID, collateralDomain.StatusActive).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

func (r *CollateralRepository) MarkTokenized(ctx context.Context, loanNumericID uint64) error {
	return r.db.WithContext(ctx).
		Model(&collateralDomain.Asset{}).
		Where("loan_id = ? AND status = ?", loanNumericID, collateralDomain.StatusActive).
		Update("tokenized", true).Error
}
