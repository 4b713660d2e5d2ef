package collateral

import (
	"context"
	"fmt"
	"strings"

	"credit-acceleration/internal/domain/apperr"
	domain "credit-acceleration/internal/domain/collateral"
	"credit-acceleration/internal/domain/notification"
	"credit-acceleration/internal/domain/valuation"
	"credit-acceleration/internal/usecase/aggregate"
	"credit-acceleration/pkg/id"
	"credit-acceleration/pkg/money"

	"go.uber.org/zap"
)

const maxAddressLen = 255

type Usecase struct {
	runner   *aggregate.Runner
	provider valuation.Provider
	log      *zap.Logger
}

// NewUsecase expects provider to already carry its timeout, retry and cache
// policy (see adapter/valuation).
func NewUsecase(r *aggregate.Runner, p valuation.Provider, log *zap.Logger) *Usecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{runner: r, provider: p, log: log.Named("collateral")}
}

func (u *Usecase) AddCollateralAsset(ctx context.Context, loanID string, in AddAssetInput) (*AssetResult, error) {
	typ := domain.AssetType(strings.TrimSpace(in.Type))
	switch {
	case !typ.Valid():
		return nil, apperr.Validation("asset type %q is not supported", in.Type)
	case in.EstimatedValue < 0:
		return nil, apperr.Validation("estimated value must be >= 0")
	case in.LienPosition < 1:
		return nil, apperr.Validation("lien position must be >= 1")
	case len(in.Address) > maxAddressLen:
		return nil, apperr.Validation("address must be at most %d characters", maxAddressLen)
	}

	var out *AssetResult
	err := u.runner.Mutate(ctx, loanID, "add_collateral", func(tx *aggregate.Tx) error {
		a := &domain.Asset{
			AssetID:        id.NewID32(),
			LoanID:         tx.Loan.ID,
			Type:           typ,
			Description:    strings.TrimSpace(in.Description),
			Address:        strings.TrimSpace(in.Address),
			EstimatedValue: money.Round2(in.EstimatedValue),
			LienPosition:   in.LienPosition,
			Status:         domain.StatusActive,
		}
		if err := tx.Repos.Collateral.Create(ctx, a); err != nil {
			return err
		}
		tx.Loan.TotalCollateralValue = money.Add(tx.Loan.TotalCollateralValue, a.EstimatedValue)
		tx.Loan.RecomputeLTV()
		tx.Notify(notification.Draft{
			Type:     "collateral_added",
			Title:    "Collateral added",
			Message:  fmt.Sprintf("%s asset %s valued at %.2f added to loan %s.", typ, a.AssetID, a.EstimatedValue, loanID),
			Priority: notification.PriorityLow,
		})
		out = result(tx, a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateAssetValuation replaces the asset's value in its owning loan's total.
// verified also records newValue as the verified value.
func (u *Usecase) UpdateAssetValuation(ctx context.Context, assetID string, newValue float64, verified bool) (*AssetResult, error) {
	if newValue < 0 {
		return nil, apperr.Validation("new value must be >= 0")
	}
	return u.revalue(ctx, assetID, "update_valuation", func(a *domain.Asset) {
		a.EstimatedValue = money.Round2(newValue)
		if verified {
			v := a.EstimatedValue
			a.VerifiedValue = &v
		}
	})
}

// RemoveCollateralAsset releases an asset and takes its value out of the
// loan's total. Tokenized assets back issued tokens and cannot be released.
func (u *Usecase) RemoveCollateralAsset(ctx context.Context, assetID string) (*AssetResult, error) {
	loanID, err := u.owner(ctx, assetID)
	if err != nil {
		return nil, err
	}
	var out *AssetResult
	err = u.runner.Mutate(ctx, loanID, "remove_collateral", func(tx *aggregate.Tx) error {
		a, err := u.activeAsset(ctx, tx, assetID)
		if err != nil {
			return err
		}
		if a.Tokenized {
			return apperr.InvalidState("asset %s is tokenized", assetID)
		}
		a.Status = domain.StatusReleased
		if err := tx.Repos.Collateral.Save(ctx, a); err != nil {
			return err
		}
		tx.Loan.TotalCollateralValue = money.Sub(tx.Loan.TotalCollateralValue, a.EstimatedValue)
		if tx.Loan.TotalCollateralValue < 0 {
			tx.Loan.TotalCollateralValue = 0
		}
		tx.Loan.RecomputeLTV()
		tx.Notify(notification.Draft{
			Type:     "collateral_released",
			Title:    "Collateral released",
			Message:  fmt.Sprintf("Asset %s released from loan %s.", assetID, loanID),
			Priority: notification.PriorityMedium,
		})
		out = result(tx, a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetComparables asks the valuation provider for comparable sales. Provider
// failures surface as ErrExternalServiceUnavailable.
func (u *Usecase) GetComparables(ctx context.Context, address string) (*valuation.Report, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, apperr.Validation("address is required")
	}
	if len(address) > maxAddressLen {
		return nil, apperr.Validation("address must be at most %d characters", maxAddressLen)
	}
	r, err := u.provider.Comparables(ctx, address)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if apperr.Code(err) == "internal" {
			err = apperr.Unavailable("valuation provider: %v", err)
		}
		return nil, err
	}
	return r, nil
}

// RevalueAsset prices an asset from comparables and applies the estimate as a
// verified valuation. The provider is called before the loan is locked, so a
// provider failure leaves the loan untouched.
func (u *Usecase) RevalueAsset(ctx context.Context, assetID string) (*RevaluationResult, error) {
	a, err := u.runner.Repos().Collateral.GetByAssetID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	address := a.Address
	if address == "" {
		l, err := u.runner.Repos().Loans.GetByID(ctx, a.LoanID)
		if err != nil {
			return nil, err
		}
		address = l.PropertyAddress
	}
	if address == "" {
		return nil, apperr.InvalidState("asset %s has no address to value", assetID)
	}

	report, err := u.GetComparables(ctx, address)
	if err != nil {
		u.log.Warn("revaluation skipped", zap.String("asset_id", assetID), zap.Error(err))
		return nil, err
	}
	res, err := u.revalue(ctx, assetID, "revalue_asset", func(a *domain.Asset) {
		a.EstimatedValue = money.Round2(report.EstimatedValue)
		v := a.EstimatedValue
		a.VerifiedValue = &v
		c := money.RoundTo(report.Confidence, 4)
		a.ValuationConfidence = &c
	})
	if err != nil {
		return nil, err
	}
	return &RevaluationResult{AssetResult: *res, Report: report}, nil
}

func (u *Usecase) revalue(ctx context.Context, assetID, op string, apply func(a *domain.Asset)) (*AssetResult, error) {
	loanID, err := u.owner(ctx, assetID)
	if err != nil {
		return nil, err
	}
	var out *AssetResult
	err = u.runner.Mutate(ctx, loanID, op, func(tx *aggregate.Tx) error {
		a, err := u.activeAsset(ctx, tx, assetID)
		if err != nil {
			return err
		}
		old := a.EstimatedValue
		apply(a)
		now := tx.Now
		a.LastValuedAt = &now
		if err := tx.Repos.Collateral.Save(ctx, a); err != nil {
			return err
		}
		tx.Loan.TotalCollateralValue = money.Add(money.Sub(tx.Loan.TotalCollateralValue, old), a.EstimatedValue)
		tx.Loan.RecomputeLTV()
		tx.Notify(notification.Draft{
			Type:     "collateral_revalued",
			Title:    "Collateral revalued",
			Message:  fmt.Sprintf("Asset %s revalued from %.2f to %.2f.", assetID, old, a.EstimatedValue),
			Priority: notification.PriorityLow,
		})
		out = result(tx, a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// owner resolves the single loan that holds assetID.
func (u *Usecase) owner(ctx context.Context, assetID string) (string, error) {
	if strings.TrimSpace(assetID) == "" {
		return "", apperr.Validation("asset id is required")
	}
	a, err := u.runner.Repos().Collateral.GetByAssetID(ctx, assetID)
	if err != nil {
		return "", err
	}
	return u.runner.LoanIDFor(ctx, a.LoanID)
}

func (u *Usecase) activeAsset(ctx context.Context, tx *aggregate.Tx, assetID string) (*domain.Asset, error) {
	a, err := tx.Repos.Collateral.GetByAssetID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if a.LoanID != tx.Loan.ID {
		return nil, apperr.Conflict("asset %s moved to another loan", assetID)
	}
	if a.Status != domain.StatusActive {
		return nil, apperr.InvalidState("asset %s is %s", assetID, a.Status)
	}
	return a, nil
}

func result(tx *aggregate.Tx, a *domain.Asset) *AssetResult {
	return &AssetResult{
		LoanID:               tx.Loan.LoanID,
		Asset:                a,
		TotalCollateralValue: tx.Loan.TotalCollateralValue,
		LoanToValueRatio:     tx.Loan.LoanToValueRatio,
	}
}
