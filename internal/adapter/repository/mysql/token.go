package mysql

import (
	"context"
	"errors"
	"time"

	tokenDomain "credit-acceleration/internal/domain/token"

	"gorm.io/gorm"
)

type TokenRepository struct{ db *gorm.DB }

func NewTokenRepository(db *gorm.DB) *TokenRepository { return &TokenRepository{db: db} }

func (r *TokenRepository) Create(ctx context.Context, t *tokenDomain.Token) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *TokenRepository) Save(ctx context.Context, t *tokenDomain.Token) error {
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *TokenRepository) GetByTokenID(ctx context.Context, tokenID string) (*tokenDomain.Token, error) {
	var out tokenDomain.Token
	if err := r.db.WithContext(ctx).Where("token_id = ?", tokenID).First(&out).Error; err != nil {
		return nil, notFound(err, tokenDomain.ErrNotFound)
	}
	return &out, nil
}

func (r *TokenRepository) GetByID(ctx context.Context, id uint64) (*tokenDomain.Token, error) {
	var out tokenDomain.Token
	if err := r.db.WithContext(ctx).First(&out, id).Error; err != nil {
		return nil, notFound(err, tokenDomain.ErrNotFound)
	}
	return &out, nil
}

func (r *TokenRepository) ListByLoanID(ctx context.Context, loanNumericID uint64) ([]tokenDomain.Token, error) {
	var out []tokenDomain.Token
	err := r.db.WithContext(ctx).Where("loan_id = ?", loanNumericID).Order("issuance_seq ASC").Find(&out).Error
	return out, err
}

func (r *TokenRepository) CountByLoanID(ctx context.Context, loanNumericID uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&tokenDomain.Token{}).Where("loan_id = ?", loanNumericID).Count(&n).Error
	return n, err
}

func (r *TokenRepository) CountTokenizedLoans(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&tokenDomain.Token{}).
		Where("status = ?", tokenDomain.StatusActive).
		Distinct("loan_id").
		Count(&n).Error
	return n, err
}

func (r *TokenRepository) GetHolder(ctx context.Context, tokenID uint64, holderID string) (*tokenDomain.Holder, error) {
	var out tokenDomain.Holder
	err := r.db.WithContext(ctx).
		Where("token_id = ? AND holder_id = ?", tokenID, holderID).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &tokenDomain.Holder{TokenID: tokenID, HolderID: holderID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *TokenRepository) SaveHolder(ctx context.Context, h *tokenDomain.Holder) error {
	if h.ID == 0 {
		return r.db.WithContext(ctx).Create(h).Error
	}
	return r.db.WithContext(ctx).Save(h).Error
}

func (r *TokenRepository) ListHolders(ctx context.Context, tokenID uint64) ([]tokenDomain.Holder, error) {
	var out []tokenDomain.Holder
	err := r.db.WithContext(ctx).
		Where("token_id = ? AND tokens_owned > 0", tokenID).
		Order("tokens_owned DESC, id ASC").
		Find(&out).Error
	return out, err
}

func (r *TokenRepository) CreateListing(ctx context.Context, l *tokenDomain.Listing) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *TokenRepository) SaveListing(ctx context.Context, l *tokenDomain.Listing) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *TokenRepository) GetListingByListingID(ctx context.Context, listingID string) (*tokenDomain.Listing, error) {
	var out tokenDomain.Listing
	if err := r.db.WithContext(ctx).Where("listing_id = ?", listingID).First(&out).Error; err != nil {
		return nil, notFound(err, tokenDomain.ErrListingNotFound)
	}
	return &out, nil
}

func (r *TokenRepository) GetListingByID(ctx context.Context, id uint64) (*tokenDomain.Listing, error) {
	var out tokenDomain.Listing
	if err := r.db.WithContext(ctx).First(&out, id).Error; err != nil {
		return nil, notFound(err, tokenDomain.ErrListingNotFound)
	}
	return &out, nil
}

func (r *TokenRepository) ListActiveListingsBySeller(ctx context.Context, tokenID uint64, sellerID string) ([]tokenDomain.Listing, error) {
	var out []tokenDomain.Listing
	err := r.db.WithContext(ctx).
		Where("token_id = ? AND seller_id = ? AND status = ?", tokenID, sellerID, tokenDomain.ListingActive).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

func (r *TokenRepository) ListActiveListingsByLoan(ctx context.Context, loanNumericID uint64) ([]tokenDomain.Listing, error) {
	var out []tokenDomain.Listing
	err := r.db.WithContext(ctx).
		Where("loan_id = ? AND status = ?", loanNumericID, tokenDomain.ListingActive).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

func (r *TokenRepository) ListExpiredActiveListings(ctx context.Context, now time.Time, limit int) ([]tokenDomain.Listing, error) {
	var out []tokenDomain.Listing
	err := r.db.WithContext(ctx).
		Where("status = ? AND expiration_date <= ?", tokenDomain.ListingActive, now).
		Order("expiration_date ASC, id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *TokenRepository) CreateBid(ctx context.Context, b *tokenDomain.Bid) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *TokenRepository) SaveBid(ctx context.Context, b *tokenDomain.Bid) error {
	return r.db.WithContext(ctx).Save(b).Error
}

func (r *TokenRepository) GetBidByBidID(ctx context.Context, bidID string) (*tokenDomain.Bid, error) {
	var out tokenDomain.Bid
	if err := r.db.WithContext(ctx).Where("bid_id = ?", bidID).First(&out).Error; err != nil {
		return nil, notFound(err, tokenDomain.ErrBidNotFound)
	}
	return &out, nil
}

func (r *TokenRepository) ListBidsByListing(ctx context.Context, listingID uint64) ([]tokenDomain.Bid, error) {
	var out []tokenDomain.Bid
	err := r.db.WithContext(ctx).Where("listing_id = ?", listingID).Order("id ASC").Find(&out).Error
	return out, err
}

func (r *TokenRepository) CloseActiveBids(ctx context.Context, listingID uint64, status tokenDomain.BidStatus) error {
	return r.db.WithContext(ctx).
		Model(&tokenDomain.Bid{}).
		Where("listing_id = ? AND status = ?", listingID, tokenDomain.BidActive).
		Update("status", status).Error
}

func (r *TokenRepository) AddPricePoint(ctx context.Context, p *tokenDomain.PricePoint) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *TokenRepository) ListPriceHistory(ctx context.Context, tokenID uint64) ([]tokenDomain.PricePoint, error) {
	var out []tokenDomain.PricePoint
	err := r.db.WithContext(ctx).Where("token_id = ?", tokenID).Order("recorded_at ASC, id ASC").Find(&out).Error
	return out, err
}
