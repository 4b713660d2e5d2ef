package collateral

import (
	"fmt"
	"time"

	"credit-acceleration/internal/domain/apperr"
)

var ErrNotFound = fmt.Errorf("%w: collateral asset", apperr.ErrNotFound)

type AssetType string

const (
	TypeRealEstate AssetType = "real_estate"
	TypeVehicle    AssetType = "vehicle"
	TypeEquipment  AssetType = "equipment"
	TypeSecurities AssetType = "securities"
	TypeCash       AssetType = "cash"
	TypeOther      AssetType = "other"
)

func (t AssetType) Valid() bool {
	switch t {
	case TypeRealEstate, TypeVehicle, TypeEquipment, TypeSecurities, TypeCash, TypeOther:
		return true
	}
	return false
}

type Status string

const (
	StatusActive   Status = "active"
	StatusReleased Status = "released"
)

// Table: collateral_assets. AssetID is globally unique so an asset always
// has exactly one owning loan.
type Asset struct {
	ID                  uint64     `gorm:"primaryKey;column:id" json:"-"`
	AssetID             string     `gorm:"size:32;not null;uniqueIndex:ux_collateral_asset_id" json:"asset_id"`
	LoanID              uint64     `gorm:"not null;index:idx_collateral_loan" json:"-"`
	Type                AssetType  `gorm:"size:24" json:"type"`
	Description         string     `gorm:"size:255" json:"description,omitempty"`
	Address             string     `gorm:"size:255" json:"address,omitempty"`
	EstimatedValue      float64    `gorm:"type:decimal(18,2)" json:"estimated_value"`
	VerifiedValue       *float64   `gorm:"type:decimal(18,2)" json:"verified_value,omitempty"`
	ValuationConfidence *float64   `gorm:"type:decimal(5,4)" json:"valuation_confidence,omitempty"`
	LienPosition        int        `json:"lien_position"`
	Tokenized           bool       `json:"tokenized"`
	Status              Status     `gorm:"size:16;index:idx_collateral_loan;default:'active'" json:"status"`
	LastValuedAt        *time.Time `json:"last_valued_at,omitempty"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Asset) TableName() string { return "collateral_assets" }
