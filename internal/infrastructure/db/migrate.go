package db

import (
	"credit-acceleration/internal/domain/assessment"
	"credit-acceleration/internal/domain/collateral"
	"credit-acceleration/internal/domain/escrow"
	"credit-acceleration/internal/domain/guarantee"
	"credit-acceleration/internal/domain/loan"
	"credit-acceleration/internal/domain/notification"
	"credit-acceleration/internal/domain/token"

	"gorm.io/gorm"
)

// Models lists every persisted entity in dependency order.
func Models() []any {
	return []any{
		&loan.Loan{},
		&loan.Payment{},
		&assessment.Assessment{},
		&collateral.Asset{},
		&escrow.Account{},
		&escrow.Transaction{},
		&token.Token{},
		&token.Holder{},
		&token.Listing{},
		&token.Bid{},
		&token.PricePoint{},
		&guarantee.Guarantee{},
		&guarantee.Claim{},
		&guarantee.Payout{},
		&notification.Notification{},
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
