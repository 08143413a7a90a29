package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kartwise/storefront-backend/pkg/enums"
)

// Wallet holds store credit. BalancePaise always equals the sum of credits
// minus debits in wallet_transactions.
type Wallet struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	BalancePaise int64     `gorm:"column:balance_paise;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (w *Wallet) BeforeCreate(*gorm.DB) error {
	ensureID(&w.ID)
	return nil
}

// WalletTransaction is append-only.
type WalletTransaction struct {
	ID                uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WalletID          uuid.UUID                   `gorm:"column:wallet_id;type:uuid;not null"`
	UserID            uuid.UUID                   `gorm:"column:user_id;type:uuid;not null"`
	Type              enums.WalletTransactionType `gorm:"column:type;not null"`
	AmountPaise       int64                       `gorm:"column:amount_paise;not null"`
	BalanceAfterPaise int64                       `gorm:"column:balance_after_paise;not null"`
	Description       string                      `gorm:"column:description;not null"`
	OrderRef          *string                     `gorm:"column:order_ref"`
	CreatedAt         time.Time                   `gorm:"column:created_at;autoCreateTime"`
}

func (t *WalletTransaction) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
