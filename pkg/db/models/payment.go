package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kartwise/storefront-backend/pkg/enums"
)

// Payment correlates a gateway order with the checkout that created it. The
// order row is only written after the gateway signature is verified.
type Payment struct {
	ID               uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID                  `gorm:"column:user_id;type:uuid;not null"`
	CheckoutID       string                     `gorm:"column:checkout_id;not null;uniqueIndex"`
	GatewayOrderID   string                     `gorm:"column:gateway_order_id;not null;uniqueIndex"`
	GatewayPaymentID *string                    `gorm:"column:gateway_payment_id"`
	AmountPaise      int64                      `gorm:"column:amount_paise;not null"`
	Currency         string                     `gorm:"column:currency;not null;default:'INR'"`
	Status           enums.GatewayPaymentStatus `gorm:"column:status;not null;default:'created'"`
	FailureReason    *string                    `gorm:"column:failure_reason"`
	AddressID        uuid.UUID                  `gorm:"column:address_id;type:uuid;not null"`
	CouponCode       *string                    `gorm:"column:coupon_code"`
	OrderID          *uuid.UUID                 `gorm:"column:order_id;type:uuid"`
	CreatedAt        time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
