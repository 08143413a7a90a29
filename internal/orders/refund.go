package orders

import (
	"github.com/shopspring/decimal"

	"github.com/kartwise/storefront-backend/pkg/db/models"
)

// RefundAmount is the item's final total less its share of the order-level
// coupon discount, apportioned by the item's weight in the order subtotal.
func RefundAmount(order models.Order, item models.OrderItem) int64 {
	final := item.FinalPricePaise
	if final <= 0 {
		return 0
	}
	share := CouponShare(order, item)
	if share > final {
		return 0
	}
	return final - share
}

// CouponShare rounds half-up to whole paise.
func CouponShare(order models.Order, item models.OrderItem) int64 {
	if order.CouponDiscountPaise <= 0 || order.SubtotalPaise <= 0 {
		return 0
	}
	share := decimal.NewFromInt(order.CouponDiscountPaise).
		Mul(decimal.NewFromInt(item.FinalPricePaise)).
		Div(decimal.NewFromInt(order.SubtotalPaise)).
		Round(0)
	return share.IntPart()
}
