package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kartwise/storefront-backend/pkg/enums"
	"github.com/kartwise/storefront-backend/pkg/types"
)

// Order is the immutable record of a purchase. Amounts are paise.
//
// SubtotalPaise is the sum of item final totals (offer prices applied).
// CouponDiscountPaise is apportioned across items when a return is refunded.
type Order struct {
	ID                   uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber          string                `gorm:"column:order_number;not null;uniqueIndex"`
	UserID               uuid.UUID             `gorm:"column:user_id;type:uuid;not null"`
	Status               enums.OrderStatus     `gorm:"column:status;not null;default:'pending'"`
	PaymentMethod        enums.PaymentMethod   `gorm:"column:payment_method;not null"`
	PaymentStatus        enums.PaymentStatus   `gorm:"column:payment_status;not null;default:'pending'"`
	PaymentAmountPaise   int64                 `gorm:"column:payment_amount_paise;not null"`
	GatewayPaymentID     *string               `gorm:"column:gateway_payment_id"`
	SubtotalPaise        int64                 `gorm:"column:subtotal_paise;not null"`
	ProductDiscountPaise int64                 `gorm:"column:product_discount_paise;not null;default:0"`
	CouponDiscountPaise  int64                 `gorm:"column:coupon_discount_paise;not null;default:0"`
	ShippingPaise        int64                 `gorm:"column:shipping_paise;not null;default:0"`
	TotalPaise           int64                 `gorm:"column:total_paise;not null"`
	CouponID             *uuid.UUID            `gorm:"column:coupon_id;type:uuid"`
	CouponCode           *string               `gorm:"column:coupon_code"`
	ShippingAddress      types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;not null"`
	CancelReason         *string               `gorm:"column:cancel_reason"`
	CancelledAt          *time.Time            `gorm:"column:cancelled_at"`
	ShippedAt            *time.Time            `gorm:"column:shipped_at"`
	DeliveredAt          *time.Time            `gorm:"column:delivered_at"`
	Version              int                   `gorm:"column:version;not null;default:1"`
	Items                []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// TotalDiscountPaise is the combined offer and coupon saving.
func (o Order) TotalDiscountPaise() int64 {
	return o.ProductDiscountPaise + o.CouponDiscountPaise
}

// OrderItem snapshots the variant at purchase time. VariantID is a weak
// reference used only to restore stock.
type OrderItem struct {
	ID                  uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID             uuid.UUID          `gorm:"column:order_id;type:uuid;not null"`
	VariantID           uuid.UUID          `gorm:"column:variant_id;type:uuid;not null"`
	ProductID           uuid.UUID          `gorm:"column:product_id;type:uuid;not null"`
	ProductName         string             `gorm:"column:product_name;not null"`
	Size                string             `gorm:"column:size;not null"`
	Color               string             `gorm:"column:color;not null"`
	Quantity            int                `gorm:"column:quantity;not null"`
	UnitPricePaise      int64              `gorm:"column:unit_price_paise;not null"`
	FinalUnitPricePaise int64              `gorm:"column:final_unit_price_paise;not null"`
	DiscountPaise       int64              `gorm:"column:discount_paise;not null;default:0"`
	FinalPricePaise     int64              `gorm:"column:final_price_paise;not null"`
	Status              enums.ItemStatus   `gorm:"column:status;not null;default:'active'"`
	CancelReason        *string            `gorm:"column:cancel_reason"`
	ReturnStatus        enums.ReturnStatus `gorm:"column:return_status;not null;default:'none'"`
	ReturnReason        *string            `gorm:"column:return_reason"`
	ReturnDetails       *string            `gorm:"column:return_details"`
	ReturnRequestedAt   *time.Time         `gorm:"column:return_requested_at"`
	ReturnDecidedAt     *time.Time         `gorm:"column:return_decided_at"`
	ReturnProcessed     bool               `gorm:"column:return_processed;not null;default:false"`
	RefundAmountPaise   *int64             `gorm:"column:refund_amount_paise"`
	CreatedAt           time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
