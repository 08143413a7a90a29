package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/kartwise/storefront-backend/pkg/enums"
)

// OrderCreatedEvent is emitted once an order row commits.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	UserID        uuid.UUID           `json:"user_id"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	TotalPaise    int64               `json:"total_paise"`
	DiscountPaise int64               `json:"discount_paise"`
	ItemCount     int                 `json:"item_count"`
	CouponCode    *string             `json:"coupon_code,omitempty"`
	PlacedAt      time.Time           `json:"placed_at"`
}

// OrderCanceledEvent is emitted when a customer cancels before shipping.
type OrderCanceledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      uuid.UUID `json:"user_id"`
	RefundPaise int64     `json:"refund_paise"`
	Reason      string    `json:"reason,omitempty"`
	CanceledAt  time.Time `json:"canceled_at"`
}

// OrderStatusChangedEvent is emitted on admin status moves.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	UserID      uuid.UUID         `json:"user_id"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	ChangedAt   time.Time         `json:"changed_at"`
}

// ReturnRequestedEvent notifies admins of a pending return.
type ReturnRequestedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	ItemID      uuid.UUID `json:"item_id"`
	UserID      uuid.UUID `json:"user_id"`
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

// ReturnDecidedEvent carries the admin verdict and the refund, if any.
type ReturnDecidedEvent struct {
	OrderID     uuid.UUID            `json:"order_id"`
	OrderNumber string               `json:"order_number"`
	ItemID      uuid.UUID            `json:"item_id"`
	UserID      uuid.UUID            `json:"user_id"`
	Decision    enums.ReturnDecision `json:"decision"`
	RefundPaise int64                `json:"refund_paise"`
	DecidedAt   time.Time            `json:"decided_at"`
}

// WalletCreditedEvent is emitted for every refund credited to a wallet.
type WalletCreditedEvent struct {
	UserID       uuid.UUID `json:"user_id"`
	AmountPaise  int64     `json:"amount_paise"`
	BalancePaise int64     `json:"balance_paise"`
	OrderRef     string    `json:"order_ref,omitempty"`
	Description  string    `json:"description"`
}

// PaymentFailedEvent is emitted when verification or the gateway reports failure.
type PaymentFailedEvent struct {
	PaymentID      uuid.UUID `json:"payment_id"`
	UserID         uuid.UUID `json:"user_id"`
	GatewayOrderID string    `json:"gateway_order_id"`
	Reason         string    `json:"reason"`
}

// OffersSyncedEvent summarises an offer price recompute.
type OffersSyncedEvent struct {
	ActiveOffers      int       `json:"active_offers"`
	VariantsPriced    int       `json:"variants_priced"`
	OffersDeactivated int       `json:"offers_deactivated"`
	SyncedAt          time.Time `json:"synced_at"`
}
