package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/kartwise/storefront-backend/pkg/db/models"
	"github.com/kartwise/storefront-backend/pkg/enums"
	"github.com/kartwise/storefront-backend/pkg/types"
)

// Order is the order detail exposed to customers and admins.
type Order struct {
	ID                   uuid.UUID             `json:"id"`
	OrderNumber          string                `json:"order_number"`
	UserID               uuid.UUID             `json:"user_id"`
	Status               enums.OrderStatus     `json:"status"`
	PaymentMethod        enums.PaymentMethod   `json:"payment_method"`
	PaymentStatus        enums.PaymentStatus   `json:"payment_status"`
	PaymentAmountPaise   int64                 `json:"payment_amount_paise"`
	SubtotalPaise        int64                 `json:"subtotal_paise"`
	ProductDiscountPaise int64                 `json:"product_discount_paise"`
	CouponDiscountPaise  int64                 `json:"coupon_discount_paise"`
	ShippingPaise        int64                 `json:"shipping_paise"`
	TotalPaise           int64                 `json:"total_paise"`
	CouponCode           *string               `json:"coupon_code,omitempty"`
	ShippingAddress      types.ShippingAddress `json:"shipping_address"`
	CancelReason         *string               `json:"cancel_reason,omitempty"`
	CancelledAt          *time.Time            `json:"cancelled_at,omitempty"`
	ShippedAt            *time.Time            `json:"shipped_at,omitempty"`
	DeliveredAt          *time.Time            `json:"delivered_at,omitempty"`
	Items                []OrderItem           `json:"items"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

type OrderItem struct {
	ID                  uuid.UUID          `json:"id"`
	VariantID           uuid.UUID          `json:"variant_id"`
	ProductID           uuid.UUID          `json:"product_id"`
	ProductName         string             `json:"product_name"`
	Size                string             `json:"size"`
	Color               string             `json:"color"`
	Quantity            int                `json:"quantity"`
	UnitPricePaise      int64              `json:"unit_price_paise"`
	FinalUnitPricePaise int64              `json:"final_unit_price_paise"`
	DiscountPaise       int64              `json:"discount_paise"`
	FinalPricePaise     int64              `json:"final_price_paise"`
	Status              enums.ItemStatus   `json:"status"`
	CancelReason        *string            `json:"cancel_reason,omitempty"`
	ReturnStatus        enums.ReturnStatus `json:"return_status"`
	ReturnReason        *string            `json:"return_reason,omitempty"`
	ReturnDetails       *string            `json:"return_details,omitempty"`
	ReturnRequestedAt   *time.Time         `json:"return_requested_at,omitempty"`
	ReturnDecidedAt     *time.Time         `json:"return_decided_at,omitempty"`
	RefundAmountPaise   *int64             `json:"refund_amount_paise,omitempty"`
}

// PlacedOrder is the checkout confirmation payload.
type PlacedOrder struct {
	OrderID            uuid.UUID `json:"order_id"`
	OrderNumber        string    `json:"order_number"`
	TotalAmountPaise   int64     `json:"total_amount_paise"`
	TotalDiscountPaise int64     `json:"total_discount_paise"`
}

func NewOrder(order *models.Order) Order {
	items := make([]OrderItem, 0, len(order.Items))
	for i := range order.Items {
		items = append(items, NewOrderItem(&order.Items[i]))
	}
	return Order{
		ID:                   order.ID,
		OrderNumber:          order.OrderNumber,
		UserID:               order.UserID,
		Status:               order.Status,
		PaymentMethod:        order.PaymentMethod,
		PaymentStatus:        order.PaymentStatus,
		PaymentAmountPaise:   order.PaymentAmountPaise,
		SubtotalPaise:        order.SubtotalPaise,
		ProductDiscountPaise: order.ProductDiscountPaise,
		CouponDiscountPaise:  order.CouponDiscountPaise,
		ShippingPaise:        order.ShippingPaise,
		TotalPaise:           order.TotalPaise,
		CouponCode:           order.CouponCode,
		ShippingAddress:      order.ShippingAddress,
		CancelReason:         order.CancelReason,
		CancelledAt:          order.CancelledAt,
		ShippedAt:            order.ShippedAt,
		DeliveredAt:          order.DeliveredAt,
		Items:                items,
		CreatedAt:            order.CreatedAt,
		UpdatedAt:            order.UpdatedAt,
	}
}

func NewOrderItem(item *models.OrderItem) OrderItem {
	return OrderItem{
		ID:                  item.ID,
		VariantID:           item.VariantID,
		ProductID:           item.ProductID,
		ProductName:         item.ProductName,
		Size:                item.Size,
		Color:               item.Color,
		Quantity:            item.Quantity,
		UnitPricePaise:      item.UnitPricePaise,
		FinalUnitPricePaise: item.FinalUnitPricePaise,
		DiscountPaise:       item.DiscountPaise,
		FinalPricePaise:     item.FinalPricePaise,
		Status:              item.Status,
		CancelReason:        item.CancelReason,
		ReturnStatus:        item.ReturnStatus,
		ReturnReason:        item.ReturnReason,
		ReturnDetails:       item.ReturnDetails,
		ReturnRequestedAt:   item.ReturnRequestedAt,
		ReturnDecidedAt:     item.ReturnDecidedAt,
		RefundAmountPaise:   item.RefundAmountPaise,
	}
}

func NewPlacedOrder(order *models.Order) PlacedOrder {
	return PlacedOrder{
		OrderID:            order.ID,
		OrderNumber:        order.OrderNumber,
		TotalAmountPaise:   order.TotalPaise,
		TotalDiscountPaise: order.TotalDiscountPaise(),
	}
}
