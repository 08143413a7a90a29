package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/kartwise/storefront-backend/pkg/db/models"
	"github.com/kartwise/storefront-backend/pkg/enums"
)

// AdminOrderFilters narrows the admin order list.
type AdminOrderFilters struct {
	Status        *enums.OrderStatus
	PaymentMethod *enums.PaymentMethod
	UserID        *uuid.UUID
	DateFrom      *time.Time
	DateTo        *time.Time
	Query         string
}

// ItemGuard is the state an order item must still be in for a conditional
// update to apply.
type ItemGuard struct {
	Status          *enums.ItemStatus
	ReturnStatus    *enums.ReturnStatus
	ReturnProcessed *bool
}

// OrderSummary is the list projection of an order.
type OrderSummary struct {
	ID                 uuid.UUID           `json:"id"`
	OrderNumber        string              `json:"order_number"`
	UserID             uuid.UUID           `json:"user_id"`
	Status             enums.OrderStatus   `json:"status"`
	PaymentMethod      enums.PaymentMethod `json:"payment_method"`
	PaymentStatus      enums.PaymentStatus `json:"payment_status"`
	TotalPaise         int64               `json:"total_paise"`
	TotalDiscountPaise int64               `json:"total_discount_paise"`
	TotalItems         int                 `json:"total_items"`
	CreatedAt          time.Time           `json:"created_at"`
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func summarize(order models.Order) OrderSummary {
	items := 0
	for _, item := range order.Items {
		items += item.Quantity
	}
	return OrderSummary{
		ID:                 order.ID,
		OrderNumber:        order.OrderNumber,
		UserID:             order.UserID,
		Status:             order.Status,
		PaymentMethod:      order.PaymentMethod,
		PaymentStatus:      order.PaymentStatus,
		TotalPaise:         order.TotalPaise,
		TotalDiscountPaise: order.TotalDiscountPaise(),
		TotalItems:         items,
		CreatedAt:          order.CreatedAt,
	}
}
