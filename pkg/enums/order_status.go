package enums

// OrderStatus is the order-level fulfilment state.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var orderStatuses = enumOf("order status",
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
)

func (o OrderStatus) String() string {
	return string(o)
}

func (o OrderStatus) IsValid() bool {
	return orderStatuses.has(o)
}

// ParseOrderStatus converts raw input into a OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	return orderStatuses.parse(value)
}

// CanCancel reports whether a customer may still cancel an order in this state.
func (o OrderStatus) CanCancel() bool {
	return o == OrderStatusPending || o == OrderStatusProcessing
}

// NextAdminStatus returns the only forward state an admin may move the order to.
func (o OrderStatus) NextAdminStatus() (OrderStatus, bool) {
	switch o {
	case OrderStatusPending:
		return OrderStatusProcessing, true
	case OrderStatusProcessing:
		return OrderStatusShipped, true
	case OrderStatusShipped:
		return OrderStatusDelivered, true
	}
	return "", false
}
