package enums

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregatePayment OutboxAggregateType = "payment"
	AggregateWallet  OutboxAggregateType = "wallet"
	AggregateOffer   OutboxAggregateType = "offer"
)

var aggregateTypes = enumOf("aggregate type",
	AggregateOrder,
	AggregatePayment,
	AggregateWallet,
	AggregateOffer,
)

func (a OutboxAggregateType) IsValid() bool {
	return aggregateTypes.has(a)
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return aggregateTypes.parse(value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order_created"
	EventOrderCanceled      OutboxEventType = "order_canceled"
	EventOrderStatusChanged OutboxEventType = "order_status_changed"
	EventReturnRequested    OutboxEventType = "return_requested"
	EventReturnDecided      OutboxEventType = "return_decided"
	EventWalletCredited     OutboxEventType = "wallet_credited"
	EventPaymentFailed      OutboxEventType = "payment_failed"
	EventOffersSynced       OutboxEventType = "offers_synced"
)

var outboxEventTypes = enumOf("event type",
	EventOrderCreated,
	EventOrderCanceled,
	EventOrderStatusChanged,
	EventReturnRequested,
	EventReturnDecided,
	EventWalletCredited,
	EventPaymentFailed,
	EventOffersSynced,
)

func (e OutboxEventType) IsValid() bool {
	return outboxEventTypes.has(e)
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return outboxEventTypes.parse(value)
}
