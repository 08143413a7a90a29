package enums

// GatewayPaymentStatus tracks a payment gateway correlation record.
type GatewayPaymentStatus string

const (
	GatewayPaymentStatusCreated      GatewayPaymentStatus = "created"
	GatewayPaymentStatusCompleted    GatewayPaymentStatus = "completed"
	GatewayPaymentStatusFailed       GatewayPaymentStatus = "failed"
	GatewayPaymentStatusCancelled    GatewayPaymentStatus = "cancelled"
	GatewayPaymentStatusRetryPending GatewayPaymentStatus = "retry_pending"
)

var gatewayPaymentStatuses = enumOf("gateway payment status",
	GatewayPaymentStatusCreated,
	GatewayPaymentStatusCompleted,
	GatewayPaymentStatusFailed,
	GatewayPaymentStatusCancelled,
	GatewayPaymentStatusRetryPending,
)

func (g GatewayPaymentStatus) String() string {
	return string(g)
}

func (g GatewayPaymentStatus) IsValid() bool {
	return gatewayPaymentStatuses.has(g)
}

// ParseGatewayPaymentStatus converts raw input into a GatewayPaymentStatus.
func ParseGatewayPaymentStatus(value string) (GatewayPaymentStatus, error) {
	return gatewayPaymentStatuses.parse(value)
}
