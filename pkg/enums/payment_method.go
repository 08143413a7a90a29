package enums

// PaymentMethod is how the customer settles an order.
type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "cod"
	PaymentMethodOnline PaymentMethod = "online"
	PaymentMethodWallet PaymentMethod = "wallet"
)

var paymentMethods = enumOf("payment method",
	PaymentMethodCOD,
	PaymentMethodOnline,
	PaymentMethodWallet,
)

func (p PaymentMethod) String() string {
	return string(p)
}

func (p PaymentMethod) IsValid() bool {
	return paymentMethods.has(p)
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return paymentMethods.parse(value)
}
