package enums

// DiscountType selects how a coupon value is applied.
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

var discountTypes = enumOf("discount type",
	DiscountTypePercentage,
	DiscountTypeFixed,
)

func (d DiscountType) String() string {
	return string(d)
}

func (d DiscountType) IsValid() bool {
	return discountTypes.has(d)
}

// ParseDiscountType converts raw input into a DiscountType.
func ParseDiscountType(value string) (DiscountType, error) {
	return discountTypes.parse(value)
}
