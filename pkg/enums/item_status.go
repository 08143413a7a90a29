package enums

// ItemStatus tracks a single order line.
type ItemStatus string

const (
	ItemStatusActive    ItemStatus = "active"
	ItemStatusCancelled ItemStatus = "cancelled"
	ItemStatusReturned  ItemStatus = "returned"
)

var itemStatuses = enumOf("item status",
	ItemStatusActive,
	ItemStatusCancelled,
	ItemStatusReturned,
)

func (i ItemStatus) String() string {
	return string(i)
}

func (i ItemStatus) IsValid() bool {
	return itemStatuses.has(i)
}

// ParseItemStatus converts raw input into a ItemStatus.
func ParseItemStatus(value string) (ItemStatus, error) {
	return itemStatuses.parse(value)
}
