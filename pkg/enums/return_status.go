package enums

// ReturnStatus is the return sub-state of an order line.
type ReturnStatus string

const (
	ReturnStatusNone     ReturnStatus = "none"
	ReturnStatusPending  ReturnStatus = "return_pending"
	ReturnStatusApproved ReturnStatus = "return_approved"
	ReturnStatusRejected ReturnStatus = "return_rejected"
	ReturnStatusRefunded ReturnStatus = "refunded"
)

var returnStatuses = enumOf("return status",
	ReturnStatusNone,
	ReturnStatusPending,
	ReturnStatusApproved,
	ReturnStatusRejected,
	ReturnStatusRefunded,
)

func (r ReturnStatus) String() string {
	return string(r)
}

func (r ReturnStatus) IsValid() bool {
	return returnStatuses.has(r)
}

// ParseReturnStatus converts raw input into a ReturnStatus.
func ParseReturnStatus(value string) (ReturnStatus, error) {
	return returnStatuses.parse(value)
}
