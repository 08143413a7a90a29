package enums

// ReturnDecision is an admin verdict on a return request.
type ReturnDecision string

const (
	ReturnDecisionAccept ReturnDecision = "accept"
	ReturnDecisionReject ReturnDecision = "reject"
)

var returnDecisions = enumOf("return decision",
	ReturnDecisionAccept,
	ReturnDecisionReject,
)

func (r ReturnDecision) String() string {
	return string(r)
}

func (r ReturnDecision) IsValid() bool {
	return returnDecisions.has(r)
}

// ParseReturnDecision converts raw input into a ReturnDecision.
func ParseReturnDecision(value string) (ReturnDecision, error) {
	return returnDecisions.parse(value)
}
