package enums

// OfferScope selects what an offer targets.
type OfferScope string

const (
	OfferScopeProduct  OfferScope = "product"
	OfferScopeCategory OfferScope = "category"
)

var offerScopes = enumOf("offer scope",
	OfferScopeProduct,
	OfferScopeCategory,
)

func (o OfferScope) String() string {
	return string(o)
}

func (o OfferScope) IsValid() bool {
	return offerScopes.has(o)
}

// ParseOfferScope converts raw input into a OfferScope.
func ParseOfferScope(value string) (OfferScope, error) {
	return offerScopes.parse(value)
}
