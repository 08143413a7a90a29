package errors

import "net/http"

// Code is the stable, client-facing error class. It picks the HTTP status.
type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
	CodeVerification  Code = "PAYMENT_VERIFICATION_FAILED"
)

// Reason narrows a Code to the domain condition behind it, so clients can
// tell a stock conflict from a balance conflict without parsing messages.
type Reason string

const (
	ReasonEmptyCart            Reason = "EMPTY_CART"
	ReasonAddressNotFound      Reason = "ADDRESS_NOT_FOUND"
	ReasonProductUnavailable   Reason = "PRODUCT_UNAVAILABLE"
	ReasonInsufficientStock    Reason = "INSUFFICIENT_STOCK"
	ReasonInsufficientBalance  Reason = "INSUFFICIENT_BALANCE"
	ReasonInvalidCoupon        Reason = "INVALID_COUPON"
	ReasonCouponAlreadyUsed    Reason = "COUPON_ALREADY_USED"
	ReasonBelowMinimumOrder    Reason = "BELOW_MINIMUM_ORDER"
	ReasonCODLimitExceeded     Reason = "COD_LIMIT_EXCEEDED"
	ReasonAmountMismatch       Reason = "AMOUNT_MISMATCH"
	ReasonInvalidTransition    Reason = "INVALID_TRANSITION"
	ReasonNotDelivered         Reason = "NOT_DELIVERED"
	ReasonAlreadyRequested     Reason = "ALREADY_REQUESTED"
	ReasonAlreadyProcessed     Reason = "ALREADY_PROCESSED"
	ReasonConcurrentUpdate     Reason = "CONCURRENT_UPDATE"
	ReasonSignatureInvalid     Reason = "SIGNATURE_INVALID"
	ReasonPaymentProcessed     Reason = "PAYMENT_ALREADY_PROCESSED"
	ReasonGatewayUnavailable   Reason = "GATEWAY_UNAVAILABLE"
	ReasonQuantityLimit        Reason = "QUANTITY_LIMIT"
	ReasonDuplicateCouponCode  Reason = "DUPLICATE_COUPON_CODE"
	ReasonPaymentNotFound      Reason = "PAYMENT_NOT_FOUND"
	ReasonUnsupportedPayMethod Reason = "UNSUPPORTED_PAYMENT_METHOD"
)

// Metadata is how a Code is rendered on the wire.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	retryable = true
	detailsOK = true
	final     = false
	noDetails = false
)

var metadataByCode = map[Code]Metadata{
	CodeValidation:    {http.StatusBadRequest, final, "validation failed", detailsOK},
	CodeUnauthorized:  {http.StatusUnauthorized, final, "authentication required", noDetails},
	CodeForbidden:     {http.StatusForbidden, final, "access denied", noDetails},
	CodeNotFound:      {http.StatusNotFound, final, "resource not found", noDetails},
	CodeConflict:      {http.StatusConflict, final, "conflict detected", detailsOK},
	CodeStateConflict: {http.StatusUnprocessableEntity, final, "state transition disallowed", detailsOK},
	CodeIdempotency:   {http.StatusConflict, final, "idempotency key reused", detailsOK},
	CodeRateLimit:     {http.StatusTooManyRequests, final, "rate limit exceeded", noDetails},
	CodeInternal:      {http.StatusInternalServerError, retryable, "internal server error", noDetails},
	CodeDependency:    {http.StatusServiceUnavailable, retryable, "dependency unavailable", detailsOK},
	CodeVerification:  {http.StatusBadRequest, final, "payment verification failed", noDetails},
}

// MetadataFor falls back to CodeInternal for codes it does not know.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}
