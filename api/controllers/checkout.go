package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/kartwise/storefront-backend/api/controllers/dto"
	"github.com/kartwise/storefront-backend/api/responses"
	"github.com/kartwise/storefront-backend/api/validators"
	"github.com/kartwise/storefront-backend/internal/checkout"
	"github.com/kartwise/storefront-backend/pkg/enums"
	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
	"github.com/kartwise/storefront-backend/pkg/logger"
)

type createOrderPayload struct {
	AddressID          uuid.UUID `json:"address_id" validate:"required"`
	PaymentMethod      string    `json:"payment_method" validate:"required,payment_method"`
	CouponCode         string    `json:"coupon_code" validate:"omitempty,coupon_code"`
	ExpectedTotalPaise *int64    `json:"expected_total_paise" validate:"omitempty,gte=0"`
}

// CheckoutSummary prices the current cart with an optional coupon.
func CheckoutSummary(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("checkout service"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon := validators.SanitizeString(r.URL.Query().Get("coupon"), 32)
		summary, err := svc.Quote(r.Context(), userID, coupon)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// CreateOrder places a cash-on-delivery or wallet order. Online orders are
// committed by payment verification instead.
func CreateOrder(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("checkout service"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createOrderPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(strings.ToLower(payload.PaymentMethod))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		order, err := svc.PlaceOrder(r.Context(), checkout.PlaceOrderInput{
			UserID:             userID,
			AddressID:          payload.AddressID,
			PaymentMethod:      method,
			CouponCode:         strings.TrimSpace(payload.CouponCode),
			ExpectedTotalPaise: payload.ExpectedTotalPaise,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, dto.NewPlacedOrder(order))
	}
}
