package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kartwise/storefront-backend/api/controllers/dto"
	"github.com/kartwise/storefront-backend/api/responses"
	"github.com/kartwise/storefront-backend/api/validators"
	"github.com/kartwise/storefront-backend/internal/payments"
	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
	"github.com/kartwise/storefront-backend/pkg/logger"
)

type createIntentPayload struct {
	AddressID  uuid.UUID `json:"address_id" validate:"required"`
	CouponCode string    `json:"coupon_code" validate:"omitempty,coupon_code"`
}

type verifyPaymentPayload struct {
	CheckoutID       string `json:"checkout_id" validate:"required"`
	GatewayOrderID   string `json:"razorpay_order_id" validate:"required"`
	GatewayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature        string `json:"razorpay_signature" validate:"required"`
}

type paymentReasonPayload struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// PaymentIntent opens a gateway order for the priced cart. No order exists
// until the payment is verified.
func PaymentIntent(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("payments service"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createIntentPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := svc.CreateIntent(r.Context(), payments.CreateIntentInput{
			UserID:     userID,
			AddressID:  payload.AddressID,
			CouponCode: strings.TrimSpace(payload.CouponCode),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, intent)
	}
}

// PaymentVerify checks the gateway signature and commits the order.
func PaymentVerify(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("payments service"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload verifyPaymentPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Verify(r.Context(), payments.VerifyInput{
			UserID:           userID,
			CheckoutID:       strings.TrimSpace(payload.CheckoutID),
			GatewayOrderID:   strings.TrimSpace(payload.GatewayOrderID),
			GatewayPaymentID: strings.TrimSpace(payload.GatewayPaymentID),
			Signature:        strings.TrimSpace(payload.Signature),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, dto.NewPlacedOrder(order))
	}
}

// PaymentCancel records that the customer closed the gateway checkout.
func PaymentCancel(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return paymentStateHandler(svc, logg, func(r *http.Request, userID uuid.UUID, checkoutID, reason string) error {
		return svc.Cancel(r.Context(), userID, checkoutID, reason)
	}, "cancelled")
}

// PaymentFailure records a gateway failure reported by the client so the
// customer can retry the same checkout.
func PaymentFailure(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return paymentStateHandler(svc, logg, func(r *http.Request, userID uuid.UUID, checkoutID, reason string) error {
		return svc.MarkRetryPending(r.Context(), userID, checkoutID, reason)
	}, "retry_pending")
}

type paymentStateFunc func(r *http.Request, userID uuid.UUID, checkoutID, reason string) error

func paymentStateHandler(svc payments.Service, logg *logger.Logger, apply paymentStateFunc, status string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("payments service"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		checkoutID := strings.TrimSpace(chi.URLParam(r, "checkoutId"))
		if checkoutID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "checkoutId is required"))
			return
		}

		var payload paymentReasonPayload
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		if err := apply(r, userID, checkoutID, validators.SanitizeString(payload.Reason, 500)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"checkout_id": checkoutID, "status": status})
	}
}
