package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/kartwise/storefront-backend/api/controllers/dto"
	"github.com/kartwise/storefront-backend/api/responses"
	"github.com/kartwise/storefront-backend/api/validators"
	"github.com/kartwise/storefront-backend/internal/discounts"
	"github.com/kartwise/storefront-backend/pkg/enums"
	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
	"github.com/kartwise/storefront-backend/pkg/logger"
)

type couponPayload struct {
	Code                string    `json:"code" validate:"required,coupon_code"`
	Description         string    `json:"description" validate:"omitempty,max=500"`
	DiscountType        string    `json:"discount_type" validate:"required,oneof=percentage fixed"`
	DiscountValue       int64     `json:"discount_value" validate:"required,gt=0"`
	MinOrderAmountPaise int64     `json:"min_order_amount_paise" validate:"gte=0"`
	StartDate           time.Time `json:"start_date" validate:"required"`
	EndDate             time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
}

func (p couponPayload) toInput() (discounts.CouponInput, error) {
	kind, err := enums.ParseDiscountType(strings.ToLower(p.DiscountType))
	if err != nil {
		return discounts.CouponInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount type")
	}
	return discounts.CouponInput{
		Code:                strings.TrimSpace(p.Code),
		Description:         validators.SanitizeString(p.Description, 500),
		DiscountType:        kind,
		DiscountValue:       p.DiscountValue,
		MinOrderAmountPaise: p.MinOrderAmountPaise,
		StartDate:           p.StartDate,
		EndDate:             p.EndDate,
	}, nil
}

// CouponsAvailable lists coupons the caller may still redeem.
func CouponsAvailable(svc discounts.CouponService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("coupon service"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupons, err := svc.ListAvailable(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"coupons": dto.NewCoupons(coupons)})
	}
}

func AdminCouponList(svc discounts.CouponService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("coupon service"))
			return
		}
		coupons, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"coupons": dto.NewCoupons(coupons)})
	}
}

func AdminCouponCreate(svc discounts.CouponService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("coupon service"))
			return
		}
		var payload couponPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, dto.NewCoupon(coupon))
	}
}

func AdminCouponUpdate(svc discounts.CouponService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("coupon service"))
			return
		}
		couponID, err := validators.ParseUUIDParam(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload couponPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.Update(r.Context(), couponID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.NewCoupon(coupon))
	}
}

func AdminCouponDelete(svc discounts.CouponService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("coupon service"))
			return
		}
		couponID, err := validators.ParseUUIDParam(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), couponID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": true})
	}
}
