package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/kartwise/storefront-backend/api/controllers/dto"
	"github.com/kartwise/storefront-backend/api/responses"
	"github.com/kartwise/storefront-backend/api/validators"
	"github.com/kartwise/storefront-backend/internal/orders"
	"github.com/kartwise/storefront-backend/pkg/enums"
	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
	"github.com/kartwise/storefront-backend/pkg/logger"
)

type advanceStatusPayload struct {
	Status string `json:"status" validate:"required"`
}

type returnDecisionPayload struct {
	Decision string `json:"decision" validate:"required,oneof=accept reject"`
}

// AdminOrderList lists every order with optional status, payment method,
// user, date range and order number filters.
func AdminOrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("orders service"))
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := parseAdminOrderFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListAll(r.Context(), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func AdminOrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("orders service"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.AdminGet(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.NewOrder(order))
	}
}

// AdminOrderStatus moves an order forward or cancels it on the customer's behalf.
func AdminOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("orders service"))
			return
		}
		actorID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload advanceStatusPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(strings.ToLower(strings.TrimSpace(payload.Status)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status"))
			return
		}

		order, err := svc.AdvanceStatus(r.Context(), orders.AdvanceStatusInput{
			OrderID: orderID,
			Status:  status,
			ActorID: actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.NewOrder(order))
	}
}

// AdminReturnDecision accepts or rejects a requested item return.
func AdminReturnDecision(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("orders service"))
			return
		}
		actorID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload returnDecisionPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		decision, err := enums.ParseReturnDecision(payload.Decision)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid return decision"))
			return
		}

		item, err := svc.DecideReturn(r.Context(), orders.DecideReturnInput{
			OrderID:  orderID,
			ItemID:   itemID,
			Decision: decision,
			ActorID:  actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.NewOrderItem(item))
	}
}

func parseAdminOrderFilters(r *http.Request) (orders.AdminOrderFilters, error) {
	var filters orders.AdminOrderFilters
	query := r.URL.Query()

	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(strings.ToLower(raw))
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &status
	}
	if raw := strings.TrimSpace(query.Get("payment_method")); raw != "" {
		method, err := enums.ParsePaymentMethod(strings.ToLower(raw))
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method filter")
		}
		filters.PaymentMethod = &method
	}
	userID, err := validators.ParseQueryUUID(r, "user_id")
	if err != nil {
		return filters, err
	}
	filters.UserID = userID

	if filters.DateFrom, err = parseDateQuery(r, "date_from"); err != nil {
		return filters, err
	}
	if filters.DateTo, err = parseDateQuery(r, "date_to"); err != nil {
		return filters, err
	}
	if filters.DateFrom != nil && filters.DateTo != nil && filters.DateTo.Before(*filters.DateFrom) {
		return filters, pkgerrors.New(pkgerrors.CodeValidation, "date_to must not precede date_from")
	}
	filters.Query = validators.SanitizeString(query.Get("q"), 64)
	return filters, nil
}

// parseDateQuery accepts RFC3339 timestamps or plain YYYY-MM-DD dates.
func parseDateQuery(r *http.Request, key string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if ts, err := time.Parse(layout, raw); err == nil {
			ts = ts.UTC()
			return &ts, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid date").WithDetails(map[string]any{"field": key})
}
