package controllers

import (
	"net/http"

	"github.com/kartwise/storefront-backend/api/controllers/dto"
	"github.com/kartwise/storefront-backend/api/responses"
	"github.com/kartwise/storefront-backend/api/validators"
	"github.com/kartwise/storefront-backend/internal/address"
	"github.com/kartwise/storefront-backend/pkg/logger"
)

type createAddressPayload struct {
	Name       string `json:"name" validate:"required,max=120"`
	Phone      string `json:"phone" validate:"required,phone"`
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2" validate:"omitempty,max=200"`
	Landmark   string `json:"landmark" validate:"omitempty,max=120"`
	City       string `json:"city" validate:"required,max=80"`
	State      string `json:"state" validate:"required,max=80"`
	PostalCode string `json:"postal_code" validate:"required,pincode"`
	Country    string `json:"country" validate:"omitempty,max=2"`
}

func AddressList(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("address service"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		addrs, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]dto.Address, 0, len(addrs))
		for i := range addrs {
			out = append(out, dto.NewAddress(&addrs[i]))
		}
		responses.WriteSuccess(w, map[string]any{"addresses": out})
	}
}

func AddressCreate(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("address service"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createAddressPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		addr, err := svc.Create(r.Context(), userID, address.CreateInput{
			Name:       validators.SanitizeString(payload.Name, 120),
			Phone:      validators.SanitizeString(payload.Phone, 15),
			Line1:      validators.SanitizeString(payload.Line1, 200),
			Line2:      validators.SanitizeString(payload.Line2, 200),
			Landmark:   validators.SanitizeString(payload.Landmark, 120),
			City:       validators.SanitizeString(payload.City, 80),
			State:      validators.SanitizeString(payload.State, 80),
			PostalCode: validators.SanitizeString(payload.PostalCode, 6),
			Country:    validators.SanitizeString(payload.Country, 2),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, dto.NewAddress(addr))
	}
}

func AddressDelete(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("address service"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		addressID, err := validators.ParseUUIDParam(r, "addressId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), addressID, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": true})
	}
}
