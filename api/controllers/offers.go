package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kartwise/storefront-backend/api/controllers/dto"
	"github.com/kartwise/storefront-backend/api/responses"
	"github.com/kartwise/storefront-backend/api/validators"
	"github.com/kartwise/storefront-backend/internal/discounts"
	"github.com/kartwise/storefront-backend/pkg/enums"
	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
	"github.com/kartwise/storefront-backend/pkg/logger"
)

type offerPayload struct {
	Name       string      `json:"name" validate:"required,max=120"`
	Scope      string      `json:"scope" validate:"required,oneof=product category"`
	Items      []uuid.UUID `json:"items" validate:"required,min=1,max=200"`
	Percentage int         `json:"percentage" validate:"required,gt=0,lte=100"`
	StartDate  time.Time   `json:"start_date" validate:"required"`
	EndDate    time.Time   `json:"end_date" validate:"required,gtfield=StartDate"`
	IsActive   *bool       `json:"is_active"`
}

func (p offerPayload) toInput() (discounts.OfferInput, error) {
	scope, err := enums.ParseOfferScope(strings.ToLower(p.Scope))
	if err != nil {
		return discounts.OfferInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid offer scope")
	}
	return discounts.OfferInput{
		Name:       validators.SanitizeString(p.Name, 120),
		Scope:      scope,
		RefIDs:     p.Items,
		Percentage: p.Percentage,
		StartDate:  p.StartDate,
		EndDate:    p.EndDate,
	}, nil
}

func AdminOfferList(svc discounts.OfferService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("offer service"))
			return
		}
		offers, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"offers": dto.NewOffers(offers)})
	}
}

func AdminOfferCreate(svc discounts.OfferService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("offer service"))
			return
		}
		var payload offerPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		offer, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, dto.NewOffer(offer))
	}
}

// AdminOfferUpdate replaces the offer terms and, when is_active is sent,
// toggles the offer on or off.
func AdminOfferUpdate(svc discounts.OfferService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("offer service"))
			return
		}
		offerID, err := validators.ParseUUIDParam(r, "offerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload offerPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		offer, err := svc.Update(r.Context(), offerID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.IsActive != nil && *payload.IsActive != offer.IsActive {
			offer, err = svc.SetActive(r.Context(), offerID, *payload.IsActive)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		responses.WriteSuccess(w, dto.NewOffer(offer))
	}
}

// AdminOfferSync reprices variants from the currently live offers.
func AdminOfferSync(svc discounts.OfferService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("offer service"))
			return
		}
		result, err := svc.Sync(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
