package controllers

import (
	"net/http"

	"github.com/kartwise/storefront-backend/api/controllers/dto"
	"github.com/kartwise/storefront-backend/api/responses"
	"github.com/kartwise/storefront-backend/api/validators"
	"github.com/kartwise/storefront-backend/internal/wallet"
	"github.com/kartwise/storefront-backend/pkg/logger"
)

// WalletGet returns the balance and a page of ledger entries.
func WalletGet(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("wallet service"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.GetWallet(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.NewWallet(view))
	}
}

// AdminWalletReconcile compares a user's cached balance with the sum of their
// ledger entries.
func AdminWalletReconcile(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("wallet service"))
			return
		}
		userID, err := validators.ParseUUIDParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rec, err := svc.Reconcile(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !rec.Balanced && logg != nil {
			logg.Warn(logg.WithFields(r.Context(), map[string]any{
				"user_id":        userID.String(),
				"balance_paise":  rec.BalancePaise,
				"computed_paise": rec.ComputedPaise,
			}), "wallet balance drift")
		}
		responses.WriteSuccess(w, dto.NewWalletReconciliation(rec))
	}
}
