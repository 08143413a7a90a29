package controllers

import (
	"net/http"

	"github.com/kartwise/storefront-backend/api/middleware"
	"github.com/kartwise/storefront-backend/api/responses"
)

func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{
			"scope":   "private",
			"status":  "ok",
			"user_id": middleware.UserIDFromContext(r.Context()),
			"role":    string(middleware.RoleFromContext(r.Context())),
		})
	}
}

func AdminPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{
			"scope":   "admin",
			"status":  "ok",
			"user_id": middleware.UserIDFromContext(r.Context()),
		})
	}
}
