package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/kartwise/storefront-backend/api/middleware"
	"github.com/kartwise/storefront-backend/api/responses"
	"github.com/kartwise/storefront-backend/pkg/enums"
)

type testRequest struct {
	method string
	target string
	body   any
	userID uuid.UUID
	role   enums.Role
	params map[string]string
}

func serve(t *testing.T, h http.HandlerFunc, tr testRequest) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if tr.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(tr.body))
	}
	req := httptest.NewRequest(tr.method, tr.target, &body)
	req.Header.Set("Content-Type", "application/json")

	ctx := req.Context()
	if tr.userID != uuid.Nil {
		role := tr.role
		if role == "" {
			role = enums.RoleCustomer
		}
		ctx = middleware.WithPrincipal(ctx, middleware.Principal{UserID: tr.userID.String(), Role: role})
	}
	if len(tr.params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range tr.params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req.WithContext(ctx))
	return resp
}

func decodeData(t *testing.T, resp *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) responses.Problem {
	t.Helper()
	var envelope responses.ErrorEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope.Error
}
