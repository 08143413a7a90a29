package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
	"github.com/kartwise/storefront-backend/pkg/logger"
)

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]string{"hello": "world"})

	require.Equal(t, http.StatusOK, w.Code)
	var body Envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "world", body.Data.(map[string]any)["hello"])
}

func TestWriteErrorCarriesReasonAndDetails(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.Conflict(pkgerrors.ReasonInsufficientStock, "only 1 left").
		WithDetails(map[string]any{"variant_id": "v1"})
	WriteError(context.Background(), nil, w, err)

	require.Equal(t, http.StatusConflict, w.Code)
	var body ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, string(pkgerrors.CodeConflict), body.Error.Code)
	assert.Equal(t, string(pkgerrors.ReasonInsufficientStock), body.Error.Reason)
	assert.Equal(t, "only 1 left", body.Error.Message)
	assert.NotNil(t, body.Error.Details)
}

func TestWriteErrorSignatureMismatchIsBadRequest(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeVerification, "payment signature mismatch").
		WithReason(pkgerrors.ReasonSignatureInvalid)
	WriteError(context.Background(), nil, w, err)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, string(pkgerrors.ReasonSignatureInvalid), body.Error.Reason)
}

func TestWriteErrorDefaultsToInternalForUntrustedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, errors.New("pq: connection refused"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "internal server error", body.Error.Message)
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeInternal, "wallet row missing").
		WithDetails(map[string]any{"table": "wallets"})
	WriteError(context.Background(), logger.Nop(), w, err)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "internal server error", body.Error.Message)
	assert.Nil(t, body.Error.Details)
}

func TestWriteErrorEchoesRequestIDAndRetryHint(t *testing.T) {
	w := httptest.NewRecorder()
	w.Header().Set(RequestIDHeader, "req-12345678")
	WriteError(context.Background(), nil, w, pkgerrors.New(pkgerrors.CodeDependency, "razorpay unreachable"))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "req-12345678", body.Error.RequestID)
	assert.True(t, body.Error.Retryable)
}
