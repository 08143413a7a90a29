package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartwise/storefront-backend/internal/payments"
	"github.com/kartwise/storefront-backend/pkg/db/models"
	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
)

type stubPayments struct {
	payments.Service
	verify func(context.Context, payments.VerifyInput) (*models.Order, error)
	cancel func(ctx context.Context, userID uuid.UUID, checkoutID, reason string) error
	retry  func(ctx context.Context, userID uuid.UUID, checkoutID, reason string) error
}

func (s *stubPayments) Verify(ctx context.Context, in payments.VerifyInput) (*models.Order, error) {
	return s.verify(ctx, in)
}

func (s *stubPayments) Cancel(ctx context.Context, userID uuid.UUID, checkoutID, reason string) error {
	return s.cancel(ctx, userID, checkoutID, reason)
}

func (s *stubPayments) MarkRetryPending(ctx context.Context, userID uuid.UUID, checkoutID, reason string) error {
	return s.retry(ctx, userID, checkoutID, reason)
}

func verifyBody() map[string]string {
	return map[string]string{
		"checkout_id":         "chk_123",
		"razorpay_order_id":   "order_123",
		"razorpay_payment_id": "pay_123",
		"razorpay_signature":  "deadbeef",
	}
}

func TestPaymentVerifyCreatesOrder(t *testing.T) {
	userID := uuid.New()
	var got payments.VerifyInput
	svc := &stubPayments{verify: func(_ context.Context, in payments.VerifyInput) (*models.Order, error) {
		got = in
		return &models.Order{ID: uuid.New(), OrderNumber: "ORD-2", TotalPaise: 250000}, nil
	}}

	resp := serve(t, PaymentVerify(svc, nil), testRequest{
		method: http.MethodPost,
		target: "/api/v1/payments/verify",
		body:   verifyBody(),
		userID: userID,
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, payments.VerifyInput{
		UserID:           userID,
		CheckoutID:       "chk_123",
		GatewayOrderID:   "order_123",
		GatewayPaymentID: "pay_123",
		Signature:        "deadbeef",
	}, got)
}

func TestPaymentVerifySignatureMismatchIsBadRequest(t *testing.T) {
	svc := &stubPayments{verify: func(context.Context, payments.VerifyInput) (*models.Order, error) {
		return nil, pkgerrors.New(pkgerrors.CodeVerification, "payment signature mismatch").WithReason(pkgerrors.ReasonSignatureInvalid)
	}}

	resp := serve(t, PaymentVerify(svc, nil), testRequest{
		method: http.MethodPost,
		target: "/api/v1/payments/verify",
		body:   verifyBody(),
		userID: uuid.New(),
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	apiErr := decodeError(t, resp)
	assert.Equal(t, string(pkgerrors.ReasonSignatureInvalid), apiErr.Reason)
}

func TestPaymentVerifyRequiresAllFields(t *testing.T) {
	body := verifyBody()
	delete(body, "razorpay_signature")
	resp := serve(t, PaymentVerify(&stubPayments{}, nil), testRequest{
		method: http.MethodPost,
		target: "/api/v1/payments/verify",
		body:   body,
		userID: uuid.New(),
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestPaymentCancelAndFailure(t *testing.T) {
	userID := uuid.New()
	var calls []string
	svc := &stubPayments{
		cancel: func(_ context.Context, uid uuid.UUID, checkoutID, reason string) error {
			assert.Equal(t, userID, uid)
			calls = append(calls, "cancel:"+checkoutID+":"+reason)
			return nil
		},
		retry: func(_ context.Context, _ uuid.UUID, checkoutID, reason string) error {
			calls = append(calls, "retry:"+checkoutID+":"+reason)
			return nil
		},
	}
	params := map[string]string{"checkoutId": "chk_9"}

	resp := serve(t, PaymentCancel(svc, nil), testRequest{
		method: http.MethodPost, target: "/", userID: userID, params: params,
	})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = serve(t, PaymentFailure(svc, nil), testRequest{
		method: http.MethodPost, target: "/", userID: userID, params: params,
		body: map[string]string{"reason": "card declined"},
	})
	require.Equal(t, http.StatusOK, resp.Code)
	var body map[string]string
	decodeData(t, resp, &body)
	assert.Equal(t, "retry_pending", body["status"])

	assert.Equal(t, []string{"cancel:chk_9:", "retry:chk_9:card declined"}, calls)
}
