package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartwise/storefront-backend/api/controllers/dto"
	"github.com/kartwise/storefront-backend/internal/checkout"
	"github.com/kartwise/storefront-backend/internal/discounts"
	"github.com/kartwise/storefront-backend/pkg/db/models"
	"github.com/kartwise/storefront-backend/pkg/enums"
	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
)

type stubCheckout struct {
	checkout.Service
	place func(context.Context, checkout.PlaceOrderInput) (*models.Order, error)
	quote func(context.Context, uuid.UUID, string) (*checkout.Summary, error)
}

func (s *stubCheckout) PlaceOrder(ctx context.Context, in checkout.PlaceOrderInput) (*models.Order, error) {
	return s.place(ctx, in)
}

func (s *stubCheckout) Quote(ctx context.Context, userID uuid.UUID, coupon string) (*checkout.Summary, error) {
	return s.quote(ctx, userID, coupon)
}

func TestCreateOrderReturnsConfirmation(t *testing.T) {
	userID, addressID, orderID := uuid.New(), uuid.New(), uuid.New()
	expected := int64(108000)
	var got checkout.PlaceOrderInput
	svc := &stubCheckout{place: func(_ context.Context, in checkout.PlaceOrderInput) (*models.Order, error) {
		got = in
		return &models.Order{
			ID:                  orderID,
			OrderNumber:         "ORD-20261019-0001",
			SubtotalPaise:       120000,
			CouponDiscountPaise: 12000,
			TotalPaise:          108000,
		}, nil
	}}

	resp := serve(t, CreateOrder(svc, nil), testRequest{
		method: http.MethodPost,
		target: "/api/v1/orders",
		body: map[string]any{
			"address_id":           addressID,
			"payment_method":       "COD",
			"coupon_code":          " SAVE10 ",
			"expected_total_paise": expected,
		},
		userID: userID,
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	assert.Equal(t, userID, got.UserID)
	assert.Equal(t, addressID, got.AddressID)
	assert.Equal(t, enums.PaymentMethodCOD, got.PaymentMethod)
	assert.Equal(t, "SAVE10", got.CouponCode)
	require.NotNil(t, got.ExpectedTotalPaise)
	assert.Equal(t, expected, *got.ExpectedTotalPaise)

	var placed dto.PlacedOrder
	decodeData(t, resp, &placed)
	assert.Equal(t, orderID, placed.OrderID)
	assert.Equal(t, int64(108000), placed.TotalAmountPaise)
	assert.Equal(t, int64(12000), placed.TotalDiscountPaise)
}

func TestCreateOrderSurfacesCODLimit(t *testing.T) {
	svc := &stubCheckout{place: func(context.Context, checkout.PlaceOrderInput) (*models.Order, error) {
		return nil, pkgerrors.Validation(pkgerrors.ReasonCODLimitExceeded, "cash on delivery is limited to orders up to ₹1000")
	}}

	resp := serve(t, CreateOrder(svc, nil), testRequest{
		method: http.MethodPost,
		target: "/api/v1/orders",
		body:   map[string]any{"address_id": uuid.New(), "payment_method": "cod"},
		userID: uuid.New(),
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	apiErr := decodeError(t, resp)
	assert.Equal(t, string(pkgerrors.CodeValidation), apiErr.Code)
	assert.Equal(t, string(pkgerrors.ReasonCODLimitExceeded), apiErr.Reason)
}

func TestCreateOrderRejectsUnknownMethod(t *testing.T) {
	called := false
	svc := &stubCheckout{place: func(context.Context, checkout.PlaceOrderInput) (*models.Order, error) {
		called = true
		return nil, nil
	}}

	resp := serve(t, CreateOrder(svc, nil), testRequest{
		method: http.MethodPost,
		target: "/api/v1/orders",
		body:   map[string]any{"address_id": uuid.New(), "payment_method": "barter"},
		userID: uuid.New(),
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.False(t, called)
}

func TestCheckoutSummaryPassesCoupon(t *testing.T) {
	var gotCoupon string
	svc := &stubCheckout{quote: func(_ context.Context, _ uuid.UUID, coupon string) (*checkout.Summary, error) {
		gotCoupon = coupon
		return &checkout.Summary{
			Quote: &discounts.Quote{
				SubtotalPaise:       120000,
				CouponDiscountPaise: 12000,
				FinalTotalPaise:     108000,
			},
			CODAvailable:  false,
			CODLimitPaise: 100000,
		}, nil
	}}

	resp := serve(t, CheckoutSummary(svc, nil), testRequest{
		method: http.MethodGet,
		target: "/api/v1/checkout/summary?coupon=SAVE10",
		userID: uuid.New(),
	})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "SAVE10", gotCoupon)

	var body map[string]any
	decodeData(t, resp, &body)
	assert.EqualValues(t, 12000, body["coupon_discount_paise"])
	assert.Equal(t, false, body["cod_available"])
}
