package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartwise/storefront-backend/api/controllers/dto"
	"github.com/kartwise/storefront-backend/internal/orders"
	"github.com/kartwise/storefront-backend/pkg/db/models"
	"github.com/kartwise/storefront-backend/pkg/enums"
	pkgerrors "github.com/kartwise/storefront-backend/pkg/errors"
	"github.com/kartwise/storefront-backend/pkg/pagination"
)

type stubOrders struct {
	orders.Service
	cancel  func(context.Context, orders.CancelInput) (*models.Order, error)
	decide  func(context.Context, orders.DecideReturnInput) (*models.OrderItem, error)
	listAll func(context.Context, orders.AdminOrderFilters, pagination.Params) (*orders.OrderList, error)
}

func (s *stubOrders) Cancel(ctx context.Context, in orders.CancelInput) (*models.Order, error) {
	return s.cancel(ctx, in)
}

func (s *stubOrders) DecideReturn(ctx context.Context, in orders.DecideReturnInput) (*models.OrderItem, error) {
	return s.decide(ctx, in)
}

func (s *stubOrders) ListAll(ctx context.Context, f orders.AdminOrderFilters, p pagination.Params) (*orders.OrderList, error) {
	return s.listAll(ctx, f, p)
}

func TestOrderCancelPassesCallerAndReason(t *testing.T) {
	userID, orderID := uuid.New(), uuid.New()
	var got orders.CancelInput
	svc := &stubOrders{cancel: func(_ context.Context, in orders.CancelInput) (*models.Order, error) {
		got = in
		return &models.Order{ID: in.OrderID, OrderNumber: "ORD-1", Status: enums.OrderStatusCancelled}, nil
	}}

	resp := serve(t, OrderCancel(svc, nil), testRequest{
		method: http.MethodPut,
		target: "/api/v1/orders/" + orderID.String() + "/cancel",
		body:   map[string]string{"reason": "  changed my mind "},
		userID: userID,
		params: map[string]string{"orderId": orderID.String()},
	})
	require.Equal(t, http.StatusOK, resp.Code)

	assert.Equal(t, orderID, got.OrderID)
	assert.Equal(t, userID, got.UserID)
	assert.Equal(t, "changed my mind", got.Reason)
	assert.Equal(t, enums.RoleCustomer, got.ActorRole)

	var order dto.Order
	decodeData(t, resp, &order)
	assert.Equal(t, enums.OrderStatusCancelled, order.Status)
	assert.Equal(t, "ORD-1", order.OrderNumber)
}

func TestOrderCancelRequiresUser(t *testing.T) {
	svc := &stubOrders{}
	resp := serve(t, OrderCancel(svc, nil), testRequest{
		method: http.MethodPut,
		target: "/api/v1/orders/x/cancel",
		body:   map[string]string{"reason": "x"},
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestOrderCancelSurfacesTransitionConflict(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrders{cancel: func(context.Context, orders.CancelInput) (*models.Order, error) {
		return nil, pkgerrors.StateConflict(pkgerrors.ReasonInvalidTransition, "order can no longer be cancelled")
	}}

	resp := serve(t, OrderCancel(svc, nil), testRequest{
		method: http.MethodPut,
		target: "/",
		body:   map[string]string{"reason": "late"},
		userID: uuid.New(),
		params: map[string]string{"orderId": orderID.String()},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	apiErr := decodeError(t, resp)
	assert.Equal(t, string(pkgerrors.ReasonInvalidTransition), apiErr.Reason)
}

func TestOrderDetailRejectsMalformedID(t *testing.T) {
	resp := serve(t, OrderDetail(&stubOrders{}, nil), testRequest{
		method: http.MethodGet,
		target: "/",
		userID: uuid.New(),
		params: map[string]string{"orderId": "not-a-uuid"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAdminReturnDecision(t *testing.T) {
	adminID, orderID, itemID := uuid.New(), uuid.New(), uuid.New()
	refund := int64(90000)
	var got orders.DecideReturnInput
	svc := &stubOrders{decide: func(_ context.Context, in orders.DecideReturnInput) (*models.OrderItem, error) {
		got = in
		return &models.OrderItem{ID: in.ItemID, ReturnStatus: enums.ReturnStatusRefunded, RefundAmountPaise: &refund}, nil
	}}
	params := map[string]string{"orderId": orderID.String(), "itemId": itemID.String()}

	resp := serve(t, AdminReturnDecision(svc, nil), testRequest{
		method: http.MethodPut,
		target: "/",
		body:   map[string]string{"decision": "accept"},
		userID: adminID,
		role:   enums.RoleAdmin,
		params: params,
	})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, enums.ReturnDecisionAccept, got.Decision)
	assert.Equal(t, adminID, got.ActorID)

	var item dto.OrderItem
	decodeData(t, resp, &item)
	require.NotNil(t, item.RefundAmountPaise)
	assert.Equal(t, refund, *item.RefundAmountPaise)

	resp = serve(t, AdminReturnDecision(svc, nil), testRequest{
		method: http.MethodPut,
		target: "/",
		body:   map[string]string{"decision": "maybe"},
		userID: adminID,
		role:   enums.RoleAdmin,
		params: params,
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAdminOrderListParsesFilters(t *testing.T) {
	userID := uuid.New()
	var gotFilters orders.AdminOrderFilters
	var gotParams pagination.Params
	svc := &stubOrders{listAll: func(_ context.Context, f orders.AdminOrderFilters, p pagination.Params) (*orders.OrderList, error) {
		gotFilters, gotParams = f, p
		return &orders.OrderList{Orders: []orders.OrderSummary{{OrderNumber: "ORD-9"}}}, nil
	}}

	resp := serve(t, AdminOrderList(svc, nil), testRequest{
		method: http.MethodGet,
		target: "/api/admin/v1/orders?limit=10&status=shipped&payment_method=cod&user_id=" + userID.String() + "&date_from=2026-10-01&q=ORD",
		userID: uuid.New(),
		role:   enums.RoleAdmin,
	})
	require.Equal(t, http.StatusOK, resp.Code)

	assert.Equal(t, 10, gotParams.Limit)
	require.NotNil(t, gotFilters.Status)
	assert.Equal(t, enums.OrderStatusShipped, *gotFilters.Status)
	require.NotNil(t, gotFilters.PaymentMethod)
	assert.Equal(t, enums.PaymentMethodCOD, *gotFilters.PaymentMethod)
	require.NotNil(t, gotFilters.UserID)
	assert.Equal(t, userID, *gotFilters.UserID)
	require.NotNil(t, gotFilters.DateFrom)
	assert.Equal(t, 2026, gotFilters.DateFrom.Year())
	assert.Nil(t, gotFilters.DateTo)
	assert.Equal(t, "ORD", gotFilters.Query)

	var list orders.OrderList
	decodeData(t, resp, &list)
	require.Len(t, list.Orders, 1)
}

func TestAdminOrderListRejectsBadStatus(t *testing.T) {
	resp := serve(t, AdminOrderList(&stubOrders{}, nil), testRequest{
		method: http.MethodGet,
		target: "/api/admin/v1/orders?status=teleported",
		userID: uuid.New(),
		role:   enums.RoleAdmin,
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
