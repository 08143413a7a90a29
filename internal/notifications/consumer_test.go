package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartwise/storefront-backend/pkg/db/models"
	"github.com/kartwise/storefront-backend/pkg/enums"
	"github.com/kartwise/storefront-backend/pkg/logger"
	"github.com/kartwise/storefront-backend/pkg/outbox"
	"github.com/kartwise/storefront-backend/pkg/outbox/payloads"
)

type memoryFeed struct {
	rows []*models.Notification
	err  error
}

func (m *memoryFeed) Create(_ context.Context, n *models.Notification) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	m.rows = append(m.rows, n)
	return true, nil
}

type memoryGuard struct {
	seen    map[string]bool
	deleted []string
	err     error
}

func (g *memoryGuard) CheckAndMarkProcessed(_ context.Context, consumer, eventID string) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	key := consumer + ":" + eventID
	if g.seen[key] {
		return true, nil
	}
	g.seen[key] = true
	return false, nil
}

func (g *memoryGuard) Delete(_ context.Context, consumer, eventID string) error {
	key := consumer + ":" + eventID
	delete(g.seen, key)
	g.deleted = append(g.deleted, key)
	return nil
}

func envelope(t *testing.T, eventID string, payload any) []byte {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	body, err := json.Marshal(outbox.Envelope{Version: 1, EventID: eventID, OccurredAt: time.Now().UTC(), Data: data})
	require.NoError(t, err)
	return body
}

func newTestConsumer(t *testing.T, feed *memoryFeed, guard *memoryGuard) *Consumer {
	t.Helper()
	c, err := NewConsumer(feed, []Receiver{nil}, guard, logger.Nop())
	require.NoError(t, err)
	return c
}

func TestProcessOrderCreatedOnce(t *testing.T) {
	feed := &memoryFeed{}
	guard := &memoryGuard{seen: map[string]bool{}}
	c := newTestConsumer(t, feed, guard)
	userID, orderID := uuid.New(), uuid.New()
	body := envelope(t, "evt-1", payloads.OrderCreatedEvent{
		OrderID:       orderID,
		OrderNumber:   "ORD-20261019-0001",
		UserID:        userID,
		PaymentMethod: enums.PaymentMethodWallet,
		TotalPaise:    108000,
	})

	res := c.process(context.Background(), string(enums.EventOrderCreated), body)
	assert.True(t, res.ack)
	res = c.process(context.Background(), string(enums.EventOrderCreated), body)
	assert.True(t, res.ack)

	require.Len(t, feed.rows, 1)
	n := feed.rows[0]
	assert.Equal(t, userID, n.UserID)
	assert.Equal(t, "evt-1", n.EventID)
	assert.Equal(t, "Your order ORD-20261019-0001 for ₹1080.00 has been placed.", n.Message)
	require.NotNil(t, n.OrderID)
	assert.Equal(t, orderID, *n.OrderID)
	assert.Equal(t, "/orders/"+orderID.String(), *n.Link)
}

func TestProcessSkipsUnhandledAndMalformed(t *testing.T) {
	feed := &memoryFeed{}
	guard := &memoryGuard{seen: map[string]bool{}}
	c := newTestConsumer(t, feed, guard)

	assert.True(t, c.process(context.Background(), string(enums.EventOffersSynced), []byte(`{}`)).ack)
	assert.True(t, c.process(context.Background(), string(enums.EventOrderCreated), []byte(`not json`)).ack)
	assert.True(t, c.process(context.Background(), string(enums.EventOrderCreated), envelope(t, "evt-2", map[string]any{"order_id": 5})).ack)
	assert.Empty(t, feed.rows)
}

func TestProcessNacksAndReleasesOnStoreFailure(t *testing.T) {
	feed := &memoryFeed{err: errors.New("db down")}
	guard := &memoryGuard{seen: map[string]bool{}}
	c := newTestConsumer(t, feed, guard)
	body := envelope(t, "evt-3", payloads.WalletCreditedEvent{UserID: uuid.New(), AmountPaise: 10800, BalancePaise: 30800})

	res := c.process(context.Background(), string(enums.EventWalletCredited), body)
	assert.True(t, res.nack)
	assert.Equal(t, []string{feedConsumer + ":evt-3"}, guard.deleted)
}

func TestProcessNacksWhenGuardUnavailable(t *testing.T) {
	guard := &memoryGuard{seen: map[string]bool{}, err: errors.New("redis down")}
	c := newTestConsumer(t, &memoryFeed{}, guard)
	body := envelope(t, "evt-4", payloads.PaymentFailedEvent{UserID: uuid.New()})

	assert.True(t, c.process(context.Background(), string(enums.EventPaymentFailed), body).nack)
}

func TestBuildMessages(t *testing.T) {
	userID, orderID := uuid.New(), uuid.New()
	cases := []struct {
		name    string
		event   enums.OutboxEventType
		payload any
		title   string
		message string
		kind    enums.NotificationType
	}{
		{
			name:    "cod order",
			event:   enums.EventOrderCreated,
			payload: payloads.OrderCreatedEvent{OrderID: orderID, OrderNumber: "ORD-1", UserID: userID, PaymentMethod: enums.PaymentMethodCOD, TotalPaise: 50000},
			title:   "Order placed",
			message: "Your order ORD-1 has been placed. Pay ₹500.00 on delivery.",
			kind:    enums.NotificationTypeOrder,
		},
		{
			name:    "cancel with refund",
			event:   enums.EventOrderCanceled,
			payload: payloads.OrderCanceledEvent{OrderID: orderID, OrderNumber: "ORD-1", UserID: userID, RefundPaise: 10800},
			title:   "Order cancelled",
			message: "Order ORD-1 was cancelled. ₹108.00 will be credited to your wallet.",
			kind:    enums.NotificationTypeOrder,
		},
		{
			name:    "shipped",
			event:   enums.EventOrderStatusChanged,
			payload: payloads.OrderStatusChangedEvent{OrderID: orderID, OrderNumber: "ORD-1", UserID: userID, From: enums.OrderStatusProcessing, To: enums.OrderStatusShipped},
			title:   "Order shipped",
			message: "Order ORD-1 is on its way.",
			kind:    enums.NotificationTypeOrder,
		},
		{
			name:    "return rejected",
			event:   enums.EventReturnDecided,
			payload: payloads.ReturnDecidedEvent{OrderID: orderID, OrderNumber: "ORD-1", UserID: userID, Decision: enums.ReturnDecisionReject},
			title:   "Return rejected",
			message: "Your return request on order ORD-1 was not approved.",
			kind:    enums.NotificationTypeReturn,
		},
		{
			name:    "payment failed",
			event:   enums.EventPaymentFailed,
			payload: payloads.PaymentFailedEvent{UserID: userID, Reason: "signature mismatch"},
			title:   "Payment failed",
			message: "Your payment could not be completed: signature mismatch. No order was placed.",
			kind:    enums.NotificationTypePayment,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.payload)
			require.NoError(t, err)
			n, err := Build(tc.event, "evt", data)
			require.NoError(t, err)
			require.NotNil(t, n)
			assert.Equal(t, tc.title, n.Title)
			assert.Equal(t, tc.message, n.Message)
			assert.Equal(t, tc.kind, n.Type)
			assert.Equal(t, userID, n.UserID)
		})
	}
}

func TestBuildRequiresUser(t *testing.T) {
	_, err := Build(enums.EventOrderCreated, "evt", json.RawMessage(`{"order_number":"ORD-1"}`))
	assert.Error(t, err)

	n, err := Build(enums.EventReturnRequested, "evt", json.RawMessage(`{}`))
	assert.NoError(t, err)
	assert.Nil(t, n)
}
