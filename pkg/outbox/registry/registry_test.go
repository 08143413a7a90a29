package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartwise/storefront-backend/pkg/config"
	"github.com/kartwise/storefront-backend/pkg/db/models"
	"github.com/kartwise/storefront-backend/pkg/enums"
	"github.com/kartwise/storefront-backend/pkg/outbox"
	"github.com/kartwise/storefront-backend/pkg/outbox/payloads"
)

var testTopics = config.PubSubConfig{
	OrdersTopic:       "orders-topic",
	PaymentsTopic:     "payments-topic",
	WalletTopic:       "wallet-topic",
	NotificationTopic: "notification-topic",
}

func envelopeOf(t *testing.T, data any) json.RawMessage {
	t.Helper()
	body, ok := data.([]byte)
	if !ok {
		var err error
		body, err = json.Marshal(data)
		require.NoError(t, err)
	}
	raw, err := json.Marshal(outbox.Envelope{
		Version:    outbox.SchemaVersion,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       body,
	})
	require.NoError(t, err)
	return raw
}

func TestResolveDecodesTypedPayload(t *testing.T) {
	reg, err := NewEventRegistry(testTopics)
	require.NoError(t, err)
	orderID := uuid.New()

	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload: envelopeOf(t, payloads.OrderCreatedEvent{
			OrderID:       orderID,
			OrderNumber:   "ORD-20260301-ABCDEF12",
			UserID:        uuid.New(),
			PaymentMethod: enums.PaymentMethodCOD,
			TotalPaise:    50000,
			ItemCount:     2,
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, "orders-topic", resolved.Descriptor.Topic)
	payload, ok := resolved.Payload.(*payloads.OrderCreatedEvent)
	require.True(t, ok, "payload type %T", resolved.Payload)
	assert.Equal(t, orderID, payload.OrderID)
	assert.Equal(t, int64(50000), payload.TotalPaise)
}

func TestResolveRoutesByEventType(t *testing.T) {
	reg, err := NewEventRegistry(testTopics)
	require.NoError(t, err)

	cases := []struct {
		event     enums.OutboxEventType
		aggregate enums.OutboxAggregateType
		topic     string
	}{
		{enums.EventWalletCredited, enums.AggregateWallet, "wallet-topic"},
		{enums.EventPaymentFailed, enums.AggregatePayment, "payments-topic"},
		{enums.EventReturnRequested, enums.AggregateOrder, "notification-topic"},
		{enums.EventOffersSynced, enums.AggregateOffer, "notification-topic"},
	}
	for _, tc := range cases {
		t.Run(string(tc.event), func(t *testing.T) {
			resolved, err := reg.Resolve(models.OutboxEvent{
				EventType:     tc.event,
				AggregateType: tc.aggregate,
				AggregateID:   uuid.New(),
				Payload:       envelopeOf(t, []byte(`{}`)),
			})
			require.NoError(t, err)
			assert.Equal(t, tc.topic, resolved.Descriptor.Topic)
		})
	}
}

func TestResolveRejectsBadRowsAsNonRetryable(t *testing.T) {
	reg, err := NewEventRegistry(testTopics)
	require.NoError(t, err)

	cases := map[string]models.OutboxEvent{
		"unknown type": {
			EventType: "order_teleported", AggregateType: enums.AggregateOrder, AggregateID: uuid.New(),
			Payload: envelopeOf(t, []byte(`{}`)),
		},
		"aggregate mismatch": {
			EventType: enums.EventOrderCreated, AggregateType: enums.AggregateWallet, AggregateID: uuid.New(),
			Payload: envelopeOf(t, []byte(`{}`)),
		},
		"missing aggregate id": {
			EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder,
			Payload: envelopeOf(t, []byte(`{}`)),
		},
		"null data": {
			EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(),
			Payload: envelopeOf(t, []byte(`null`)),
		},
		"data of wrong shape": {
			EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(),
			Payload: envelopeOf(t, []byte(`{"total_paise":"lots"}`)),
		},
		"broken envelope": {
			EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(),
			Payload: json.RawMessage(`{"version":`),
		},
	}
	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(event)
			var nonRetry NonRetryableError
			assert.True(t, errors.As(err, &nonRetry), "got %v", err)
		})
	}
}

func TestNewEventRegistryNamesEveryMissingTopic(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{OrdersTopic: "orders-topic"})
	require.Error(t, err)
	for _, name := range []string{"payments", "wallet", "notification"} {
		assert.ErrorContains(t, err, name+" topic is required")
	}
}

func TestTopicsAreDistinctAndSorted(t *testing.T) {
	reg, err := NewEventRegistry(testTopics)
	require.NoError(t, err)
	assert.Equal(t, []string{"notification-topic", "orders-topic", "payments-topic", "wallet-topic"}, reg.Topics())
}
