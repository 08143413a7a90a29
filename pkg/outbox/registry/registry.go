// Package registry routes outbox event types to Pub/Sub topics and decodes
// their typed payloads.
package registry

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/kartwise/storefront-backend/pkg/config"
	"github.com/kartwise/storefront-backend/pkg/db/models"
	"github.com/kartwise/storefront-backend/pkg/enums"
	"github.com/kartwise/storefront-backend/pkg/outbox"
	"github.com/kartwise/storefront-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate, topic and payload
// schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is an outbox row that passed validation.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.Envelope
	Payload    any
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks a row that will fail the same way on every
// attempt. The publisher dead-letters it immediately.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func nonRetryable(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

func route[T any](event enums.OutboxEventType, aggregate enums.OutboxAggregateType, topic string) EventDescriptor {
	return EventDescriptor{
		EventType:      event,
		AggregateType:  aggregate,
		Topic:          topic,
		PayloadFactory: func() any { return new(T) },
	}
}

// NewEventRegistry builds the routing table. Every topic must be named.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	var missing error
	for name, topic := range map[string]string{
		"orders":       cfg.OrdersTopic,
		"payments":     cfg.PaymentsTopic,
		"wallet":       cfg.WalletTopic,
		"notification": cfg.NotificationTopic,
	} {
		if topic == "" {
			missing = errors.Join(missing, fmt.Errorf("%s topic is required", name))
		}
	}
	if missing != nil {
		return nil, missing
	}

	routes := []EventDescriptor{
		route[payloads.OrderCreatedEvent](enums.EventOrderCreated, enums.AggregateOrder, cfg.OrdersTopic),
		route[payloads.OrderCanceledEvent](enums.EventOrderCanceled, enums.AggregateOrder, cfg.OrdersTopic),
		route[payloads.ReturnDecidedEvent](enums.EventReturnDecided, enums.AggregateOrder, cfg.OrdersTopic),
		route[payloads.OrderStatusChangedEvent](enums.EventOrderStatusChanged, enums.AggregateOrder, cfg.NotificationTopic),
		route[payloads.ReturnRequestedEvent](enums.EventReturnRequested, enums.AggregateOrder, cfg.NotificationTopic),
		route[payloads.OffersSyncedEvent](enums.EventOffersSynced, enums.AggregateOffer, cfg.NotificationTopic),
		route[payloads.WalletCreditedEvent](enums.EventWalletCredited, enums.AggregateWallet, cfg.WalletTopic),
		route[payloads.PaymentFailedEvent](enums.EventPaymentFailed, enums.AggregatePayment, cfg.PaymentsTopic),
	}
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(routes))}
	for _, desc := range routes {
		reg.entries[desc.EventType] = desc
	}
	return reg, nil
}

// Topics lists the distinct topics the registry publishes to.
func (r *EventRegistry) Topics() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, desc := range r.entries {
		if _, ok := seen[desc.Topic]; ok {
			continue
		}
		seen[desc.Topic] = struct{}{}
		out = append(out, desc.Topic)
	}
	slices.Sort(out)
	return out
}

// Resolve checks the row against its descriptor and decodes the payload.
// Every failure is non-retryable.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, nonRetryable("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, nonRetryable("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, nonRetryable("missing aggregate_id")
	}

	env, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, nonRetryable("%s: %w", event.EventType, err)
	}
	payload := desc.PayloadFactory()
	if err := env.Bind(payload); err != nil {
		return nil, NewNonRetryableError(err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: env, Payload: payload}, nil
}
