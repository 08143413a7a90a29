// Package idempotency de-duplicates at-least-once deliveries (gateway
// webhooks, Pub/Sub pushes) per consumer.
package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kartwise/storefront-backend/pkg/redis"
)

// Manager claims an event id for a consumer. The marker value is the claim
// time so operators can tell when a delivery was first seen.
type Manager struct {
	store redis.EventStore
	ttl   time.Duration
	now   func() time.Time
}

// NewManager returns a guard whose markers expire after ttl. A zero ttl
// keeps markers forever.
func NewManager(store redis.EventStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("event store required")
	}
	if ttl < 0 {
		return nil, errors.New("marker ttl cannot be negative")
	}
	return &Manager{store: store, ttl: ttl, now: time.Now}, nil
}

// CheckAndMarkProcessed reports whether consumer has already claimed
// eventID. The first caller claims it and gets false.
func (m *Manager) CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	claimed, err := m.store.SetNX(ctx, key, m.now().UTC().Format(time.RFC3339), m.ttl)
	if err != nil {
		return false, err
	}
	return !claimed, nil
}

// Delete drops the claim so the sender's redelivery is handled again.
func (m *Manager) Delete(ctx context.Context, consumer, eventID string) error {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) key(consumer, eventID string) (string, error) {
	consumer = strings.TrimSpace(consumer)
	eventID = strings.TrimSpace(eventID)
	switch {
	case consumer == "":
		return "", errors.New("consumer required")
	case eventID == "":
		return "", errors.New("event id required")
	}
	return m.store.EventKey(consumer, eventID), nil
}
