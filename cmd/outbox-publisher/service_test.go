package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kartwise/storefront-backend/pkg/config"
	"github.com/kartwise/storefront-backend/pkg/db/models"
	"github.com/kartwise/storefront-backend/pkg/enums"
	"github.com/kartwise/storefront-backend/pkg/logger"
	"github.com/kartwise/storefront-backend/pkg/outbox"
	"github.com/kartwise/storefront-backend/pkg/outbox/registry"
)

var errTransient = errors.New("transient")

func TestProcessBatchRetriesFailureAndPublishesRest(t *testing.T) {
	first, second := orderEvent(t, enums.EventOrderCreated, uuid.New()), orderEvent(t, enums.EventOrderCreated, uuid.New())
	repo := &fakeRepo{events: []models.OutboxEvent{first, second}}
	pub := &fakePublisher{errs: []error{errTransient, nil}}
	recorder := &fakeRecorder{}
	svc := newTestService(t, repo, pub, resolvesTo("storefront-order-events"), config.OutboxConfig{})
	svc.metrics = recorder

	processed, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, []uuid.UUID{first.ID}, repo.failed)
	assert.Equal(t, []uuid.UUID{second.ID}, repo.published)
	assert.Empty(t, repo.dead)
	assert.Equal(t, fakeRecorder{published: 1, retried: 1}, *recorder)
}

func TestProcessBatchEmptyClaim(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(t, &fakeRepo{}, pub, resolvesTo("t"), config.OutboxConfig{})

	processed, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
	assert.Empty(t, pub.sent)
}

func TestPublishedMessageCarriesRoutingAttributes(t *testing.T) {
	walletID := uuid.New()
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventWalletCredited,
		AggregateType: enums.AggregateWallet,
		AggregateID:   walletID,
		Payload:       envelopeJSON(t, "wallet-credit"),
	}
	pub := &fakePublisher{}
	svc := newTestService(t, &fakeRepo{events: []models.OutboxEvent{event}}, pub, resolvesTo("storefront-wallet-events"), config.OutboxConfig{})

	_, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, pub.sent, 1)

	msg := pub.sent[0]
	assert.Equal(t, "wallet:"+walletID.String(), msg.OrderingKey)
	assert.JSONEq(t, string(event.Payload), string(msg.Data))
	assert.Equal(t, map[string]string{
		"event_id":       event.ID.String(),
		"event_type":     string(enums.EventWalletCredited),
		"aggregate_type": string(enums.AggregateWallet),
		"aggregate_id":   walletID.String(),
		"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
		"schema_version": "1",
	}, msg.Attributes)
}

func TestProcessBatchDeadLetters(t *testing.T) {
	cases := []struct {
		name     string
		attempts int
		resolver *fakeRegistry
		pubErrs  []error
		reason   enums.OutboxDLQErrorReason
	}{
		{
			name:     "undecodable payload",
			resolver: &fakeRegistry{err: registry.NewNonRetryableError(errors.New("invalid payload"))},
			reason:   enums.OutboxDLQReasonNonRetryable,
		},
		{
			name:     "publisher reports non-retryable",
			resolver: resolvesTo("storefront-order-events"),
			pubErrs:  []error{registry.NewNonRetryableError(errors.New("topic gone"))},
			reason:   enums.OutboxDLQReasonNonRetryable,
		},
		{
			name:     "last attempt fails",
			attempts: 4,
			resolver: resolvesTo("storefront-order-events"),
			pubErrs:  []error{errTransient},
			reason:   enums.OutboxDLQReasonMaxAttempts,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event := orderEvent(t, enums.EventOrderCreated, uuid.New())
			event.AttemptCount = tc.attempts
			repo := &fakeRepo{events: []models.OutboxEvent{event}}
			svc := newTestService(t, repo, &fakePublisher{errs: tc.pubErrs}, tc.resolver, config.OutboxConfig{MaxAttempts: 5})

			_, err := svc.processBatch(context.Background())
			require.NoError(t, err)
			require.Len(t, repo.dead, 1)
			assert.Equal(t, event.ID, repo.dead[0].event.ID)
			assert.Equal(t, tc.reason, repo.dead[0].reason)
			assert.Equal(t, 5, repo.dead[0].ceiling)
			assert.Empty(t, repo.failed, "dead-lettered rows are not also recorded as failures")
			assert.Empty(t, repo.published)
		})
	}
}

func TestProcessBatchHoldsLaterEventsOfFailedAggregate(t *testing.T) {
	orderID := uuid.New()
	created := orderEvent(t, enums.EventOrderCreated, orderID)
	canceled := orderEvent(t, enums.EventOrderCanceled, orderID)
	other := orderEvent(t, enums.EventOrderCreated, uuid.New())

	repo := &fakeRepo{events: []models.OutboxEvent{created, canceled, other}}
	pub := &fakePublisher{errs: []error{errors.New("deadline exceeded"), nil}}
	svc := newTestService(t, repo, pub, resolvesTo("storefront-order-events"), config.OutboxConfig{BatchSize: 3})

	_, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.Len(t, pub.sent, 2, "canceled must wait for created")
	assert.Equal(t, []uuid.UUID{created.ID}, repo.failed)
	assert.Equal(t, []uuid.UUID{other.ID}, repo.published)
}

func TestProcessBatchStopsOnRepositoryError(t *testing.T) {
	repo := &fakeRepo{
		events:     []models.OutboxEvent{orderEvent(t, enums.EventOrderCreated, uuid.New())},
		publishErr: errors.New("connection reset"),
	}
	svc := newTestService(t, repo, &fakePublisher{}, resolvesTo("storefront-order-events"), config.OutboxConfig{})

	_, err := svc.processBatch(context.Background())
	assert.ErrorContains(t, err, "connection reset")
}

func newTestService(t *testing.T, repo outboxRepository, pub *fakePublisher, resolver registryResolver, cfg config.OutboxConfig) *Service {
	t.Helper()
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 2
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 5
	}
	cfg.PollIntervalMS = 100
	svc, err := NewService(ServiceParams{
		Config:           &config.Config{Outbox: cfg},
		Logger:           logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:               fakeDB{},
		PubSub:           fakePubSubClient{},
		Repository:       repo,
		Registry:         resolver,
		PublisherFactory: func(string) publisher { return pub },
	})
	require.NoError(t, err)
	return svc
}

func orderEvent(t *testing.T, eventType enums.OutboxEventType, orderID uuid.UUID) models.OutboxEvent {
	t.Helper()
	id := uuid.New()
	return models.OutboxEvent{
		ID:            id,
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       envelopeJSON(t, id.String()),
	}
}

func envelopeJSON(t *testing.T, eventID string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(outbox.Envelope{
		Version:    outbox.SchemaVersion,
		EventID:    eventID,
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	return raw
}

type deadLetter struct {
	event   models.OutboxEvent
	reason  enums.OutboxDLQErrorReason
	ceiling int
}

type fakeRepo struct {
	events     []models.OutboxEvent
	publishErr error

	published []uuid.UUID
	failed    []uuid.UUID
	dead      []deadLetter
}

func (f *fakeRepo) Claim(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublished(_ *gorm.DB, id uuid.UUID) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) RecordFailure(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) DeadLetter(_ *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, _ error, ceiling int) error {
	f.dead = append(f.dead, deadLetter{event: event, reason: reason, ceiling: ceiling})
	return nil
}

type fakeDB struct{}

func (fakeDB) Ping(context.Context) error { return nil }

func (fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type fakePubSubClient struct{}

func (fakePubSubClient) Ping(context.Context) error { return nil }

func (fakePubSubClient) Publisher(string) *gcppubsub.Publisher { return nil }

// fakePublisher hands out errs in order, then succeeds.
type fakePublisher struct {
	errs []error
	sent []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.sent = append(f.sent, msg)
	var err error
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	}
	return fakePublishResult{err: err}
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	return "server-id", f.err
}

// fakeRegistry echoes the event id into the envelope like the real
// registry does after decoding.
type fakeRegistry struct {
	topic string
	err   error
}

func resolvesTo(topic string) *fakeRegistry {
	return &fakeRegistry{topic: topic}
}

func (f *fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{EventType: event.EventType, AggregateType: event.AggregateType, Topic: f.topic},
		Envelope:   outbox.Envelope{Version: outbox.SchemaVersion, EventID: event.ID.String(), OccurredAt: time.Now()},
	}, nil
}

type fakeRecorder struct {
	published, retried, dead int
}

func (f *fakeRecorder) IncPublished(string)            { f.published++ }
func (f *fakeRecorder) IncRetried(string)              { f.retried++ }
func (f *fakeRecorder) IncDeadLettered(string, string) { f.dead++ }
