package notifications

import (
	"context"
	"fmt"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"go.uber.org/multierr"

	"github.com/kartwise/storefront-backend/pkg/db/models"
	"github.com/kartwise/storefront-backend/pkg/enums"
	"github.com/kartwise/storefront-backend/pkg/logger"
	"github.com/kartwise/storefront-backend/pkg/outbox"
)

const feedConsumer = "customer-feed"

type creator interface {
	Create(ctx context.Context, notification *models.Notification) (bool, error)
}

type processedGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	Delete(ctx context.Context, consumer, eventID string) error
}

// Receiver is satisfied by *pubsub.Subscriber.
type Receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// Consumer turns published order, payment and wallet events into entries in
// the customer's notification feed.
type Consumer struct {
	repo          creator
	subscriptions []Receiver
	guard         processedGuard
	logg          *logger.Logger
}

// NewConsumer builds the feed consumer over one or more subscriptions.
func NewConsumer(repo creator, subscriptions []Receiver, guard processedGuard, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if len(subscriptions) == 0 {
		return nil, fmt.Errorf("at least one subscription required")
	}
	if guard == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:          repo,
		subscriptions: subscriptions,
		guard:         guard,
		logg:          logg,
	}, nil
}

// Run receives from every subscription until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	for _, sub := range c.subscriptions {
		wg.Add(1)
		go func(sub Receiver) {
			defer wg.Done()
			err := sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
				if c.process(ctx, msg.Attributes["event_type"], msg.Data).nack {
					msg.Nack()
					return
				}
				msg.Ack()
			})
			if err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
		}(sub)
	}
	wg.Wait()
	return errs
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, eventType string, data []byte) processResult {
	logCtx := c.logg.WithField(ctx, "event_type", eventType)
	if !handles(enums.OutboxEventType(eventType)) {
		return processResult{ack: true}
	}

	envelope, err := outbox.DecodeEnvelope(data)
	if err != nil {
		c.logg.Error(logCtx, "dropping undecodable envelope", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithField(logCtx, "event_id", envelope.EventID)

	already, err := c.guard.CheckAndMarkProcessed(ctx, feedConsumer, envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	notification, err := Build(enums.OutboxEventType(eventType), envelope.EventID, envelope.Data)
	if err != nil {
		// A payload that cannot be decoded will never succeed on redelivery.
		c.logg.Error(logCtx, "failed to build notification", err)
		return processResult{ack: true}
	}
	if notification == nil {
		return processResult{ack: true}
	}

	created, err := c.repo.Create(ctx, notification)
	if err != nil {
		c.logg.Error(logCtx, "notification insert failed", err)
		_ = c.guard.Delete(ctx, feedConsumer, envelope.EventID)
		return processResult{nack: true}
	}
	if created {
		c.logg.Info(c.logg.WithField(logCtx, "user_id", notification.UserID.String()), "customer notified")
	}
	return processResult{ack: true}
}
