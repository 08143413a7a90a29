package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"gorm.io/gorm"

	"github.com/kartwise/storefront-backend/pkg/db/models"
	"github.com/kartwise/storefront-backend/pkg/enums"
	"github.com/kartwise/storefront-backend/pkg/outbox/registry"
)

// batchState tracks ordering keys that failed earlier in the same batch.
// Later events for those aggregates are held back so an order's events
// never overtake each other.
type batchState struct {
	held map[string]struct{}
}

func (s *Service) processBatch(ctx context.Context) (bool, error) {
	processed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.Claim(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		processed = len(events) > 0

		state := &batchState{held: map[string]struct{}{}}
		for _, event := range events {
			if err := s.dispatch(ctx, tx, state, event); err != nil {
				return err
			}
		}
		return nil
	})
	return processed, err
}

func (s *Service) dispatch(ctx context.Context, tx *gorm.DB, state *batchState, event models.OutboxEvent) error {
	key := orderingKey(event)
	fields := eventFields(event, nil)
	if _, blocked := state.held[key]; blocked {
		s.logg.Debug(s.logg.WithFields(ctx, fields), "outbox event held behind failed predecessor")
		return nil
	}

	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, fields)
	}
	fields = eventFields(event, resolved)

	pubErr := s.publish(ctx, event, resolved)
	if pubErr == nil {
		if err := s.repo.MarkPublished(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		if s.metrics != nil {
			s.metrics.IncPublished(string(event.EventType))
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event published")
		return nil
	}

	state.held[key] = struct{}{}
	if reason, terminal := s.classify(event, pubErr); terminal {
		if reason == enums.OutboxDLQReasonMaxAttempts {
			pubErr = fmt.Errorf("max publish attempts reached: %w", pubErr)
		}
		return s.deadLetter(ctx, tx, event, reason, pubErr, fields)
	}

	fields["attempt_count"] = event.AttemptCount + 1
	fields["error"] = pubErr.Error()
	s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox publish failed, will retry")
	if s.metrics != nil {
		s.metrics.IncRetried(string(event.EventType))
	}
	if err := s.repo.RecordFailure(tx, event.ID, pubErr); err != nil {
		return fmt.Errorf("mark failure %s: %w", event.ID, err)
	}
	return nil
}

// classify reports whether a publish error ends the event's life.
func (s *Service) classify(event models.OutboxEvent, err error) (enums.OutboxDLQErrorReason, bool) {
	var nonRetry registry.NonRetryableError
	if errors.As(err, &nonRetry) {
		return enums.OutboxDLQReasonNonRetryable, true
	}
	if event.AttemptCount+1 >= s.maxAttempts {
		return enums.OutboxDLQReasonMaxAttempts, true
	}
	return "", false
}

func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, fields map[string]any) error {
	fields["dlq_reason"] = reason
	fields["error"] = cause.Error()
	s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox event dead-lettered")

	if err := s.repo.DeadLetter(tx, event, reason, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("dead-letter %s: %w", event.ID, err)
	}
	if s.metrics != nil {
		s.metrics.IncDeadLettered(string(event.EventType), string(reason))
	}
	return nil
}

func (s *Service) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := s.publisherFor(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %s", topic))
	}

	msg := &gcppubsub.Message{
		Data:        event.Payload,
		OrderingKey: orderingKey(event),
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
			"schema_version": strconv.Itoa(resolved.Envelope.Version),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, msg)
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned no result for topic %s", topic))
	}
	_, err := result.Get(publishCtx)
	return err
}

// orderingKey groups events of one aggregate (an order, a wallet) so
// subscribers see them in commit order.
func orderingKey(event models.OutboxEvent) string {
	return string(event.AggregateType) + ":" + event.AggregateID.String()
}

func eventFields(event models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	if resolved != nil {
		fields["topic"] = resolved.Descriptor.Topic
		if resolved.Envelope.EventID != "" {
			fields["event_id"] = resolved.Envelope.EventID
		}
	}
	return fields
}
