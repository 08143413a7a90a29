package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/kartwise/storefront-backend/pkg/logger"
)

const defaultOutboxRetention = 30 * 24 * time.Hour

type OutboxRetentionJobParams struct {
	Logger    *logger.Logger
	Outbox    outboxPruner
	Retention time.Duration
}

type outboxPruner interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteDeadLettersBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewOutboxRetentionJob prunes published outbox rows and dead letters past
// the retention window.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultOutboxRetention
	}
	return &outboxRetentionJob{
		logg:      params.Logger,
		outbox:    params.Outbox,
		retention: retention,
		now:       time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	outbox    outboxPruner
	retention time.Duration
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)

	// both tables are pruned even when the first delete fails
	published, pubErr := j.outbox.DeletePublishedBefore(ctx, cutoff)
	dead, dlqErr := j.outbox.DeleteDeadLettersBefore(ctx, cutoff)
	if err := multierr.Combine(wrapPrune("published events", pubErr), wrapPrune("dead letters", dlqErr)); err != nil {
		return err
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":        cutoff,
		"events_pruned": published,
		"dlq_pruned":    dead,
	})
	j.logg.Info(logCtx, "outbox retention cleanup complete")
	return nil
}

func wrapPrune(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("prune %s: %w", what, err)
}
