package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/kartwise/storefront-backend/pkg/logger"
)

const defaultNotificationRetention = 90 * 24 * time.Hour

type NotificationRetentionJobParams struct {
	Logger        *logger.Logger
	Notifications readNotificationPruner
	Retention     time.Duration
}

type readNotificationPruner interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

func NewNotificationRetentionJob(params NotificationRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultNotificationRetention
	}
	return &notificationRetentionJob{
		logg:      params.Logger,
		repo:      params.Notifications,
		retention: retention,
		now:       time.Now,
	}, nil
}

type notificationRetentionJob struct {
	logg      *logger.Logger
	repo      readNotificationPruner
	retention time.Duration
	now       func() time.Time
}

func (j *notificationRetentionJob) Name() string { return "notification-retention" }

func (j *notificationRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.repo.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("notification retention: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "notification retention complete")
	return nil
}
