package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kartwise/storefront-backend/internal/boot"
	"github.com/kartwise/storefront-backend/internal/cron"
	"github.com/kartwise/storefront-backend/internal/discounts"
	"github.com/kartwise/storefront-backend/internal/notifications"
	"github.com/kartwise/storefront-backend/internal/payments"
	"github.com/kartwise/storefront-backend/pkg/config"
	"github.com/kartwise/storefront-backend/pkg/db"
	"github.com/kartwise/storefront-backend/pkg/logger"
	"github.com/kartwise/storefront-backend/pkg/metrics"
	"github.com/kartwise/storefront-backend/pkg/outbox"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	proc := boot.MustStart(ctx, "cron-worker")
	ctx = proc.Context(ctx)
	cfg := proc.Config

	cache, err := proc.Redis(ctx)
	if err != nil {
		proc.Fail(ctx, "failed to bootstrap redis", err)
	}
	registry, err := buildRegistry(cfg, proc.Logger, proc.DB)
	if err != nil {
		proc.Fail(ctx, "failed to build cron registry", err)
	}
	lock, err := cron.NewRedisLock(cache, cache.LockKey("cron-worker:"+envOrLocal(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		proc.Fail(ctx, "failed to create cron lock", err)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   proc.Logger,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Tick:     cfg.Cron.Tick,
	})
	if err != nil {
		proc.Fail(ctx, "failed to create cron service", err)
	}

	proc.Logger.Info(proc.Logger.WithField(ctx, "jobs", registry.Names()), "starting cron worker")
	proc.Finish(ctx, service.Run(ctx))
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	gormDB := dbClient.DB()
	events := outbox.NewRepository(gormDB)
	emitter := outbox.NewService(events, logg)

	offerSync, err := discounts.NewOfferSync(dbClient, discounts.NewOfferRepository(gormDB), emitter, logg)
	if err != nil {
		return nil, fmt.Errorf("offer sync: %w", err)
	}
	coupons, err := discounts.NewCouponService(discounts.NewCouponRepository(gormDB))
	if err != nil {
		return nil, fmt.Errorf("coupon service: %w", err)
	}
	intents := payments.NewIntentExpirer(payments.NewRepository(gormDB), cfg.Payment.IntentTTL)

	offerJob, err := cron.NewOfferSyncJob(logg, offerSync)
	if err != nil {
		return nil, err
	}
	couponJob, err := cron.NewCouponExpiryJob(logg, coupons)
	if err != nil {
		return nil, err
	}
	intentJob, err := cron.NewPaymentIntentExpiryJob(logg, intents)
	if err != nil {
		return nil, err
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:    logg,
		Outbox:    events,
		Retention: cfg.Outbox.Retention,
	})
	if err != nil {
		return nil, err
	}

	feedJob, err := cron.NewNotificationRetentionJob(cron.NotificationRetentionJobParams{
		Logger:        logg,
		Notifications: notifications.NewRepository(gormDB),
		Retention:     cfg.Cron.NotificationRetention,
	})
	if err != nil {
		return nil, err
	}

	registry := cron.NewRegistry()
	registry.Register(offerJob, cfg.Cron.OfferSyncEvery)
	registry.Register(couponJob, cfg.Cron.ExpiryEvery)
	registry.Register(intentJob, cfg.Cron.ExpiryEvery)
	registry.Register(retentionJob, cfg.Cron.RetentionEvery)
	registry.Register(feedJob, cfg.Cron.RetentionEvery)
	return registry, nil
}

func envOrLocal(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
