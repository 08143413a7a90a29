package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kartwise/storefront-backend/internal/boot"
	"github.com/kartwise/storefront-backend/internal/notifications"
	"github.com/kartwise/storefront-backend/pkg/outbox/idempotency"
)

// processedTTL outlives the longest Pub/Sub redelivery window.
const processedTTL = 7 * 24 * time.Hour

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	proc := boot.MustStart(ctx, "notification-worker")
	ctx = proc.Context(ctx)

	cache, err := proc.Redis(ctx)
	if err != nil {
		proc.Fail(ctx, "failed to bootstrap redis", err)
	}
	topics, err := proc.PubSub(ctx)
	if err != nil {
		proc.Fail(ctx, "failed to bootstrap pubsub", err)
	}
	seen, err := idempotency.NewManager(cache, processedTTL)
	if err != nil {
		proc.Fail(ctx, "failed to create idempotency manager", err)
	}

	var receivers []notifications.Receiver
	for _, sub := range topics.FeedSubscriptions() {
		receivers = append(receivers, sub)
	}
	consumer, err := notifications.NewConsumer(notifications.NewRepository(proc.DB.DB()), receivers, seen, proc.Logger)
	if err != nil {
		proc.Fail(ctx, "failed to create notification consumer", err)
	}

	proc.Logger.Info(proc.Logger.WithField(ctx, "subscriptions", len(receivers)), "starting notification worker")
	proc.Finish(ctx, consumer.Run(ctx))
}
