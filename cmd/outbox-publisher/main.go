package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kartwise/storefront-backend/internal/boot"
	"github.com/kartwise/storefront-backend/pkg/metrics"
	"github.com/kartwise/storefront-backend/pkg/outbox"
	"github.com/kartwise/storefront-backend/pkg/outbox/registry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	proc := boot.MustStart(ctx, "outbox-publisher")
	ctx = proc.Context(ctx)

	topics, err := proc.PubSub(ctx)
	if err != nil {
		proc.Fail(ctx, "failed to bootstrap pubsub", err)
	}
	events, err := registry.NewEventRegistry(proc.Config.PubSub)
	if err != nil {
		proc.Fail(ctx, "failed to build event registry", err)
	}

	service, err := NewService(ServiceParams{
		Config:     proc.Config,
		Logger:     proc.Logger,
		DB:         proc.DB,
		PubSub:     topics,
		Repository: outbox.NewRepository(proc.DB.DB()),
		Registry:   events,
		Metrics:    metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		proc.Fail(ctx, "failed to create outbox publisher", err)
	}

	proc.Logger.Info(proc.Logger.WithField(ctx, "topics", events.Topics()), "starting outbox publisher")
	proc.Finish(ctx, service.Run(ctx))
}
