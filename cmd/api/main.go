package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/kartwise/storefront-backend/api/routes"
	"github.com/kartwise/storefront-backend/internal/address"
	"github.com/kartwise/storefront-backend/internal/boot"
	"github.com/kartwise/storefront-backend/internal/cart"
	"github.com/kartwise/storefront-backend/internal/checkout"
	"github.com/kartwise/storefront-backend/internal/discounts"
	"github.com/kartwise/storefront-backend/internal/inventory"
	"github.com/kartwise/storefront-backend/internal/notifications"
	"github.com/kartwise/storefront-backend/internal/orders"
	"github.com/kartwise/storefront-backend/internal/payments"
	"github.com/kartwise/storefront-backend/internal/wallet"
	razorpaywebhook "github.com/kartwise/storefront-backend/internal/webhooks/razorpay"
	"github.com/kartwise/storefront-backend/pkg/metrics"
	"github.com/kartwise/storefront-backend/pkg/outbox"
	"github.com/kartwise/storefront-backend/pkg/outbox/idempotency"
	"github.com/kartwise/storefront-backend/pkg/razorpay"
)

const (
	webhookDedupTTL = 72 * time.Hour
	shutdownTimeout = 15 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	proc := boot.MustStart(ctx, "api")
	cfg, logg, dbClient := proc.Config, proc.Logger, proc.DB
	fail := func(msg string, err error) { proc.Fail(ctx, msg, err) }

	redisClient, err := proc.Redis(ctx)
	if err != nil {
		fail("failed to bootstrap redis", err)
	}
	gateway, err := razorpay.NewClient(ctx, cfg.Payment, logg)
	if err != nil {
		fail("failed to create payment gateway client", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	orderMetrics := metrics.NewOrderMetrics(registry)
	httpMetrics := metrics.NewServerMetrics(registry, "api")

	gormDB := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(gormDB), logg)
	catalog := inventory.NewCatalog(gormDB)
	ledger := inventory.NewLedger(gormDB)
	couponRepo := discounts.NewCouponRepository(gormDB)
	offerRepo := discounts.NewOfferRepository(gormDB)
	ordersRepo := orders.NewRepository(gormDB)

	addressService, err := address.NewService(address.NewRepository(gormDB))
	if err != nil {
		fail("failed to create address service", err)
	}
	cartService, err := cart.NewService(cart.NewRepository(gormDB), catalog, cfg.Checkout.MaxQtyPerItem)
	if err != nil {
		fail("failed to create cart service", err)
	}
	walletService, err := wallet.NewService(dbClient, wallet.NewRepository(gormDB), emitter)
	if err != nil {
		fail("failed to create wallet service", err)
	}
	resolver, err := discounts.NewResolver(couponRepo)
	if err != nil {
		fail("failed to create discount resolver", err)
	}
	couponService, err := discounts.NewCouponService(couponRepo)
	if err != nil {
		fail("failed to create coupon service", err)
	}
	offerSync, err := discounts.NewOfferSync(dbClient, offerRepo, emitter, logg)
	if err != nil {
		fail("failed to create offer sync", err)
	}
	offerService, err := discounts.NewOfferService(offerRepo, offerSync, cfg.FeatureFlags.SyncOffersOnWrite)
	if err != nil {
		fail("failed to create offer service", err)
	}
	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Tx:        dbClient,
		Cart:      cartService,
		Addresses: addressService,
		Catalog:   catalog,
		Ledger:    ledger,
		Resolver:  resolver,
		Coupons:   couponRepo,
		Wallet:    walletService,
		Orders:    ordersRepo,
		Outbox:    emitter,
		Config:    cfg.Checkout,
		Metrics:   orderMetrics,
		Logger:    logg,
	})
	if err != nil {
		fail("failed to create checkout service", err)
	}
	ordersService, err := orders.NewService(ordersRepo, dbClient, emitter, ledger, walletService, orderMetrics, logg)
	if err != nil {
		fail("failed to create orders service", err)
	}
	paymentsService, err := payments.NewService(payments.ServiceParams{
		Tx:        dbClient,
		Repo:      payments.NewRepository(gormDB),
		Checkout:  checkoutService,
		Addresses: addressService,
		Gateway:   gateway,
		Outbox:    emitter,
		Config:    cfg.Payment,
		Currency:  cfg.Checkout.Currency,
		Logger:    logg,
	})
	if err != nil {
		fail("failed to create payments service", err)
	}
	webhookService, err := razorpaywebhook.NewService(paymentsService, logg)
	if err != nil {
		fail("failed to create razorpay webhook service", err)
	}
	notificationService, err := notifications.NewService(notifications.NewRepository(gormDB))
	if err != nil {
		fail("failed to create notifications service", err)
	}
	webhookGuard, err := idempotency.NewManager(redisClient, webhookDedupTTL)
	if err != nil {
		fail("failed to create webhook idempotency guard", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			httpMetrics,
			registry,
			cartService,
			checkoutService,
			ordersService,
			paymentsService,
			walletService,
			couponService,
			offerService,
			addressService,
			notificationService,
			webhookService,
			webhookGuard,
		),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "api server shutdown failed", err)
		}
	}()

	err = server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	proc.Finish(logCtx, err)
}
