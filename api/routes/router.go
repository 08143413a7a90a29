package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kartwise/storefront-backend/api/controllers"
	webhookcontrollers "github.com/kartwise/storefront-backend/api/controllers/webhooks"
	"github.com/kartwise/storefront-backend/api/middleware"
	"github.com/kartwise/storefront-backend/internal/address"
	"github.com/kartwise/storefront-backend/internal/cart"
	"github.com/kartwise/storefront-backend/internal/checkout"
	"github.com/kartwise/storefront-backend/internal/discounts"
	"github.com/kartwise/storefront-backend/internal/notifications"
	"github.com/kartwise/storefront-backend/internal/orders"
	"github.com/kartwise/storefront-backend/internal/payments"
	"github.com/kartwise/storefront-backend/internal/wallet"
	"github.com/kartwise/storefront-backend/pkg/config"
	"github.com/kartwise/storefront-backend/pkg/db"
	"github.com/kartwise/storefront-backend/pkg/enums"
	"github.com/kartwise/storefront-backend/pkg/logger"
	"github.com/kartwise/storefront-backend/pkg/metrics"
	pkgredis "github.com/kartwise/storefront-backend/pkg/redis"
)

// redisStore is the slice of the Redis client the HTTP layer needs.
type redisStore interface {
	pkgredis.IdempotencyStore
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

type webhookGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	Delete(ctx context.Context, consumer, eventID string) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient redisStore,
	httpMetrics *metrics.ServerMetrics,
	gatherer prometheus.Gatherer,
	cartService cart.Service,
	checkoutService checkout.Service,
	ordersService orders.Service,
	paymentsService payments.Service,
	walletService wallet.Service,
	couponService discounts.CouponService,
	offerService discounts.OfferService,
	addressService address.Service,
	notificationService notifications.Service,
	razorpayWebhookService webhookcontrollers.RazorpayWebhookService,
	razorpayWebhookGuard webhookGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.AccessLog(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	idempotent := func(operation string, ttl time.Duration) func(http.Handler) http.Handler {
		return middleware.Idempotent(middleware.IdempotencyPolicy{Operation: operation, TTL: ttl}, redisClient, logg)
	}
	short, long := middleware.ShortReplayWindow, middleware.LongReplayWindow

	paymentPolicy := middleware.NewRateLimitPolicy("payments", cfg.Payment.RateLimitWindow, cfg.Payment.RateLimitMax)
	paymentLimit := middleware.RateLimit(paymentPolicy, redisClient, logg)

	checks := []controllers.ReadinessCheck{{Name: "db", Pinger: dbP}}
	if redisClient != nil {
		checks = append(checks, controllers.ReadinessCheck{Name: "redis", Pinger: redisClient})
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, checks...))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/razorpay", webhookcontrollers.RazorpayWebhook(razorpayWebhookService, cfg.Payment.WebhookSecret, razorpayWebhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(cartService, logg))
			r.Post("/items", controllers.CartAddItem(cartService, logg))
			r.Patch("/items/{itemId}", controllers.CartUpdateItem(cartService, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(cartService, logg))
		})

		r.Get("/checkout/summary", controllers.CheckoutSummary(checkoutService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.With(idempotent("place-order", long)).Post("/", controllers.CreateOrder(checkoutService, logg))
			r.Get("/", controllers.OrderList(ordersService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(ordersService, logg))
			r.With(idempotent("cancel-order", long)).Put("/{orderId}/cancel", controllers.OrderCancel(ordersService, logg))
			r.With(idempotent("request-return", short)).Post("/{orderId}/items/{itemId}/return", controllers.OrderItemReturn(ordersService, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Use(paymentLimit)
			r.With(idempotent("payment-intent", short)).Post("/intent", controllers.PaymentIntent(paymentsService, logg))
			r.With(idempotent("verify-payment", long)).Post("/verify", controllers.PaymentVerify(paymentsService, logg))
			r.With(idempotent("cancel-payment", short)).Post("/{checkoutId}/cancel", controllers.PaymentCancel(paymentsService, logg))
			r.With(idempotent("payment-failure", short)).Post("/{checkoutId}/failure", controllers.PaymentFailure(paymentsService, logg))
		})

		r.Get("/wallet", controllers.WalletGet(walletService, logg))
		r.Get("/coupons/available", controllers.CouponsAvailable(couponService, logg))

		r.Route("/addresses", func(r chi.Router) {
			r.Get("/", controllers.AddressList(addressService, logg))
			r.Post("/", controllers.AddressCreate(addressService, logg))
			r.Delete("/{addressId}", controllers.AddressDelete(addressService, logg))
		})
		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.NotificationList(notificationService, logg))
			r.Post("/read", controllers.NotificationMarkAllRead(notificationService, logg))
			r.Post("/{notificationId}/read", controllers.NotificationMarkRead(notificationService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.RoleAdmin))

		r.Get("/ping", controllers.AdminPing())

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrderList(ordersService, logg))
			r.Get("/{orderId}", controllers.AdminOrderDetail(ordersService, logg))
			r.With(idempotent("order-status", short)).Put("/{orderId}/status", controllers.AdminOrderStatus(ordersService, logg))
			r.With(idempotent("return-decision", long)).Put("/{orderId}/items/{itemId}/return", controllers.AdminReturnDecision(ordersService, logg))
		})

		r.Route("/coupons", func(r chi.Router) {
			r.Get("/", controllers.AdminCouponList(couponService, logg))
			r.Post("/", controllers.AdminCouponCreate(couponService, logg))
			r.Put("/{couponId}", controllers.AdminCouponUpdate(couponService, logg))
			r.Delete("/{couponId}", controllers.AdminCouponDelete(couponService, logg))
		})

		r.Route("/offers", func(r chi.Router) {
			r.Get("/", controllers.AdminOfferList(offerService, logg))
			r.Post("/", controllers.AdminOfferCreate(offerService, logg))
			r.Put("/{offerId}", controllers.AdminOfferUpdate(offerService, logg))
			r.Post("/sync", controllers.AdminOfferSync(offerService, logg))
		})

		r.Get("/wallets/{userId}/reconcile", controllers.AdminWalletReconcile(walletService, logg))
	})

	return r
}
