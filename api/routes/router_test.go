package routes

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartwise/storefront-backend/internal/checkout"
	"github.com/kartwise/storefront-backend/internal/payments"
	pkgauth "github.com/kartwise/storefront-backend/pkg/auth"
	"github.com/kartwise/storefront-backend/pkg/config"
	"github.com/kartwise/storefront-backend/pkg/db/models"
	"github.com/kartwise/storefront-backend/pkg/enums"
	"github.com/kartwise/storefront-backend/pkg/logger"
	"github.com/kartwise/storefront-backend/pkg/metrics"
	"github.com/kartwise/storefront-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

var _ redisStore = (*memoryRedis)(nil)

type memoryRedis struct {
	mu       sync.Mutex
	values   map[string]string
	counters map[string]int64
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{values: map[string]string{}, counters: map[string]int64{}}
}

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	switch v := value.(type) {
	case string:
		m.values[key] = v
	case []byte:
		m.values[key] = string(v)
	}
	return true, nil
}

func (m *memoryRedis) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case string:
		m.values[key] = v
	case []byte:
		m.values[key] = string(v)
	}
	return nil
}

func (m *memoryRedis) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memoryRedis) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[scope]++
	return m.counters[scope] <= limit, m.counters[scope], nil
}

func (m *memoryRedis) Ping(context.Context) error {
	return nil
}

type countingCheckout struct {
	checkout.Service
	calls int
}

func (c *countingCheckout) PlaceOrder(_ context.Context, in checkout.PlaceOrderInput) (*models.Order, error) {
	c.calls++
	return &models.Order{ID: uuid.New(), OrderNumber: "ORD-1", UserID: in.UserID, TotalPaise: 50000}, nil
}

type stubIntents struct {
	payments.Service
}

func (stubIntents) CreateIntent(context.Context, payments.CreateIntentInput) (*payments.Intent, error) {
	return &payments.Intent{CheckoutID: "chk_1", GatewayOrderID: "order_1", AmountPaise: 50000, Currency: "INR"}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{
			Secret:            "router-test-secret",
			Issuer:            "storefront-test",
			ExpirationMinutes: 15,
		},
		Payment: config.PaymentConfig{
			WebhookSecret:   "whsec_test",
			RateLimitWindow: time.Minute,
			RateLimitMax:    100,
		},
	}
}

type routerDeps struct {
	redis    *memoryRedis
	checkout *countingCheckout
	registry *prometheus.Registry
}

func newTestRouter(cfg *config.Config) (http.Handler, *routerDeps) {
	deps := &routerDeps{
		redis:    newMemoryRedis(),
		checkout: &countingCheckout{},
		registry: prometheus.NewRegistry(),
	}
	router := NewRouter(
		cfg,
		logger.Nop(),
		stubPinger{},
		deps.redis,
		metrics.NewServerMetrics(deps.registry, "api"),
		deps.registry,
		nil,
		deps.checkout,
		nil,
		stubIntents{},
		nil,
		nil,
		nil,
		nil,
		nil,
		nil,
		nil,
	)
	return router, deps
}

func buildToken(t *testing.T, cfg *config.Config, userID uuid.UUID, role enums.Role) string {
	t.Helper()
	keys, err := pkgauth.NewKeys(cfg.JWT)
	require.NoError(t, err)
	token, err := keys.Sign(time.Now(), pkgauth.Identity{UserID: userID, Role: role})
	require.NoError(t, err)
	return token
}

func do(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router, _ := newTestRouter(testConfig())
	resp := do(router, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router, _ := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, uuid.New(), enums.RoleCustomer))
	assert.Equal(t, http.StatusOK, do(router, req).Code)
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router, _ := newTestRouter(cfg)

	customer := httptest.NewRequest(http.MethodGet, "/api/admin/v1/ping", nil)
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, uuid.New(), enums.RoleCustomer))
	assert.Equal(t, http.StatusForbidden, do(router, customer).Code)

	admin := httptest.NewRequest(http.MethodGet, "/api/admin/v1/ping", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, uuid.New(), enums.RoleAdmin))
	assert.Equal(t, http.StatusOK, do(router, admin).Code)
}

func TestWalletReconcileIsAdminOnly(t *testing.T) {
	cfg := testConfig()
	router, _ := newTestRouter(cfg)
	target := "/api/admin/v1/wallets/" + uuid.NewString() + "/reconcile"

	customer := httptest.NewRequest(http.MethodGet, target, nil)
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, uuid.New(), enums.RoleCustomer))
	assert.Equal(t, http.StatusForbidden, do(router, customer).Code)

	// Routed for admins; the test router has no wallet service behind it.
	admin := httptest.NewRequest(http.MethodGet, target, nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, uuid.New(), enums.RoleAdmin))
	assert.Equal(t, http.StatusInternalServerError, do(router, admin).Code)
}

func TestCreateOrderIsIdempotent(t *testing.T) {
	cfg := testConfig()
	router, deps := newTestRouter(cfg)
	token := buildToken(t, cfg, uuid.New(), enums.RoleCustomer)
	body := []byte(`{"address_id":"` + uuid.NewString() + `","payment_method":"cod"}`)

	newReq := func(key string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		return req
	}

	assert.Equal(t, http.StatusBadRequest, do(router, newReq("")).Code)
	assert.Equal(t, 0, deps.checkout.calls)

	first := do(router, newReq("order-key-1"))
	require.Equal(t, http.StatusCreated, first.Code)
	replay := do(router, newReq("order-key-1"))
	require.Equal(t, http.StatusCreated, replay.Code)

	assert.Equal(t, 1, deps.checkout.calls)
	assert.JSONEq(t, first.Body.String(), replay.Body.String())
}

func TestPaymentRoutesAreRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Payment.RateLimitMax = 1
	router, _ := newTestRouter(cfg)
	token := buildToken(t, cfg, uuid.New(), enums.RoleCustomer)

	newReq := func(key string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/intent", bytes.NewReader([]byte(`{"address_id":"`+uuid.NewString()+`"}`)))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", key)
		return req
	}

	assert.Equal(t, http.StatusCreated, do(router, newReq("a")).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(router, newReq("b")).Code)
}

func TestWebhookRouteSkipsAuth(t *testing.T) {
	router, _ := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/razorpay", bytes.NewReader([]byte(`{}`)))
	resp := do(router, req)
	assert.NotEqual(t, http.StatusUnauthorized, resp.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	router, _ := newTestRouter(testConfig())

	assert.Equal(t, http.StatusOK, do(router, httptest.NewRequest(http.MethodGet, "/health/live", nil)).Code)
	assert.Equal(t, http.StatusOK, do(router, httptest.NewRequest(http.MethodGet, "/health/ready", nil)).Code)

	resp := do(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "/health/live")
}
