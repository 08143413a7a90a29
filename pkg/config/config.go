package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Checkout     CheckoutConfig
	Payment      PaymentConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	if cfg.Redis.URL == "" && cfg.Redis.Address == "" {
		return nil, fmt.Errorf("either %s or %s is required", EnvRedisURL, EnvRedisAddr)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	// CORSOrigins falls back to local frontend dev servers when empty.
	CORSOrigins []string `envconfig:"STOREFRONT_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STOREFRONT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"STOREFRONT_DB_HOST"`
	Port     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	User     string `envconfig:"STOREFRONT_DB_USER"`
	Password string `envconfig:"STOREFRONT_DB_PASSWORD"`
	Name     string `envconfig:"STOREFRONT_DB_NAME"`
	SSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"STOREFRONT_DB_SLOW_QUERY" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`

	ExpirationMinutes int `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
	// SyncOffersOnWrite runs the offer sync inline after admin offer writes
	// in addition to the scheduled job.
	SyncOffersOnWrite bool `envconfig:"STOREFRONT_SYNC_OFFERS_ON_WRITE" default:"true"`
}

// CheckoutConfig amounts are minor units (paise).
type CheckoutConfig struct {
	CODLimitPaise              int64  `envconfig:"STOREFRONT_CHECKOUT_COD_LIMIT_PAISE" default:"100000"`
	DeliveryChargePaise        int64  `envconfig:"STOREFRONT_CHECKOUT_DELIVERY_CHARGE_PAISE" default:"0"`
	FreeShippingThresholdPaise int64  `envconfig:"STOREFRONT_CHECKOUT_FREE_SHIPPING_THRESHOLD_PAISE" default:"0"`
	MaxQtyPerItem              int    `envconfig:"STOREFRONT_CHECKOUT_MAX_QTY_PER_ITEM" default:"10"`
	Currency                   string `envconfig:"STOREFRONT_CHECKOUT_CURRENCY" default:"INR"`
}

func (c CheckoutConfig) validate() error {
	if c.CODLimitPaise < 0 || c.DeliveryChargePaise < 0 || c.FreeShippingThresholdPaise < 0 {
		return fmt.Errorf("checkout amounts must be non-negative")
	}
	if c.MaxQtyPerItem <= 0 {
		return fmt.Errorf("%s must be positive", EnvCheckoutMaxQty)
	}
	return nil
}

// ShippingFor returns the delivery charge owed for a post-discount subtotal.
func (c CheckoutConfig) ShippingFor(subtotalPaise int64) int64 {
	if c.FreeShippingThresholdPaise > 0 && subtotalPaise >= c.FreeShippingThresholdPaise {
		return 0
	}
	return c.DeliveryChargePaise
}

type PaymentConfig struct {
	KeyID         string        `envconfig:"STOREFRONT_PAYMENT_KEY_ID"`
	KeySecret     string        `envconfig:"STOREFRONT_PAYMENT_KEY_SECRET"`
	WebhookSecret string        `envconfig:"STOREFRONT_PAYMENT_WEBHOOK_SECRET"`
	Timeout       time.Duration `envconfig:"STOREFRONT_PAYMENT_TIMEOUT" default:"10s"`
	MaxRetries    uint64        `envconfig:"STOREFRONT_PAYMENT_MAX_RETRIES" default:"3"`
	IntentTTL     time.Duration `envconfig:"STOREFRONT_PAYMENT_INTENT_TTL" default:"30m"`

	// Per-user fixed window applied to intent, verify and cancel routes.
	RateLimitWindow time.Duration `envconfig:"STOREFRONT_PAYMENT_RATE_LIMIT_WINDOW" default:"1m"`
	RateLimitMax    int           `envconfig:"STOREFRONT_PAYMENT_RATE_LIMIT_MAX" default:"10"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"STOREFRONT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"STOREFRONT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic       string `envconfig:"STOREFRONT_PUBSUB_ORDERS_TOPIC" default:"storefront-order-events"`
	PaymentsTopic     string `envconfig:"STOREFRONT_PUBSUB_PAYMENTS_TOPIC" default:"storefront-payment-events"`
	WalletTopic       string `envconfig:"STOREFRONT_PUBSUB_WALLET_TOPIC" default:"storefront-wallet-events"`
	NotificationTopic string `envconfig:"STOREFRONT_PUBSUB_NOTIFICATION_TOPIC" default:"storefront-notification-events"`

	// One subscription per topic feeding the customer notification worker.
	FeedSubscriptions []string `envconfig:"STOREFRONT_PUBSUB_FEED_SUBSCRIPTIONS" default:"storefront-orders-feed,storefront-payments-feed,storefront-wallet-feed,storefront-notification-feed"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"STOREFRONT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"STOREFRONT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"STOREFRONT_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"STOREFRONT_OUTBOX_RETENTION" default:"720h"`
}

type CronConfig struct {
	Tick    time.Duration `envconfig:"STOREFRONT_CRON_TICK" default:"1m"`
	LockTTL time.Duration `envconfig:"STOREFRONT_CRON_LOCK_TTL" default:"50s"`

	OfferSyncEvery time.Duration `envconfig:"STOREFRONT_CRON_OFFER_SYNC_EVERY" default:"5m"`
	ExpiryEvery    time.Duration `envconfig:"STOREFRONT_CRON_EXPIRY_EVERY" default:"1m"`
	RetentionEvery time.Duration `envconfig:"STOREFRONT_CRON_RETENTION_EVERY" default:"6h"`

	NotificationRetention time.Duration `envconfig:"STOREFRONT_NOTIFICATION_RETENTION" default:"2160h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range splitDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
