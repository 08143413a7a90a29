package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"

	EnvRedisURL  = "STOREFRONT_REDIS_URL"
	EnvRedisAddr = "STOREFRONT_REDIS_ADDR"
	EnvJWTSecret = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer = "STOREFRONT_JWT_ISSUER"

	EnvCheckoutCODLimit = "STOREFRONT_CHECKOUT_COD_LIMIT_PAISE"
	EnvCheckoutMaxQty   = "STOREFRONT_CHECKOUT_MAX_QTY_PER_ITEM"
	EnvPaymentKeyID     = "STOREFRONT_PAYMENT_KEY_ID"
	EnvPaymentSecret    = "STOREFRONT_PAYMENT_KEY_SECRET"
)

var splitDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
