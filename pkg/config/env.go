package config

// EnvPrefix is handed to envconfig; every field carries its full variable name.
const EnvPrefix = "JIALE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                  = "JIALE_APP_ENV"
	EnvPort                    = "JIALE_APP_PORT"
	EnvDBDSN                   = "JIALE_DB_DSN"
	EnvDBHost                  = "JIALE_DB_HOST"
	EnvDBUser                  = "JIALE_DB_USER"
	EnvDBName                  = "JIALE_DB_NAME"
	EnvDBPassword              = "JIALE_DB_PASSWORD"
	EnvRedisURL                = "JIALE_REDIS_URL"
	EnvJWTSecret               = "JIALE_JWT_SECRET"
	EnvJWTIssuer               = "JIALE_JWT_ISSUER"
	EnvInventoryNegativePolicy = "JIALE_INVENTORY_NEGATIVE_POLICY"
	EnvTraceTimezone           = "JIALE_TRACE_TIMEZONE"
	EnvTxMaxAttempts           = "JIALE_TX_MAX_ATTEMPTS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
