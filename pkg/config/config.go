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
	Tx           TxConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Inventory    InventoryConfig
	Trace        TraceConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Metrics      MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if !cfg.Inventory.Policy().IsValid() {
		return nil, fmt.Errorf("invalid %s %q", EnvInventoryNegativePolicy, cfg.Inventory.NegativePolicy)
	}
	if _, err := cfg.Trace.Location(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", EnvTraceTimezone, err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"JIALE_APP_ENV" required:"true"`
	Port         string   `envconfig:"JIALE_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"JIALE_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"JIALE_LOG_WARN_STACK" default:"false"`
	LogFormat    string   `envconfig:"JIALE_LOG_FORMAT" default:"json"`
	// CORSOrigins is a comma separated allow list; empty means the local dev origins.
	CORSOrigins  []string `envconfig:"JIALE_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"JIALE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"JIALE_DB_DSN"`
	Driver string `envconfig:"JIALE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"JIALE_DB_HOST"`
	LegacyPort     int    `envconfig:"JIALE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"JIALE_DB_USER"`
	LegacyPassword string `envconfig:"JIALE_DB_PASSWORD"`
	LegacyName     string `envconfig:"JIALE_DB_NAME"`
	LegacySSLMode  string `envconfig:"JIALE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"JIALE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"JIALE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"JIALE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"JIALE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// TxConfig bounds how often a conflicting transaction is replayed from the start.
type TxConfig struct {
	MaxAttempts int           `envconfig:"JIALE_TX_MAX_ATTEMPTS" default:"3"`
	BaseBackoff time.Duration `envconfig:"JIALE_TX_BASE_BACKOFF" default:"25ms"`
	MaxBackoff  time.Duration `envconfig:"JIALE_TX_MAX_BACKOFF" default:"1s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"JIALE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"JIALE_REDIS_ADDR"`
	Password     string        `envconfig:"JIALE_REDIS_PASSWORD"`
	DB           int           `envconfig:"JIALE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"JIALE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"JIALE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"JIALE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"JIALE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"JIALE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"JIALE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"JIALE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"JIALE_JWT_EXPIRATION_MINUTES" default:"60"`
}

// InventoryConfig decides whether balances and batch weights may go below zero.
type InventoryConfig struct {
	NegativePolicy string `envconfig:"JIALE_INVENTORY_NEGATIVE_POLICY" default:"permissive"`
}

// Policy returns the normalized negative stock policy.
func (i InventoryConfig) Policy() NegativePolicy {
	return NegativePolicy(strings.ToLower(strings.TrimSpace(i.NegativePolicy)))
}

// NegativePolicy controls lower-bound enforcement for stock balances and batch remaining weight.
type NegativePolicy string

const (
	NegativePermissive NegativePolicy = "permissive"
	NegativeStrict     NegativePolicy = "strict"
)

func (p NegativePolicy) IsValid() bool {
	return p == NegativePermissive || p == NegativeStrict
}

// Strict reports whether values must stay non-negative.
func (p NegativePolicy) Strict() bool {
	return p == NegativeStrict
}

type TraceConfig struct {
	Timezone string `envconfig:"JIALE_TRACE_TIMEZONE" default:"UTC"`
}

// Location resolves the timezone used to compute the day part of traceability codes.
func (t TraceConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(t.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"JIALE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"JIALE_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"JIALE_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"JIALE_PUBSUB_DOMAIN_TOPIC" default:"erp-domain-events"`
	DomainSubscription string `envconfig:"JIALE_PUBSUB_DOMAIN_SUBSCRIPTION"`
	InventoryTopic     string `envconfig:"JIALE_PUBSUB_INVENTORY_TOPIC" default:"erp-inventory-events"`
}

type OutboxConfig struct {
	BatchSize            int `envconfig:"JIALE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS       int `envconfig:"JIALE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts          int `envconfig:"JIALE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays        int `envconfig:"JIALE_OUTBOX_RETENTION_DAYS" default:"30"`
	RetentionIntervalMin int `envconfig:"JIALE_OUTBOX_RETENTION_INTERVAL_MIN" default:"60"`
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"JIALE_METRICS_ENABLED" default:"true"`
	Path    string `envconfig:"JIALE_METRICS_PATH" default:"/metrics"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
