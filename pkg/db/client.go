package db

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/asdwsxzc123/jiale-mrp/pkg/config"
	"github.com/asdwsxzc123/jiale-mrp/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Client wraps the shared GORM connection.
type Client struct {
	conn    *gorm.DB
	retry   RetryPolicy
	logg    *logger.Logger
	onRetry func()
}

// Pinger exposes the health check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RetryPolicy bounds how many times WithRetry replays a conflicting transaction.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	// MaxBackoff caps the doubled wait between attempts.
	MaxBackoff time.Duration
}

const defaultMaxBackoff = time.Second

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.BaseBackoff < 0 {
		p.BaseBackoff = 0
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = defaultMaxBackoff
	}
	return p
}

// backoff returns the wait before the attempt following the given one.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	if p.BaseBackoff <= 0 {
		return 0
	}
	wait := p.BaseBackoff
	for i := 1; i < attempt && wait < p.MaxBackoff; i++ {
		wait *= 2
	}
	return min(wait, p.MaxBackoff)
}

// New boots a GORM client using the provided configuration.
func New(ctx context.Context, cfg config.DBConfig, txCfg config.TxConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	gormCfg := &gorm.Config{
		Logger: gormlogger.New(
			log.New(io.Discard, "", log.LstdFlags),
			gormlogger.Config{LogLevel: gormlogger.Silent},
		),
		SkipDefaultTransaction: true,
	}

	conn, err := gorm.Open(dialectorFor(cfg), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("opening db connection: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}

	applyPoolSettings(sqlDB, cfg)

	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if logg != nil {
		logg.Info(ctx, "database connection established")
	}

	return &Client{
		conn:  conn,
		retry: RetryPolicy{MaxAttempts: txCfg.MaxAttempts, BaseBackoff: txCfg.BaseBackoff, MaxBackoff: txCfg.MaxBackoff}.normalized(),
		logg:  logg,
	}, nil
}

// NewFromConn wraps an already opened connection, mostly for tests and tooling.
func NewFromConn(conn *gorm.DB, policy RetryPolicy, logg *logger.Logger) *Client {
	return &Client{conn: conn, retry: policy.normalized(), logg: logg}
}

func dialectorFor(cfg config.DBConfig) gorm.Dialector {
	if strings.EqualFold(cfg.Driver, "sqlite") {
		return sqlite.Open(cfg.DSN)
	}
	return postgres.New(postgres.Config{
		DSN:                  cfg.DSN,
		PreferSimpleProtocol: true,
	})
}

func applyPoolSettings(sqlDB *sql.DB, cfg config.DBConfig) {
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
}

// DB returns the underlying GORM connection.
func (c *Client) DB() *gorm.DB {
	return c.conn
}

// Ping verifies the datasource is reachable.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close shuts down the pooled connections.
func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTx executes fn inside a transaction, rolling back on error/panic.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := c.conn.WithContext(ctx).Begin()
	if tx.Error != nil {
		return ClassifyError(tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return ClassifyError(err)
	}

	return ClassifyError(tx.Commit().Error)
}

// ObserveRetries registers fn to run before every replayed attempt.
func (c *Client) ObserveRetries(fn func()) {
	c.onRetry = fn
}

// WithRetry runs fn through WithTx and replays the whole transaction when it
// fails with a serialization, deadlock or lock-timeout conflict.
func (c *Client) WithRetry(ctx context.Context, fn func(tx *gorm.DB) error) error {
	policy := c.retry.normalized()

	var err error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err = c.WithTx(ctx, fn)
		if err == nil || !IsConflict(err) {
			return err
		}
		if attempt == policy.MaxAttempts {
			break
		}
		if c.onRetry != nil {
			c.onRetry()
		}
		if c.logg != nil {
			logCtx := c.logg.WithFields(ctx, map[string]any{
				"attempt":      attempt,
				"max_attempts": policy.MaxAttempts,
			})
			c.logg.Warn(logCtx, "transaction conflict, retrying")
		}

		wait := policy.backoff(attempt)
		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
