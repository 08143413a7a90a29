package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/kartwise/storefront-backend/pkg/config"
	"github.com/kartwise/storefront-backend/pkg/logger"
)

const (
	connectAttempts = 5
	txAttempts      = 3
)

// Pinger is the readiness probe surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Client owns the pooled GORM connection.
type Client struct {
	conn *gorm.DB
}

// New opens the Postgres pool and waits for the server to answer, backing
// off between attempts so workers can boot alongside the database.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}
	if logg == nil {
		logg = logger.Nop()
	}

	conn, err := gorm.Open(postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true}), &gorm.Config{
		Logger:                 newQueryLogger(logg, cfg.SlowQueryThreshold),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pool, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	client := &Client{conn: conn}
	backoff := retry.WithMaxRetries(connectAttempts-1, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := client.Ping(ctx); err != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "postgres not ready")
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("reach postgres: %w", err)
	}
	logg.Info(logg.WithField(ctx, "max_open_conns", cfg.MaxOpenConns), "postgres ready")
	return client, nil
}

// FromConn wraps an open connection, e.g. SQLite in tests.
func FromConn(conn *gorm.DB) *Client {
	return &Client{conn: conn}
}

func (c *Client) DB() *gorm.DB {
	return c.conn
}

func (c *Client) Ping(ctx context.Context) error {
	pool, err := c.conn.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return pool.PingContext(ctx)
}

func (c *Client) Close() error {
	pool, err := c.conn.DB()
	if err != nil {
		return err
	}
	return pool.Close()
}

// WithTx runs fn in one transaction. A serialization failure or deadlock
// rolls back and reruns fn from scratch, so fn must not keep state between
// attempts.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	backoff := retry.WithMaxRetries(txAttempts-1, retry.WithJitter(10*time.Millisecond, retry.NewConstant(25*time.Millisecond)))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.conn.WithContext(ctx).Transaction(fn)
		if IsTxConflict(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
