// Package boot brings up the infrastructure every storefront process shares:
// environment, config, logger, database and pending migrations. Optional
// clients (redis, pubsub) are opened on demand and closed with the process.
package boot

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/kartwise/storefront-backend/pkg/config"
	"github.com/kartwise/storefront-backend/pkg/db"
	"github.com/kartwise/storefront-backend/pkg/logger"
	"github.com/kartwise/storefront-backend/pkg/migrate"
	"github.com/kartwise/storefront-backend/pkg/pubsub"
	"github.com/kartwise/storefront-backend/pkg/redis"
)

type closer struct {
	name  string
	close func() error
}

// Process holds one binary's shared dependencies.
type Process struct {
	Kind   string
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client

	closers []closer
	exit    func(int)
}

// Start loads .env and config, builds the logger for kind, connects the
// database and applies migrations when the environment asks for it.
func Start(ctx context.Context, kind string) (*Process, error) {
	logg := logger.New(logger.Options{ServiceName: kind})
	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = kind

	p := &Process{
		Kind:   kind,
		Config: cfg,
		Logger: logger.New(logger.Options{
			ServiceName: kind,
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			WarnStack:   cfg.App.LogWarnStack,
			Format:      cfg.App.LogFormat,
		}),
		exit: os.Exit,
	}

	p.DB, err = db.New(ctx, cfg.DB, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	p.onClose("database", p.DB.Close)

	if err := migrate.AutoApply(ctx, cfg, p.Logger, p.DB); err != nil {
		p.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return p, nil
}

// MustStart is Start for main functions: any failure is logged and exits.
func MustStart(ctx context.Context, kind string) *Process {
	p, err := Start(ctx, kind)
	if err != nil {
		logger.New(logger.Options{ServiceName: kind}).Error(ctx, "bootstrap failed", err)
		os.Exit(1)
	}
	return p
}

func (p *Process) Redis(ctx context.Context) (*redis.Client, error) {
	client, err := redis.New(ctx, p.Config.Redis, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	p.onClose("redis", client.Close)
	return client, nil
}

func (p *Process) PubSub(ctx context.Context) (*pubsub.Client, error) {
	client, err := pubsub.NewClient(ctx, p.Config.GCP, p.Config.PubSub, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("connect pubsub: %w", err)
	}
	p.onClose("pubsub", client.Close)
	return client, nil
}

func (p *Process) onClose(name string, fn func() error) {
	p.closers = append(p.closers, closer{name: name, close: fn})
}

// Close releases clients in reverse order of opening. Safe to call twice.
func (p *Process) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		c := p.closers[i]
		if err := c.close(); err != nil {
			p.Logger.Error(context.Background(), "error closing "+c.name, err)
		}
	}
	p.closers = nil
}

// Context tags ctx with the fields every log line of the process carries.
func (p *Process) Context(ctx context.Context) context.Context {
	return p.Logger.WithFields(ctx, map[string]any{
		"env":         p.Config.App.Env,
		"serviceKind": p.Kind,
	})
}

// Fail logs err, closes every client and exits non-zero.
func (p *Process) Fail(ctx context.Context, msg string, err error) {
	p.Logger.Error(ctx, msg, err)
	p.Close()
	p.exit(1)
}

// Finish reports how a long-running loop ended. Cancellation is the normal
// shutdown path.
func (p *Process) Finish(ctx context.Context, err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		p.Fail(ctx, p.Kind+" stopped unexpectedly", err)
		return
	}
	p.Logger.Info(ctx, p.Kind+" shutting down gracefully")
	p.Close()
}
