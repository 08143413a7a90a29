package migrate

import (
	"context"
	"fmt"

	"github.com/kartwise/storefront-backend/pkg/config"
	"github.com/kartwise/storefront-backend/pkg/db"
	"github.com/kartwise/storefront-backend/pkg/logger"
)

// AutoApply runs pending migrations at boot. It only acts in dev with
// STOREFRONT_AUTO_MIGRATE set; other environments run cmd/migrate.
func AutoApply(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	runner, err := NewRunner(sqlDB, Embedded(), logg)
	if err != nil {
		return err
	}
	return runner.Up(logg.WithField(ctx, "env", cfg.App.Env))
}
