package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/asdwsxzc123/jiale-mrp/pkg/config"
	"github.com/asdwsxzc123/jiale-mrp/pkg/db"
	"github.com/asdwsxzc123/jiale-mrp/pkg/db/models"
	"github.com/asdwsxzc123/jiale-mrp/pkg/logger"
)

// MaybeRunDev brings the schema up to date when running in dev with the auto-migrate flag.
// Postgres goes through goose; the SQLite dev mode uses AutoMigrate on the models.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	if strings.EqualFold(cfg.DB.Driver, "sqlite") || cfg.FeatureFlags.UseSQLite {
		logg.Info(ctx, "auto-migrating sqlite schema from models")
		if err := client.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("sqlite automigrate: %w", err)
		}
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	fsys, err := Source("")
	if err != nil {
		return err
	}
	runner, err := NewRunner(sqlDB, fsys, logg)
	if err != nil {
		return err
	}

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "running embedded goose migrations (dev auto-run)")
	if err := runner.Up(ctx); err != nil {
		return err
	}
	logg.Info(ctx, "goose migrations completed")
	return nil
}
