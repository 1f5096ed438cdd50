package main

import (
	"context"

	"github.com/smallbiznis/sparkload/internal/config"
	"github.com/smallbiznis/sparkload/internal/migration"
	"github.com/smallbiznis/sparkload/internal/observability"
	"github.com/smallbiznis/sparkload/internal/warehouse"
	warehousedomain "github.com/smallbiznis/sparkload/internal/warehouse/domain"
	"github.com/smallbiznis/sparkload/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// migrate creates (MIGRATION_DIRECTION=up) or drops (down) the star schema and exits.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		db.Module,
		warehouse.Module,

		fx.Invoke(RunMigration),
	)
	app.Run()
}

func RunMigration(lc fx.Lifecycle, shutdowner fx.Shutdowner, conn *gorm.DB, repo warehousedomain.Repository, cfg config.Config, log *zap.Logger) {
	log = log.Named("migration")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := migration.Apply(ctx, conn, repo, cfg.MigrationDirection, log); err != nil {
				return err
			}
			return shutdowner.Shutdown(fx.ExitCode(0))
		},
	})
}
