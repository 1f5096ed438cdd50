package migration

import (
	"context"

	"github.com/smallbiznis/sparkload/internal/warehouse/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module creates the star schema on start, before any batch runs.
var Module = fx.Module("migrations",
	fx.Invoke(func(lc fx.Lifecycle, conn *gorm.DB, repo domain.Repository, log *zap.Logger) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return Apply(ctx, conn, repo, DirectionUp, log.Named("migration"))
			},
		})
	}),
)
