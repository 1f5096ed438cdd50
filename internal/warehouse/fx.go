package warehouse

import (
	"github.com/smallbiznis/sparkload/internal/warehouse/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("warehouse",
	fx.Provide(repository.Provide),
)
