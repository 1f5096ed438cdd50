package service

import "go.uber.org/fx"

var Module = fx.Module("record.service",
	fx.Provide(NewReader),
)
