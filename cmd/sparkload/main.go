package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/sparkload/internal/clock"
	"github.com/smallbiznis/sparkload/internal/config"
	"github.com/smallbiznis/sparkload/internal/migration"
	"github.com/smallbiznis/sparkload/internal/observability"
	"github.com/smallbiznis/sparkload/internal/observability/metrics"
	"github.com/smallbiznis/sparkload/internal/pipeline"
	recordservice "github.com/smallbiznis/sparkload/internal/record/service"
	"github.com/smallbiznis/sparkload/internal/runlock"
	"github.com/smallbiznis/sparkload/internal/runner"
	"github.com/smallbiznis/sparkload/internal/source"
	"github.com/smallbiznis/sparkload/internal/warehouse"
	"github.com/smallbiznis/sparkload/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		db.Module,
		clock.Module,

		source.Module,
		recordservice.Module,
		warehouse.Module,
		migration.Module,
		pipeline.Module,
		runlock.Module,
		runner.Module,

		fx.Invoke(StartBatch),
	)
	app.Run()
}

type batchParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Runner     *runner.Runner
	Pusher     metrics.Pusher `optional:"true"`
	Gatherer   prometheus.Gatherer
	Log        *zap.Logger
}

// StartBatch runs the song and log batches once, pushes metrics and exits.
// A failed batch exits with status 1.
func StartBatch(p batchParams) {
	ctx, cancel := context.WithCancel(context.Background())
	log := p.Log.Named("batch")

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				code := 0
				if err := p.Runner.RunAll(ctx); err != nil {
					log.Error("batch failed", zap.Error(err))
					code = 1
				}
				pushMetrics(p.Pusher, p.Gatherer, log)
				if err := p.Shutdowner.Shutdown(fx.ExitCode(code)); err != nil {
					log.Error("shutdown", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func pushMetrics(pusher metrics.Pusher, gatherer prometheus.Gatherer, log *zap.Logger) {
	if pusher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := pusher.Push(ctx, gatherer); err != nil {
		log.Warn("metrics push failed", zap.Error(err))
	}
}
