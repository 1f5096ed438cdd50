// Package runner discovers input files and loads each family as one transaction.
package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallbiznis/sparkload/internal/clock"
	"github.com/smallbiznis/sparkload/internal/config"
	"github.com/smallbiznis/sparkload/internal/observability/correlation"
	"github.com/smallbiznis/sparkload/internal/observability/logger"
	"github.com/smallbiznis/sparkload/internal/observability/metrics"
	pipelinedomain "github.com/smallbiznis/sparkload/internal/pipeline/domain"
	"github.com/smallbiznis/sparkload/internal/runlock"
	"github.com/smallbiznis/sparkload/internal/source"
	sourcedomain "github.com/smallbiznis/sparkload/internal/source/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BatchError reports a batch that was rolled back.
type BatchError struct {
	Family pipelinedomain.Family
	Root   string
	Files  int
	Err    error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s batch %s (%d files) rolled back: %v", e.Family, e.Root, e.Files, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Discoverer resolves a data root to a source and its matching keys.
type Discoverer interface {
	Discover(ctx context.Context, root string) (sourcedomain.Source, []string, error)
}

type Params struct {
	fx.In

	Log      *zap.Logger
	DB       *gorm.DB
	Config   config.Config
	Resolver *source.Resolver
	Pipeline pipelinedomain.Service
	Locker   runlock.Locker
	Clock    clock.Clock
	Metrics  *metrics.ETLMetrics `optional:"true"`
}

type Runner struct {
	log      *zap.Logger
	db       *gorm.DB
	sources  Discoverer
	pipeline pipelinedomain.Service
	locker   runlock.Locker
	clock    clock.Clock
	metrics  *metrics.ETLMetrics
	tracer   trace.Tracer

	songRoot string
	logRoot  string
}

func New(p Params) *Runner {
	r := &Runner{
		log:      p.Log.Named("runner"),
		db:       p.DB,
		pipeline: p.Pipeline,
		locker:   p.Locker,
		clock:    p.Clock,
		metrics:  p.Metrics,
		tracer:   otel.Tracer("sparkload/runner"),
		songRoot: p.Config.SongDataRoot,
		logRoot:  p.Config.LogDataRoot,
	}
	if p.Resolver != nil {
		r.sources = p.Resolver
	}
	if r.locker == nil {
		r.locker = runlock.NoopLocker{}
	}
	if r.clock == nil {
		r.clock = clock.SystemClock{}
	}
	return r
}

// WithDiscoverer replaces the source resolver.
func (r *Runner) WithDiscoverer(d Discoverer) *Runner {
	r.sources = d
	return r
}

// RunAll loads the song root, then the log root. A failed song batch does not
// stop the log batch; both errors are returned joined.
func (r *Runner) RunAll(ctx context.Context) error {
	ctx, _ = correlation.EnsureRunID(ctx)

	var errs []error
	if _, err := r.Run(ctx, pipelinedomain.FamilySong, r.songRoot); err != nil {
		errs = append(errs, err)
	}
	if _, err := r.Run(ctx, pipelinedomain.FamilyLog, r.logRoot); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Run loads every matching file under root in a single transaction and
// returns the number of files processed.
func (r *Runner) Run(ctx context.Context, family pipelinedomain.Family, root string) (int, error) {
	ctx, runID := correlation.EnsureRunID(ctx)
	ctx, span := r.tracer.Start(ctx, "runner.batch", trace.WithAttributes(
		attribute.String("sparkload.family", string(family)),
		attribute.String("sparkload.root", root),
		attribute.String("sparkload.run_id", runID),
	))
	defer span.End()

	log := logger.WithContext(ctx, r.log).With(
		zap.String("family", string(family)),
		zap.String("root", root),
	)

	start := r.clock.Now()
	found, processed, err := r.run(ctx, log, family, root)
	finished := r.clock.Now()
	r.metrics.ObserveBatch(string(family), processed, finished.Sub(start), err, finished)

	span.SetAttributes(attribute.Int("sparkload.files", found))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	return processed, nil
}

func (r *Runner) run(ctx context.Context, log *zap.Logger, family pipelinedomain.Family, root string) (int, int, error) {
	fail := func(files int, err error) (int, int, error) {
		return files, 0, &BatchError{Family: family, Root: root, Files: files, Err: err}
	}

	if _, err := pipelinedomain.ParseFamily(string(family)); err != nil {
		return fail(0, err)
	}
	if r.sources == nil {
		return fail(0, errors.New("source resolver not configured"))
	}

	src, keys, err := r.sources.Discover(ctx, root)
	if err != nil {
		log.Error("discover files", zap.Error(err))
		return fail(0, err)
	}
	found := len(keys)
	log.Info(fmt.Sprintf("%d files found in %s", found, src.Root()), zap.Int("files", found))
	if found == 0 {
		return 0, 0, nil
	}

	lease, err := r.locker.Acquire(ctx, runlock.Key(string(family), src.Root()))
	if err != nil {
		log.Warn("batch lock not acquired", zap.Error(err))
		return fail(found, err)
	}
	defer func() {
		// The batch context may already be canceled; release on a fresh one.
		if err := r.locker.Release(context.WithoutCancel(ctx), lease); err != nil {
			log.Warn("release batch lock", zap.Error(err))
		}
	}()

	var summary pipelinedomain.Summary
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		summary, err = r.pipeline.Process(ctx, tx, family, src, keys)
		return err
	})
	if err != nil {
		log.Error("transaction rolled back", zap.Int("files", found), zap.Error(err))
		return fail(found, err)
	}

	fields := []zap.Field{
		zap.Int("files", summary.Files),
		zap.Int("records", summary.Records),
		zap.Any("rows", summary.Rows),
	}
	if family == pipelinedomain.FamilyLog {
		fields = append(fields,
			zap.Int64("songplays_matched", summary.Matched),
			zap.Int64("songplays_unresolved", summary.Unresolved),
		)
	}
	log.Info(fmt.Sprintf("%d/%d files processed", found, found), fields...)
	return found, found, nil
}
