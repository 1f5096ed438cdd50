package service

import (
	"context"
	"fmt"

	"github.com/smallbiznis/sparkload/internal/config"
	"github.com/smallbiznis/sparkload/internal/observability/metrics"
	"github.com/smallbiznis/sparkload/internal/pipeline/domain"
	recordservice "github.com/smallbiznis/sparkload/internal/record/service"
	sourcedomain "github.com/smallbiznis/sparkload/internal/source/domain"
	"github.com/smallbiznis/sparkload/internal/transform"
	warehousedomain "github.com/smallbiznis/sparkload/internal/warehouse/domain"
	"github.com/smallbiznis/sparkload/internal/warehouse/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Reader   *recordservice.Reader
	Repo     warehousedomain.Repository
	Pipeline config.PipelineConfig
	Metrics  *metrics.ETLMetrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	reader  *recordservice.Reader
	repo    warehousedomain.Repository
	page    string
	metrics *metrics.ETLMetrics
	tracer  trace.Tracer
}

func New(p Params) domain.Service {
	return &Service{
		log:     p.Log.Named("pipeline.service"),
		reader:  p.Reader,
		repo:    p.Repo,
		page:    p.Pipeline.SongPlayPage,
		metrics: p.Metrics,
		tracer:  otel.Tracer("sparkload/pipeline"),
	}
}

func (s *Service) Process(ctx context.Context, tx *gorm.DB, family domain.Family, src sourcedomain.Source, keys []string) (domain.Summary, error) {
	switch family {
	case domain.FamilySong:
		return s.ProcessSongFiles(ctx, tx, src, keys)
	case domain.FamilyLog:
		return s.ProcessLogFiles(ctx, tx, src, keys)
	default:
		return domain.Summary{}, fmt.Errorf("%w: %q", domain.ErrUnknownFamily, family)
	}
}

// ProcessSongFiles loads songs and artists from song metadata files.
func (s *Service) ProcessSongFiles(ctx context.Context, tx *gorm.DB, src sourcedomain.Source, keys []string) (domain.Summary, error) {
	summary := newSummary(domain.FamilySong, keys)

	records, err := s.reader.ReadSongs(ctx, src, keys)
	if err != nil {
		return summary, err
	}
	summary.Records = len(records)
	s.metrics.AddRecords(string(domain.FamilySong), len(records))

	songs := transform.Songs(records)
	artists := transform.Artists(records)

	if err := s.write(ctx, &summary, schema.Songs.Name, func(ctx context.Context) (int64, error) {
		return s.repo.UpsertSongs(ctx, tx, songs)
	}); err != nil {
		return summary, err
	}
	err = s.write(ctx, &summary, schema.Artists.Name, func(ctx context.Context) (int64, error) {
		return s.repo.UpsertArtists(ctx, tx, artists)
	})
	return summary, err
}

// ProcessLogFiles loads time and users from song-play events and resolves the
// events into songplays through the staging table.
func (s *Service) ProcessLogFiles(ctx context.Context, tx *gorm.DB, src sourcedomain.Source, keys []string) (domain.Summary, error) {
	summary := newSummary(domain.FamilyLog, keys)

	events, err := s.reader.ReadLogEvents(ctx, src, keys)
	if err != nil {
		return summary, err
	}
	summary.Records = len(events)
	s.metrics.AddRecords(string(domain.FamilyLog), len(events))

	plays := transform.SongPlays(events, s.page)
	s.log.Debug("song-play events selected",
		zap.Int("events", len(events)),
		zap.Int("song_plays", len(plays)),
	)

	users, err := transform.Users(plays)
	if err != nil {
		return summary, err
	}
	staging, err := transform.StagingRows(plays)
	if err != nil {
		return summary, err
	}
	timeRows := transform.TimeRows(plays)

	if err := s.write(ctx, &summary, schema.Time.Name, func(ctx context.Context) (int64, error) {
		return s.repo.InsertTime(ctx, tx, timeRows)
	}); err != nil {
		return summary, err
	}
	if err := s.write(ctx, &summary, schema.Users.Name, func(ctx context.Context) (int64, error) {
		return s.repo.UpsertUsers(ctx, tx, users)
	}); err != nil {
		return summary, err
	}
	if err := s.write(ctx, &summary, schema.SongplayStaging.Name, func(ctx context.Context) (int64, error) {
		return s.repo.StageSongplays(ctx, tx, staging)
	}); err != nil {
		return summary, err
	}

	err = s.stage(ctx, "resolve_songplays", func(ctx context.Context) error {
		result, err := s.repo.ResolveSongplays(ctx, tx)
		if err != nil {
			return err
		}
		summary.Rows[schema.Songplays.Name] = result.Staged
		summary.Matched = result.Matched
		summary.Unresolved = result.Unmatched
		s.metrics.AddRows(schema.Songplays.Name, result.Staged)
		s.metrics.AddSongplays(result.Matched, result.Unmatched)
		return nil
	})
	return summary, err
}

func (s *Service) write(ctx context.Context, summary *domain.Summary, table string, fn func(context.Context) (int64, error)) error {
	return s.stage(ctx, "load_"+table, func(ctx context.Context) error {
		rows, err := fn(ctx)
		if err != nil {
			return err
		}
		summary.Rows[table] = rows
		s.metrics.AddRows(table, rows)
		return nil
	})
}

func (s *Service) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "pipeline."+name, trace.WithAttributes(attribute.String("stage", name)))
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func newSummary(family domain.Family, keys []string) domain.Summary {
	return domain.Summary{
		Family: family,
		Files:  len(keys),
		Rows:   map[string]int64{},
	}
}
