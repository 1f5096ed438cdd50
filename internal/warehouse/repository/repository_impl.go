package repository

import (
	"context"
	"fmt"

	"github.com/smallbiznis/sparkload/internal/config"
	"github.com/smallbiznis/sparkload/internal/warehouse/domain"
	"github.com/smallbiznis/sparkload/internal/warehouse/schema"
	"gorm.io/gorm"
)

const defaultBatchSize = 500

type Options struct {
	BatchSize      int
	MatchPredicate string
}

type repo struct {
	builder   schema.Builder
	batchSize int
	resolve   string
}

// Provide builds the repository for the dialect of conn.
func Provide(conn *gorm.DB, cfg config.PipelineConfig) (domain.Repository, error) {
	return New(conn.Dialector.Name(), Options{
		BatchSize:      cfg.LoadBatchSize,
		MatchPredicate: cfg.MatchPredicate,
	})
}

// New verifies every row type against its table and renders the resolve
// statement once. A mismatch is a configuration error.
func New(dialect string, opts Options) (domain.Repository, error) {
	builder, err := schema.NewBuilder(dialect)
	if err != nil {
		return nil, err
	}

	bindings := []struct {
		table schema.Table
		model any
	}{
		{schema.Songs, &domain.Song{}},
		{schema.Artists, &domain.Artist{}},
		{schema.Users, &domain.User{}},
		{schema.Time, &domain.TimeRow{}},
		{schema.Songplays, &domain.Songplay{}},
		{schema.SongplayStaging, &domain.SongplayStaging{}},
	}
	for _, b := range bindings {
		if err := schema.Verify(b.table, b.model); err != nil {
			return nil, err
		}
	}

	resolve, err := builder.ResolveSongplays(opts.MatchPredicate)
	if err != nil {
		return nil, err
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &repo{builder: builder, batchSize: batchSize, resolve: resolve}, nil
}

func (r *repo) EnsureSchema(ctx context.Context, db *gorm.DB) error {
	for _, t := range schema.StarTables() {
		if err := db.WithContext(ctx).Exec(r.builder.CreateTable(t)).Error; err != nil {
			return fmt.Errorf("create %s: %w", t.Name, err)
		}
	}
	return nil
}

func (r *repo) DropTables(ctx context.Context, db *gorm.DB) error {
	tables := append(schema.StarTables(), schema.SongplayStaging)
	for _, t := range tables {
		if err := db.WithContext(ctx).Exec(r.builder.DropTable(t)).Error; err != nil {
			return fmt.Errorf("drop %s: %w", t.Name, err)
		}
	}
	return nil
}

func (r *repo) UpsertSongs(ctx context.Context, db *gorm.DB, rows []domain.Song) (int64, error) {
	return load(ctx, db, schema.Songs, rows, r.batchSize)
}

func (r *repo) UpsertArtists(ctx context.Context, db *gorm.DB, rows []domain.Artist) (int64, error) {
	return load(ctx, db, schema.Artists, rows, r.batchSize)
}

func (r *repo) UpsertUsers(ctx context.Context, db *gorm.DB, rows []domain.User) (int64, error) {
	return load(ctx, db, schema.Users, rows, r.batchSize)
}

func (r *repo) InsertTime(ctx context.Context, db *gorm.DB, rows []domain.TimeRow) (int64, error) {
	return load(ctx, db, schema.Time, rows, r.batchSize)
}

// StageSongplays recreates the staging table and loads rows into it.
func (r *repo) StageSongplays(ctx context.Context, db *gorm.DB, rows []domain.SongplayStaging) (int64, error) {
	if err := db.WithContext(ctx).Exec(r.builder.DropTable(schema.SongplayStaging)).Error; err != nil {
		return 0, fmt.Errorf("drop %s: %w", schema.SongplayStaging.Name, err)
	}
	if err := db.WithContext(ctx).Exec(r.builder.CreateTable(schema.SongplayStaging)).Error; err != nil {
		return 0, fmt.Errorf("create %s: %w", schema.SongplayStaging.Name, err)
	}
	return load(ctx, db, schema.SongplayStaging, rows, r.batchSize)
}

// ResolveSongplays joins the staging table against songs and artists, upserts
// the result into songplays and drops the staging table.
func (r *repo) ResolveSongplays(ctx context.Context, db *gorm.DB) (domain.ResolveResult, error) {
	var result domain.ResolveResult
	conn := db.WithContext(ctx)

	if err := conn.Table(schema.SongplayStaging.Name).Count(&result.Staged).Error; err != nil {
		return result, fmt.Errorf("count %s: %w", schema.SongplayStaging.Name, err)
	}
	if err := conn.Exec(r.resolve).Error; err != nil {
		return result, fmt.Errorf("resolve songplays: %w", err)
	}

	q := r.builder.Quote
	err := conn.Table(schema.Songplays.Name+" AS sp").
		Joins(fmt.Sprintf("JOIN %s st ON st.%s = sp.%s", q(schema.SongplayStaging.Name), q("songplay_id"), q("songplay_id"))).
		Where(fmt.Sprintf("sp.%s IS NOT NULL", q("song_id"))).
		Count(&result.Matched).Error
	if err != nil {
		return result, fmt.Errorf("count matched songplays: %w", err)
	}
	result.Unmatched = result.Staged - result.Matched

	if err := conn.Exec(r.builder.DropTable(schema.SongplayStaging)).Error; err != nil {
		return result, fmt.Errorf("drop %s: %w", schema.SongplayStaging.Name, err)
	}
	return result, nil
}

func load[T any](ctx context.Context, db *gorm.DB, t schema.Table, rows []T, batchSize int) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).
		Table(t.Name).
		Clauses(t.OnConflict()).
		CreateInBatches(rows, batchSize)
	if res.Error != nil {
		return 0, fmt.Errorf("load %s: %w", t.Name, res.Error)
	}
	return res.RowsAffected, nil
}
