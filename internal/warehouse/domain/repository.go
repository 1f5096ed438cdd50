package domain

import (
	"context"

	"gorm.io/gorm"
)

// ResolveResult reports how staged songplays were resolved into the fact table.
type ResolveResult struct {
	Staged    int64
	Matched   int64
	Unmatched int64
}

// Repository writes the star schema. Every method runs on the handle it is
// given, so callers decide the transaction scope.
type Repository interface {
	EnsureSchema(ctx context.Context, db *gorm.DB) error
	DropTables(ctx context.Context, db *gorm.DB) error

	UpsertSongs(ctx context.Context, db *gorm.DB, rows []Song) (int64, error)
	UpsertArtists(ctx context.Context, db *gorm.DB, rows []Artist) (int64, error)
	UpsertUsers(ctx context.Context, db *gorm.DB, rows []User) (int64, error)
	InsertTime(ctx context.Context, db *gorm.DB, rows []TimeRow) (int64, error)

	StageSongplays(ctx context.Context, db *gorm.DB, rows []SongplayStaging) (int64, error)
	ResolveSongplays(ctx context.Context, db *gorm.DB) (ResolveResult, error)
}
