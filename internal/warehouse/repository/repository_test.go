package repository

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/sparkload/internal/warehouse/domain"
	"github.com/smallbiznis/sparkload/internal/warehouse/schema"
	"github.com/smallbiznis/sparkload/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func setup(t *testing.T, predicate string) (*gorm.DB, domain.Repository) {
	t.Helper()
	conn := dbtest.Open(t)
	repo, err := New(conn.Dialector.Name(), Options{BatchSize: 2, MatchPredicate: predicate})
	require.NoError(t, err)
	require.NoError(t, repo.EnsureSchema(context.Background(), conn))
	return conn, repo
}

func desreeEvent(length float64) domain.SongplayStaging {
	return domain.SongplayStaging{
		SongplayID: "139-1541440000000",
		StartTime:  time.UnixMilli(1541440000000).UTC(),
		UserID:     8,
		Level:      strPtr("free"),
		Song:       strPtr("You Gotta Be"),
		Artist:     strPtr("Des'ree"),
		SessionID:  "139",
		Location:   strPtr("Phoenix-Mesa-Scottsdale, AZ"),
		UserAgent:  strPtr("Mozilla/5.0"),
		Length:     floatPtr(length),
	}
}

func loadDesree(t *testing.T, conn *gorm.DB, repo domain.Repository) {
	t.Helper()
	ctx := context.Background()
	_, err := repo.UpsertArtists(ctx, conn, []domain.Artist{{ArtistID: "ARDESREE", Name: "Des'ree"}})
	require.NoError(t, err)
	_, err = repo.UpsertSongs(ctx, conn, []domain.Song{{SongID: "SOYGBE", Title: "You Gotta Be", ArtistID: "ARDESREE", Year: 1994, Duration: 246.33}})
	require.NoError(t, err)
}

func TestNewRejectsConfigurationErrors(t *testing.T) {
	_, err := New("oracle", Options{})
	assert.ErrorIs(t, err, schema.ErrUnsupportedDialect)

	_, err = New("sqlite", Options{MatchPredicate: "fuzzy"})
	assert.ErrorIs(t, err, schema.ErrUnsupportedPredicate)
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	conn, repo := setup(t, schema.MatchLengthWithinDuration)
	require.NoError(t, repo.EnsureSchema(context.Background(), conn))

	for _, table := range schema.StarTables() {
		assert.True(t, conn.Migrator().HasTable(table.Name), table.Name)
	}
}

func TestUpsertSongsOverwritesAcrossLoads(t *testing.T) {
	conn, repo := setup(t, schema.MatchLengthWithinDuration)
	ctx := context.Background()

	first := []domain.Song{
		{SongID: "SOAAA", Title: "A", ArtistID: "AR1", Year: 1999, Duration: 100},
		{SongID: "SOBBB", Title: "B", ArtistID: "AR1", Year: 2000, Duration: 110},
		{SongID: "SOCCC", Title: "C", ArtistID: "AR2", Year: 2001, Duration: 120},
	}
	_, err := repo.UpsertSongs(ctx, conn, first)
	require.NoError(t, err)

	_, err = repo.UpsertSongs(ctx, conn, []domain.Song{{SongID: "SOAAA", Title: "A2", ArtistID: "AR1", Year: 2004, Duration: 101}})
	require.NoError(t, err)

	var songs []domain.Song
	require.NoError(t, conn.Order("song_id").Find(&songs).Error)
	require.Len(t, songs, 3)
	assert.Equal(t, domain.Song{SongID: "SOAAA", Title: "A2", ArtistID: "AR1", Year: 2004, Duration: 101}, songs[0])
}

func TestUpsertUsersUpdatesLevel(t *testing.T) {
	conn, repo := setup(t, schema.MatchLengthWithinDuration)
	ctx := context.Background()

	_, err := repo.UpsertUsers(ctx, conn, []domain.User{{UserID: 8, FirstName: "Kaylee", LastName: "Summers", Gender: strPtr("F"), Level: "free"}})
	require.NoError(t, err)
	_, err = repo.UpsertUsers(ctx, conn, []domain.User{{UserID: 8, FirstName: "Kaylee", LastName: "Summers", Gender: strPtr("F"), Level: "paid"}})
	require.NoError(t, err)

	var users []domain.User
	require.NoError(t, conn.Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, "paid", users[0].Level)
}

func TestInsertTimeKeepsFirstWriter(t *testing.T) {
	conn, repo := setup(t, schema.MatchLengthWithinDuration)
	ctx := context.Background()
	start := time.UnixMilli(1541440000000).UTC()

	_, err := repo.InsertTime(ctx, conn, []domain.TimeRow{{StartTime: start, Hour: 17, Day: 5, Week: 45, Month: 11, Year: 2018, Weekday: 0}})
	require.NoError(t, err)
	_, err = repo.InsertTime(ctx, conn, []domain.TimeRow{{StartTime: start, Hour: 99, Day: 5, Week: 45, Month: 11, Year: 2018, Weekday: 0}})
	require.NoError(t, err)

	var rows []domain.TimeRow
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, 17, rows[0].Hour)
}

// A title match by one artist never pairs with an artist-name match of another:
// song and artist resolve together or not at all.
func TestResolveSongplaysRequiresTitleAndArtistOnSameSong(t *testing.T) {
	conn, repo := setup(t, schema.MatchLengthWithinDuration)
	ctx := context.Background()

	_, err := repo.UpsertArtists(ctx, conn, []domain.Artist{
		{ArtistID: "AR1", Name: "Real"},
		{ArtistID: "AR2", Name: "Other"},
	})
	require.NoError(t, err)
	_, err = repo.UpsertSongs(ctx, conn, []domain.Song{
		{SongID: "SO1", Title: "T", ArtistID: "AR1", Duration: 200},
		{SongID: "SO2", Title: "U", ArtistID: "AR2", Duration: 200},
	})
	require.NoError(t, err)

	event := desreeEvent(150)
	event.SongplayID = "1-1"
	event.Song = strPtr("T")
	event.Artist = strPtr("Other")
	_, err = repo.StageSongplays(ctx, conn, []domain.SongplayStaging{event})
	require.NoError(t, err)

	result, err := repo.ResolveSongplays(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, domain.ResolveResult{Staged: 1, Matched: 0, Unmatched: 1}, result)

	var play domain.Songplay
	require.NoError(t, conn.Take(&play).Error)
	assert.Equal(t, "1-1", play.SongplayID)
	assert.Nil(t, play.SongID)
	assert.Nil(t, play.ArtistID)
}

func TestResolveSongplaysMatched(t *testing.T) {
	conn, repo := setup(t, schema.MatchLengthWithinDuration)
	ctx := context.Background()
	loadDesree(t, conn, repo)

	staged, err := repo.StageSongplays(ctx, conn, []domain.SongplayStaging{desreeEvent(246.3)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), staged)

	result, err := repo.ResolveSongplays(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, domain.ResolveResult{Staged: 1, Matched: 1, Unmatched: 0}, result)

	var plays []domain.Songplay
	require.NoError(t, conn.Find(&plays).Error)
	require.Len(t, plays, 1)
	assert.Equal(t, "139-1541440000000", plays[0].SongplayID)
	assert.Equal(t, int64(8), plays[0].UserID)
	require.NotNil(t, plays[0].SongID)
	require.NotNil(t, plays[0].ArtistID)
	assert.Equal(t, "SOYGBE", *plays[0].SongID)
	assert.Equal(t, "ARDESREE", *plays[0].ArtistID)

	var remaining int64
	assert.Error(t, conn.Table(schema.SongplayStaging.Name).Count(&remaining).Error)
}

func TestResolveSongplaysUnmatchedStillInserted(t *testing.T) {
	conn, repo := setup(t, schema.MatchLengthWithinDuration)
	ctx := context.Background()

	_, err := repo.StageSongplays(ctx, conn, []domain.SongplayStaging{desreeEvent(246.3)})
	require.NoError(t, err)
	result, err := repo.ResolveSongplays(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Unmatched)

	var plays []domain.Songplay
	require.NoError(t, conn.Find(&plays).Error)
	require.Len(t, plays, 1)
	assert.Nil(t, plays[0].SongID)
	assert.Nil(t, plays[0].ArtistID)
}

func TestResolveSongplaysExactPredicate(t *testing.T) {
	conn, repo := setup(t, schema.MatchExact)
	ctx := context.Background()
	loadDesree(t, conn, repo)

	_, err := repo.StageSongplays(ctx, conn, []domain.SongplayStaging{desreeEvent(246.3)})
	require.NoError(t, err)
	result, err := repo.ResolveSongplays(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Matched)
}

func TestResolveSongplaysPicksShortestQualifyingSong(t *testing.T) {
	conn, repo := setup(t, schema.MatchLengthWithinDuration)
	ctx := context.Background()
	loadDesree(t, conn, repo)
	_, err := repo.UpsertSongs(ctx, conn, []domain.Song{
		{SongID: "SOLIVE", Title: "You Gotta Be", ArtistID: "ARDESREE", Year: 1995, Duration: 300},
		{SongID: "SOEDIT", Title: "You Gotta Be", ArtistID: "ARDESREE", Year: 1995, Duration: 200},
	})
	require.NoError(t, err)

	_, err = repo.StageSongplays(ctx, conn, []domain.SongplayStaging{desreeEvent(246.3)})
	require.NoError(t, err)
	result, err := repo.ResolveSongplays(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Staged)

	var plays []domain.Songplay
	require.NoError(t, conn.Find(&plays).Error)
	require.Len(t, plays, 1)
	assert.Equal(t, "SOYGBE", *plays[0].SongID)
}

func TestResolveSongplaysTwiceIsIdempotent(t *testing.T) {
	conn, repo := setup(t, schema.MatchLengthWithinDuration)
	ctx := context.Background()

	_, err := repo.StageSongplays(ctx, conn, []domain.SongplayStaging{desreeEvent(246.3)})
	require.NoError(t, err)
	_, err = repo.ResolveSongplays(ctx, conn)
	require.NoError(t, err)

	loadDesree(t, conn, repo)
	paid := desreeEvent(246.3)
	paid.Level = strPtr("paid")
	_, err = repo.StageSongplays(ctx, conn, []domain.SongplayStaging{paid})
	require.NoError(t, err)
	_, err = repo.ResolveSongplays(ctx, conn)
	require.NoError(t, err)

	var plays []domain.Songplay
	require.NoError(t, conn.Find(&plays).Error)
	require.Len(t, plays, 1)
	assert.Equal(t, "paid", *plays[0].Level)
	require.NotNil(t, plays[0].SongID)
}

func TestLoadInsideRolledBackTransaction(t *testing.T) {
	conn, repo := setup(t, schema.MatchLengthWithinDuration)
	ctx := context.Background()

	err := conn.Transaction(func(tx *gorm.DB) error {
		if _, err := repo.UpsertArtists(ctx, tx, []domain.Artist{{ArtistID: "AR1", Name: "One"}}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	var count int64
	require.NoError(t, conn.Model(&domain.Artist{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestDropTables(t *testing.T) {
	conn, repo := setup(t, schema.MatchLengthWithinDuration)
	require.NoError(t, repo.DropTables(context.Background(), conn))
	for _, table := range schema.StarTables() {
		assert.False(t, conn.Migrator().HasTable(table.Name), table.Name)
	}
}
