package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "")
	t.Setenv("SONG_DATA_ROOT", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("LOCK_TTL_SECONDS", "")

	cfg := Load()
	assert.Equal(t, "postgres", cfg.DBType)
	assert.True(t, cfg.IsPostgres())
	assert.Equal(t, "data/song_data", cfg.SongDataRoot)
	assert.Equal(t, "data/log_data", cfg.LogDataRoot)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 30*time.Minute, cfg.LockTTL)
	assert.Equal(t, "up", cfg.MigrationDirection)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "SQLite")
	t.Setenv("DATABASE_PATH", "/tmp/sparkify.db")
	t.Setenv("SONG_DATA_ROOT", "s3://udacity-dend/song_data")
	t.Setenv("S3_PATH_STYLE", "yes")
	t.Setenv("LOCK_TTL_SECONDS", "60")
	t.Setenv("DATABASE_MAX_OPEN_CONN", "not-a-number")
	t.Setenv("METRICS_EXPORTER", "Prometheus_Pushgateway")

	cfg := Load()
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.False(t, cfg.IsPostgres())
	assert.Equal(t, "/tmp/sparkify.db", cfg.DBPath)
	assert.Equal(t, "s3://udacity-dend/song_data", cfg.SongDataRoot)
	assert.True(t, cfg.S3PathStyle)
	assert.Equal(t, time.Minute, cfg.LockTTL)
	assert.Equal(t, 4, cfg.DBMaxOpenConn)
	assert.Equal(t, "prometheus_pushgateway", cfg.Metrics.Exporter)
}
