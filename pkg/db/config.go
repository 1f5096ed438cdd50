package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/sparkload/internal/config"
)

// ErrPoolTooSmall is returned for Postgres pools that cannot hold the migration
// driver's connection and the batch transaction at once.
var ErrPoolTooSmall = errors.New("db_pool_too_small")

// minPostgresOpenConns covers golang-migrate's held connection plus the batch transaction.
const minPostgresOpenConns = 2

type Config struct {
	Type            string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	Path            string
	MaxIdleConn     int
	MaxOpenConn     int
	ConnMaxLifetime int
	ConnMaxIdleTime int
}

// FromConfig narrows the application config to the connection settings.
func FromConfig(cfg config.Config) Config {
	return Config{
		Type:            strings.ToLower(strings.TrimSpace(cfg.DBType)),
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		User:            cfg.DBUser,
		Password:        cfg.DBPassword,
		SSLMode:         cfg.DBSSLMode,
		Path:            cfg.DBPath,
		MaxIdleConn:     cfg.DBMaxIdleConn,
		MaxOpenConn:     cfg.DBMaxOpenConn,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	}
}

// Validate rejects settings that would deadlock the batch. A MaxOpenConn of 0
// leaves the pool unbounded.
func (c Config) Validate() error {
	if c.Type == TypePostgres && c.MaxOpenConn > 0 && c.MaxOpenConn < minPostgresOpenConns {
		return fmt.Errorf("%w: DATABASE_MAX_OPEN_CONN=%d, postgres needs at least %d", ErrPoolTooSmall, c.MaxOpenConn, minPostgresOpenConns)
	}
	return nil
}
