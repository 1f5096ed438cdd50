package migration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/smallbiznis/sparkload/internal/warehouse/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

const migrationsDir = "migrations"

const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

var ErrUnknownDirection = errors.New("unknown_migration_direction")

// RunMigrations applies the embedded star schema migrations to a Postgres database.
func RunMigrations(db *sql.DB, direction string) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	var runErr error
	switch direction {
	case DirectionUp:
		runErr = migrator.Up()
	case DirectionDown:
		runErr = migrator.Down()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDirection, direction)
	}
	if runErr != nil && !errors.Is(runErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations %s: %w", direction, runErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// Apply creates or drops the star schema. Postgres goes through the embedded
// migrations; other dialects are rendered from the table definitions.
func Apply(ctx context.Context, conn *gorm.DB, repo domain.Repository, direction string, log *zap.Logger) error {
	direction = strings.ToLower(strings.TrimSpace(direction))
	if direction == "" {
		direction = DirectionUp
	}
	if direction != DirectionUp && direction != DirectionDown {
		return fmt.Errorf("%w: %q", ErrUnknownDirection, direction)
	}
	if log == nil {
		log = zap.NewNop()
	}

	dialect := conn.Dialector.Name()
	log = log.With(zap.String("dialect", dialect), zap.String("direction", direction))

	if dialect == "postgres" {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := RunMigrations(sqlDB, direction); err != nil {
			return err
		}
		log.Info("schema migrated")
		return nil
	}

	var err error
	if direction == DirectionUp {
		err = repo.EnsureSchema(ctx, conn)
	} else {
		err = repo.DropTables(ctx, conn)
	}
	if err != nil {
		return fmt.Errorf("apply schema %s: %w", direction, err)
	}
	log.Info("schema applied")
	return nil
}
