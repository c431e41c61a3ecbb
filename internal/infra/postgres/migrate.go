package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	pgmigrations "online-quiz/internal/infra/postgres/migrations"
)

// Migrate applies all pending schema migrations to the database at dsn.
func Migrate(ctx context.Context, dsn string, logger logrus.FieldLogger) error {
	if dsn == "" {
		return fmt.Errorf("postgres url not configured")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if logger != nil {
		if group.IsZero() {
			logger.Info("no new migrations")
		} else {
			logger.WithField("group", group.String()).Info("migrations applied")
		}
	}
	return nil
}
