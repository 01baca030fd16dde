package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/deppfellow/cardapi/internal/config"
	"github.com/jackc/pgx/v5"
	tern "github.com/jackc/tern/v2/migrate"
	"github.com/rs/zerolog"
)

// SchemaVersionTable records the applied migration version.
const SchemaVersionTable = "schema_version"

//go:embed migrations/*.sql
var migrations embed.FS

// Migrations returns the embedded migration files.
func Migrations() (fs.FS, error) {
	subtree, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("retrieving database migrations subtree: %w", err)
	}
	return subtree, nil
}

// Migrate applies the embedded migrations over a single connection.
//
// target < 0 migrates to the latest version; any other value migrates
// up or down to that version.
func Migrate(ctx context.Context, logger *zerolog.Logger, cfg *config.DatabaseConfig, target int32) error {
	conn, err := pgx.Connect(ctx, DSN(cfg))
	if err != nil {
		return fmt.Errorf("connecting for migrations: %w", err)
	}
	defer conn.Close(ctx)

	m, err := tern.NewMigrator(ctx, conn, SchemaVersionTable)
	if err != nil {
		return fmt.Errorf("constructing database migrator: %w", err)
	}

	subtree, err := Migrations()
	if err != nil {
		return err
	}
	if err := m.LoadMigrations(subtree); err != nil {
		return fmt.Errorf("loading database migrations: %w", err)
	}

	from, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("retrieving current database migration version: %w", err)
	}

	to := int32(len(m.Migrations))
	if target >= 0 {
		if target > to {
			return fmt.Errorf("migration target %d is beyond the latest version %d", target, to)
		}
		to = target
	}

	if from == to {
		logger.Info().Msgf("database schema up to date, version %d", to)
		return nil
	}

	if err := m.MigrateTo(ctx, to); err != nil {
		return fmt.Errorf("migrating database schema: %w", err)
	}

	logger.Info().Msgf("migrated database schema, from %d to %d", from, to)
	return nil
}
