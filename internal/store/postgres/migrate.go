package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aliuyar1234/propdesk/migrations"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
)

// Migrate applies all pending schema migrations embedded in the binary. The
// migrator opens its own connection from the pool's DSN and closes it when
// done; the pool is left untouched.
func (s *Store) Migrate(ctx context.Context) error {
	log.Info().Msg("Running database migrations...")

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL(s.pool.Config().ConnString()))
	if err != nil {
		return fmt.Errorf("failed to open migration target: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Warn().AnErr("source", srcErr).AnErr("database", dbErr).Msg("Failed to close migrator")
		}
	}()

	// Up takes no context; stop between migrations once ctx is done.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-done:
		}
	}()

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		log.Info().Msg("Database schema is up to date")
	case err != nil:
		return fmt.Errorf("failed to apply migrations: %w", err)
	default:
		version, _, _ := m.Version()
		log.Info().Uint("version", version).Msg("All migrations applied successfully")
	}
	return nil
}

// migrateURL rewrites a postgres:// DSN to the scheme of the pgx/v5
// migration driver.
func migrateURL(dsn string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}
