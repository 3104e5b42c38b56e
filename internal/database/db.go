package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"time"

	"github.com/erp-bulk-import-api/internal/config"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const pingTimeout = 5 * time.Second

// ErrDirtySchema means a previous migration failed halfway and needs manual repair
var ErrDirtySchema = errors.New("database schema is dirty")

// DB is the connection pool shared by the module tables and the run history
type DB struct {
	*sql.DB
	log zerolog.Logger
}

// SchemaVersion is the migration state of the database
type SchemaVersion struct {
	Version uint
	Dirty   bool
}

// New opens the pool and waits for the database to answer, retrying with a
// fixed backoff up to cfg.ConnectAttempts times
func New(cfg *config.DatabaseConfig, log zerolog.Logger) (*DB, error) {
	pool, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.MaxLifetime)

	db := &DB{
		DB:  pool,
		log: log.With().Str("component", "database").Logger(),
	}

	attempts, err := waitForDatabase(context.Background(), pool.PingContext, cfg.ConnectAttempts, cfg.ConnectBackoff, db.log)
	if err != nil {
		pool.Close()
		return nil, err
	}

	db.log.Info().
		Str("host", cfg.Host).
		Str("database", cfg.Name).
		Int("max_open_conns", cfg.MaxOpenConns).
		Int("attempts", attempts).
		Msg("Database connection established")

	return db, nil
}

// waitForDatabase pings until it succeeds and returns the attempts it took
func waitForDatabase(ctx context.Context, ping func(context.Context) error, attempts int, backoff time.Duration, log zerolog.Logger) (int, error) {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 1; i <= attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err = ping(pingCtx)
		cancel()
		if err == nil {
			return i, nil
		}
		if i == attempts {
			break
		}

		log.Warn().Err(err).Int("attempt", i).Dur("backoff", backoff).Msg("Database not ready, retrying")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return i, errors.Wrap(ctx.Err(), "wait for database")
		}
	}
	return attempts, errors.Wrapf(err, "ping database after %d attempts", attempts)
}

// RunMigrations brings the module and run history tables up to date. A dirty
// schema is reported instead of migrated over.
func (db *DB) RunMigrations(migrationsPath string) (SchemaVersion, error) {
	m, err := db.migrator(migrationsPath)
	if err != nil {
		return SchemaVersion{}, err
	}

	before, err := schemaVersion(m)
	if err != nil {
		return before, err
	}
	if before.Dirty {
		return before, errors.Wrapf(ErrDirtySchema, "version %d", before.Version)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return before, errors.Wrap(err, "apply migrations")
	}

	after, err := schemaVersion(m)
	if err != nil {
		return after, err
	}

	db.log.Info().
		Str("path", migrationsPath).
		Uint("from_version", before.Version).
		Uint("version", after.Version).
		Msg("Schema up to date")

	return after, nil
}

// MigrateDown rolls back the most recent migration
func (db *DB) MigrateDown(migrationsPath string) (SchemaVersion, error) {
	m, err := db.migrator(migrationsPath)
	if err != nil {
		return SchemaVersion{}, err
	}

	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return SchemaVersion{}, errors.Wrap(err, "roll back migration")
	}

	v, err := schemaVersion(m)
	if err != nil {
		return v, err
	}
	db.log.Info().Uint("version", v.Version).Msg("Rolled back one migration")
	return v, nil
}

func schemaVersion(m *migrate.Migrate) (SchemaVersion, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return SchemaVersion{}, nil
	}
	if err != nil {
		return SchemaVersion{}, errors.Wrap(err, "read schema version")
	}
	return SchemaVersion{Version: version, Dirty: dirty}, nil
}

func (db *DB) migrator(migrationsPath string) (*migrate.Migrate, error) {
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "create migration driver")
	}

	m, err := migrate.NewWithDatabaseInstance(SourceURL(migrationsPath), "postgres", driver)
	if err != nil {
		return nil, errors.Wrapf(err, "load migrations from %s", migrationsPath)
	}
	return m, nil
}

// SourceURL turns a migrations directory into a file source URL
func SourceURL(migrationsPath string) string {
	return "file://" + filepath.ToSlash(filepath.Clean(migrationsPath))
}

// HealthCheck pings the database; /health reports unhealthy when it fails
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return db.PingContext(ctx)
}
