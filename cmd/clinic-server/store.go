package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog"

	"github.com/clinicops/clinic/internal/config"
	"github.com/clinicops/clinic/internal/domain/billing"
	"github.com/clinicops/clinic/internal/domain/identity"
	"github.com/clinicops/clinic/internal/domain/records"
	"github.com/clinicops/clinic/internal/domain/scheduling"
	"github.com/clinicops/clinic/internal/platform/db"
	"github.com/clinicops/clinic/internal/platform/kv"
	"github.com/clinicops/clinic/migrations"
)

// backend is one opened store with the repositories that run on it.
type backend struct {
	tx         db.Transactor
	health     db.HealthChecker
	identity   identity.Repository
	scheduling scheduling.Repository
	billing    billing.Repository
	records    records.Repository
	close      func()
}

// openBackend connects the store selected by STORE_DRIVER. PostgreSQL
// schemas are migrated before the backend is returned.
func openBackend(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*backend, error) {
	switch cfg.StoreDriver {
	case config.DriverLevelDB:
		store, err := kv.Open(cfg.LevelDBPath)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("path", cfg.LevelDBPath).Msg("opened leveldb store")
		return kvBackend(store), nil

	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, db.PoolOptions{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
			Schema:   cfg.DBSchema,
		})
		if err != nil {
			return nil, err
		}
		logger.Info().Msg("connected to database")

		applied, err := db.NewMigrator(pool, migrationFS(cfg)).Up(ctx, cfg.DBSchema)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Int("applied", applied).Str("schema", cfg.DBSchema).Msg("migrations up to date")

		return &backend{
			tx:         db.NewTransactor(pool),
			health:     db.PoolChecker{Pool: pool},
			identity:   identity.NewRepoPG(pool),
			scheduling: scheduling.NewRepoPG(pool),
			billing:    billing.NewRepoPG(pool),
			records:    records.NewRepoPG(pool),
			close:      pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func kvBackend(store *kv.Store) *backend {
	return &backend{
		tx:         store,
		health:     store,
		identity:   identity.NewRepoKV(store),
		scheduling: scheduling.NewRepoKV(store),
		billing:    billing.NewRepoKV(store),
		records:    records.NewRepoKV(store),
		close:      func() { _ = store.Close() },
	}
}

// migrationFS returns MIGRATIONS_DIR when set, else the embedded migrations.
func migrationFS(cfg *config.Config) fs.FS {
	if cfg.MigrationsDir != "" {
		return os.DirFS(cfg.MigrationsDir)
	}
	return migrations.FS
}
