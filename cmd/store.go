package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "nis2.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return initPostgres(ctx)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initPostgres is for commands that query the pool directly (scoring,
// benchmarks, recommendations, export, check). The sqlite driver only
// covers the basic store surface, so those commands require postgres.
func initPostgres(ctx context.Context) (*store.PostgresStore, error) {
	if cfg.Store.Driver != "postgres" {
		return nil, eris.Errorf("this command requires the postgres driver (got %s)", cfg.Store.Driver)
	}
	return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
}
