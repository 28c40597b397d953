package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/attrition-cli/internal/resilience"
	"github.com/sells-group/attrition-cli/internal/store"
)

// openStore opens the configured database backend. Postgres connections are
// retried with backoff so the CLI survives a database that is still coming up.
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		retryCfg := resilience.DefaultRetryConfig()
		retryCfg.OnRetry = resilience.RetryLogger("postgres", "connect")
		return resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (store.Store, error) {
			return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
				MaxConns: cfg.Store.MaxConns,
				MinConns: cfg.Store.MinConns,
			})
		})
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
