package persistence

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/company-directory/internal/config"
	"github.com/spec-kit/company-directory/internal/store"
	"github.com/spec-kit/company-directory/internal/store/memory"
	"github.com/spec-kit/company-directory/internal/store/mongostore"
	"github.com/spec-kit/company-directory/internal/store/pgstore"
)

// OpenStore opens the document store named by cfg.DSN. The caller owns the
// returned handle and must Close it.
func OpenStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (store.Database, error) {
	scheme, err := cfg.Scheme()
	if err != nil {
		return nil, err
	}

	switch scheme {
	case config.SchemeMemory:
		logger.Info("using in-memory document store")
		return memory.New(), nil

	case config.SchemePostgres, config.SchemePostgreSQL:
		pg, err := NewPostgres(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.RunMigrations {
			if err := RunMigrations(ctx, pg.PoolHandle(), cfg.MigrationsDir, logger); err != nil {
				pg.Close()
				return nil, err
			}
		}
		return pgstore.New(pg.PoolHandle(), logger), nil

	case config.SchemeMongo, config.SchemeMongoSRV:
		name := cfg.DatabaseName()
		if name == "" {
			return nil, errors.New("mongodb DSN must name a database")
		}
		client, err := NewMongo(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("connect mongodb: %w", err)
		}
		return mongostore.New(client, name, logger), nil
	}
	return nil, fmt.Errorf("%w: %q", config.ErrUnsupportedScheme, scheme)
}
