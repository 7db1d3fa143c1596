package persistence

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/spec-kit/company-directory/internal/config"
)

// NewMongo connects a MongoDB client for the store DSN and verifies it with a
// primary ping.
func NewMongo(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(cfg.DSN)
	if cfg.MaxConns > 0 {
		opts.SetMaxPoolSize(uint64(cfg.MaxConns))
	}
	if cfg.MinConns > 0 {
		opts.SetMinPoolSize(uint64(cfg.MinConns))
	}
	if cfg.ConnMaxIdleSec > 0 {
		opts.SetMaxConnIdleTime(time.Duration(cfg.ConnMaxIdleSec) * time.Second)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info("connected to mongodb", zap.String("database", cfg.DatabaseName()))
	return client, nil
}
