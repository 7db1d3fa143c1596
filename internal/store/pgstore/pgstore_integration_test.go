//go:build integration

package pgstore_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/company-directory/internal/persistence"
	"github.com/spec-kit/company-directory/internal/store"
	"github.com/spec-kit/company-directory/internal/store/pgstore"
	"github.com/spec-kit/company-directory/internal/store/storetest"
)

func TestCollectionContract(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, persistence.RunMigrations(ctx, pool, "../../../migrations", zap.NewNop()))

	db := pgstore.New(pool, zap.NewNop())
	t.Cleanup(func() { _ = db.Close(ctx) })

	storetest.Run(t, func(t *testing.T) store.Database { return db })
}
