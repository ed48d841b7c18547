package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agent-diff/internal/config"
	apperrors "github.com/agent-diff/internal/errors"
)

// setupPostgresStore connects to a local Postgres or skips. Schema must be
// migrated first (cmd/migrate).
func setupPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := NewPostgresDB(&config.PostgresConfig{
		Host:           "localhost",
		Port:           "5432",
		Database:       "agent_diff_test",
		User:           "agentdiff",
		Password:       "",
		MaxConnections: 5,
	})
	if err != nil {
		t.Skipf("Skipping test - Postgres not available: %v", err)
	}
	t.Cleanup(db.Close)

	_, err = db.Pool().Exec(context.Background(), `DELETE FROM baselines`)
	require.NoError(t, err)

	return NewPostgresStore(db)
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	store := setupPostgresStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, storeAddress, testSnapshot()))

	baseline, err := store.Get(ctx, storeAddress)
	require.NoError(t, err)
	require.NotNil(t, baseline)
	assert.Equal(t, *testSnapshot(), baseline.Snapshot)

	// lookups are case-insensitive
	baseline, err = store.Get(ctx, "0xABCD111111111111111111111111111111111111")
	require.NoError(t, err)
	assert.NotNil(t, baseline)
}

func TestPostgresStoreGetAbsent(t *testing.T) {
	store := setupPostgresStore(t)

	baseline, err := store.Get(context.Background(), storeAddress)
	require.NoError(t, err)
	assert.Nil(t, baseline)
}

func TestPostgresStoreSaveNeverOverwrites(t *testing.T) {
	store := setupPostgresStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, storeAddress, testSnapshot()))

	err := store.Save(ctx, storeAddress, testSnapshot())
	assert.True(t, apperrors.IsBaselineExists(err))
}
