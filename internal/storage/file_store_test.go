package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/agent-diff/internal/errors"
	"github.com/agent-diff/internal/types"
)

const storeAddress = "0xAbCd111111111111111111111111111111111111"

func testSnapshot() *types.Snapshot {
	return &types.Snapshot{
		Address:   storeAddress,
		Timestamp: 1767225600, // 2026-01-01 00:00:00 UTC
		LookbackWindow: types.LookbackWindow{
			StartDate:        time.Date(2025, 12, 2, 0, 0, 0, 0, time.UTC),
			EndDate:          time.Date(2025, 12, 31, 23, 59, 59, 999000000, time.UTC),
			TransactionCount: 42,
		},
		ContractInteractions: []string{"0xc1", "0xc2"},
		TokenApprovals: map[string][]string{
			"0xt1": {"0xs1", "0xs2"},
		},
		VolumeMetrics: types.VolumeMetrics{DailyAverage: 1.5, TrendDirection: types.TrendIncreasing},
		GasUsage:      types.SnapshotGasUsage{AverageGasUsed: 21000, Pattern: types.GasPatternLow},
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, storeAddress, testSnapshot()))

	baseline, err := store.Get(ctx, storeAddress)
	require.NoError(t, err)
	require.NotNil(t, baseline)

	assert.Equal(t, storeAddress, baseline.Address)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), baseline.CreatedAt)
	assert.Equal(t, *testSnapshot(), baseline.Snapshot)
}

func TestFileStoreGetAbsent(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	baseline, err := store.Get(context.Background(), storeAddress)
	require.NoError(t, err)
	assert.Nil(t, baseline)
}

func TestFileStoreSaveNeverOverwrites(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, storeAddress, testSnapshot()))

	second := testSnapshot()
	second.LookbackWindow.TransactionCount = 99
	err = store.Save(ctx, storeAddress, second)
	assert.True(t, apperrors.IsBaselineExists(err))

	baseline, err := store.Get(ctx, storeAddress)
	require.NoError(t, err)
	assert.Equal(t, 42, baseline.Snapshot.LookbackWindow.TransactionCount)
}

func TestFileStoreLowercasesFilename(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, storeAddress, testSnapshot()))

	_, err = os.Stat(filepath.Join(dir, "0xabcd111111111111111111111111111111111111.json"))
	assert.NoError(t, err)

	// lookups with different casing hit the same file
	baseline, err := store.Get(ctx, "0xABCD111111111111111111111111111111111111")
	require.NoError(t, err)
	assert.NotNil(t, baseline)
}

func TestFileStorePersistedShape(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), storeAddress, testSnapshot()))

	data, err := os.ReadFile(filepath.Join(dir, "0xabcd111111111111111111111111111111111111.json"))
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))

	var createdAt string
	require.NoError(t, json.Unmarshal(doc["createdAt"], &createdAt))
	assert.Equal(t, "2026-01-01T00:00:00.000Z", createdAt)

	var snap struct {
		TokenApprovals [][2]json.RawMessage `json:"tokenApprovals"`
		LookbackWindow struct {
			StartDate string `json:"startDate"`
		} `json:"lookbackWindow"`
	}
	require.NoError(t, json.Unmarshal(doc["snapshot"], &snap))

	// approvals persist as [token, spenders] pairs, dates as ISO strings
	require.Len(t, snap.TokenApprovals, 1)
	var token string
	require.NoError(t, json.Unmarshal(snap.TokenApprovals[0][0], &token))
	assert.Equal(t, "0xt1", token)
	assert.Equal(t, "2025-12-02T00:00:00.000Z", snap.LookbackWindow.StartDate)
}

func TestFileStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	path := filepath.Join(dir, "0xabcd111111111111111111111111111111111111.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o640))

	_, err = store.Get(context.Background(), storeAddress)
	assert.Error(t, err)
}

func TestNewFileStoreEmptyDir(t *testing.T) {
	_, err := NewFileStore("")
	assert.Error(t, err)
}
