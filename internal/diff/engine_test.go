package diff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/agent-diff/internal/types"
)

const testAddress = "0x1111111111111111111111111111111111111111"

var engineNow = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func testEngine() *Engine {
	return NewEngine().WithNow(func() time.Time { return engineNow })
}

func snapshotWith(count int, contracts []string, approvals map[string][]string, dailyAvg float64) types.Snapshot {
	if approvals == nil {
		approvals = map[string][]string{}
	}
	return types.Snapshot{
		Address: testAddress,
		LookbackWindow: types.LookbackWindow{
			TransactionCount: count,
		},
		ContractInteractions: contracts,
		TokenApprovals:       approvals,
		VolumeMetrics:        types.VolumeMetrics{DailyAverage: dailyAvg, TrendDirection: types.TrendStable},
	}
}

func baselineWith(createdAt time.Time, snap types.Snapshot) *types.Baseline {
	return &types.Baseline{Address: testAddress, CreatedAt: createdAt, Snapshot: snap}
}

func TestGenerateNoChanges(t *testing.T) {
	e := testEngine()
	snap := snapshotWith(20, []string{"0xc1"}, map[string][]string{"0xt1": {"0xs1"}}, 5)

	diff := e.Generate(baselineWith(engineNow, snap), &snap)

	assert.Equal(t, types.StatusNoChanges, diff.Status)
	assert.Equal(t, testAddress, diff.Address)
	assert.Empty(t, diff.Changes.NewContracts)
	assert.Empty(t, diff.Changes.RemovedContracts)
	assert.Empty(t, diff.Changes.TokenApprovalChanges.New)
	assert.Empty(t, diff.Changes.TokenApprovalChanges.Revoked)
	assert.False(t, diff.Changes.VolumeChange.Significant)
}

func TestGenerateContractChanges(t *testing.T) {
	e := testEngine()
	base := snapshotWith(20, []string{"0xc1", "0xc2"}, nil, 5)
	curr := snapshotWith(20, []string{"0xc2", "0xc3", "0xc4"}, nil, 5)

	diff := e.Generate(baselineWith(engineNow, base), &curr)

	assert.Equal(t, types.StatusChangesDetected, diff.Status)
	assert.Equal(t, []string{"0xc3", "0xc4"}, diff.Changes.NewContracts)
	assert.Equal(t, []string{"0xc1"}, diff.Changes.RemovedContracts)
}

func TestGenerateApprovalChanges(t *testing.T) {
	e := testEngine()
	base := snapshotWith(20, nil, map[string][]string{
		"0xt1": {"0xs1", "0xs2"},
		"0xt2": {"0xs1"},
	}, 5)
	curr := snapshotWith(20, nil, map[string][]string{
		"0xt1": {"0xs2", "0xs3"},
		"0xt3": {"0xs9"},
	}, 5)

	diff := e.Generate(baselineWith(engineNow, base), &curr)

	assert.Equal(t, types.StatusChangesDetected, diff.Status)
	assert.Equal(t, map[string][]string{
		"0xt1": {"0xs3"},
		"0xt3": {"0xs9"},
	}, diff.Changes.TokenApprovalChanges.New)
	assert.Equal(t, map[string][]string{
		"0xt1": {"0xs1"},
		"0xt2": {"0xs1"},
	}, diff.Changes.TokenApprovalChanges.Revoked)
}

func TestGenerateVolumeChange(t *testing.T) {
	tests := []struct {
		name        string
		baseAvg     float64
		currAvg     float64
		pct         float64
		significant bool
	}{
		{"increase within threshold", 10, 15, 50, false},
		{"sixty percent increase", 10, 16, 60, true},
		{"significant increase", 10, 15.1, 51, true},
		{"significant decrease", 10, 4, -60, true},
		{"both zero", 0, 0, 0, false},
		{"zero baseline nonzero current", 0, 3, 100, true},
		{"no change", 8, 8, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := testEngine()
			base := snapshotWith(20, nil, nil, tt.baseAvg)
			curr := snapshotWith(20, nil, nil, tt.currAvg)

			diff := e.Generate(baselineWith(engineNow, base), &curr)

			assert.InDelta(t, tt.pct, diff.Changes.VolumeChange.PercentChange, 1e-9)
			assert.Equal(t, tt.significant, diff.Changes.VolumeChange.Significant)
		})
	}
}

func TestGenerateInsufficientData(t *testing.T) {
	e := testEngine()

	tests := []struct {
		name      string
		baseCount int
		currCount int
	}{
		{"baseline below minimum", 9, 20},
		{"current below minimum", 20, 9},
		{"both below minimum", 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := snapshotWith(tt.baseCount, []string{"0xc1"}, nil, 5)
			curr := snapshotWith(tt.currCount, []string{"0xc2"}, nil, 50)

			created := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
			diff := e.Generate(baselineWith(created, base), &curr)

			assert.Equal(t, types.StatusInsufficientData, diff.Status)
			// collections are empty, not nil, and the age is still reported
			assert.Equal(t, []string{}, diff.Changes.NewContracts)
			assert.Equal(t, []string{}, diff.Changes.RemovedContracts)
			assert.Empty(t, diff.Changes.TokenApprovalChanges.New)
			assert.Equal(t, 3, diff.BaselineAge)
		})
	}
}

func TestBaselineAgeMonths(t *testing.T) {
	e := testEngine() // now = 2026-02-01

	tests := []struct {
		name      string
		createdAt time.Time
		want      int
	}{
		{"same month", time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC), 0},
		{"day of month ignored", time.Date(2026, 1, 31, 23, 0, 0, 0, time.UTC), 1},
		{"across year boundary", time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), 14},
		{"future clamped to zero", time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.baselineAgeMonths(tt.createdAt))
		})
	}
}

func TestStaleBaselineIsInformationalOnly(t *testing.T) {
	e := testEngine()
	snap := snapshotWith(20, []string{"0xc1"}, nil, 5)

	// 14 months old and identical snapshots: stale alone is not a change
	created := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	diff := e.Generate(baselineWith(created, snap), &snap)

	assert.Equal(t, 14, diff.BaselineAge)
	assert.True(t, IsStale(diff.BaselineAge))
	assert.Equal(t, types.StatusNoChanges, diff.Status)
	assert.False(t, diff.Changes.VolumeChange.Significant)
}

func TestGasPatternNotCompared(t *testing.T) {
	e := testEngine()

	base := snapshotWith(20, []string{"0xc1"}, nil, 5)
	base.GasUsage = types.SnapshotGasUsage{AverageGasUsed: 50000, Pattern: types.GasPatternLow}
	curr := snapshotWith(20, []string{"0xc1"}, nil, 5)
	curr.GasUsage = types.SnapshotGasUsage{AverageGasUsed: 600000, Pattern: types.GasPatternHigh}

	diff := e.Generate(baselineWith(engineNow, base), &curr)

	assert.Equal(t, types.StatusNoChanges, diff.Status)
}

func TestIsStale(t *testing.T) {
	assert.False(t, IsStale(12))
	assert.True(t, IsStale(13))
}

func TestSetDifferencePreservesSourceOrder(t *testing.T) {
	got := setDifference([]string{"c", "a", "b"}, []string{"a"})
	assert.Equal(t, []string{"c", "b"}, got)
}
