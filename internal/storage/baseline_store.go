// Package storage provides baseline persistence backends and the optional
// snapshot archive.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/agent-diff/internal/types"
)

// BaselineStore persists one baseline per address. Save never overwrites:
// a second save for the same address fails with a baseline-exists error.
type BaselineStore interface {
	// Get returns the baseline for the address, or (nil, nil) when absent.
	Get(ctx context.Context, address string) (*types.Baseline, error)

	// Save persists the snapshot as the address's baseline. CreatedAt is
	// derived from the snapshot's own timestamp.
	Save(ctx context.Context, address string, snapshot *types.Snapshot) error
}

// isoFormat matches the millisecond-precision ISO-8601 form the serialized
// baselines use on disk.
const isoFormat = "2006-01-02T15:04:05.000Z07:00"

// approvalEntry serializes one token's spender set as a [token, spenders]
// pair, so the approval map persists as an array of pairs.
type approvalEntry struct {
	Token    string
	Spenders []string
}

// MarshalJSON encodes the entry as a two-element array.
func (e approvalEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{e.Token, e.Spenders})
}

// UnmarshalJSON decodes a two-element [token, spenders] array.
func (e *approvalEntry) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[0], &e.Token); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &e.Spenders)
}

type serializedWindow struct {
	StartDate        string `json:"startDate"`
	EndDate          string `json:"endDate"`
	TransactionCount int    `json:"transactionCount"`
}

type serializedVolumeMetrics struct {
	DailyAverage   float64              `json:"dailyAverage"`
	TrendDirection types.TrendDirection `json:"trendDirection"`
}

type serializedGasUsage struct {
	AverageGasUsed float64               `json:"averageGasUsed"`
	Pattern        types.GasUsagePattern `json:"pattern"`
}

type serializedSnapshot struct {
	Address              string                  `json:"address"`
	Timestamp            int64                   `json:"timestamp"`
	LookbackWindow       serializedWindow        `json:"lookbackWindow"`
	ContractInteractions []string                `json:"contractInteractions"`
	TokenApprovals       []approvalEntry         `json:"tokenApprovals"`
	VolumeMetrics        serializedVolumeMetrics `json:"volumeMetrics"`
	GasUsage             serializedGasUsage      `json:"gasUsage"`
}

type serializedBaseline struct {
	Address   string             `json:"address"`
	CreatedAt string             `json:"createdAt"`
	Snapshot  serializedSnapshot `json:"snapshot"`
}

// serializeBaseline converts a baseline to its persisted form: ISO-8601
// dates, sets as arrays, the approval map as [key, value] pairs.
func serializeBaseline(baseline *types.Baseline) *serializedBaseline {
	snap := baseline.Snapshot

	approvals := make([]approvalEntry, 0, len(snap.TokenApprovals))
	for token, spenders := range snap.TokenApprovals {
		approvals = append(approvals, approvalEntry{Token: token, Spenders: spenders})
	}

	contracts := snap.ContractInteractions
	if contracts == nil {
		contracts = []string{}
	}

	return &serializedBaseline{
		Address:   baseline.Address,
		CreatedAt: baseline.CreatedAt.UTC().Format(isoFormat),
		Snapshot: serializedSnapshot{
			Address:   snap.Address,
			Timestamp: snap.Timestamp,
			LookbackWindow: serializedWindow{
				StartDate:        snap.LookbackWindow.StartDate.UTC().Format(isoFormat),
				EndDate:          snap.LookbackWindow.EndDate.UTC().Format(isoFormat),
				TransactionCount: snap.LookbackWindow.TransactionCount,
			},
			ContractInteractions: contracts,
			TokenApprovals:       approvals,
			VolumeMetrics: serializedVolumeMetrics{
				DailyAverage:   snap.VolumeMetrics.DailyAverage,
				TrendDirection: snap.VolumeMetrics.TrendDirection,
			},
			GasUsage: serializedGasUsage{
				AverageGasUsed: snap.GasUsage.AverageGasUsed,
				Pattern:        snap.GasUsage.Pattern,
			},
		},
	}
}

// deserializeBaseline converts the persisted form back to the domain type.
func deserializeBaseline(serialized *serializedBaseline) (*types.Baseline, error) {
	createdAt, err := parseISO(serialized.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid createdAt: %w", err)
	}
	startDate, err := parseISO(serialized.Snapshot.LookbackWindow.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid startDate: %w", err)
	}
	endDate, err := parseISO(serialized.Snapshot.LookbackWindow.EndDate)
	if err != nil {
		return nil, fmt.Errorf("invalid endDate: %w", err)
	}

	approvals := make(map[string][]string, len(serialized.Snapshot.TokenApprovals))
	for _, entry := range serialized.Snapshot.TokenApprovals {
		approvals[entry.Token] = entry.Spenders
	}

	return &types.Baseline{
		Address:   serialized.Address,
		CreatedAt: createdAt,
		Snapshot: types.Snapshot{
			Address:   serialized.Snapshot.Address,
			Timestamp: serialized.Snapshot.Timestamp,
			LookbackWindow: types.LookbackWindow{
				StartDate:        startDate,
				EndDate:          endDate,
				TransactionCount: serialized.Snapshot.LookbackWindow.TransactionCount,
			},
			ContractInteractions: serialized.Snapshot.ContractInteractions,
			TokenApprovals:       approvals,
			VolumeMetrics: types.VolumeMetrics{
				DailyAverage:   serialized.Snapshot.VolumeMetrics.DailyAverage,
				TrendDirection: serialized.Snapshot.VolumeMetrics.TrendDirection,
			},
			GasUsage: types.SnapshotGasUsage{
				AverageGasUsed: serialized.Snapshot.GasUsage.AverageGasUsed,
				Pattern:        serialized.Snapshot.GasUsage.Pattern,
			},
		},
	}, nil
}

// parseISO accepts RFC3339 timestamps with or without fractional seconds.
func parseISO(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// newBaseline fixes CreatedAt from the snapshot's own generation timestamp.
func newBaseline(address string, snapshot *types.Snapshot) *types.Baseline {
	return &types.Baseline{
		Address:   address,
		CreatedAt: time.Unix(snapshot.Timestamp, 0).UTC(),
		Snapshot:  *snapshot,
	}
}
