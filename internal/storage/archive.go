package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/agent-diff/internal/config"
	"github.com/agent-diff/internal/types"
)

const archiveSchema = `
CREATE TABLE IF NOT EXISTS snapshot_archive (
	address              String,
	generated_at         DateTime,
	window_start         DateTime,
	window_end           DateTime,
	transaction_count    UInt32,
	contract_count       UInt32,
	approval_token_count UInt32,
	daily_average        Float64,
	trend_direction      LowCardinality(String),
	average_gas_used     Float64,
	gas_pattern          LowCardinality(String),
	token_approvals      String
) ENGINE = MergeTree()
ORDER BY (address, generated_at)
`

// SnapshotArchive appends every generated snapshot to ClickHouse for offline
// analysis. Archiving is best-effort; callers log failures and move on.
type SnapshotArchive struct {
	conn driver.Conn
}

// NewSnapshotArchive dials ClickHouse and verifies the connection. The
// archive only ever runs single-row inserts, so one connection with a spare
// is plenty.
func NewSnapshotArchive(cfg *config.ClickHouseConfig) (*SnapshotArchive, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to snapshot archive: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close() // nolint:errcheck // connection is being discarded
		return nil, fmt.Errorf("snapshot archive unreachable: %w", err)
	}

	return &SnapshotArchive{conn: conn}, nil
}

// Close closes the archive connection.
func (a *SnapshotArchive) Close() error {
	if a.conn != nil {
		return a.conn.Close()
	}
	return nil
}

// EnsureSchema creates the archive table when it does not exist yet.
func (a *SnapshotArchive) EnsureSchema(ctx context.Context) error {
	return a.conn.Exec(ctx, archiveSchema)
}

// Archive inserts one flattened snapshot row.
func (a *SnapshotArchive) Archive(ctx context.Context, snapshot *types.Snapshot) error {
	approvals, err := json.Marshal(snapshot.TokenApprovals)
	if err != nil {
		return err
	}

	return a.conn.Exec(ctx,
		`INSERT INTO snapshot_archive (
			address, generated_at, window_start, window_end,
			transaction_count, contract_count, approval_token_count,
			daily_average, trend_direction, average_gas_used, gas_pattern,
			token_approvals
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snapshot.Address,
		time.Unix(snapshot.Timestamp, 0).UTC(),
		snapshot.LookbackWindow.StartDate.UTC(),
		snapshot.LookbackWindow.EndDate.UTC(),
		uint32(snapshot.LookbackWindow.TransactionCount), // #nosec G115 - capped at 1000
		uint32(len(snapshot.ContractInteractions)),       // #nosec G115 - bounded by window cap
		uint32(len(snapshot.TokenApprovals)),             // #nosec G115 - bounded by window cap
		snapshot.VolumeMetrics.DailyAverage,
		string(snapshot.VolumeMetrics.TrendDirection),
		snapshot.GasUsage.AverageGasUsed,
		string(snapshot.GasUsage.Pattern),
		string(approvals),
	)
}
