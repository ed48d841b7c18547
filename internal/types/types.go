// Package types provides common type definitions for the behavior diff system.
package types

import "time"

// GasUsagePattern classifies an address's average gas consumption.
type GasUsagePattern string

const (
	// GasPatternLow represents average gas usage at or below 100,000
	GasPatternLow GasUsagePattern = "low"
	// GasPatternMedium represents average gas usage at or below 500,000
	GasPatternMedium GasUsagePattern = "medium"
	// GasPatternHigh represents average gas usage above 500,000
	GasPatternHigh GasUsagePattern = "high"
)

// TrendDirection describes how daily transaction volume moved across the window.
type TrendDirection string

const (
	// TrendIncreasing represents a volume change ratio above +10%
	TrendIncreasing TrendDirection = "increasing"
	// TrendDecreasing represents a volume change ratio below -10%
	TrendDecreasing TrendDirection = "decreasing"
	// TrendStable represents a volume change ratio within +/-10%
	TrendStable TrendDirection = "stable"
)

// DiffStatus represents the outcome of comparing a baseline to a snapshot.
type DiffStatus string

const (
	// StatusChangesDetected means at least one behavioral change was found
	StatusChangesDetected DiffStatus = "changes_detected"
	// StatusNoChanges means the snapshots match on every compared dimension
	StatusNoChanges DiffStatus = "no_changes"
	// StatusInsufficientData means one side had too little activity to compare
	StatusInsufficientData DiffStatus = "insufficient_data"
)

// RawLog represents a single log record emitted during a transaction.
type RawLog struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
	Data    string   `json:"data"`
}

// RawTransaction represents one on-chain transaction touching the monitored
// address. To is empty for contract creation transactions. Value and GasUsed
// are decimal strings to avoid overflow on large amounts.
type RawTransaction struct {
	Hash      string   `json:"hash"`
	To        string   `json:"to"`
	From      string   `json:"from"`
	Value     string   `json:"value"`
	GasUsed   string   `json:"gasUsed"`
	Timestamp int64    `json:"timestamp"`
	Logs      []RawLog `json:"logs,omitempty"`
}

// Lookback bounds how much history the chain data provider fetches.
type Lookback struct {
	MaxDays         int
	MaxTransactions int
}

// DefaultLookback returns the standard 30-day, 1000-transaction window.
func DefaultLookback() Lookback {
	return Lookback{MaxDays: 30, MaxTransactions: 1000}
}

// ApprovalEvent represents a decoded ERC-20 Approval log.
type ApprovalEvent struct {
	TokenAddress    string `json:"tokenAddress"`
	Owner           string `json:"owner"`
	Spender         string `json:"spender"`
	Value           string `json:"value"` // approved amount as a decimal string
	TransactionHash string `json:"transactionHash"`
	Timestamp       int64  `json:"timestamp"`
}

// GasUsage summarizes gas consumption across analyzed transactions.
// AverageGasUsed is a decimal string because the running sum is computed
// with big-integer arithmetic.
type GasUsage struct {
	AverageGasUsed string          `json:"averageGasUsed"`
	Pattern        GasUsagePattern `json:"pattern"`
}

// AnalyzedTransactions is the analyzer's aggregate over a raw transaction list.
// DailyTransactionVolume is keyed by UTC calendar day (YYYY-MM-DD).
type AnalyzedTransactions struct {
	ContractInteractions   []string        `json:"contractInteractions"`
	ApprovalEvents         []ApprovalEvent `json:"approvalEvents"`
	DailyTransactionVolume map[string]int  `json:"dailyTransactionVolume"`
	GasUsage               GasUsage        `json:"gasUsage"`
}

// LookbackWindow reports the effective window bounds of a snapshot.
type LookbackWindow struct {
	StartDate        time.Time `json:"startDate"`
	EndDate          time.Time `json:"endDate"`
	TransactionCount int       `json:"transactionCount"`
}

// VolumeMetrics holds aggregate volume figures for a snapshot.
type VolumeMetrics struct {
	DailyAverage   float64        `json:"dailyAverage"`
	TrendDirection TrendDirection `json:"trendDirection"`
}

// SnapshotGasUsage is the numeric form of GasUsage carried by a snapshot.
type SnapshotGasUsage struct {
	AverageGasUsed float64         `json:"averageGasUsed"`
	Pattern        GasUsagePattern `json:"pattern"`
}

// Snapshot is a point-in-time, windowed summary of an address's behavior.
// TokenApprovals maps a token address to its deduplicated spender set.
// A successfully generated snapshot always has TransactionCount >= 10.
type Snapshot struct {
	Address              string              `json:"address"`
	Timestamp            int64               `json:"timestamp"` // generation time, Unix seconds
	LookbackWindow       LookbackWindow      `json:"lookbackWindow"`
	ContractInteractions []string            `json:"contractInteractions"`
	TokenApprovals       map[string][]string `json:"tokenApprovals"`
	VolumeMetrics        VolumeMetrics       `json:"volumeMetrics"`
	GasUsage             SnapshotGasUsage    `json:"gasUsage"`
}

// Baseline is the persisted reference snapshot for an address. CreatedAt is
// fixed at the moment the snapshot first became the baseline; a baseline is
// never overwritten.
type Baseline struct {
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	Snapshot  Snapshot  `json:"snapshot"`
}

// VolumeChange reports the relative movement in daily average volume.
type VolumeChange struct {
	PercentChange float64 `json:"percentChange"`
	Significant   bool    `json:"significant"`
}

// TokenApprovalChanges holds per-token spender additions and removals.
// Tokens with no additions (respectively removals) are omitted from the map.
type TokenApprovalChanges struct {
	New     map[string][]string `json:"new"`
	Revoked map[string][]string `json:"revoked"`
}

// Changes groups every compared dimension of a diff.
type Changes struct {
	NewContracts         []string             `json:"newContracts"`
	RemovedContracts     []string             `json:"removedContracts"`
	TokenApprovalChanges TokenApprovalChanges `json:"tokenApprovalChanges"`
	VolumeChange         VolumeChange         `json:"volumeChange"`
}

// Diff is the structured result of comparing a baseline to a current
// snapshot. BaselineAge is whole calendar months.
type Diff struct {
	Address     string     `json:"address"`
	BaselineAge int        `json:"baselineAge"`
	Changes     Changes    `json:"changes"`
	Status      DiffStatus `json:"status"`
}
