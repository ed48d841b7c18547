// Package snapshot materializes a windowed behavioral snapshot from the
// analyzer's aggregate: it applies the 30-day lookback window, computes
// volume and trend metrics, and enforces the minimum-activity threshold.
package snapshot

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/agent-diff/internal/errors"
	"github.com/agent-diff/internal/types"
)

const (
	maxLookbackDays         = 30
	maxLookbackTransactions = 1000
	minTransactionsRequired = 10

	// changeRatio thresholds for trend classification
	trendChangeThreshold = 0.10

	dayFormat = "2006-01-02"
)

// Generator produces snapshots. The clock is injectable for tests.
type Generator struct {
	now func() time.Time
}

// NewGenerator creates a snapshot generator using the wall clock.
func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// WithNow returns a generator using a fixed clock. Test helper.
func (g *Generator) WithNow(now func() time.Time) *Generator {
	return &Generator{now: now}
}

// dayCount is one in-window daily volume bucket.
type dayCount struct {
	day   string
	count int
}

// Generate builds a snapshot for the address from analyzed activity.
// Only daily buckets on or after the day-truncated 30-day cutoff count;
// the in-window total is capped at 1000 and must reach 10, otherwise a
// typed insufficient-data error is returned with no partial snapshot.
func (g *Generator) Generate(address string, analyzed *types.AnalyzedTransactions) (*types.Snapshot, error) {
	now := g.now().UTC()
	cutoff := now.AddDate(0, 0, -maxLookbackDays)
	cutoff = time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, time.UTC)

	entries := inWindowEntries(analyzed.DailyTransactionVolume, cutoff)

	total := 0
	for _, e := range entries {
		total += e.count
	}
	transactionCount := total
	if transactionCount > maxLookbackTransactions {
		transactionCount = maxLookbackTransactions
	}

	if transactionCount < minTransactionsRequired {
		return nil, errors.NewInsufficientDataError(transactionCount, minTransactionsRequired)
	}

	startDate := cutoff
	endDate := now
	if len(entries) > 0 {
		first, _ := time.Parse(dayFormat, entries[0].day)
		last, _ := time.Parse(dayFormat, entries[len(entries)-1].day)
		startDate = first
		endDate = last.Add(24*time.Hour - time.Millisecond)
	}

	return &types.Snapshot{
		Address:   address,
		Timestamp: now.Unix(),
		LookbackWindow: types.LookbackWindow{
			StartDate:        startDate,
			EndDate:          endDate,
			TransactionCount: transactionCount,
		},
		ContractInteractions: append([]string{}, analyzed.ContractInteractions...),
		TokenApprovals:       buildTokenApprovals(analyzed.ApprovalEvents),
		VolumeMetrics: types.VolumeMetrics{
			DailyAverage:   dailyAverage(transactionCount, len(entries)),
			TrendDirection: trendDirection(entries),
		},
		GasUsage: types.SnapshotGasUsage{
			AverageGasUsed: parseAverageGas(analyzed.GasUsage.AverageGasUsed),
			Pattern:        analyzed.GasUsage.Pattern,
		},
	}, nil
}

// inWindowEntries filters daily buckets to the window and sorts them by
// ISO date string, which is chronological order. Buckets with unparsable
// day keys are discarded.
func inWindowEntries(dailyVolume map[string]int, cutoff time.Time) []dayCount {
	entries := make([]dayCount, 0, len(dailyVolume))
	for day, count := range dailyVolume {
		parsed, err := time.Parse(dayFormat, day)
		if err != nil {
			continue
		}
		if parsed.Before(cutoff) {
			continue
		}
		entries = append(entries, dayCount{day: day, count: count})
	}

	sort.Slice(entries, func(i, j int) bool {
		return strings.Compare(entries[i].day, entries[j].day) < 0
	})

	return entries
}

// buildTokenApprovals groups approval events by lowercased token address
// with a deduplicated spender set per token.
func buildTokenApprovals(events []types.ApprovalEvent) map[string][]string {
	byToken := make(map[string]map[string]bool)
	result := make(map[string][]string)

	for _, event := range events {
		token := strings.ToLower(event.TokenAddress)
		spender := strings.ToLower(event.Spender)

		spenders := byToken[token]
		if spenders == nil {
			spenders = make(map[string]bool)
			byToken[token] = spenders
		}
		if !spenders[spender] {
			spenders[spender] = true
			result[token] = append(result[token], spender)
		}
	}

	return result
}

// dailyAverage is the in-window count divided by the number of active days.
func dailyAverage(transactionCount, daysWithActivity int) float64 {
	if transactionCount == 0 || daysWithActivity == 0 {
		return 0
	}
	return float64(transactionCount) / float64(daysWithActivity)
}

// trendDirection splits the sorted in-window days into a ceil(n/2) first
// half and the remainder, compares the halves' mean counts, and classifies
// the change ratio against the +/-10% thresholds.
func trendDirection(entries []dayCount) types.TrendDirection {
	if len(entries) < 2 {
		return types.TrendStable
	}

	midpoint := (len(entries) + 1) / 2
	firstAvg := averageCount(entries[:midpoint])
	secondAvg := averageCount(entries[midpoint:])

	if firstAvg == 0 && secondAvg == 0 {
		return types.TrendStable
	}
	if firstAvg == 0 {
		// went from nothing to something: treated as an unbounded increase
		return types.TrendIncreasing
	}

	changeRatio := (secondAvg - firstAvg) / firstAvg
	switch {
	case changeRatio > trendChangeThreshold:
		return types.TrendIncreasing
	case changeRatio < -trendChangeThreshold:
		return types.TrendDecreasing
	default:
		return types.TrendStable
	}
}

// averageCount is the arithmetic mean of the bucket counts.
func averageCount(entries []dayCount) float64 {
	if len(entries) == 0 {
		return 0
	}
	sum := 0
	for _, e := range entries {
		sum += e.count
	}
	return float64(sum) / float64(len(entries))
}

// parseAverageGas converts the analyzer's big-integer decimal string to a
// numeric value for the snapshot.
func parseAverageGas(avg string) float64 {
	value, err := strconv.ParseFloat(avg, 64)
	if err != nil {
		return 0
	}
	return value
}
