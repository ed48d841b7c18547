// Package diff compares a stored baseline against a freshly generated
// snapshot and reports what changed: contract counterparties, token
// approvals, and daily volume, plus baseline age and staleness context.
package diff

import (
	"time"

	"github.com/agent-diff/internal/types"
)

const (
	minTransactionsRequired    = 10
	significantVolumeChangePct = 50
	staleBaselineMonths        = 12
	zeroBaselineFullSwingPct   = 100
)

// Engine generates diffs. Pure and synchronous; it never fails. An
// under-populated side is reported as insufficient-data status, not an
// error. The clock is injectable for tests.
type Engine struct {
	now func() time.Time
}

// NewEngine creates a diff engine using the wall clock.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// WithNow returns an engine using a fixed clock. Test helper.
func (e *Engine) WithNow(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// Generate compares the baseline snapshot to the current one.
func (e *Engine) Generate(baseline *types.Baseline, current *types.Snapshot) *types.Diff {
	baselineAge := e.baselineAgeMonths(baseline.CreatedAt)

	if baseline.Snapshot.LookbackWindow.TransactionCount < minTransactionsRequired ||
		current.LookbackWindow.TransactionCount < minTransactionsRequired {
		return &types.Diff{
			Address:     current.Address,
			BaselineAge: baselineAge,
			Changes: types.Changes{
				NewContracts:     []string{},
				RemovedContracts: []string{},
				TokenApprovalChanges: types.TokenApprovalChanges{
					New:     map[string][]string{},
					Revoked: map[string][]string{},
				},
				VolumeChange: types.VolumeChange{PercentChange: 0, Significant: false},
			},
			Status: types.StatusInsufficientData,
		}
	}

	newContracts := setDifference(current.ContractInteractions, baseline.Snapshot.ContractInteractions)
	removedContracts := setDifference(baseline.Snapshot.ContractInteractions, current.ContractInteractions)
	approvalChanges := diffTokenApprovals(baseline.Snapshot.TokenApprovals, current.TokenApprovals)
	volumeChange := volumeChange(baseline.Snapshot.VolumeMetrics.DailyAverage, current.VolumeMetrics.DailyAverage)

	// Staleness is surfaced through BaselineAge for the report layer; it
	// never alters the computed significance flag.
	hasChanges := len(newContracts) > 0 ||
		len(removedContracts) > 0 ||
		len(approvalChanges.New) > 0 ||
		len(approvalChanges.Revoked) > 0 ||
		volumeChange.Significant

	status := types.StatusNoChanges
	if hasChanges {
		status = types.StatusChangesDetected
	}

	return &types.Diff{
		Address:     current.Address,
		BaselineAge: baselineAge,
		Changes: types.Changes{
			NewContracts:         newContracts,
			RemovedContracts:     removedContracts,
			TokenApprovalChanges: approvalChanges,
			VolumeChange:         volumeChange,
		},
		Status: status,
	}
}

// IsStale reports whether a baseline of the given age is older than the
// 12-month staleness threshold. Informational only.
func IsStale(baselineAgeMonths int) bool {
	return baselineAgeMonths > staleBaselineMonths
}

// baselineAgeMonths computes whole calendar months between createdAt and
// now, using only the year and month fields, clamped at zero.
func (e *Engine) baselineAgeMonths(createdAt time.Time) int {
	now := e.now().UTC()
	created := createdAt.UTC()

	years := now.Year() - created.Year()
	months := int(now.Month()) - int(created.Month())
	age := years*12 + months
	if age < 0 {
		return 0
	}
	return age
}

// setDifference returns elements of source absent from target, preserving
// source order.
func setDifference(source, target []string) []string {
	targetSet := make(map[string]bool, len(target))
	for _, item := range target {
		targetSet[item] = true
	}

	results := []string{}
	for _, item := range source {
		if !targetSet[item] {
			results = append(results, item)
		}
	}
	return results
}

// diffTokenApprovals reconciles spender sets per token across the union of
// token addresses. Tokens whose difference is empty are omitted, so the
// maps never hold empty spender sequences.
func diffTokenApprovals(baseline, current map[string][]string) types.TokenApprovalChanges {
	newlyApproved := map[string][]string{}
	revoked := map[string][]string{}

	tokens := make(map[string]bool, len(baseline)+len(current))
	for token := range baseline {
		tokens[token] = true
	}
	for token := range current {
		tokens[token] = true
	}

	for token := range tokens {
		newSpenders := setDifference(current[token], baseline[token])
		revokedSpenders := setDifference(baseline[token], current[token])

		if len(newSpenders) > 0 {
			newlyApproved[token] = newSpenders
		}
		if len(revokedSpenders) > 0 {
			revoked[token] = revokedSpenders
		}
	}

	return types.TokenApprovalChanges{New: newlyApproved, Revoked: revoked}
}

// volumeChange computes the percent change in daily average volume. A zero
// baseline maps to 0 when current is also zero and to a full 100% swing
// otherwise, avoiding division by zero.
func volumeChange(baselineAvg, currentAvg float64) types.VolumeChange {
	var percentChange float64
	switch {
	case baselineAvg == 0 && currentAvg == 0:
		percentChange = 0
	case baselineAvg == 0:
		percentChange = zeroBaselineFullSwingPct
	default:
		percentChange = (currentAvg - baselineAvg) / baselineAvg * 100
	}

	return types.VolumeChange{
		PercentChange: percentChange,
		Significant:   abs(percentChange) > significantVolumeChangePct,
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
