// Package report renders diffs as plain-text reports for the CLI and API.
package report

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/agent-diff/internal/diff"
	"github.com/agent-diff/internal/types"
)

// requiredDisclaimer closes every report. The wording is fixed: reports
// describe behavioral change, never risk.
const requiredDisclaimer = "This report shows behavioral changes, not risk. Changes require user judgment."

// Formatter renders a diff as a deterministic plain-text report.
type Formatter struct{}

// NewFormatter creates a report formatter.
func NewFormatter() *Formatter {
	return &Formatter{}
}

// Format renders the full report.
func (f *Formatter) Format(d *types.Diff) string {
	lines := []string{
		fmt.Sprintf("Diff Report for %s", d.Address),
		fmt.Sprintf("Status: %s", statusLabel(d.Status)),
	}

	if diff.IsStale(d.BaselineAge) {
		lines = append(lines, fmt.Sprintf(
			"Baseline Context: Baseline is %d months old. Changes may reflect normal evolution.",
			d.BaselineAge))
	}

	lines = append(lines,
		"",
		"New Contract Interactions",
		formatContracts(d.Changes.NewContracts, d.Status),
		"",
		"Removed Contract Interactions",
		formatContracts(d.Changes.RemovedContracts, d.Status),
		"",
		"Token Approval Changes",
		formatTokenApprovals(d),
		"",
		"Transaction Volume Changes",
		formatVolume(d),
		"",
		fmt.Sprintf("Disclaimer: %s", requiredDisclaimer),
	)

	return strings.Join(lines, "\n")
}

func statusLabel(status types.DiffStatus) string {
	switch status {
	case types.StatusChangesDetected:
		return "Changes detected"
	case types.StatusNoChanges:
		return "No changes detected"
	default:
		return "Insufficient data"
	}
}

func formatContracts(contracts []string, status types.DiffStatus) string {
	if status == types.StatusInsufficientData {
		return "Unavailable due to insufficient data."
	}
	if len(contracts) == 0 {
		return "None."
	}

	lines := make([]string, 0, len(contracts))
	for _, address := range contracts {
		lines = append(lines, "- "+address)
	}
	return strings.Join(lines, "\n")
}

func formatTokenApprovals(d *types.Diff) string {
	if d.Status == types.StatusInsufficientData {
		return "Unavailable due to insufficient data."
	}

	return fmt.Sprintf("New: %s\nRevoked: %s",
		formatApprovalMap(d.Changes.TokenApprovalChanges.New),
		formatApprovalMap(d.Changes.TokenApprovalChanges.Revoked))
}

// formatApprovalMap renders token entries sorted by token address so the
// report is stable across runs.
func formatApprovalMap(approvals map[string][]string) string {
	if len(approvals) == 0 {
		return "None."
	}

	tokens := make([]string, 0, len(approvals))
	for token := range approvals {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	entries := make([]string, 0, len(tokens))
	for _, token := range tokens {
		entries = append(entries, fmt.Sprintf("%s -> [%s]", token, strings.Join(approvals[token], ", ")))
	}
	return strings.Join(entries, "; ")
}

func formatVolume(d *types.Diff) string {
	if d.Status == types.StatusInsufficientData {
		return "Unavailable due to insufficient data."
	}

	rounded := math.Round(d.Changes.VolumeChange.PercentChange*100) / 100
	direction := strconv.FormatFloat(rounded, 'f', -1, 64) + "%"
	if rounded > 0 {
		direction = "+" + direction
	}

	significance := "Not significant"
	if d.Changes.VolumeChange.Significant {
		significance = "Significant"
	}

	return fmt.Sprintf("Percent change: %s\nSignificance: %s", direction, significance)
}
