package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agent-diff/internal/types"
)

func emptyChanges() types.Changes {
	return types.Changes{
		NewContracts:     []string{},
		RemovedContracts: []string{},
		TokenApprovalChanges: types.TokenApprovalChanges{
			New:     map[string][]string{},
			Revoked: map[string][]string{},
		},
	}
}

func TestFormatNoChanges(t *testing.T) {
	f := NewFormatter()

	out := f.Format(&types.Diff{
		Address:     "0xabc",
		BaselineAge: 2,
		Changes:     emptyChanges(),
		Status:      types.StatusNoChanges,
	})

	assert.Contains(t, out, "Diff Report for 0xabc")
	assert.Contains(t, out, "Status: No changes detected")
	assert.NotContains(t, out, "Baseline Context")
	assert.Contains(t, out, "New Contract Interactions\nNone.")
	assert.Contains(t, out, "Removed Contract Interactions\nNone.")
	assert.Contains(t, out, "New: None.\nRevoked: None.")
	assert.Contains(t, out, "Percent change: 0%")
	assert.Contains(t, out, "Significance: Not significant")
	assert.True(t, strings.HasSuffix(out,
		"Disclaimer: This report shows behavioral changes, not risk. Changes require user judgment."))
}

func TestFormatChangesDetected(t *testing.T) {
	f := NewFormatter()

	changes := emptyChanges()
	changes.NewContracts = []string{"0xc1", "0xc2"}
	changes.TokenApprovalChanges.New = map[string][]string{
		"0xt2": {"0xs3"},
		"0xt1": {"0xs1", "0xs2"},
	}
	changes.VolumeChange = types.VolumeChange{PercentChange: 75.456, Significant: true}

	out := f.Format(&types.Diff{
		Address: "0xabc",
		Changes: changes,
		Status:  types.StatusChangesDetected,
	})

	assert.Contains(t, out, "Status: Changes detected")
	assert.Contains(t, out, "- 0xc1\n- 0xc2")
	// tokens sorted by address, spenders joined with commas
	assert.Contains(t, out, "New: 0xt1 -> [0xs1, 0xs2]; 0xt2 -> [0xs3]")
	assert.Contains(t, out, "Percent change: +75.46%")
	assert.Contains(t, out, "Significance: Significant")
}

func TestFormatNegativePercent(t *testing.T) {
	f := NewFormatter()

	changes := emptyChanges()
	changes.VolumeChange = types.VolumeChange{PercentChange: -60, Significant: true}

	out := f.Format(&types.Diff{Address: "0xabc", Changes: changes, Status: types.StatusChangesDetected})

	assert.Contains(t, out, "Percent change: -60%")
}

func TestFormatStaleBaselineContext(t *testing.T) {
	f := NewFormatter()

	out := f.Format(&types.Diff{
		Address:     "0xabc",
		BaselineAge: 14,
		Changes:     emptyChanges(),
		Status:      types.StatusNoChanges,
	})

	assert.Contains(t, out,
		"Baseline Context: Baseline is 14 months old. Changes may reflect normal evolution.")
}

func TestFormatExactly12MonthsNotStale(t *testing.T) {
	f := NewFormatter()

	out := f.Format(&types.Diff{
		Address:     "0xabc",
		BaselineAge: 12,
		Changes:     emptyChanges(),
		Status:      types.StatusNoChanges,
	})

	assert.NotContains(t, out, "Baseline Context")
}

func TestFormatInsufficientData(t *testing.T) {
	f := NewFormatter()

	out := f.Format(&types.Diff{
		Address: "0xabc",
		Changes: emptyChanges(),
		Status:  types.StatusInsufficientData,
	})

	assert.Contains(t, out, "Status: Insufficient data")
	assert.Equal(t, 4, strings.Count(out, "Unavailable due to insufficient data."))
	assert.Contains(t, out, "Disclaimer:")
}
