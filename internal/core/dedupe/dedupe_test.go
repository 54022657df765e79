package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/compat/internal/core/model"
)

func rec(id string, ids ...string) model.CompatibilityRecord {
	return model.NewRecord(id, ids)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, LastWriteWins, p)

	p, err = ParsePolicy(" Merge ")
	require.NoError(t, err)
	assert.Equal(t, Merge, p)

	_, err = ParsePolicy("first-wins")
	assert.Error(t, err)
}

func TestResolve_LastWriteWins(t *testing.T) {
	d := NewDeduplicator(LastWriteWins)

	input := []model.CompatibilityRecord{rec("A", "X"), rec("B", "Y"), rec("A", "Z")}
	out, dups := d.Resolve(input)

	assert.Equal(t, []model.CompatibilityRecord{rec("A", "Z"), rec("B", "Y")}, out)
	require.Len(t, dups, 1)
	assert.Equal(t, Duplicate{ProductID: "A", FirstIndex: 0, Index: 2}, dups[0])
}

func TestResolve_Merge(t *testing.T) {
	d := NewDeduplicator(Merge)

	out, dups := d.Resolve([]model.CompatibilityRecord{rec("A", "X"), rec("A", "X", "Y")})

	assert.Equal(t, []model.CompatibilityRecord{rec("A", "X", "X", "Y")}, out)
	assert.Len(t, dups, 1)
}

func TestResolve_NoDuplicates(t *testing.T) {
	d := NewDeduplicator("")
	assert.Equal(t, LastWriteWins, d.Policy)

	out, dups := d.Resolve([]model.CompatibilityRecord{rec("A"), rec("B", "C")})
	assert.Len(t, out, 2)
	assert.Empty(t, dups)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	input := []model.CompatibilityRecord{rec("A", "X"), rec("A", "Y")}

	out, _ := Apply(Merge, input)
	out[0].CompatibleProductIDs[0] = "changed"

	assert.Equal(t, []string{"X"}, input[0].CompatibleProductIDs)
	assert.Equal(t, []string{"Y"}, input[1].CompatibleProductIDs)
}

func TestViolations(t *testing.T) {
	dups := []Duplicate{{ProductID: "A", FirstIndex: 0, Index: 3}}

	errs := Violations(dups, func(i int) int { return i + 2 })
	require.Len(t, errs, 1)
	assert.Equal(t, 5, errs[0].Row)
	assert.Equal(t, `Row 5: duplicate Product ID "A" (first seen on row 2)`, errs[0].Message)
}
