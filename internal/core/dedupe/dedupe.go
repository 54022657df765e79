package dedupe

import (
	"fmt"
	"strings"

	"github.com/agenthands/compat/internal/core/model"
)

// Policy decides what happens when an upload declares the same Product ID twice.
type Policy string

const (
	// LastWriteWins keeps the first occurrence's position with the last occurrence's ids.
	LastWriteWins Policy = "last-write-wins"
	// Reject turns every repeat into a validation error.
	Reject Policy = "reject"
	// Merge concatenates the id lists of all occurrences in input order.
	Merge Policy = "merge"
)

// ParsePolicy maps a config value to a Policy. Empty means LastWriteWins.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.TrimSpace(strings.ToLower(s))); p {
	case "":
		return LastWriteWins, nil
	case LastWriteWins, Reject, Merge:
		return p, nil
	default:
		return "", fmt.Errorf("unknown duplicate policy %q", s)
	}
}

// Duplicate records a repeat of ProductID at Index, first seen at FirstIndex.
// Both indexes refer to the input slice.
type Duplicate struct {
	ProductID  string
	FirstIndex int
	Index      int
}

type Deduplicator struct {
	Policy Policy
}

func NewDeduplicator(policy Policy) *Deduplicator {
	if policy == "" {
		policy = LastWriteWins
	}
	return &Deduplicator{Policy: policy}
}

// Resolve collapses records to one per Product ID and reports every repeat.
// Under Reject the records are collapsed as LastWriteWins would; callers are
// expected to refuse the batch when duplicates come back.
func (d *Deduplicator) Resolve(records []model.CompatibilityRecord) ([]model.CompatibilityRecord, []Duplicate) {
	return Apply(d.Policy, records)
}

// Apply is Resolve without a Deduplicator. The input is never mutated.
func Apply(policy Policy, records []model.CompatibilityRecord) ([]model.CompatibilityRecord, []Duplicate) {
	out := make([]model.CompatibilityRecord, 0, len(records))
	first := make(map[string]int, len(records)) // product id -> input index
	slot := make(map[string]int, len(records))  // product id -> output index
	var duplicates []Duplicate

	for i, rec := range records {
		pos, seen := slot[rec.ProductID]
		if !seen {
			first[rec.ProductID] = i
			slot[rec.ProductID] = len(out)
			out = append(out, rec.Clone())
			continue
		}

		duplicates = append(duplicates, Duplicate{
			ProductID:  rec.ProductID,
			FirstIndex: first[rec.ProductID],
			Index:      i,
		})

		if policy == Merge {
			out[pos].CompatibleProductIDs = append(out[pos].CompatibleProductIDs, rec.CompatibleProductIDs...)
		} else {
			out[pos] = rec.Clone()
		}
	}

	return out, duplicates
}

// Violations renders duplicates as validation errors. rowNumber maps an input
// index to the row number shown to the operator.
func Violations(duplicates []Duplicate, rowNumber func(int) int) model.ValidationErrors {
	errs := make(model.ValidationErrors, 0, len(duplicates))
	for _, d := range duplicates {
		row := rowNumber(d.Index)
		errs = append(errs, model.ValidationError{
			Row: row,
			Message: fmt.Sprintf("Row %d: duplicate Product ID %q (first seen on row %d)",
				row, d.ProductID, rowNumber(d.FirstIndex)),
		})
	}
	return errs
}
