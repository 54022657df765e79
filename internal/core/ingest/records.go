package ingest

import (
	"strings"

	"github.com/agenthands/compat/internal/core/model"
)

// Records derives one record per row of a validated table, in row order.
func Records(t Table) []model.CompatibilityRecord {
	records := make([]model.CompatibilityRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		id, _ := row.Value(ColumnProductID)
		cell, _ := row.Value(ColumnCompatibleIDs)
		records = append(records, model.NewRecord(strings.TrimSpace(id), SplitIDs(cell)))
	}
	return records
}

// SplitIDs splits a comma-joined cell, trimming each id and dropping empties.
// Duplicates are kept: "a, ,b,a" → [a b a].
func SplitIDs(cell string) []string {
	ids := []string{}
	for _, part := range strings.Split(cell, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// RowNumber maps a record index produced by Records back to its display row.
func RowNumber(index int) int {
	return displayRow(index)
}
