package ingest

import (
	"fmt"
	"strings"

	"github.com/agenthands/compat/internal/core/model"
)

// displayRow converts a zero-based data row index into the row number an operator
// sees in a spreadsheet (the header is row 1).
func displayRow(index int) int {
	return index + 2
}

// Validate checks the table structure and every row. It never mutates t and
// reports all problems at once. An empty result means the table can be ingested.
func Validate(t Table) model.ValidationErrors {
	errs := model.ValidationErrors{}

	if t.Header == nil && len(t.Rows) == 0 {
		return append(errs, model.ValidationError{Message: "CSV file is empty"})
	}

	var missing []string
	for _, column := range RequiredColumns {
		if !t.HasColumn(column) {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		errs = append(errs, model.ValidationError{
			Message: "Missing required columns: " + strings.Join(missing, ", "),
		})
	}

	for i, row := range t.Rows {
		n := displayRow(i)
		for _, column := range RequiredColumns {
			if v, _ := row.Value(column); strings.TrimSpace(v) == "" {
				errs = append(errs, model.ValidationError{
					Row:     n,
					Message: fmt.Sprintf("Row %d: %s is required", n, column),
				})
			}
		}
	}

	return errs
}
