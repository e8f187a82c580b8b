package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
)

// ReadCSV reads a requirement sheet in CSV form. Course-list cells that
// contain commas must be quoted.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read requirement csv: %w", err)
	}
	return fromRows(rows)
}
