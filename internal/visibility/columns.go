package visibility

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// AltColumn names the altitude column for an hour offset: "Alt UT" for 0,
// "Alt UT+3", "Alt UT-2" otherwise.
func AltColumn(offset int) string {
	if offset == 0 {
		return "Alt UT"
	}
	return fmt.Sprintf("Alt UT%+d", offset)
}

// FormatDegrees renders RA or Dec with five decimals.
func FormatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', 5, 64)
}

// FormatAltitude renders a rounded altitude with one decimal.
func FormatAltitude(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// WriteCSV writes the table surface as CSV with a header row.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, c := range t.Columns {
			rec[i] = row.Values[c]
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
