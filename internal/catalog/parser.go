package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// ErrMissingColumn is returned when the header lacks Name, RA or Dec.
var ErrMissingColumn = errors.New("catalog: missing required column")

// Parse reads a CSV catalog with a header row. Rows whose RA or Dec is not a
// finite number are skipped with a warning log; a header without the
// required columns is an error.
func Parse(r io.Reader, logger *slog.Logger) (*Catalog, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty input", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("reading catalog header: %w", err)
	}

	columns, idx, err := resolveHeader(header)
	if err != nil {
		return nil, err
	}

	cat := &Catalog{Columns: columns, Targets: []Target{}}
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reading catalog line %d: %w", line, err)
		}
		if blank(rec) {
			continue
		}

		t, ok := buildTarget(rec, columns, idx, line, logger)
		if !ok {
			continue
		}
		cat.Targets = append(cat.Targets, t)
	}

	return cat, nil
}

type requiredIndex struct {
	name, ra, dec int
}

func resolveHeader(header []string) ([]string, requiredIndex, error) {
	idx := requiredIndex{name: -1, ra: -1, dec: -1}
	columns := make([]string, len(header))

	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		switch {
		case strings.EqualFold(h, ColumnName) && idx.name < 0:
			idx.name, h = i, ColumnName
		case strings.EqualFold(h, ColumnRA) && idx.ra < 0:
			idx.ra, h = i, ColumnRA
		case strings.EqualFold(h, ColumnDec) && idx.dec < 0:
			idx.dec, h = i, ColumnDec
		}
		columns[i] = h
	}

	var missing []string
	if idx.name < 0 {
		missing = append(missing, ColumnName)
	}
	if idx.ra < 0 {
		missing = append(missing, ColumnRA)
	}
	if idx.dec < 0 {
		missing = append(missing, ColumnDec)
	}
	if len(missing) > 0 {
		return nil, idx, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return columns, idx, nil
}

func buildTarget(rec, columns []string, idx requiredIndex, line int, logger *slog.Logger) (Target, bool) {
	field := func(i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	name := field(idx.name)
	ra, err := parseDegrees(field(idx.ra))
	if err != nil {
		logger.Warn("skipping catalog row with invalid RA", "line", line, "name", name, "value", field(idx.ra))
		return Target{}, false
	}
	dec, err := parseDegrees(field(idx.dec))
	if err != nil {
		logger.Warn("skipping catalog row with invalid Dec", "line", line, "name", name, "value", field(idx.dec))
		return Target{}, false
	}
	if ra < 0 || ra >= 360 || dec < -90 || dec > 90 {
		logger.Warn("catalog row outside nominal RA/Dec range", "line", line, "name", name, "ra", ra, "dec", dec)
	}

	extra := make(map[string]string, len(columns))
	for i, col := range columns {
		if i == idx.name || i == idx.ra || i == idx.dec {
			continue
		}
		extra[col] = field(i)
	}

	return Target{Name: name, RA: ra, Dec: dec, Extra: extra}, true
}

func parseDegrees(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
