package catalog

import "time"

// Canonical names of the required catalog columns. Header cells are matched
// case-insensitively and rewritten to these spellings.
const (
	ColumnName = "Name"
	ColumnRA   = "RA"
	ColumnDec  = "Dec"
)

// Target is one catalog row. RA and Dec are J2000 degrees; Extra holds the
// passthrough columns keyed by their header text.
type Target struct {
	Name  string
	RA    float64
	Dec   float64
	Extra map[string]string
}

// Value returns the raw text for the Name column or a passthrough column.
// RA and Dec are numeric and have no raw text here.
func (t Target) Value(column string) string {
	if column == ColumnName {
		return t.Name
	}
	return t.Extra[column]
}

// Catalog is the immutable target list loaded at startup. Columns keeps the
// header order of the source file.
type Catalog struct {
	Source   string
	LoadedAt time.Time
	Columns  []string
	Targets  []Target
}

// Len returns the number of targets, treating a nil catalog as empty.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Targets)
}
