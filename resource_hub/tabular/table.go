package tabular

import "strconv"

// Dtype is the inferred primitive type of one column's values.
type Dtype string

const (
	IntegerDtype Dtype = "integer"
	FloatDtype   Dtype = "float"
	StringDtype  Dtype = "string"
)

func (d Dtype) IsNumeric() bool {
	return d == IntegerDtype || d == FloatDtype
}

// missing value tokens recognized in cells
var missingTokens = map[string]struct{}{
	"":    {},
	"NA":  {},
	"N/A": {},
	"NaN": {},
	"nan": {},
}

func IsMissing(cell string) bool {
	_, ok := missingTokens[cell]
	return ok
}

// Table is the in-memory form of a parsed file: ordered column labels,
// ordered row labels (the first file column, serving as entity identifiers),
// and the remaining cells as text. It is transient, reconstructed on demand,
// and never persisted directly.
type Table struct {
	Columns []string
	Rows    []string
	Values  [][]string

	dtypes []Dtype
}

func (t *Table) NumRows() int {
	return len(t.Rows)
}

func (t *Table) NumColumns() int {
	return len(t.Columns)
}

// Head returns a table containing at most n leading rows. The dtypes are
// recomputed from the retained rows.
func (t *Table) Head(n int) *Table {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	head := &Table{Columns: t.Columns, Rows: t.Rows[:n], Values: t.Values[:n]}
	head.inferDtypes()
	return head
}

// Dtypes returns the per-column inferred types, index-aligned with Columns.
func (t *Table) Dtypes() []Dtype {
	return t.dtypes
}

// Column returns the cells of the column at position idx.
func (t *Table) Column(idx int) []string {
	cells := make([]string, 0, len(t.Values))
	for _, row := range t.Values {
		cells = append(cells, row[idx])
	}
	return cells
}

// inferDtypes assigns each column the narrowest type admitting every
// non-missing cell: integer, then float, then string. A column with no
// non-missing cells is treated as float, matching the convention that
// missing values force a numeric representation.
func (t *Table) inferDtypes() {
	t.dtypes = make([]Dtype, len(t.Columns))
	for i := range t.Columns {
		t.dtypes[i] = inferColumnDtype(t.Column(i))
	}
}

func inferColumnDtype(cells []string) Dtype {
	sawValue := false
	allInts := true
	allFloats := true

	for _, cell := range cells {
		if IsMissing(cell) {
			continue
		}
		sawValue = true
		if allInts {
			if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
				allInts = false
			}
		}
		if allFloats {
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				allFloats = false
			}
		}
		if !allInts && !allFloats {
			return StringDtype
		}
	}

	if !sawValue {
		return FloatDtype
	}
	if allInts {
		return IntegerDtype
	}
	if allFloats {
		return FloatDtype
	}
	return StringDtype
}
