// Package tables provides the row-oriented table model the assembly
// pipeline is built on: CSV ingestion, required-column validation, and a
// generic left join. Tables are treated as immutable snapshots; every
// operation returns a new table and never mutates its input.
package tables

import (
	"fmt"
	"sort"
	"strings"
)

// Row maps column name to raw cell value. A column absent from the map was
// absent from the source, which is distinct from an empty string value.
type Row map[string]string

// Table is an immutable snapshot of one source file or join result.
type Table struct {
	// Name identifies the table in diagnostics, usually the source file name.
	Name string
	Cols []string
	Rows []Row
}

// SchemaError reports required columns missing from a source table.
type SchemaError struct {
	Table   string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("table %s is missing required column(s): %s", e.Table, strings.Join(e.Missing, ", "))
}

// Len returns the number of data rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether the table carries the named column.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Cols {
		if c == name {
			return true
		}
	}
	return false
}

// RequireColumns validates that every required column is present, returning a
// SchemaError naming all missing columns. The table is otherwise unchanged.
func (t Table) RequireColumns(required ...string) error {
	var missing []string
	for _, col := range required {
		if !t.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &SchemaError{Table: t.Name, Missing: missing}
	}
	return nil
}

// Get returns the cell value and whether the column was present for this row.
func (r Row) Get(col string) (string, bool) {
	v, ok := r[col]
	return v, ok
}

// joinKey builds a composite key string for the given key columns.
func joinKey(r Row, keys []string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = r[k]
	}
	return strings.Join(parts, "\x1f")
}

// LeftJoin joins right onto left by the given key columns. Every left row
// appears in the result; left rows without a match keep their columns
// unchanged, with the right-only columns absent. A right key matched by
// multiple right rows duplicates the left row for each match, the same way a
// relational left join would; callers that require row-count preservation
// must check the result length.
func LeftJoin(left, right Table, keys ...string) Table {
	byKey := make(map[string][]Row, right.Len())
	for _, r := range right.Rows {
		k := joinKey(r, keys)
		byKey[k] = append(byKey[k], r)
	}

	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}

	out := Table{Name: left.Name, Cols: append([]string(nil), left.Cols...)}
	for _, c := range right.Cols {
		if !isKey[c] && !left.HasColumn(c) {
			out.Cols = append(out.Cols, c)
		}
	}

	for _, l := range left.Rows {
		matches := byKey[joinKey(l, keys)]
		if len(matches) == 0 {
			out.Rows = append(out.Rows, l.clone())
			continue
		}
		for _, m := range matches {
			merged := l.clone()
			for c, v := range m {
				if isKey[c] {
					continue
				}
				if _, exists := merged[c]; !exists {
					merged[c] = v
				}
			}
			out.Rows = append(out.Rows, merged)
		}
	}
	return out
}

func (r Row) clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
