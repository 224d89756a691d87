package dataset

import (
	"fmt"
	"strings"
)

// Normalize cleans a raw table's layout before any analysis runs: rows and
// columns that are entirely missing are dropped, every name is trimmed with
// spaces, periods and hyphens rewritten to underscores, and names still
// duplicated after rewriting get an incrementing suffix (first occurrence
// keeps the bare name). Normalize is deterministic and idempotent.
func Normalize(raw Table) Table {
	t := dropEmptyRows(raw.Clone())
	t = dropEmptyColumns(t)

	for i := range t.Columns {
		t.Columns[i].Name = cleanColumnName(t.Columns[i].Name)
	}

	// Dedup after rewriting: distinct raw names like "a b" and "a.b" collide
	// once cleaned and still need unique suffixes.
	seen := make(map[string]int, len(t.Columns))
	for i := range t.Columns {
		name := t.Columns[i].Name
		if n, dup := seen[name]; dup {
			t.Columns[i].Name = fmt.Sprintf("%s_%d", name, n)
			seen[name] = n + 1
		} else {
			seen[name] = 1
		}
	}
	return t
}

func cleanColumnName(name string) string {
	name = strings.TrimSpace(name)
	replacer := strings.NewReplacer(" ", "_", ".", "_", "-", "_")
	return replacer.Replace(name)
}

func dropEmptyRows(t Table) Table {
	rows := t.NumRows()
	keep := make([]int, 0, rows)
	for r := 0; r < rows; r++ {
		empty := true
		for _, c := range t.Columns {
			if !c.Cells[r].IsMissing() {
				empty = false
				break
			}
		}
		if !empty {
			keep = append(keep, r)
		}
	}
	if len(keep) == rows {
		return t
	}
	return SelectRows(t, keep)
}

func dropEmptyColumns(t Table) Table {
	kept := t.Columns[:0]
	for _, c := range t.Columns {
		if c.MissingCount() < len(c.Cells) || len(c.Cells) == 0 {
			kept = append(kept, c)
		}
	}
	t.Columns = kept
	return t
}

// SelectRows returns a table containing only the given row indices, in order.
func SelectRows(t Table, rows []int) Table {
	out := Table{Columns: make([]Column, len(t.Columns))}
	for i, c := range t.Columns {
		cells := make([]Cell, 0, len(rows))
		for _, r := range rows {
			cells = append(cells, c.Cells[r])
		}
		out.Columns[i] = Column{Name: c.Name, Cells: cells}
	}
	return out
}
