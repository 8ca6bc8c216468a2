package dataset

import (
	"database/sql"
	"fmt"
)

// ParameterTable is the wide per-gauge model table. Cells are kept as raw
// strings so callers decide how to interpret each column.
type ParameterTable struct {
	index map[string]int
	rows  map[int64][]string
	order []int64
}

func newParameterTable(t *table, comidCol int) (*ParameterTable, []int64) {
	p := &ParameterTable{
		index: t.index,
		rows:  make(map[int64][]string, len(t.rows)),
	}
	var duplicates []int64
	for _, row := range t.rows {
		comid, ok := ParseID(cell(row, comidCol))
		if !ok {
			continue
		}
		if _, seen := p.rows[comid]; seen {
			duplicates = append(duplicates, comid)
			continue
		}
		p.rows[comid] = row
		p.order = append(p.order, comid)
	}
	return p, duplicates
}

// HasColumn reports whether the header carries the named column.
func (p *ParameterTable) HasColumn(name string) bool {
	_, ok := p.index[name]
	return ok
}

func (p *ParameterTable) Len() int {
	return len(p.order)
}

// Cell returns the raw value of a column for a correlation id.
func (p *ParameterTable) Cell(comid int64, column string) (string, error) {
	row, ok := p.rows[comid]
	if !ok {
		return "", fmt.Errorf("no parameter row for comid %d", comid)
	}
	i, ok := p.index[column]
	if !ok {
		return "", fmt.Errorf("no column %q", column)
	}
	return cell(row, i), nil
}

// Float returns a numeric cell; empty or non-numeric cells are invalid.
func (p *ParameterTable) Float(comid int64, column string) (sql.NullFloat64, error) {
	s, err := p.Cell(comid, column)
	if err != nil {
		return sql.NullFloat64{}, err
	}
	return ParseNullFloat(s), nil
}
