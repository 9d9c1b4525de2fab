// Package resultset holds the tabular shape procedures return and its wire formats.
package resultset

import (
	"fmt"
	"time"
)

// TimeLayout is how temporal values appear in every output format.
const TimeLayout = "2006-01-02 15:04:05"

// ResultSet is one table produced by a procedure. Rows are positional: Rows[i][j]
// belongs to Columns[j].
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// Batch is every result set of one call, in the order the procedure produced them.
type Batch []ResultSet

func New(columns []string, rows [][]any) (ResultSet, error) {
	for i, row := range rows {
		if len(row) != len(columns) {
			return ResultSet{}, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(columns))
		}
	}
	if rows == nil {
		rows = make([][]any, 0)
	}
	return ResultSet{Columns: columns, Rows: rows}, nil
}

func (rs ResultSet) Empty() bool {
	return len(rs.Rows) == 0
}

// Row returns row i keyed by column name.
func (rs ResultSet) Row(i int) map[string]any {
	out := make(map[string]any, len(rs.Columns))
	for j, col := range rs.Columns {
		out[col] = rs.Rows[i][j]
	}
	return out
}

func (b Batch) RowsTotal() int {
	total := 0
	for _, rs := range b {
		total += len(rs.Rows)
	}
	return total
}

func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}
