package procedure

import (
	"fmt"

	"sp-service/internal/resultset"
	"sp-service/pkg/db"
)

// Drain reads every result set the cursor has, in order. Sets without column
// metadata are skipped; sets with columns but no rows are kept. On any error the
// partial batch is dropped.
func Drain(cursor db.Cursor) (resultset.Batch, error) {
	batch := make(resultset.Batch, 0, 1)

	for set := 1; ; set++ {
		cols, err := cursor.Description()
		if err != nil {
			return nil, CollectionError{Op: "describe", Set: set, Err: err}
		}

		if len(cols) > 0 {
			raw, err := cursor.FetchAll()
			if err != nil {
				return nil, CollectionError{Op: "fetch", Set: set, Err: err}
			}

			rows := make([][]any, 0, len(raw))
			for _, r := range raw {
				row := make([]any, len(r))
				for i, v := range r {
					row[i] = resultset.Normalize(v)
				}
				rows = append(rows, row)
			}

			rs, err := resultset.New(uniqueColumns(cols), rows)
			if err != nil {
				return nil, CollectionError{Op: "fetch", Set: set, Err: err}
			}
			batch = append(batch, rs)
		}

		more, err := cursor.NextSet()
		if err != nil {
			return nil, CollectionError{Op: "advance past", Set: set, Err: err}
		}
		if !more {
			return batch, nil
		}
	}
}

// uniqueColumns names unnamed columns by position and suffixes repeats, so that
// every column can be a key in a row object.
func uniqueColumns(cols []string) []string {
	out := make([]string, len(cols))
	seen := make(map[string]bool, len(cols))
	for i, c := range cols {
		name := c
		if name == "" {
			name = fmt.Sprintf("column%d", i+1)
		}
		if seen[name] {
			base := name
			for n := 2; seen[name]; n++ {
				name = fmt.Sprintf("%s_%d", base, n)
			}
		}
		seen[name] = true
		out[i] = name
	}
	return out
}
