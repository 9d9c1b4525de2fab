package resultset

import (
	"bytes"
	"encoding/json"
	"time"
)

const jsonIndent = "    "

// ToJSON renders the batch as an array of result sets, each an array of row objects
// whose keys follow column order. Empty result sets are kept as [].
func ToJSON(batch Batch) ([]byte, error) {
	var compact bytes.Buffer
	compact.WriteByte('[')
	for i, rs := range batch {
		if i > 0 {
			compact.WriteByte(',')
		}
		if err := writeSetJSON(&compact, rs); err != nil {
			return nil, err
		}
	}
	compact.WriteByte(']')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", jsonIndent); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func writeSetJSON(buf *bytes.Buffer, rs ResultSet) error {
	buf.WriteByte('[')
	for i, row := range rs.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, col := range rs.Columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeValueJSON(buf, col); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeValueJSON(buf, jsonValue(row[j])); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return nil
}

func jsonValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		return FormatTime(x)
	case *time.Time:
		if x == nil {
			return nil
		}
		return FormatTime(*x)
	default:
		return v
	}
}

// writeValueJSON encodes without HTML escaping so text passes through as UTF-8.
func writeValueJSON(buf *bytes.Buffer, v any) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}
