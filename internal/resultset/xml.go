package resultset

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

const xmlIndent = "  "

type xmlResultSets struct {
	XMLName       xml.Name       `xml:"ResultSets"`
	GeneratedTime string         `xml:"generated_time,attr"`
	TotalSets     int            `xml:"total_sets,attr"`
	Sets          []xmlResultSet `xml:"ResultSet"`
}

type xmlResultSet struct {
	ID          int      `xml:"id,attr"`
	RowCount    int      `xml:"row_count,attr"`
	ColumnCount int      `xml:"column_count,attr"`
	Columns     []string `xml:"Columns>Column"`
	Rows        []xmlRow `xml:"Rows>Row"`
}

type xmlRow struct {
	Index int       `xml:"index,attr"`
	Cells []xmlCell `xml:"Cell"`
}

type xmlCell struct {
	Column      string `xml:"column,attr"`
	ColumnIndex int    `xml:"column_index,attr"`
	Text        string `xml:",chardata"`
}

// ContentType is the response content type matching ToXML output in charset.
func ContentType(charset string) string {
	return "application/xml; charset=" + charset
}

// ToXML renders the batch as an indented ResultSets document encoded in charset.
// Result sets without rows are left out, but ids keep each set's position in the batch
// and total_sets counts every set.
func ToXML(batch Batch, generatedAt time.Time, charset string) ([]byte, error) {
	if charset == "" {
		charset = "utf-8"
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("xml encoding %q: %w", charset, err)
	}

	doc := xmlResultSets{
		GeneratedTime: FormatTime(generatedAt),
		TotalSets:     len(batch),
	}
	for i, rs := range batch {
		if rs.Empty() {
			continue
		}
		doc.Sets = append(doc.Sets, buildXMLSet(i+1, rs))
	}

	body, err := xml.MarshalIndent(doc, "", xmlIndent)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, `<?xml version="1.0" encoding="%s"?>`, charset)
	for _, line := range strings.Split(string(body), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out.WriteByte('\n')
		out.WriteString(line)
	}

	if enc == unicode.UTF8 {
		return out.Bytes(), nil
	}
	return encoding.HTMLEscapeUnsupported(enc.NewEncoder()).Bytes(out.Bytes())
}

func buildXMLSet(id int, rs ResultSet) xmlResultSet {
	set := xmlResultSet{
		ID:          id,
		RowCount:    len(rs.Rows),
		ColumnCount: len(rs.Columns),
		Columns:     append([]string(nil), rs.Columns...),
		Rows:        make([]xmlRow, 0, len(rs.Rows)),
	}
	for i, row := range rs.Rows {
		xr := xmlRow{Index: i + 1, Cells: make([]xmlCell, 0, len(rs.Columns))}
		for j, col := range rs.Columns {
			xr.Cells = append(xr.Cells, xmlCell{
				Column:      col,
				ColumnIndex: j,
				Text:        Text(row[j]),
			})
		}
		set.Rows = append(set.Rows, xr)
	}
	return set
}
