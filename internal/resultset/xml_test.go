package resultset

import (
	"encoding/json"
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

var generatedAt = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func TestToXMLSingleRow(t *testing.T) {
	batch := Batch{mustSet(t, []string{"A", "B"}, []any{int64(1), "x"})}

	out, err := ToXML(batch, generatedAt, "utf-8")
	require.NoError(t, err)

	want := `<?xml version="1.0" encoding="utf-8"?>
<ResultSets generated_time="2024-03-01 08:00:00" total_sets="1">
  <ResultSet id="1" row_count="1" column_count="2">
    <Columns>
      <Column>A</Column>
      <Column>B</Column>
    </Columns>
    <Rows>
      <Row index="1">
        <Cell column="A" column_index="0">1</Cell>
        <Cell column="B" column_index="1">x</Cell>
      </Row>
    </Rows>
  </ResultSet>
</ResultSets>`
	assert.Equal(t, want, string(out))
}

func TestToXMLOmitsEmptySetsButKeepsPositions(t *testing.T) {
	batch := Batch{
		mustSet(t, []string{"id"}),
		mustSet(t, []string{"id"}, []any{7}),
	}

	out, err := ToXML(batch, generatedAt, "utf-8")
	require.NoError(t, err)

	var doc xmlResultSets
	require.NoError(t, xml.Unmarshal(out, &doc))
	assert.Equal(t, 2, doc.TotalSets)
	require.Len(t, doc.Sets, 1)
	assert.Equal(t, 2, doc.Sets[0].ID)
	assert.Equal(t, 1, doc.Sets[0].RowCount)

	jsonOut, err := ToJSON(batch)
	require.NoError(t, err)
	assert.Equal(t, `[[],[{"id":7}]]`, compactJSON(t, jsonOut))
}

func TestToXMLCellText(t *testing.T) {
	ts := time.Date(2024, 1, 5, 13, 7, 9, 0, time.Local)
	batch := Batch{mustSet(t,
		[]string{"when", "missing", "amount", "flag", "note"},
		[]any{ts, nil, 12.75, false, "a<b & \"c\""},
		[]any{ts, "set", 3.0, true, ""},
	)}

	out, err := ToXML(batch, generatedAt, "utf-8")
	require.NoError(t, err)

	var doc xmlResultSets
	require.NoError(t, xml.Unmarshal(out, &doc))
	require.Len(t, doc.Sets, 1)
	set := doc.Sets[0]
	assert.Equal(t, 2, set.RowCount)
	assert.Equal(t, 5, set.ColumnCount)
	assert.Equal(t, []string{"when", "missing", "amount", "flag", "note"}, set.Columns)

	require.Len(t, set.Rows, 2)
	first := set.Rows[0]
	assert.Equal(t, 1, first.Index)
	require.Len(t, first.Cells, 5)
	assert.Equal(t, "2024-01-05 13:07:09", first.Cells[0].Text)
	assert.Equal(t, "", first.Cells[1].Text)
	assert.Equal(t, "12.75", first.Cells[2].Text)
	assert.Equal(t, "false", first.Cells[3].Text)
	assert.Equal(t, `a<b & "c"`, first.Cells[4].Text)
	for i, cell := range first.Cells {
		assert.Equal(t, i, cell.ColumnIndex)
		assert.Equal(t, set.Columns[i], cell.Column)
	}
	assert.Equal(t, 2, set.Rows[1].Index)
	assert.Equal(t, "3", set.Rows[1].Cells[2].Text)
}

func TestToXMLTemporalMatchesJSON(t *testing.T) {
	ts := time.Date(2024, 1, 5, 13, 7, 9, 0, time.UTC)
	batch := Batch{mustSet(t, []string{"t"}, []any{ts})}

	xmlOut, err := ToXML(batch, generatedAt, "utf-8")
	require.NoError(t, err)
	jsonOut, err := ToJSON(batch)
	require.NoError(t, err)

	assert.Contains(t, string(xmlOut), ">2024-01-05 13:07:09</Cell>")
	assert.Contains(t, string(jsonOut), `"2024-01-05 13:07:09"`)
}

func TestToXMLFloatsMatchJSON(t *testing.T) {
	values := []any{1e21, 1.5e300, 1e-7, -2.5e-8, 0.000001, 12.75, 123456789.0, 0.0, float32(0.1), float32(3e-7)}

	for _, v := range values {
		batch := Batch{mustSet(t, []string{"x"}, []any{v})}

		xmlOut, err := ToXML(batch, generatedAt, "utf-8")
		require.NoError(t, err)
		var doc xmlResultSets
		require.NoError(t, xml.Unmarshal(xmlOut, &doc))
		require.Len(t, doc.Sets, 1)

		want, err := json.Marshal(v)
		require.NoError(t, err)
		assert.Equal(t, string(want), doc.Sets[0].Rows[0].Cells[0].Text, "%v", v)
	}

	assert.Equal(t, "1e+21", Text(1e21))
	assert.Equal(t, "1e-7", Text(1e-7))
}

func TestToXMLEmptyBatch(t *testing.T) {
	out, err := ToXML(nil, generatedAt, "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), `<?xml version="1.0" encoding="utf-8"?>`))
	assert.Contains(t, string(out), `total_sets="0"`)
	assert.NotContains(t, string(out), "<ResultSet ")
}

func TestToXMLNoBlankLines(t *testing.T) {
	batch := Batch{mustSet(t, []string{"memo"}, []any{"line one\n\nline three"})}

	out, err := ToXML(batch, generatedAt, "utf-8")
	require.NoError(t, err)
	for _, line := range strings.Split(string(out), "\n") {
		assert.NotEmpty(t, strings.TrimSpace(line))
	}
}

func TestToXMLOtherCharset(t *testing.T) {
	batch := Batch{mustSet(t, []string{"名称"}, []any{"达梦 😀"})}

	out, err := ToXML(batch, generatedAt, "gbk")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), `<?xml version="1.0" encoding="gbk"?>`))

	decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(out)
	require.NoError(t, err)
	assert.Contains(t, string(decoded), `<Cell column="名称" column_index="0">达梦 &#128512;</Cell>`)
}

func TestToXMLUnknownCharset(t *testing.T) {
	_, err := ToXML(Batch{}, generatedAt, "no-such-charset")
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/xml; charset=utf-8", ContentType("utf-8"))
}
