package frame

import (
	"bytes"
	"strings"
	"testing"

	"github.com/GoSim-25-26J-441/gridrun/pkg/record"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Frame {
	return FromRecords([]*record.Record{
		record.Of("a", 1, "b", 10, "sum", 11),
		record.Of("a", 1, "b", 20, "sum", 21),
		record.Of("a", 2, "b", 10, "sum", 12, "note", "x"),
	})
}

func TestFromRecordsColumnUnion(t *testing.T) {
	f := sample()
	assert.Equal(t, []string{"a", "b", "sum", "note"}, f.Columns())
	assert.Equal(t, 3, f.Len())

	first := f.Row(0)
	v, ok := first.Get("note")
	assert.True(t, ok, "missing columns are present as nil")
	assert.Nil(t, v)
}

func TestFromRecordsCopies(t *testing.T) {
	r := record.Of("a", 1)
	f := FromRecords([]*record.Record{r})
	r.Set("a", 2)
	col, err := f.Column("a")
	require.NoError(t, err)
	assert.Equal(t, []any{1}, col)
}

func TestColumnAndFloat64s(t *testing.T) {
	f := sample()
	col, err := f.Column("sum")
	require.NoError(t, err)
	assert.Equal(t, []any{11, 21, 12}, col)

	xs, err := f.Float64s("b")
	require.NoError(t, err)
	if diff := cmp.Diff([]float64{10, 20, 10}, xs); diff != "" {
		t.Fatalf("Float64s mismatch (-want +got):\n%s", diff)
	}

	_, err = f.Float64s("note")
	assert.Error(t, err, "nil cells are not numeric")
	_, err = f.Column("missing")
	assert.Error(t, err)
}

func TestUnique(t *testing.T) {
	f := FromRecords([]*record.Record{
		record.Of("x", 3), record.Of("x", 1.0), record.Of("x", 1), record.Of("x", 2),
	})
	u, err := f.Unique("x")
	require.NoError(t, err)
	require.Len(t, u, 3)
	assert.Equal(t, 2, u[1])
	assert.Equal(t, 3, u[2])
}

func TestFilter(t *testing.T) {
	f := sample()
	got := f.Filter(record.Of("a", 1.0))
	assert.Equal(t, 2, got.Len())
	assert.Equal(t, f.Columns(), got.Columns())

	none := f.Filter(record.Of("a", 5))
	assert.Equal(t, 0, none.Len())

	all := f.Filter(record.New())
	assert.Equal(t, 3, all.Len())
}

func TestWriteCSV(t *testing.T) {
	f := FromRecords([]*record.Record{
		record.Of("a", 1, "f", 0.5),
		record.Of("a", 2, "s", "hi, there"),
	})
	var buf bytes.Buffer
	require.NoError(t, f.WriteCSV(&buf))
	want := "a,f,s\n1,0.5,\n2,,\"hi, there\"\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	sample().WriteTable(&buf)
	out := buf.String()
	assert.True(t, strings.Contains(out, "sum"))
	assert.True(t, strings.Contains(out, "21"))
}

func TestMarshalJSONKeepsColumnOrder(t *testing.T) {
	f := FromRecords([]*record.Record{record.Of("z", 1, "a", 2)})
	data, err := f.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `[{"z":1,"a":2}]`, string(data))
}
