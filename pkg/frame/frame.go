// Package frame holds collected result records as a table whose columns are
// the union of the record fields, and provides the reshaping helpers used to
// analyse experiment results.
package frame

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/GoSim-25-26J-441/gridrun/pkg/record"
)

// Frame is an immutable table of records. Columns appear in the order they
// were first seen across rows; a row lacking a column holds nil there.
type Frame struct {
	columns []string
	rows    []*record.Record
}

// FromRecords builds a frame. Records are copied.
func FromRecords(records []*record.Record) *Frame {
	f := &Frame{rows: make([]*record.Record, 0, len(records))}
	seen := make(map[string]struct{})
	for _, r := range records {
		for _, k := range r.Keys() {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				f.columns = append(f.columns, k)
			}
		}
		f.rows = append(f.rows, r.Clone())
	}
	return f
}

// Columns returns the column names.
func (f *Frame) Columns() []string {
	return slices.Clone(f.columns)
}

// HasColumn reports whether name is a column.
func (f *Frame) HasColumn(name string) bool {
	return slices.Contains(f.columns, name)
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.rows)
}

// Row returns row i with every column present.
func (f *Frame) Row(i int) *record.Record {
	out := record.New()
	for _, c := range f.columns {
		v, _ := f.rows[i].Get(c)
		out.Set(c, v)
	}
	return out
}

// Records returns every row with every column present, in row order.
func (f *Frame) Records() []*record.Record {
	out := make([]*record.Record, len(f.rows))
	for i := range f.rows {
		out[i] = f.Row(i)
	}
	return out
}

// Column returns the values of one column.
func (f *Frame) Column(name string) ([]any, error) {
	if !f.HasColumn(name) {
		return nil, fmt.Errorf("unknown column %q", name)
	}
	out := make([]any, len(f.rows))
	for i, r := range f.rows {
		out[i], _ = r.Get(name)
	}
	return out, nil
}

// Float64s returns a numeric column. Missing cells are an error.
func (f *Frame) Float64s(name string) ([]float64, error) {
	col, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(col))
	for i, v := range col {
		x, ok := record.ToFloat64(v)
		if !ok {
			return nil, fmt.Errorf("column %q row %d: %v (%T) is not numeric", name, i, v, v)
		}
		out[i] = x
	}
	return out, nil
}

// Unique returns the distinct values of a column in ascending order.
func (f *Frame) Unique(name string) ([]any, error) {
	col, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	sorted := slices.Clone(col)
	slices.SortStableFunc(sorted, record.Compare)
	out := make([]any, 0, len(sorted))
	for _, v := range sorted {
		if len(out) > 0 && record.ValuesEqual(out[len(out)-1], v) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// Filter keeps the rows whose fields equal every field of match.
func (f *Frame) Filter(match *record.Record) *Frame {
	return f.FilterFunc(func(r *record.Record) bool {
		for k, want := range match.All() {
			got, _ := r.Get(k)
			if !record.ValuesEqual(got, want) {
				return false
			}
		}
		return true
	})
}

// FilterFunc keeps the rows for which keep returns true.
func (f *Frame) FilterFunc(keep func(*record.Record) bool) *Frame {
	out := &Frame{columns: slices.Clone(f.columns)}
	for i, r := range f.rows {
		if keep(f.Row(i)) {
			out.rows = append(out.rows, r)
		}
	}
	return out
}

// MarshalJSON encodes the frame as an array of row objects.
func (f *Frame) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Records())
}

// WriteCSV writes a header line followed by one line per row.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.columns); err != nil {
		return err
	}
	line := make([]string, len(f.columns))
	for _, r := range f.rows {
		for j, c := range f.columns {
			v, _ := r.Get(c)
			line[j] = formatCell(v)
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case []byte:
		return string(val)
	}
	return fmt.Sprint(v)
}
