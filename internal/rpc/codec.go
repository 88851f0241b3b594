package rpc

import (
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GoSim-25-26J-441/gridrun/pkg/frame"
	"github.com/GoSim-25-26J-441/gridrun/pkg/record"
)

// Value converts a record value to a protobuf Value. Times become RFC 3339
// strings; values structpb cannot hold directly go through JSON.
func Value(v any) (*structpb.Value, error) {
	if t, ok := v.(time.Time); ok {
		return structpb.NewStringValue(t.Format(time.RFC3339Nano)), nil
	}
	if pv, err := structpb.NewValue(v); err == nil {
		return pv, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	return structpb.NewValue(generic)
}

// EncodeRecord turns a record into a list of [name, value] pairs, keeping
// field order.
func EncodeRecord(rec *record.Record) (*structpb.ListValue, error) {
	out := &structpb.ListValue{Values: make([]*structpb.Value, 0, rec.Len())}
	for k, v := range rec.All() {
		pv, err := Value(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		pair := &structpb.ListValue{Values: []*structpb.Value{structpb.NewStringValue(k), pv}}
		out.Values = append(out.Values, structpb.NewListValue(pair))
	}
	return out, nil
}

// DecodeRecord reverses EncodeRecord. Numbers come back as float64.
func DecodeRecord(list *structpb.ListValue) (*record.Record, error) {
	rec := record.New()
	for i, item := range list.GetValues() {
		pair := item.GetListValue().GetValues()
		if len(pair) != 2 {
			return nil, fmt.Errorf("field %d: expected [name, value] pair", i)
		}
		name, ok := pair[0].GetKind().(*structpb.Value_StringValue)
		if !ok || name.StringValue == "" {
			return nil, fmt.Errorf("field %d: name must be a non-empty string", i)
		}
		rec.Set(name.StringValue, pair[1].AsInterface())
	}
	return rec, nil
}

// EncodeFrame turns a frame into {"columns": [...], "rows": [[...], ...]}.
func EncodeFrame(f *frame.Frame) (*structpb.Struct, error) {
	cols := f.Columns()
	colValues := make([]*structpb.Value, len(cols))
	for i, c := range cols {
		colValues[i] = structpb.NewStringValue(c)
	}

	rows := make([]*structpb.Value, 0, f.Len())
	for _, r := range f.Records() {
		cells := make([]*structpb.Value, len(cols))
		for j, c := range cols {
			v, _ := r.Get(c)
			pv, err := Value(v)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", c, err)
			}
			cells[j] = pv
		}
		rows = append(rows, structpb.NewListValue(&structpb.ListValue{Values: cells}))
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"columns": structpb.NewListValue(&structpb.ListValue{Values: colValues}),
		"rows":    structpb.NewListValue(&structpb.ListValue{Values: rows}),
	}}, nil
}

// DecodeFrame reverses EncodeFrame.
func DecodeFrame(s *structpb.Struct) (*frame.Frame, error) {
	var cols []string
	for _, c := range s.GetFields()["columns"].GetListValue().GetValues() {
		cols = append(cols, c.GetStringValue())
	}

	var records []*record.Record
	for i, row := range s.GetFields()["rows"].GetListValue().GetValues() {
		cells := row.GetListValue().GetValues()
		if len(cells) != len(cols) {
			return nil, fmt.Errorf("row %d: %d cells for %d columns", i, len(cells), len(cols))
		}
		rec := record.New()
		for j, c := range cols {
			rec.Set(c, cells[j].AsInterface())
		}
		records = append(records, rec)
	}
	return frame.FromRecords(records), nil
}

// TableName reads the required "table" field of a request.
func TableName(req *structpb.Struct) (string, error) {
	name := req.GetFields()["table"].GetStringValue()
	if name == "" {
		return "", fmt.Errorf("table is required")
	}
	return name, nil
}
