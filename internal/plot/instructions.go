// Package plot draws result frames as facetted line and scatter plots.
package plot

import (
	"fmt"
	"slices"
	"strings"

	"github.com/GoSim-25-26J-441/gridrun/internal/grid"
	"github.com/GoSim-25-26J-441/gridrun/pkg/frame"
	"github.com/GoSim-25-26J-441/gridrun/pkg/record"
)

// Aesthetics maps visual channels to frame columns. Empty fields are unused.
type Aesthetics struct {
	Row       string
	Column    string
	Color     string
	Marker    string
	LineStyle string
}

// fields returns the used columns in channel order, without duplicates.
func (a Aesthetics) fields() []string {
	var out []string
	for _, f := range []string{a.Color, a.Column, a.Row, a.Marker, a.LineStyle} {
		if f == "" || slices.Contains(out, f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Instruction describes one series: which rows to draw, in which facet and
// with which style. Style indexes are -1 when the channel is unused.
type Instruction struct {
	Filter    *record.Record
	Row       int
	Column    int
	Color     int
	Marker    int
	LineStyle int
	Title     string
	Label     string
}

// Instructions returns one instruction per combination of the distinct
// values of the aesthetic columns, in grid order. Facet positions and style
// indexes are the position of the value among the column's sorted distinct
// values.
func Instructions(f *frame.Frame, aes Aesthetics) ([]Instruction, error) {
	fields := aes.fields()
	choices := make(map[string][]any, len(fields))
	spec := grid.NewSpec()
	for _, field := range fields {
		values, err := f.Unique(field)
		if err != nil {
			return nil, err
		}
		choices[field] = values
		if err := spec.Add(field, values); err != nil {
			return nil, err
		}
	}

	channels := []struct {
		field string
		set   func(*Instruction, int)
		facet bool
	}{
		{aes.Row, func(in *Instruction, i int) { in.Row = i }, true},
		{aes.Column, func(in *Instruction, i int) { in.Column = i }, true},
		{aes.Color, func(in *Instruction, i int) { in.Color = i }, false},
		{aes.Marker, func(in *Instruction, i int) { in.Marker = i }, false},
		{aes.LineStyle, func(in *Instruction, i int) { in.LineStyle = i }, false},
	}

	combos := spec.Experiments()
	out := make([]Instruction, 0, len(combos))
	for _, combo := range combos {
		in := Instruction{Filter: combo, Color: -1, Marker: -1, LineStyle: -1}
		var title, label strings.Builder
		for _, ch := range channels {
			if ch.field == "" {
				continue
			}
			value, _ := combo.Get(ch.field)
			idx := indexOf(choices[ch.field], value)
			ch.set(&in, idx)
			if ch.facet {
				fmt.Fprintf(&title, "%s=%v ", ch.field, value)
			} else {
				fmt.Fprintf(&label, "%s=%v ", ch.field, value)
			}
		}
		in.Title = title.String()
		in.Label = label.String()
		out = append(out, in)
	}
	return out, nil
}

func indexOf(values []any, v any) int {
	for i, x := range values {
		if record.ValuesEqual(x, v) {
			return i
		}
	}
	return -1
}
