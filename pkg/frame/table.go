package frame

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// WriteTable renders the frame as an aligned text table.
func (f *Frame) WriteTable(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(f.columns)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	data := make([][]string, 0, len(f.rows))
	for _, r := range f.rows {
		line := make([]string, len(f.columns))
		for j, c := range f.columns {
			v, _ := r.Get(c)
			line[j] = formatCell(v)
		}
		data = append(data, line)
	}
	table.AppendBulk(data)
	table.Render()
}
