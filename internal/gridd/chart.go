package gridd

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/GoSim-25-26J-441/gridrun/pkg/frame"
	"github.com/GoSim-25-26J-441/gridrun/pkg/logger"
	"github.com/GoSim-25-26J-441/gridrun/pkg/record"
)

// chartParams are the query parameters of the chart endpoint that are not
// column filters.
var chartParams = []string{"x", "y", "color", "mark", "xscale", "yscale"}

// applyFilters keeps the rows whose columns match every query parameter not
// listed in skip. A value matches when it is equal as a number or when its
// printed form equals the parameter.
func applyFilters(f *frame.Frame, query url.Values, skip []string) (*frame.Frame, error) {
	keys := filterKeys(query, skip)
	for _, k := range keys {
		if !f.HasColumn(k) {
			return nil, fmt.Errorf("unknown column %q", k)
		}
	}
	if len(keys) == 0 {
		return f, nil
	}
	return f.FilterFunc(func(r *record.Record) bool {
		for _, k := range keys {
			raw := query.Get(k)
			got, _ := r.Get(k)
			if fmt.Sprint(got) == raw {
				continue
			}
			if n, err := strconv.ParseFloat(raw, 64); err == nil && record.ValuesEqual(got, n) {
				continue
			}
			return false
		}
		return true
	}), nil
}

func filterKeys(query url.Values, skip []string) []string {
	keys := make([]string, 0, len(query))
	for k := range query {
		if !slices.Contains(skip, k) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

func axisType(scale string) (string, error) {
	switch scale {
	case "", "linear":
		return "value", nil
	case "log":
		return "log", nil
	}
	return "", fmt.Errorf("scale must be linear or log, got %q", scale)
}

// handleChart renders y against x as an HTML chart, one series per distinct
// value of the color column. mark selects lines ("-", the default) or points
// ("." or "o").
func (s *HTTPServer) handleChart(w http.ResponseWriter, r *http.Request, table string, f *frame.Frame) {
	query := r.URL.Query()
	x, y := query.Get("x"), query.Get("y")
	if x == "" || y == "" {
		s.writeError(w, http.StatusBadRequest, "x and y are required")
		return
	}
	mark := query.Get("mark")
	if mark == "" {
		mark = "-"
	}
	if mark != "-" && mark != "." && mark != "o" {
		s.writeError(w, http.StatusBadRequest, "mark must be -, . or o")
		return
	}
	xType, err := axisType(query.Get("xscale"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	yType, err := axisType(query.Get("yscale"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	f, err = applyFilters(f, query, chartParams)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	series, err := chartSeries(f, x, y, query.Get("color"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var subtitle strings.Builder
	for _, k := range filterKeys(query, chartParams) {
		fmt.Fprintf(&subtitle, "%s=%s ", k, query.Get(k))
	}
	global := []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{PageTitle: table, Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: table, Subtitle: strings.TrimSpace(subtitle.String())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(len(series) > 1), Right: "5%"}),
		charts.WithXAxisOpts(opts.XAxis{Type: xType, Name: x, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: yType, Name: y, NameLocation: "middle", NameGap: 40}),
	}

	var buf bytes.Buffer
	if mark == "-" {
		line := charts.NewLine()
		line.SetGlobalOptions(global...)
		for _, sr := range series {
			data := make([]opts.LineData, len(sr.points))
			for i, p := range sr.points {
				data[i] = opts.LineData{Value: []interface{}{p[0], p[1]}}
			}
			line.AddSeries(sr.name, data, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}))
		}
		err = line.Render(&buf)
	} else {
		size := 4
		if mark == "o" {
			size = 8
		}
		scatter := charts.NewScatter()
		scatter.SetGlobalOptions(global...)
		for _, sr := range series {
			data := make([]opts.ScatterData, len(sr.points))
			for i, p := range sr.points {
				data[i] = opts.ScatterData{Value: []interface{}{p[0], p[1]}}
			}
			scatter.AddSeries(sr.name, data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: size}))
		}
		err = scatter.Render(&buf)
	}
	if err != nil {
		logger.Error("failed to render chart", "table", table, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to render chart")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

type chartSerie struct {
	name   string
	points [][2]float64
}

// chartSeries splits f by the distinct values of color and returns the
// (x, y) points of each group sorted by x. Rows with a non-numeric x or y
// are skipped.
func chartSeries(f *frame.Frame, x, y, color string) ([]chartSerie, error) {
	for _, c := range []string{x, y, color} {
		if c != "" && !f.HasColumn(c) {
			return nil, fmt.Errorf("unknown column %q", c)
		}
	}

	groups := []any{nil}
	if color != "" {
		var err error
		if groups, err = f.Unique(color); err != nil {
			return nil, err
		}
	}

	out := make([]chartSerie, 0, len(groups))
	for _, g := range groups {
		sub := f
		name := y
		if color != "" {
			sub = f.Filter(record.Of(color, g))
			name = fmt.Sprintf("%s=%v", color, g)
		}
		sr := chartSerie{name: name}
		for _, r := range sub.Records() {
			xv, errX := r.Float64(x)
			yv, errY := r.Float64(y)
			if errX != nil || errY != nil {
				continue
			}
			sr.points = append(sr.points, [2]float64{xv, yv})
		}
		slices.SortStableFunc(sr.points, func(a, b [2]float64) int {
			switch {
			case a[0] < b[0]:
				return -1
			case a[0] > b[0]:
				return 1
			}
			return 0
		})
		out = append(out, sr)
	}
	return out, nil
}
