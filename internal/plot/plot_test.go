package plot

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/GoSim-25-26J-441/gridrun/pkg/frame"
	"github.com/GoSim-25-26J-441/gridrun/pkg/record"
)

func sweepFrame() *frame.Frame {
	var recs []*record.Record
	for _, alpha := range []float64{0.1, 1} {
		for _, noise := range []string{"low", "high"} {
			for _, n := range []int{10, 100, 1000} {
				recs = append(recs, record.Of(
					"alpha", alpha,
					"noise", noise,
					"n_samples", n,
					"score_train", 1-1/float64(n),
					"score_test", 1-alpha/float64(n),
				))
			}
		}
	}
	return frame.FromRecords(recs)
}

func TestInstructionsNoAesthetics(t *testing.T) {
	ins, err := Instructions(sweepFrame(), Aesthetics{})
	require.NoError(t, err)
	require.Len(t, ins, 1)
	assert.Equal(t, 0, ins[0].Filter.Len())
	assert.Equal(t, -1, ins[0].Color)
	assert.Empty(t, ins[0].Title)
	assert.Empty(t, ins[0].Label)
}

func TestInstructionsGrid(t *testing.T) {
	ins, err := Instructions(sweepFrame(), Aesthetics{Color: "alpha", Column: "noise"})
	require.NoError(t, err)
	require.Len(t, ins, 4)

	// color varies slowest; noise values sort as high, low
	want := record.Of("alpha", 0.1, "noise", "high")
	assert.True(t, want.Equal(ins[0].Filter), "got %v", ins[0].Filter)
	assert.Equal(t, 0, ins[0].Color)
	assert.Equal(t, 0, ins[0].Column)
	assert.Equal(t, "noise=high ", ins[0].Title)
	assert.Equal(t, "alpha=0.1 ", ins[0].Label)

	assert.Equal(t, 1, ins[3].Color)
	assert.Equal(t, 1, ins[3].Column)
	assert.Equal(t, 0, ins[3].Row)
	assert.Equal(t, -1, ins[3].Marker)
}

func TestInstructionsSameFieldTwice(t *testing.T) {
	ins, err := Instructions(sweepFrame(), Aesthetics{Color: "alpha", Marker: "alpha"})
	require.NoError(t, err)
	require.Len(t, ins, 2)
	assert.Equal(t, 1, ins[1].Color)
	assert.Equal(t, 1, ins[1].Marker)
	assert.Equal(t, "alpha=1 alpha=1 ", ins[1].Label)
}

func TestInstructionsUnknownColumn(t *testing.T) {
	_, err := Instructions(sweepFrame(), Aesthetics{Row: "missing"})
	assert.Error(t, err)
}

func TestQPlotFacets(t *testing.T) {
	fig, err := QPlot(sweepFrame(), Options{
		X:          "n_samples",
		Y:          []string{"score_test"},
		Aesthetics: Aesthetics{Color: "alpha", Row: "noise"},
		XLog:       true,
		Rename:     map[string]string{"n_samples": "samples"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, fig.Rows())
	assert.Equal(t, 1, fig.Cols())

	p := fig.Plots[0][0]
	assert.Equal(t, "samples", p.X.Label.Text)
	assert.Equal(t, "score_test", p.Y.Label.Text)
	assert.Equal(t, "noise=high ", p.Title.Text)
	assert.Equal(t, 10.0, p.X.Min)
	assert.Equal(t, 1000.0, p.X.Max)

	var buf bytes.Buffer
	n, err := fig.WriteTo(&buf, "png")
	require.NoError(t, err)
	assert.Positive(t, n)
	assert.Equal(t, "\x89PNG", buf.String()[:4])
}

func TestQPlotSharedAxes(t *testing.T) {
	fig, err := QPlot(sweepFrame(), Options{
		X:          "n_samples",
		Y:          []string{"score_test"},
		Aesthetics: Aesthetics{Column: "alpha"},
	})
	require.NoError(t, err)
	left, right := fig.Plots[0][0], fig.Plots[0][1]
	assert.Equal(t, left.Y.Min, right.Y.Min)
	assert.Equal(t, left.Y.Max, right.Y.Max)

	fig, err = QPlot(sweepFrame(), Options{
		X:               "n_samples",
		Y:               []string{"score_test"},
		Aesthetics:      Aesthetics{Column: "alpha"},
		IndependentAxes: true,
	})
	require.NoError(t, err)
	assert.NotEqual(t, fig.Plots[0][0].Y.Min, fig.Plots[0][1].Y.Min)
}

func TestQPlotMultipleY(t *testing.T) {
	fig, err := QPlot(sweepFrame(), Options{
		X:        "n_samples",
		Y:        []string{"score_train", "score_test"},
		YMarkers: []string{"-", "o"},
		YLim:     &Limits{Min: 0, Max: 1},
		YLegend:  true,
	})
	require.NoError(t, err)
	p := fig.Plots[0][0]
	assert.Equal(t, "", p.Y.Label.Text)
	assert.Equal(t, 0.0, p.Y.Min)
	assert.Equal(t, 1.0, p.Y.Max)
}

func TestQPlotInvalidOptions(t *testing.T) {
	f := sweepFrame()
	tests := []struct {
		name string
		opts Options
	}{
		{"missing y", Options{X: "n_samples"}},
		{"marker count", Options{X: "n_samples", Y: []string{"score_train", "score_test"}, YMarkers: []string{"-"}}},
		{"unknown marker", Options{X: "n_samples", Y: []string{"score_train", "score_test"}, YMarkers: []string{"-", "*"}}},
		{"marker with multi y", Options{X: "n_samples", Y: []string{"score_train", "score_test"}, YMarkers: []string{"-", "o"}, Aesthetics: Aesthetics{Marker: "alpha"}}},
		{"linestyle with multi y", Options{X: "n_samples", Y: []string{"score_train", "score_test"}, YMarkers: []string{"-", "o"}, Aesthetics: Aesthetics{LineStyle: "alpha"}}},
		{"empty limits", Options{X: "n_samples", Y: []string{"score_test"}, XLim: &Limits{Min: 1, Max: 1}}},
		{"non numeric", Options{X: "noise", Y: []string{"score_test"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := QPlot(f, tt.opts)
			assert.Error(t, err)
		})
	}
}

func TestQPlotLogRejectsNonPositive(t *testing.T) {
	f := frame.FromRecords([]*record.Record{record.Of("x", 0, "y", 1)})
	_, err := QPlot(f, Options{X: "x", Y: []string{"y"}, XLog: true})
	assert.ErrorIs(t, err, ErrOptions)
}

func TestStyleCodes(t *testing.T) {
	line, marker := styleCodes(Instruction{LineStyle: -1, Marker: -1}, &Options{Y: []string{"y"}}, 0)
	assert.Equal(t, "-", line)
	assert.Empty(t, marker)

	line, marker = styleCodes(Instruction{LineStyle: -1, Marker: 2}, &Options{Y: []string{"y"}}, 0)
	assert.Empty(t, line)
	assert.Equal(t, "o", marker)

	line, marker = styleCodes(Instruction{LineStyle: 1, Marker: -1}, &Options{Y: []string{"y"}}, 0)
	assert.Equal(t, "--", line)
	assert.Empty(t, marker)
}

func TestFunctionAndSave(t *testing.T) {
	p, err := Function("sin", math.Sin, -3, 3)
	require.NoError(t, err)
	assert.Equal(t, "sin", p.Title.Text)

	_, err = Function("bad", math.Sin, 1, 1)
	assert.Error(t, err)

	fig := &Figure{Plots: [][]*gplot.Plot{{p}}, Size: 2 * vg.Inch}
	dir := t.TempDir()
	svg := filepath.Join(dir, "sin.svg")
	require.NoError(t, fig.Save(svg))
	data, err := os.ReadFile(svg)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")

	bad := filepath.Join(dir, "sin.bmp")
	assert.Error(t, fig.Save(bad))
	_, err = os.Stat(bad)
	assert.True(t, os.IsNotExist(err))
}
