package plot

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgsvg"

	"github.com/GoSim-25-26J-441/gridrun/pkg/frame"
)

// ErrOptions reports an inconsistent plot request.
var ErrOptions = errors.New("invalid plot options")

// LineStyles and Markers are the accepted line and marker codes, in palette
// order.
var (
	LineStyles = []string{"-", "--", "-.", ":"}
	Markers    = []string{".", "x", "o", "v", "^", "<", ">", "s", "D"}
)

var dashes = map[string][]vg.Length{
	"-":  nil,
	"--": {vg.Points(6), vg.Points(3)},
	"-.": {vg.Points(6), vg.Points(2), vg.Points(1), vg.Points(2)},
	":":  {vg.Points(1), vg.Points(2)},
}

var glyphs = map[string]draw.GlyphDrawer{
	".": draw.CircleGlyph{},
	"x": draw.CrossGlyph{},
	"o": draw.RingGlyph{},
	"v": draw.TriangleGlyph{},
	"^": draw.PyramidGlyph{},
	"<": draw.PlusGlyph{},
	">": draw.BoxGlyph{},
	"s": draw.SquareGlyph{},
	"D": draw.BoxGlyph{},
}

// Palette is the ten colour cycle used for the color channel.
var Palette = []color.Color{
	color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	color.RGBA{R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
	color.RGBA{R: 0x8c, G: 0x56, B: 0x4b, A: 0xff},
	color.RGBA{R: 0xe3, G: 0x77, B: 0xc2, A: 0xff},
	color.RGBA{R: 0x7f, G: 0x7f, B: 0x7f, A: 0xff},
	color.RGBA{R: 0xbc, G: 0xbd, B: 0x22, A: 0xff},
	color.RGBA{R: 0x17, G: 0xbe, B: 0xcf, A: 0xff},
}

// Limits is an axis range.
type Limits struct {
	Min, Max float64
}

// Options configures QPlot.
type Options struct {
	X string
	// Y holds one column, or several drawn in the same facets.
	Y []string
	// YMarkers gives one line style or marker code per Y column when Y has
	// more than one entry.
	YMarkers []string

	Aesthetics

	XLog, YLog bool
	XLim, YLim *Limits

	// IndependentAxes stops facets sharing x and y ranges.
	IndependentAxes bool
	// YLegend appends the y column to every legend label.
	YLegend bool
	// Rename replaces substrings of titles, labels and axis names.
	Rename map[string]string
	// Size is the side of one facet; defaults to 4 inches.
	Size vg.Length
}

func (o *Options) validate() error {
	if o.X == "" || len(o.Y) == 0 {
		return fmt.Errorf("%w: x and y are required", ErrOptions)
	}
	if len(o.Y) > 1 {
		if len(o.YMarkers) != len(o.Y) {
			return fmt.Errorf("%w: y_markers must be a list of same length as y", ErrOptions)
		}
		if o.Marker != "" {
			return fmt.Errorf("%w: cannot use marker with several y columns", ErrOptions)
		}
		if o.LineStyle != "" {
			return fmt.Errorf("%w: cannot use linestyle with several y columns", ErrOptions)
		}
		for _, m := range o.YMarkers {
			if !slices.Contains(LineStyles, m) && !slices.Contains(Markers, m) {
				return fmt.Errorf("%w: unknown marker %q", ErrOptions, m)
			}
		}
	}
	if o.XLim != nil && o.XLim.Min >= o.XLim.Max {
		return fmt.Errorf("%w: empty x limits", ErrOptions)
	}
	if o.YLim != nil && o.YLim.Min >= o.YLim.Max {
		return fmt.Errorf("%w: empty y limits", ErrOptions)
	}
	return nil
}

func (o *Options) rename(s string) string {
	if len(o.Rename) == 0 {
		return s
	}
	keys := make([]string, 0, len(o.Rename))
	for k := range o.Rename {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		s = strings.ReplaceAll(s, k, o.Rename[k])
	}
	return s
}

// Figure is a grid of facets.
type Figure struct {
	Plots [][]*gplot.Plot
	Size  vg.Length
}

// Rows returns the number of facet rows.
func (fig *Figure) Rows() int { return len(fig.Plots) }

// Cols returns the number of facet columns.
func (fig *Figure) Cols() int {
	if len(fig.Plots) == 0 {
		return 0
	}
	return len(fig.Plots[0])
}

// QPlot draws y against x for every instruction derived from the aesthetic
// columns, one facet per (row, column) value pair.
func QPlot(f *frame.Frame, opts Options) (*Figure, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if f.Len() == 0 {
		return nil, fmt.Errorf("%w: no rows to plot", ErrOptions)
	}
	instructions, err := Instructions(f, opts.Aesthetics)
	if err != nil {
		return nil, err
	}

	nrows, ncols := 1, 1
	for _, in := range instructions {
		nrows = max(nrows, in.Row+1)
		ncols = max(ncols, in.Column+1)
	}

	xlabel := opts.rename(opts.X)
	ylabel := ""
	if !opts.YLegend {
		ylabel = opts.rename(strings.Join(opts.Y, ", "))
	}

	plots := make([][]*gplot.Plot, nrows)
	for r := range plots {
		plots[r] = make([]*gplot.Plot, ncols)
		for c := range plots[r] {
			p := gplot.New()
			p.X.Label.Text = xlabel
			p.Y.Label.Text = ylabel
			if opts.XLog {
				p.X.Scale = gplot.LogScale{}
				p.X.Tick.Marker = gplot.LogTicks{Prec: -1}
			}
			if opts.YLog {
				p.Y.Scale = gplot.LogScale{}
				p.Y.Tick.Marker = gplot.LogTicks{Prec: -1}
			}
			p.Legend.Top = true
			plots[r][c] = p
		}
	}

	for _, in := range instructions {
		p := plots[in.Row][in.Column]
		p.Title.Text = opts.rename(in.Title)
		sub := f.Filter(in.Filter)
		if err := addSeries(p, sub, in, &opts); err != nil {
			return nil, err
		}
	}

	if !opts.IndependentAxes {
		shareRanges(plots)
	}
	for _, row := range plots {
		for _, p := range row {
			if opts.XLim != nil {
				p.X.Min, p.X.Max = opts.XLim.Min, opts.XLim.Max
			}
			if opts.YLim != nil {
				p.Y.Min, p.Y.Max = opts.YLim.Min, opts.YLim.Max
			}
		}
	}

	size := opts.Size
	if size <= 0 {
		size = 4 * vg.Inch
	}
	return &Figure{Plots: plots, Size: size}, nil
}

func addSeries(p *gplot.Plot, sub *frame.Frame, in Instruction, opts *Options) error {
	if sub.Len() == 0 {
		return nil
	}
	xs, err := sub.Float64s(opts.X)
	if err != nil {
		return err
	}

	for i, y := range opts.Y {
		ys, err := sub.Float64s(y)
		if err != nil {
			return err
		}
		pts := make(plotter.XYs, len(xs))
		for j := range xs {
			pts[j] = plotter.XY{X: xs[j], Y: ys[j]}
		}
		if err := checkLog(pts, opts); err != nil {
			return err
		}

		label := in.Label
		if opts.YLegend {
			label = strings.TrimSpace(label + " " + y)
		} else if i > 0 {
			label = ""
		}
		label = strings.TrimSpace(opts.rename(label))

		lineCode, markerCode := styleCodes(in, opts, i)
		col := color.Color(color.Black)
		if in.Color >= 0 {
			col = Palette[in.Color%len(Palette)]
		}

		var thumbs []gplot.Thumbnailer
		if lineCode != "" {
			line, err := plotter.NewLine(pts)
			if err != nil {
				return err
			}
			line.Color = col
			line.Width = vg.Points(1)
			line.Dashes = dashes[lineCode]
			p.Add(line)
			thumbs = append(thumbs, line)
		}
		if markerCode != "" {
			sc, err := plotter.NewScatter(pts)
			if err != nil {
				return err
			}
			sc.GlyphStyle.Color = col
			sc.GlyphStyle.Shape = glyphs[markerCode]
			sc.GlyphStyle.Radius = vg.Points(2.5)
			p.Add(sc)
			thumbs = append(thumbs, sc)
		}
		if label != "" {
			p.Legend.Add(label, thumbs...)
		}
	}
	return nil
}

// styleCodes picks the line style and marker for series i. In multi-y mode
// the y marker decides; otherwise an unset channel falls back to a solid
// line without markers.
func styleCodes(in Instruction, opts *Options, i int) (line, marker string) {
	if len(opts.Y) > 1 {
		code := opts.YMarkers[i]
		if slices.Contains(LineStyles, code) {
			return code, ""
		}
		return "", code
	}
	if in.LineStyle >= 0 {
		line = LineStyles[in.LineStyle%len(LineStyles)]
	}
	if in.Marker >= 0 {
		marker = Markers[in.Marker%len(Markers)]
	}
	if line == "" && marker == "" {
		line = "-"
	}
	return line, marker
}

func checkLog(pts plotter.XYs, opts *Options) error {
	for _, pt := range pts {
		if opts.XLog && pt.X <= 0 {
			return fmt.Errorf("%w: x value %g cannot be drawn on a log axis", ErrOptions, pt.X)
		}
		if opts.YLog && pt.Y <= 0 {
			return fmt.Errorf("%w: y value %g cannot be drawn on a log axis", ErrOptions, pt.Y)
		}
	}
	return nil
}

func shareRanges(plots [][]*gplot.Plot) {
	xmin, xmax := math.Inf(1), math.Inf(-1)
	ymin, ymax := math.Inf(1), math.Inf(-1)
	for _, row := range plots {
		for _, p := range row {
			if p.X.Min <= p.X.Max {
				xmin, xmax = math.Min(xmin, p.X.Min), math.Max(xmax, p.X.Max)
			}
			if p.Y.Min <= p.Y.Max {
				ymin, ymax = math.Min(ymin, p.Y.Min), math.Max(ymax, p.Y.Max)
			}
		}
	}
	for _, row := range plots {
		for _, p := range row {
			if xmin <= xmax {
				p.X.Min, p.X.Max = xmin, xmax
			}
			if ymin <= ymax {
				p.Y.Min, p.Y.Max = ymin, ymax
			}
		}
	}
}

// Function plots f over n evenly spaced samples of [lo, hi].
func Function(name string, f func(float64) float64, lo, hi float64) (*gplot.Plot, error) {
	if lo >= hi {
		return nil, fmt.Errorf("%w: empty range [%g, %g]", ErrOptions, lo, hi)
	}
	p := gplot.New()
	p.Title.Text = name
	fn := plotter.NewFunction(f)
	fn.Samples = 100
	fn.XMin, fn.XMax = lo, hi
	p.Add(fn)
	p.X.Min, p.X.Max = lo, hi
	return p, nil
}

// WriteTo renders the figure in the given format ("png" or "svg").
func (fig *Figure) WriteTo(w io.Writer, format string) (int64, error) {
	width := fig.Size * vg.Length(max(fig.Cols(), 1))
	height := fig.Size * vg.Length(max(fig.Rows(), 1))

	var canvas vg.CanvasWriterTo
	switch strings.ToLower(format) {
	case "png":
		canvas = vgimg.PngCanvas{Canvas: vgimg.New(width, height)}
	case "svg":
		canvas = vgsvg.New(width, height)
	default:
		return 0, fmt.Errorf("%w: unsupported format %q", ErrOptions, format)
	}

	dc := draw.New(canvas)
	tiles := draw.Tiles{
		Rows: fig.Rows(),
		Cols: fig.Cols(),
		PadX: vg.Millimeter,
		PadY: vg.Millimeter,
	}
	canvases := gplot.Align(fig.Plots, tiles, dc)
	for r, row := range fig.Plots {
		for c, p := range row {
			p.Draw(canvases[r][c])
		}
	}
	return canvas.WriteTo(w)
}

// Save writes the figure to path; the format follows the extension.
func (fig *Figure) Save(path string) error {
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := fig.WriteTo(f, format); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
