// pkg/telemetry/plot.go
package telemetry

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgsvg"
)

var (
	primary   = color.RGBA{R: 30, G: 110, B: 200, A: 255}
	secondary = color.RGBA{R: 230, G: 120, B: 20, A: 255}
)

// series is one line on a panel
type series struct {
	name  string
	value func(Sample) float64
	color color.Color
	dash  bool
}

// panel is one stacked chart of the flight figure
type panel struct {
	title  string
	ylabel string
	lines  []series
}

var flightPanels = []panel{
	{
		title:  "Altitude",
		ylabel: "y (m)",
		lines:  []series{{name: "engine mount", value: func(s Sample) float64 { return s.Altitude }, color: primary}},
	},
	{
		title:  "Attitude",
		ylabel: "angle (deg)",
		lines: []series{
			{name: "flight", value: func(s Sample) float64 { return s.FlightAngle }, color: primary},
			{name: "desired", value: func(s Sample) float64 { return s.DesiredAngle }, color: secondary, dash: true},
		},
	},
	{
		title:  "Gimbal",
		ylabel: "offset (deg)",
		lines:  []series{{name: "gimbal", value: func(s Sample) float64 { return s.Gimbal }, color: primary}},
	},
	{
		title:  "Angular rate",
		ylabel: "rate (rad/s)",
		lines:  []series{{name: "rate", value: func(s Sample) float64 { return s.AngularRate }, color: primary}},
	},
}

// Plots builds one plot per panel of the flight figure
func (r *Recorder) Plots() ([]*plot.Plot, error) {
	samples := r.Samples()
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	plots := make([]*plot.Plot, 0, len(flightPanels))
	for _, pn := range flightPanels {
		p := plot.New()
		p.Title.Text = pn.title
		p.X.Label.Text = "time (s)"
		p.Y.Label.Text = pn.ylabel
		p.Add(plotter.NewGrid())

		for _, ln := range pn.lines {
			pts := make(plotter.XYs, len(samples))
			for i, s := range samples {
				pts[i].X = s.Time
				pts[i].Y = ln.value(s)
			}
			line, err := plotter.NewLine(pts)
			if err != nil {
				return nil, fmt.Errorf("%s/%s: %w", pn.title, ln.name, err)
			}
			line.LineStyle.Width = vg.Points(1.5)
			line.LineStyle.Color = ln.color
			if ln.dash {
				line.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}
			}
			p.Add(line)
			if len(pn.lines) > 1 {
				p.Legend.Add(ln.name, line)
			}
		}
		p.Legend.Top = true
		plots = append(plots, p)
	}
	return plots, nil
}

// WritePlot draws the stacked flight figure. format is "png" or "svg".
func (r *Recorder) WritePlot(w io.Writer, format string, width, height vg.Length) error {
	plots, err := r.Plots()
	if err != nil {
		return err
	}

	var canvas vg.CanvasWriterTo
	switch strings.ToLower(format) {
	case "png":
		canvas = vgimg.PngCanvas{Canvas: vgimg.NewWith(vgimg.UseWH(width, height), vgimg.UseDPI(150))}
	case "svg":
		canvas = vgsvg.New(width, height)
	default:
		return fmt.Errorf("unsupported plot format %q", format)
	}

	rows := make([][]*plot.Plot, len(plots))
	for i, p := range plots {
		rows[i] = []*plot.Plot{p}
	}
	tiles := draw.Tiles{
		Rows:      len(rows),
		Cols:      1,
		PadTop:    vg.Points(4),
		PadBottom: vg.Points(4),
		PadLeft:   vg.Points(4),
		PadRight:  vg.Points(8),
		PadY:      vg.Points(10),
	}
	cells := plot.Align(rows, tiles, draw.New(canvas))
	for i := range rows {
		rows[i][0].Draw(cells[i][0])
	}

	_, err = canvas.WriteTo(w)
	return err
}

// SavePlot writes the flight figure to path; the extension picks the format
func (r *Recorder) SavePlot(path string) error {
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	if format == "" {
		format = "png"
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create plot: %w", err)
	}
	bw := bufio.NewWriter(f)
	if err := r.WritePlot(bw, format, 8*vg.Inch, 10*vg.Inch); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
