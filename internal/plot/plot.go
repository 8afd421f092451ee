// Package plot renders Bode, Nyquist and step-response charts to PNG with
// gonum/plot.
package plot

import (
	"bufio"
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/san-kum/leadlag/internal/freqresp"
	"github.com/san-kum/leadlag/internal/sim"
)

var ErrNoData = errors.New("plot: no finite data")

const (
	DefaultWidth  = 8.0
	DefaultHeight = 6.0
	DefaultDPI    = 150
)

var (
	plantColor = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
	loopColor  = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	refColor   = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
)

// Files written by SaveAll.
const (
	BodeMagnitudeFile = "bode_magnitude.png"
	BodePhaseFile     = "bode_phase.png"
	NyquistFile       = "nyquist.png"
	StepFile          = "step.png"
)

// Set is everything SaveAll draws for one run.
type Set struct {
	Plant    freqresp.Series
	Loop     freqresp.Series
	Nyquist  freqresp.NyquistSeries
	Step     sim.Response
	TargetPM float64
}

// SaveAll writes the four charts of a run into dir and returns their paths.
func SaveAll(dir string, s Set) ([]string, error) {
	charts := []struct {
		name  string
		build func() (*plot.Plot, error)
	}{
		{BodeMagnitudeFile, func() (*plot.Plot, error) { return BodeMagnitude(s.Plant, s.Loop) }},
		{BodePhaseFile, func() (*plot.Plot, error) { return BodePhase(s.Plant, s.Loop, s.TargetPM) }},
		{NyquistFile, func() (*plot.Plot, error) { return Nyquist(s.Nyquist) }},
		{StepFile, func() (*plot.Plot, error) { return Step(s.Step) }},
	}

	paths := make([]string, 0, len(charts))
	for _, c := range charts {
		p, err := c.build()
		if err != nil {
			return paths, fmt.Errorf("plot: %s: %w", c.name, err)
		}
		path := filepath.Join(dir, c.name)
		if err := SavePNG(p, DefaultWidth, DefaultHeight, path); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func BodeMagnitude(plant, loop freqresp.Series) (*plot.Plot, error) {
	p := newPlot("Bode magnitude", "frequency (rad/s)", "magnitude (dB)")
	logFrequency(p)
	if err := addLine(p, "plant", plantColor, plant.Frequency, plant.Magnitude); err != nil {
		return nil, err
	}
	if err := addLine(p, "compensated", loopColor, loop.Frequency, loop.Magnitude); err != nil {
		return nil, err
	}
	if len(loop.Frequency) > 0 {
		zero := plotter.NewFunction(func(float64) float64 { return 0 })
		zero.Color = refColor
		zero.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		p.Add(zero)
	}
	return p, nil
}

// BodePhase draws both phase curves with the -180+PM reference line.
func BodePhase(plant, loop freqresp.Series, targetPM float64) (*plot.Plot, error) {
	p := newPlot("Bode phase", "frequency (rad/s)", "phase (deg)")
	logFrequency(p)
	if err := addLine(p, "plant", plantColor, plant.Frequency, plant.Phase); err != nil {
		return nil, err
	}
	if err := addLine(p, "compensated", loopColor, loop.Frequency, loop.Phase); err != nil {
		return nil, err
	}
	if targetPM > 0 {
		ref := -180 + targetPM
		line := plotter.NewFunction(func(float64) float64 { return ref })
		line.Color = refColor
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("-180+%.0f°", targetPM), line)
	}
	return p, nil
}

// Nyquist draws the positive-frequency locus, its mirror and the -1 point.
func Nyquist(n freqresp.NyquistSeries) (*plot.Plot, error) {
	p := newPlot("Nyquist", "Re", "Im")
	if err := addLine(p, "L(jω)", loopColor, n.Real, n.Imag); err != nil {
		return nil, err
	}
	mirror := make([]float64, len(n.Imag))
	for i, v := range n.Imag {
		mirror[i] = -v
	}
	if err := addLine(p, "", plantColor, n.Real, mirror); err != nil {
		return nil, err
	}

	crit, err := plotter.NewScatter(plotter.XYs{{X: -1, Y: 0}})
	if err != nil {
		return nil, err
	}
	crit.GlyphStyle.Color = refColor
	crit.GlyphStyle.Shape = draw.CrossGlyph{}
	crit.GlyphStyle.Radius = vg.Points(5)
	p.Add(crit)
	p.Legend.Add("-1", crit)
	return p, nil
}

func Step(r sim.Response) (*plot.Plot, error) {
	p := newPlot("Closed-loop step response", "time (s)", "amplitude")
	if err := addLine(p, "y(t)", loopColor, r.Time, r.Amplitude); err != nil {
		return nil, err
	}
	return p, nil
}

// WritePNG renders p at the given size in inches.
func WritePNG(w io.Writer, p *plot.Plot, widthIn, heightIn float64) error {
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch),
		vgimg.UseDPI(DefaultDPI),
	)
	p.Draw(draw.New(c))

	bw := bufio.NewWriter(w)
	pngc := vgimg.PngCanvas{Canvas: c}
	if _, err := pngc.WriteTo(bw); err != nil {
		return fmt.Errorf("plot: write png: %w", err)
	}
	return bw.Flush()
}

func SavePNG(p *plot.Plot, widthIn, heightIn float64, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("plot: create directory: %w", err)
	}
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("plot: create png: %w", err)
	}
	defer f.Close()
	return WritePNG(f, p, widthIn, heightIn)
}

func newPlot(title, xlabel, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel

	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.X.Label.TextStyle.Font.Size = vg.Points(12)
	p.Y.Label.TextStyle.Font.Size = vg.Points(12)
	p.X.Padding = vg.Points(10)
	p.Y.Padding = vg.Points(10)
	p.Legend.Top = true
	p.Add(plotter.NewGrid())
	return p
}

func logFrequency(p *plot.Plot) {
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
}

// addLine skips non-finite samples; plotter rejects them.
func addLine(p *plot.Plot, label string, c color.Color, xs, ys []float64) error {
	n := min(len(xs), len(ys))
	pts := make(plotter.XYs, 0, n)
	for i := 0; i < n; i++ {
		if finite(xs[i]) && finite(ys[i]) {
			pts = append(pts, plotter.XY{X: xs[i], Y: ys[i]})
		}
	}
	if len(pts) == 0 {
		return ErrNoData
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.LineStyle.Width = vg.Points(2)
	line.LineStyle.Color = c
	p.Add(line)
	if label != "" {
		p.Legend.Add(label, line)
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
