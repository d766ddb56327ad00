// Package chart renders the prior and posterior PD densities, the mean PD
// marker and the shaded posterior threshold band as a PNG.
package chart

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/sawpanic/pdthreshold/internal/config"
	"github.com/sawpanic/pdthreshold/internal/domain"
	atomicio "github.com/sawpanic/pdthreshold/internal/io"
)

var (
	priorColor     = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	posteriorColor = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	bandColor      = color.NRGBA{R: 255, A: 38}
	boundColor     = color.RGBA{R: 255, A: 255}
	meanColor      = color.Black
)

const headroom = 1.05

// Renderer draws a domain.Result to cfg.Path
type Renderer struct {
	cfg config.ChartConfig
}

func NewRenderer(cfg config.ChartConfig) *Renderer {
	return &Renderer{cfg: cfg}
}

func (r *Renderer) Name() string { return "chart" }

// Artifact is the path the PNG is written to.
func (r *Renderer) Artifact() string { return r.cfg.Path }

// Emit renders res and writes the PNG atomically.
func (r *Renderer) Emit(res domain.Result) error {
	p, err := r.Plot(res)
	if err != nil {
		return err
	}

	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(r.cfg.WidthIn)*vg.Inch, vg.Length(r.cfg.HeightIn)*vg.Inch),
		vgimg.UseDPI(r.cfg.DPI),
	)
	p.Draw(draw.New(c))

	if err := atomicio.WriteToAtomic(r.cfg.Path, vgimg.PngCanvas{Canvas: c}); err != nil {
		return fmt.Errorf("save chart: %w", err)
	}
	return nil
}

// Plot builds the chart without drawing it.
func (r *Renderer) Plot(res domain.Result) (*plot.Plot, error) {
	grid := make([]float64, r.cfg.Points)
	floats.Span(grid, 0, r.cfg.XMax)

	prior := Density(res.Prior, grid)
	posterior := Density(res.Posterior, grid)
	top := math.Max(maxY(prior), maxY(posterior)) * headroom
	if !(top > 0) {
		top = 1
	}

	p := plot.New()
	p.Title.Text = "Portfolio-level PD monitoring\nLoan-level PD forecasts → posterior forecast thresholds"
	p.X.Label.Text = "Latent portfolio PD (p)"
	p.Y.Label.Text = "Density"
	p.Legend.Top = true

	gridLines := plotter.NewGrid()
	gridLines.Vertical.Color = color.Gray{Y: 200}
	gridLines.Horizontal.Color = color.Gray{Y: 200}
	p.Add(gridLines)

	th := res.Thresholds
	band, err := plotter.NewPolygon(plotter.XYs{
		{X: th.Low, Y: 0}, {X: th.High, Y: 0}, {X: th.High, Y: top}, {X: th.Low, Y: top},
	})
	if err != nil {
		return nil, fmt.Errorf("threshold band: %w", err)
	}
	band.Color = bandColor
	band.LineStyle.Width = 0

	priorLine, err := plotter.NewLine(prior)
	if err != nil {
		return nil, fmt.Errorf("prior curve: %w", err)
	}
	priorLine.LineStyle.Width = vg.Points(2)
	priorLine.LineStyle.Color = priorColor
	priorLine.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}

	postLine, err := plotter.NewLine(posterior)
	if err != nil {
		return nil, fmt.Errorf("posterior curve: %w", err)
	}
	postLine.LineStyle.Width = vg.Points(3)
	postLine.LineStyle.Color = posteriorColor

	meanLine, err := vertical(res.MeanPD, top)
	if err != nil {
		return nil, err
	}
	meanLine.LineStyle.Color = meanColor
	meanLine.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}

	lowLine, err := vertical(th.Low, top)
	if err != nil {
		return nil, err
	}
	highLine, err := vertical(th.High, top)
	if err != nil {
		return nil, err
	}
	for _, l := range []*plotter.Line{lowLine, highLine} {
		l.LineStyle.Color = boundColor
		l.LineStyle.Dashes = []vg.Length{vg.Points(1), vg.Points(3)}
	}

	p.Add(band, priorLine, postLine, meanLine, lowLine, highLine)
	// Add widens the axes to the data; pin them to the configured window
	p.X.Min, p.X.Max = 0, r.cfg.XMax
	p.Y.Min, p.Y.Max = 0, top
	p.Legend.Add("Prior: forecast PD distribution", priorLine)
	p.Legend.Add("Posterior: after pseudo-likelihood update", postLine)
	p.Legend.Add(fmt.Sprintf("Mean PD = %.4f", res.MeanPD), meanLine)
	p.Legend.Add(fmt.Sprintf("Posterior %s forecast band", th.Levels.Label()), band)

	return p, nil
}

// Density evaluates the Beta pdf of params over grid, dropping points where
// the density is not finite (shape < 1 at the support edge).
func Density(params domain.BetaParams, grid []float64) plotter.XYs {
	d := distuv.Beta{Alpha: params.A, Beta: params.B}
	xys := make(plotter.XYs, 0, len(grid))
	for _, x := range grid {
		y := d.Prob(x)
		if math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		xys = append(xys, plotter.XY{X: x, Y: y})
	}
	return xys
}

func maxY(xys plotter.XYs) float64 {
	top := 0.0
	for _, xy := range xys {
		top = math.Max(top, xy.Y)
	}
	return top
}

func vertical(x, top float64) (*plotter.Line, error) {
	l, err := plotter.NewLine(plotter.XYs{{X: x, Y: 0}, {X: x, Y: top}})
	if err != nil {
		return nil, fmt.Errorf("marker at %g: %w", x, err)
	}
	l.LineStyle.Width = vg.Points(1)
	return l, nil
}
