package report

import (
	"fmt"
	"image/color"

	"github.com/banshee-data/handwarp/internal/db"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	realColor    = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	virtualColor = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
)

// DepthTrace builds a plot of the real and virtual hand Z per frame.
func DepthTrace(ticks []db.TickRow, title string) (*plot.Plot, error) {
	if len(ticks) == 0 {
		return nil, ErrNoTicks
	}
	realPts := make(plotter.XYs, len(ticks))
	virtualPts := make(plotter.XYs, len(ticks))
	for i, t := range ticks {
		realPts[i] = plotter.XY{X: float64(t.Frame), Y: t.RealHand.Z}
		virtualPts[i] = plotter.XY{X: float64(t.Frame), Y: t.VirtualHand.Z}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Hand Z (m)"

	realLine, err := plotter.NewLine(realPts)
	if err != nil {
		return nil, err
	}
	realLine.Color = realColor
	realLine.Width = vg.Points(1)

	virtualLine, err := plotter.NewLine(virtualPts)
	if err != nil {
		return nil, err
	}
	virtualLine.Color = virtualColor
	virtualLine.Width = vg.Points(1)
	virtualLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(plotter.NewGrid(), realLine, virtualLine)
	p.Legend.Add("real", realLine)
	p.Legend.Add("virtual", virtualLine)
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// PlotDepthTrace saves the depth trace of ticks as an image at path. The
// format follows the file extension.
func PlotDepthTrace(path string, ticks []db.TickRow) error {
	p, err := DepthTrace(ticks, fmt.Sprintf("Hand depth (%d frames)", len(ticks)))
	if err != nil {
		return err
	}
	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save depth trace: %w", err)
	}
	return nil
}
