package report

import (
	"errors"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/treevolume/internal/batch"
	"github.com/banshee-data/treevolume/internal/units"
)

// ErrNoVolumes is returned when no file in a batch produced a volume.
var ErrNoVolumes = errors.New("no successful volumes to plot")

func volumes(results []batch.FileResult, unit string) []float64 {
	var v []float64
	for _, r := range results {
		if r.Err == nil {
			v = append(v, units.ConvertVolume(r.Volume, unit))
		}
	}
	return v
}

// WriteHistogramPNG saves a histogram of successful volumes to path. The
// image format follows the path extension.
func WriteHistogramPNG(path string, results []batch.FileResult, bins int, unit string) error {
	vals := volumes(results, unit)
	if len(vals) == 0 {
		return ErrNoVolumes
	}
	if bins <= 0 {
		bins = 1
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Tree volumes (n=%d)", len(vals))
	p.X.Label.Text = fmt.Sprintf("Volume (%s)", units.Label(unit))
	p.Y.Label.Text = "Trees"

	h, err := plotter.NewHist(plotter.Values(vals), bins)
	if err != nil {
		return fmt.Errorf("histogram: %w", err)
	}
	h.FillColor = color.RGBA{R: 53, G: 183, B: 121, A: 255}
	h.LineStyle.Width = vg.Points(0.5)
	p.Add(h)

	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save histogram: %w", err)
	}
	return nil
}
