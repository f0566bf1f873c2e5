package report

import (
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/bikecast/pkg/errors"
)

// PlotSize is the width and height of the scatter plot.
const PlotSize = 6 * vg.Inch

// WritePredictionPlot saves a scatter of actual against predicted values
// with the y = x line. The format follows the file extension (png, svg, pdf).
func WritePredictionPlot(path, title string, actual, predicted *mat.VecDense) error {
	if actual == nil || predicted == nil || actual.IsEmpty() {
		return errors.NewValueError("WritePredictionPlot", "empty vector")
	}
	n := actual.Len()
	if predicted.IsEmpty() || predicted.Len() != n {
		return errors.NewDimensionError("WritePredictionPlot", n, predicted.Len(), 0)
	}

	pts := make(plotter.XYs, n)
	xs := make([]float64, 0, 2*n)
	for i := range pts {
		pts[i].X = actual.AtVec(i)
		pts[i].Y = predicted.AtVec(i)
		xs = append(xs, pts[i].X, pts[i].Y)
	}
	lo, hi := floats.Min(xs), floats.Max(xs)
	if lo == hi || math.IsNaN(lo) || math.IsNaN(hi) {
		hi = lo + 1
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Actual"
	p.Y.Label.Text = "Predicted"
	p.X.Min, p.X.Max = lo, hi
	p.Y.Min, p.Y.Max = lo, hi

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "build scatter")
	}
	scatter.GlyphStyle.Radius = vg.Points(1.5)
	scatter.GlyphStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 160}

	identity := plotter.NewFunction(func(x float64) float64 { return x })
	identity.XMin, identity.XMax = lo, hi
	identity.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	identity.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}

	p.Add(plotter.NewGrid(), scatter, identity)
	p.Legend.Add("prediction", scatter)
	p.Legend.Add("y = x", identity)
	p.Legend.Top = true
	p.Legend.Left = true

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.NewIOError("create directory", dir, err)
		}
	}
	if err := p.Save(PlotSize, PlotSize, path); err != nil {
		return errors.NewIOError("write plot", path, err)
	}
	return nil
}
