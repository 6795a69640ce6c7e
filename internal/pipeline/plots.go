package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/bhanuswaroop1247/keratoconus-severity-ml/dataset"
	"github.com/bhanuswaroop1247/keratoconus-severity-ml/metrics"
	"github.com/bhanuswaroop1247/keratoconus-severity-ml/pkg/errors"
)

// confusionGrid adapts a confusion matrix to plotter.GridXYZ. Row 0 of the
// matrix (lowest class) is drawn at the bottom.
type confusionGrid struct {
	cm *metrics.ConfusionMatrix
}

func (g confusionGrid) Dims() (c, r int) {
	return len(g.cm.Classes), len(g.cm.Classes)
}

func (g confusionGrid) X(c int) float64 { return float64(g.cm.Classes[c]) }
func (g confusionGrid) Y(r int) float64 { return float64(g.cm.Classes[r]) }

func (g confusionGrid) Z(c, r int) float64 {
	return float64(g.cm.Counts[r][c])
}

// renderConfusionMatrix draws the confusion matrix as a heatmap PNG with
// predicted classes on X and true classes on Y.
func renderConfusionMatrix(cm *metrics.ConfusionMatrix, path string) error {
	p := plot.New()
	p.Title.Text = "Confusion Matrix"
	p.X.Label.Text = "Predicted stage"
	p.Y.Label.Text = "True stage"

	hm := plotter.NewHeatMap(confusionGrid{cm: cm}, palette.Heat(12, 1))
	p.Add(hm)

	ticks := make([]plot.Tick, len(cm.Classes))
	for i, c := range cm.Classes {
		ticks[i] = plot.Tick{Value: float64(c), Label: fmt.Sprintf("%d", c)}
	}
	p.X.Tick.Marker = plot.ConstantTicks(ticks)
	p.Y.Tick.Marker = plot.ConstantTicks(ticks)

	return savePlot(p, 5*vg.Inch, 5*vg.Inch, path)
}

// renderPairPlot draws a scatter matrix of the table's features with one
// color per severity stage and per-feature histograms on the diagonal.
func renderPairPlot(t *dataset.Table, path string) error {
	d := t.NumFeatures()
	if d == 0 {
		return errors.Wrap(errors.ErrEmptyData, "renderPairPlot")
	}

	plots := make([][]*plot.Plot, d)
	for i := 0; i < d; i++ {
		plots[i] = make([]*plot.Plot, d)
		for j := 0; j < d; j++ {
			p := plot.New()
			p.X.Label.Text = t.FeatureNames[j]
			p.Y.Label.Text = t.FeatureNames[i]

			var err error
			if i == j {
				err = addHistogram(p, t, i)
			} else {
				err = addClassScatter(p, t, j, i)
			}
			if err != nil {
				return err
			}
			plots[i][j] = p
		}
	}

	const cell = 3 * vg.Inch
	img := vgimg.New(vg.Length(d)*cell, vg.Length(d)*cell)
	dc := draw.New(img)
	canvases := plot.Align(plots, draw.Tiles{Rows: d, Cols: d}, dc)
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			plots[i][j].Draw(canvases[i][j])
		}
	}

	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

// addClassScatter plots feature xi against feature yi, one scatter per
// severity stage.
func addClassScatter(p *plot.Plot, t *dataset.Table, xi, yi int) error {
	byClass := make(map[int]plotter.XYs)
	for row := 0; row < t.NumSamples(); row++ {
		label := t.Y[row]
		byClass[label] = append(byClass[label], plotter.XY{
			X: t.X.At(row, xi),
			Y: t.X.At(row, yi),
		})
	}

	for _, label := range t.Classes() {
		s, err := plotter.NewScatter(byClass[label])
		if err != nil {
			return errors.Wrapf(err, "scatter for stage %d", label)
		}
		s.GlyphStyle.Color = plotutil.Color(label)
		s.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(s)
		p.Legend.Add(fmt.Sprintf("Stage %d", label), s)
	}
	p.Legend.Top = true
	return nil
}

// addHistogram plots the marginal distribution of one feature.
func addHistogram(p *plot.Plot, t *dataset.Table, feature int) error {
	values := make(plotter.Values, t.NumSamples())
	for row := range values {
		values[row] = t.X.At(row, feature)
	}
	h, err := plotter.NewHist(values, 20)
	if err != nil {
		return errors.Wrapf(err, "histogram for %s", t.FeatureNames[feature])
	}
	h.FillColor = plotutil.Color(0)
	p.Add(h)
	return nil
}

// savePlot writes a single plot as PNG, creating parent directories.
func savePlot(p *plot.Plot, w, h vg.Length, path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := p.Save(w, h, path); err != nil {
		return errors.Wrapf(err, "save %s", path)
	}
	return nil
}

func ensureDir(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create directory for %s", path)
		}
	}
	return nil
}
