package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/bhanuswaroop1247/keratoconus-severity-ml/dataset"
	"github.com/bhanuswaroop1247/keratoconus-severity-ml/pkg/errors"
)

// OutlierFilter removes rows whose z-score exceeds a threshold on any
// feature column. The filter never alters surviving rows and never adds
// rows; on clean data it is a no-op.
type OutlierFilter struct {
	// Threshold is the absolute z-score above which a row is dropped.
	Threshold float64
}

// DefaultOutlierThreshold keeps everything within 3.5 standard deviations,
// which trims only gross measurement errors on Gaussian data.
const DefaultOutlierThreshold = 3.5

// NewOutlierFilter creates an OutlierFilter. A non-positive threshold falls
// back to the default.
func NewOutlierFilter(threshold float64) *OutlierFilter {
	if threshold <= 0 {
		threshold = DefaultOutlierThreshold
	}
	return &OutlierFilter{Threshold: threshold}
}

// Apply returns a table without outlier rows along with the number of rows
// removed. A DataQualityWarning is raised when rows are dropped.
func (f *OutlierFilter) Apply(t *dataset.Table) (*dataset.Table, int, error) {
	if t == nil || t.NumSamples() == 0 {
		return nil, 0, errors.Wrap(errors.ErrEmptyData, "OutlierFilter.Apply")
	}

	n := t.NumSamples()
	d := t.NumFeatures()

	means := make([]float64, d)
	sds := make([]float64, d)
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		for i := 0; i < n; i++ {
			col[i] = t.X.At(i, j)
		}
		mean, sd := stat.MeanStdDev(col, nil)
		if sd < 1e-12 {
			sd = 1.0
		}
		means[j] = mean
		sds[j] = sd
	}

	keep := make([]int, 0, n)
	for i := 0; i < n; i++ {
		inlier := true
		for j := 0; j < d; j++ {
			z := math.Abs(t.X.At(i, j)-means[j]) / sds[j]
			if z > f.Threshold {
				inlier = false
				break
			}
		}
		if inlier {
			keep = append(keep, i)
		}
	}

	removed := n - len(keep)
	if removed == n {
		return nil, 0, errors.NewValueError("OutlierFilter.Apply", "all rows classified as outliers; threshold too strict")
	}
	if removed == 0 {
		return t, 0, nil
	}

	filtered, err := t.TakeRows(keep)
	if err != nil {
		return nil, 0, err
	}
	errors.Warn(errors.NewDataQualityWarning("OutlierFilter", removed, "z-score above threshold"))
	return filtered, removed, nil
}
