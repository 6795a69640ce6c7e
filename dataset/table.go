// Package dataset holds the flat tabular representation shared by every
// pipeline stage: three Pentacam measurements per row plus an ordinal
// severity label.
package dataset

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/bhanuswaroop1247/keratoconus-severity-ml/pkg/errors"
)

// Feature and label column names of the fixed CSV schema.
const (
	FeatureRmB      = "Rm_B"      // posterior radius of curvature, mm
	FeatureRmF      = "Rm_F"      // anterior radius of curvature, mm
	FeaturePachyMin = "Pachy_Min" // minimum pachymetry, µm
	LabelName       = "Severity"
)

// NumStages is the number of severity stages (labels 0..NumStages-1).
const NumStages = 5

// DefaultFeatureNames is the canonical feature order of the schema.
func DefaultFeatureNames() []string {
	return []string{FeatureRmB, FeatureRmF, FeaturePachyMin}
}

// Table is an immutable-by-convention tabular dataset: an n×d feature matrix
// with named columns and an n-vector of integer labels. Stages derive new
// tables rather than mutating rows in place.
type Table struct {
	FeatureNames []string
	X            *mat.Dense
	Y            []int
}

// New validates shapes and builds a Table.
func New(featureNames []string, X *mat.Dense, y []int) (*Table, error) {
	if X == nil {
		return nil, errors.NewValueError("dataset.New", "nil feature matrix")
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "dataset.New")
	}
	if len(featureNames) != c {
		return nil, errors.NewDimensionError("dataset.New", len(featureNames), c, 1)
	}
	if len(y) != r {
		return nil, errors.NewDimensionError("dataset.New", r, len(y), 0)
	}
	return &Table{FeatureNames: featureNames, X: X, Y: y}, nil
}

// NumSamples returns the number of rows.
func (t *Table) NumSamples() int {
	r, _ := t.X.Dims()
	return r
}

// NumFeatures returns the number of feature columns.
func (t *Table) NumFeatures() int {
	_, c := t.X.Dims()
	return c
}

// ClassCounts returns the number of rows per label.
func (t *Table) ClassCounts() map[int]int {
	counts := make(map[int]int)
	for _, label := range t.Y {
		counts[label]++
	}
	return counts
}

// Classes returns the sorted distinct labels present in the table.
func (t *Table) Classes() []int {
	counts := t.ClassCounts()
	classes := make([]int, 0, len(counts))
	for label := range counts {
		classes = append(classes, label)
	}
	// insertion sort; label cardinality is tiny
	for i := 1; i < len(classes); i++ {
		for j := i; j > 0 && classes[j] < classes[j-1]; j-- {
			classes[j], classes[j-1] = classes[j-1], classes[j]
		}
	}
	return classes
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	r, c := t.X.Dims()
	x := mat.NewDense(r, c, nil)
	x.Copy(t.X)
	y := make([]int, len(t.Y))
	copy(y, t.Y)
	names := make([]string, len(t.FeatureNames))
	copy(names, t.FeatureNames)
	return &Table{FeatureNames: names, X: x, Y: y}
}

// Shuffle returns a copy of the table with rows permuted deterministically
// under the given seed.
func (t *Table) Shuffle(seed uint64) *Table {
	r, c := t.X.Dims()
	perm := make([]int, r)
	for i := range perm {
		perm[i] = i
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	rng.Shuffle(len(perm), func(i, j int) {
		perm[i], perm[j] = perm[j], perm[i]
	})

	x := mat.NewDense(r, c, nil)
	y := make([]int, r)
	for i, src := range perm {
		x.SetRow(i, mat.Row(nil, src, t.X))
		y[i] = t.Y[src]
	}
	names := make([]string, len(t.FeatureNames))
	copy(names, t.FeatureNames)
	return &Table{FeatureNames: names, X: x, Y: y}
}

// FeatureIndex returns the column index of a named feature.
func (t *Table) FeatureIndex(name string) (int, error) {
	for i, n := range t.FeatureNames {
		if n == name {
			return i, nil
		}
	}
	return 0, errors.NewValidationError("feature", "unknown feature name", name)
}

// FeatureColumn returns a copy of the named feature column.
func (t *Table) FeatureColumn(name string) ([]float64, error) {
	j, err := t.FeatureIndex(name)
	if err != nil {
		return nil, err
	}
	return mat.Col(nil, j, t.X), nil
}

// SelectFeatures returns a new table restricted to the named columns, in the
// given order.
func (t *Table) SelectFeatures(names []string) (*Table, error) {
	if len(names) == 0 {
		return nil, errors.NewValueError("SelectFeatures", "no features named")
	}
	cols := make([]int, len(names))
	for i, name := range names {
		j, err := t.FeatureIndex(name)
		if err != nil {
			return nil, err
		}
		cols[i] = j
	}

	r, _ := t.X.Dims()
	x := mat.NewDense(r, len(cols), nil)
	for i := 0; i < r; i++ {
		for k, j := range cols {
			x.Set(i, k, t.X.At(i, j))
		}
	}
	y := make([]int, len(t.Y))
	copy(y, t.Y)
	selected := make([]string, len(names))
	copy(selected, names)
	return &Table{FeatureNames: selected, X: x, Y: y}, nil
}

// TakeRows returns a new table containing the given row indices.
func (t *Table) TakeRows(indices []int) (*Table, error) {
	if len(indices) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "TakeRows")
	}
	r, c := t.X.Dims()
	x := mat.NewDense(len(indices), c, nil)
	y := make([]int, len(indices))
	for i, src := range indices {
		if src < 0 || src >= r {
			return nil, errors.NewValidationError("index", "row index out of range", src)
		}
		x.SetRow(i, mat.Row(nil, src, t.X))
		y[i] = t.Y[src]
	}
	names := make([]string, len(t.FeatureNames))
	copy(names, t.FeatureNames)
	return &Table{FeatureNames: names, X: x, Y: y}, nil
}
