package preprocessing

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/bhanuswaroop1247/keratoconus-severity-ml/dataset"
	"github.com/bhanuswaroop1247/keratoconus-severity-ml/pkg/errors"
)

// Resampler balances class counts by adding rows for minority classes.
// Implementations never modify or remove existing rows, so majority-class
// counts are unchanged by construction.
type Resampler interface {
	Resample(t *dataset.Table) (*dataset.Table, error)
}

// RandomOverSampler balances classes by duplicating randomly chosen minority
// rows until every class matches the majority count.
type RandomOverSampler struct {
	Seed uint64
}

// NewRandomOverSampler creates a RandomOverSampler.
func NewRandomOverSampler(seed uint64) *RandomOverSampler {
	return &RandomOverSampler{Seed: seed}
}

// Resample returns a table with balanced class counts.
func (r *RandomOverSampler) Resample(t *dataset.Table) (*dataset.Table, error) {
	return oversample(t, r.Seed, func(rng *rand.Rand, class []int, x *mat.Dense, row []float64) {
		src := class[rng.IntN(len(class))]
		for j := range row {
			row[j] = x.At(src, j)
		}
	})
}

// SMOTE balances classes with synthetic minority oversampling: each new row
// interpolates between a random minority row and one of its k nearest
// neighbours within the same class.
type SMOTE struct {
	KNeighbors int
	Seed       uint64
}

// NewSMOTE creates a SMOTE resampler with the conventional default of five
// neighbours.
func NewSMOTE(seed uint64) *SMOTE {
	return &SMOTE{KNeighbors: 5, Seed: seed}
}

// Resample returns a table where every minority class has been raised to the
// majority count with interpolated synthetic rows.
func (s *SMOTE) Resample(t *dataset.Table) (*dataset.Table, error) {
	k := s.KNeighbors
	if k <= 0 {
		return nil, errors.NewValidationError("k_neighbors", "must be positive", k)
	}
	return oversample(t, s.Seed, func(rng *rand.Rand, class []int, x *mat.Dense, row []float64) {
		src := class[rng.IntN(len(class))]
		neighbours := nearestWithin(x, class, src, k)
		var partner int
		if len(neighbours) == 0 {
			// Singleton class: fall back to duplication.
			partner = src
		} else {
			partner = neighbours[rng.IntN(len(neighbours))]
		}
		gap := rng.Float64()
		for j := range row {
			a := x.At(src, j)
			b := x.At(partner, j)
			row[j] = a + gap*(b-a)
		}
	})
}

// oversample appends synthetic rows produced by synthesize until all classes
// reach the majority count.
func oversample(t *dataset.Table, seed uint64, synthesize func(rng *rand.Rand, class []int, x *mat.Dense, row []float64)) (*dataset.Table, error) {
	if t == nil || t.NumSamples() == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "Resample")
	}

	counts := t.ClassCounts()
	majority := 0
	for _, c := range counts {
		if c > majority {
			majority = c
		}
	}

	deficit := 0
	for _, c := range counts {
		deficit += majority - c
	}
	if deficit == 0 {
		return t, nil
	}

	byClass := make(map[int][]int)
	for i, label := range t.Y {
		byClass[label] = append(byClass[label], i)
	}

	n, d := t.X.Dims()
	out := mat.NewDense(n+deficit, d, nil)
	out.Slice(0, n, 0, d).(*mat.Dense).Copy(t.X)
	y := make([]int, n, n+deficit)
	copy(y, t.Y)

	rng := rand.New(rand.NewPCG(seed, seed))
	row := make([]float64, d)
	next := n
	for _, label := range t.Classes() {
		for added := counts[label]; added < majority; added++ {
			synthesize(rng, byClass[label], t.X, row)
			out.SetRow(next, row)
			y = append(y, label)
			next++
		}
	}

	errors.Warn(errors.NewDataQualityWarning("Oversampler", deficit, "synthetic minority rows added"))

	names := make([]string, len(t.FeatureNames))
	copy(names, t.FeatureNames)
	return dataset.New(names, out, y)
}

// nearestWithin returns up to k nearest neighbours of src among the class
// indices, excluding src itself, by Euclidean distance.
func nearestWithin(x *mat.Dense, class []int, src, k int) []int {
	type candidate struct {
		idx  int
		dist float64
	}
	_, d := x.Dims()
	candidates := make([]candidate, 0, len(class)-1)
	for _, idx := range class {
		if idx == src {
			continue
		}
		sum := 0.0
		for j := 0; j < d; j++ {
			diff := x.At(src, j) - x.At(idx, j)
			sum += diff * diff
		}
		candidates = append(candidates, candidate{idx: idx, dist: math.Sqrt(sum)})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	out := make([]int, len(candidates))
	for i, c := range candidates {
		out[i] = c.idx
	}
	return out
}
