// Package ensemble implements a Random Forest classifier: bagged CART trees
// with feature subsampling, majority-vote prediction and averaged class
// probabilities.
package ensemble

import (
	"math"
	"math/rand/v2"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/bhanuswaroop1247/keratoconus-severity-ml/pkg/errors"
	"github.com/bhanuswaroop1247/keratoconus-severity-ml/tree"
)

// RandomForestClassifier trains NEstimators decision trees on bootstrap
// samples and aggregates their predictions. Exported fields keep the fitted
// model gob-encodable for the artifact store.
type RandomForestClassifier struct {
	// Hyperparameters
	NEstimators     int
	Criterion       string // "gini" or "entropy"
	MaxDepth        int    // 0 means no limit
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 picks sqrt(d) per split
	Bootstrap       bool
	Seed            int64

	// Fitted state
	Trees     []*tree.DecisionTreeClassifier
	Classes   []int
	NFeatures int
}

// ForestOption configures a RandomForestClassifier.
type ForestOption func(*RandomForestClassifier)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) ForestOption {
	return func(rf *RandomForestClassifier) { rf.NEstimators = n }
}

// WithForestCriterion selects the split criterion for all trees.
func WithForestCriterion(c string) ForestOption {
	return func(rf *RandomForestClassifier) { rf.Criterion = c }
}

// WithForestMaxDepth limits tree depth; 0 means unlimited.
func WithForestMaxDepth(d int) ForestOption {
	return func(rf *RandomForestClassifier) { rf.MaxDepth = d }
}

// WithForestMinSamplesSplit sets the minimum node size eligible for a split.
func WithForestMinSamplesSplit(n int) ForestOption {
	return func(rf *RandomForestClassifier) { rf.MinSamplesSplit = n }
}

// WithForestMinSamplesLeaf sets the minimum child size of a split.
func WithForestMinSamplesLeaf(n int) ForestOption {
	return func(rf *RandomForestClassifier) { rf.MinSamplesLeaf = n }
}

// WithForestMaxFeatures sets the per-split feature sample size; 0 uses
// sqrt(d).
func WithForestMaxFeatures(k int) ForestOption {
	return func(rf *RandomForestClassifier) { rf.MaxFeatures = k }
}

// WithForestBootstrap toggles bootstrap sampling.
func WithForestBootstrap(b bool) ForestOption {
	return func(rf *RandomForestClassifier) { rf.Bootstrap = b }
}

// WithForestSeed sets the seed shared by bootstrap and feature sampling.
func WithForestSeed(seed int64) ForestOption {
	return func(rf *RandomForestClassifier) { rf.Seed = seed }
}

// NewRandomForestClassifier creates a forest with the reference defaults:
// 100 gini trees, unlimited depth, bootstrap on.
func NewRandomForestClassifier(opts ...ForestOption) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		NEstimators:     100,
		Criterion:       "gini",
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Bootstrap:       true,
		Seed:            42,
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

// Clone returns an unfitted forest with the same hyperparameters.
func (rf *RandomForestClassifier) Clone() *RandomForestClassifier {
	return &RandomForestClassifier{
		NEstimators:     rf.NEstimators,
		Criterion:       rf.Criterion,
		MaxDepth:        rf.MaxDepth,
		MinSamplesSplit: rf.MinSamplesSplit,
		MinSamplesLeaf:  rf.MinSamplesLeaf,
		MaxFeatures:     rf.MaxFeatures,
		Bootstrap:       rf.Bootstrap,
		Seed:            rf.Seed,
	}
}

// IsFitted reports whether the forest has been trained.
func (rf *RandomForestClassifier) IsFitted() bool {
	return len(rf.Trees) > 0
}

// Fit trains the forest. Trees grow concurrently, one worker per CPU.
func (rf *RandomForestClassifier) Fit(X mat.Matrix, y []int) error {
	n, d := X.Dims()
	if n == 0 || d == 0 {
		return errors.NewModelError("RandomForestClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	if len(y) != n {
		return errors.NewDimensionError("RandomForestClassifier.Fit", n, len(y), 0)
	}
	if rf.NEstimators <= 0 {
		return errors.NewValidationError("n_estimators", "must be positive", rf.NEstimators)
	}

	rf.Classes = distinctSorted(y)
	rf.NFeatures = d

	maxFeatures := rf.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Max(1, math.Round(math.Sqrt(float64(d)))))
	}

	rf.Trees = make([]*tree.DecisionTreeClassifier, rf.NEstimators)
	errs := make([]error, rf.NEstimators)

	workers := runtime.GOMAXPROCS(0)
	if workers > rf.NEstimators {
		workers = rf.NEstimators
	}
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				errs[i] = rf.fitTree(i, X, y, n, maxFeatures)
			}
		}()
	}
	for i := 0; i < rf.NEstimators; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			rf.Trees = nil
			return err
		}
	}
	return nil
}

// fitTree draws the i-th bootstrap sample and grows one tree on it.
// Each tree gets its own deterministic seed so that Fit is reproducible
// regardless of worker scheduling.
func (rf *RandomForestClassifier) fitTree(i int, X mat.Matrix, y []int, n, maxFeatures int) error {
	treeSeed := rf.Seed + int64(i)
	rng := rand.New(rand.NewPCG(uint64(treeSeed), uint64(treeSeed)+1))

	sampleX := X
	sampleY := y
	if rf.Bootstrap {
		_, d := X.Dims()
		boot := mat.NewDense(n, d, nil)
		bootY := make([]int, n)
		row := make([]float64, d)
		for r := 0; r < n; r++ {
			src := rng.IntN(n)
			for j := 0; j < d; j++ {
				row[j] = X.At(src, j)
			}
			boot.SetRow(r, row)
			bootY[r] = y[src]
		}
		sampleX = boot
		sampleY = bootY
	}

	t := tree.NewDecisionTreeClassifier(
		tree.WithCriterion(rf.Criterion),
		tree.WithMaxDepth(rf.MaxDepth),
		tree.WithMinSamplesSplit(rf.MinSamplesSplit),
		tree.WithMinSamplesLeaf(rf.MinSamplesLeaf),
		tree.WithMaxFeatures(maxFeatures),
		tree.WithSeed(treeSeed),
		tree.WithClasses(rf.Classes),
	)
	if err := t.Fit(sampleX, sampleY); err != nil {
		return err
	}
	rf.Trees[i] = t
	return nil
}

// PredictProba averages per-tree class probabilities. Each output row sums
// to one.
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if !rf.IsFitted() {
		return nil, errors.NewNotFittedError("RandomForestClassifier", "PredictProba")
	}
	n, d := X.Dims()
	if d != rf.NFeatures {
		return nil, errors.NewDimensionError("RandomForestClassifier.PredictProba", rf.NFeatures, d, 1)
	}

	sum := mat.NewDense(n, len(rf.Classes), nil)
	for _, t := range rf.Trees {
		proba, err := t.PredictProba(X)
		if err != nil {
			return nil, err
		}
		sum.Add(sum, proba)
	}
	sum.Scale(1/float64(len(rf.Trees)), sum)
	return sum, nil
}

// Predict returns the class with the highest averaged probability for each
// row of X.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) ([]int, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	n, c := proba.Dims()
	out := make([]int, n)
	for i := 0; i < n; i++ {
		best, bestP := 0, proba.At(i, 0)
		for j := 1; j < c; j++ {
			if p := proba.At(i, j); p > bestP {
				best, bestP = j, p
			}
		}
		out[i] = rf.Classes[best]
	}
	return out, nil
}

// PredictOne classifies a single sample, returning the label and the full
// probability vector aligned with Classes.
func (rf *RandomForestClassifier) PredictOne(features []float64) (int, []float64, error) {
	x := mat.NewDense(1, len(features), append([]float64(nil), features...))
	proba, err := rf.PredictProba(x)
	if err != nil {
		return 0, nil, err
	}
	best, bestP := 0, proba.At(0, 0)
	probs := make([]float64, len(rf.Classes))
	for j := range rf.Classes {
		probs[j] = proba.At(0, j)
		if probs[j] > bestP {
			best, bestP = j, probs[j]
		}
	}
	return rf.Classes[best], probs, nil
}

// Score returns the accuracy of the forest on X against y.
func (rf *RandomForestClassifier) Score(X mat.Matrix, y []int) (float64, error) {
	preds, err := rf.Predict(X)
	if err != nil {
		return 0, err
	}
	if len(preds) != len(y) {
		return 0, errors.NewDimensionError("RandomForestClassifier.Score", len(y), len(preds), 0)
	}
	correct := 0
	for i := range y {
		if preds[i] == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(y)), nil
}

// FeatureImportances averages the normalised impurity-decrease importances
// of all trees; the result sums to one.
func (rf *RandomForestClassifier) FeatureImportances() ([]float64, error) {
	if !rf.IsFitted() {
		return nil, errors.NewNotFittedError("RandomForestClassifier", "FeatureImportances")
	}
	out := make([]float64, rf.NFeatures)
	for _, t := range rf.Trees {
		imp, err := t.FeatureImportances()
		if err != nil {
			return nil, err
		}
		for j, v := range imp {
			out[j] += v
		}
	}
	total := 0.0
	for _, v := range out {
		total += v
	}
	if total > 0 {
		for j := range out {
			out[j] /= total
		}
	}
	return out, nil
}

func distinctSorted(y []int) []int {
	seen := make(map[int]struct{})
	out := make([]int, 0, 8)
	for _, label := range y {
		if _, ok := seen[label]; !ok {
			seen[label] = struct{}{}
			out = append(out, label)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
