// Package tree implements a CART-style decision tree classifier over gonum
// matrices. It is the base learner for the random forest in package
// ensemble.
package tree

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/bhanuswaroop1247/keratoconus-severity-ml/pkg/errors"
)

// DecisionTreeClassifier is a CART classifier with axis-aligned numeric
// splits. Exported hyperparameter and state fields keep the model
// gob-encodable; configure through the functional options.
type DecisionTreeClassifier struct {
	// Hyperparameters
	Criterion       string // "gini" (default) or "entropy"
	MaxDepth        int    // 0 means no depth limit
	MinSamplesSplit int    // minimum samples to attempt a split
	MinSamplesLeaf  int    // minimum samples required in each child
	MaxFeatures     int    // 0 means consider all features at each split
	Seed            int64  // seed for feature subsampling

	// Fitted state
	Root           *Node
	Classes        []int     // class labels in probability-column order
	NFeatures      int       // feature count seen during Fit
	ImportanceSums []float64 // accumulated weighted impurity decrease per feature
}

// Node is a tree node. Leaf nodes carry the class distribution of their
// training samples.
type Node struct {
	Leaf      bool
	Feature   int
	Threshold float64 // x[Feature] <= Threshold goes left
	Left      *Node
	Right     *Node

	N         int
	Probas    []float64 // aligned with DecisionTreeClassifier.Classes
	PredIndex int       // index into Classes of the majority class
}

// Option configures a DecisionTreeClassifier.
type Option func(*DecisionTreeClassifier)

// WithCriterion selects the impurity criterion, "gini" or "entropy".
func WithCriterion(c string) Option {
	return func(t *DecisionTreeClassifier) { t.Criterion = c }
}

// WithMaxDepth limits tree depth; 0 means unlimited.
func WithMaxDepth(d int) Option {
	return func(t *DecisionTreeClassifier) { t.MaxDepth = d }
}

// WithMinSamplesSplit sets the minimum node size eligible for splitting.
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum samples required in each child.
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesLeaf = n }
}

// WithMaxFeatures sets how many features are sampled per split; 0 uses all.
func WithMaxFeatures(k int) Option {
	return func(t *DecisionTreeClassifier) { t.MaxFeatures = k }
}

// WithSeed sets the seed for feature subsampling.
func WithSeed(seed int64) Option {
	return func(t *DecisionTreeClassifier) { t.Seed = seed }
}

// WithClasses fixes the class label set (and probability-column order)
// before fitting. The random forest uses this so that every bootstrap tree
// shares the same columns even when a bootstrap sample misses a class.
func WithClasses(classes []int) Option {
	return func(t *DecisionTreeClassifier) {
		t.Classes = append([]int(nil), classes...)
	}
}

// NewDecisionTreeClassifier creates a classifier with the conventional
// defaults.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	t := &DecisionTreeClassifier{
		Criterion:       "gini",
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Fit grows the tree on X (n×d) and integer labels y.
func (t *DecisionTreeClassifier) Fit(X mat.Matrix, y []int) error {
	n, d := X.Dims()
	if n == 0 || d == 0 {
		return errors.NewModelError("DecisionTreeClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	if len(y) != n {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", n, len(y), 0)
	}
	if t.Criterion != "gini" && t.Criterion != "entropy" {
		return errors.NewValidationError("criterion", "must be \"gini\" or \"entropy\"", t.Criterion)
	}

	if t.Classes == nil {
		t.Classes = distinctLabels(y)
	}
	classIndex := make(map[int]int, len(t.Classes))
	for i, label := range t.Classes {
		classIndex[label] = i
	}
	for _, label := range y {
		if _, ok := classIndex[label]; !ok {
			return errors.NewValidationError("y", "label outside the declared class set", label)
		}
	}

	t.NFeatures = d
	t.ImportanceSums = make([]float64, d)

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	b := &builder{
		tree:       t,
		x:          X,
		y:          y,
		classIndex: classIndex,
		total:      float64(n),
		rng:        rand.New(rand.NewPCG(uint64(t.Seed), uint64(t.Seed)+1)),
	}
	t.Root = b.grow(idx, 0)
	return nil
}

// Predict returns the majority-class label for each row of X.
func (t *DecisionTreeClassifier) Predict(X mat.Matrix) ([]int, error) {
	proba, err := t.PredictProba(X)
	if err != nil {
		return nil, err
	}
	n, _ := proba.Dims()
	out := make([]int, n)
	for i := 0; i < n; i++ {
		best, bestP := 0, proba.At(i, 0)
		for j := 1; j < len(t.Classes); j++ {
			if p := proba.At(i, j); p > bestP {
				best, bestP = j, p
			}
		}
		out[i] = t.Classes[best]
	}
	return out, nil
}

// PredictProba returns per-class probabilities, columns aligned with
// Classes.
func (t *DecisionTreeClassifier) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if t.Root == nil {
		return nil, errors.NewNotFittedError("DecisionTreeClassifier", "PredictProba")
	}
	n, d := X.Dims()
	if d != t.NFeatures {
		return nil, errors.NewDimensionError("DecisionTreeClassifier.PredictProba", t.NFeatures, d, 1)
	}

	out := mat.NewDense(n, len(t.Classes), nil)
	row := make([]float64, d)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			row[j] = X.At(i, j)
		}
		leaf := t.Root.descend(row)
		out.SetRow(i, leaf.Probas)
	}
	return out, nil
}

// FeatureImportances returns the impurity-decrease importance of each
// feature, normalised to sum to one.
func (t *DecisionTreeClassifier) FeatureImportances() ([]float64, error) {
	if t.Root == nil {
		return nil, errors.NewNotFittedError("DecisionTreeClassifier", "FeatureImportances")
	}
	out := make([]float64, len(t.ImportanceSums))
	copy(out, t.ImportanceSums)
	total := 0.0
	for _, v := range out {
		total += v
	}
	if total > 0 {
		for i := range out {
			out[i] /= total
		}
	}
	return out, nil
}

func (n *Node) descend(row []float64) *Node {
	node := n
	for !node.Leaf {
		if row[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node
}

// builder carries the shared fitting state while the tree grows.
type builder struct {
	tree       *DecisionTreeClassifier
	x          mat.Matrix
	y          []int
	classIndex map[int]int
	total      float64
	rng        *rand.Rand
}

func (b *builder) grow(idx []int, depth int) *Node {
	t := b.tree
	counts := b.countClasses(idx)
	node := b.leaf(idx, counts)

	impurity := b.impurity(counts, len(idx))
	if impurity == 0 || len(idx) < t.MinSamplesSplit {
		return node
	}
	if t.MaxDepth > 0 && depth >= t.MaxDepth {
		return node
	}

	feature, threshold, decrease, ok := b.bestSplit(idx, counts, impurity)
	if !ok {
		return node
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if b.x.At(i, feature) <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	t.ImportanceSums[feature] += float64(len(idx)) / b.total * decrease

	node.Leaf = false
	node.Feature = feature
	node.Threshold = threshold
	node.Left = b.grow(left, depth+1)
	node.Right = b.grow(right, depth+1)
	return node
}

func (b *builder) leaf(idx []int, counts []int) *Node {
	probas := make([]float64, len(counts))
	best := 0
	for c, count := range counts {
		probas[c] = float64(count) / float64(len(idx))
		if count > counts[best] {
			best = c
		}
	}
	return &Node{
		Leaf:      true,
		N:         len(idx),
		Probas:    probas,
		PredIndex: best,
	}
}

func (b *builder) countClasses(idx []int) []int {
	counts := make([]int, len(b.tree.Classes))
	for _, i := range idx {
		counts[b.classIndex[b.y[i]]]++
	}
	return counts
}

func (b *builder) impurity(counts []int, n int) float64 {
	if b.tree.Criterion == "entropy" {
		return entropyFromCounts(counts, n)
	}
	return giniFromCounts(counts, n)
}

// bestSplit scans candidate features for the threshold with the largest
// impurity decrease, honouring MinSamplesLeaf.
func (b *builder) bestSplit(idx []int, parentCounts []int, parentImpurity float64) (feature int, threshold, decrease float64, ok bool) {
	t := b.tree
	features := b.candidateFeatures()
	n := len(idx)

	type valueLabel struct {
		value float64
		class int
	}
	sorted := make([]valueLabel, n)
	leftCounts := make([]int, len(parentCounts))
	rightCounts := make([]int, len(parentCounts))

	bestDecrease := 0.0
	found := false
	for _, f := range features {
		for i, sample := range idx {
			sorted[i] = valueLabel{value: b.x.At(sample, f), class: b.classIndex[b.y[sample]]}
		}
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].value < sorted[j].value })

		for c := range leftCounts {
			leftCounts[c] = 0
			rightCounts[c] = parentCounts[c]
		}

		for i := 0; i < n-1; i++ {
			leftCounts[sorted[i].class]++
			rightCounts[sorted[i].class]--

			if sorted[i].value == sorted[i+1].value {
				continue
			}
			nl, nr := i+1, n-i-1
			if nl < t.MinSamplesLeaf || nr < t.MinSamplesLeaf {
				continue
			}

			weighted := float64(nl)/float64(n)*b.impurity(leftCounts, nl) +
				float64(nr)/float64(n)*b.impurity(rightCounts, nr)
			d := parentImpurity - weighted
			if d > bestDecrease {
				bestDecrease = d
				feature = f
				threshold = (sorted[i].value + sorted[i+1].value) / 2
				found = true
			}
		}
	}

	if !found || bestDecrease <= 0 {
		return 0, 0, 0, false
	}
	return feature, threshold, bestDecrease, true
}

// candidateFeatures returns the feature indices considered at a split:
// either all of them, or a random subset of size MaxFeatures.
func (b *builder) candidateFeatures() []int {
	d := b.tree.NFeatures
	k := b.tree.MaxFeatures
	all := make([]int, d)
	for i := range all {
		all[i] = i
	}
	if k <= 0 || k >= d {
		return all
	}
	b.rng.Shuffle(d, func(i, j int) {
		all[i], all[j] = all[j], all[i]
	})
	return all[:k]
}

func giniFromCounts(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		sum += p * p
	}
	return 1 - sum
}

func entropyFromCounts(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	e := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(n)
		e -= p * math.Log2(p)
	}
	return e
}

func distinctLabels(y []int) []int {
	seen := make(map[int]struct{})
	out := make([]int, 0, 8)
	for _, label := range y {
		if _, ok := seen[label]; !ok {
			seen[label] = struct{}{}
			out = append(out, label)
		}
	}
	sort.Ints(out)
	return out
}
