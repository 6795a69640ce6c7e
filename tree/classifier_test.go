package tree

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestFitPredictSeparable(t *testing.T) {
	// Two well separated clusters.
	X := mat.NewDense(8, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
		3, 3,
		3, 4,
		4, 3,
		4, 4,
	})
	y := []int{0, 0, 0, 0, 1, 1, 1, 1}

	dt := NewDecisionTreeClassifier(
		WithCriterion("gini"),
		WithMaxDepth(5),
	)
	require.NoError(t, dt.Fit(X, y))

	preds, err := dt.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, y, preds)

	testPreds, err := dt.Predict(mat.NewDense(2, 2, []float64{
		0.5, 0.5,
		3.5, 3.5,
	}))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, testPreds)
}

func TestPredictProbaRowsSumToOne(t *testing.T) {
	X := mat.NewDense(6, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		5, 5,
		5, 6,
		6, 5,
	})
	y := []int{0, 0, 1, 2, 2, 2}

	dt := NewDecisionTreeClassifier(WithMaxDepth(2))
	require.NoError(t, dt.Fit(X, y))

	proba, err := dt.PredictProba(X)
	require.NoError(t, err)
	r, c := proba.Dims()
	assert.Equal(t, 6, r)
	assert.Equal(t, 3, c)
	for i := 0; i < r; i++ {
		sum := 0.0
		for j := 0; j < c; j++ {
			p := proba.At(i, j)
			assert.GreaterOrEqual(t, p, 0.0)
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "row %d", i)
	}
}

func TestEntropyCriterion(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 10, 11})
	y := []int{0, 0, 1, 1}

	dt := NewDecisionTreeClassifier(WithCriterion("entropy"))
	require.NoError(t, dt.Fit(X, y))

	preds, err := dt.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, y, preds)
}

func TestFeatureImportancesSumToOne(t *testing.T) {
	// Feature 0 carries all the signal; feature 1 is constant.
	X := mat.NewDense(6, 2, []float64{
		0, 7,
		1, 7,
		2, 7,
		10, 7,
		11, 7,
		12, 7,
	})
	y := []int{0, 0, 0, 1, 1, 1}

	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))

	imp, err := dt.FeatureImportances()
	require.NoError(t, err)
	require.Len(t, imp, 2)
	assert.InDelta(t, 1.0, imp[0]+imp[1], 1e-9)
	assert.Greater(t, imp[0], imp[1])
	assert.InDelta(t, 0.0, imp[1], 1e-12, "constant feature gets no importance")
}

func TestWithClassesFixesColumnOrder(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := []int{2, 2, 2} // bootstrap sample missing most classes

	dt := NewDecisionTreeClassifier(WithClasses([]int{0, 1, 2, 3, 4}))
	require.NoError(t, dt.Fit(X, y))

	proba, err := dt.PredictProba(mat.NewDense(1, 1, []float64{2}))
	require.NoError(t, err)
	_, c := proba.Dims()
	assert.Equal(t, 5, c)
	assert.InDelta(t, 1.0, proba.At(0, 2), 1e-12)
}

func TestFitRejectsUnknownLabel(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{1, 2})
	dt := NewDecisionTreeClassifier(WithClasses([]int{0, 1}))
	err := dt.Fit(X, []int{0, 9})
	assert.Error(t, err)
}

func TestPredictBeforeFit(t *testing.T) {
	dt := NewDecisionTreeClassifier()
	_, err := dt.Predict(mat.NewDense(1, 1, []float64{1}))
	assert.Error(t, err)
}

func TestMinSamplesLeafRespected(t *testing.T) {
	X := mat.NewDense(10, 1, nil)
	y := make([]int, 10)
	for i := 0; i < 10; i++ {
		X.Set(i, 0, float64(i))
		if i >= 5 {
			y[i] = 1
		}
	}

	dt := NewDecisionTreeClassifier(WithMinSamplesLeaf(3))
	require.NoError(t, dt.Fit(X, y))

	var check func(n *Node)
	check = func(n *Node) {
		if n.Leaf {
			assert.GreaterOrEqual(t, n.N, 3)
			return
		}
		check(n.Left)
		check(n.Right)
	}
	check(dt.Root)
}

func TestMaxDepthLimitsTree(t *testing.T) {
	X := mat.NewDense(8, 1, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	y := []int{0, 1, 0, 1, 0, 1, 0, 1} // forces a deep tree without a limit

	dt := NewDecisionTreeClassifier(WithMaxDepth(2))
	require.NoError(t, dt.Fit(X, y))

	depth := func(n *Node) int {
		var walk func(n *Node) int
		walk = func(n *Node) int {
			if n.Leaf {
				return 0
			}
			l, r := walk(n.Left), walk(n.Right)
			return 1 + int(math.Max(float64(l), float64(r)))
		}
		return walk(n)
	}
	assert.LessOrEqual(t, depth(dt.Root), 2)
}
