package ensemble

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/bhanuswaroop1247/keratoconus-severity-ml/core/model"
	"github.com/bhanuswaroop1247/keratoconus-severity-ml/synth"
)

func trainingData(t *testing.T) (*mat.Dense, []int) {
	t.Helper()
	table, err := synth.NewGenerator(synth.WithSamplesPerClass(40), synth.WithSeed(42)).Generate()
	require.NoError(t, err)
	return table.X, table.Y
}

func TestForestFitPredict(t *testing.T) {
	X, y := trainingData(t)

	rf := NewRandomForestClassifier(WithNEstimators(50), WithForestSeed(42))
	require.NoError(t, rf.Fit(X, y))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, rf.Classes)

	acc, err := rf.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, acc, 0.9, "training accuracy on separable synthetic data")
}

func TestForestPredictProbaSumsToOne(t *testing.T) {
	X, y := trainingData(t)

	rf := NewRandomForestClassifier(WithNEstimators(25), WithForestSeed(7))
	require.NoError(t, rf.Fit(X, y))

	proba, err := rf.PredictProba(X)
	require.NoError(t, err)
	r, c := proba.Dims()
	assert.Equal(t, 5, c)
	for i := 0; i < r; i++ {
		sum := 0.0
		for j := 0; j < c; j++ {
			p := proba.At(i, j)
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, 1.0)
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "row %d", i)
	}
}

func TestForestFitIsReproducible(t *testing.T) {
	X, y := trainingData(t)

	a := NewRandomForestClassifier(WithNEstimators(20), WithForestSeed(11))
	require.NoError(t, a.Fit(X, y))
	b := NewRandomForestClassifier(WithNEstimators(20), WithForestSeed(11))
	require.NoError(t, b.Fit(X, y))

	pa, err := a.PredictProba(X)
	require.NoError(t, err)
	pb, err := b.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(pa, pb, 1e-12), "same seed must give the same forest")
}

func TestForestFeatureImportances(t *testing.T) {
	X, y := trainingData(t)

	rf := NewRandomForestClassifier(WithNEstimators(30), WithForestSeed(42))
	require.NoError(t, rf.Fit(X, y))

	imp, err := rf.FeatureImportances()
	require.NoError(t, err)
	require.Len(t, imp, 3)
	total := 0.0
	for _, v := range imp {
		assert.GreaterOrEqual(t, v, 0.0)
		total += v
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestForestPredictOne(t *testing.T) {
	X, y := trainingData(t)

	rf := NewRandomForestClassifier(WithNEstimators(50), WithForestSeed(42))
	require.NoError(t, rf.Fit(X, y))

	// Clinical reference vectors from the documentation.
	label, probs, err := rf.PredictOne([]float64{6.4, 7.7, 518})
	require.NoError(t, err)
	assert.Equal(t, 0, label)
	require.Len(t, probs, 5)

	label, _, err = rf.PredictOne([]float64{4.6, 6.0, 395})
	require.NoError(t, err)
	assert.Equal(t, 4, label)
}

func TestForestGobRoundTrip(t *testing.T) {
	X, y := trainingData(t)

	rf := NewRandomForestClassifier(WithNEstimators(15), WithForestSeed(42))
	require.NoError(t, rf.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(rf, &buf))

	var loaded RandomForestClassifier
	require.NoError(t, model.LoadModelFromReader(&loaded, &buf))
	assert.True(t, loaded.IsFitted())

	want, err := rf.PredictProba(X)
	require.NoError(t, err)
	got, err := loaded.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-12))
}

func TestForestErrorPaths(t *testing.T) {
	rf := NewRandomForestClassifier()
	_, err := rf.Predict(mat.NewDense(1, 3, []float64{6.4, 7.7, 518}))
	assert.Error(t, err, "predict before fit")

	X, y := trainingData(t)
	require.NoError(t, rf.Fit(X, y))

	_, err = rf.Predict(mat.NewDense(1, 2, []float64{6.4, 7.7}))
	assert.Error(t, err, "feature count mismatch")

	bad := NewRandomForestClassifier(WithNEstimators(0))
	assert.Error(t, bad.Fit(X, y))
}
