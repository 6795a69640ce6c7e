package preprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/bhanuswaroop1247/keratoconus-severity-ml/dataset"
	"github.com/bhanuswaroop1247/keratoconus-severity-ml/synth"
)

func TestOutlierFilterPassesCleanData(t *testing.T) {
	table, err := synth.NewGenerator(synth.WithSamplesPerClass(20), synth.WithSeed(1)).Generate()
	require.NoError(t, err)

	filtered, removed, err := NewOutlierFilter(10).Apply(table)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	assert.Equal(t, table.NumSamples(), filtered.NumSamples())
}

func TestOutlierFilterRemovesGrossErrors(t *testing.T) {
	x := mat.NewDense(51, 3, nil)
	y := make([]int, 51)
	for i := 0; i < 50; i++ {
		x.SetRow(i, []float64{6.5 + 0.01*float64(i), 7.8, 520})
	}
	// A physically impossible pachymetry reading.
	x.SetRow(50, []float64{6.5, 7.8, 5200})

	table, err := dataset.New(dataset.DefaultFeatureNames(), x, y)
	require.NoError(t, err)

	filtered, removed, err := NewOutlierFilter(DefaultOutlierThreshold).Apply(table)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 50, filtered.NumSamples())

	pachy, err := filtered.FeatureColumn(dataset.FeaturePachyMin)
	require.NoError(t, err)
	for _, v := range pachy {
		assert.Less(t, v, 1000.0)
	}
}

func imbalancedTable(t *testing.T) *dataset.Table {
	t.Helper()
	// 8 rows of stage 0, 3 of stage 2.
	x := mat.NewDense(11, 3, nil)
	y := make([]int, 11)
	for i := 0; i < 8; i++ {
		x.SetRow(i, []float64{6.5 + 0.02*float64(i), 7.8 - 0.01*float64(i), 520 + float64(i)})
	}
	for i := 8; i < 11; i++ {
		x.SetRow(i, []float64{5.7 + 0.02*float64(i-8), 7.0, 450 + float64(i-8)})
		y[i] = 2
	}
	table, err := dataset.New(dataset.DefaultFeatureNames(), x, y)
	require.NoError(t, err)
	return table
}

func TestRandomOverSamplerBalances(t *testing.T) {
	table := imbalancedTable(t)

	balanced, err := NewRandomOverSampler(42).Resample(table)
	require.NoError(t, err)

	counts := balanced.ClassCounts()
	assert.Equal(t, 8, counts[0], "majority class must not change")
	assert.Equal(t, 8, counts[2], "minority raised to majority count")

	// The original rows survive untouched as a prefix.
	for i := 0; i < table.NumSamples(); i++ {
		assert.Equal(t, table.Y[i], balanced.Y[i])
		for j := 0; j < 3; j++ {
			assert.Equal(t, table.X.At(i, j), balanced.X.At(i, j))
		}
	}
}

func TestSMOTEInterpolatesWithinClass(t *testing.T) {
	table := imbalancedTable(t)

	balanced, err := NewSMOTE(42).Resample(table)
	require.NoError(t, err)

	counts := balanced.ClassCounts()
	assert.Equal(t, 8, counts[0])
	assert.Equal(t, 8, counts[2])

	// Synthetic rows lie within the bounding box of the minority class.
	for i := table.NumSamples(); i < balanced.NumSamples(); i++ {
		assert.Equal(t, 2, balanced.Y[i])
		assert.GreaterOrEqual(t, balanced.X.At(i, 0), 5.7)
		assert.LessOrEqual(t, balanced.X.At(i, 0), 5.74)
		assert.GreaterOrEqual(t, balanced.X.At(i, 2), 450.0)
		assert.LessOrEqual(t, balanced.X.At(i, 2), 452.0)
	}
}

func TestResampleBalancedIsNoOp(t *testing.T) {
	table, err := synth.NewGenerator(synth.WithSamplesPerClass(10), synth.WithSeed(3)).Generate()
	require.NoError(t, err)

	balanced, err := NewSMOTE(42).Resample(table)
	require.NoError(t, err)
	assert.Same(t, table, balanced, "already balanced data passes through")
}

func TestStandardScalerRoundTrip(t *testing.T) {
	x := mat.NewDense(4, 2, []float64{
		1, 100,
		2, 200,
		3, 300,
		4, 400,
	})

	scaler := NewStandardScalerDefault()
	scaled, err := scaler.FitTransform(x)
	require.NoError(t, err)

	// Column means ~0 after scaling.
	for j := 0; j < 2; j++ {
		sum := 0.0
		for i := 0; i < 4; i++ {
			sum += scaled.At(i, j)
		}
		assert.InDelta(t, 0, sum/4, 1e-12)
	}

	restored, err := scaler.InverseTransform(scaled)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(x, restored, 1e-9))
}

func TestStandardScalerRequiresFit(t *testing.T) {
	scaler := NewStandardScalerDefault()
	_, err := scaler.Transform(mat.NewDense(1, 2, []float64{1, 2}))
	assert.Error(t, err)
}
