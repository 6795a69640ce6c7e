package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/bhanuswaroop1247/keratoconus-severity-ml/dataset"
)

func TestGenerateShapeAndLabels(t *testing.T) {
	g := NewGenerator(WithSamplesPerClass(40), WithSeed(42))
	table, err := g.Generate()
	require.NoError(t, err)

	assert.Equal(t, 200, table.NumSamples())
	assert.Equal(t, 3, table.NumFeatures())
	assert.Equal(t, dataset.DefaultFeatureNames(), table.FeatureNames)

	counts := table.ClassCounts()
	require.Len(t, counts, dataset.NumStages)
	for stage := 0; stage < dataset.NumStages; stage++ {
		assert.Equal(t, 40, counts[stage], "stage %d", stage)
	}
}

func TestGenerateIsReproducible(t *testing.T) {
	a, err := NewGenerator(WithSamplesPerClass(30), WithSeed(7)).Generate()
	require.NoError(t, err)
	b, err := NewGenerator(WithSamplesPerClass(30), WithSeed(7)).Generate()
	require.NoError(t, err)

	assert.True(t, mat.Equal(a.X, b.X))
	assert.Equal(t, a.Y, b.Y)

	c, err := NewGenerator(WithSamplesPerClass(30), WithSeed(8)).Generate()
	require.NoError(t, err)
	assert.False(t, mat.Equal(a.X, c.X), "different seeds should differ")
}

func TestGenerateClinicallyPlausibleRanges(t *testing.T) {
	table, err := NewGenerator(WithSamplesPerClass(130), WithSeed(42)).Generate()
	require.NoError(t, err)

	rmB, err := table.FeatureColumn(dataset.FeatureRmB)
	require.NoError(t, err)
	rmF, err := table.FeatureColumn(dataset.FeatureRmF)
	require.NoError(t, err)
	pachy, err := table.FeatureColumn(dataset.FeaturePachyMin)
	require.NoError(t, err)

	for i := range rmB {
		assert.Greater(t, rmB[i], 3.0)
		assert.Less(t, rmB[i], 9.0)
		assert.Greater(t, rmF[i], 4.5)
		assert.Less(t, rmF[i], 10.0)
		assert.Greater(t, pachy[i], 250.0)
		assert.Less(t, pachy[i], 650.0)
	}
}

func TestStageMeansMonotone(t *testing.T) {
	// Severity progression: both radii shrink and the cornea thins.
	prevRmB, prevRmF, prevPachy := StageMeans(0)
	for stage := 1; stage < dataset.NumStages; stage++ {
		rmB, rmF, pachy := StageMeans(stage)
		assert.Less(t, rmB, prevRmB)
		assert.Less(t, rmF, prevRmF)
		assert.Less(t, pachy, prevPachy)
		prevRmB, prevRmF, prevPachy = rmB, rmF, pachy
	}
}

func TestGenerateRejectsBadConfig(t *testing.T) {
	_, err := NewGenerator(WithSamplesPerClass(0)).Generate()
	assert.Error(t, err)
}
