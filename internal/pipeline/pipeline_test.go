package pipeline

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhanuswaroop1247/keratoconus-severity-ml/dataset"
	"github.com/bhanuswaroop1247/keratoconus-severity-ml/modelselection"
)

// runTestPipeline runs the full pipeline into a temp dir with a reduced
// cohort and grid so the test stays fast.
func runTestPipeline(t *testing.T) (*Runner, Paths) {
	t.Helper()
	paths := DefaultPaths(t.TempDir())
	r := NewRunner(
		WithPaths(paths),
		WithSamplesPerClass(40),
		WithSeed(42),
		WithNumFolds(3),
		WithGrid(modelselection.ParamGrid{
			NEstimators:     []int{25, 50},
			MaxDepth:        []int{0},
			MinSamplesSplit: []int{2},
		}),
	)
	require.NoError(t, r.Run(context.Background()))
	return r, paths
}

func TestPipelineProducesAllArtifacts(t *testing.T) {
	_, paths := runTestPipeline(t)

	for _, p := range []string{
		paths.RawCSV,
		paths.PreprocessedCSV,
		paths.SelectedCSV,
		paths.ModelGob,
		paths.CVResultsCSV,
		paths.MetricsCSV,
		paths.PairPlotPNG,
		paths.ConfusionPNG,
	} {
		info, err := os.Stat(p)
		require.NoError(t, err, p)
		assert.Greater(t, info.Size(), int64(0), p)
	}

	raw, err := dataset.ReadCSV(paths.RawCSV)
	require.NoError(t, err)
	assert.Equal(t, 200, raw.NumSamples())
	assert.Equal(t, 3, raw.NumFeatures())
	for _, label := range raw.Y {
		assert.GreaterOrEqual(t, label, 0)
		assert.Less(t, label, dataset.NumStages)
	}

	selected, err := dataset.ReadCSV(paths.SelectedCSV)
	require.NoError(t, err)
	assert.ElementsMatch(t, dataset.DefaultFeatureNames(), selected.FeatureNames)
}

func TestPipelineArtifactClassifiesClinicalCases(t *testing.T) {
	r, paths := runTestPipeline(t)

	artifact, err := LoadArtifact(paths.ModelGob)
	require.NoError(t, err)
	assert.Equal(t, r.RunID, artifact.RunID)
	assert.Len(t, artifact.FeatureNames, 3)
	assert.False(t, artifact.TrainedAt.IsZero())

	// The two documented reference vectors must stage correctly; the
	// model is trained well inside both stages' distributions.
	normal, probas, err := artifact.Predict(map[string]float64{
		dataset.FeatureRmB:      6.4,
		dataset.FeatureRmF:      7.7,
		dataset.FeaturePachyMin: 518,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, normal)
	sum := 0.0
	for _, p := range probas {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	severe, _, err := artifact.Predict(map[string]float64{
		dataset.FeatureRmB:      4.6,
		dataset.FeatureRmF:      6.0,
		dataset.FeaturePachyMin: 395,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, severe)

	_, _, err = artifact.Predict(map[string]float64{dataset.FeatureRmB: 6.0})
	assert.Error(t, err, "missing features must be rejected")
}

func TestPipelineCSVOutputs(t *testing.T) {
	_, paths := runTestPipeline(t)

	cvRows := readCSVFile(t, paths.CVResultsCSV)
	require.NotEmpty(t, cvRows)
	assert.Equal(t,
		[]string{"n_estimators", "max_depth", "min_samples_split", "mean_accuracy", "std_accuracy"},
		cvRows[0])
	assert.Len(t, cvRows, 3, "header plus one row per grid combination")

	metricRows := readCSVFile(t, paths.MetricsCSV)
	require.Len(t, metricRows, 2)
	assert.Equal(t,
		[]string{"accuracy", "precision_weighted", "recall_weighted", "f1_weighted", "f2_weighted"},
		metricRows[0])
	assert.Len(t, metricRows[1], 5)
}

func TestPipelineRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(WithPaths(DefaultPaths(t.TempDir())))
	err := r.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadArtifactMissingFile(t *testing.T) {
	_, err := LoadArtifact(filepath.Join(t.TempDir(), "nope.gob"))
	assert.Error(t, err)
}

func readCSVFile(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}
