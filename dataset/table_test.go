package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func sampleTable(t *testing.T) *Table {
	t.Helper()
	x := mat.NewDense(4, 3, []float64{
		6.4, 7.7, 518,
		6.0, 7.3, 481,
		5.1, 6.7, 391,
		4.6, 6.0, 395,
	})
	tbl, err := New(DefaultFeatureNames(), x, []int{0, 1, 3, 4})
	require.NoError(t, err)
	return tbl
}

func TestNewValidation(t *testing.T) {
	x := mat.NewDense(2, 3, nil)

	_, err := New([]string{"a"}, x, []int{0, 1})
	assert.Error(t, err, "feature name count must match columns")

	_, err = New(DefaultFeatureNames(), x, []int{0})
	assert.Error(t, err, "label count must match rows")
}

func TestClassCountsAndClasses(t *testing.T) {
	tbl := sampleTable(t)
	counts := tbl.ClassCounts()
	assert.Equal(t, map[int]int{0: 1, 1: 1, 3: 1, 4: 1}, counts)
	assert.Equal(t, []int{0, 1, 3, 4}, tbl.Classes())
}

func TestShuffleIsDeterministicPermutation(t *testing.T) {
	tbl := sampleTable(t)

	a := tbl.Shuffle(42)
	b := tbl.Shuffle(42)
	assert.True(t, mat.Equal(a.X, b.X), "same seed must give same order")
	assert.Equal(t, a.Y, b.Y)

	// Row multiset is preserved: every original row appears once.
	assert.Equal(t, tbl.ClassCounts(), a.ClassCounts())
}

func TestSelectFeatures(t *testing.T) {
	tbl := sampleTable(t)

	sub, err := tbl.SelectFeatures([]string{FeaturePachyMin, FeatureRmB})
	require.NoError(t, err)
	assert.Equal(t, []string{FeaturePachyMin, FeatureRmB}, sub.FeatureNames)
	assert.Equal(t, 2, sub.NumFeatures())
	assert.InDelta(t, 518, sub.X.At(0, 0), 1e-12)
	assert.InDelta(t, 6.4, sub.X.At(0, 1), 1e-12)

	_, err = tbl.SelectFeatures([]string{"No_Such_Column"})
	assert.Error(t, err)
}

func TestCSVRoundTrip(t *testing.T) {
	tbl := sampleTable(t)
	path := filepath.Join(t.TempDir(), "nested", "out.csv")

	require.NoError(t, tbl.WriteCSV(path))

	loaded, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, tbl.FeatureNames, loaded.FeatureNames)
	assert.Equal(t, tbl.Y, loaded.Y)
	assert.True(t, mat.EqualApprox(tbl.X, loaded.X, 1e-12))
}

func TestReadCSVMissingFile(t *testing.T) {
	_, err := ReadCSV(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}

func TestReadCSVRejectsMissingLabelColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("Rm_B,Rm_F\n6.4,7.7\n"), 0o644))

	_, err := ReadCSV(path)
	assert.Error(t, err)
}

func TestReadCSVLabelParsing(t *testing.T) {
	write := func(label string) string {
		path := filepath.Join(t.TempDir(), "labels.csv")
		content := "Severity,Rm_B,Rm_F,Pachy_Min\n" + label + ",6.4,7.7,518\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	// Integers and zero-fraction floats are accepted.
	for _, label := range []string{"2", "2.0"} {
		loaded, err := ReadCSV(write(label))
		require.NoError(t, err, "label %q", label)
		assert.Equal(t, []int{2}, loaded.Y)
	}

	// A fractional label must not be silently truncated.
	_, err := ReadCSV(write("0.9"))
	assert.Error(t, err)
}
