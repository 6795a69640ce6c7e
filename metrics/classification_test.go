package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhanuswaroop1247/keratoconus-severity-ml/pkg/errors"
)

func TestAccuracy(t *testing.T) {
	acc, err := Accuracy([]int{0, 1, 2, 3, 4}, []int{0, 1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, 1.0, acc)

	acc, err = Accuracy([]int{0, 0, 1, 1}, []int{0, 1, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, 0.5, acc)

	_, err = Accuracy(nil, nil)
	assert.Error(t, err)

	_, err = Accuracy([]int{0, 1}, []int{0})
	assert.Error(t, err)
}

func TestConfusionMatrix(t *testing.T) {
	yTrue := []int{0, 0, 1, 1, 2, 2}
	yPred := []int{0, 1, 1, 1, 2, 0}

	cm, err := NewConfusionMatrix(yTrue, yPred)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2}, cm.Classes)
	assert.Equal(t, [][]int{
		{1, 1, 0},
		{0, 2, 0},
		{1, 0, 1},
	}, cm.Counts)
	assert.Equal(t, 2, cm.Support(0))
	assert.Equal(t, 2, cm.Support(1))
	assert.Equal(t, 2, cm.Support(2))
}

func TestConfusionMatrixIncludesPredictedOnlyClasses(t *testing.T) {
	cm, err := NewConfusionMatrix([]int{0, 0}, []int{0, 3})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3}, cm.Classes)
	assert.Equal(t, 0, cm.Support(1), "class 3 never appears as truth")
}

func TestWeightedScoresPerfectPrediction(t *testing.T) {
	yTrue := []int{0, 1, 2, 3, 4, 0, 1}
	p, err := PrecisionWeighted(yTrue, yTrue)
	require.NoError(t, err)
	r, err := RecallWeighted(yTrue, yTrue)
	require.NoError(t, err)
	f1, err := F1Weighted(yTrue, yTrue)
	require.NoError(t, err)
	fb, err := FBetaWeighted(yTrue, yTrue, 2)
	require.NoError(t, err)

	assert.Equal(t, 1.0, p)
	assert.Equal(t, 1.0, r)
	assert.Equal(t, 1.0, f1)
	assert.Equal(t, 1.0, fb)
}

func TestWeightedScoresHandComputed(t *testing.T) {
	// Class 0: tp=2 fp=1 fn=0, class 1: tp=1 fp=0 fn=1.
	yTrue := []int{0, 0, 1, 1}
	yPred := []int{0, 0, 0, 1}

	p, err := PrecisionWeighted(yTrue, yPred)
	require.NoError(t, err)
	// precision: class0 2/3, class1 1/1; weights 2/4 each.
	assert.InDelta(t, 0.5*(2.0/3.0)+0.5*1.0, p, 1e-12)

	r, err := RecallWeighted(yTrue, yPred)
	require.NoError(t, err)
	// recall: class0 2/2, class1 1/2.
	assert.InDelta(t, 0.5*1.0+0.5*0.5, r, 1e-12)
}

func TestFBetaFavoursRecall(t *testing.T) {
	// Class 1 carries three quarters of the support with recall 1/6, so
	// the recall-heavy F2 must sit below F1 after weighting.
	yTrue := []int{1, 1, 1, 1, 1, 1, 0, 0}
	yPred := []int{1, 0, 0, 0, 0, 0, 0, 0}

	f1, err := FBetaWeighted(yTrue, yPred, 1)
	require.NoError(t, err)
	// class 1: p=1, r=1/6, F1=2/7; class 0: p=2/7, r=1, F1=4/9.
	assert.InDelta(t, 0.75*(2.0/7.0)+0.25*(4.0/9.0), f1, 1e-12)

	f2, err := FBetaWeighted(yTrue, yPred, 2)
	require.NoError(t, err)
	// class 1: F2=1/5; class 0: F2=2/3.
	assert.InDelta(t, 0.75*(1.0/5.0)+0.25*(2.0/3.0), f2, 1e-12)

	assert.Less(t, f2, f1)

	_, err = FBetaWeighted(yTrue, yPred, 0)
	assert.Error(t, err)
}

func TestUndefinedMetricWarnsAndReturnsZero(t *testing.T) {
	var warned []error
	errors.SetWarningHandler(func(w error) { warned = append(warned, w) })
	defer errors.SetWarningHandler(nil)

	// Class 1 is never predicted, so its precision denominator is zero.
	yTrue := []int{0, 1, 1}
	yPred := []int{0, 0, 0}

	p, err := PrecisionWeighted(yTrue, yPred)
	require.NoError(t, err)
	// class0 precision 1/3 with weight 1/3, class1 precision 0.
	assert.InDelta(t, (1.0/3.0)/3.0, p, 1e-12)

	require.NotEmpty(t, warned)
	var umw *errors.UndefinedMetricWarning
	assert.ErrorAs(t, warned[0], &umw)
}

func TestClassificationReport(t *testing.T) {
	yTrue := []int{0, 0, 1, 1, 2, 2}
	yPred := []int{0, 1, 1, 1, 2, 0}

	rep, err := ClassificationReport(yTrue, yPred)
	require.NoError(t, err)

	assert.InDelta(t, 4.0/6.0, rep.Accuracy, 1e-12)
	require.Len(t, rep.PerClass, 3)
	assert.Equal(t, 6, rep.NumSamples)
	assert.Equal(t, 6, rep.Weighted.Support)

	for _, c := range rep.PerClass {
		assert.Equal(t, 2, c.Support)
		assert.GreaterOrEqual(t, c.Precision, 0.0)
		assert.LessOrEqual(t, c.Precision, 1.0)
	}

	// Class 1: precision 2/3, recall 1.
	assert.InDelta(t, 2.0/3.0, rep.PerClass[1].Precision, 1e-12)
	assert.InDelta(t, 1.0, rep.PerClass[1].Recall, 1e-12)
}

func TestRoundTo(t *testing.T) {
	assert.Equal(t, 0.6667, RoundTo(2.0/3.0, 4))
	assert.Equal(t, 1.0, RoundTo(0.99999, 4))
}
