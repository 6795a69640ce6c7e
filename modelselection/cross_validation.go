package modelselection

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/bhanuswaroop1247/keratoconus-severity-ml/pkg/errors"
)

// Classifier is the estimator contract required for cross-validation.
type Classifier interface {
	Fit(X mat.Matrix, y []int) error
	Predict(X mat.Matrix) ([]int, error)
}

// CVResult stores per-fold cross-validation scores and timings.
type CVResult struct {
	TestScores []float64
	FitTimes   []time.Duration
}

// MeanScore returns the mean test score across folds.
func (cv *CVResult) MeanScore() float64 {
	if len(cv.TestScores) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range cv.TestScores {
		sum += s
	}
	return sum / float64(len(cv.TestScores))
}

// StdScore returns the sample standard deviation of the test scores.
func (cv *CVResult) StdScore() float64 {
	if len(cv.TestScores) <= 1 {
		return 0
	}
	mean := cv.MeanScore()
	sumSq := 0.0
	for _, s := range cv.TestScores {
		diff := s - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(cv.TestScores)-1))
}

// CrossValScore evaluates a classifier by accuracy across the splitter's
// folds. newClassifier must return a fresh unfitted estimator; a new one is
// built per fold so folds never share state.
func CrossValScore(newClassifier func() Classifier, X mat.Matrix, y []int, splitter Splitter) (*CVResult, error) {
	n, _ := X.Dims()
	if n == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "CrossValScore")
	}
	if len(y) != n {
		return nil, errors.NewDimensionError("CrossValScore", n, len(y), 0)
	}

	folds := splitter.Split(n, y)
	result := &CVResult{
		TestScores: make([]float64, len(folds)),
		FitTimes:   make([]time.Duration, len(folds)),
	}

	for i, fold := range folds {
		trainX, trainY := subset(X, y, fold.TrainIndices)
		testX, testY := subset(X, y, fold.TestIndices)

		clf := newClassifier()
		start := time.Now()
		if err := clf.Fit(trainX, trainY); err != nil {
			return nil, errors.Wrapf(err, "fold %d: fit", i)
		}
		result.FitTimes[i] = time.Since(start)

		preds, err := clf.Predict(testX)
		if err != nil {
			return nil, errors.Wrapf(err, "fold %d: predict", i)
		}
		correct := 0
		for j := range testY {
			if preds[j] == testY[j] {
				correct++
			}
		}
		result.TestScores[i] = float64(correct) / float64(len(testY))
	}

	return result, nil
}

// subset materialises the rows of X and y named by indices.
func subset(X mat.Matrix, y []int, indices []int) (*mat.Dense, []int) {
	_, d := X.Dims()
	outX := mat.NewDense(len(indices), d, nil)
	outY := make([]int, len(indices))
	for i, src := range indices {
		for j := 0; j < d; j++ {
			outX.Set(i, j, X.At(src, j))
		}
		outY[i] = y[src]
	}
	return outX, outY
}
