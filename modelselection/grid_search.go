package modelselection

import (
	"gonum.org/v1/gonum/mat"

	"github.com/bhanuswaroop1247/keratoconus-severity-ml/ensemble"
	"github.com/bhanuswaroop1247/keratoconus-severity-ml/pkg/errors"
)

// ParamGrid enumerates the forest hyperparameter values to search. Empty
// slices fall back to the classifier's current value.
type ParamGrid struct {
	NEstimators     []int
	MaxDepth        []int // 0 means unlimited depth
	MinSamplesSplit []int
}

// Params is one hyperparameter combination.
type Params struct {
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
}

// GridResult records the cross-validated score of one combination.
type GridResult struct {
	Params    Params
	MeanScore float64
	StdScore  float64
}

// GridSearchCV exhaustively evaluates a ParamGrid with cross-validated
// accuracy, then refits the best combination on the full data.
type GridSearchCV struct {
	Base     *ensemble.RandomForestClassifier // template carrying fixed params
	Grid     ParamGrid
	Splitter Splitter

	// Fitted state
	BestParams Params
	BestScore  float64
	BestModel  *ensemble.RandomForestClassifier
	Results    []GridResult
}

// NewGridSearchCV creates a grid search over the given base classifier.
func NewGridSearchCV(base *ensemble.RandomForestClassifier, grid ParamGrid, splitter Splitter) *GridSearchCV {
	return &GridSearchCV{Base: base, Grid: grid, Splitter: splitter}
}

// Fit runs the exhaustive search and refits the best model on all of X, y.
func (gs *GridSearchCV) Fit(X mat.Matrix, y []int) error {
	if gs.Base == nil {
		return errors.NewValueError("GridSearchCV.Fit", "nil base classifier")
	}

	combos := gs.combinations()
	if len(combos) == 0 {
		return errors.NewValueError("GridSearchCV.Fit", "empty parameter grid")
	}

	gs.Results = make([]GridResult, 0, len(combos))
	best := -1.0
	var bestParams Params

	for _, p := range combos {
		p := p
		factory := func() Classifier {
			return gs.build(p)
		}
		cv, err := CrossValScore(factory, X, y, gs.Splitter)
		if err != nil {
			return errors.Wrapf(err, "grid search: params %+v", p)
		}
		result := GridResult{Params: p, MeanScore: cv.MeanScore(), StdScore: cv.StdScore()}
		gs.Results = append(gs.Results, result)
		if result.MeanScore > best {
			best = result.MeanScore
			bestParams = p
		}
	}

	gs.BestParams = bestParams
	gs.BestScore = best
	gs.BestModel = gs.build(bestParams)
	return gs.BestModel.Fit(X, y)
}

// build clones the base classifier with one grid combination applied.
func (gs *GridSearchCV) build(p Params) *ensemble.RandomForestClassifier {
	clf := gs.Base.Clone()
	clf.NEstimators = p.NEstimators
	clf.MaxDepth = p.MaxDepth
	clf.MinSamplesSplit = p.MinSamplesSplit
	return clf
}

// combinations expands the grid into the cross product of its values,
// filling empty dimensions from the base classifier.
func (gs *GridSearchCV) combinations() []Params {
	nEstimators := gs.Grid.NEstimators
	if len(nEstimators) == 0 {
		nEstimators = []int{gs.Base.NEstimators}
	}
	maxDepth := gs.Grid.MaxDepth
	if len(maxDepth) == 0 {
		maxDepth = []int{gs.Base.MaxDepth}
	}
	minSplit := gs.Grid.MinSamplesSplit
	if len(minSplit) == 0 {
		minSplit = []int{gs.Base.MinSamplesSplit}
	}

	out := make([]Params, 0, len(nEstimators)*len(maxDepth)*len(minSplit))
	for _, n := range nEstimators {
		for _, d := range maxDepth {
			for _, s := range minSplit {
				out = append(out, Params{NEstimators: n, MaxDepth: d, MinSamplesSplit: s})
			}
		}
	}
	return out
}
