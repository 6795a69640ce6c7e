// Package featureselection ranks features by ensemble importance and keeps
// the most informative subset.
package featureselection

import (
	"sort"

	"github.com/bhanuswaroop1247/keratoconus-severity-ml/dataset"
	"github.com/bhanuswaroop1247/keratoconus-severity-ml/ensemble"
	"github.com/bhanuswaroop1247/keratoconus-severity-ml/pkg/errors"
)

// DefaultNumFeatures is how many top-ranked features are kept.
const DefaultNumFeatures = 3

// SelectFromModel fits a forest on the full feature set, ranks features by
// mean impurity decrease and keeps the top NumFeatures.
type SelectFromModel struct {
	Estimator   *ensemble.RandomForestClassifier
	NumFeatures int

	// Fitted state
	Importances []float64
	Selected    []string
}

// Option configures a SelectFromModel.
type Option func(*SelectFromModel)

// WithNumFeatures sets how many features to keep.
func WithNumFeatures(k int) Option {
	return func(s *SelectFromModel) { s.NumFeatures = k }
}

// WithEstimator sets the ranking estimator. It is cloned before fitting so
// the caller's classifier is left untouched.
func WithEstimator(clf *ensemble.RandomForestClassifier) Option {
	return func(s *SelectFromModel) { s.Estimator = clf }
}

// NewSelectFromModel creates a selector with a default 100-tree forest.
func NewSelectFromModel(opts ...Option) *SelectFromModel {
	s := &SelectFromModel{
		Estimator:   ensemble.NewRandomForestClassifier(),
		NumFeatures: DefaultNumFeatures,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fit ranks the table's features. The selected names are stored in
// importance order (most important first).
func (s *SelectFromModel) Fit(t *dataset.Table) error {
	if t == nil || t.NumSamples() == 0 {
		return errors.Wrap(errors.ErrEmptyData, "SelectFromModel.Fit")
	}
	if s.NumFeatures <= 0 || s.NumFeatures > t.NumFeatures() {
		return errors.NewValueError("SelectFromModel.Fit",
			"NumFeatures must be in [1, number of features]")
	}

	clf := s.Estimator.Clone()
	if err := clf.Fit(t.X, t.Y); err != nil {
		return errors.Wrap(err, "SelectFromModel.Fit")
	}
	importances, err := clf.FeatureImportances()
	if err != nil {
		return errors.Wrap(err, "SelectFromModel.Fit")
	}

	order := make([]int, len(importances))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return importances[order[a]] > importances[order[b]]
	})

	s.Importances = importances
	s.Selected = make([]string, s.NumFeatures)
	for i := 0; i < s.NumFeatures; i++ {
		s.Selected[i] = t.FeatureNames[order[i]]
	}
	return nil
}

// Transform returns a table restricted to the selected features.
func (s *SelectFromModel) Transform(t *dataset.Table) (*dataset.Table, error) {
	if len(s.Selected) == 0 {
		return nil, errors.NewNotFittedError("SelectFromModel", "Transform")
	}
	return t.SelectFeatures(s.Selected)
}

// FitTransform fits the selector and returns the reduced table.
func (s *SelectFromModel) FitTransform(t *dataset.Table) (*dataset.Table, error) {
	if err := s.Fit(t); err != nil {
		return nil, err
	}
	return s.Transform(t)
}
