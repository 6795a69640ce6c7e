package pipeline

import (
	"time"

	"github.com/bhanuswaroop1247/keratoconus-severity-ml/core/model"
	"github.com/bhanuswaroop1247/keratoconus-severity-ml/ensemble"
	"github.com/bhanuswaroop1247/keratoconus-severity-ml/modelselection"
	"github.com/bhanuswaroop1247/keratoconus-severity-ml/pkg/errors"
)

// Artifact is the gob-serialised product of a training run: the fitted
// forest plus enough metadata to reproduce and audit it.
type Artifact struct {
	Model        *ensemble.RandomForestClassifier
	FeatureNames []string // model input order
	BestParams   modelselection.Params
	CVMean       float64
	CVStd        float64
	RunID        string
	TrainedAt    time.Time
}

// Save writes the artifact to path, creating parent directories.
func (a *Artifact) Save(path string) error {
	return model.SaveModel(a, path)
}

// LoadArtifact reads a trained artifact back from path.
func LoadArtifact(path string) (*Artifact, error) {
	var a Artifact
	if err := model.LoadModel(&a, path); err != nil {
		return nil, err
	}
	if a.Model == nil || !a.Model.IsFitted() {
		return nil, errors.NewModelError("LoadArtifact", "decode model",
			errors.New("artifact contains no fitted model"))
	}
	if len(a.FeatureNames) != a.Model.NFeatures {
		return nil, errors.NewDimensionError("LoadArtifact",
			a.Model.NFeatures, len(a.FeatureNames), 1)
	}
	return &a, nil
}

// Predict classifies one measurement given by feature name. All of the
// artifact's features must be present.
func (a *Artifact) Predict(values map[string]float64) (int, []float64, error) {
	row := make([]float64, len(a.FeatureNames))
	for i, name := range a.FeatureNames {
		v, ok := values[name]
		if !ok {
			return 0, nil, errors.NewValidationError(name, "missing feature value", nil)
		}
		row[i] = v
	}
	return a.Model.PredictOne(row)
}
