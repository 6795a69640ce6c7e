package pipeline

import "github.com/bhanuswaroop1247/keratoconus-severity-ml/dataset"

// ClinicalCase is a reference measurement with a known expected stage,
// used to sanity-check a trained model against textbook presentations.
type ClinicalCase struct {
	Name     string
	RmB      float64
	RmF      float64
	PachyMin float64
	Expected int
}

// ClinicalCases lists one textbook presentation per severity stage.
func ClinicalCases() []ClinicalCase {
	return []ClinicalCase{
		{Name: "Normal (Stage 0)", RmB: 6.4, RmF: 7.7, PachyMin: 518, Expected: 0},
		{Name: "Mild (Stage 1)", RmB: 6.0, RmF: 7.3, PachyMin: 481, Expected: 1},
		{Name: "Moderate (Stage 2)", RmB: 5.7, RmF: 7.0, PachyMin: 448, Expected: 2},
		{Name: "Advanced (Stage 3)", RmB: 5.1, RmF: 6.7, PachyMin: 391, Expected: 3},
		{Name: "Severe (Stage 4)", RmB: 4.6, RmF: 6.0, PachyMin: 395, Expected: 4},
	}
}

// Values returns the case as a feature-name map for Artifact.Predict.
func (c ClinicalCase) Values() map[string]float64 {
	return map[string]float64{
		dataset.FeatureRmB:      c.RmB,
		dataset.FeatureRmF:      c.RmF,
		dataset.FeaturePachyMin: c.PachyMin,
	}
}
