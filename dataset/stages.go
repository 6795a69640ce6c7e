package dataset

import "github.com/bhanuswaroop1247/keratoconus-severity-ml/pkg/errors"

// StageInfo describes one severity stage for display.
type StageInfo struct {
	Stage          int
	Name           string
	Description    string
	Recommendation string
}

var stageInfos = [NumStages]StageInfo{
	{
		Stage:          0,
		Name:           "Stage 0 - Normal",
		Description:    "Clear cornea with normal thickness and visual acuity",
		Recommendation: "Normal cornea. Regular follow-up recommended.",
	},
	{
		Stage:          1,
		Name:           "Stage 1 - Mild KC",
		Description:    "Fleischer's ring may be present, mild corneal thinning",
		Recommendation: "Consider corneal cross-linking consultation. Spectacles or soft contact lenses.",
	},
	{
		Stage:          2,
		Name:           "Stage 2 - Moderate KC",
		Description:    "Fleischer's ring and Vogt's striae, evident thinning",
		Recommendation: "Corneal cross-linking recommended. Rigid contact lenses may be needed.",
	},
	{
		Stage:          3,
		Name:           "Stage 3 - Advanced KC",
		Description:    "Munson's sign, significant thinning with faint scarring",
		Recommendation: "Corneal cross-linking and specialty contact lenses. Consider surgical options.",
	},
	{
		Stage:          4,
		Name:           "Stage 4 - Severe KC",
		Description:    "Corneal scarring and opacities, evident Munson's sign",
		Recommendation: "Surgical intervention likely required (corneal ring implant or transplant).",
	},
}

// Stage returns the display info for a severity stage.
func Stage(stage int) (StageInfo, error) {
	if stage < 0 || stage >= NumStages {
		return StageInfo{}, errors.NewValidationError("stage", "must be in [0, 4]", stage)
	}
	return stageInfos[stage], nil
}
