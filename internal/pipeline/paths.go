package pipeline

import "path/filepath"

// Paths holds the artifact locations of one pipeline run. The zero-root
// defaults match the layout the serve command and the docs refer to.
type Paths struct {
	RawCSV          string
	PreprocessedCSV string
	SelectedCSV     string
	ModelGob        string
	CVResultsCSV    string
	MetricsCSV      string
	PairPlotPNG     string
	ConfusionPNG    string
}

// DefaultModelPath is where the trained artifact lives relative to the
// working directory.
const DefaultModelPath = "models/rf_kc_severity.gob"

// DefaultPaths returns the standard artifact layout rooted at root
// (empty root means the working directory).
func DefaultPaths(root string) Paths {
	return Paths{
		RawCSV:          filepath.Join(root, "data", "raw", "synthetic_pentacam.csv"),
		PreprocessedCSV: filepath.Join(root, "data", "processed", "preprocessed.csv"),
		SelectedCSV:     filepath.Join(root, "data", "processed", "selected.csv"),
		ModelGob:        filepath.Join(root, "models", "rf_kc_severity.gob"),
		CVResultsCSV:    filepath.Join(root, "models", "cv_results.csv"),
		MetricsCSV:      filepath.Join(root, "models", "evaluation_metrics.csv"),
		PairPlotPNG:     filepath.Join(root, "models", "feature_pairplot.png"),
		ConfusionPNG:    filepath.Join(root, "models", "confusion_matrix.png"),
	}
}
