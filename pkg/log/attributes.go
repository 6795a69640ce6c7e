package log

// Standard attribute keys for pipeline operations. Using these consistently
// keeps the JSON logs filterable by stage and by data shape.
const (
	// StageKey identifies the pipeline stage emitting the record.
	// Values: "generate", "preprocess", "select", "train", "evaluate", "serve"
	StageKey = "pipeline.stage"

	// ModelNameKey identifies the model type, e.g. "RandomForestClassifier".
	ModelNameKey = "model.name"

	// OperationKey names the operation: "fit", "predict", "transform", "score".
	OperationKey = "ml.operation"

	// RunIDKey carries the unique identifier of a pipeline run.
	RunIDKey = "run.id"

	// RequestIDKey carries the per-request identifier in the web app.
	RequestIDKey = "request.id"
)

// Data shape attributes.
const (
	// SamplesKey is the number of rows being processed.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of feature columns.
	FeaturesKey = "data.features"

	// ClassesKey is the number of distinct labels.
	ClassesKey = "data.classes"

	// PathKey is the filesystem path of an artifact being read or written.
	PathKey = "artifact.path"
)

// Performance attributes.
const (
	// AccuracyKey is a fractional accuracy in [0, 1].
	AccuracyKey = "metric.accuracy"

	// CVMeanKey and CVStdKey summarise cross-validation accuracy.
	CVMeanKey = "metric.cv_mean"
	CVStdKey  = "metric.cv_std"

	// DurationMsKey is elapsed wall time in milliseconds.
	DurationMsKey = "duration_ms"
)
