// Package pipeline orchestrates the five stages of the severity staging
// workflow: data generation, preprocessing, feature selection, training and
// evaluation. Each stage reads and writes fixed artifact paths so stages
// can also be rerun individually from disk.
package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/bhanuswaroop1247/keratoconus-severity-ml/dataset"
	"github.com/bhanuswaroop1247/keratoconus-severity-ml/ensemble"
	"github.com/bhanuswaroop1247/keratoconus-severity-ml/featureselection"
	"github.com/bhanuswaroop1247/keratoconus-severity-ml/metrics"
	"github.com/bhanuswaroop1247/keratoconus-severity-ml/modelselection"
	"github.com/bhanuswaroop1247/keratoconus-severity-ml/pkg/errors"
	kclog "github.com/bhanuswaroop1247/keratoconus-severity-ml/pkg/log"
	"github.com/bhanuswaroop1247/keratoconus-severity-ml/preprocessing"
	"github.com/bhanuswaroop1247/keratoconus-severity-ml/synth"
)

// Runner executes the staging pipeline end to end.
type Runner struct {
	Paths           Paths
	SamplesPerClass int
	Seed            uint64
	NumFolds        int
	Grid            modelselection.ParamGrid
	RunID           string

	logger *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithPaths overrides the artifact layout.
func WithPaths(p Paths) RunnerOption {
	return func(r *Runner) { r.Paths = p }
}

// WithSamplesPerClass sets the synthetic cohort size per stage.
func WithSamplesPerClass(n int) RunnerOption {
	return func(r *Runner) { r.SamplesPerClass = n }
}

// WithSeed sets the seed used across all randomised stages.
func WithSeed(seed uint64) RunnerOption {
	return func(r *Runner) { r.Seed = seed }
}

// WithGrid overrides the hyperparameter search grid.
func WithGrid(g modelselection.ParamGrid) RunnerOption {
	return func(r *Runner) { r.Grid = g }
}

// WithNumFolds sets the cross-validation fold count.
func WithNumFolds(k int) RunnerOption {
	return func(r *Runner) { r.NumFolds = k }
}

// WithLogger sets the logger; defaults to slog.Default.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a Runner with the standard configuration: 130 samples
// per stage, seed 42, stratified 6-fold CV and a small grid around the
// 100-tree default forest.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		Paths:           DefaultPaths(""),
		SamplesPerClass: 130,
		Seed:            42,
		NumFolds:        6,
		Grid: modelselection.ParamGrid{
			NEstimators:     []int{50, 100},
			MaxDepth:        []int{0, 10},
			MinSamplesSplit: []int{2, 5},
		},
		RunID:  uuid.NewString(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes all five stages in order, stopping at the first failure.
func (r *Runner) Run(ctx context.Context) error {
	log := r.logger.With(kclog.RunIDKey, r.RunID)
	log.Info("pipeline starting",
		kclog.SamplesKey, r.SamplesPerClass*dataset.NumStages)

	stages := []struct {
		name string
		fn   func(context.Context, *slog.Logger) error
	}{
		{"generate", r.generate},
		{"preprocess", r.preprocess},
		{"select", r.selectFeatures},
		{"train", r.train},
		{"evaluate", r.evaluate},
	}

	start := time.Now()
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "pipeline cancelled before %s", stage.name)
		}
		stageLog := log.With(kclog.StageKey, stage.name)
		stageStart := time.Now()
		if err := stage.fn(ctx, stageLog); err != nil {
			stageLog.Error("stage failed", kclog.ErrAttr(err))
			return errors.Wrapf(err, "stage %s", stage.name)
		}
		stageLog.Info("stage complete",
			kclog.DurationMsKey, time.Since(stageStart).Milliseconds())
	}

	log.Info("pipeline complete",
		kclog.DurationMsKey, time.Since(start).Milliseconds())
	return nil
}

// generate synthesises the labelled cohort and writes the raw CSV.
func (r *Runner) generate(_ context.Context, log *slog.Logger) error {
	gen := synth.NewGenerator(
		synth.WithSamplesPerClass(r.SamplesPerClass),
		synth.WithSeed(r.Seed),
	)
	table, err := gen.Generate()
	if err != nil {
		return err
	}
	r.logShape(log, table)
	if err := table.WriteCSV(r.Paths.RawCSV); err != nil {
		return err
	}
	log.Info("raw cohort written", kclog.PathKey, r.Paths.RawCSV)
	return nil
}

// preprocess filters gross outliers and balances the classes.
func (r *Runner) preprocess(_ context.Context, log *slog.Logger) error {
	table, err := dataset.ReadCSV(r.Paths.RawCSV)
	if err != nil {
		return err
	}
	r.logRanges(log, table)

	filtered, removed, err := preprocessing.NewOutlierFilter(0).Apply(table)
	if err != nil {
		return err
	}
	if removed > 0 {
		log.Info("outlier rows removed", "rows.removed", removed)
	}

	balanced, err := preprocessing.NewSMOTE(r.Seed).Resample(filtered)
	if err != nil {
		return err
	}
	if balanced.NumSamples() != filtered.NumSamples() {
		log.Info("minority classes oversampled",
			"rows.added", balanced.NumSamples()-filtered.NumSamples())
	}

	r.logShape(log, balanced)
	if err := balanced.WriteCSV(r.Paths.PreprocessedCSV); err != nil {
		return err
	}
	log.Info("preprocessed data written", kclog.PathKey, r.Paths.PreprocessedCSV)
	return nil
}

// selectFeatures ranks features by forest importance and keeps the top 3.
func (r *Runner) selectFeatures(_ context.Context, log *slog.Logger) error {
	table, err := dataset.ReadCSV(r.Paths.PreprocessedCSV)
	if err != nil {
		return err
	}

	k := featureselection.DefaultNumFeatures
	if table.NumFeatures() < k {
		k = table.NumFeatures()
	}
	sel := featureselection.NewSelectFromModel(
		featureselection.WithNumFeatures(k),
		featureselection.WithEstimator(ensemble.NewRandomForestClassifier(
			ensemble.WithForestSeed(int64(r.Seed)),
		)),
	)
	reduced, err := sel.FitTransform(table)
	if err != nil {
		return err
	}

	for i, name := range table.FeatureNames {
		log.Info("feature importance",
			"feature", name, "importance", sel.Importances[i])
	}
	log.Info("features selected", "selected", sel.Selected)

	if err := reduced.WriteCSV(r.Paths.SelectedCSV); err != nil {
		return err
	}
	log.Info("selected data written", kclog.PathKey, r.Paths.SelectedCSV)
	return nil
}

// train runs the grid search with stratified k-fold CV, writes the CV
// table and saves the refit best model as the artifact.
func (r *Runner) train(_ context.Context, log *slog.Logger) error {
	table, err := dataset.ReadCSV(r.Paths.SelectedCSV)
	if err != nil {
		return err
	}

	base := ensemble.NewRandomForestClassifier(
		ensemble.WithForestSeed(int64(r.Seed)),
	)
	splitter := modelselection.NewStratifiedKFold(r.NumFolds, true, r.Seed)
	gs := modelselection.NewGridSearchCV(base, r.Grid, splitter)
	if err := gs.Fit(table.X, table.Y); err != nil {
		return err
	}

	var bestResult modelselection.GridResult
	for _, res := range gs.Results {
		if res.Params == gs.BestParams {
			bestResult = res
		}
	}
	log.Info("grid search complete",
		kclog.ModelNameKey, "RandomForestClassifier",
		"best.n_estimators", gs.BestParams.NEstimators,
		"best.max_depth", gs.BestParams.MaxDepth,
		"best.min_samples_split", gs.BestParams.MinSamplesSplit,
		kclog.CVMeanKey, bestResult.MeanScore,
		kclog.CVStdKey, bestResult.StdScore)

	if err := r.writeCVResults(gs.Results); err != nil {
		return err
	}

	artifact := &Artifact{
		Model:        gs.BestModel,
		FeatureNames: table.FeatureNames,
		BestParams:   gs.BestParams,
		CVMean:       bestResult.MeanScore,
		CVStd:        bestResult.StdScore,
		RunID:        r.RunID,
		TrainedAt:    time.Now().UTC(),
	}
	if err := artifact.Save(r.Paths.ModelGob); err != nil {
		return err
	}
	log.Info("model artifact written", kclog.PathKey, r.Paths.ModelGob)
	return nil
}

// evaluate reloads the artifact, scores it on the raw cohort, renders the
// plots and checks the clinical reference cases.
func (r *Runner) evaluate(_ context.Context, log *slog.Logger) error {
	artifact, err := LoadArtifact(r.Paths.ModelGob)
	if err != nil {
		return err
	}
	raw, err := dataset.ReadCSV(r.Paths.RawCSV)
	if err != nil {
		return err
	}
	eval, err := raw.SelectFeatures(artifact.FeatureNames)
	if err != nil {
		return err
	}

	preds, err := artifact.Model.Predict(eval.X)
	if err != nil {
		return err
	}
	report, err := metrics.ClassificationReport(eval.Y, preds)
	if err != nil {
		return err
	}
	f2, err := metrics.FBetaWeighted(eval.Y, preds, 2)
	if err != nil {
		return err
	}
	log.Info("evaluation metrics",
		kclog.AccuracyKey, report.Accuracy,
		"metric.precision_weighted", report.Weighted.Precision,
		"metric.recall_weighted", report.Weighted.Recall,
		"metric.f1_weighted", report.Weighted.F1,
		"metric.f2_weighted", f2)

	if err := r.writeMetrics(report, f2); err != nil {
		return err
	}

	cm, err := metrics.NewConfusionMatrix(eval.Y, preds)
	if err != nil {
		return err
	}
	if err := renderConfusionMatrix(cm, r.Paths.ConfusionPNG); err != nil {
		return err
	}
	log.Info("confusion matrix rendered", kclog.PathKey, r.Paths.ConfusionPNG)

	if err := renderPairPlot(raw, r.Paths.PairPlotPNG); err != nil {
		return err
	}
	log.Info("feature pair plot rendered", kclog.PathKey, r.Paths.PairPlotPNG)

	for _, c := range ClinicalCases() {
		pred, probas, err := artifact.Predict(c.Values())
		if err != nil {
			return err
		}
		caseLog := log.With("case", c.Name,
			"expected", c.Expected, "predicted", pred,
			"confidence", probas[pred])
		if pred == c.Expected {
			caseLog.Info("clinical case matched")
		} else {
			caseLog.Warn("clinical case mismatch")
		}
	}
	return nil
}

// writeCVResults writes one row per grid combination.
func (r *Runner) writeCVResults(results []modelselection.GridResult) error {
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		rows = append(rows, []string{
			strconv.Itoa(res.Params.NEstimators),
			strconv.Itoa(res.Params.MaxDepth),
			strconv.Itoa(res.Params.MinSamplesSplit),
			formatFloat(res.MeanScore),
			formatFloat(res.StdScore),
		})
	}
	header := []string{"n_estimators", "max_depth", "min_samples_split", "mean_accuracy", "std_accuracy"}
	return writeCSVFile(r.Paths.CVResultsCSV, header, rows)
}

// writeMetrics writes the single-row evaluation summary.
func (r *Runner) writeMetrics(report *metrics.Report, f2 float64) error {
	header := []string{"accuracy", "precision_weighted", "recall_weighted", "f1_weighted", "f2_weighted"}
	row := []string{
		formatFloat(report.Accuracy),
		formatFloat(report.Weighted.Precision),
		formatFloat(report.Weighted.Recall),
		formatFloat(report.Weighted.F1),
		formatFloat(f2),
	}
	return writeCSVFile(r.Paths.MetricsCSV, header, [][]string{row})
}

func writeCSVFile(path string, header []string, rows [][]string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create directory for %s", path)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return errors.Wrapf(err, "write header to %s", path)
	}
	if err := w.WriteAll(rows); err != nil {
		return errors.Wrapf(err, "write rows to %s", path)
	}
	w.Flush()
	return errors.Wrapf(w.Error(), "flush %s", path)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(metrics.RoundTo(v, 6), 'f', -1, 64)
}

func (r *Runner) logShape(log *slog.Logger, t *dataset.Table) {
	log.Info("data shape",
		kclog.SamplesKey, t.NumSamples(),
		kclog.FeaturesKey, t.NumFeatures(),
		kclog.ClassesKey, len(t.Classes()))
}

// logRanges reports the observed min/max per feature, mirroring the range
// report clinicians use to eyeball the cohort's plausibility.
func (r *Runner) logRanges(log *slog.Logger, t *dataset.Table) {
	for _, name := range t.FeatureNames {
		col, err := t.FeatureColumn(name)
		if err != nil || len(col) == 0 {
			continue
		}
		lo, hi := col[0], col[0]
		for _, v := range col[1:] {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		log.Info("feature range", "feature", name,
			"min", fmt.Sprintf("%.2f", lo), "max", fmt.Sprintf("%.2f", hi))
	}
}
