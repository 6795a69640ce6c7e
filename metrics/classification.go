// Package metrics implements classification metrics for the evaluation
// stage: accuracy, confusion matrix and weighted precision/recall/F-scores.
package metrics

import (
	"math"
	"sort"

	"github.com/bhanuswaroop1247/keratoconus-severity-ml/pkg/errors"
)

// Accuracy returns the fraction of predictions matching the true labels.
func Accuracy(yTrue, yPred []int) (float64, error) {
	n := len(yTrue)
	if n == 0 {
		return 0, errors.NewValueError("Accuracy", "empty label slice")
	}
	if len(yPred) != n {
		return 0, errors.NewDimensionError("Accuracy", n, len(yPred), 0)
	}

	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ConfusionMatrix counts predictions per (true, predicted) class pair.
// Rows are true classes, columns predicted classes, both in the order of
// Classes.
type ConfusionMatrix struct {
	Classes []int
	Counts  [][]int
}

// NewConfusionMatrix builds the matrix over the union of classes seen in
// yTrue and yPred, sorted ascending.
func NewConfusionMatrix(yTrue, yPred []int) (*ConfusionMatrix, error) {
	n := len(yTrue)
	if n == 0 {
		return nil, errors.NewValueError("NewConfusionMatrix", "empty label slice")
	}
	if len(yPred) != n {
		return nil, errors.NewDimensionError("NewConfusionMatrix", n, len(yPred), 0)
	}

	seen := make(map[int]bool)
	for i := range yTrue {
		seen[yTrue[i]] = true
		seen[yPred[i]] = true
	}
	classes := make([]int, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	index := make(map[int]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}

	counts := make([][]int, len(classes))
	for i := range counts {
		counts[i] = make([]int, len(classes))
	}
	for i := range yTrue {
		counts[index[yTrue[i]]][index[yPred[i]]]++
	}

	return &ConfusionMatrix{Classes: classes, Counts: counts}, nil
}

// Support returns the number of true samples of the i-th class.
func (cm *ConfusionMatrix) Support(i int) int {
	total := 0
	for j := range cm.Counts[i] {
		total += cm.Counts[i][j]
	}
	return total
}

// perClass holds one class's precision/recall building blocks.
type perClass struct {
	tp, fp, fn int
}

func tally(cm *ConfusionMatrix) []perClass {
	k := len(cm.Classes)
	out := make([]perClass, k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			c := cm.Counts[i][j]
			if i == j {
				out[i].tp += c
			} else {
				out[i].fn += c
				out[j].fp += c
			}
		}
	}
	return out
}

// safeDiv returns num/den, or 0 with an UndefinedMetricWarning when den is
// zero.
func safeDiv(metric string, num, den float64) float64 {
	if den == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning(metric, "zero denominator", 0))
		return 0
	}
	return num / den
}

// PrecisionWeighted returns the support-weighted mean of per-class
// precision.
func PrecisionWeighted(yTrue, yPred []int) (float64, error) {
	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, errors.Wrap(err, "PrecisionWeighted")
	}
	return weightedAverage(cm, func(t perClass) float64 {
		return safeDiv("precision", float64(t.tp), float64(t.tp+t.fp))
	}), nil
}

// RecallWeighted returns the support-weighted mean of per-class recall.
func RecallWeighted(yTrue, yPred []int) (float64, error) {
	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, errors.Wrap(err, "RecallWeighted")
	}
	return weightedAverage(cm, func(t perClass) float64 {
		return safeDiv("recall", float64(t.tp), float64(t.tp+t.fn))
	}), nil
}

// F1Weighted returns the support-weighted mean of per-class F1.
func F1Weighted(yTrue, yPred []int) (float64, error) {
	return FBetaWeighted(yTrue, yPred, 1)
}

// FBetaWeighted returns the support-weighted mean of per-class F-beta.
// beta > 1 weighs recall higher; beta = 2 is the conventional choice when
// missed severe cases cost more than false alarms.
func FBetaWeighted(yTrue, yPred []int, beta float64) (float64, error) {
	if beta <= 0 {
		return 0, errors.NewValueError("FBetaWeighted", "beta must be positive")
	}
	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, errors.Wrap(err, "FBetaWeighted")
	}
	b2 := beta * beta
	return weightedAverage(cm, func(t perClass) float64 {
		p := safeDiv("precision", float64(t.tp), float64(t.tp+t.fp))
		r := safeDiv("recall", float64(t.tp), float64(t.tp+t.fn))
		return safeDiv("fbeta", (1+b2)*p*r, b2*p+r)
	}), nil
}

// weightedAverage averages a per-class score weighted by class support.
func weightedAverage(cm *ConfusionMatrix, score func(perClass) float64) float64 {
	tallies := tally(cm)
	total := 0.0
	sum := 0.0
	for i := range tallies {
		support := float64(cm.Support(i))
		sum += support * score(tallies[i])
		total += support
	}
	if total == 0 {
		return 0
	}
	return sum / total
}

// ClassReport holds per-class precision, recall, F1 and support.
type ClassReport struct {
	Class     int
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report summarises a classification run.
type Report struct {
	Accuracy   float64
	PerClass   []ClassReport
	Weighted   ClassReport // Class and Support are aggregate here
	NumSamples int
}

// ClassificationReport computes accuracy plus per-class and weighted
// precision/recall/F1 in one pass.
func ClassificationReport(yTrue, yPred []int) (*Report, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return nil, errors.Wrap(err, "ClassificationReport")
	}
	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		return nil, errors.Wrap(err, "ClassificationReport")
	}

	tallies := tally(cm)
	report := &Report{
		Accuracy:   acc,
		PerClass:   make([]ClassReport, len(cm.Classes)),
		NumSamples: len(yTrue),
	}

	totalSupport := 0.0
	for i, c := range cm.Classes {
		t := tallies[i]
		p := safeDiv("precision", float64(t.tp), float64(t.tp+t.fp))
		r := safeDiv("recall", float64(t.tp), float64(t.tp+t.fn))
		f1 := safeDiv("f1", 2*p*r, p+r)
		support := cm.Support(i)

		report.PerClass[i] = ClassReport{
			Class: c, Precision: p, Recall: r, F1: f1, Support: support,
		}
		report.Weighted.Precision += float64(support) * p
		report.Weighted.Recall += float64(support) * r
		report.Weighted.F1 += float64(support) * f1
		totalSupport += float64(support)
	}
	if totalSupport > 0 {
		report.Weighted.Precision /= totalSupport
		report.Weighted.Recall /= totalSupport
		report.Weighted.F1 /= totalSupport
	}
	report.Weighted.Support = int(totalSupport)
	return report, nil
}

// RoundTo truncates floating point noise for stable CSV output.
func RoundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
