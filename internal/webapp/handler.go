package webapp

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bhanuswaroop1247/keratoconus-severity-ml/dataset"
	"github.com/bhanuswaroop1247/keratoconus-severity-ml/internal/pipeline"
	kclog "github.com/bhanuswaroop1247/keratoconus-severity-ml/pkg/log"
)

// Input bounds match the physiologically plausible measurement ranges
// shown next to the sliders.
const (
	RmBMin, RmBMax           = 4.0, 8.0
	RmFMin, RmFMax           = 5.0, 9.0
	PachyMinMin, PachyMinMax = 200.0, 600.0
)

// FormInput holds the three slider values of one prediction request.
type FormInput struct {
	RmB      float64
	RmF      float64
	PachyMin float64
}

// defaultInput pre-positions the sliders on a healthy cornea.
func defaultInput() FormInput {
	return FormInput{RmB: 6.5, RmF: 7.8, PachyMin: 520}
}

// validate checks each value against its documented range.
func (in FormInput) validate() error {
	checks := []struct {
		name     string
		v        float64
		min, max float64
		unit     string
	}{
		{dataset.FeatureRmB, in.RmB, RmBMin, RmBMax, "mm"},
		{dataset.FeatureRmF, in.RmF, RmFMin, RmFMax, "mm"},
		{dataset.FeaturePachyMin, in.PachyMin, PachyMinMin, PachyMinMax, "µm"},
	}
	for _, c := range checks {
		if c.v < c.min || c.v > c.max {
			return fmt.Errorf("%s must be between %g and %g %s, got %g",
				c.name, c.min, c.max, c.unit, c.v)
		}
	}
	return nil
}

// StageProbability is one row of the probability table.
type StageProbability struct {
	Stage   int
	Percent float64
}

// PredictionResult is the rendered outcome of one prediction.
type PredictionResult struct {
	Stage          int
	Name           string
	Description    string
	Recommendation string
	Confidence     float64 // percent
	Probabilities  []StageProbability
}

// pageData is the template context for the single form page.
type pageData struct {
	Input  FormInput
	Result *PredictionResult
	Error  string
}

// Handler serves the prediction form against a loaded model artifact.
type Handler struct {
	artifact *pipeline.Artifact
	log      *slog.Logger
}

// NewHandler creates a handler around a trained artifact.
func NewHandler(artifact *pipeline.Artifact, log *slog.Logger) *Handler {
	return &Handler{artifact: artifact, log: log}
}

// Index renders the empty form.
func (h *Handler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", pageData{Input: defaultInput()})
}

// Health reports liveness and the loaded model's run ID.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"run_id": h.artifact.RunID,
	})
}

// Predict parses the form, stages the measurement and re-renders the page
// with the outcome. Out-of-range values get a 400.
func (h *Handler) Predict(c *gin.Context) {
	in, err := parseForm(c)
	if err != nil {
		h.renderError(c, http.StatusBadRequest, err)
		return
	}
	if err := in.validate(); err != nil {
		h.renderError(c, http.StatusBadRequest, err)
		return
	}

	stage, probas, err := h.artifact.Predict(map[string]float64{
		dataset.FeatureRmB:      in.RmB,
		dataset.FeatureRmF:      in.RmF,
		dataset.FeaturePachyMin: in.PachyMin,
	})
	if err != nil {
		h.log.Error("prediction failed",
			kclog.RequestIDKey, requestID(c), kclog.ErrAttr(err))
		h.renderError(c, http.StatusInternalServerError, err)
		return
	}

	info, err := dataset.Stage(stage)
	if err != nil {
		h.renderError(c, http.StatusInternalServerError, err)
		return
	}

	result := &PredictionResult{
		Stage:          stage,
		Name:           info.Name,
		Description:    info.Description,
		Recommendation: info.Recommendation,
	}
	// Probability columns are aligned with the model's class set, which
	// may be a subset of the stages.
	for i, class := range h.artifact.Model.Classes {
		result.Probabilities = append(result.Probabilities,
			StageProbability{Stage: class, Percent: probas[i] * 100})
		if class == stage {
			result.Confidence = probas[i] * 100
		}
	}

	h.log.Info("prediction served",
		kclog.RequestIDKey, requestID(c),
		"rm_b", in.RmB, "rm_f", in.RmF, "pachy_min", in.PachyMin,
		"predicted", stage, "confidence", result.Confidence/100)

	c.HTML(http.StatusOK, "index.html", pageData{Input: in, Result: result})
}

// renderError re-renders the form with the error, keeping whatever values
// were submitted so the user can correct them.
func (h *Handler) renderError(c *gin.Context, status int, err error) {
	in := defaultInput()
	if parsed, perr := parseForm(c); perr == nil {
		in = parsed
	}
	c.HTML(status, "index.html", pageData{Input: in, Error: err.Error()})
}

func parseForm(c *gin.Context) (FormInput, error) {
	var in FormInput
	fields := []struct {
		name string
		dst  *float64
	}{
		{"rm_b", &in.RmB},
		{"rm_f", &in.RmF},
		{"pachy_min", &in.PachyMin},
	}
	for _, f := range fields {
		raw := c.PostForm(f.name)
		if raw == "" {
			return in, fmt.Errorf("missing form field %q", f.name)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return in, fmt.Errorf("form field %q is not a number: %q", f.name, raw)
		}
		*f.dst = v
	}
	return in, nil
}
