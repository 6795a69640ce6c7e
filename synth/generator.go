// Package synth fabricates Pentacam-style corneal tomography measurements
// for keratoconus severity staging. Each severity stage draws from Gaussian
// distributions whose means shift with disease progression: the cornea thins
// and both surfaces steepen.
package synth

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/bhanuswaroop1247/keratoconus-severity-ml/dataset"
	"github.com/bhanuswaroop1247/keratoconus-severity-ml/pkg/errors"
)

// Per-stage distribution parameters. Stage s shifts each mean linearly.
const (
	pachyMinBase  = 520.0 // µm at stage 0
	pachyMinSlope = 30.0  // thinning per stage
	pachyMinSD    = 20.0

	rmBBase  = 6.5 // mm at stage 0
	rmBSlope = 0.4 // posterior steepening per stage
	rmBSD    = 0.25

	rmFBase  = 7.8 // mm at stage 0
	rmFSlope = 0.35 // anterior steepening per stage
	rmFSD    = 0.3
)

// Generator draws a balanced synthetic dataset across all severity stages.
type Generator struct {
	SamplesPerClass int
	Seed            uint64
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithSamplesPerClass sets the number of samples drawn per severity stage.
func WithSamplesPerClass(n int) GeneratorOption {
	return func(g *Generator) { g.SamplesPerClass = n }
}

// WithSeed sets the random seed for reproducible datasets.
func WithSeed(seed uint64) GeneratorOption {
	return func(g *Generator) { g.Seed = seed }
}

// NewGenerator creates a Generator with the reference defaults: 130 samples
// per stage, seed 42.
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{
		SamplesPerClass: 130,
		Seed:            42,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// StageMeans returns the distribution means for a severity stage, in the
// canonical feature order (Rm_B, Rm_F, Pachy_Min). Useful for plausibility
// checks and for documenting the clinical reference cases.
func StageMeans(stage int) (rmB, rmF, pachyMin float64) {
	s := float64(stage)
	return rmBBase - rmBSlope*s, rmFBase - rmFSlope*s, pachyMinBase - pachyMinSlope*s
}

// Generate draws SamplesPerClass rows for each of the five severity stages,
// concatenates them and shuffles the result.
func (g *Generator) Generate() (*dataset.Table, error) {
	if g.SamplesPerClass <= 0 {
		return nil, errors.NewValidationError("samples_per_class", "must be positive", g.SamplesPerClass)
	}

	src := rand.NewPCG(g.Seed, g.Seed)
	n := g.SamplesPerClass * dataset.NumStages
	x := mat.NewDense(n, 3, nil)
	y := make([]int, n)

	row := 0
	for stage := 0; stage < dataset.NumStages; stage++ {
		rmB, rmF, pachyMin := StageMeans(stage)
		distRmB := distuv.Normal{Mu: rmB, Sigma: rmBSD, Src: src}
		distRmF := distuv.Normal{Mu: rmF, Sigma: rmFSD, Src: src}
		distPachy := distuv.Normal{Mu: pachyMin, Sigma: pachyMinSD, Src: src}

		for i := 0; i < g.SamplesPerClass; i++ {
			x.Set(row, 0, distRmB.Rand())
			x.Set(row, 1, distRmF.Rand())
			x.Set(row, 2, distPachy.Rand())
			y[row] = stage
			row++
		}
	}

	table, err := dataset.New(dataset.DefaultFeatureNames(), x, y)
	if err != nil {
		return nil, err
	}
	return table.Shuffle(g.Seed), nil
}
