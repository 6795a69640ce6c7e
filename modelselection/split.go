// Package modelselection provides cross-validation splitters, scoring and
// exhaustive grid search for the training stage.
package modelselection

import (
	"math/rand/v2"
)

// Fold is one train/test index partition.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// Splitter generates cross-validation folds. Labels are passed so that
// stratified splitters can balance class ratios; plain splitters ignore
// them.
type Splitter interface {
	Split(nSamples int, y []int) []Fold
	NumSplits() int
}

// KFold splits samples into k contiguous (optionally shuffled) folds.
type KFold struct {
	NSplits int
	Shuffle bool
	Seed    uint64
}

// NewKFold creates a k-fold splitter. Fewer than two splits falls back to
// five.
func NewKFold(nSplits int, shuffle bool, seed uint64) *KFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &KFold{NSplits: nSplits, Shuffle: shuffle, Seed: seed}
}

// NumSplits returns the number of folds.
func (kf *KFold) NumSplits() int {
	return kf.NSplits
}

// Split generates train/test indices for each fold.
func (kf *KFold) Split(nSamples int, _ []int) []Fold {
	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}

	if kf.Shuffle {
		r := rand.New(rand.NewPCG(kf.Seed, kf.Seed))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]Fold, kf.NSplits)
	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits

	current := 0
	for i := 0; i < kf.NSplits; i++ {
		testSize := foldSize
		if i < remainder {
			testSize++
		}

		test := make([]int, testSize)
		copy(test, indices[current:current+testSize])

		train := make([]int, 0, nSamples-testSize)
		train = append(train, indices[:current]...)
		train = append(train, indices[current+testSize:]...)

		folds[i] = Fold{TrainIndices: train, TestIndices: test}
		current += testSize
	}

	return folds
}

// StratifiedKFold splits samples into k folds that preserve per-class
// ratios.
type StratifiedKFold struct {
	NSplits int
	Shuffle bool
	Seed    uint64
}

// NewStratifiedKFold creates a stratified k-fold splitter.
func NewStratifiedKFold(nSplits int, shuffle bool, seed uint64) *StratifiedKFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &StratifiedKFold{NSplits: nSplits, Shuffle: shuffle, Seed: seed}
}

// NumSplits returns the number of folds.
func (skf *StratifiedKFold) NumSplits() int {
	return skf.NSplits
}

// Split generates stratified train/test indices for each fold.
func (skf *StratifiedKFold) Split(nSamples int, y []int) []Fold {
	classIndices := make(map[int][]int)
	classOrder := make([]int, 0, 8)
	for i := 0; i < nSamples; i++ {
		label := y[i]
		if _, ok := classIndices[label]; !ok {
			classOrder = append(classOrder, label)
		}
		classIndices[label] = append(classIndices[label], i)
	}

	if skf.Shuffle {
		r := rand.New(rand.NewPCG(skf.Seed, skf.Seed))
		for _, label := range classOrder {
			indices := classIndices[label]
			r.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}
	}

	folds := make([]Fold, skf.NSplits)

	// Deal each class across the folds so every fold keeps the class
	// ratio within one sample.
	for _, label := range classOrder {
		indices := classIndices[label]
		nClass := len(indices)
		foldSize := nClass / skf.NSplits
		remainder := nClass % skf.NSplits

		current := 0
		for i := 0; i < skf.NSplits; i++ {
			testSize := foldSize
			if i < remainder {
				testSize++
			}
			folds[i].TestIndices = append(folds[i].TestIndices, indices[current:current+testSize]...)
			current += testSize
		}
	}

	for i := 0; i < skf.NSplits; i++ {
		testSet := make(map[int]bool, len(folds[i].TestIndices))
		for _, idx := range folds[i].TestIndices {
			testSet[idx] = true
		}
		for j := 0; j < nSamples; j++ {
			if !testSet[j] {
				folds[i].TrainIndices = append(folds[i].TrainIndices, j)
			}
		}
	}

	return folds
}
