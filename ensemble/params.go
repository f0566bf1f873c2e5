// Package ensemble implements squared-error gradient boosting over exact
// greedy, depth-wise regression trees with per-tree row and column sampling.
package ensemble

import (
	"runtime"

	"github.com/YuminosukeSato/bikecast/pkg/errors"
)

// Params contains all training hyperparameters.
type Params struct {
	NEstimators     int     // Number of boosting rounds
	LearningRate    float64 // Shrinkage applied to every tree
	MaxDepth        int     // Maximum tree depth
	Subsample       float64 // Fraction of rows drawn (without replacement) per tree
	ColsampleByTree float64 // Fraction of columns drawn per tree
	Lambda          float64 // L2 regularization on leaf weights
	MinChildWeight  float64 // Minimum sum of hessians in a child
	MinSplitGain    float64 // A split must improve the objective by more than this
	Seed            uint64  // Random seed
	NumThreads      int     // Workers for split search and prediction; 0 means NumCPU
}

// DefaultParams returns the fixed configuration used by the bike-rental model:
// 200 trees, learning rate 0.05, depth 6, 80% row and column sampling, seed 42.
func DefaultParams() Params {
	return Params{
		NEstimators:     200,
		LearningRate:    0.05,
		MaxDepth:        6,
		Subsample:       0.8,
		ColsampleByTree: 0.8,
		Lambda:          1.0,
		MinChildWeight:  1.0,
		MinSplitGain:    0,
		Seed:            42,
	}
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	switch {
	case p.NEstimators < 1:
		return errors.NewValidationError("n_estimators", "must be >= 1", p.NEstimators)
	case p.LearningRate <= 0:
		return errors.NewValidationError("learning_rate", "must be > 0", p.LearningRate)
	case p.MaxDepth < 1:
		return errors.NewValidationError("max_depth", "must be >= 1", p.MaxDepth)
	case p.Subsample <= 0 || p.Subsample > 1:
		return errors.NewValidationError("subsample", "must be in (0, 1]", p.Subsample)
	case p.ColsampleByTree <= 0 || p.ColsampleByTree > 1:
		return errors.NewValidationError("colsample_bytree", "must be in (0, 1]", p.ColsampleByTree)
	case p.Lambda < 0:
		return errors.NewValidationError("lambda", "must be >= 0", p.Lambda)
	case p.MinChildWeight < 0:
		return errors.NewValidationError("min_child_weight", "must be >= 0", p.MinChildWeight)
	case p.NumThreads < 0:
		return errors.NewValidationError("num_threads", "must be >= 0", p.NumThreads)
	}
	return nil
}

func (p Params) workers() int {
	if p.NumThreads > 0 {
		return p.NumThreads
	}
	return runtime.NumCPU()
}
