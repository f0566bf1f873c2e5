package ensemble

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bikecast/core/model"
	"github.com/YuminosukeSato/bikecast/core/parallel"
	"github.com/YuminosukeSato/bikecast/pkg/errors"
	"github.com/YuminosukeSato/bikecast/pkg/log"
)

// GradientBoostingRegressor is a squared-error gradient boosted tree
// ensemble. The prediction is BaseScore plus the shrunk output of every tree.
type GradientBoostingRegressor struct {
	State  *model.StateManager
	Params Params

	BaseScore float64 // mean of the training target
	Trees     []Tree
	TrainLoss []float64 // training MSE after each round
}

// NewGradientBoostingRegressor creates an unfitted regressor.
func NewGradientBoostingRegressor(params Params) *GradientBoostingRegressor {
	return &GradientBoostingRegressor{
		State:  model.NewStateManager(),
		Params: params,
	}
}

// Fit trains the ensemble from scratch, discarding any previous fit.
func (g *GradientBoostingRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "GradientBoostingRegressor.Fit")

	if err := g.Params.Validate(); err != nil {
		return err
	}
	rows, cols := X.Dims()
	ry, cy := y.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("GradientBoostingRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if ry != rows {
		return errors.NewDimensionError("GradientBoostingRegressor.Fit", rows, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("GradientBoostingRegressor.Fit", "y must be a column vector")
	}
	if err := errors.CheckMatrix("GradientBoostingRegressor.Fit", X, rows, cols); err != nil {
		return err
	}

	g.State.Reset()
	g.Trees = nil
	g.TrainLoss = nil

	xDense := mat.DenseCopyOf(X)
	target := mat.Col(nil, 0, y)
	g.BaseScore = floats.Sum(target) / float64(rows)

	start := time.Now()
	t := newTrainer(xDense, target, g.Params, g.BaseScore)
	g.Trees, g.TrainLoss = t.run()
	g.State.SetFitted(cols, rows)

	log.GetLoggerWithName("ensemble").Info("Fitted gradient boosting",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		"trees", len(g.Trees),
		log.LearningRateKey, g.Params.LearningRate,
		log.LossKey, g.TrainLoss[len(g.TrainLoss)-1],
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// Predict returns one prediction per row of X as an (n, 1) vector.
func (g *GradientBoostingRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := g.State.RequireFitted("GradientBoostingRegressor", "Predict"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := g.State.RequireFeatures("GradientBoostingRegressor.Predict", cols); err != nil {
		return nil, err
	}

	out := make([]float64, rows)
	parallel.ParallelizeWorkers(rows, g.predictWorkers(rows), func(start, end int) {
		row := make([]float64, cols)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			v := g.BaseScore
			for k := range g.Trees {
				v += g.Trees[k].Predict(row)
			}
			out[i] = v
		}
	})
	log.GetLoggerWithName("ensemble").Debug("Predicted",
		log.OperationKey, log.OperationPredict,
		log.SamplesKey, rows,
	)
	return mat.NewVecDense(rows, out), nil
}

func (g *GradientBoostingRegressor) predictWorkers(rows int) int {
	if rows < 512 {
		return 1
	}
	return g.Params.workers()
}

// IsFitted reports whether Fit has completed.
func (g *GradientBoostingRegressor) IsFitted() bool {
	return g.State != nil && g.State.IsFitted()
}

// FeatureImportances returns the total split gain per feature, normalized
// to sum to 1. Features never split on get 0.
func (g *GradientBoostingRegressor) FeatureImportances() ([]float64, error) {
	if err := g.State.RequireFitted("GradientBoostingRegressor", "FeatureImportances"); err != nil {
		return nil, err
	}
	nFeatures, _ := g.State.GetDimensions()
	imp := make([]float64, nFeatures)
	for k := range g.Trees {
		for _, n := range g.Trees[k].Nodes {
			if !n.IsLeaf() {
				imp[n.SplitFeature] += n.Gain
			}
		}
	}
	if total := floats.Sum(imp); total > 0 {
		floats.Scale(1/total, imp)
	}
	return imp, nil
}

// String returns a short description of the ensemble.
func (g *GradientBoostingRegressor) String() string {
	if !g.IsFitted() {
		return fmt.Sprintf("GradientBoostingRegressor(n_estimators=%d, learning_rate=%g, max_depth=%d)",
			g.Params.NEstimators, g.Params.LearningRate, g.Params.MaxDepth)
	}
	nFeatures, _ := g.State.GetDimensions()
	return fmt.Sprintf("GradientBoostingRegressor(trees=%d, n_features=%d, base_score=%.4f)",
		len(g.Trees), nFeatures, g.BaseScore)
}
