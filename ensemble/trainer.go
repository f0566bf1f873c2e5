package ensemble

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bikecast/core/parallel"
	"github.com/YuminosukeSato/bikecast/pkg/errors"
	"github.com/YuminosukeSato/bikecast/pkg/log"
)

// minParallelWork is the rows*columns product below which split search stays
// on the calling goroutine.
const minParallelWork = 8192

// splitInfo contains information about a candidate split.
type splitInfo struct {
	Feature   int
	Threshold float64
	Gain      float64
}

// trainer holds the per-fit working state. It is discarded after Fit.
type trainer struct {
	params Params
	X      *mat.Dense
	nRows  int
	nCols  int

	y    []float64
	grad []float64
	hess []float64
	pred []float64 // cached ensemble prediction per training row

	orderedIdx [][]int // rows sorted by value, per column
	goLeft     []bool  // scratch for partitioning
	sampler    *sampler
	logger     log.Logger
}

func newTrainer(X *mat.Dense, y []float64, params Params, baseScore float64) *trainer {
	rows, cols := X.Dims()
	t := &trainer{
		params:  params,
		X:       X,
		nRows:   rows,
		nCols:   cols,
		y:       y,
		grad:    make([]float64, rows),
		hess:    make([]float64, rows),
		pred:    make([]float64, rows),
		goLeft:  make([]bool, rows),
		sampler: newSampler(params),
		logger:  log.GetLoggerWithName("ensemble.trainer"),
	}
	for i := range t.pred {
		t.pred[i] = baseScore
	}

	// Create sorted indices for each feature
	t.orderedIdx = make([][]int, cols)
	parallel.ParallelizeWorkers(cols, params.workers(), func(start, end int) {
		for j := start; j < end; j++ {
			indices := make([]int, rows)
			for i := range indices {
				indices[i] = i
			}
			feature := j
			sort.SliceStable(indices, func(a, b int) bool {
				return X.At(indices[a], feature) < X.At(indices[b], feature)
			})
			t.orderedIdx[j] = indices
		}
	})
	return t
}

// run trains all trees and returns them with the per-round training MSE.
func (t *trainer) run() ([]Tree, []float64) {
	trees := make([]Tree, 0, t.params.NEstimators)
	losses := make([]float64, 0, t.params.NEstimators)

	for iter := 0; iter < t.params.NEstimators; iter++ {
		t.calculateGradients()

		rows := t.sampler.sampleRows(t.nRows)
		cols := t.sampler.sampleColumns(t.nCols)
		tree := t.buildTree(rows, cols)
		trees = append(trees, tree)

		t.updatePredictions(&tree)
		loss := t.calculateLoss()
		losses = append(losses, loss)

		if iter%50 == 0 || iter == t.params.NEstimators-1 {
			t.logger.Debug("Training progress",
				log.IterationKey, iter,
				log.LossKey, loss,
			)
		}
	}
	return trees, losses
}

// calculateGradients computes squared-error gradients (pred - y) and unit hessians.
func (t *trainer) calculateGradients() {
	for i := 0; i < t.nRows; i++ {
		t.grad[i] = t.pred[i] - t.y[i]
		t.hess[i] = 1.0
	}
}

// updatePredictions adds the new tree's output to the cached predictions.
func (t *trainer) updatePredictions(tree *Tree) {
	parallel.ParallelizeWithThreshold(t.nRows, 1024, func(start, end int) {
		row := make([]float64, t.nCols)
		for i := start; i < end; i++ {
			mat.Row(row, i, t.X)
			t.pred[i] += tree.Predict(row)
		}
	})
}

func (t *trainer) calculateLoss() float64 {
	loss := 0.0
	for i := 0; i < t.nRows; i++ {
		d := t.pred[i] - t.y[i]
		loss += d * d
	}
	return loss / float64(t.nRows)
}

// buildTree grows one tree on the sampled rows, searching splits only over
// the sampled columns.
func (t *trainer) buildTree(rows, cols []int) Tree {
	inSample := make([]bool, t.nRows)
	for _, r := range rows {
		inSample[r] = true
	}
	sorted := make([][]int, len(cols))
	for k, j := range cols {
		order := make([]int, 0, len(rows))
		for _, i := range t.orderedIdx[j] {
			if inSample[i] {
				order = append(order, i)
			}
		}
		sorted[k] = order
	}

	tree := Tree{ShrinkageRate: t.params.LearningRate}
	t.buildNode(&tree, rows, cols, sorted, 0)
	return tree
}

// buildNode recursively builds tree nodes and returns the new node's index.
func (t *trainer) buildNode(tree *Tree, rows, cols []int, sorted [][]int, depth int) int {
	sumGrad, sumHess := 0.0, 0.0
	for _, i := range rows {
		sumGrad += t.grad[i]
		sumHess += t.hess[i]
	}

	nodeIdx := len(tree.Nodes)
	tree.Nodes = append(tree.Nodes, Node{
		LeftChild:  -1,
		RightChild: -1,
		LeafValue:  t.leafValue(sumGrad, sumHess),
		Count:      len(rows),
	})

	if depth >= t.params.MaxDepth || len(rows) < 2 {
		return nodeIdx
	}

	best := t.findBestSplit(cols, sorted, sumGrad, sumHess)
	if best.Feature < 0 || best.Gain <= t.params.MinSplitGain {
		return nodeIdx
	}

	// Split data
	for _, i := range rows {
		t.goLeft[i] = t.X.At(i, best.Feature) <= best.Threshold
	}
	var leftRows, rightRows []int
	for _, i := range rows {
		if t.goLeft[i] {
			leftRows = append(leftRows, i)
		} else {
			rightRows = append(rightRows, i)
		}
	}
	leftSorted := make([][]int, len(cols))
	rightSorted := make([][]int, len(cols))
	for k, order := range sorted {
		l := make([]int, 0, len(leftRows))
		r := make([]int, 0, len(rightRows))
		for _, i := range order {
			if t.goLeft[i] {
				l = append(l, i)
			} else {
				r = append(r, i)
			}
		}
		leftSorted[k], rightSorted[k] = l, r
	}

	left := t.buildNode(tree, leftRows, cols, leftSorted, depth+1)
	right := t.buildNode(tree, rightRows, cols, rightSorted, depth+1)

	node := &tree.Nodes[nodeIdx]
	node.LeftChild = left
	node.RightChild = right
	node.SplitFeature = best.Feature
	node.Threshold = best.Threshold
	node.Gain = best.Gain
	return nodeIdx
}

// findBestSplit searches every sampled column. Ties keep the lowest column
// index, so the result does not depend on scheduling.
func (t *trainer) findBestSplit(cols []int, sorted [][]int, sumGrad, sumHess float64) splitInfo {
	best := splitInfo{Feature: -1, Gain: math.Inf(-1)}
	if len(cols) == 0 {
		return best
	}
	results := make([]splitInfo, len(cols))
	workers := t.params.workers()
	if len(cols)*len(sorted[0]) < minParallelWork {
		workers = 1
	}
	parallel.ParallelizeWorkers(len(cols), workers, func(start, end int) {
		for k := start; k < end; k++ {
			results[k] = t.findBestSplitForFeature(cols[k], sorted[k], sumGrad, sumHess)
		}
	})

	for _, s := range results {
		if s.Feature >= 0 && s.Gain > best.Gain {
			best = s
		}
	}
	return best
}

// findBestSplitForFeature scans the rows in value order and evaluates the
// gain at every boundary between distinct values.
func (t *trainer) findBestSplitForFeature(feature int, order []int, totalGrad, totalHess float64) splitInfo {
	best := splitInfo{Feature: -1, Gain: math.Inf(-1)}
	parentScore := t.score(totalGrad, totalHess)

	leftGrad, leftHess := 0.0, 0.0
	for pos := 0; pos < len(order)-1; pos++ {
		idx := order[pos]
		leftGrad += t.grad[idx]
		leftHess += t.hess[idx]

		value := t.X.At(idx, feature)
		next := t.X.At(order[pos+1], feature)
		if value == next {
			continue
		}

		rightGrad := totalGrad - leftGrad
		rightHess := totalHess - leftHess
		if leftHess < t.params.MinChildWeight || rightHess < t.params.MinChildWeight {
			continue
		}

		gain := 0.5 * (t.score(leftGrad, leftHess) + t.score(rightGrad, rightHess) - parentScore)
		if gain > best.Gain {
			best = splitInfo{
				Feature:   feature,
				Threshold: (value + next) / 2,
				Gain:      gain,
			}
		}
	}
	return best
}

func (t *trainer) score(g, h float64) float64 {
	return errors.SafeDivide(g*g, h+t.params.Lambda, 0)
}

// leafValue is the optimal weight with L2 regularization.
func (t *trainer) leafValue(g, h float64) float64 {
	return errors.SafeDivide(-g, h+t.params.Lambda, 0)
}
