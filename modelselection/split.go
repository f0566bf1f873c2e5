// Package modelselection partitions a dataset into train and test sets.
package modelselection

import (
	"math"
	"math/rand/v2"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bikecast/pkg/errors"
)

// Split is one train/test partition. X and y rows stay aligned.
type Split struct {
	XTrain dataframe.DataFrame
	XTest  dataframe.DataFrame
	YTrain *mat.VecDense
	YTest  *mat.VecDense

	TrainIndex []int // row positions in the input
	TestIndex  []int
}

// TestSize returns ceil(testFraction * n), the number of test rows.
func TestSize(n int, testFraction float64) int {
	return int(math.Ceil(testFraction * float64(n)))
}

// Permutation returns a shuffled [0, n) drawn from a PCG stream seeded with seed.
func Permutation(n int, seed uint64) []int {
	rng := rand.New(rand.NewPCG(seed, seed))
	return rng.Perm(n)
}

// TrainTestSplit shuffles rows with seed and puts the first
// ceil(testFraction*n) of the permutation in the test set.
// The same seed and input always give the same partition.
func TrainTestSplit(X dataframe.DataFrame, y *mat.VecDense, testFraction float64, seed uint64) (Split, error) {
	if X.Err != nil {
		return Split{}, errors.Wrap(X.Err, "train test split")
	}
	if testFraction <= 0 || testFraction >= 1 || math.IsNaN(testFraction) {
		return Split{}, errors.NewValidationError("test_fraction", "must be in (0, 1)", testFraction)
	}
	n := X.Nrow()
	if y == nil || y.Len() != n {
		got := 0
		if y != nil {
			got = y.Len()
		}
		return Split{}, errors.NewValidationError("y", "row count differs from X", got)
	}
	nTest := TestSize(n, testFraction)
	if nTest < 1 || n-nTest < 1 {
		return Split{}, errors.NewValidationError("test_fraction", "leaves an empty partition", n)
	}

	perm := Permutation(n, seed)
	testIdx := append([]int(nil), perm[:nTest]...)
	trainIdx := append([]int(nil), perm[nTest:]...)

	s := Split{
		XTrain:     X.Subset(trainIdx),
		XTest:      X.Subset(testIdx),
		YTrain:     takeRows(y, trainIdx),
		YTest:      takeRows(y, testIdx),
		TrainIndex: trainIdx,
		TestIndex:  testIdx,
	}
	if s.XTrain.Err != nil {
		return Split{}, errors.Wrap(s.XTrain.Err, "subset train rows")
	}
	if s.XTest.Err != nil {
		return Split{}, errors.Wrap(s.XTest.Err, "subset test rows")
	}
	return s, nil
}

func takeRows(v *mat.VecDense, idx []int) *mat.VecDense {
	out := make([]float64, len(idx))
	for i, r := range idx {
		out[i] = v.AtVec(r)
	}
	return mat.NewVecDense(len(out), out)
}
