package modelselection

import (
	"sort"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bikecast/pkg/errors"
)

// frame returns n rows where column "id" equals the row position and y = 10*id.
func frame(n int) (dataframe.DataFrame, *mat.VecDense) {
	ids := make([]int, n)
	ys := make([]float64, n)
	for i := range ids {
		ids[i] = i
		ys[i] = float64(10 * i)
	}
	return dataframe.New(series.New(ids, series.Int, "id")), mat.NewVecDense(n, ys)
}

func TestTestSize(t *testing.T) {
	assert.Equal(t, 2, TestSize(10, 0.2))
	assert.Equal(t, 3, TestSize(11, 0.2))
	assert.Equal(t, 1752, TestSize(8760, 0.2))
}

func TestTrainTestSplit_SizesAndAlignment(t *testing.T) {
	X, y := frame(11)
	s, err := TrainTestSplit(X, y, 0.2, 42)
	require.NoError(t, err)

	assert.Equal(t, 3, s.XTest.Nrow())
	assert.Equal(t, 8, s.XTrain.Nrow())
	assert.Equal(t, 3, s.YTest.Len())
	assert.Equal(t, 8, s.YTrain.Len())

	for i, id := range s.XTrain.Col("id").Float() {
		assert.Equal(t, 10*id, s.YTrain.AtVec(i))
		assert.Equal(t, float64(s.TrainIndex[i]), id)
	}
	for i, id := range s.XTest.Col("id").Float() {
		assert.Equal(t, 10*id, s.YTest.AtVec(i))
	}

	all := append(append([]int(nil), s.TrainIndex...), s.TestIndex...)
	sort.Ints(all)
	want := make([]int, 11)
	for i := range want {
		want[i] = i
	}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Errorf("partition is not a cover of the rows (-want +got):\n%s", diff)
	}
}

func TestTrainTestSplit_Deterministic(t *testing.T) {
	X, y := frame(50)
	a, err := TrainTestSplit(X, y, 0.2, 42)
	require.NoError(t, err)
	b, err := TrainTestSplit(X, y, 0.2, 42)
	require.NoError(t, err)
	c, err := TrainTestSplit(X, y, 0.2, 7)
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(a.TestIndex, b.TestIndex))
	assert.Empty(t, cmp.Diff(a.TrainIndex, b.TrainIndex))
	assert.NotEmpty(t, cmp.Diff(a.TestIndex, c.TestIndex))
}

func TestTrainTestSplit_Validation(t *testing.T) {
	X, y := frame(5)
	tests := []struct {
		name     string
		fraction float64
		y        *mat.VecDense
	}{
		{"zero fraction", 0, y},
		{"one fraction", 1, y},
		{"negative fraction", -0.5, y},
		{"misaligned y", 0.2, mat.NewVecDense(4, nil)},
		{"nil y", 0.2, nil},
		{"empty train", 0.99, y},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TrainTestSplit(X, tt.y, tt.fraction, 42)
			var ve *errors.ValidationError
			assert.True(t, errors.As(err, &ve), "got %v", err)
		})
	}
}
