package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bikecast/pkg/errors"
)

func vec(v ...float64) *mat.VecDense {
	return mat.NewVecDense(len(v), v)
}

func TestPointwiseMetrics(t *testing.T) {
	tests := []struct {
		name     string
		yTrue    *mat.VecDense
		yPred    *mat.VecDense
		wantMSE  float64
		wantRMSE float64
		wantMAE  float64
	}{
		{
			name:  "perfect prediction",
			yTrue: vec(1, 2, 3, 4, 5),
			yPred: vec(1, 2, 3, 4, 5),
		},
		{
			name:     "simple case",
			yTrue:    vec(1, 2, 3, 4),
			yPred:    vec(1.5, 2.5, 2.5, 3.5),
			wantMSE:  0.25,
			wantRMSE: 0.5,
			wantMAE:  0.5,
		},
		{
			name:     "larger errors",
			yTrue:    vec(10, 20, 30),
			yPred:    vec(12, 18, 33),
			wantMSE:  17.0 / 3.0, // (4 + 4 + 9) / 3
			wantRMSE: math.Sqrt(17.0 / 3.0),
			wantMAE:  7.0 / 3.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mse, err := MSE(tt.yTrue, tt.yPred)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantMSE, mse, 1e-10)

			rmse, err := RMSE(tt.yTrue, tt.yPred)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantRMSE, rmse, 1e-10)

			mae, err := MAE(tt.yTrue, tt.yPred)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantMAE, mae, 1e-10)
		})
	}
}

func TestR2Score(t *testing.T) {
	r2, err := R2Score(vec(3, -0.5, 2, 7), vec(2.5, 0, 2, 8))
	require.NoError(t, err)
	assert.InDelta(t, 0.9486081370449679, r2, 1e-12)

	r2, err = R2Score(vec(1, 2, 3), vec(3, 2, 1))
	require.NoError(t, err)
	assert.InDelta(t, -3.0, r2, 1e-12)
}

func TestR2Score_ConstantTargetWarns(t *testing.T) {
	var warnings []error
	errors.SetZerologWarnFunc(func(w error) { warnings = append(warnings, w) })
	t.Cleanup(func() { errors.SetZerologWarnFunc(nil) })

	r2, err := R2Score(vec(5, 5, 5), vec(5, 5, 5))
	require.NoError(t, err)
	assert.Equal(t, 1.0, r2)

	r2, err = R2Score(vec(5, 5, 5), vec(4, 5, 6))
	require.NoError(t, err)
	assert.Equal(t, 0.0, r2)

	require.Len(t, warnings, 2)
	var w *errors.UndefinedMetricWarning
	require.True(t, errors.As(warnings[1], &w))
	assert.Equal(t, "R2Score", w.Metric)
	assert.Equal(t, 0.0, w.Result)
}

func TestMetrics_InvalidInput(t *testing.T) {
	fns := map[string]func(a, b *mat.VecDense) (float64, error){
		"MSE":  MSE,
		"RMSE": RMSE,
		"MAE":  MAE,
		"R2":   R2Score,
	}
	for name, fn := range fns {
		t.Run(name, func(t *testing.T) {
			_, err := fn(&mat.VecDense{}, &mat.VecDense{})
			var ve *errors.ValueError
			assert.True(t, errors.As(err, &ve))

			_, err = fn(vec(1, 2, 3), vec(1, 2))
			var de *errors.DimensionError
			assert.True(t, errors.As(err, &de))
		})
	}
}

func TestScore(t *testing.T) {
	s, err := Score(vec(1, 2, 3, 4), vec(1.5, 2.5, 2.5, 3.5))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, s.RMSE, 1e-12)
	assert.InDelta(t, 0.5, s.MAE, 1e-12)
	assert.InDelta(t, 0.8, s.R2, 1e-12)
}

func TestAsVector(t *testing.T) {
	v, err := AsVector(mat.NewDense(3, 1, []float64{1, 2, 3}))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, v.RawVector().Data)

	_, err = AsVector(mat.NewDense(2, 2, nil))
	assert.Error(t, err)
}
