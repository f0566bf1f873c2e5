package pipeline

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bikecast/core/model"
	"github.com/YuminosukeSato/bikecast/metrics"
	"github.com/YuminosukeSato/bikecast/pkg/errors"
	"github.com/YuminosukeSato/bikecast/pkg/log"
)

// Metrics is the evaluation of one model on the test partition.
type Metrics struct {
	RMSE float64
	MAE  float64
	R2   float64

	Actual      *mat.VecDense
	Predictions *mat.VecDense // clamped to >= 0
}

// AsMap returns the scores keyed by metric name.
func (m Metrics) AsMap() map[string]float64 {
	return map[string]float64{
		"rmse": m.RMSE,
		"mae":  m.MAE,
		"r2":   m.R2,
	}
}

// Evaluate predicts X, clamps negative predictions to zero and scores them
// against y. Only empty or misaligned input is an error; a panic inside
// Predict comes back as *errors.PanicError.
func Evaluate(m model.Predictor, X mat.Matrix, y *mat.VecDense) (Metrics, error) {
	if y == nil || y.IsEmpty() {
		return Metrics{}, errors.NewValueError("Evaluate", "empty target")
	}
	if r, _ := X.Dims(); r != y.Len() {
		return Metrics{}, errors.NewDimensionError("Evaluate", y.Len(), r, 0)
	}

	var raw mat.Matrix
	err := errors.SafeExecute("Evaluate.Predict", func() error {
		var perr error
		raw, perr = m.Predict(X)
		return perr
	})
	if err != nil {
		return Metrics{}, err
	}
	pred, err := metrics.AsVector(raw)
	if err != nil {
		return Metrics{}, err
	}
	pred = ClampNonNegative(pred)

	s, err := metrics.Score(y, pred)
	if err != nil {
		return Metrics{}, err
	}
	log.GetLoggerWithName("pipeline").Debug("Scored predictions",
		log.OperationKey, log.OperationScore,
		log.SamplesKey, y.Len(),
	)
	return Metrics{RMSE: s.RMSE, MAE: s.MAE, R2: s.R2, Actual: y, Predictions: pred}, nil
}

// ClampNonNegative returns a copy of v with negative entries set to zero.
func ClampNonNegative(v *mat.VecDense) *mat.VecDense {
	out := mat.NewVecDense(v.Len(), nil)
	for i := 0; i < v.Len(); i++ {
		out.SetVec(i, max(v.AtVec(i), 0))
	}
	return out
}
