// Package metrics は回帰モデルの評価指標を提供する。
package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/bikecast/pkg/errors"
)

// checkPair は入力ベクトルが空でなく同じ長さであることを検証する
func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil || yTrue.IsEmpty() || yTrue.Len() == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	n := yTrue.Len()
	if yPred.IsEmpty() || yPred.Len() != n {
		got := 0
		if !yPred.IsEmpty() {
			got = yPred.Len()
		}
		return 0, errors.NewDimensionError(op, n, got, 0)
	}
	return n, nil
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	d := floats.Distance(rawOf(yTrue), rawOf(yPred), 2)
	return d * d / float64(n), nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return floats.Distance(rawOf(yTrue), rawOf(yPred), 1) / float64(n), nil
}

// R2Score は決定係数（R²）を計算する。
//
// yTrue が定数の場合 R² は定義できない。完全に一致していれば 1、
// そうでなければ 0 を返し、UndefinedMetricWarning を発行する。
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	truth, pred := rawOf(yTrue), rawOf(yPred)

	mean := stat.Mean(truth, nil)
	var tss, rss float64
	for i := 0; i < n; i++ {
		tss += (truth[i] - mean) * (truth[i] - mean)
		rss += (truth[i] - pred[i]) * (truth[i] - pred[i])
	}

	if tss == 0 {
		result := 0.0
		if rss == 0 {
			result = 1.0
		}
		errors.Warn(errors.NewUndefinedMetricWarning("R2Score", "constant y_true", result))
		return result, nil
	}
	return 1 - rss/tss, nil
}

// Scores は RMSE・MAE・R² をまとめて計算した結果
type Scores struct {
	RMSE float64
	MAE  float64
	R2   float64
}

// Score は3つの指標を一度に計算する
func Score(yTrue, yPred *mat.VecDense) (Scores, error) {
	var s Scores
	var err error
	if s.RMSE, err = RMSE(yTrue, yPred); err != nil {
		return Scores{}, err
	}
	if s.MAE, err = MAE(yTrue, yPred); err != nil {
		return Scores{}, err
	}
	if s.R2, err = R2Score(yTrue, yPred); err != nil {
		return Scores{}, err
	}
	return s, nil
}

// AsVector は (n, 1) の予測行列を VecDense に変換する
func AsVector(m mat.Matrix) (*mat.VecDense, error) {
	if v, ok := m.(*mat.VecDense); ok {
		return v, nil
	}
	r, c := m.Dims()
	if r == 0 {
		return nil, errors.NewValueError("AsVector", "empty matrix")
	}
	if c != 1 {
		return nil, errors.NewValueError("AsVector", "must be a column vector (n×1 matrix)")
	}
	return mat.NewVecDense(r, mat.Col(nil, 0, m)), nil
}

// rawOf はストライドを考慮して値をコピーする
func rawOf(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
