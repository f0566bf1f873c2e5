// Package linear は切片付きの最小二乗線形回帰を提供します。
package linear

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bikecast/core/model"
	"github.com/YuminosukeSato/bikecast/core/parallel"
	"github.com/YuminosukeSato/bikecast/pkg/errors"
	"github.com/YuminosukeSato/bikecast/pkg/log"
)

const (
	// 並列処理の閾値（この値以下の行数では逐次処理を使用）
	parallelThreshold = 1000

	// rankTolerance 最大特異値に対する比がこれ以下の特異値は 0 とみなす
	rankTolerance = 1e-10
)

// LinearRegression は線形回帰モデル
//
// X と y を中心化してから SVD による最小ノルム最小二乗解を求める。
// one-hot ブロックと切片のように列が線形従属でもエラーにはならず、
// 係数ノルムが最小の解を返す (numpy.linalg.lstsq と同じ)。
type LinearRegression struct {
	State *model.StateManager

	Coef      []float64 // 重み（係数）
	Intercept float64   // 切片
	Rank      int       // 中心化した X の数値ランク
	Singular  []float64 // 中心化した X の特異値
}

// NewLinearRegression は新しい線形回帰モデルを作成する
func NewLinearRegression() *LinearRegression {
	return &LinearRegression{State: model.NewStateManager()}
}

// Fit はモデルを訓練データで学習させる
func (lr *LinearRegression) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "LinearRegression.Fit")

	r, c := X.Dims()
	ry, cy := y.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("LinearRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return errors.NewDimensionError("LinearRegression.Fit", r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("LinearRegression.Fit", "y must be a column vector")
	}
	if err := errors.CheckMatrix("LinearRegression.Fit", X, r, c); err != nil {
		return err
	}
	lr.State.Reset()

	xMean := make([]float64, c)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			xMean[j] += X.At(i, j)
		}
		xMean[j] /= float64(r)
	}
	yMean := 0.0
	yc := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		yMean += y.At(i, 0)
	}
	yMean /= float64(r)
	for i := 0; i < r; i++ {
		yc.SetVec(i, y.At(i, 0)-yMean)
	}

	Xc := mat.NewDense(r, c, nil)
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			for j := 0; j < c; j++ {
				Xc.Set(i, j, X.At(i, j)-xMean[j])
			}
		}
	})

	var svd mat.SVD
	if ok := svd.Factorize(Xc, mat.SVDThin); !ok {
		return errors.NewModelError("LinearRegression.Fit", "SVD factorization failed", errors.ErrSingularMatrix)
	}
	rank := svd.Rank(rankTolerance)
	if rank == 0 {
		// X が定数列のみの場合は切片だけのモデル
		lr.Coef = make([]float64, c)
		lr.Intercept = yMean
		lr.Rank = 0
		lr.Singular = svd.Values(nil)
		lr.State.SetFitted(c, r)
		return nil
	}

	var coef mat.VecDense
	svd.SolveVecTo(&coef, yc, rank)

	lr.Coef = make([]float64, c)
	intercept := yMean
	for j := 0; j < c; j++ {
		lr.Coef[j] = coef.AtVec(j)
		intercept -= xMean[j] * lr.Coef[j]
	}
	lr.Intercept = intercept
	lr.Rank = rank
	lr.Singular = svd.Values(nil)

	lr.State.SetFitted(c, r)
	log.GetLoggerWithName("linear").Debug("Fitted linear regression",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, r,
		log.FeaturesKey, c,
		"rank", rank,
	)
	return nil
}

// Predict は入力データに対する予測を行う
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.State.RequireFitted("LinearRegression", "Predict"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := lr.State.RequireFeatures("LinearRegression.Predict", c); err != nil {
		return nil, err
	}

	// 予測: y = X * coef + intercept
	predictions := mat.NewVecDense(r, nil)
	predictions.MulVec(X, mat.NewVecDense(c, lr.Coef))
	for i := 0; i < r; i++ {
		predictions.SetVec(i, predictions.AtVec(i)+lr.Intercept)
	}
	log.GetLoggerWithName("linear").Debug("Predicted",
		log.OperationKey, log.OperationPredict,
		log.SamplesKey, r,
	)
	return predictions, nil
}

// IsFitted はモデルが学習済みかどうかを返す
func (lr *LinearRegression) IsFitted() bool {
	return lr.State != nil && lr.State.IsFitted()
}

// String はモデルの文字列表現を返す
func (lr *LinearRegression) String() string {
	if !lr.IsFitted() {
		return "LinearRegression()"
	}
	return fmt.Sprintf("LinearRegression(n_features=%d, rank=%d, intercept=%.4f)", len(lr.Coef), lr.Rank, lr.Intercept)
}
