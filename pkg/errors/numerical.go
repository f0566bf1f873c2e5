package errors

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
)

// NumericalInstabilityError は入力や計算結果にNaN・Infが含まれていた場合のエラーです。
type NumericalInstabilityError struct {
	Operation string    // 発生した操作（例: "LinearRegression.Fit"）
	Values    []float64 // 問題のある値
	Row       int       // 最初に検出された行
	Col       int       // 最初に検出された列
}

func (e *NumericalInstabilityError) Error() string {
	return fmt.Sprintf("bikecast: non-finite value detected in %s at (%d, %d): %v",
		e.Operation, e.Row, e.Col, e.Values)
}

// CheckMatrix checks all values in a matrix for NaN or Inf.
// Only the first offending value is reported.
func CheckMatrix(operation string, matrix interface{ At(int, int) float64 }, rows, cols int) error {
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := matrix.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.WithStack(&NumericalInstabilityError{
					Operation: operation,
					Values:    []float64{v},
					Row:       i,
					Col:       j,
				})
			}
		}
	}
	return nil
}

// SafeDivide returns a/b, or fallback when b is zero or the quotient is not finite.
func SafeDivide(a, b, fallback float64) float64 {
	if b == 0 {
		return fallback
	}
	q := a / b
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return fallback
	}
	return q
}
