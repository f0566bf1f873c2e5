package preprocessing

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bikecast/core/model"
	"github.com/YuminosukeSato/bikecast/pkg/errors"
)

// PolynomialFeatures は次数 1..Degree のすべての単項式を生成する (バイアス列なし)。
// 列順は次数ごとの辞書順で、scikit-learn の PolynomialFeatures(include_bias=False) と同じ。
type PolynomialFeatures struct {
	State  *model.StateManager
	Degree int

	// Powers は出力列ごとの入力列インデックスの組 (重複あり、昇順)
	Powers [][]int
}

// NewPolynomialFeatures は新しいPolynomialFeaturesを作成する
func NewPolynomialFeatures(degree int) *PolynomialFeatures {
	return &PolynomialFeatures{State: model.NewStateManager(), Degree: degree}
}

// Fit は入力の列数を記録し、出力列の組み合わせを決める
func (p *PolynomialFeatures) Fit(X mat.Matrix) error {
	if p.Degree < 1 {
		return errors.NewValidationError("degree", "must be >= 1", p.Degree)
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("PolynomialFeatures.Fit", "empty data", errors.ErrEmptyData)
	}
	p.State.Reset()

	p.Powers = p.Powers[:0]
	for d := 1; d <= p.Degree; d++ {
		combinationsWithReplacement(c, d, func(idx []int) {
			p.Powers = append(p.Powers, append([]int(nil), idx...))
		})
	}

	p.State.SetFitted(c, r)
	return nil
}

// combinationsWithReplacement は {0..n-1} から k 個を重複ありで選ぶ組を辞書順に列挙する
func combinationsWithReplacement(n, k int, fn func([]int)) {
	idx := make([]int, k)
	var rec func(pos, start int)
	rec = func(pos, start int) {
		if pos == k {
			fn(idx)
			return
		}
		for i := start; i < n; i++ {
			idx[pos] = i
			rec(pos+1, i)
		}
	}
	rec(0, 0)
}

// NOutputs は出力列数 C(n+d, d) - 1
func (p *PolynomialFeatures) NOutputs() int {
	return len(p.Powers)
}

// Transform は学習時と同じ列数の行列を多項式特徴量に展開する
func (p *PolynomialFeatures) Transform(X mat.Matrix) (mat.Matrix, error) {
	return p.transformDense(X)
}

func (p *PolynomialFeatures) transformDense(X mat.Matrix) (*mat.Dense, error) {
	if err := p.State.RequireFitted("PolynomialFeatures", "Transform"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := p.State.RequireFeatures("PolynomialFeatures.Transform", c); err != nil {
		return nil, err
	}

	out := mat.NewDense(r, len(p.Powers), nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		for k, idx := range p.Powers {
			v := 1.0
			for _, j := range idx {
				v *= row[j]
			}
			out.Set(i, k, v)
		}
	}
	return out, nil
}

// FitTransform は学習と変換を続けて行う
func (p *PolynomialFeatures) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := p.Fit(X); err != nil {
		return nil, err
	}
	return p.Transform(X)
}

// FeatureNames は "a", "a b", "a^2" 形式の出力列名を返す
func (p *PolynomialFeatures) FeatureNames(inputNames []string) []string {
	names := make([]string, len(p.Powers))
	for k, idx := range p.Powers {
		var parts []string
		for s := 0; s < len(idx); {
			e := s
			for e < len(idx) && idx[e] == idx[s] {
				e++
			}
			if e-s == 1 {
				parts = append(parts, inputNames[idx[s]])
			} else {
				parts = append(parts, fmt.Sprintf("%s^%d", inputNames[idx[s]], e-s))
			}
			s = e
		}
		names[k] = strings.Join(parts, " ")
	}
	return names
}

// ExpandPolynomial は train で基底を学習し、train と test の両方を展開する
func ExpandPolynomial(train, test mat.Matrix, degree int) (*mat.Dense, *mat.Dense, *PolynomialFeatures, error) {
	poly := NewPolynomialFeatures(degree)
	if err := poly.Fit(train); err != nil {
		return nil, nil, nil, err
	}
	trainOut, err := poly.transformDense(train)
	if err != nil {
		return nil, nil, nil, err
	}
	testOut, err := poly.transformDense(test)
	if err != nil {
		return nil, nil, nil, err
	}
	return trainOut, testOut, poly, nil
}
