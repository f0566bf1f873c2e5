package preprocessing

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bikecast/core/model"
	"github.com/YuminosukeSato/bikecast/pkg/errors"
)

// OneHotEncoder は文字列の列を指標列に展開する。
// 学習時に見ていないカテゴリは、その列のブロックがすべて 0 になる
// (scikit-learn の handle_unknown='ignore' と同じ)。
type OneHotEncoder struct {
	State *model.StateManager

	// Categories は列ごとの観測済みカテゴリ (辞書順)
	Categories [][]string

	index []map[string]int
}

// NewOneHotEncoder は新しいOneHotEncoderを作成する
func NewOneHotEncoder() *OneHotEncoder {
	return &OneHotEncoder{State: model.NewStateManager()}
}

// Fit は列ごとの語彙を学習する。columns[j] は j 番目の入力列の値。
func (e *OneHotEncoder) Fit(columns [][]string) error {
	if len(columns) == 0 || len(columns[0]) == 0 {
		return errors.NewModelError("OneHotEncoder.Fit", "empty data", errors.ErrEmptyData)
	}
	nSamples := len(columns[0])
	for j, col := range columns {
		if len(col) != nSamples {
			return errors.NewDimensionError(fmt.Sprintf("OneHotEncoder.Fit column %d", j), nSamples, len(col), 0)
		}
	}
	e.State.Reset()

	e.Categories = make([][]string, len(columns))
	for j, col := range columns {
		seen := make(map[string]struct{})
		for _, v := range col {
			seen[v] = struct{}{}
		}
		cats := make([]string, 0, len(seen))
		for v := range seen {
			cats = append(cats, v)
		}
		sort.Strings(cats)
		e.Categories[j] = cats
	}
	e.buildIndex()

	e.State.SetFitted(len(columns), nSamples)
	return nil
}

func (e *OneHotEncoder) buildIndex() {
	e.index = make([]map[string]int, len(e.Categories))
	for j, cats := range e.Categories {
		m := make(map[string]int, len(cats))
		for k, c := range cats {
			m[c] = k
		}
		e.index[j] = m
	}
}

// NOutputs は出力列数 (全カテゴリ数の合計)
func (e *OneHotEncoder) NOutputs() int {
	n := 0
	for _, cats := range e.Categories {
		n += len(cats)
	}
	return n
}

// Transform は指標行列を返す
func (e *OneHotEncoder) Transform(columns [][]string) (*mat.Dense, error) {
	if err := e.State.RequireFitted("OneHotEncoder", "Transform"); err != nil {
		return nil, err
	}
	if err := e.State.RequireFeatures("OneHotEncoder.Transform", len(columns)); err != nil {
		return nil, err
	}
	if e.index == nil {
		e.buildIndex()
	}

	nSamples := 0
	if len(columns) > 0 {
		nSamples = len(columns[0])
	}
	if nSamples == 0 {
		return nil, errors.NewModelError("OneHotEncoder.Transform", "empty data", errors.ErrEmptyData)
	}

	out := mat.NewDense(nSamples, e.NOutputs(), nil)
	offset := 0
	for j, col := range columns {
		if len(col) != nSamples {
			return nil, errors.NewDimensionError(fmt.Sprintf("OneHotEncoder.Transform column %d", j), nSamples, len(col), 0)
		}
		for i, v := range col {
			if k, ok := e.index[j][v]; ok {
				out.Set(i, offset+k, 1)
			}
		}
		offset += len(e.Categories[j])
	}
	return out, nil
}

// FitTransform は学習と変換を続けて行う
func (e *OneHotEncoder) FitTransform(columns [][]string) (*mat.Dense, error) {
	if err := e.Fit(columns); err != nil {
		return nil, err
	}
	return e.Transform(columns)
}

// FeatureNames は "<列名>_<カテゴリ>" 形式の出力列名を返す
func (e *OneHotEncoder) FeatureNames(inputNames []string) []string {
	names := make([]string, 0, e.NOutputs())
	for j, cats := range e.Categories {
		for _, c := range cats {
			names = append(names, inputNames[j]+"_"+c)
		}
	}
	return names
}
