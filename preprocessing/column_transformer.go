package preprocessing

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bikecast/core/model"
	"github.com/YuminosukeSato/bikecast/pkg/errors"
	"github.com/YuminosukeSato/bikecast/pkg/log"
)

// Kind は列に適用する変換の種類
type Kind int

const (
	// Numeric は StandardScaler で標準化する列
	Numeric Kind = iota
	// Categorical は OneHotEncoder で展開する列
	Categorical
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Route は列名と変換の対応
type Route struct {
	Column string
	Kind   Kind
}

// ColumnTransformer は列ごとのルーティング表に従って DataFrame を数値行列に変換する。
//
// 出力列は数値列 (ルーティング順) の後にカテゴリ列の指標ブロック
// (ルーティング順) が続く。Fit は訓練データに対して一度だけ呼び、
// 同じ学習済み状態で訓練・評価の両方を Transform する。
type ColumnTransformer struct {
	State  *model.StateManager
	Routes []Route

	Scaler  *StandardScaler
	Encoder *OneHotEncoder

	logger log.Logger
}

// NewColumnTransformer はカテゴリ列と数値列のリストからルーティング表を作る。
// 2 つのリストは重複してはならず、同じリスト内でも重複は許されない。
func NewColumnTransformer(categorical, numerical []string) (*ColumnTransformer, error) {
	seen := make(map[string]Kind, len(categorical)+len(numerical))
	routes := make([]Route, 0, len(categorical)+len(numerical))

	add := func(col string, kind Kind) error {
		if prev, ok := seen[col]; ok {
			return errors.NewValidationError("columns",
				fmt.Sprintf("column routed twice (%s and %s)", prev, kind), col)
		}
		seen[col] = kind
		routes = append(routes, Route{Column: col, Kind: kind})
		return nil
	}
	for _, col := range numerical {
		if err := add(col, Numeric); err != nil {
			return nil, err
		}
	}
	for _, col := range categorical {
		if err := add(col, Categorical); err != nil {
			return nil, err
		}
	}
	if len(routes) == 0 {
		return nil, errors.NewValidationError("columns", "no columns to transform", routes)
	}

	return &ColumnTransformer{
		State:   model.NewStateManager(),
		Routes:  routes,
		Scaler:  NewStandardScaler(),
		Encoder: NewOneHotEncoder(),
		logger:  log.GetLoggerWithName("preprocessing").With(log.ModelNameKey, "ColumnTransformer"),
	}, nil
}

// NumericColumns は数値として扱う列名をルーティング順に返す
func (ct *ColumnTransformer) NumericColumns() []string {
	return ct.columnsOf(Numeric)
}

// CategoricalColumns はカテゴリとして扱う列名をルーティング順に返す
func (ct *ColumnTransformer) CategoricalColumns() []string {
	return ct.columnsOf(Categorical)
}

func (ct *ColumnTransformer) columnsOf(kind Kind) []string {
	var cols []string
	for _, r := range ct.Routes {
		if r.Kind == kind {
			cols = append(cols, r.Column)
		}
	}
	return cols
}

// Fit は数値列の平均・標準偏差とカテゴリ列の語彙を X から学習する
func (ct *ColumnTransformer) Fit(X dataframe.DataFrame) error {
	ct.State.Reset()

	num, cat, err := ct.extract(X, "ColumnTransformer.Fit")
	if err != nil {
		return err
	}
	if num != nil {
		if err := ct.Scaler.Fit(num); err != nil {
			return err
		}
	}
	if cat != nil {
		if err := ct.Encoder.Fit(cat); err != nil {
			return err
		}
	}

	ct.State.SetFitted(len(ct.Routes), X.Nrow())
	ct.logger.Info("Fitted column transform",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, X.Nrow(),
		log.FeaturesKey, len(ct.FeatureNames()),
	)
	return nil
}

// Transform は学習済みの状態で X を変換する。未知のカテゴリは 0 ブロックになる。
func (ct *ColumnTransformer) Transform(X dataframe.DataFrame) (*mat.Dense, error) {
	if err := ct.State.RequireFitted("ColumnTransformer", "Transform"); err != nil {
		return nil, err
	}

	num, cat, err := ct.extract(X, "ColumnTransformer.Transform")
	if err != nil {
		return nil, err
	}

	var blocks []*mat.Dense
	if num != nil {
		scaled, err := ct.Scaler.transformDense(num)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, scaled)
	}
	if cat != nil {
		encoded, err := ct.Encoder.Transform(cat)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, encoded)
	}
	return hstack(X.Nrow(), blocks), nil
}

// FitTransform は Fit の後に同じデータを Transform する
func (ct *ColumnTransformer) FitTransform(X dataframe.DataFrame) (*mat.Dense, error) {
	if err := ct.Fit(X); err != nil {
		return nil, err
	}
	return ct.Transform(X)
}

// FeatureNames は出力列名を返す。数値列はそのまま、指標列は "<列名>_<カテゴリ>"。
func (ct *ColumnTransformer) FeatureNames() []string {
	names := append([]string(nil), ct.NumericColumns()...)
	if ct.Encoder.State.IsFitted() {
		names = append(names, ct.Encoder.FeatureNames(ct.CategoricalColumns())...)
	}
	return names
}

// extract は DataFrame から数値ブロックとカテゴリ列を取り出す
func (ct *ColumnTransformer) extract(X dataframe.DataFrame, op string) (*mat.Dense, [][]string, error) {
	if X.Err != nil {
		return nil, nil, errors.Wrap(X.Err, op)
	}
	n := X.Nrow()
	if n == 0 {
		return nil, nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}

	present := make(map[string]bool, X.Ncol())
	for _, name := range X.Names() {
		present[name] = true
	}

	numCols := ct.NumericColumns()
	catCols := ct.CategoricalColumns()

	var num *mat.Dense
	if len(numCols) > 0 {
		num = mat.NewDense(n, len(numCols), nil)
		for j, col := range numCols {
			if !present[col] {
				return nil, nil, errors.NewValidationError("numeric column", "missing from input", col)
			}
			s := X.Col(col)
			if t := s.Type(); t != series.Int && t != series.Float && t != series.Bool {
				return nil, nil, errors.NewValidationError("numeric column",
					fmt.Sprintf("series type %s is not numeric", t), col)
			}
			num.SetCol(j, s.Float())
		}
	}

	var cat [][]string
	if len(catCols) > 0 {
		cat = make([][]string, len(catCols))
		for j, col := range catCols {
			if !present[col] {
				return nil, nil, errors.NewValidationError("categorical column", "missing from input", col)
			}
			cat[j] = X.Col(col).Records()
		}
	}
	return num, cat, nil
}

func hstack(rows int, blocks []*mat.Dense) *mat.Dense {
	cols := 0
	for _, b := range blocks {
		_, c := b.Dims()
		cols += c
	}
	out := mat.NewDense(rows, cols, nil)
	offset := 0
	for _, b := range blocks {
		_, c := b.Dims()
		out.Slice(0, rows, offset, offset+c).(*mat.Dense).Copy(b)
		offset += c
	}
	return out
}

// NumericColumnsOf は categorical に含まれない X の列を列順に返す
func NumericColumnsOf(X dataframe.DataFrame, categorical []string) []string {
	skip := make(map[string]bool, len(categorical))
	for _, c := range categorical {
		skip[c] = true
	}
	var cols []string
	for _, name := range X.Names() {
		if !skip[name] {
			cols = append(cols, name)
		}
	}
	return cols
}
