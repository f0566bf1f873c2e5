package pipeline

import (
	"github.com/YuminosukeSato/bikecast/config"
	"github.com/YuminosukeSato/bikecast/core/model"
	"github.com/YuminosukeSato/bikecast/ensemble"
	"github.com/YuminosukeSato/bikecast/linear"
	"github.com/YuminosukeSato/bikecast/pkg/errors"
)

// Family is a supported model family.
type Family string

const (
	// FamilyLinear is ordinary least squares with an intercept.
	FamilyLinear Family = "linear"
	// FamilyXGBoost is squared-error gradient boosted trees.
	FamilyXGBoost Family = "xgboost"
)

// Families lists every supported family.
func Families() []Family {
	return []Family{FamilyLinear, FamilyXGBoost}
}

func familyNames() []string {
	fs := Families()
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = string(f)
	}
	return out
}

// ParseFamily returns the Family named s, or UnsupportedModelError.
func ParseFamily(s string) (Family, error) {
	for _, f := range Families() {
		if string(f) == s {
			return f, nil
		}
	}
	return "", errors.NewUnsupportedModelError(s, familyNames())
}

// BoostingParams converts the configured hyperparameters. The run seed
// drives both the split and the tree sampling.
func BoostingParams(b config.BoostingConfig, seed uint64) ensemble.Params {
	p := ensemble.DefaultParams()
	p.NEstimators = b.NEstimators
	p.LearningRate = b.LearningRate
	p.MaxDepth = b.MaxDepth
	p.Subsample = b.Subsample
	p.ColsampleByTree = b.ColsampleByTree
	p.Lambda = b.Lambda
	p.MinChildWeight = b.MinChildWeight
	p.NumThreads = b.NumThreads
	p.Seed = seed
	return p
}

// NewRegressor returns an unfitted model of the given family.
func NewRegressor(f Family, params ensemble.Params) (model.Regressor, error) {
	switch f {
	case FamilyLinear:
		return linear.NewLinearRegression(), nil
	case FamilyXGBoost:
		return ensemble.NewGradientBoostingRegressor(params), nil
	default:
		return nil, errors.NewUnsupportedModelError(string(f), familyNames())
	}
}

func init() {
	model.Register(string(FamilyLinear), func() model.Regressor {
		return linear.NewLinearRegression()
	})
	model.Register(string(FamilyXGBoost), func() model.Regressor {
		return ensemble.NewGradientBoostingRegressor(ensemble.DefaultParams())
	})
}
