// Package config holds the immutable run configuration.
//
// Values are resolved in order: Default, an optional YAML file, then
// BIKECAST_* environment variables. The result is validated once and passed
// by value to every stage.
package config

import (
	"bytes"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/bikecast/dataset"
	"github.com/YuminosukeSato/bikecast/pkg/errors"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "BIKECAST"

// Config is the complete run configuration.
type Config struct {
	DataPath           string   `yaml:"data_path" split_words:"true" validate:"required"`
	ModelPath          string   `yaml:"model_path" split_words:"true" validate:"required"`
	Target             string   `yaml:"target" split_words:"true" validate:"required"`
	DateLayout         string   `yaml:"date_layout" split_words:"true" validate:"required"`
	CategoricalColumns []string `yaml:"categorical_columns" split_words:"true" validate:"unique"`
	TestFraction       float64  `yaml:"test_fraction" split_words:"true" validate:"gt=0,lt=1"`
	Seed               uint64   `yaml:"seed" split_words:"true"`

	Model    ModelConfig    `yaml:"model" split_words:"true"`
	Logging  LoggingConfig  `yaml:"logging" split_words:"true"`
	Report   ReportConfig   `yaml:"report" split_words:"true"`
	Tracking TrackingConfig `yaml:"tracking" split_words:"true"`
}

// ModelConfig selects the model family and its hyperparameters.
// Family is checked by the pipeline, which owns the list of families.
type ModelConfig struct {
	Family           string         `yaml:"family" split_words:"true" validate:"required"`
	PolynomialDegree int            `yaml:"polynomial_degree" split_words:"true" validate:"gte=0,lte=5"`
	Boosting         BoostingConfig `yaml:"boosting" split_words:"true"`
}

// BoostingConfig mirrors the gradient boosting hyperparameters.
type BoostingConfig struct {
	NEstimators     int     `yaml:"n_estimators" split_words:"true" validate:"gte=1"`
	LearningRate    float64 `yaml:"learning_rate" split_words:"true" validate:"gt=0"`
	MaxDepth        int     `yaml:"max_depth" split_words:"true" validate:"gte=1"`
	Subsample       float64 `yaml:"subsample" split_words:"true" validate:"gt=0,lte=1"`
	ColsampleByTree float64 `yaml:"colsample_bytree" split_words:"true" validate:"gt=0,lte=1"`
	Lambda          float64 `yaml:"lambda" split_words:"true" validate:"gte=0"`
	MinChildWeight  float64 `yaml:"min_child_weight" split_words:"true" validate:"gte=0"`
	NumThreads      int     `yaml:"num_threads" split_words:"true" validate:"gte=0"`
}

// LoggingConfig selects the zerolog level and writer.
type LoggingConfig struct {
	Level  string `yaml:"level" split_words:"true" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" split_words:"true" validate:"oneof=json console"`
}

// ReportConfig enables evaluation artifacts. Empty paths disable them.
type ReportConfig struct {
	MetricsFile string `yaml:"metrics_file" split_words:"true"`
	PlotFile    string `yaml:"plot_file" split_words:"true"`
}

// TrackingConfig enables the SQL run ledger. An empty DSN disables it.
type TrackingConfig struct {
	Driver string `yaml:"driver" split_words:"true" validate:"oneof=sqlite postgres"`
	DSN    string `yaml:"dsn" split_words:"true"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataPath:           "data/SeoulBikeData.csv",
		ModelPath:          "models/xgboost_bike_predictor.gob",
		Target:             "Rented Bike Count",
		DateLayout:         dataset.DefaultDateLayout,
		CategoricalColumns: []string{"Seasons", "Holiday", "Functioning Day"},
		TestFraction:       0.2,
		Seed:               42,
		Model: ModelConfig{
			Family: "xgboost",
			Boosting: BoostingConfig{
				NEstimators:     200,
				LearningRate:    0.05,
				MaxDepth:        6,
				Subsample:       0.8,
				ColsampleByTree: 0.8,
				Lambda:          1,
				MinChildWeight:  1,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracking: TrackingConfig{
			Driver: "sqlite",
		},
	}
}

// Load resolves the configuration. path may be empty, in which case only
// defaults and the environment are used.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.NewIOError("read config", path, err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "parse config %s", path)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "read environment")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeYAML overlays data onto cfg. Unknown keys are rejected.
func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return err
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report YAML key names in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field constraints and the column lists.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.NewValidationError(fieldPath(fe.Namespace()), "failed '"+fe.Tag()+"' "+fe.Param(), fe.Value())
		}
		return errors.Wrap(err, "validate config")
	}
	for _, col := range c.CategoricalColumns {
		if strings.TrimSpace(col) == "" {
			return errors.NewValidationError("categorical_columns", "empty column name", c.CategoricalColumns)
		}
		if col == c.Target {
			return errors.NewValidationError("categorical_columns", "target cannot be a feature", col)
		}
	}
	return nil
}

// fieldPath drops the root struct name: "Config.model.family" -> "model.family".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
