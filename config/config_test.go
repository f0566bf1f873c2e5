package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/bikecast/pkg/errors"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bikecast.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "xgboost", cfg.Model.Family)
	assert.Equal(t, 0.2, cfg.TestFraction)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, 200, cfg.Model.Boosting.NEstimators)

	d, err := time.Parse(cfg.DateLayout, "1/12/2017")
	require.NoError(t, err)
	assert.Equal(t, time.December, d.Month())
}

func TestLoad_NoFileEqualsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_YAMLOverlay(t *testing.T) {
	path := writeYAML(t, `
data_path: /srv/bikes.csv
test_fraction: 0.25
model:
  family: linear
  polynomial_degree: 2
report:
  metrics_file: out/metrics.prom
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	want := Default()
	want.DataPath = "/srv/bikes.csv"
	want.TestFraction = 0.25
	want.Model.Family = "linear"
	want.Model.PolynomialDegree = 2
	want.Report.MetricsFile = "out/metrics.prom"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_EnvironmentWinsOverFile(t *testing.T) {
	path := writeYAML(t, "seed: 1\nmodel:\n  family: linear\n")
	t.Setenv("BIKECAST_SEED", "7")
	t.Setenv("BIKECAST_MODEL_BOOSTING_N_ESTIMATORS", "10")
	t.Setenv("BIKECAST_CATEGORICAL_COLUMNS", "Seasons,Holiday")
	t.Setenv("BIKECAST_TRACKING_DSN", "file:runs.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), cfg.Seed)
	assert.Equal(t, "linear", cfg.Model.Family)
	assert.Equal(t, 10, cfg.Model.Boosting.NEstimators)
	assert.Equal(t, []string{"Seasons", "Holiday"}, cfg.CategoricalColumns)
	assert.Equal(t, "file:runs.db", cfg.Tracking.DSN)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	var ioe *errors.IOError
	assert.True(t, errors.As(err, &ioe))

	_, err = Load(writeYAML(t, "no_such_key: 1\n"))
	assert.Error(t, err)

	_, err = Load(writeYAML(t, "test_fraction: [1, 2]\n"))
	assert.Error(t, err)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*Config)
		param string
	}{
		{"fraction zero", func(c *Config) { c.TestFraction = 0 }, "test_fraction"},
		{"fraction one", func(c *Config) { c.TestFraction = 1 }, "test_fraction"},
		{"no data path", func(c *Config) { c.DataPath = "" }, "data_path"},
		{"no family", func(c *Config) { c.Model.Family = "" }, "model.family"},
		{"bad subsample", func(c *Config) { c.Model.Boosting.Subsample = 1.5 }, "model.boosting.subsample"},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad driver", func(c *Config) { c.Tracking.Driver = "mysql" }, "tracking.driver"},
		{"duplicate categorical", func(c *Config) { c.CategoricalColumns = []string{"Seasons", "Seasons"} }, "categorical_columns"},
		{"target as categorical", func(c *Config) { c.CategoricalColumns = []string{c.Target} }, "categorical_columns"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mut(&cfg)
			err := cfg.Validate()
			var ve *errors.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.param, ve.ParamName)
		})
	}
}

func TestLoad_ValidationAfterEnvironment(t *testing.T) {
	t.Setenv("BIKECAST_TEST_FRACTION", "1.5")
	_, err := Load("")
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}
