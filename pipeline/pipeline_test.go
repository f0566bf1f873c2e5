package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bikecast/config"
	"github.com/YuminosukeSato/bikecast/core/model"
	"github.com/YuminosukeSato/bikecast/pkg/errors"
	"github.com/YuminosukeSato/bikecast/pkg/log"
	"github.com/YuminosukeSato/bikecast/tracking"
)

// writeBikeCSV writes n synthetic hourly rows in the shape of the Seoul
// bike dataset, including a BOM on the Date header.
func writeBikeCSV(t *testing.T, n int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("\ufeffDate,Rented Bike Count,Hour,Temperature(°C),Humidity(%),Seasons,Holiday,Functioning Day\n")
	base := time.Date(2017, 12, 1, 0, 0, 0, 0, time.UTC)
	seasons := []string{"Winter", "Spring", "Summer", "Autumn"}
	for i := 0; i < n; i++ {
		day := base.AddDate(0, 0, i/4)
		hour := (i * 5) % 24
		temp := -5.0 + float64(i%30)*1.1
		humidity := 30 + (i*7)%50
		holiday := "No Holiday"
		if i%9 == 0 {
			holiday = "Holiday"
		}
		functioning := "Yes"
		count := 100 + 12*hour + int(4*temp)
		if i%11 == 0 {
			functioning = "No"
			count = 0
		}
		fmt.Fprintf(&b, "%s,%d,%d,%.1f,%d,%s,%s,%s\n",
			day.Format("02/01/2006"), count, hour, temp, humidity,
			seasons[(i/20)%4], holiday, functioning)
	}
	path := filepath.Join(t.TempDir(), "SeoulBikeData.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func testConfig(t *testing.T, family string) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataPath = writeBikeCSV(t, 120)
	cfg.ModelPath = filepath.Join(dir, "models", family+".gob")
	cfg.Model.Family = family
	cfg.Model.Boosting.NEstimators = 15
	cfg.Model.Boosting.MaxDepth = 3
	return cfg
}

func TestNew_UnsupportedFamilyBeforeData(t *testing.T) {
	cfg := config.Default()
	cfg.DataPath = filepath.Join(t.TempDir(), "does-not-exist.csv")
	cfg.Model.Family = "random_forest"

	_, err := New(cfg)
	var ue *errors.UnsupportedModelError
	require.True(t, errors.As(err, &ue), "got %v", err)
	assert.Equal(t, "random_forest", ue.Family)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.TestFraction = 0
	_, err := New(cfg)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestRun_EndToEnd(t *testing.T) {
	for _, family := range []string{"linear", "xgboost"} {
		t.Run(family, func(t *testing.T) {
			cfg := testConfig(t, family)
			p, err := New(cfg)
			require.NoError(t, err)

			res, err := p.Run(context.Background())
			require.NoError(t, err)

			assert.Equal(t, 24, res.TestRows) // ceil(0.2 * 120)
			assert.Equal(t, 96, res.TrainRows)
			assert.Equal(t, 24, res.Metrics.Predictions.Len())
			for i := 0; i < res.Metrics.Predictions.Len(); i++ {
				assert.GreaterOrEqual(t, res.Metrics.Predictions.AtVec(i), 0.0)
			}
			assert.Greater(t, res.Metrics.RMSE, 0.0)
			assert.Contains(t, res.FeatureNames, "Temperature")
			assert.Contains(t, res.FeatureNames, "Humidity")
			assert.Contains(t, res.FeatureNames, "IsWeekend")
			assert.Contains(t, res.FeatureNames, "Seasons_Winter")

			loaded, meta, err := LoadModel(cfg.ModelPath)
			require.NoError(t, err)
			assert.Equal(t, family, meta.Family)
			assert.Equal(t, res.FeatureNames, meta.FeatureNames)
			assert.InDelta(t, res.Metrics.RMSE, meta.Metrics["rmse"], 1e-12)

			X := mat.NewDense(2, len(res.FeatureNames), nil)
			for j := 0; j < len(res.FeatureNames); j++ {
				X.Set(0, j, 0.5)
				X.Set(1, j, -1)
			}
			want, err := res.Model.Predict(X)
			require.NoError(t, err)
			got, err := loaded.Predict(X)
			require.NoError(t, err)
			assert.True(t, mat.Equal(want, got), "loaded model must predict identically")
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	cfg := testConfig(t, "xgboost")
	p, err := New(cfg)
	require.NoError(t, err)

	a, err := p.Run(context.Background())
	require.NoError(t, err)
	b, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, a.Metrics.RMSE, b.Metrics.RMSE)
	assert.True(t, mat.Equal(a.Metrics.Predictions, b.Metrics.Predictions))
}

func TestRun_PolynomialExpansion(t *testing.T) {
	cfg := testConfig(t, "linear")
	cfg.Model.PolynomialDegree = 2

	p, err := New(cfg)
	require.NoError(t, err)
	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, res.FeatureNames, "Hour^2")
	assert.Contains(t, res.FeatureNames, "Hour Temperature")
	assert.Greater(t, len(res.FeatureNames), 20)
}

func TestRun_ReportsAndLedger(t *testing.T) {
	cfg := testConfig(t, "linear")
	dir := t.TempDir()
	cfg.Report.MetricsFile = filepath.Join(dir, "metrics", "bikecast.prom")
	cfg.Report.PlotFile = filepath.Join(dir, "plots", "scatter.png")
	cfg.Tracking.DSN = filepath.Join(dir, "runs.db")

	p, err := New(cfg)
	require.NoError(t, err)
	res, err := p.Run(context.Background())
	require.NoError(t, err)

	prom, err := os.ReadFile(cfg.Report.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `bikecast_evaluation_score{metric="rmse",model="linear"}`)
	_, err = os.Stat(cfg.Report.PlotFile)
	require.NoError(t, err)

	ledger, err := tracking.Open(context.Background(), cfg.Tracking.Driver, cfg.Tracking.DSN)
	require.NoError(t, err)
	defer ledger.Close()
	runs, err := ledger.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, res.RunID, runs[0].ID)
	assert.Equal(t, "linear", runs[0].Family)
	assert.InDelta(t, res.Metrics.R2, runs[0].R2, 1e-12)
}

func TestRun_Failures(t *testing.T) {
	t.Run("missing data", func(t *testing.T) {
		cfg := testConfig(t, "linear")
		cfg.DataPath = filepath.Join(t.TempDir(), "nope.csv")
		p, err := New(cfg)
		require.NoError(t, err)
		_, err = p.Run(context.Background())
		var nf *errors.DataNotFoundError
		assert.True(t, errors.As(err, &nf))
	})

	t.Run("missing target", func(t *testing.T) {
		cfg := testConfig(t, "linear")
		cfg.Target = "Returned Scooters"
		p, err := New(cfg)
		require.NoError(t, err)
		_, err = p.Run(context.Background())
		var tn *errors.TargetNotFoundError
		assert.True(t, errors.As(err, &tn))
	})

	t.Run("unwritable artifact", func(t *testing.T) {
		cfg := testConfig(t, "linear")
		blocker := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
		cfg.ModelPath = filepath.Join(blocker, "model.gob")
		p, err := New(cfg)
		require.NoError(t, err)
		_, err = p.Run(context.Background())
		var ioe *errors.IOError
		assert.True(t, errors.As(err, &ioe))
	})
}

func TestRun_LogsFailedPhase(t *testing.T) {
	provider := log.NewRecorderProvider(log.LevelDebug)
	log.SetProvider(provider)
	t.Cleanup(func() { log.SetProvider(log.NewRecorderProvider(log.LevelError)) })

	cfg := testConfig(t, "linear")
	cfg.Target = "Returned Scooters"
	p, err := New(cfg)
	require.NoError(t, err)
	_, err = p.Run(context.Background())
	require.Error(t, err)

	rec := provider.Recorder()
	assert.True(t, rec.Has("Pipeline failed"))
	assert.True(t, rec.HasField(log.PhaseKey, log.PhaseLoading))
	assert.True(t, rec.HasField(log.ModelFamilyKey, "linear"))
	assert.False(t, rec.Has("Trained model"))
}

func TestRun_LogsBoostingOperations(t *testing.T) {
	provider := log.NewRecorderProvider(log.LevelDebug)
	log.SetProvider(provider)
	t.Cleanup(func() { log.SetProvider(log.NewRecorderProvider(log.LevelError)) })

	p, err := New(testConfig(t, "xgboost"))
	require.NoError(t, err)
	_, err = p.Run(context.Background())
	require.NoError(t, err)

	rec := provider.Recorder()
	assert.True(t, rec.HasField(log.LearningRateKey, 0.05))
	assert.True(t, rec.HasField(log.OperationKey, log.OperationPredict))
	assert.True(t, rec.HasField(log.OperationKey, log.OperationScore))
}

func TestEvaluate_RecoversPredictPanic(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{1, 2})
	y := mat.NewVecDense(2, []float64{1, 2})

	_, err := Evaluate(panickingModel{}, X, y)
	var pe *errors.PanicError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Equal(t, "Evaluate.Predict", pe.Operation)
}

func TestEvaluate_ClampsNegativePredictions(t *testing.T) {
	m := constantModel(-3)
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewVecDense(3, []float64{0, 1, 2})

	got, err := Evaluate(m, X, y)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, got.Predictions.RawVector().Data)
	assert.InDelta(t, 1.0, got.MAE, 1e-12)

	_, err = Evaluate(m, X, mat.NewVecDense(2, []float64{1, 2}))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
}

func TestNewRegressor_AndRegistry(t *testing.T) {
	for _, f := range Families() {
		r, err := NewRegressor(f, BoostingParams(config.Default().Model.Boosting, 42))
		require.NoError(t, err)
		assert.False(t, r.IsFitted())
	}
	_, err := NewRegressor("svm", BoostingParams(config.Default().Model.Boosting, 42))
	var ue *errors.UnsupportedModelError
	assert.True(t, errors.As(err, &ue))

	assert.Subset(t, model.RegisteredFamilies(), []string{"linear", "xgboost"})
}

type constantModel float64

func (c constantModel) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, float64(c))
	}
	return v, nil
}

type panickingModel struct{}

func (panickingModel) Predict(mat.Matrix) (mat.Matrix, error) {
	panic("index out of range")
}
