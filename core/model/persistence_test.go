package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bikecast/pkg/errors"
)

// meanRegressor predicts the training mean plus a per-feature offset.
type meanRegressor struct {
	Mean    float64
	Weights []float64
	State   *StateManager
}

func newMeanRegressor() Regressor {
	return &meanRegressor{State: NewStateManager()}
}

func (m *meanRegressor) Fit(X, y mat.Matrix) error {
	m.State.Reset()
	r, c := X.Dims()
	sum := 0.0
	for i := 0; i < r; i++ {
		sum += y.At(i, 0)
	}
	m.Mean = sum / float64(r)
	m.Weights = make([]float64, c)
	for j := range m.Weights {
		m.Weights[j] = float64(j + 1)
	}
	m.State.SetFitted(c, r)
	return nil
}

func (m *meanRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := m.State.RequireFitted("meanRegressor", "Predict"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := m.State.RequireFeatures("meanRegressor.Predict", c); err != nil {
		return nil, err
	}
	out := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v := m.Mean
		for j := 0; j < c; j++ {
			v += m.Weights[j] * X.At(i, j)
		}
		out.SetVec(i, v)
	}
	return out, nil
}

func (m *meanRegressor) IsFitted() bool { return m.State.IsFitted() }

func fittedStub(t *testing.T) (Regressor, *mat.Dense) {
	t.Helper()
	X := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	y := mat.NewVecDense(3, []float64{10, 20, 30})
	m := newMeanRegressor()
	require.NoError(t, m.Fit(X, y))
	return m, X
}

func TestSaveLoad_RoundTripPredictions(t *testing.T) {
	Register("stub", newMeanRegressor)
	m, X := fittedStub(t)

	path := filepath.Join(t.TempDir(), "nested", "dir", "model.gob")
	meta := Metadata{
		Family:       "stub",
		FeatureNames: []string{"a", "b"},
		TrainedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Metrics:      map[string]float64{"rmse": 1.5},
	}
	require.NoError(t, Save(path, m, meta))

	loaded, gotMeta, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.IsFitted())
	assert.Equal(t, meta.FeatureNames, gotMeta.FeatureNames)
	assert.Equal(t, meta.Metrics, gotMeta.Metrics)
	assert.True(t, meta.TrainedAt.Equal(gotMeta.TrainedAt))

	want, err := m.Predict(X)
	require.NoError(t, err)
	got, err := loaded.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
}

func TestSave_OverwritesWithoutLeavingTempFiles(t *testing.T) {
	Register("stub", newMeanRegressor)
	m, _ := fittedStub(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "model.gob")

	require.NoError(t, os.WriteFile(path, []byte("old contents"), 0o644))
	require.NoError(t, Save(path, m, Metadata{Family: "stub"}))
	require.NoError(t, Save(path, m, Metadata{Family: "stub"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "model.gob", entries[0].Name())

	_, _, err = Load(path)
	assert.NoError(t, err)
}

func TestSave_UnwritablePathIsIOError(t *testing.T) {
	m, _ := fittedStub(t)
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	err := Save(filepath.Join(blocker, "model.gob"), m, Metadata{Family: "stub"})
	var ioErr *errors.IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "create directory", ioErr.Op)
}

func TestSave_RejectsUnfittedModel(t *testing.T) {
	err := Save(filepath.Join(t.TempDir(), "m.gob"), newMeanRegressor(), Metadata{Family: "stub"})
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
}

func TestLoad_Failures(t *testing.T) {
	dir := t.TempDir()

	_, _, err := Load(filepath.Join(dir, "missing.gob"))
	var ioErr *errors.IOError
	assert.True(t, errors.As(err, &ioErr))

	garbage := filepath.Join(dir, "garbage.gob")
	require.NoError(t, os.WriteFile(garbage, []byte("not a gob stream"), 0o644))
	_, _, err = Load(garbage)
	assert.True(t, errors.As(err, &ioErr))

	m, _ := fittedStub(t)
	unknown := filepath.Join(dir, "unknown.gob")
	require.NoError(t, Save(unknown, m, Metadata{Family: "no-such-family"}))
	_, _, err = Load(unknown)
	var um *errors.UnsupportedModelError
	assert.True(t, errors.As(err, &um))
}

func TestStateManager_RequireFeatures(t *testing.T) {
	s := NewStateManager()
	var nf *errors.NotFittedError
	assert.True(t, errors.As(s.RequireFitted("x", "Predict"), &nf))

	s.SetFitted(3, 10)
	assert.NoError(t, s.RequireFitted("x", "Predict"))
	assert.NoError(t, s.RequireFeatures("x.Predict", 3))

	var de *errors.DimensionError
	require.True(t, errors.As(s.RequireFeatures("x.Predict", 4), &de))
	assert.Equal(t, 3, de.Expected)
	assert.Equal(t, 4, de.Got)

	s.Reset()
	assert.False(t, s.IsFitted())
}
