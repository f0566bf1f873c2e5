package errors

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "bikecast: Fit: invalid input: test error",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			err:     nil,
			wantMsg: "bikecast: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)
			assert.Equal(t, tt.wantMsg, err.Error())

			// スタックトレースの存在確認
			formatted := fmt.Sprintf("%+v", err)
			assert.Contains(t, formatted, "errors_test.go")

			var modelErr *ModelError
			assert.True(t, As(err, &modelErr))
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 10, 3, 1)
	assert.Equal(t, "bikecast: Predict: dimension mismatch on axis 1 (features). Expected 10, got 3", err.Error())

	var dimErr *DimensionError
	require.True(t, As(err, &dimErr))
	assert.Equal(t, 10, dimErr.Expected)
}

func TestPipelineErrorsAreMatchable(t *testing.T) {
	cause := os.ErrNotExist

	dataErr := NewDataNotFoundError("data/missing.csv", cause)
	var dnf *DataNotFoundError
	require.True(t, As(dataErr, &dnf))
	assert.Equal(t, "data/missing.csv", dnf.Path)
	assert.True(t, Is(dataErr, os.ErrNotExist))

	schemaErr := NewSchemaError("Date", []string{"Hour", "Seasons"})
	var se *SchemaError
	require.True(t, As(schemaErr, &se))
	assert.Equal(t, "Date", se.Column)

	parseErr := NewParseError("Date", 3, "2017-12-01", "02/01/2006", New("bad layout"))
	var pe *ParseError
	require.True(t, As(parseErr, &pe))
	assert.Equal(t, 3, pe.Row)
	assert.Contains(t, parseErr.Error(), "2017-12-01")

	targetErr := NewTargetNotFoundError("Rented Bike Count", "Rented Bike")
	var te *TargetNotFoundError
	require.True(t, As(targetErr, &te))

	modelErr := NewUnsupportedModelError("svm", []string{"linear", "xgboost"})
	var ue *UnsupportedModelError
	require.True(t, As(modelErr, &ue))
	assert.Equal(t, "svm", ue.Family)

	ioErr := NewIOError("write", "/nope/model.gob", os.ErrPermission)
	var ie *IOError
	require.True(t, As(ioErr, &ie))
	assert.True(t, Is(ioErr, os.ErrPermission))
}

func TestMarshalZerologObject(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	logger.Error().EmbedObject(&TargetNotFoundError{Target: "Rented Bike Count", Prefix: "Rented Bike"}).Msg("lookup failed")

	out := buf.String()
	assert.Contains(t, out, `"target":"Rented Bike Count"`)
	assert.Contains(t, out, `"type":"TargetNotFoundError"`)
}

func TestWarnRoutesToZerologFunc(t *testing.T) {
	var got []error
	SetZerologWarnFunc(func(w error) { got = append(got, w) })
	defer SetZerologWarnFunc(nil)

	Warn(NewUndefinedMetricWarning("r2_score", "constant y_true", 0))

	require.Len(t, got, 1)
	assert.True(t, strings.Contains(got[0].Error(), "r2_score"))
}

func TestCheckMatrix(t *testing.T) {
	ok := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	assert.NoError(t, CheckMatrix("test", ok, 2, 2))

	bad := mat.NewDense(2, 2, []float64{1, 2, math.NaN(), 4})
	err := CheckMatrix("test", bad, 2, 2)
	require.Error(t, err)

	var nie *NumericalInstabilityError
	require.True(t, As(err, &nie))
	assert.Equal(t, 1, nie.Row)
	assert.Equal(t, 0, nie.Col)
}

func TestRecover_WithPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		panic("test panic message")
	}

	err := testFunc()
	require.Error(t, err)

	var panicErr *PanicError
	require.True(t, As(err, &panicErr))
	assert.Equal(t, "TestOperation", panicErr.Operation)
	assert.NotEmpty(t, panicErr.StackTrace)
	assert.Equal(t, "panic in TestOperation: test panic message", panicErr.Error())
}

func TestRecover_KeepsOriginalError(t *testing.T) {
	original := New("original failure")
	testFunc := func() (err error) {
		defer Recover(&err, "Op")
		err = original
		panic("boom")
	}

	err := testFunc()
	require.Error(t, err)
	assert.True(t, Is(err, original))
	assert.Contains(t, err.Error(), "boom")
}

func TestSafeExecute(t *testing.T) {
	assert.NoError(t, SafeExecute("noop", func() error { return nil }))

	err := SafeExecute("matrix", func() error {
		mat.NewDense(2, 2, nil).At(5, 5)
		return nil
	})
	var panicErr *PanicError
	assert.True(t, As(err, &panicErr))
}

func TestSafeDivide(t *testing.T) {
	assert.Equal(t, 2.0, SafeDivide(6, 3, -1))
	assert.Equal(t, -1.0, SafeDivide(6, 0, -1))
	assert.Equal(t, 0.0, SafeDivide(1e308, 1e-308, 0))
}
