package dataset

import (
	"time"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bikecast/pkg/log"
)

// Loader runs the load, repair, calendar and target steps in order.
type Loader struct {
	Target     string
	DateLayout string

	logger log.Logger
}

// NewLoader creates a Loader. An empty layout means DefaultDateLayout.
func NewLoader(target, dateLayout string) *Loader {
	if dateLayout == "" {
		dateLayout = DefaultDateLayout
	}
	return &Loader{
		Target:     target,
		DateLayout: dateLayout,
		logger:     log.GetLoggerWithName("dataset"),
	}
}

// Run returns the feature frame and target vector for the file at path.
func (l *Loader) Run(path string) (dataframe.DataFrame, *mat.VecDense, error) {
	start := time.Now()
	l.logger.Info("Loading data", log.PhaseKey, log.PhaseLoading, log.PathKey, path)

	raw, err := Load(path)
	if err != nil {
		return dataframe.DataFrame{}, nil, err
	}
	table, err := DeriveTemporalFeatures(RepairColumns(raw), l.DateLayout)
	if err != nil {
		return dataframe.DataFrame{}, nil, err
	}
	X, y, err := SplitFeaturesTarget(table, l.Target)
	if err != nil {
		return dataframe.DataFrame{}, nil, err
	}

	l.logger.Info("Loaded data",
		log.PhaseKey, log.PhaseLoading,
		log.SamplesKey, X.Nrow(),
		log.FeaturesKey, X.Ncol(),
		log.ColumnsKey, X.Names(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return X, y, nil
}
