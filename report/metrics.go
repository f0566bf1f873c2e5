// Package report writes evaluation artifacts for a finished run: a
// Prometheus textfile with the scores and a predicted-vs-actual plot.
package report

import (
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/YuminosukeSato/bikecast/pkg/errors"
)

// Summary is what a run reports.
type Summary struct {
	Family    string
	RMSE      float64
	MAE       float64
	R2        float64
	TrainRows int
	TestRows  int
	Duration  time.Duration
}

// NewRegistry returns a registry holding the gauges for s.
func NewRegistry(s Summary) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()

	score := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "bikecast",
		Name:      "evaluation_score",
		Help:      "Test-set score of the trained model.",
	}, []string{"metric", "model"})
	rows := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "bikecast",
		Name:      "dataset_rows",
		Help:      "Rows per data partition.",
	}, []string{"partition"})
	duration := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "bikecast",
		Name:      "run_duration_seconds",
		Help:      "Wall time of the pipeline run.",
	})

	for _, c := range []prometheus.Collector{score, rows, duration} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "register collector")
		}
	}

	score.WithLabelValues("rmse", s.Family).Set(s.RMSE)
	score.WithLabelValues("mae", s.Family).Set(s.MAE)
	score.WithLabelValues("r2", s.Family).Set(s.R2)
	rows.WithLabelValues("train").Set(float64(s.TrainRows))
	rows.WithLabelValues("test").Set(float64(s.TestRows))
	duration.Set(s.Duration.Seconds())
	return reg, nil
}

// WriteMetricsTextfile writes s in the Prometheus text format, for the
// node_exporter textfile collector.
func WriteMetricsTextfile(path string, s Summary) error {
	reg, err := NewRegistry(s)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.NewIOError("create directory", dir, err)
		}
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return errors.NewIOError("write metrics", path, err)
	}
	return nil
}
