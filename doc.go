// Package bikecast predicts hourly bike-rental demand from weather and
// calendar features of the Seoul bike-sharing dataset.
//
// One run of the pipeline loads the CSV, derives Month, DayOfWeek and
// IsWeekend from the Date column, splits the rows into train and test
// partitions, scales numeric and one-hot encodes categorical columns, fits
// either an ordinary least-squares model or a gradient-boosted tree ensemble,
// reports RMSE, MAE and R² on the held-out rows and saves the fitted model.
//
// # Installation
//
//	go install github.com/YuminosukeSato/bikecast/cmd/bikecast@latest
//
// # Quick Start
//
//	bikecast train --config bikecast.yaml
//	bikecast inspect models/model.gob
//	bikecast runs --limit 5
//
// or from Go:
//
//	cfg := config.Default()
//	cfg.DataPath = "data/SeoulBikeData.csv"
//	p, err := pipeline.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := p.Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("RMSE %.2f  R² %.3f\n", res.Metrics.RMSE, res.Metrics.R2)
//
// # Packages
//
//   - dataset: CSV loading, header repair and temporal features
//   - modelselection: seeded train/test split
//   - preprocessing: StandardScaler, OneHotEncoder, ColumnTransformer, PolynomialFeatures
//   - linear: ordinary least squares
//   - ensemble: gradient-boosted regression trees ("xgboost" family)
//   - metrics: RMSE, MAE, R²
//   - pipeline: stage orchestration and model families
//   - report: Prometheus textfile metrics and prediction scatter plots
//   - tracking: run ledger on SQLite or PostgreSQL
//   - config: defaults, YAML file and BIKECAST_* environment overrides
//   - core/model: estimator interfaces and gob persistence
//   - core/parallel: row-parallel helpers
//   - pkg/errors, pkg/log: error taxonomy and structured logging
package bikecast
