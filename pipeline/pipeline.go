// Package pipeline runs the bike-rental regression end to end:
// load, split, preprocess, train, evaluate and persist.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bikecast/config"
	"github.com/YuminosukeSato/bikecast/core/model"
	"github.com/YuminosukeSato/bikecast/dataset"
	"github.com/YuminosukeSato/bikecast/modelselection"
	"github.com/YuminosukeSato/bikecast/pkg/log"
	"github.com/YuminosukeSato/bikecast/preprocessing"
	"github.com/YuminosukeSato/bikecast/report"
	"github.com/YuminosukeSato/bikecast/tracking"
)

// Pipeline is one configured run. Stages execute strictly in order.
type Pipeline struct {
	cfg    config.Config
	family Family
	loader *dataset.Loader
	logger log.Logger
}

// Result is the outcome of a successful Run.
type Result struct {
	RunID        string
	Family       Family
	Metrics      Metrics
	Model        model.Regressor
	FeatureNames []string
	TrainRows    int
	TestRows     int
	ArtifactPath string
	Duration     time.Duration
}

// New validates cfg and resolves the model family. An unknown family is
// reported here, before any data is read.
func New(cfg config.Config) (*Pipeline, error) {
	family, err := ParseFamily(cfg.Model.Family)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:    cfg,
		family: family,
		loader: dataset.NewLoader(cfg.Target, cfg.DateLayout),
		logger: log.GetLoggerWithName("pipeline").With(log.ModelFamilyKey, string(family)),
	}, nil
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() config.Config {
	return p.cfg
}

// Run executes every stage once. ctx is used only by the run ledger.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: uuid.NewString(), Family: p.family, ArtifactPath: p.cfg.ModelPath}
	logger := p.logger.With("run_id", res.RunID)

	fail := func(phase string, err error) (*Result, error) {
		logger.Error("Pipeline failed", log.PhaseKey, phase, log.ErrAttrKey, err)
		return nil, err
	}

	// 1. load
	X, y, err := p.loader.Run(p.cfg.DataPath)
	if err != nil {
		return fail(log.PhaseLoading, err)
	}

	// 2. split
	split, err := modelselection.TrainTestSplit(X, y, p.cfg.TestFraction, p.cfg.Seed)
	if err != nil {
		return fail(log.PhaseSplitting, err)
	}
	res.TrainRows, res.TestRows = split.YTrain.Len(), split.YTest.Len()
	logger.Info("Split data",
		log.PhaseKey, log.PhaseSplitting,
		log.TestFractionKey, p.cfg.TestFraction,
		log.RandomSeedKey, p.cfg.Seed,
		"train_rows", res.TrainRows,
		"test_rows", res.TestRows,
	)

	// 3. preprocess
	xTrain, xTest, names, err := p.preprocess(split)
	if err != nil {
		return fail(log.PhasePreprocessing, err)
	}
	res.FeatureNames = names

	// 4. train
	reg, err := NewRegressor(p.family, BoostingParams(p.cfg.Model.Boosting, p.cfg.Seed))
	if err != nil {
		return fail(log.PhaseTraining, err)
	}
	trainStart := time.Now()
	if err := reg.Fit(xTrain, split.YTrain); err != nil {
		return fail(log.PhaseTraining, err)
	}
	res.Model = reg
	logger.Info("Trained model",
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, res.TrainRows,
		log.FeaturesKey, len(names),
		log.DurationMsKey, time.Since(trainStart).Milliseconds(),
	)

	// 5. evaluate
	m, err := Evaluate(reg, xTest, split.YTest)
	if err != nil {
		return fail(log.PhaseEvaluation, err)
	}
	res.Metrics = m
	logger.Info("Evaluated model",
		log.PhaseKey, log.PhaseEvaluation,
		log.RMSEKey, m.RMSE,
		log.MAEKey, m.MAE,
		log.R2ScoreKey, m.R2,
	)

	// 6. persist
	meta := model.Metadata{
		Family:       string(p.family),
		FeatureNames: names,
		TrainedAt:    time.Now().UTC(),
		Metrics:      m.AsMap(),
	}
	if err := model.Save(p.cfg.ModelPath, reg, meta); err != nil {
		return fail(log.PhasePersistence, err)
	}
	logger.Info("Saved model", log.PhaseKey, log.PhasePersistence, log.PathKey, p.cfg.ModelPath)

	res.Duration = time.Since(start)
	if err := p.writeReports(res); err != nil {
		return fail(log.PhasePersistence, err)
	}
	if err := p.track(ctx, res); err != nil {
		return fail(log.PhasePersistence, err)
	}

	logger.Info("Pipeline finished", log.DurationMsKey, res.Duration.Milliseconds())
	return res, nil
}

// preprocess fits the column transformer on the training rows only and
// applies it to both partitions, then expands polynomially when configured.
func (p *Pipeline) preprocess(split modelselection.Split) (*mat.Dense, *mat.Dense, []string, error) {
	numeric := preprocessing.NumericColumnsOf(split.XTrain, p.cfg.CategoricalColumns)
	ct, err := preprocessing.NewColumnTransformer(p.cfg.CategoricalColumns, numeric)
	if err != nil {
		return nil, nil, nil, err
	}
	xTrain, err := ct.FitTransform(split.XTrain)
	if err != nil {
		return nil, nil, nil, err
	}
	xTest, err := ct.Transform(split.XTest)
	if err != nil {
		return nil, nil, nil, err
	}
	names := ct.FeatureNames()

	if p.cfg.Model.PolynomialDegree >= 2 {
		var poly *preprocessing.PolynomialFeatures
		xTrain, xTest, poly, err = preprocessing.ExpandPolynomial(xTrain, xTest, p.cfg.Model.PolynomialDegree)
		if err != nil {
			return nil, nil, nil, err
		}
		names = poly.FeatureNames(names)
	}
	return xTrain, xTest, names, nil
}

func (p *Pipeline) writeReports(res *Result) error {
	rc := p.cfg.Report
	if rc.MetricsFile != "" {
		s := report.Summary{
			Family:    string(res.Family),
			RMSE:      res.Metrics.RMSE,
			MAE:       res.Metrics.MAE,
			R2:        res.Metrics.R2,
			TrainRows: res.TrainRows,
			TestRows:  res.TestRows,
			Duration:  res.Duration,
		}
		if err := report.WriteMetricsTextfile(rc.MetricsFile, s); err != nil {
			return err
		}
		p.logger.Info("Wrote metrics textfile", log.PathKey, rc.MetricsFile)
	}
	if rc.PlotFile != "" {
		if err := report.WritePredictionPlot(rc.PlotFile, string(res.Family), res.Metrics.Actual, res.Metrics.Predictions); err != nil {
			return err
		}
		p.logger.Info("Wrote prediction plot", log.PathKey, rc.PlotFile)
	}
	return nil
}

func (p *Pipeline) track(ctx context.Context, res *Result) error {
	tc := p.cfg.Tracking
	if tc.DSN == "" {
		return nil
	}
	ledger, err := tracking.Open(ctx, tc.Driver, tc.DSN)
	if err != nil {
		return err
	}
	defer ledger.Close()

	_, err = ledger.Record(ctx, tracking.Run{
		ID:           res.RunID,
		Family:       string(res.Family),
		TrainRows:    res.TrainRows,
		TestRows:     res.TestRows,
		RMSE:         res.Metrics.RMSE,
		MAE:          res.Metrics.MAE,
		R2:           res.Metrics.R2,
		ArtifactPath: res.ArtifactPath,
	})
	return err
}

// LoadModel reads a model saved by Run.
func LoadModel(path string) (model.Regressor, model.Metadata, error) {
	return model.Load(path)
}
