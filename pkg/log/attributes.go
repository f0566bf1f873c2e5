// Package log defines standard attribute keys for pipeline logging.
//
// Keys follow a hierarchical naming convention ("model.name",
// "data.samples") so log lines from different stages can be filtered the
// same way.
package log

// Model and Operation Context
const (
	// ModelNameKey identifies the estimator or transformer.
	// Examples: "LinearRegression", "ColumnTransformer"
	ModelNameKey = "model.name"

	// ModelFamilyKey identifies the configured model family ("linear", "xgboost").
	ModelFamilyKey = "model.family"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "fit_transform", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging.
	ComponentKey = "ml.component"

	// PhaseKey indicates the pipeline stage.
	PhaseKey = "ml.phase"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of rows.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of columns.
	FeaturesKey = "data.features"

	// ColumnsKey lists column names.
	ColumnsKey = "data.columns"

	// PathKey is a file path read or written by a stage.
	PathKey = "data.path"
)

// Performance and Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// RMSEKey records root-mean-squared error.
	RMSEKey = "metrics.rmse"

	// MAEKey records mean absolute error.
	MAEKey = "metrics.mae"

	// R2ScoreKey records R² coefficient of determination.
	R2ScoreKey = "metrics.r2_score"

	// LossKey records training loss.
	LossKey = "metrics.loss"

	// IterationKey records the boosting round.
	IterationKey = "training.iteration"
)

// Hyperparameters and Configuration
const (
	// LearningRateKey records the boosting learning rate.
	LearningRateKey = "hyperparams.learning_rate"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"

	// TestFractionKey records the evaluation split ratio.
	TestFractionKey = "config.test_fraction"
)

// Error Context
const (
	// ErrAttrKey is the field key under which errors are logged.
	ErrAttrKey = "error"

	// StacktraceAttrKey holds the stack trace extracted from a logged error.
	StacktraceAttrKey = "stacktrace"
)

// Standard attribute values.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationScore        = "score"

	PhaseLoading       = "loading"
	PhaseSplitting     = "splitting"
	PhasePreprocessing = "preprocessing"
	PhaseTraining      = "training"
	PhaseEvaluation    = "evaluation"
	PhasePersistence   = "persistence"
)
