// Package log defines standard attribute keys for model serving operations.
//
// Keys follow a hierarchical naming convention (e.g. "model.name",
// "data.features") so that logs from the API, the UI and the offline
// summarizer can be filtered the same way.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of machine learning model.
	// Examples: "LogisticRegression", "LinearRegression"
	ModelNameKey = "model.name"

	// ModelKindKey is the artifact kind the model was decoded from.
	ModelKindKey = "model.kind"

	// ModelPathKey is the filesystem path of the loaded artifact.
	ModelPathKey = "model.path"

	// OperationKey specifies the machine learning operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which component is logging.
	// Examples: "serving", "ui", "summarize"
	ComponentKey = "ml.component"
)

// Data Shape
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records model accuracy for evaluation operations.
	AccuracyKey = "metrics.accuracy"

	// AUCKey records ROC AUC for binary classifiers.
	AUCKey = "metrics.auc"
)

// Prediction Context
const (
	// ConfidenceKey records prediction confidence or probability.
	ConfidenceKey = "preds.confidence"

	// PredictionKey records the predicted label or value.
	PredictionKey = "preds.value"

	// CacheHitKey reports whether a prediction was served from cache.
	CacheHitKey = "preds.cache_hit"
)

// HTTP Context
const (
	RequestIDKey = "http.request_id"
	MethodKey    = "http.method"
	PathKey      = "http.path"
	StatusKey    = "http.status"
	EndpointKey  = "http.endpoint"
)

// Error Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"
)

// Standard attribute values.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationPredictProba = "predict_proba"
	OperationScore        = "score"
	OperationLoad         = "load"

	PhaseTraining   = "training"
	PhaseTesting    = "testing"
	PhaseInference  = "inference"
	PhaseValidation = "validation"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorInvalidInput      = "INVALID_INPUT"
	ErrorInference         = "INFERENCE_FAILURE"
)
