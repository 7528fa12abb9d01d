// Package model defines the estimator interfaces used by the serving stack,
// the fitted-state bookkeeping shared by estimators and the on-disk model
// artifact format.
package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う (n_samples × 1)
	Predict(X mat.Matrix) (mat.Matrix, error)

	// NFeatures は学習時の特徴量数を返す
	NFeatures() int
}

// ProbabilisticPredictor is implemented by models that expose class
// probabilities. Column j of the result is the probability of Classes()[j].
type ProbabilisticPredictor interface {
	Predictor

	// PredictProba returns probability estimates for each class (n_samples × n_classes).
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}

// Classifier is a model whose Predict output is a discrete class label.
type Classifier interface {
	Predictor

	// Classes returns the sorted class labels seen during fitting.
	Classes() []int
}

// Importancer is implemented by models that carry their own per-feature
// importance scores (non-negative, one per feature).
type Importancer interface {
	FeatureImportances() ([]float64, error)
}

// Persistable is a fitted model that can be written into an Artifact.
type Persistable interface {
	Predictor

	// Kind is the registry key used to decode the model back.
	Kind() string

	// ExportWeights snapshots the learned parameters.
	ExportWeights() (*ModelWeights, error)
}
