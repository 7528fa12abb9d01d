package linear_model

import (
	"github.com/YuminosukeSato/scigo-serve/core/model"
	"github.com/YuminosukeSato/scigo-serve/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// LinearRegressionKind is the artifact kind for LinearRegression.
const LinearRegressionKind = "linear_regression"

// LinearRegression is a linear regression model using ordinary least squares
type LinearRegression struct {
	state *model.StateManager

	// Hyperparameters
	fitIntercept bool // Whether to learn the intercept
	positive     bool // Whether to clip coefficients to be non-negative

	// Learned parameters
	coef_      []float64
	intercept_ float64
}

var (
	_ model.Fitter      = (*LinearRegression)(nil)
	_ model.Persistable = (*LinearRegression)(nil)
	_ model.Importancer = (*LinearRegression)(nil)
)

func init() {
	model.Register(LinearRegressionKind, func(w *model.ModelWeights) (model.Persistable, error) {
		lr := NewLinearRegression()
		if err := lr.ImportWeights(w); err != nil {
			return nil, err
		}
		return lr, nil
	})
}

// NewLinearRegression は新しいLinearRegressionモデルを作成
func NewLinearRegression(options ...LinearRegressionOption) *LinearRegression {
	lr := &LinearRegression{
		state:        model.NewStateManager(),
		fitIntercept: true,
	}
	for _, opt := range options {
		opt(lr)
	}
	return lr
}

// LinearRegressionOption は設定オプション
type LinearRegressionOption func(*LinearRegression)

// WithLRFitIntercept は切片の学習有無を設定（LinearRegression用）
func WithLRFitIntercept(fit bool) LinearRegressionOption {
	return func(lr *LinearRegression) {
		lr.fitIntercept = fit
	}
}

// WithPositive は係数の正制約を設定
func WithPositive(positive bool) LinearRegressionOption {
	return func(lr *LinearRegression) {
		lr.positive = positive
	}
}

// Fit はモデルを訓練データで学習
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()
	yRows, yCols := y.Dims()

	// 入力検証
	if rows == 0 || cols == 0 {
		return errors.NewModelError("LinearRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if rows != yRows {
		return errors.NewDimensionError("LinearRegression.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("LinearRegression.Fit", 1, yCols, 1)
	}

	// 切片の処理: [ones | X]
	offset := 0
	if lr.fitIntercept {
		offset = 1
	}
	XFit := mat.NewDense(rows, cols+offset, nil)
	for i := 0; i < rows; i++ {
		if lr.fitIntercept {
			XFit.Set(i, 0, 1.0)
		}
		for j := 0; j < cols; j++ {
			XFit.Set(i, j+offset, X.At(i, j))
		}
	}

	// 正規方程式より数値的に安定なQR分解を使用
	var qr mat.QR
	qr.Factorize(XFit)

	coefficients := mat.NewDense(cols+offset, 1, nil)
	if err := qr.SolveTo(coefficients, false, y); err != nil {
		return errors.NewModelError("LinearRegression.Fit", "failed to solve linear system", err)
	}

	lr.intercept_ = 0
	if lr.fitIntercept {
		lr.intercept_ = coefficients.At(0, 0)
	}
	lr.coef_ = make([]float64, cols)
	for i := range lr.coef_ {
		lr.coef_[i] = coefficients.At(i+offset, 0)
	}

	if lr.positive {
		for i := range lr.coef_ {
			if lr.coef_[i] < 0 {
				lr.coef_[i] = 0
			}
		}
	}

	lr.state.SetFitted(cols, rows)
	return nil
}

// Predict は入力データに対する予測を行う
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.state.RequireFitted("LinearRegression", "Predict"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := lr.state.RequireFeatures("LinearRegression.Predict", cols); err != nil {
		return nil, err
	}

	predictions := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		pred := lr.intercept_
		for j := 0; j < cols; j++ {
			pred += X.At(i, j) * lr.coef_[j]
		}
		predictions.Set(i, 0, pred)
	}
	return predictions, nil
}

// Score はモデルの決定係数（R²）を計算
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}

	rows, _ := y.Dims()
	var yMean float64
	for i := 0; i < rows; i++ {
		yMean += y.At(i, 0)
	}
	yMean /= float64(rows)

	var ssTot, ssRes float64
	for i := 0; i < rows; i++ {
		yi := y.At(i, 0)
		predi := predictions.At(i, 0)
		ssTot += (yi - yMean) * (yi - yMean)
		ssRes += (yi - predi) * (yi - predi)
	}

	if ssTot == 0 {
		return 0, errors.NewValueError("LinearRegression.Score", "Cannot compute score with zero variance in y_true")
	}
	return 1.0 - (ssRes / ssTot), nil
}

// FeatureImportances は係数の絶対値を重要度として返す
func (lr *LinearRegression) FeatureImportances() ([]float64, error) {
	if err := lr.state.RequireFitted("LinearRegression", "FeatureImportances"); err != nil {
		return nil, err
	}
	out := make([]float64, len(lr.coef_))
	for i, c := range lr.coef_ {
		if c < 0 {
			c = -c
		}
		out[i] = c
	}
	return out, nil
}

// Coef は学習された重み係数を返す
func (lr *LinearRegression) Coef() []float64 {
	return append([]float64(nil), lr.coef_...)
}

// Intercept は学習された切片を返す
func (lr *LinearRegression) Intercept() float64 {
	return lr.intercept_
}

// NFeatures returns the number of features seen during fitting
func (lr *LinearRegression) NFeatures() int {
	return lr.state.NFeatures()
}

// Kind implements model.Persistable
func (lr *LinearRegression) Kind() string {
	return LinearRegressionKind
}

// GetParams returns the model's hyperparameters
func (lr *LinearRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"fit_intercept": lr.fitIntercept,
		"positive":      lr.positive,
	}
}

// ExportWeights はモデルの重みをエクスポート
func (lr *LinearRegression) ExportWeights() (*model.ModelWeights, error) {
	if err := lr.state.RequireFitted("LinearRegression", "ExportWeights"); err != nil {
		return nil, err
	}
	w := &model.ModelWeights{
		ModelType:       LinearRegressionKind,
		Version:         model.WeightsVersion,
		Coefficients:    [][]float64{lr.Coef()},
		Intercepts:      []float64{lr.intercept_},
		NFeatures:       lr.state.NFeatures(),
		Hyperparameters: lr.GetParams(),
		IsFitted:        true,
	}
	w.Checksum = w.ComputeChecksum()
	return w, nil
}

// ImportWeights はモデルの重みをインポート
func (lr *LinearRegression) ImportWeights(w *model.ModelWeights) error {
	if w == nil {
		return errors.NewValueError("LinearRegression.ImportWeights", "weights cannot be nil")
	}
	if w.ModelType != LinearRegressionKind {
		return errors.NewValidationError("model_type", "expected "+LinearRegressionKind, w.ModelType)
	}
	if err := w.Validate(); err != nil {
		return err
	}
	if len(w.Coefficients) != 1 {
		return errors.NewDimensionError("LinearRegression.ImportWeights", 1, len(w.Coefficients), 0)
	}

	if v, ok := w.Hyperparameters["fit_intercept"].(bool); ok {
		lr.fitIntercept = v
	}
	if v, ok := w.Hyperparameters["positive"].(bool); ok {
		lr.positive = v
	}
	lr.coef_ = append([]float64(nil), w.Coefficients[0]...)
	lr.intercept_ = w.Intercepts[0]
	lr.state.SetFitted(w.NFeatures, 0)
	return nil
}
