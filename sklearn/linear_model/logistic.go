package linear_model

import (
	"math"
	"math/rand"
	"sort"

	"github.com/YuminosukeSato/scigo-serve/core/model"
	"github.com/YuminosukeSato/scigo-serve/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// LogisticRegressionKind is the artifact kind for LogisticRegression.
const LogisticRegressionKind = "logistic_regression"

// LogisticRegression implements logistic regression for classification.
// Binary problems use a single sigmoid unit; multiclass problems are fitted
// one-vs-rest and PredictProba normalizes the per-class scores with softmax.
type LogisticRegression struct {
	state *model.StateManager

	// Hyperparameters
	penalty      string  // Regularization: "l2" or "none"
	C            float64 // Inverse regularization strength (1/alpha)
	fitIntercept bool
	maxIter      int
	tol          float64
	randomState  int64

	// Model parameters
	coef_      [][]float64 // 1 x n_features for binary, n_classes x n_features otherwise
	intercept_ []float64
	classes_   []int
	nIter_     []int

	rand *rand.Rand
}

var (
	_ model.Fitter                 = (*LogisticRegression)(nil)
	_ model.ProbabilisticPredictor = (*LogisticRegression)(nil)
	_ model.Classifier             = (*LogisticRegression)(nil)
	_ model.Persistable            = (*LogisticRegression)(nil)
)

func init() {
	model.Register(LogisticRegressionKind, func(w *model.ModelWeights) (model.Persistable, error) {
		lr := NewLogisticRegression()
		if err := lr.ImportWeights(w); err != nil {
			return nil, err
		}
		return lr, nil
	})
}

// LogisticRegressionOption is a functional option for LogisticRegression
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a new LogisticRegression classifier
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager(),
		penalty:      "l2",
		C:            1.0,
		fitIntercept: true,
		maxIter:      100,
		tol:          1e-4,
		randomState:  -1,
	}
	for _, opt := range opts {
		opt(lr)
	}

	if lr.randomState >= 0 {
		lr.rand = rand.New(rand.NewSource(lr.randomState))
	} else {
		lr.rand = rand.New(rand.NewSource(rand.Int63()))
	}
	return lr
}

// WithLRPenalty sets the regularization type ("l2" or "none")
func WithLRPenalty(penalty string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.penalty = penalty
	}
}

// WithLRC sets the inverse regularization strength
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.C = c
	}
}

// WithLogisticFitIntercept sets whether to fit intercept
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.fitIntercept = fit
	}
}

// WithLRMaxIter sets the maximum number of iterations
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.maxIter = maxIter
	}
}

// WithLRTol sets the tolerance for stopping criteria
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.tol = tol
	}
}

// WithLRRandomState sets the random seed used for weight initialization
func WithLRRandomState(seed int64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.randomState = seed
	}
}

// Fit trains the logistic regression model
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()

	if nSamples == 0 || nFeatures == 0 {
		return errors.NewModelError("LogisticRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if nSamples != yRows {
		return errors.NewDimensionError("LogisticRegression.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("LogisticRegression.Fit", 1, yCols, 1)
	}
	if lr.penalty != "l2" && lr.penalty != "none" {
		return errors.NewValidationError("penalty", "must be l2 or none", lr.penalty)
	}
	if lr.C <= 0 {
		return errors.NewValidationError("C", "must be positive", lr.C)
	}

	lr.extractClasses(y)
	if len(lr.classes_) < 2 {
		return errors.NewValueError("LogisticRegression.Fit", "needs samples of at least 2 classes")
	}
	lr.initializeWeights(nFeatures)

	if len(lr.classes_) == 2 {
		lr.fitBinaryColumn(X, lr.binaryTarget(y, lr.classes_[1]), 0)
	} else {
		for classIdx, class := range lr.classes_ {
			lr.fitBinaryColumn(X, lr.binaryTarget(y, class), classIdx)
		}
	}

	lr.state.SetFitted(nFeatures, nSamples)
	return nil
}

// extractClasses identifies unique class labels
func (lr *LogisticRegression) extractClasses(y mat.Matrix) {
	rows, _ := y.Dims()
	classMap := make(map[int]bool)
	for i := 0; i < rows; i++ {
		classMap[int(y.At(i, 0))] = true
	}

	lr.classes_ = make([]int, 0, len(classMap))
	for class := range classMap {
		lr.classes_ = append(lr.classes_, class)
	}
	sort.Ints(lr.classes_)
}

// initializeWeights initializes model weights with small random values
func (lr *LogisticRegression) initializeWeights(nFeatures int) {
	nRows := len(lr.classes_)
	if nRows == 2 {
		nRows = 1
	}

	lr.coef_ = make([][]float64, nRows)
	for i := range lr.coef_ {
		lr.coef_[i] = make([]float64, nFeatures)
		for j := range lr.coef_[i] {
			lr.coef_[i][j] = lr.rand.NormFloat64() * 0.01
		}
	}
	lr.intercept_ = make([]float64, nRows)
	lr.nIter_ = make([]int, nRows)
}

func (lr *LogisticRegression) binaryTarget(y mat.Matrix, positive int) *mat.VecDense {
	n, _ := y.Dims()
	out := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		if int(y.At(i, 0)) == positive {
			out.SetVec(i, 1)
		}
	}
	return out
}

// fitBinaryColumn fits one sigmoid unit (row of coef_) by gradient descent
func (lr *LogisticRegression) fitBinaryColumn(X mat.Matrix, yBinary *mat.VecDense, row int) {
	nSamples, nFeatures := X.Dims()
	weights := lr.coef_[row]
	intercept := &lr.intercept_[row]

	baseLearningRate := 1.0
	gradWeights := make([]float64, nFeatures)
	converged := false

	for iter := 0; iter < lr.maxIter; iter++ {
		for j := range gradWeights {
			gradWeights[j] = 0
		}
		gradIntercept := 0.0

		for i := 0; i < nSamples; i++ {
			z := *intercept
			for j := 0; j < nFeatures; j++ {
				z += X.At(i, j) * weights[j]
			}
			residual := sigmoid(z) - yBinary.AtVec(i)
			gradIntercept += residual
			for j := 0; j < nFeatures; j++ {
				gradWeights[j] += residual * X.At(i, j)
			}
		}

		for j := range gradWeights {
			gradWeights[j] /= float64(nSamples)
		}
		gradIntercept /= float64(nSamples)

		if lr.penalty == "l2" {
			lambda := 1.0 / (lr.C * float64(nSamples))
			for j := range weights {
				gradWeights[j] += lambda * weights[j]
			}
		}

		learningRate := baseLearningRate / (1.0 + 0.1*float64(iter))
		for j := range weights {
			weights[j] -= learningRate * gradWeights[j]
		}
		if lr.fitIntercept {
			*intercept -= learningRate * gradIntercept
		}
		lr.nIter_[row] = iter + 1

		maxGrad := math.Abs(gradIntercept)
		for _, g := range gradWeights {
			maxGrad = math.Max(maxGrad, math.Abs(g))
		}
		if maxGrad < lr.tol {
			converged = true
			break
		}
	}

	if !converged {
		errors.Warn(errors.NewConvergenceWarning("LogisticRegression", lr.maxIter, ""))
	}
}

func (lr *LogisticRegression) checkPredict(X mat.Matrix, method string) (int, error) {
	if err := lr.state.RequireFitted("LogisticRegression", method); err != nil {
		return 0, err
	}
	nSamples, nFeatures := X.Dims()
	if err := lr.state.RequireFeatures("LogisticRegression."+method, nFeatures); err != nil {
		return 0, err
	}
	return nSamples, nil
}

func (lr *LogisticRegression) decision(X mat.Matrix, i, row int) float64 {
	z := lr.intercept_[row]
	for j, w := range lr.coef_[row] {
		z += X.At(i, j) * w
	}
	return z
}

// Predict returns the predicted class label for each sample (n_samples × 1)
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	nSamples, err := lr.checkPredict(X, "Predict")
	if err != nil {
		return nil, err
	}

	predictions := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		if len(lr.classes_) == 2 {
			label := lr.classes_[0]
			if sigmoid(lr.decision(X, i, 0)) >= 0.5 {
				label = lr.classes_[1]
			}
			predictions.Set(i, 0, float64(label))
			continue
		}

		best, bestScore := 0, math.Inf(-1)
		for row := range lr.classes_ {
			if score := lr.decision(X, i, row); score > bestScore {
				best, bestScore = row, score
			}
		}
		predictions.Set(i, 0, float64(lr.classes_[best]))
	}
	return predictions, nil
}

// PredictProba returns probability estimates for each class (n_samples × n_classes)
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	nSamples, err := lr.checkPredict(X, "PredictProba")
	if err != nil {
		return nil, err
	}

	nClasses := len(lr.classes_)
	probas := mat.NewDense(nSamples, nClasses, nil)
	scores := make([]float64, nClasses)

	for i := 0; i < nSamples; i++ {
		if nClasses == 2 {
			p1 := sigmoid(lr.decision(X, i, 0))
			probas.Set(i, 0, 1.0-p1)
			probas.Set(i, 1, p1)
			continue
		}

		maxScore := math.Inf(-1)
		for row := 0; row < nClasses; row++ {
			scores[row] = lr.decision(X, i, row)
			maxScore = math.Max(maxScore, scores[row])
		}
		sum := 0.0
		for row := range scores {
			scores[row] = math.Exp(scores[row] - maxScore)
			sum += scores[row]
		}
		for row := range scores {
			probas.Set(i, row, scores[row]/sum)
		}
	}
	return probas, nil
}

// Score returns the mean accuracy on the given test data and labels
func (lr *LogisticRegression) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	nSamples, _ := X.Dims()
	correct := 0
	for i := 0; i < nSamples; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(nSamples), nil
}

// Classes returns the sorted class labels seen during fitting
func (lr *LogisticRegression) Classes() []int {
	return append([]int(nil), lr.classes_...)
}

// NFeatures returns the number of features seen during fitting
func (lr *LogisticRegression) NFeatures() int {
	return lr.state.NFeatures()
}

// NIter returns the number of gradient steps taken per fitted unit
func (lr *LogisticRegression) NIter() []int {
	return append([]int(nil), lr.nIter_...)
}

// Kind implements model.Persistable
func (lr *LogisticRegression) Kind() string {
	return LogisticRegressionKind
}

// GetParams returns the model hyperparameters
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"penalty":       lr.penalty,
		"C":             lr.C,
		"fit_intercept": lr.fitIntercept,
		"max_iter":      lr.maxIter,
		"tol":           lr.tol,
		"random_state":  lr.randomState,
	}
}

// ExportWeights はモデルの重みをエクスポート
func (lr *LogisticRegression) ExportWeights() (*model.ModelWeights, error) {
	if err := lr.state.RequireFitted("LogisticRegression", "ExportWeights"); err != nil {
		return nil, err
	}

	w := &model.ModelWeights{
		ModelType:       LogisticRegressionKind,
		Version:         model.WeightsVersion,
		Coefficients:    make([][]float64, len(lr.coef_)),
		Intercepts:      append([]float64(nil), lr.intercept_...),
		Classes:         lr.Classes(),
		NFeatures:       lr.state.NFeatures(),
		Hyperparameters: lr.GetParams(),
		IsFitted:        true,
	}
	for i, row := range lr.coef_ {
		w.Coefficients[i] = append([]float64(nil), row...)
	}
	w.Checksum = w.ComputeChecksum()
	return w, nil
}

// ImportWeights はモデルの重みをインポート
func (lr *LogisticRegression) ImportWeights(w *model.ModelWeights) error {
	if w == nil {
		return errors.NewValueError("LogisticRegression.ImportWeights", "weights cannot be nil")
	}
	if w.ModelType != LogisticRegressionKind {
		return errors.NewValidationError("model_type", "expected "+LogisticRegressionKind, w.ModelType)
	}
	if err := w.Validate(); err != nil {
		return err
	}

	nClasses := len(w.Classes)
	switch {
	case nClasses == 2 && len(w.Coefficients) == 1:
	case nClasses > 2 && len(w.Coefficients) == nClasses:
	default:
		return errors.NewDimensionError("LogisticRegression.ImportWeights", nClasses, len(w.Coefficients), 0)
	}

	if v, ok := w.Hyperparameters["penalty"].(string); ok {
		lr.penalty = v
	}
	if v, ok := w.Hyperparameters["C"].(float64); ok {
		lr.C = v
	}
	if v, ok := w.Hyperparameters["fit_intercept"].(bool); ok {
		lr.fitIntercept = v
	}

	lr.coef_ = make([][]float64, len(w.Coefficients))
	for i, row := range w.Coefficients {
		lr.coef_[i] = append([]float64(nil), row...)
	}
	lr.intercept_ = append([]float64(nil), w.Intercepts...)
	lr.classes_ = append([]int(nil), w.Classes...)
	lr.nIter_ = make([]int, len(lr.coef_))
	lr.state.SetFitted(w.NFeatures, 0)
	return nil
}

// sigmoid computes the sigmoid function
func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
