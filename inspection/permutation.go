// Package inspection computes model-agnostic feature importances.
package inspection

import (
	"context"
	"math/rand"

	"github.com/YuminosukeSato/scigo-serve/core/model"
	"github.com/YuminosukeSato/scigo-serve/core/parallel"
	"github.com/YuminosukeSato/scigo-serve/metrics"
	"github.com/YuminosukeSato/scigo-serve/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Scorer scores predictor output against y (higher is better).
type Scorer func(m model.Predictor, X mat.Matrix, y *mat.VecDense) (float64, error)

// AccuracyScorer scores classifiers by mean accuracy.
func AccuracyScorer(m model.Predictor, X mat.Matrix, y *mat.VecDense) (float64, error) {
	pred, err := m.Predict(X)
	if err != nil {
		return 0, err
	}
	r, _ := pred.Dims()
	return metrics.Accuracy(y, mat.NewVecDense(r, mat.Col(nil, 0, pred)))
}

// R2Scorer scores regressors by the coefficient of determination.
func R2Scorer(m model.Predictor, X mat.Matrix, y *mat.VecDense) (float64, error) {
	pred, err := m.Predict(X)
	if err != nil {
		return 0, err
	}
	r, _ := pred.Dims()
	return metrics.R2Score(y, mat.NewVecDense(r, mat.Col(nil, 0, pred)))
}

// DefaultScorer picks AccuracyScorer for classifiers and R2Scorer otherwise.
func DefaultScorer(m model.Predictor) Scorer {
	if _, ok := m.(model.Classifier); ok {
		return AccuracyScorer
	}
	return R2Scorer
}

// PermutationOptions configures PermutationImportance.
type PermutationOptions struct {
	// NRepeats is the number of shuffles per feature (default 10).
	NRepeats int
	// Seed makes the shuffles reproducible. It is used as given, 0 included.
	Seed int64
	// Scorer defaults to DefaultScorer(m).
	Scorer Scorer
	// Workers bounds the number of features scored concurrently (0 = NumCPU).
	Workers int
}

func (o PermutationOptions) withDefaults(m model.Predictor) PermutationOptions {
	if o.NRepeats <= 0 {
		o.NRepeats = 10
	}
	if o.Scorer == nil {
		o.Scorer = DefaultScorer(m)
	}
	return o
}

// Importance holds per-feature permutation importances.
type Importance struct {
	Baseline float64
	Mean     []float64
	Std      []float64
	Raw      [][]float64 // n_features × n_repeats
}

// PermutationImportance measures how much the score drops when a single
// column of X is shuffled. Each feature gets its own RNG derived from
// Seed, so results do not depend on Workers.
func PermutationImportance(ctx context.Context, m model.Predictor, X mat.Matrix, y *mat.VecDense, opts PermutationOptions) (*Importance, error) {
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return nil, errors.NewModelError("PermutationImportance", "empty data", errors.ErrEmptyData)
	}
	if y == nil || y.Len() != nSamples {
		got := 0
		if y != nil {
			got = y.Len()
		}
		return nil, errors.NewDimensionError("PermutationImportance", nSamples, got, 0)
	}
	opts = opts.withDefaults(m)

	baseline, err := opts.Scorer(m, X, y)
	if err != nil {
		return nil, errors.Wrap(err, "baseline score")
	}

	imp := &Importance{
		Baseline: baseline,
		Mean:     make([]float64, nFeatures),
		Std:      make([]float64, nFeatures),
		Raw:      make([][]float64, nFeatures),
	}
	errs := make([]error, nFeatures)

	parallel.ParallelizeN(nFeatures, opts.Workers, func(start, end int) {
		for j := start; j < end; j++ {
			// モデル内の panic はゴルーチンを落とさずエラーとして返す
			errs[j] = errors.SafeExecute("permutation importance", func() error {
				var err error
				imp.Raw[j], err = permuteFeature(ctx, m, X, y, j, baseline, opts)
				return err
			})
		}
	})

	for j, err := range errs {
		if err != nil {
			return nil, errors.Wrapf(err, "feature %d", j)
		}
		imp.Mean[j], imp.Std[j] = stat.PopMeanStdDev(imp.Raw[j], nil)
	}
	return imp, nil
}

func permuteFeature(ctx context.Context, m model.Predictor, X mat.Matrix, y *mat.VecDense, j int, baseline float64, opts PermutationOptions) ([]float64, error) {
	rng := rand.New(rand.NewSource(opts.Seed + int64(j)))
	work := mat.DenseCopyOf(X)
	nSamples, _ := X.Dims()
	col := mat.Col(nil, j, X)

	drops := make([]float64, opts.NRepeats)
	for r := 0; r < opts.NRepeats; r++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i, p := range rng.Perm(nSamples) {
			work.Set(i, j, col[p])
		}
		score, err := opts.Scorer(m, work, y)
		if err != nil {
			return nil, err
		}
		drops[r] = baseline - score
	}
	return drops, nil
}

// FeatureImportances returns the model's own importances when it
// implements model.Importancer, otherwise permutation importance means.
func FeatureImportances(ctx context.Context, m model.Predictor, X mat.Matrix, y *mat.VecDense, opts PermutationOptions) ([]float64, error) {
	if imp, ok := m.(model.Importancer); ok {
		scores, err := imp.FeatureImportances()
		if err != nil {
			return nil, err
		}
		if _, nFeatures := X.Dims(); len(scores) != nFeatures {
			return nil, errors.NewDimensionError("FeatureImportances", nFeatures, len(scores), 1)
		}
		return scores, nil
	}

	res, err := PermutationImportance(ctx, m, X, y, opts)
	if err != nil {
		return nil, err
	}
	return res.Mean, nil
}
