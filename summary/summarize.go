package summary

import (
	"context"
	"path/filepath"

	"github.com/YuminosukeSato/scigo-serve/core/model"
	"github.com/YuminosukeSato/scigo-serve/inspection"
	"github.com/YuminosukeSato/scigo-serve/metrics"
	"github.com/YuminosukeSato/scigo-serve/pkg/errors"
	"github.com/YuminosukeSato/scigo-serve/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// Options controls Summarize.
type Options struct {
	TopN        int
	Permutation inspection.PermutationOptions
	Logger      log.Logger
}

// Summarize evaluates m on the dataset and ranks its features.
//
// AUC is reported only for probabilistic models on binary labels
// containing both classes.
func Summarize(ctx context.Context, m model.Predictor, ds *Dataset, opts Options) (*Performance, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.GetLoggerWithName("summary")
	}
	if opts.TopN <= 0 {
		opts.TopN = 5
	}

	nSamples, nFeatures := ds.X.Dims()
	if want := m.NFeatures(); want != nFeatures {
		return nil, errors.NewFeatureCountError(want, nFeatures)
	}

	pred, err := m.Predict(ds.X)
	if err != nil {
		return nil, errors.Wrap(err, "predict test set")
	}
	acc, err := metrics.Accuracy(ds.Y, mat.NewVecDense(nSamples, mat.Col(nil, 0, pred)))
	if err != nil {
		return nil, err
	}

	perf := &Performance{TestAccuracy: acc}

	if prob, ok := m.(model.ProbabilisticPredictor); ok && hasBothBinaryClasses(ds.Y) {
		proba, err := prob.PredictProba(ds.X)
		if err != nil {
			return nil, errors.Wrap(err, "predict probabilities")
		}
		if _, c := proba.Dims(); c == 2 {
			auc, err := metrics.AUC(ds.Y, mat.NewVecDense(nSamples, mat.Col(nil, 1, proba)))
			if err != nil {
				return nil, err
			}
			perf.TestAUC = &auc
		}
	}

	scores, err := inspection.FeatureImportances(ctx, m, ds.X, ds.Y, opts.Permutation)
	if err != nil {
		return nil, errors.Wrap(err, "feature importances")
	}
	top, err := inspection.TopFeatures(ds.FeatureNames, scores, opts.TopN)
	if err != nil {
		return nil, err
	}
	for _, f := range top {
		perf.TopFeatures = append(perf.TopFeatures, TopFeature{Name: f.Name, Score: f.Score})
	}

	logger.Info("model summarized",
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.AccuracyKey, acc,
		log.AUCKey, perf.TestAUC,
	)
	return perf, nil
}

// WriteAll writes feature_names.json and model_performance.json into dir.
func WriteAll(dir string, names []string, perf *Performance) error {
	if err := WriteFeatureNames(filepath.Join(dir, FeatureNamesFile), names); err != nil {
		return err
	}
	return WritePerformance(filepath.Join(dir, PerformanceFile), perf)
}

func hasBothBinaryClasses(y *mat.VecDense) bool {
	var zero, one bool
	for i := 0; i < y.Len(); i++ {
		switch y.AtVec(i) {
		case 0:
			zero = true
		case 1:
			one = true
		default:
			return false
		}
	}
	return zero && one
}
