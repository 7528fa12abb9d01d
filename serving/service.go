// Package serving exposes a loaded model behind a small JSON HTTP API.
package serving

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/YuminosukeSato/scigo-serve/core/model"
	"github.com/YuminosukeSato/scigo-serve/pkg/errors"
	"github.com/YuminosukeSato/scigo-serve/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// Result is the body of a successful prediction.
//
// Prediction is an int for classifiers and a float64 for regressors.
// Probabilities is keyed by class index ("0", "1", ...) and, together with
// PredictedProbability, is present only for probabilistic models.
type Result struct {
	Prediction           interface{}        `json:"prediction"`
	Probabilities        map[string]float64 `json:"probabilities,omitempty"`
	PredictedProbability *float64           `json:"predicted_probability,omitempty"`
}

func (r Result) clone() Result {
	if r.Probabilities != nil {
		p := make(map[string]float64, len(r.Probabilities))
		for k, v := range r.Probabilities {
			p[k] = v
		}
		r.Probabilities = p
	}
	if r.PredictedProbability != nil {
		v := *r.PredictedProbability
		r.PredictedProbability = &v
	}
	return r
}

// Metadata describes the served model.
type Metadata struct {
	Kind          string   `json:"kind,omitempty"`
	NFeatures     int      `json:"n_features"`
	FeatureNames  []string `json:"feature_names,omitempty"`
	Classes       []int    `json:"classes,omitempty"`
	Probabilistic bool     `json:"probabilistic"`
}

// Service runs single-row inference against an immutable model.
type Service struct {
	predictor    model.Predictor
	featureNames []string
	expected     int
	kind         string

	cache   *Cache
	journal Journal
	logger  log.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables the prediction cache.
func WithCache(c *Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithJournal records every served prediction.
func WithJournal(j Journal) Option {
	return func(s *Service) { s.journal = j }
}

// WithLogger overrides the service logger.
func WithLogger(l log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithKind sets the artifact kind reported by Metadata.
func WithKind(kind string) Option {
	return func(s *Service) { s.kind = kind }
}

// NewService wraps predictor. When featureNames is empty the expected
// vector length is the model's fitted feature count.
func NewService(predictor model.Predictor, featureNames []string, opts ...Option) (*Service, error) {
	if predictor == nil {
		return nil, errors.NewValueError("NewService", "predictor is nil")
	}
	s := &Service{
		predictor:    predictor,
		featureNames: append([]string(nil), featureNames...),
		expected:     predictor.NFeatures(),
	}
	if len(featureNames) > 0 {
		if n := predictor.NFeatures(); n > 0 && n != len(featureNames) {
			return nil, errors.NewFeatureCountError(n, len(featureNames))
		}
		s.expected = len(featureNames)
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.GetLoggerWithName("serving")
	}
	if s.expected <= 0 {
		return nil, errors.NewValidationError("n_features", "cannot determine expected feature count", s.expected)
	}
	return s, nil
}

// ExpectedFeatures is the required feature vector length.
func (s *Service) ExpectedFeatures() int { return s.expected }

// Metadata reports what is being served.
func (s *Service) Metadata() Metadata {
	md := Metadata{
		Kind:         s.kind,
		NFeatures:    s.expected,
		FeatureNames: append([]string(nil), s.featureNames...),
	}
	if c, ok := s.predictor.(model.Classifier); ok {
		md.Classes = c.Classes()
	}
	_, md.Probabilistic = s.predictor.(model.ProbabilisticPredictor)
	return md
}

// Predict validates the vector length and runs inference. A length
// mismatch returns *errors.FeatureCountError; panics inside the model are
// returned as *errors.PanicError.
func (s *Service) Predict(ctx context.Context, features []float64) (Result, error) {
	if len(features) != s.expected {
		return Result{}, errors.NewFeatureCountError(s.expected, len(features))
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if s.cache != nil {
		if res, ok := s.cache.Get(features); ok {
			s.logger.Debug("prediction cache hit", log.CacheHitKey, true)
			s.record(ctx, features, res)
			return res, nil
		}
	}

	start := time.Now()
	var res Result
	err := errors.SafeExecute("predict", func() error {
		var err error
		res, err = s.infer(features)
		return err
	})
	if err != nil {
		return Result{}, err
	}

	s.logger.Debug("prediction served",
		log.OperationKey, log.OperationPredict,
		log.PredictionKey, res.Prediction,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	if s.cache != nil {
		s.cache.Add(features, res)
	}
	s.record(ctx, features, res)
	return res, nil
}

func (s *Service) infer(features []float64) (Result, error) {
	X := mat.NewDense(1, len(features), append([]float64(nil), features...))

	pred, err := s.predictor.Predict(X)
	if err != nil {
		return Result{}, err
	}
	var res Result
	if _, ok := s.predictor.(model.Classifier); ok {
		res.Prediction = int(math.Round(pred.At(0, 0)))
	} else {
		res.Prediction = pred.At(0, 0)
	}

	prob, ok := s.predictor.(model.ProbabilisticPredictor)
	if !ok {
		return res, nil
	}
	proba, err := prob.PredictProba(X)
	if err != nil {
		return Result{}, err
	}
	_, nClasses := proba.Dims()
	res.Probabilities = make(map[string]float64, nClasses)
	best := math.Inf(-1)
	for j := 0; j < nClasses; j++ {
		p := proba.At(0, j)
		res.Probabilities[strconv.Itoa(j)] = p
		best = math.Max(best, p)
	}
	if nClasses > 0 {
		res.PredictedProbability = &best
	}
	return res, nil
}

func (s *Service) record(ctx context.Context, features []float64, res Result) {
	if s.journal == nil {
		return
	}
	entry := Entry{
		RequestID: RequestIDFromContext(ctx),
		Features:  features,
		Result:    res,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.journal.Record(ctx, entry); err != nil {
		s.logger.Warn("journal write failed", log.ErrAttrKey, err, log.RequestIDKey, entry.RequestID)
	}
}
