package serving

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/YuminosukeSato/scigo-serve/core/model"
	"github.com/YuminosukeSato/scigo-serve/pkg/errors"
	"github.com/YuminosukeSato/scigo-serve/pkg/log"
	"github.com/YuminosukeSato/scigo-serve/sklearn/linear_model"
	"github.com/YuminosukeSato/scigo-serve/summary"
	"gonum.org/v1/gonum/mat"
)

// sumRegressor predicts the sum of the features.
type sumRegressor struct {
	n     int
	calls int
}

func (s *sumRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	s.calls++
	r, c := X.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		sum := 0.0
		for j := 0; j < c; j++ {
			sum += X.At(i, j)
		}
		out.Set(i, 0, sum)
	}
	return out, nil
}
func (s *sumRegressor) NFeatures() int { return s.n }

// panicModel simulates an estimator bug.
type panicModel struct{}

func (panicModel) Predict(mat.Matrix) (mat.Matrix, error) { panic("index out of range") }
func (panicModel) NFeatures() int                         { return 2 }

// failingModel returns an inference error.
type failingModel struct{}

func (failingModel) Predict(mat.Matrix) (mat.Matrix, error) {
	return nil, errors.New("matrix is singular")
}
func (failingModel) NFeatures() int { return 2 }

func fittedClassifier(t *testing.T) *linear_model.LogisticRegression {
	t.Helper()
	X := mat.NewDense(6, 2, []float64{
		0.5, 0.5,
		1.0, 1.5,
		1.5, 1.0,
		3.0, 2.5,
		2.5, 3.0,
		3.5, 3.5,
	})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})
	clf := linear_model.NewLogisticRegression(linear_model.WithLRMaxIter(1000), linear_model.WithLRRandomState(42))
	if err := clf.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	return clf
}

func TestService_Predict_Classifier(t *testing.T) {
	svc, err := NewService(fittedClassifier(t), []string{"a", "b"}, WithLogger(log.NewNop()))
	if err != nil {
		t.Fatal(err)
	}

	res, err := svc.Predict(context.Background(), []float64{3, 3})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if label, ok := res.Prediction.(int); !ok || label != 1 {
		t.Errorf("Prediction = %#v, want int 1", res.Prediction)
	}
	if len(res.Probabilities) != 2 {
		t.Fatalf("Probabilities = %v", res.Probabilities)
	}
	max := math.Max(res.Probabilities["0"], res.Probabilities["1"])
	if res.PredictedProbability == nil || *res.PredictedProbability != max {
		t.Errorf("PredictedProbability = %v, want %v", res.PredictedProbability, max)
	}
}

func TestService_Predict_Regressor(t *testing.T) {
	svc, err := NewService(&sumRegressor{n: 3}, nil, WithLogger(log.NewNop()))
	if err != nil {
		t.Fatal(err)
	}
	res, err := svc.Predict(context.Background(), []float64{1, 2, 3.5})
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := res.Prediction.(float64); !ok || v != 6.5 {
		t.Errorf("Prediction = %#v, want 6.5", res.Prediction)
	}
	if res.Probabilities != nil || res.PredictedProbability != nil {
		t.Error("regressor must not report probabilities")
	}
}

func TestService_Predict_FeatureCount(t *testing.T) {
	svc, err := NewService(&sumRegressor{n: 2}, []string{"a", "b"}, WithLogger(log.NewNop()))
	if err != nil {
		t.Fatal(err)
	}
	if svc.ExpectedFeatures() != 2 {
		t.Fatalf("ExpectedFeatures() = %d, want 2", svc.ExpectedFeatures())
	}

	tests := []struct {
		name     string
		features []float64
		wantMsg  string
	}{
		{name: "too few", features: []float64{1.0}, wantMsg: "Expected 2 features, got 1"},
		{name: "too many", features: []float64{1, 2, 3}, wantMsg: "Expected 2 features, got 3"},
		{name: "empty", features: nil, wantMsg: "Expected 2 features, got 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Predict(context.Background(), tt.features)
			var fc *errors.FeatureCountError
			if !errors.As(err, &fc) {
				t.Fatalf("expected FeatureCountError, got %v", err)
			}
			if fc.Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", fc.Error(), tt.wantMsg)
			}
		})
	}
}

func TestService_Predict_InferenceFailures(t *testing.T) {
	tests := []struct {
		name  string
		model model.Predictor
		check func(t *testing.T, err error)
	}{
		{
			name:  "panic becomes PanicError",
			model: panicModel{},
			check: func(t *testing.T, err error) {
				var pe *errors.PanicError
				if !errors.As(err, &pe) {
					t.Fatalf("expected PanicError, got %v", err)
				}
			},
		},
		{
			name:  "error is returned",
			model: failingModel{},
			check: func(t *testing.T, err error) {
				if err == nil || err.Error() != "matrix is singular" {
					t.Fatalf("err = %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewService(tt.model, nil, WithLogger(log.NewNop()))
			if err != nil {
				t.Fatal(err)
			}
			_, err = svc.Predict(context.Background(), []float64{1, 2})
			tt.check(t, err)
		})
	}
}

func TestNewService_NameCountMismatch(t *testing.T) {
	_, err := NewService(&sumRegressor{n: 3}, []string{"a", "b"})
	var fc *errors.FeatureCountError
	if !errors.As(err, &fc) {
		t.Fatalf("expected FeatureCountError, got %v", err)
	}
}

func TestService_Cache(t *testing.T) {
	cache, err := NewCache(8)
	if err != nil {
		t.Fatal(err)
	}
	m := &sumRegressor{n: 2}
	svc, err := NewService(m, nil, WithCache(cache), WithLogger(log.NewNop()))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if _, err := svc.Predict(context.Background(), []float64{1, 2}); err != nil {
			t.Fatal(err)
		}
	}
	if m.calls != 1 {
		t.Errorf("model called %d times, want 1", m.calls)
	}

	// 0.0 と -0.0 はビットパターンが異なる
	if _, err := svc.Predict(context.Background(), []float64{math.Copysign(0, -1), 2}); err != nil {
		t.Fatal(err)
	}
	if m.calls != 2 || cache.Len() != 2 {
		t.Errorf("calls = %d, cache len = %d, want 2 and 2", m.calls, cache.Len())
	}
}

func TestService_CacheReturnsCopies(t *testing.T) {
	cache, err := NewCache(8)
	if err != nil {
		t.Fatal(err)
	}
	p := 0.9
	cache.Add([]float64{1}, Result{Prediction: 1, Probabilities: map[string]float64{"1": p}, PredictedProbability: &p})

	got, _ := cache.Get([]float64{1})
	got.Probabilities["1"] = 0
	*got.PredictedProbability = 0

	again, _ := cache.Get([]float64{1})
	if again.Probabilities["1"] != 0.9 || *again.PredictedProbability != 0.9 {
		t.Errorf("cached result was mutated: %+v", again)
	}
}

func TestService_Metadata(t *testing.T) {
	svc, err := NewService(fittedClassifier(t), []string{"a", "b"}, WithKind(linear_model.LogisticRegressionKind))
	if err != nil {
		t.Fatal(err)
	}
	md := svc.Metadata()
	if md.Kind != "logistic_regression" || md.NFeatures != 2 || !md.Probabilistic {
		t.Errorf("Metadata() = %+v", md)
	}
	if len(md.Classes) != 2 {
		t.Errorf("Classes = %v", md.Classes)
	}
}

func TestLoadModel(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.gob")

	art, err := model.NewArtifact(fittedClassifier(t), []string{"art_a", "art_b"})
	if err != nil {
		t.Fatal(err)
	}
	if err := model.SaveArtifact(art, modelPath); err != nil {
		t.Fatal(err)
	}

	t.Run("falls back to artifact names", func(t *testing.T) {
		lm, err := LoadModel(modelPath, filepath.Join(dir, "missing.json"))
		if err != nil {
			t.Fatal(err)
		}
		if lm.Kind != linear_model.LogisticRegressionKind || lm.FeatureNames[0] != "art_a" {
			t.Errorf("LoadModel() = %+v", lm)
		}
	})

	t.Run("matching feature names file", func(t *testing.T) {
		path := filepath.Join(dir, "names.json")
		if err := summary.WriteFeatureNames(path, []string{"art_a", "art_b"}); err != nil {
			t.Fatal(err)
		}
		lm, err := LoadModel(modelPath, path)
		if err != nil {
			t.Fatal(err)
		}
		if lm.FeatureNames[1] != "art_b" {
			t.Errorf("FeatureNames = %v", lm.FeatureNames)
		}
	})

	t.Run("feature names file names an unnamed artifact", func(t *testing.T) {
		unnamed, err := model.NewArtifact(fittedClassifier(t), nil)
		if err != nil {
			t.Fatal(err)
		}
		unnamedPath := filepath.Join(dir, "unnamed.gob")
		if err := model.SaveArtifact(unnamed, unnamedPath); err != nil {
			t.Fatal(err)
		}
		path := filepath.Join(dir, "xy.json")
		if err := summary.WriteFeatureNames(path, []string{"x", "y"}); err != nil {
			t.Fatal(err)
		}
		lm, err := LoadModel(unnamedPath, path)
		if err != nil {
			t.Fatal(err)
		}
		if lm.FeatureNames[0] != "x" {
			t.Errorf("FeatureNames = %v", lm.FeatureNames)
		}
	})

	t.Run("reordered feature names", func(t *testing.T) {
		path := filepath.Join(dir, "reordered.json")
		if err := summary.WriteFeatureNames(path, []string{"art_b", "art_a"}); err != nil {
			t.Fatal(err)
		}
		_, err := LoadModel(modelPath, path)
		var ve *errors.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("feature names count mismatch", func(t *testing.T) {
		path := filepath.Join(dir, "three.json")
		if err := summary.WriteFeatureNames(path, []string{"x", "y", "z"}); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadModel(modelPath, path); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("missing artifact", func(t *testing.T) {
		if _, err := LoadModel(filepath.Join(dir, "nope.gob"), ""); err == nil {
			t.Error("expected error")
		}
	})
}
