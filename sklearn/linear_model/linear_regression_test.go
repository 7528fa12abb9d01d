package linear_model

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/YuminosukeSato/scigo-serve/core/model"
	"github.com/YuminosukeSato/scigo-serve/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func TestLinearRegression_FitPredict(t *testing.T) {
	// y = 2*x1 - 3*x2 + 1
	X := mat.NewDense(5, 2, []float64{
		1, 0,
		0, 1,
		1, 1,
		2, 1,
		3, 2,
	})
	y := mat.NewDense(5, 1, nil)
	for i := 0; i < 5; i++ {
		y.Set(i, 0, 2*X.At(i, 0)-3*X.At(i, 1)+1)
	}

	tests := []struct {
		name          string
		opts          []LinearRegressionOption
		wantIntercept float64
	}{
		{name: "with intercept", wantIntercept: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr := NewLinearRegression(tt.opts...)
			if err := lr.Fit(X, y); err != nil {
				t.Fatalf("Fit() error = %v", err)
			}

			coef := lr.Coef()
			if math.Abs(coef[0]-2) > 1e-9 || math.Abs(coef[1]+3) > 1e-9 {
				t.Errorf("Coef() = %v, want [2 -3]", coef)
			}
			if math.Abs(lr.Intercept()-tt.wantIntercept) > 1e-9 {
				t.Errorf("Intercept() = %v, want %v", lr.Intercept(), tt.wantIntercept)
			}

			score, err := lr.Score(X, y)
			if err != nil {
				t.Fatalf("Score() error = %v", err)
			}
			if math.Abs(score-1) > 1e-9 {
				t.Errorf("Score() = %v, want 1", score)
			}
		})
	}
}

func TestLinearRegression_NoIntercept(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewDense(3, 1, []float64{2, 4, 6})

	lr := NewLinearRegression(WithLRFitIntercept(false))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if lr.Intercept() != 0 {
		t.Errorf("Intercept() = %v, want 0", lr.Intercept())
	}
	if math.Abs(lr.Coef()[0]-2) > 1e-9 {
		t.Errorf("Coef() = %v, want [2]", lr.Coef())
	}
}

func TestLinearRegression_Positive(t *testing.T) {
	// y = 3*x0 - 2*x1
	X := mat.NewDense(4, 2, []float64{1, 0, 0, 1, 1, 1, 2, 1})
	y := mat.NewDense(4, 1, []float64{3, -2, 1, 4})

	tests := []struct {
		name     string
		positive bool
		wantX1   float64
	}{
		{name: "unconstrained", positive: false, wantX1: -2},
		{name: "positive", positive: true, wantX1: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr := NewLinearRegression(WithLRFitIntercept(false), WithPositive(tt.positive))
			if err := lr.Fit(X, y); err != nil {
				t.Fatal(err)
			}
			coef := lr.Coef()
			if math.Abs(coef[0]-3) > 1e-9 || math.Abs(coef[1]-tt.wantX1) > 1e-9 {
				t.Errorf("Coef() = %v, want [3 %v]", coef, tt.wantX1)
			}
			if lr.GetParams()["positive"] != tt.positive {
				t.Errorf("GetParams() = %v", lr.GetParams())
			}
		})
	}
}

func TestLinearRegression_FeatureImportances(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{1, 0, 0, 1, 1, 1, 2, 3})
	y := mat.NewDense(4, 1, []float64{-4, 1, -3, -5})

	lr := NewLinearRegression()
	if _, err := lr.FeatureImportances(); err == nil {
		t.Fatal("expected NotFittedError before Fit")
	}
	if err := lr.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	imp, err := lr.FeatureImportances()
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range imp {
		if v < 0 {
			t.Errorf("importance[%d] = %v, want non-negative", i, v)
		}
	}
}

func TestLinearRegression_Errors(t *testing.T) {
	lr := NewLinearRegression()

	var nfe *errors.NotFittedError
	if _, err := lr.Predict(mat.NewDense(1, 1, []float64{1})); !errors.As(err, &nfe) {
		t.Errorf("expected NotFittedError, got %v", err)
	}

	var de *errors.DimensionError
	if err := lr.Fit(mat.NewDense(2, 1, []float64{1, 2}), mat.NewDense(3, 1, []float64{1, 2, 3})); !errors.As(err, &de) {
		t.Errorf("expected DimensionError, got %v", err)
	}

	if err := lr.Fit(mat.NewDense(3, 1, []float64{1, 2, 3}), mat.NewDense(3, 1, []float64{1, 2, 3})); err != nil {
		t.Fatal(err)
	}
	if _, err := lr.Predict(mat.NewDense(1, 2, []float64{1, 2})); !errors.As(err, &de) {
		t.Errorf("expected DimensionError, got %v", err)
	}
}

func TestLinearRegression_SaveLoad(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{3, 5, 7, 9})

	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	art, err := model.NewArtifact(lr, []string{"x"})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "linear.gob")
	if err := model.SaveArtifact(art, path); err != nil {
		t.Fatal(err)
	}
	loaded, err := model.LoadArtifact(path)
	if err != nil {
		t.Fatal(err)
	}
	m, err := loaded.Model()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m.(model.ProbabilisticPredictor); ok {
		t.Error("linear regression must not be probabilistic")
	}

	pred, err := m.Predict(mat.NewDense(1, 1, []float64{10}))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(pred.At(0, 0)-21) > 1e-9 {
		t.Errorf("prediction = %v, want 21", pred.At(0, 0))
	}
}

func TestRegisteredKinds(t *testing.T) {
	kinds := model.Kinds()
	want := map[string]bool{LinearRegressionKind: false, LogisticRegressionKind: false}
	for _, k := range kinds {
		if _, ok := want[k]; ok {
			want[k] = true
		}
	}
	for k, found := range want {
		if !found {
			t.Errorf("kind %q not registered (have %v)", k, kinds)
		}
	}
}
