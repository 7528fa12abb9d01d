package ui

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/YuminosukeSato/scigo-serve/pkg/errors"
	"github.com/YuminosukeSato/scigo-serve/pkg/log"
	"github.com/YuminosukeSato/scigo-serve/summary"
)

func testAssets(auc *float64) *Assets {
	return &Assets{
		FeatureNames: []string{"age", "income", "score", "tenure"},
		Performance: &summary.Performance{
			TestAccuracy: 0.91234,
			TestAUC:      auc,
			TopFeatures: []summary.TopFeature{
				{Name: "income", Score: 0.123456},
				{Name: "age", Score: 0.05},
			},
		},
	}
}

func fakeAPI(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, assets *Assets, apiURL string) http.Handler {
	t.Helper()
	s, err := NewServer(assets, NewClient(apiURL, time.Second), Options{Columns: 3, Locale: "en", Logger: log.NewNop()})
	if err != nil {
		t.Fatal(err)
	}
	return s.Routes()
}

func submit(t *testing.T, h http.Handler, values []string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{}
	for i, v := range values {
		form.Set(inputName(i), v)
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLoadAssets(t *testing.T) {
	dir := t.TempDir()
	namesPath := filepath.Join(dir, summary.FeatureNamesFile)
	perfPath := filepath.Join(dir, summary.PerformanceFile)
	auc := 0.8
	if err := summary.WriteAll(dir, []string{"a", "b"}, &summary.Performance{TestAccuracy: 0.9, TestAUC: &auc}); err != nil {
		t.Fatal(err)
	}

	assets, err := LoadAssets(namesPath, perfPath)
	if err != nil {
		t.Fatalf("LoadAssets() error = %v", err)
	}
	if len(assets.FeatureNames) != 2 || *assets.Performance.TestAUC != 0.8 {
		t.Errorf("assets = %+v", assets)
	}

	if _, err := LoadAssets(filepath.Join(dir, "missing.json"), perfPath); err == nil {
		t.Error("expected error for missing feature names")
	}
	if _, err := LoadAssets(namesPath, filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing performance summary")
	}
}

func TestClient_Predict(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = io.WriteString(w, `{"prediction":1,"probabilities":{"0":0.25,"1":0.75},"predicted_probability":0.75}`)
	}))
	defer srv.Close()

	out, err := NewClient(srv.URL, time.Second).Predict(context.Background(), []float64{1.5, 2})
	if err != nil {
		t.Fatal(err)
	}
	if gotBody != `{"features":[1.5,2]}` {
		t.Errorf("request body = %s", gotBody)
	}
	if out.Prediction != "1" || out.Confidence == nil || *out.Confidence != 0.75 {
		t.Errorf("outcome = %+v", out)
	}
	if len(out.Probabilities) != 2 || out.Probabilities[1].Class != "1" {
		t.Errorf("probabilities = %+v", out.Probabilities)
	}
}

func TestClient_Predict_Outcomes(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    error
		wantStatus int
		wantRaw    string
	}{
		{
			name:       "unprocessable",
			status:     http.StatusUnprocessableEntity,
			body:       `{"error":"Expected 4 features, got 3"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantRaw:    `{"error":"Expected 4 features, got 3"}`,
		},
		{
			name:       "server error",
			status:     http.StatusInternalServerError,
			body:       "boom",
			wantStatus: http.StatusInternalServerError,
			wantRaw:    "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := fakeAPI(t, tt.status, tt.body)
			out, err := NewClient(srv.URL, time.Second).Predict(context.Background(), []float64{1, 2, 3})
			if err != nil {
				t.Fatalf("Predict() error = %v", err)
			}
			if out.StatusCode != tt.wantStatus || out.RawBody != tt.wantRaw {
				t.Errorf("outcome = %+v", out)
			}
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()
		_, err := NewClient(addr, time.Second).Predict(context.Background(), []float64{1})
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("err = %v, want ErrUnavailable", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()
		_, err := NewClient(srv.URL, 20*time.Millisecond).Predict(context.Background(), []float64{1})
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("err = %v, want ErrUnavailable", err)
		}
	})
}

func TestServer_Form(t *testing.T) {
	auc := 0.87654
	h := newTestServer(t, testAssets(&auc), "http://127.0.0.1:1/predict")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		Title,
		"Model Performance",
		"0.912",
		"0.877",
		"Top 5 Important Features",
		"<strong>income</strong>: 0.1235",
		"Make a Prediction",
		"Enter values for each feature:",
		`name="f3" value="0.0000"`,
		"Predict",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestServer_Form_NoAUC(t *testing.T) {
	h := newTestServer(t, testAssets(nil), "http://127.0.0.1:1/predict")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(rec.Body.String(), NotAvailable) {
		t.Error("expected N/A for missing AUC")
	}
}

func TestServer_Submit(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   []string
		absent []string
	}{
		{
			name:   "classifier",
			status: http.StatusOK,
			body:   `{"prediction":1,"probabilities":{"0":0.2,"1":0.8},"predicted_probability":0.8}`,
			want:   []string{"Prediction: 1", "Confidence", "0.800", "Class probabilities:"},
			absent: []string{"API Error"},
		},
		{
			name:   "regressor",
			status: http.StatusOK,
			body:   `{"prediction":6.5}`,
			want:   []string{"Prediction: 6.5"},
			absent: []string{"Confidence", "Class probabilities:"},
		},
		{
			name:   "feature count rejected",
			status: http.StatusUnprocessableEntity,
			body:   `{"error":"Expected 4 features, got 3"}`,
			want:   []string{"API Error:", "Expected 4 features, got 3"},
			absent: []string{"Prediction:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := fakeAPI(t, tt.status, tt.body)
			h := newTestServer(t, testAssets(nil), api.URL)

			rec := submit(t, h, []string{"1", "2.5", "-3", "0"})
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			body := rec.Body.String()
			for _, w := range tt.want {
				if !strings.Contains(body, w) {
					t.Errorf("page missing %q", w)
				}
			}
			for _, a := range tt.absent {
				if strings.Contains(body, a) {
					t.Errorf("page unexpectedly contains %q", a)
				}
			}
			// 送信した値はフォームに残る
			if !strings.Contains(body, `name="f1" value="2.5"`) {
				t.Error("submitted value not preserved")
			}
		})
	}
}

func TestServer_Submit_Unavailable(t *testing.T) {
	api := httptest.NewServer(http.NotFoundHandler())
	addr := api.URL
	api.Close()

	h := newTestServer(t, testAssets(nil), addr)
	rec := submit(t, h, []string{"1", "2", "3", "4"})
	body := rec.Body.String()
	if !strings.Contains(body, UnavailableMessage) {
		t.Errorf("page missing %q", UnavailableMessage)
	}
	if strings.Contains(body, "API Error") {
		t.Error("transport failure must not be shown as an API error")
	}
}

func TestServer_Submit_InvalidInput(t *testing.T) {
	called := false
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer api.Close()

	h := newTestServer(t, testAssets(nil), api.URL)
	rec := submit(t, h, []string{"1", "abc", "", "4"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if called {
		t.Error("API must not be called with invalid input")
	}
	if strings.Count(rec.Body.String(), "enter a number") != 2 {
		t.Error("expected two field errors")
	}
}

func TestServer_ImportanceChart(t *testing.T) {
	h := newTestServer(t, testAssets(nil), "http://127.0.0.1:1/predict")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/importance.png", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("body is not a PNG")
	}

	empty := testAssets(nil)
	empty.Performance.TopFeatures = nil
	h = newTestServer(t, empty, "http://127.0.0.1:1/predict")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/importance.png", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestNumberFormat_Locale(t *testing.T) {
	tests := []struct {
		locale string
		want   string
	}{
		{"en", "0.912"},
		{"de", "0,912"},
		{"not a locale!", "0.912"},
	}
	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			if got := newNumberFormat(tt.locale).metric(0.91234); got != tt.want {
				t.Errorf("metric() = %q, want %q", got, tt.want)
			}
		})
	}
}
