package serving

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/YuminosukeSato/scigo-serve/pkg/errors"
	"github.com/YuminosukeSato/scigo-serve/pkg/log"
)

type failingJournal struct{ calls int }

func (f *failingJournal) Record(context.Context, Entry) error {
	f.calls++
	return errors.New("disk full")
}
func (f *failingJournal) Close() error { return nil }

func TestSQLiteJournal_RecordAndRecent(t *testing.T) {
	j, err := OpenSQLiteJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteJournal() error = %v", err)
	}
	defer j.Close()

	svc, err := NewService(fittedClassifier(t), []string{"a", "b"}, WithJournal(j), WithLogger(log.NewNop()))
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.WithValue(context.Background(), requestIDKey, "req-1")
	if _, err := svc.Predict(ctx, []float64{0.5, 0.5}); err != nil {
		t.Fatal(err)
	}
	ctx = context.WithValue(context.Background(), requestIDKey, "req-2")
	if _, err := svc.Predict(ctx, []float64{3, 3}); err != nil {
		t.Fatal(err)
	}
	// 不一致はジャーナルに残らない
	if _, err := svc.Predict(ctx, []float64{3}); err == nil {
		t.Fatal("expected FeatureCountError")
	}

	entries, err := j.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].RequestID != "req-2" || entries[0].Features[0] != 3 {
		t.Errorf("newest entry = %+v", entries[0])
	}
	if entries[0].Result.Prediction.(float64) != 1 {
		t.Errorf("newest prediction = %v, want 1", entries[0].Result.Prediction)
	}
	if entries[1].Result.PredictedProbability == nil {
		t.Error("probability not journaled")
	}
}

func TestSQLiteJournal_Memory(t *testing.T) {
	j, err := OpenSQLiteJournal(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	if err := j.Record(context.Background(), Entry{Features: []float64{1}, Result: Result{Prediction: 2.5}}); err != nil {
		t.Fatal(err)
	}
	entries, err := j.Recent(context.Background(), 1)
	if err != nil || len(entries) != 1 {
		t.Fatalf("Recent() = %v, %v", entries, err)
	}
}

func TestService_JournalFailureIsNotFatal(t *testing.T) {
	fj := &failingJournal{}
	logger, _ := log.NewTestLogger(log.LevelDebug)
	svc, err := NewService(&sumRegressor{n: 1}, nil, WithJournal(fj), WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Predict(context.Background(), []float64{1}); err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if fj.calls != 1 {
		t.Errorf("journal calls = %d, want 1", fj.calls)
	}
	if !logger.ContainsField(log.ErrAttrKey, "disk full") {
		t.Error("journal failure not logged")
	}
}
