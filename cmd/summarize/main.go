// Command summarize evaluates a saved model on a held-out CSV and writes
// feature_names.json and model_performance.json for the UI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/YuminosukeSato/scigo-serve/config"
	"github.com/YuminosukeSato/scigo-serve/core/model"
	"github.com/YuminosukeSato/scigo-serve/inspection"
	"github.com/YuminosukeSato/scigo-serve/pkg/log"
	"github.com/YuminosukeSato/scigo-serve/summary"

	_ "github.com/YuminosukeSato/scigo-serve/sklearn/linear_model"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "summarize:", err)
		os.Exit(1)
	}
}

func run() error {
	fs := pflag.NewFlagSet("summarize", pflag.ExitOnError)
	config.RegisterSummarizeFlags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		return err
	}
	logger, err := log.Setup(log.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	sc := cfg.Summarize

	art, err := model.LoadArtifact(cfg.Model.Path)
	if err != nil {
		return err
	}
	m, err := art.Model()
	if err != nil {
		return err
	}

	ds, err := summary.LoadCSV(sc.DataPath, sc.Label)
	if err != nil {
		return err
	}
	// 列順はモデルに保存された特徴量名に合わせる
	ds, err = ds.Reorder(art.FeatureNames)
	if err != nil {
		return err
	}
	logger.Info("test set loaded",
		log.ModelKindKey, art.Kind,
		log.SamplesKey, ds.Y.Len(),
		log.FeaturesKey, len(ds.FeatureNames),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	perf, err := summary.Summarize(ctx, m, ds, summary.Options{
		TopN: sc.TopN,
		Permutation: inspection.PermutationOptions{
			NRepeats: sc.Repeats,
			Seed:     sc.Seed,
			Workers:  sc.Workers,
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	if err := summary.WriteAll(sc.OutDir, ds.FeatureNames, perf); err != nil {
		return err
	}
	logger.Info("summary written",
		"feature_names", filepath.Join(sc.OutDir, summary.FeatureNamesFile),
		"performance", filepath.Join(sc.OutDir, summary.PerformanceFile),
	)
	return nil
}
