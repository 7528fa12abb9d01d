// Command predict-api serves POST /predict for a saved model artifact.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/YuminosukeSato/scigo-serve/config"
	"github.com/YuminosukeSato/scigo-serve/pkg/log"
	"github.com/YuminosukeSato/scigo-serve/serving"

	// モデル種別のデコーダを登録する
	_ "github.com/YuminosukeSato/scigo-serve/sklearn/linear_model"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "predict-api:", err)
		os.Exit(1)
	}
}

func run() error {
	fs := pflag.NewFlagSet("predict-api", pflag.ExitOnError)
	config.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		return err
	}

	logger, err := log.Setup(log.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return err
	}
	defer logger.Close()

	lm, err := serving.LoadModel(cfg.Model.Path, cfg.Model.FeatureNamesPath)
	if err != nil {
		logger.Error("load model", err, log.ModelPathKey, cfg.Model.Path)
		return err
	}

	opts := []serving.Option{serving.WithKind(lm.Kind), serving.WithLogger(logger.With(log.ComponentKey, "service"))}
	if cfg.Cache.Enabled {
		cache, err := serving.NewCache(cfg.Cache.Size)
		if err != nil {
			return err
		}
		opts = append(opts, serving.WithCache(cache))
	}
	if cfg.Journal.Enabled {
		journal, err := serving.OpenSQLiteJournal(cfg.Journal.DSN)
		if err != nil {
			return err
		}
		defer journal.Close()
		opts = append(opts, serving.WithJournal(journal))
	}

	svc, err := serving.NewService(lm.Predictor, lm.FeatureNames, opts...)
	if err != nil {
		return err
	}
	logger.Info("model loaded",
		log.ModelKindKey, lm.Kind,
		log.ModelPathKey, cfg.Model.Path,
		log.FeaturesKey, svc.ExpectedFeatures(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serving.Serve(ctx, serving.ServerConfig{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, serving.NewHandler(svc, logger).Routes(), logger)
}
