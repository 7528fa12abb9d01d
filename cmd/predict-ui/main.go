// Command predict-ui serves the prediction form in front of predict-api.
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
	"github.com/YuminosukeSato/scigo-serve/ui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "predict-ui:", err)
		os.Exit(1)
	}
}

func run() error {
	fs := pflag.NewFlagSet("predict-ui", pflag.ExitOnError)
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

	// 静的ファイルが読めなければ起動しない
	assets, err := ui.LoadAssets(cfg.UI.FeatureNamesPath, cfg.UI.PerformancePath)
	if err != nil {
		logger.Error("load ui assets", err)
		return err
	}

	client := ui.NewClient(cfg.UI.APIURL, cfg.UI.Timeout)
	srv, err := ui.NewServer(assets, client, ui.Options{
		Columns: cfg.UI.Columns,
		Locale:  cfg.UI.Locale,
		Logger:  logger.With(log.ComponentKey, "ui"),
	})
	if err != nil {
		return err
	}
	logger.Info("ui ready", "api_url", client.URL(), log.FeaturesKey, len(assets.FeatureNames))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serving.Serve(ctx, serving.ServerConfig{
		Addr:            cfg.UI.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.UI.Timeout + cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, srv.Routes(), logger)
}
