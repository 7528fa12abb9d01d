// Package config loads settings for the predict-api, predict-ui and
// summarize binaries from flags, environment and an optional YAML file.
package config

import (
	"strings"
	"time"

	"github.com/YuminosukeSato/scigo-serve/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix は環境変数のプレフィックス（SCIGO_SERVER_ADDR 等）
const EnvPrefix = "SCIGO"

// Config 全体設定
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Model     ModelConfig     `mapstructure:"model"`
	UI        UIConfig        `mapstructure:"ui"`
	Log       LogConfig       `mapstructure:"log"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Summarize SummarizeConfig `mapstructure:"summarize"`
}

// ServerConfig は予測APIのHTTP設定
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ModelConfig はモデル成果物の場所
type ModelConfig struct {
	Path             string `mapstructure:"path"`
	FeatureNamesPath string `mapstructure:"feature_names_path"`
}

// UIConfig はフォームUIの設定
type UIConfig struct {
	Addr             string        `mapstructure:"addr"`
	APIURL           string        `mapstructure:"api_url"`
	FeatureNamesPath string        `mapstructure:"feature_names_path"`
	PerformancePath  string        `mapstructure:"performance_path"`
	Columns          int           `mapstructure:"columns"`
	Timeout          time.Duration `mapstructure:"timeout"`
	Locale           string        `mapstructure:"locale"`
}

// LogConfig はロガー設定
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SummarizeConfig はオフライン集計（summarize コマンド）の設定
type SummarizeConfig struct {
	DataPath string `mapstructure:"data_path"`
	Label    string `mapstructure:"label"`
	OutDir   string `mapstructure:"out_dir"`
	TopN     int    `mapstructure:"top_n"`
	Repeats  int    `mapstructure:"repeats"`
	Seed     int64  `mapstructure:"seed"`
	Workers  int    `mapstructure:"workers"`
}

// CacheConfig は予測キャッシュ設定（デフォルト無効）
type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Size    int  `mapstructure:"size"`
}

// JournalConfig は予測ジャーナル（sqlite）設定
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

var defaults = map[string]interface{}{
	"server.addr":             ":8000",
	"server.read_timeout":     "10s",
	"server.write_timeout":    "10s",
	"server.shutdown_timeout": "5s",

	"model.path":               "model.gob",
	"model.feature_names_path": "feature_names.json",

	"ui.addr":               ":8501",
	"ui.api_url":            "http://127.0.0.1:8000/predict",
	"ui.feature_names_path": "feature_names.json",
	"ui.performance_path":   "model_performance.json",
	"ui.columns":            3,
	"ui.timeout":            "10s",
	"ui.locale":             "en",

	"log.level":        "info",
	"log.format":       "json",
	"log.file":         "",
	"log.max_size_mb":  100,
	"log.max_backups":  3,
	"log.max_age_days": 28,

	"cache.enabled": false,
	"cache.size":    1024,

	"journal.enabled": false,
	"journal.dsn":     "predictions.db",

	"summarize.data_path": "test.csv",
	"summarize.label":     "label",
	"summarize.out_dir":   ".",
	"summarize.top_n":     5,
	"summarize.repeats":   10,
	"summarize.seed":      42,
	"summarize.workers":   0,
}

// RegisterFlags はフラグを登録する。フラグ名は設定キーと同じ（server.addr 等）
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file")
	fs.String("server.addr", ":8000", "prediction API listen address")
	fs.String("model.path", "model.gob", "model artifact path")
	fs.String("model.feature_names_path", "feature_names.json", "ordered feature names (JSON array)")
	fs.String("ui.addr", ":8501", "UI listen address")
	fs.String("ui.api_url", "http://127.0.0.1:8000/predict", "prediction endpoint used by the UI")
	fs.String("ui.feature_names_path", "feature_names.json", "feature names file read by the UI")
	fs.String("ui.performance_path", "model_performance.json", "performance summary read by the UI")
	fs.Int("ui.columns", 3, "number of input columns in the form")
	fs.String("log.level", "info", "log level (debug, info, warn, error)")
	fs.String("log.format", "json", "log format (json, console)")
	fs.String("log.file", "", "rotate logs into this file instead of stderr")
	fs.Bool("cache.enabled", false, "cache predictions in an LRU")
	fs.Int("cache.size", 1024, "prediction cache entries")
	fs.Bool("journal.enabled", false, "record predictions to sqlite")
	fs.String("journal.dsn", "predictions.db", "sqlite journal path")
}

// RegisterSummarizeFlags は summarize コマンド用のフラグを登録する
func RegisterSummarizeFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file")
	fs.String("model.path", "model.gob", "model artifact path")
	fs.String("summarize.data_path", "test.csv", "held-out test set (CSV with header)")
	fs.String("summarize.label", "label", "label column name")
	fs.String("summarize.out_dir", ".", "directory for feature_names.json and model_performance.json")
	fs.Int("summarize.top_n", 5, "number of top features to keep")
	fs.Int("summarize.repeats", 10, "permutation importance repeats")
	fs.Int64("summarize.seed", 42, "permutation importance seed")
	fs.Int("summarize.workers", 0, "permutation workers (0 = NumCPU)")
	fs.String("log.level", "info", "log level (debug, info, warn, error)")
	fs.String("log.format", "json", "log format (json, console)")
}

// Load は デフォルト < 設定ファイル < 環境変数 < 明示されたフラグ の順で設定を解決する。
// fs は RegisterFlags 済みかつ Parse 済みであること。nil も可。
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// UI は API_URL 環境変数でもエンドポイントを上書きできる
	if err := v.BindEnv("ui.api_url", EnvPrefix+"_UI_API_URL", "API_URL"); err != nil {
		return nil, errors.Wrap(err, "bind API_URL")
	}

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, errors.Wrap(err, "bind flags")
		}
		if path, _ := fs.GetString("config"); path != "" {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, errors.Wrapf(err, "read config %s", path)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate は設定の整合性を検証する
func (c *Config) Validate() error {
	switch {
	case c.UI.Columns < 1:
		return errors.NewValidationError("ui.columns", "must be at least 1", c.UI.Columns)
	case c.UI.Timeout <= 0:
		return errors.NewValidationError("ui.timeout", "must be positive", c.UI.Timeout)
	case c.Server.ShutdownTimeout <= 0:
		return errors.NewValidationError("server.shutdown_timeout", "must be positive", c.Server.ShutdownTimeout)
	case c.Cache.Enabled && c.Cache.Size < 1:
		return errors.NewValidationError("cache.size", "must be at least 1 when the cache is enabled", c.Cache.Size)
	case c.Journal.Enabled && c.Journal.DSN == "":
		return errors.NewValidationError("journal.dsn", "is required when the journal is enabled", c.Journal.DSN)
	case c.Summarize.TopN < 1:
		return errors.NewValidationError("summarize.top_n", "must be at least 1", c.Summarize.TopN)
	case c.Summarize.Repeats < 1:
		return errors.NewValidationError("summarize.repeats", "must be at least 1", c.Summarize.Repeats)
	}
	return nil
}
