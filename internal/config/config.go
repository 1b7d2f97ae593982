// Package config defines the senkyo configuration and loads it from a
// config file, SENKYO_* environment variables and command flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the environment variable prefix, e.g. SENKYO_STORAGE_DSN.
const EnvPrefix = "SENKYO"

// Config is the full application configuration.
type Config struct {
	Input       InputConfig       `mapstructure:"input"`
	Extract     ExtractConfig     `mapstructure:"extract"`
	Output      OutputConfig      `mapstructure:"output"`
	Fetch       FetchConfig       `mapstructure:"fetch"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	ObjectStore ObjectStoreConfig `mapstructure:"object_store"`
}

// InputConfig controls how raw tables are read.
type InputConfig struct {
	Encoding  string `mapstructure:"encoding"` // auto | utf-8 | shift_jis
	Comma     string `mapstructure:"comma"`
	TrimSpace bool   `mapstructure:"trim_space"`
}

// ExtractConfig controls the field extractor.
type ExtractConfig struct {
	RulesFile string `mapstructure:"rules_file"`
	FoldWidth bool   `mapstructure:"fold_width"`
}

// OutputConfig controls cleaned file output.
type OutputConfig struct {
	Suffix    string `mapstructure:"suffix"`
	XLSX      bool   `mapstructure:"xlsx"`
	MergedDir string `mapstructure:"merged_dir"`
}

// FetchConfig controls table scraping.
type FetchConfig struct {
	DataDir    string        `mapstructure:"data_dir"`
	Timeout    time.Duration `mapstructure:"timeout"`
	UserAgent  string        `mapstructure:"user_agent"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// StorageConfig selects an optional record repository.
type StorageConfig struct {
	Kind string `mapstructure:"kind"` // "", sqlite, postgres, mssql
	DSN  string `mapstructure:"dsn"`
}

// MetricsConfig selects an optional metrics backend.
type MetricsConfig struct {
	Backend    string        `mapstructure:"backend"` // none | datadog
	JobName    string        `mapstructure:"job_name"`
	Tags       string        `mapstructure:"tags"`
	FlushEvery time.Duration `mapstructure:"flush_every"`
}

// ObjectStoreConfig enables uploading outputs to an S3-compatible bucket.
type ObjectStoreConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Prefix    string `mapstructure:"prefix"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// Enabled reports whether uploads are configured.
func (c ObjectStoreConfig) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != "" && strings.TrimSpace(c.Bucket) != ""
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("input.encoding", "auto")
	v.SetDefault("input.comma", ",")
	v.SetDefault("input.trim_space", true)

	v.SetDefault("extract.rules_file", "")
	v.SetDefault("extract.fold_width", true)

	v.SetDefault("output.suffix", "_cleaned")
	v.SetDefault("output.xlsx", false)
	v.SetDefault("output.merged_dir", "data/merged_output")

	v.SetDefault("fetch.data_dir", "data")
	v.SetDefault("fetch.timeout", 20*time.Second)
	v.SetDefault("fetch.user_agent", "senkyo/1.0")
	v.SetDefault("fetch.max_retries", 3)

	v.SetDefault("storage.kind", "")
	v.SetDefault("storage.dsn", "")

	v.SetDefault("metrics.backend", "none")
	v.SetDefault("metrics.job_name", "senkyo")
	v.SetDefault("metrics.tags", "")
	v.SetDefault("metrics.flush_every", 60*time.Second)

	// Keys without a default are invisible to AutomaticEnv during Unmarshal.
	v.SetDefault("object_store.endpoint", "")
	v.SetDefault("object_store.access_key", "")
	v.SetDefault("object_store.secret_key", "")
	v.SetDefault("object_store.bucket", "")
	v.SetDefault("object_store.region", "us-east-1")
	v.SetDefault("object_store.prefix", "")
	v.SetDefault("object_store.use_ssl", true)
}

// New returns a viper instance with defaults and environment binding.
// When path is non-empty that file is read; otherwise senkyo.yaml is looked
// up in the working directory and a missing file is not an error.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		return v, nil
	}

	v.SetConfigName("senkyo")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Load decodes v into a Config.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

// CommaRune returns the configured delimiter, defaulting to ','.
func (c InputConfig) CommaRune() rune {
	s := c.Comma
	if s == `\t` {
		return '\t'
	}
	for _, r := range s {
		return r
	}
	return ','
}
