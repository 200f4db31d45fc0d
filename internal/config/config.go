package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/TheNovakAI/google-search-blogger/internal/extract"
	"github.com/TheNovakAI/google-search-blogger/internal/pipeline"
	"github.com/TheNovakAI/google-search-blogger/internal/serp"
	"github.com/TheNovakAI/google-search-blogger/internal/synth"
)

// Config is the full runtime configuration of the blogger.
type Config struct {
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	SERP     SERPConfig     `mapstructure:"serp"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Store    StoreConfig    `mapstructure:"store"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
	Web      WebConfig      `mapstructure:"web"`
}

type OpenAIConfig struct {
	APIKey           string        `mapstructure:"api_key"`
	Organization     string        `mapstructure:"organization"`
	Project          string        `mapstructure:"project"`
	BaseURL          string        `mapstructure:"base_url"`
	Timeout          time.Duration `mapstructure:"timeout"`
	ExtractModel     string        `mapstructure:"extract_model"`
	SynthModel       string        `mapstructure:"synth_model"`
	ExtractMaxTokens int           `mapstructure:"extract_max_tokens"`
	SynthMaxTokens   int           `mapstructure:"synth_max_tokens"`
}

type SERPConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type PipelineConfig struct {
	Mode        string `mapstructure:"mode"`
	Limit       int    `mapstructure:"limit"`
	Concurrency int    `mapstructure:"concurrency"`
}

type FetchConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRedirects  int           `mapstructure:"max_redirects"`
	UserAgents    []string      `mapstructure:"user_agents"`
	RespectRobots bool          `mapstructure:"respect_robots"`
	CookieJar     bool          `mapstructure:"cookie_jar"`
}

type StoreConfig struct {
	// DSN selects the run history backend: sqlite:<path>, postgres://...,
	// json:<path> or csv:<path>. Empty disables history.
	DSN string `mapstructure:"dsn"`
}

type MetricsConfig struct {
	// Addr is the listen address of the /metrics endpoint. Empty disables it.
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type WebConfig struct {
	Addr string `mapstructure:"addr"`
}

// SetDefaults registers every key with its default so environment
// overrides are seen by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.organization", "")
	v.SetDefault("openai.project", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.timeout", 5*time.Minute)
	v.SetDefault("openai.extract_model", extract.DefaultModel)
	v.SetDefault("openai.synth_model", synth.DefaultModel)
	v.SetDefault("openai.extract_max_tokens", extract.DefaultMaxTokens)
	v.SetDefault("openai.synth_max_tokens", synth.DefaultMaxTokens)

	v.SetDefault("serp.api_key", "")
	v.SetDefault("serp.base_url", serp.DefaultSerpAPIBaseURL)
	v.SetDefault("serp.timeout", 30*time.Second)

	v.SetDefault("pipeline.mode", string(pipeline.ModeCurated))
	v.SetDefault("pipeline.limit", 0)
	v.SetDefault("pipeline.concurrency", 1)

	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.max_redirects", 10)
	v.SetDefault("fetch.user_agents", []string{})
	v.SetDefault("fetch.respect_robots", false)
	v.SetDefault("fetch.cookie_jar", true)

	v.SetDefault("store.dsn", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("web.addr", ":8080")
}

// Load reads .env, then the YAML file (file, or blogger.yaml in the working
// directory when file is empty), then environment overrides such as
// OPENAI_API_KEY or PIPELINE_MODE. Flags bound to v win over all of them.
func Load(v *viper.Viper, file string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	SetDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	} else {
		v.SetConfigName("blogger")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: read blogger.yaml: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

// Validate checks what a generation run needs. Missing credentials fail
// here, before any network call.
func (c *Config) Validate() error {
	var errs []error
	if c.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("openai.api_key is required (set OPENAI_API_KEY)"))
	}
	if c.SERP.APIKey == "" {
		errs = append(errs, errors.New("serp.api_key is required (set SERP_API_KEY)"))
	}
	if _, err := pipeline.ParseMode(c.Pipeline.Mode); err != nil {
		errs = append(errs, err)
	}
	if c.Pipeline.Limit < 0 {
		errs = append(errs, fmt.Errorf("pipeline.limit cannot be negative: %d", c.Pipeline.Limit))
	}
	if c.Pipeline.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("pipeline.concurrency must be at least 1: %d", c.Pipeline.Concurrency))
	}
	if _, err := c.Log.level(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Models returns the model settings for both model calls.
func (c *Config) Models() pipeline.Models {
	return pipeline.Models{
		ExtractModel:     c.OpenAI.ExtractModel,
		ExtractMaxTokens: c.OpenAI.ExtractMaxTokens,
		SynthModel:       c.OpenAI.SynthModel,
		SynthMaxTokens:   c.OpenAI.SynthMaxTokens,
	}
}

func (l LogConfig) level() (slog.Level, error) {
	var lvl slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

// NewLogger builds the root logger described by l.
func (l LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	lvl, err := l.level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(l.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log.format: unknown format %q", l.Format)
	}
}
