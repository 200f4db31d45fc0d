package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/TheNovakAI/google-search-blogger/internal/config"
	"github.com/TheNovakAI/google-search-blogger/internal/llm"
	"github.com/TheNovakAI/google-search-blogger/internal/metrics"
	"github.com/TheNovakAI/google-search-blogger/internal/pipeline"
	"github.com/TheNovakAI/google-search-blogger/internal/scraper"
	"github.com/TheNovakAI/google-search-blogger/internal/serp"
	"github.com/TheNovakAI/google-search-blogger/internal/storage"
	"github.com/TheNovakAI/google-search-blogger/pkg/useragent"
)

// app carries state shared by all subcommands.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	return newRoot(&app{v: viper.New()})
}

func newRoot(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "blogger",
		Short:         "Turn a topic into a cited blog article from live web search results",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default ./blogger.yaml)")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("log-format", "text", "log format: text or json")
	flags.String("store", "", "run history DSN: sqlite:<path>, postgres://..., json:<path> or csv:<path>")
	configKey(flags, "log-level", "log.level")
	configKey(flags, "log-format", "log.format")
	configKey(flags, "store", "store.dsn")

	root.AddCommand(newGenerateCmd(a), newServeCmd(a), newHistoryCmd(a))
	return root
}

// load binds the flags of the executing command and loads the config.
func (a *app) load(cmd *cobra.Command) error {
	if err := bindFlags(a.v, cmd.Flags()); err != nil {
		return err
	}
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a.cfg, a.logger = cfg, logger
	slog.SetDefault(logger)
	return nil
}

// openStore opens the configured run history backend, or returns nil when
// none is configured.
func (a *app) openStore(ctx context.Context) (storage.Backend, error) {
	if a.cfg.Store.DSN == "" {
		return nil, nil
	}
	return openStore(ctx, a.cfg.Store.DSN)
}

// buildPipeline wires the configured components into a pipeline. The
// returned cleanup releases the store and the metrics server.
func (a *app) buildPipeline(ctx context.Context) (*pipeline.Pipeline, func(), error) {
	cfg := a.cfg
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Metrics.Addr != "" {
		ms, err := metrics.Start(cfg.Metrics.Addr, a.logger)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() {
			if err := ms.Stop(context.Background()); err != nil {
				a.logger.Warn("metrics server shutdown failed", "err", err)
			}
		})
	}

	backend, err := a.openStore(ctx)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if backend != nil {
		closers = append(closers, func() {
			if err := backend.Close(); err != nil {
				a.logger.Warn("closing store failed", "err", err)
			}
		})
	}

	search, err := serp.NewSerpAPI(serp.SerpAPIConfig{
		APIKey:  cfg.SERP.APIKey,
		BaseURL: cfg.SERP.BaseURL,
		Timeout: cfg.SERP.Timeout,
	}, a.logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	completer, err := llm.NewOpenAI(llm.Config{
		APIKey:       cfg.OpenAI.APIKey,
		Organization: cfg.OpenAI.Organization,
		Project:      cfg.OpenAI.Project,
		BaseURL:      cfg.OpenAI.BaseURL,
		Timeout:      cfg.OpenAI.Timeout,
	}, a.logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	fetcher, err := scraper.NewFetcher(scraper.FetchConfig{
		Timeout:       cfg.Fetch.Timeout,
		MaxRedirects:  cfg.Fetch.MaxRedirects,
		UseCookieJar:  cfg.Fetch.CookieJar,
		UAPool:        useragent.NewPool(cfg.Fetch.UserAgents),
		RespectRobots: cfg.Fetch.RespectRobots,
	}, a.logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	p, err := pipeline.Compose(pipeline.Config{
		Mode:        pipeline.Mode(cfg.Pipeline.Mode),
		Limit:       cfg.Pipeline.Limit,
		Concurrency: cfg.Pipeline.Concurrency,
	}, search, fetcher, completer, cfg.Models(), backend, a.logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	a.logger.Debug("pipeline ready",
		"mode", string(p.Mode()),
		"extract_model", cfg.OpenAI.ExtractModel,
		"synth_model", cfg.OpenAI.SynthModel,
		"store", cfg.Store.DSN != "",
	)
	return p, cleanup, nil
}

const configKeyAnnotation = "blogger_config_key"

// configKey marks flag name as the command-line source of a config key.
func configKey(flags *pflag.FlagSet, name, key string) {
	if err := flags.SetAnnotation(name, configKeyAnnotation, []string{key}); err != nil {
		panic(err)
	}
}

// bindFlags binds every flag marked by configKey onto v.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		keys := f.Annotations[configKeyAnnotation]
		if err != nil || len(keys) == 0 {
			return
		}
		if bindErr := v.BindPFlag(keys[0], f); bindErr != nil {
			err = fmt.Errorf("bind flag %s: %w", f.Name, bindErr)
		}
	})
	return err
}

// addPipelineFlags registers the flags shared by commands that run the
// pipeline.
func addPipelineFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("mode", string(pipeline.ModeCurated), "pipeline mode: "+pipeline.ModeNames())
	flags.Int("limit", 0, "number of ranked results to process (0 = mode default)")
	flags.Int("concurrency", 1, "URLs fetched and extracted at once")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address")
	flags.Duration("fetch-timeout", 30*time.Second, "per-page fetch timeout")
	flags.Bool("respect-robots", false, "skip URLs disallowed by robots.txt")
	configKey(flags, "mode", "pipeline.mode")
	configKey(flags, "limit", "pipeline.limit")
	configKey(flags, "concurrency", "pipeline.concurrency")
	configKey(flags, "metrics-addr", "metrics.addr")
	configKey(flags, "fetch-timeout", "fetch.timeout")
	configKey(flags, "respect-robots", "fetch.respect_robots")
}
