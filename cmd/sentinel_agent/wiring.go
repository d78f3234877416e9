package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jonathan/risk-sentinel/internal/collect"
	"github.com/jonathan/risk-sentinel/internal/config"
	"github.com/jonathan/risk-sentinel/internal/enrich"
	"github.com/jonathan/risk-sentinel/internal/job"
	"github.com/jonathan/risk-sentinel/internal/metrics"
	"github.com/jonathan/risk-sentinel/internal/oracle"
	"github.com/jonathan/risk-sentinel/internal/ratelimit"
	"github.com/jonathan/risk-sentinel/internal/risk"
	"github.com/jonathan/risk-sentinel/internal/rules"
)

// app bundles the wired collaborators shared by the serve and scan commands.
type app struct {
	engine  *rules.Engine
	fusion  *risk.Fusion
	oracles []oracle.Oracle
	client  *oracle.Client
	store   *job.Store
	runner  *job.Runner
	metrics *metrics.Collector
	cfg     config.Config
}

// loadConfig loads, merges and validates configuration for a command.
func loadConfig(path string) (config.Config, error) {
	var cfg config.Config
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}
	cfg.FromEnv()
	cfg = cfg.MergeWithDefaults(defaultConfig())
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// defaultConfig is the baseline every deployment starts from. File and
// environment values override it field by field.
func defaultConfig() config.Config {
	rl := ratelimit.DefaultConfig()
	return config.Config{
		TextModel:        oracle.DefaultTextModel,
		VisionModel:      oracle.DefaultVisionModel,
		OracleTimeout:    int(oracle.DefaultTimeout / time.Second),
		MaxShift:         risk.DefaultMaxShift,
		TriageLow:        risk.DefaultTriageLow,
		TriageHigh:       risk.DefaultTriageHigh,
		PrefilterFloor:   enrich.DefaultPrefilterFloor,
		Concurrency:      enrich.DefaultConcurrency,
		RatePerSecond:    rl.Rate,
		RateBurst:        rl.Burst,
		RatePerMinute:    rl.PerMinute,
		RetentionMinutes: 60,
		Port:             8080,
	}
}

// buildApp wires the engine, fusion, oracles, sources, store and runner from
// configuration. The returned app's Close must be called on shutdown.
func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	engine, err := buildEngine(cfg)
	if err != nil {
		return nil, err
	}

	fusion := risk.NewFusion()
	if cfg.MaxShift > 0 {
		fusion.MaxShift = cfg.MaxShift
	}
	if cfg.TriageHigh > 0 {
		fusion.TriageLow = cfg.TriageLow
		fusion.TriageHigh = cfg.TriageHigh
	}

	a := &app{engine: engine, fusion: fusion, metrics: metrics.NewCollector(), cfg: cfg}

	if cfg.APIKey != "" {
		client, err := oracle.NewClient(ctx, cfg.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create oracle client: %w", err)
		}
		timeout := oracle.DefaultTimeout
		if cfg.OracleTimeout > 0 {
			timeout = time.Duration(cfg.OracleTimeout) * time.Second
		}
		textModel := cfg.TextModel
		if textModel == "" {
			textModel = oracle.DefaultTextModel
		}
		visionModel := cfg.VisionModel
		if visionModel == "" {
			visionModel = oracle.DefaultVisionModel
		}
		a.client = client
		a.oracles = []oracle.Oracle{
			client.TextOracle(textModel, timeout),
			client.VisionOracle(visionModel, timeout),
		}
	} else {
		log.Println("GEMINI_API_KEY not set; oracle enrichment disabled, rule scores only")
	}

	sources := buildSources(cfg)
	retention := time.Duration(0)
	if cfg.RetentionMinutes > 0 {
		retention = time.Duration(cfg.RetentionMinutes) * time.Minute
	}
	a.store = job.NewStore(retention)
	a.runner = job.NewRunner(a.store, job.RunnerConfig{
		Engine:  engine,
		Fusion:  fusion,
		Oracles: a.oracles,
		Resolve: func(id string) (collect.Source, bool) {
			src, ok := sources[id]
			return src, ok
		},
		Concurrency:    cfg.Concurrency,
		PrefilterFloor: cfg.PrefilterFloor,
		Metrics:        a.metrics,
	})

	return a, nil
}

// Close releases the oracle client, if any.
func (a *app) Close() {
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close oracle client: %v\n", err)
		}
	}
}

func (a *app) gateOptions() enrich.Options {
	return enrich.Options{
		Concurrency:    a.cfg.Concurrency,
		PrefilterFloor: a.cfg.PrefilterFloor,
	}
}

func buildEngine(cfg config.Config) (*rules.Engine, error) {
	if cfg.RulesPath == "" {
		return rules.DefaultEngine(), nil
	}
	tables, err := rules.LoadTables(cfg.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load rule tables: %w", err)
	}
	engine, err := rules.NewEngine(tables)
	if err != nil {
		return nil, fmt.Errorf("invalid rule tables: %w", err)
	}
	return engine, nil
}

// buildSources instantiates the configured collection sources. With no
// sources configured a seeded synthetic source is provided so the pipeline
// is usable out of the box.
func buildSources(cfg config.Config) map[string]collect.Source {
	limiterConfig := ratelimit.DefaultConfig()
	if cfg.RatePerSecond > 0 {
		limiterConfig.Rate = cfg.RatePerSecond
	}
	if cfg.RateBurst > 0 {
		limiterConfig.Burst = cfg.RateBurst
	}
	if cfg.RatePerMinute > 0 {
		limiterConfig.PerMinute = cfg.RatePerMinute
	}

	sources := make(map[string]collect.Source)
	for _, sc := range cfg.Sources {
		// Each source gets its own limiter so one slow upstream cannot
		// starve the others.
		cc := *limiterConfig
		switch sc.Type {
		case config.SourceTypeFeed:
			sources[sc.ID] = collect.NewFeedSource(sc.ID, sc.URL, ratelimit.NewLimiter(&cc))
		case config.SourceTypePage:
			sources[sc.ID] = collect.NewPageSource(sc.ID, sc.URL, sc.Selector, ratelimit.NewLimiter(&cc))
		case config.SourceTypeSynthetic:
			sources[sc.ID] = collect.NewSyntheticSource(sc.ID, sc.Seed)
		}
	}
	if len(sources) == 0 {
		sources["synthetic"] = collect.NewSyntheticSource("synthetic", 0)
	}
	return sources
}
