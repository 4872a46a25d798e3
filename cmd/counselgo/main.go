// Package main is the counseling service entry point: it wires the config,
// stores, LLM provider, crisis detector, and turn pipeline together and
// serves the HTTP API until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/maumtalk/counselgo/api"
	"github.com/maumtalk/counselgo/pkg/config"
	"github.com/maumtalk/counselgo/pkg/crisis"
	"github.com/maumtalk/counselgo/pkg/interfaces"
	"github.com/maumtalk/counselgo/pkg/llm"
	"github.com/maumtalk/counselgo/pkg/logger"
	"github.com/maumtalk/counselgo/pkg/metrics"
	"github.com/maumtalk/counselgo/pkg/pipeline"
	"github.com/maumtalk/counselgo/pkg/store"
)

// Version information (set by build process)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

var (
	configFile  = flag.String("config", "", "Path to configuration file")
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("counselgo %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "counselgo: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.NewConsoleLogger(cfg.LogLevel)
	log.Info("starting counselgo", map[string]interface{}{
		"version": Version,
	})

	st, err := store.NewStore(cfg.Store, log)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	// The preference cache is optional; without Redis the pipeline reads
	// profiles straight from SQLite
	var prefs interfaces.PreferenceStore = st
	if cfg.Store.RedisAddr != "" {
		cache, err := store.NewPreferenceCache(st, cfg.Store, log)
		if err != nil {
			log.Warn("preference cache unavailable, using store directly", map[string]interface{}{
				"redis_addr": cfg.Store.RedisAddr,
				"error":      err.Error(),
			})
		} else {
			defer cache.Close()
			prefs = cache
		}
	}

	llmClient, err := llm.CreateLLM(cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create llm provider: %w", err)
	}
	defer llmClient.Close()

	detector := crisis.NewDetector(cfg.Pipeline, log)
	if cfg.CrisisResourcePath != "" {
		detector.ReloadFromFile(cfg.CrisisResourcePath)

		watcher, err := config.NewFileWatcher(cfg.CrisisResourcePath, detector.ReloadFromFile, log)
		if err != nil {
			log.Warn("crisis resource watcher unavailable", map[string]interface{}{
				"path":  cfg.CrisisResourcePath,
				"error": err.Error(),
			})
		} else {
			go watcher.Run(ctx)
		}
	}

	p, err := pipeline.NewPipeline(&pipeline.Deps{
		Config:    cfg.Pipeline,
		LLM:       llmClient,
		Messages:  st,
		Memory:    st,
		Feedback:  st,
		Prefs:     prefs,
		Summaries: st,
		Auditor:   st,
		Detector:  detector,
		Logger:    log,
		Metrics:   metrics.NewInMemoryMetrics(),
	})
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer p.Wait()

	server := api.NewServer(p, st, cfg, log, nil)
	return server.Start(ctx)
}

func loadConfig() (*config.Config, error) {
	if *configFile != "" {
		return config.LoadFromFile(*configFile)
	}
	cfg := config.NewConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
