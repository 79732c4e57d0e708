package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldsight/sentinel/internal/aggregate"
	"github.com/fieldsight/sentinel/internal/api"
	"github.com/fieldsight/sentinel/internal/bus"
	"github.com/fieldsight/sentinel/internal/cache"
	"github.com/fieldsight/sentinel/internal/domain"
	"github.com/fieldsight/sentinel/internal/pipeline"
	"github.com/fieldsight/sentinel/internal/repository"
	"github.com/fieldsight/sentinel/internal/rules"
	"github.com/fieldsight/sentinel/internal/scoring"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the risk reporting API server.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		setupLogging(cfg.Logging)

		slog.Info("starting sentinel",
			"version", Version,
			"commit", Commit,
			"build_date", BuildDate,
			"tier", cfg.Tier,
		)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigCh
			slog.Info("received shutdown signal", "signal", sig)
			cancel()
		}()

		repo, err := repository.New(cfg.Repository)
		if err != nil {
			return fmt.Errorf("failed to initialize repository: %w", err)
		}
		defer repo.Close()
		slog.Info("repository initialized", "driver", cfg.Repository.Driver)

		cacheImpl, err := cache.New(cfg.Cache)
		if err != nil {
			return fmt.Errorf("failed to initialize cache: %w", err)
		}
		defer cacheImpl.Close()
		slog.Info("cache initialized", "type", cfg.Cache.Type)

		busImpl, err := bus.New(cfg.EventBus)
		if err != nil {
			return fmt.Errorf("failed to initialize event bus: %w", err)
		}
		defer busImpl.Close()
		slog.Info("event bus initialized", "type", cfg.EventBus.Type)

		runner, err := buildRunner(cfg, repo, cacheImpl, busImpl)
		if err != nil {
			return err
		}

		srv := api.NewServer(cfg.Server, repo, cacheImpl, runner, Version)

		go func() {
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				slog.Error("server failed", "error", err)
				cancel()
			}
		}()

		slog.Info("sentinel is ready",
			"host", cfg.Server.Host,
			"port", cfg.Server.Port,
		)

		printBanner(cfg)

		<-ctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}

		slog.Info("sentinel shutdown complete")
		return nil
	},
}

// buildRunner wires the scoring pipeline from config.
func buildRunner(cfg *domain.Config, repo domain.Repository, cacheImpl domain.Cache, busImpl domain.EventBus) (*pipeline.Runner, error) {
	var flagRules *rules.Engine
	if len(cfg.FlagRules) > 0 {
		engine, err := rules.NewEngine()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize rule engine: %w", err)
		}
		if err := engine.LoadRules(cfg.FlagRules); err != nil {
			return nil, fmt.Errorf("failed to load flag rules: %w", err)
		}
		slog.Info("flag rules loaded", "count", len(cfg.FlagRules))
		flagRules = engine
	}

	scorer := scoring.NewScorer(cfg.Scoring)
	agg := aggregate.NewService(repo)

	return pipeline.NewRunner(repo, agg, scorer, flagRules, busImpl, cacheImpl, cfg.Scoring.Workers), nil
}

func printBanner(cfg *domain.Config) {
	fmt.Println()
	fmt.Println("  ┌───────────────────────────────────────────┐")
	fmt.Println("  │               SENTINEL                    │")
	fmt.Println("  │     Operator Risk Scoring Engine          │")
	fmt.Println("  └───────────────────────────────────────────┘")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /risk/run                   - Trigger a scoring run")
	fmt.Println("    GET  /risk/operators             - List operator profiles")
	fmt.Println("    GET  /risk/operators/{id}        - Get one profile")
	fmt.Println("    GET  /risk/summary               - Risk level counts")
	fmt.Println("    GET  /health                     - Health check")
	fmt.Println()
}
