package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/veloce-ai/veloce/pkg/audit"
	cachepkg "github.com/veloce-ai/veloce/pkg/cache"
	"github.com/veloce-ai/veloce/pkg/config"
	"github.com/veloce-ai/veloce/pkg/embedder"
	"github.com/veloce-ai/veloce/pkg/pipeline"
	"github.com/veloce-ai/veloce/pkg/proxy"
	"github.com/veloce-ai/veloce/pkg/tracker"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the embedding HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			p, cleanup, err := buildPipeline(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			srv := proxy.New(cfg, p)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Printf("starting veloce with config: %s", configPath)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "veloce.yaml", "path to config file")
	return cmd
}

// buildPipeline constructs the cache, embedder, tracker, and auditor from
// config. The returned cleanup closes everything in reverse order.
func buildPipeline(cfg *config.Config) (*pipeline.Pipeline, func(), error) {
	c, err := cachepkg.New(cachepkg.Options{
		Backend:         cachepkg.Backend(cfg.Cache.Backend),
		TTL:             cfg.Cache.TTL,
		MaxSize:         cfg.Cache.MaxSize,
		Dir:             cfg.Cache.Dir,
		CleanupInterval: cfg.Cache.CleanupInterval,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init cache: %w", err)
	}

	e := embedder.New(embedder.Config{
		APIKey:          cfg.Embedder.APIKey,
		BaseURL:         cfg.Embedder.BaseURL,
		Model:           cfg.Embedder.Model,
		Dimensions:      cfg.Embedder.Dimensions,
		Timeout:         cfg.Embedder.Timeout,
		MaxRetries:      cfg.Embedder.MaxRetries,
		MaxTextLength:   cfg.Embedder.MaxTextLength,
		CostPer1KTokens: cfg.Embedder.CostPer1KTokens,
	})

	tr, err := tracker.New(cfg.DBPath)
	if err != nil {
		c.Close()
		return nil, nil, fmt.Errorf("init tracker: %w", err)
	}

	var auditor *audit.Logger
	if cfg.Audit.Enabled {
		auditor, err = audit.New(cfg.Audit)
		if err != nil {
			_ = tr.Close()
			c.Close()
			return nil, nil, fmt.Errorf("init audit: %w", err)
		}
	}

	cleanup := func() {
		if auditor != nil {
			_ = auditor.Close()
		}
		_ = tr.Close()
		c.Close()
	}
	return pipeline.New(c, e, tr, auditor), cleanup, nil
}

// embedTimeout bounds one-shot CLI embedding calls.
const embedTimeout = 5 * time.Minute
