package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Blynx-ai/blynx-backend/internal/agent"
	"github.com/Blynx-ai/blynx-backend/internal/config"
	"github.com/Blynx-ai/blynx-backend/internal/flow"
	"github.com/Blynx-ai/blynx-backend/internal/publish"
	"github.com/Blynx-ai/blynx-backend/internal/scrape"
	"github.com/Blynx-ai/blynx-backend/internal/store"
	"github.com/Blynx-ai/blynx-backend/pkg/anthropic"
	"github.com/Blynx-ai/blynx-backend/pkg/firecrawl"
	"github.com/Blynx-ai/blynx-backend/pkg/jina"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "blynx",
	Short: "Online presence evaluation engine",
	Long:  "Scrapes a business's landing page and social profiles, runs LLM-driven analysis and evaluation phases, and produces a composite Blynx Score with feedback.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// engine bundles the wired flow components shared by the run and serve
// commands.
type engine struct {
	store     store.Store
	manager   *flow.Manager
	publisher *publish.Publisher
}

func (e *engine) Close() {
	e.manager.Close()
	if err := e.store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

func initEngine(ctx context.Context) (*engine, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}

	reader := jina.NewClient(cfg.Jina.Key,
		jina.WithBaseURL(cfg.Jina.BaseURL),
		jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL))

	var fallback firecrawl.Client
	if cfg.Scrape.EnableFallback && cfg.Firecrawl.Key != "" {
		fallback = firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))
	}

	gen := agent.NewGenerator(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic)
	registry := scrape.NewRegistryFromConfig(reader, fallback, cfg.Scrape)
	state := flow.NewState(st, cfg.Flow.PersistTimeout())

	var searcher jina.Client
	if cfg.Flow.EnableNews {
		searcher = reader
	}

	return &engine{
		store:     st,
		manager:   flow.NewManager(state, registry, gen, searcher, cfg.Flow),
		publisher: publish.NewPublisher(state, cfg.Flow.PublishInterval()),
	}, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
