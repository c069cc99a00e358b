package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agb-search/agb-searcher/internal/chat"
	"github.com/agb-search/agb-searcher/internal/config"
	"github.com/agb-search/agb-searcher/internal/importer"
	"github.com/agb-search/agb-searcher/internal/pipeline"
	"github.com/agb-search/agb-searcher/internal/store"
	"github.com/agb-search/agb-searcher/pkg/llm"
	"github.com/agb-search/agb-searcher/pkg/websearch"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "agb-searcher",
	Short: "Company information search and enrichment service",
	Long:  "Looks up Russian company contact data through an LLM with web search grounding, validates it against placeholder patterns, and serves the results over a REST API.",
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

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// appEnv holds the wired application components shared by subcommands.
type appEnv struct {
	Store     store.Store
	Pipeline  *pipeline.Orchestrator
	Importer  *importer.Importer
	Assistant *chat.Assistant
}

func (e *appEnv) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

// initEnv opens the store, runs migrations, and wires the pipeline.
func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}

	client, err := newLLMClient()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	search := websearch.NewClient(
		websearch.WithBaseURL(cfg.Search.BaseURL),
		websearch.WithUserAgent(cfg.Search.UserAgent),
		websearch.WithRateLimit(cfg.Search.RatePerSec),
		websearch.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Search.TimeoutSecs) * time.Second,
		}),
	)
	probe := pipeline.NewWebProbe(search)

	orch := pipeline.New(client, probe, pipeline.Config{
		Model:       cfg.Polza.Model,
		MaxTokens:   cfg.Polza.MaxTokens,
		Temperature: cfg.Polza.Temperature,
		RetryCount:  cfg.Pipeline.RetryCount,
	})

	imp := importer.New(st, orch,
		importer.WithMaxConcurrent(cfg.Import.MaxConcurrentLookups))

	assistant := chat.New(client, st, chat.Config{
		Model:              cfg.Chat.Model,
		Temperature:        cfg.Chat.Temperature,
		MaxTokens:          cfg.Chat.MaxTokens,
		SummarizeThreshold: cfg.Chat.SummarizeThreshold,
		KeepRecent:         cfg.Chat.SummaryKeepRecent,
	})

	return &appEnv{
		Store:     st,
		Pipeline:  orch,
		Importer:  imp,
		Assistant: assistant,
	}, nil
}

func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	default:
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	}
}

func newLLMClient() (llm.Client, error) {
	switch cfg.Pipeline.Provider {
	case "anthropic":
		if cfg.Anthropic.Key == "" {
			return nil, fmt.Errorf("anthropic.key is required for provider %q", cfg.Pipeline.Provider)
		}
		return llm.NewAnthropic(cfg.Anthropic.Key,
			llm.WithAnthropicModel(cfg.Anthropic.Model)), nil
	default:
		if cfg.Polza.Key == "" {
			return nil, fmt.Errorf("polza.key is required for provider %q", cfg.Pipeline.Provider)
		}
		return llm.NewPolza(cfg.Polza.Key,
			llm.WithPolzaBaseURL(cfg.Polza.BaseURL),
			llm.WithPolzaModel(cfg.Polza.Model),
			llm.WithPolzaHTTPClient(&http.Client{
				Timeout: time.Duration(cfg.Polza.TimeoutSecs) * time.Second,
			})), nil
	}
}
