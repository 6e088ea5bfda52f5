package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sakif/omi/internal/ai"
	"github.com/sakif/omi/internal/ai/openai"
	"github.com/sakif/omi/internal/config"
	"github.com/sakif/omi/internal/repository/postgres"
	"github.com/sakif/omi/internal/repository/sqlite"
	"github.com/sakif/omi/internal/repository/sqlstore"
	"github.com/sakif/omi/internal/server"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	logger := cfg.Log.NewLogger()
	slog.SetDefault(logger)

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, store, selectProvider(cfg, logger), logger)
	if err != nil {
		_ = store.Close()
		return err
	}

	// Start blocks until SIGINT/SIGTERM and closes the store on the way out.
	return srv.Start()
}

// openStore opens the backend the configuration selects and applies the
// schema.
func openStore(ctx context.Context, cfg *config.Config) (*sqlstore.Store, error) {
	switch cfg.Backend() {
	case config.BackendPostgres:
		store, err := postgres.Open(ctx, cfg.Database.Pool())
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		return store, nil
	default:
		store, err := sqlite.Open(ctx, cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite at %s: %w", cfg.Database.Path, err)
		}
		return store, nil
	}
}

// selectProvider picks the AI backend.
//
//	AI_TEST_MODE=true      deterministic mock
//	OPENAI_API_KEY set     OpenAI
//	neither                every AI route answers 503
//
// Test mode has to be asked for; a missing key never silently turns into
// mock answers.
func selectProvider(cfg *config.Config, logger *slog.Logger) ai.Provider {
	switch {
	case cfg.AI.TestMode:
		logger.Warn("AI test mode enabled: responses are mocked")
		return ai.MockProvider{}
	case cfg.AIConfigured():
		logger.Info("AI provider configured",
			slog.String("base_url", cfg.AI.BaseURL),
			slog.String("model", cfg.AI.Model),
		)
		return openai.New(openai.Config{
			APIKey:  cfg.AI.APIKey,
			BaseURL: cfg.AI.BaseURL,
			Model:   cfg.AI.Model,
			Timeout: cfg.AI.Timeout,
		})
	default:
		logger.Warn("OPENAI_API_KEY not set and AI_TEST_MODE off: /api/ai routes will return 503")
		return ai.Unconfigured{}
	}
}
