package cmd

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ziadkadry99/kbchat/internal/config"
	"github.com/ziadkadry99/kbchat/internal/db"
	"github.com/ziadkadry99/kbchat/internal/logging"
	"github.com/ziadkadry99/kbchat/internal/vectordb"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `kbchat init` to create a config file", err)
	}
	if cfg.OpenAIAPIKey == "" {
		cfg.OpenAIAPIKey = os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return log, nil
}

func openDatabase(cfg *config.Config) (*db.DB, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	database, err := db.Open(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return database, nil
}

// openKnowledge loads the persisted knowledge collection. A missing or
// unreadable file leaves the store empty, so every question falls back.
func openKnowledge(ctx context.Context, cfg *config.Config, log *zap.Logger) (*vectordb.ChromemStore, error) {
	store, err := vectordb.NewChromemStore()
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}
	if err := store.Load(ctx, cfg.VectorDir()); err != nil {
		log.Warn("starting with empty knowledge store",
			zap.String("dir", cfg.VectorDir()), zap.Error(err))
	}
	return store, nil
}
