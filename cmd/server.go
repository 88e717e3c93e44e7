package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/kbchat/internal/answer"
	"github.com/ziadkadry99/kbchat/internal/calendar"
	"github.com/ziadkadry99/kbchat/internal/chat"
	"github.com/ziadkadry99/kbchat/internal/chatlog"
	"github.com/ziadkadry99/kbchat/internal/config"
	"github.com/ziadkadry99/kbchat/internal/embeddings"
	"github.com/ziadkadry99/kbchat/internal/llm"
	"github.com/ziadkadry99/kbchat/internal/metrics"
	"github.com/ziadkadry99/kbchat/internal/retrieval"
	"github.com/ziadkadry99/kbchat/internal/server"
	"github.com/ziadkadry99/kbchat/internal/tasks"
	"github.com/ziadkadry99/kbchat/internal/tenant"
	"github.com/ziadkadry99/kbchat/internal/webhooks"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the chat server",
	Long:  `Starts the public chat endpoint at /api/chat together with the admin API, /healthz and /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.ListenPort = serverPort
		}
		return runServer(cfg)
	},
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "port to listen on (overrides listen_port)")
	rootCmd.AddCommand(serverCmd)
}

func runServer(cfg *config.Config) error {
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	knowledge, err := openKnowledge(ctx, cfg, log)
	if err != nil {
		return err
	}

	m := metrics.New()
	runner := tasks.NewRunner(log, m)

	botStore := tenant.NewStore(database)
	calendarStore := calendar.NewStore(database)
	webhookStore := webhooks.NewStore(database)
	chatlogStore := chatlog.NewStore(database)

	if cfg.OpenAIAPIKey == "" {
		log.Warn("no default API key configured; only bots with their own key can answer")
	}

	pipeline := chat.NewPipeline(chat.Deps{
		Bots:      tenant.NewResolver(botStore, cfg.EncryptionKey, cfg.OpenAIAPIKey, log),
		Calendar:  calendarStore,
		Retriever: retrieval.New(knowledge, log),
		Embedders: embeddings.NewOpenAIFactory(embeddings.OpenAIModel(cfg.EmbeddingModel), cfg.EmbeddingBaseURL),
		Providers: llm.NewFactory(llm.Endpoints{OpenRouter: cfg.OpenRouterBaseURL}),
		Engine:    answer.NewEngine(cfg.MaxHistoryMessages),
		ChatLog:   chatlog.NewLogger(chatlogStore, runner, log),
		Webhooks: webhooks.NewDispatcher(webhookStore,
			time.Duration(cfg.WebhookTimeoutSeconds)*time.Second, log, m, runner),
		Runner:  runner,
		Metrics: m,
		Log:     log,
	})

	srv := server.New(server.Config{
		Port:           cfg.ListenPort,
		RequestTimeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		AdminOrigins:   cfg.AdminOrigins,
		AdminToken:     cfg.AdminToken,
	}, log, m)

	chat.NewHandler(pipeline, log).RegisterRoutes(srv.Router())
	srv.Admin(
		func(r chi.Router) { chatlog.RegisterRoutes(r, chatlogStore) },
		func(r chi.Router) { webhooks.RegisterRoutes(r, webhookStore) },
		func(r chi.Router) { calendar.RegisterRoutes(r, calendarStore) },
	)

	log.Info("kbchat starting",
		zap.String("version", Version),
		zap.String("database", cfg.DBPath()),
		zap.Int("knowledge_chunks", knowledge.Count()),
		zap.Bool("admin_token", cfg.AdminToken != ""),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	grace := time.Duration(cfg.ShutdownTimeoutSeconds) * time.Second
	if grace <= 0 {
		grace = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	if err := runner.Shutdown(shutdownCtx); err != nil {
		log.Warn("background tasks did not finish", zap.Error(err))
	}
	return nil
}
