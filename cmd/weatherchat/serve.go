package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/akarpov/weatherchat/internal/bot"
	"github.com/akarpov/weatherchat/internal/config"
	"github.com/akarpov/weatherchat/internal/conversation"
	"github.com/akarpov/weatherchat/internal/intent"
	"github.com/akarpov/weatherchat/internal/llm"
	"github.com/akarpov/weatherchat/internal/queue"
	"github.com/akarpov/weatherchat/internal/telegram"
	"github.com/akarpov/weatherchat/internal/weather"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot: long-poll Telegram and handle messages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			configFile, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}

			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}

			logger, err := config.NewLogger(cfg.Logging)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigChan
				logger.Info("Shutting down gracefully...")
				cancel()
			}()

			return run(ctx, cfg, logger)
		},
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store := conversation.NewStore(conversation.Options{
		MaxHistory:        cfg.History.MaxMessages,
		InactivityWindow:  cfg.History.InactivityWindow(),
		MaxSerializedSize: cfg.History.MaxFileSize,
		Persistence:       conversation.NewFilePersistence(cfg.History.File),
	})
	if err := store.Load(); err != nil {
		logger.Warn("Starting with empty history",
			slog.String("file", cfg.History.File),
			slog.Any("error", err),
		)
	} else {
		logger.Info("History loaded",
			slog.String("file", cfg.History.File),
			slog.Int("users", store.Users()),
		)
	}

	sweeper := conversation.NewSweeperWithInterval(store, cfg.History.SweepInterval)
	if err := sweeper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start history sweeper: %w", err)
	}

	client := telegram.NewClient(cfg.Telegram.BotToken)
	messenger := telegram.NewMessengerWithPollTimeout(client, cfg.Telegram.AdminChatID, cfg.Telegram.PollTimeout)

	if err := client.SetMyCommands(ctx, telegram.DefaultCommands()); err != nil {
		logger.Warn("Failed to register bot commands", slog.Any("error", err))
	}

	gateway := llm.NewOpenRouterGateway(llm.Config{
		APIKey:      cfg.OpenRouter.APIKey,
		BaseURL:     cfg.OpenRouter.BaseURL,
		ChatModel:   cfg.OpenRouter.Model,
		VisionModel: cfg.OpenRouter.VisionModel,
		Title:       cfg.OpenRouter.Title,
	})

	classifier := intent.NewKeywordClassifierWithKeywords(cfg.Weather.Keywords)

	var provider weather.Provider
	if cfg.Weather.BaseURL != "" {
		provider = weather.NewClientWithBaseURL(cfg.Weather.APIKey, cfg.Weather.BaseURL)
	} else {
		provider = weather.NewClient(cfg.Weather.APIKey)
	}
	dialogue := weather.NewDialogue(classifier, provider)

	pipeline := bot.NewPipeline(bot.Options{
		Store:        store,
		Dialogue:     dialogue,
		Classifier:   classifier,
		Gateway:      gateway,
		Messenger:    messenger,
		SystemPrompt: cfg.SystemPrompt,
	})

	dispatcher := queue.NewDispatcher(nil)

	messages, err := messenger.Subscribe(ctx)
	if err != nil {
		return err
	}

	logger.Info("weatherchat started, listening for messages",
		slog.String("model", cfg.OpenRouter.Model),
	)

	// Tasks keep running on a non-cancelable context so messages already
	// accepted are answered even while the poller is shutting down.
	taskCtx := context.WithoutCancel(ctx)
	for msg := range messages {
		m := msg
		if _, err := dispatcher.Enqueue(taskCtx, m.UserID, func(taskCtx context.Context) {
			pipeline.Process(taskCtx, m)
		}); err != nil {
			logger.Error("Failed to enqueue message",
				slog.String("user_id", m.UserID),
				slog.Any("error", err),
			)
		}
	}

	// The update channel closed, so the context is done. Drain in-flight
	// work before the final save.
	sweeper.Stop()
	dispatcher.Wait()
	if err := store.Save(); err != nil {
		logger.Error("Final history save failed", slog.Any("error", err))
	}

	logger.Info("Shutdown complete")
	return nil
}
