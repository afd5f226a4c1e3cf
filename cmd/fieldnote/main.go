package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MuhammedBasith/fieldnote-slack-bot/internal/api"
	"github.com/MuhammedBasith/fieldnote-slack-bot/internal/bus"
	"github.com/MuhammedBasith/fieldnote-slack-bot/internal/config"
	"github.com/MuhammedBasith/fieldnote-slack-bot/internal/digest"
	"github.com/MuhammedBasith/fieldnote-slack-bot/internal/ingest"
	"github.com/MuhammedBasith/fieldnote-slack-bot/internal/llm"
	"github.com/MuhammedBasith/fieldnote-slack-bot/internal/schedule"
	"github.com/MuhammedBasith/fieldnote-slack-bot/internal/slack"
	"github.com/MuhammedBasith/fieldnote-slack-bot/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("fieldnote starting", "port", cfg.Port, "channels", cfg.SlackChannelIDs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database connected")

	if cfg.OpenAIAPIKey == "" {
		slog.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}
	llmClient := llm.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, slog.Default())
	slog.Info("llm client ready", "model", cfg.OpenAIModel)

	if cfg.SlackBotToken == "" {
		slog.Error("SLACK_BOT_TOKEN is required")
		os.Exit(1)
	}
	slackClient := slack.NewClient(cfg.SlackBotToken, slog.Default())

	busClient, err := bus.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer busClient.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	tracker := digest.NewTracker(db, slog.Default())
	extractor := digest.NewExtractor(llmClient, slog.Default())
	generator := digest.NewGenerator(llmClient, slog.Default())
	styles := digest.NewStyleAnalyzer(llmClient, db, slog.Default())

	pipeline := digest.NewPipeline(digest.Deps{
		Tracker:   tracker,
		Source:    slackClient,
		Extractor: extractor,
		Generator: generator,
		Profiles:  db,
		Insights:  db,
		Posts:     db,
		Notifier:  slackClient,
		Styles:    styles,
		Bus:       busClient,
		Modals:    slackClient,
		Channels:  cfg.SlackChannelIDs,
		Logger:    slog.Default(),
	})

	actions := slack.NewActionHandler(slackClient, db, db, slog.Default())
	ingester := ingest.NewHandler(db, cfg.SlackChannelIDs, slog.Default())

	subscriptions := map[string]func(string, []byte){
		bus.SubjectCommand: pipeline.HandleCommandEvent,
		bus.SubjectStyle:   pipeline.HandleStyleEvent,
		bus.SubjectAction:  actions.HandleActionEvent,
		bus.SubjectMessage: ingester.HandleMessageEvent,
	}
	for subject, handler := range subscriptions {
		if err := busClient.Subscribe(subject, handler); err != nil {
			slog.Error("failed to subscribe", "subject", subject, "error", err)
			os.Exit(1)
		}
	}

	runPrimary := func(ctx context.Context) {
		if cfg.PrimaryUserID == "" {
			slog.Warn("no primary user configured, skipping scheduled digest")
			return
		}
		res, err := pipeline.Run(ctx, cfg.PrimaryUserID)
		if err != nil || res.Err != nil {
			if err == nil {
				err = res.Err
			}
			slog.Error("scheduled digest failed", "error", err)
			if nErr := slackClient.SendNotice(ctx, cfg.PrimaryUserID,
				"Something went wrong generating your insights. Please try again later."); nErr != nil {
				slog.Error("failed to send failure notice", "error", nErr)
			}
		}
	}

	srv := api.NewServer(cfg.Port, cfg.CronSecret, cfg.SlackChannelIDs, runPrimary, db, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	daily := schedule.NewDaily(cfg.DigestHour, cfg.Location(), runPrimary, slog.Default())
	go daily.Start(ctx)

	slog.Info("fieldnote ready",
		"port", cfg.Port,
		"digest_hour", cfg.DigestHour,
		"timezone", cfg.Timezone,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("fieldnote stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
