package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nsqio/go-nsq"

	"jobtrail/internal/adapter/gemini"
	"jobtrail/internal/app"
	"jobtrail/internal/config"
	"jobtrail/internal/logger"
	"jobtrail/internal/worker"
)

func main() {
	// Initialize structured logger
	log := slog.New(logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil)))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		slog.Error("failed to bootstrap dependencies", "error", err)
		os.Exit(1)
	}
	defer deps.DB.Close()
	defer deps.NSQProducer.Stop()

	geminiClient, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel, cfg.GenerateModel)
	if err != nil {
		slog.Error("failed to create gemini client", "error", err)
		os.Exit(1)
	}
	defer geminiClient.Close()

	application, err := app.New(
		cfg,
		deps.DB,
		deps.VectorStore,
		deps.NSQProducer,
		gemini.NewEmbedder(geminiClient),
		gemini.NewExtractor(geminiClient),
		gemini.NewGenerator(geminiClient),
	)
	if err != nil {
		slog.Error("failed to wire application", "error", err)
		os.Exit(1)
	}

	consumers := startConsumers(cfg, application)
	defer func() {
		for _, c := range consumers {
			c.Stop()
		}
	}()

	if err := application.Run(ctx); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// startConsumers attaches the three pipeline stages to their NSQ topics. A
// consumer that cannot connect is logged and skipped so the HTTP API still
// comes up; lookupd reconnects are handled by go-nsq once connected.
func startConsumers(cfg *config.Config, a *app.App) []*nsq.Consumer {
	handlers := []struct {
		topic   string
		handler nsq.Handler
	}{
		{worker.TopicExtract, a.ExtractConsumer},
		{worker.TopicApply, a.ApplyConsumer},
		{worker.TopicEmbed, a.EmbedConsumer},
	}

	var consumers []*nsq.Consumer
	for _, h := range handlers {
		consumer, err := nsq.NewConsumer(h.topic, "jobtrail", nsq.NewConfig())
		if err != nil {
			slog.Error("failed to create NSQ consumer", "topic", h.topic, "error", err)
			continue
		}
		consumer.AddHandler(h.handler)
		if err := consumer.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
			slog.Error("failed to connect consumer to NSQLookupd", "topic", h.topic, "error", err)
			continue
		}
		slog.Info("NSQ consumer connected", "topic", h.topic)
		consumers = append(consumers, consumer)
	}
	return consumers
}
