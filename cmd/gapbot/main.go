// Package main contains the entrypoint for the gapbot webhook application.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"gapbot/internal/ai"
	"gapbot/internal/config"
	"gapbot/internal/logger"
	"gapbot/internal/pipeline"
	"gapbot/internal/speech"
	"gapbot/internal/telegram"
	"gapbot/internal/vision"
	"gapbot/internal/webhook"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes all application components (config, logger, provider
// clients, pipeline, webhook server), serves until the context is
// cancelled, and returns an exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Log.Level, "format", cfg.Log.Format)

	tg, err := telegram.New(cfg.Telegram.Token, cfg.Fetch, log)
	if err != nil {
		log.Error("Failed to create Telegram client", "error", err)
		return 1
	}

	completion := ai.NewOpenRouterClient(cfg.AI, log)

	deps := pipeline.Deps{
		Logger:     log,
		Completion: completion,
		Fetcher:    tg,
		Dispatcher: tg,
	}

	if cfg.STT.Token != "" {
		deps.Transcriber = speech.NewWhisperTranscriber(cfg.STT, log)
		log.Info("Transcription enabled", "model", cfg.STT.Model)
	} else {
		log.Info("Transcription disabled, no STT token configured")
	}

	if cfg.Vision.Token != "" {
		captioner, err := vision.NewGeminiCaptioner(ctx, cfg.Vision, log)
		if err != nil {
			log.Error("Failed to create captioner", "error", err)
			return 1
		}
		deps.Captioner = captioner
		log.Info("Captioning enabled", "model", cfg.Vision.Model)
	} else {
		log.Info("Captioning disabled, no vision token configured")
	}

	if cfg.TTS.Enabled {
		engine := speech.NewGoogleTTSEngine(cfg.TTS)
		deps.Synthesizer = speech.NewVoiceSynthesizer(cfg.TTS, engine, log)
		log.Info("Speech synthesis enabled",
			"voice_ratio", cfg.TTS.VoiceRatio, "sample_rate", cfg.TTS.SampleRate)
	} else {
		log.Info("Speech synthesis disabled")
	}

	policy := pipeline.Policy{
		SynthesizeOnFallback: cfg.TTS.SynthesizeOnFallback,
		Messages:             cfg.Messages,
	}
	p := pipeline.New(deps, policy)

	server := webhook.New(cfg.Server, p, log)

	log.Info("Starting gapbot...", "addr", cfg.Server.Addr, "webhook_path", cfg.Server.WebhookPath)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Server stopped due to error", "error", err)
		return 1
	}

	log.Info("gapbot stopped gracefully.")
	return 0
}
