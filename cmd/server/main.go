// Package main is the entry point for the screenshot analysis server
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/example/screenshotai/internal/claude"
	"github.com/example/screenshotai/internal/config"
	"github.com/example/screenshotai/internal/events"
	"github.com/example/screenshotai/internal/notify"
	"github.com/example/screenshotai/internal/pipeline"
	"github.com/example/screenshotai/internal/server"
	"github.com/example/screenshotai/internal/store"
	"github.com/example/screenshotai/internal/watcher"
)

var (
	testConfig = flag.Bool("test-config", false, "Validate configuration and exit")
	verbose    = flag.Bool("verbose", false, "Enable debug logging")
	version    = "1.0.0"
)

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.TimeKey = "timestamp"
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *testConfig {
		fmt.Println("Configuration test successful")
		return
	}

	log, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting screenshot AI server",
		zap.String("version", version),
		zap.Int("port", cfg.ServerPort),
		zap.Bool("desktop_detection", cfg.EnableDesktopDetection),
		zap.Bool("telegram", cfg.TelegramConfigured()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := store.New(cfg.StoreCapacity)

	ai := claude.NewClient(cfg.AnthropicAPIKey, log,
		claude.WithBaseURL(cfg.AnthropicBaseURL),
		claude.WithModel(cfg.ClaudeModel))

	var notifier pipeline.Notifier
	if cfg.TelegramConfigured() {
		n, err := notify.New(cfg.TelegramBotToken, cfg.TelegramChatID, log)
		if err != nil {
			log.Warn("telegram notifications disabled", zap.Error(err))
		} else {
			notifier = n
		}
	}

	p := pipeline.New(ai, st, notifier, log)

	hub := events.NewHub(log)
	hub.Run()
	defer hub.Shutdown()

	if cfg.EnableDesktopDetection {
		w, err := watcher.New(cfg.WatchDir, p, hub, log)
		if err != nil {
			log.Warn("desktop auto-detection disabled", zap.Error(err))
		} else if err := w.Start(); err != nil {
			log.Warn("desktop auto-detection disabled", zap.Error(err))
		} else {
			defer w.Stop()
		}
	}

	srv := server.New(cfg, p, st, hub, log)
	if err := srv.Run(ctx); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}

	log.Info("server shutdown complete")
}
