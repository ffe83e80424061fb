package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sagaskoyere/ankikeys/internal/anki"
	"github.com/sagaskoyere/ankikeys/internal/app"
	"github.com/sagaskoyere/ankikeys/internal/config"
	"github.com/sagaskoyere/ankikeys/internal/hotkey"
	"github.com/sagaskoyere/ankikeys/internal/logging"
	"github.com/sagaskoyere/ankikeys/internal/session"
	"github.com/sagaskoyere/ankikeys/internal/tray"
	"github.com/sagaskoyere/ankikeys/internal/window"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

func main() {
	// Load config from XDG/Library/AppData
	cfg, err := config.Load()
	if err != nil {
		// Use default logger if config fails to load
		log := logging.New()
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Initialize logger with configured level
	log := logging.NewWithLevel(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the AnkiConnect client and probe the host once so a
	// misconfigured URL shows up in the log right away
	client := anki.New(cfg.Anki, log)
	if version, err := client.Version(ctx); err != nil {
		log.Warn().Err(err).Msg("Anki not reachable yet, polling until it is")
	} else {
		log.Info().Int("version", version).Msg("Connected to AnkiConnect")
	}

	// Initialize the host window handle
	win := window.New(cfg.Window.Match, log)
	if ok, reason := win.Available(); !ok {
		log.Warn().Str("reason", reason).Msg("Always-on-top not available")
	}

	// Initialize the hotkey manager
	hkManager := hotkey.New(log)
	defer hkManager.Close()

	// Create tray UI first (we'll pass it to app)
	trayUI := tray.New(nil, cfg, Version, Commit) // App reference set below

	// Create app with tray as status updater
	application, err := app.New(app.Config{
		Reviewer:      client,
		Window:        win,
		Hotkeys:       hkManager,
		Config:        cfg,
		Logger:        log,
		StatusUpdater: trayUI,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to assemble app")
	}

	// Set app reference in tray
	trayUI.SetApp(application)

	// Watch the host for review sessions
	watcher := session.New(session.Config{
		Prober:   client,
		Interval: cfg.Anki.PollInterval,
		Logger:   log,
		OnShown:  application.ReviewShown,
		OnHidden: application.ReviewHidden,
	})
	go watcher.Run(ctx)

	// Rebind when the config file changes on disk
	stopWatch, err := config.Watch(config.Path(), log, func() {
		application.ReloadConfig()
		trayUI.RefreshBindings()
	})
	if err != nil {
		log.Warn().Err(err).Msg("Config watching disabled")
	} else {
		defer stopWatch()
	}

	log.Info().Str("version", Version).Msg("AnkiKeys starting...")

	// Setup shutdown signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Shutting down...")
		cancel()
		if err := application.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("Shutdown error")
		}
		os.Exit(0)
	}()

	// Start tray UI - MUST run on main thread
	if err := trayUI.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Tray error")
	}

	// Quitting from the tray menu lands here
	cancel()
	if err := application.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
}
