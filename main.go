package main

import (
	"fmt"
	"os"

	"objectcam/internal/config"
	"objectcam/internal/logger"
	ui "objectcam/internal/ui"
	processing "objectcam/processing/detector"

	"fyne.io/fyne/v2/app"
)

func main() {
	if err := config.LoadEnvFile(config.DefaultEnvPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	cfg, err := config.LoadConfigFile(config.DefaultConfigPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := cfg.ApplyEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid config:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, os.Stderr)
	if err != nil {
		log.Warn("falling back to info level", "err", err)
	}

	if err := processing.CheckModels(cfg); err != nil {
		log.Warn("detector models unavailable, opening the camera will fail", "detector", cfg.GetDetector(), "err", err)
	}

	a := ui.CreateApp(app.New(), cfg, processing.Opener(cfg), log)

	a.Run()
}
