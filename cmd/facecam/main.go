package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gocv.io/x/gocv"

	"objectcam/internal/config"
	"objectcam/internal/logger"
	"objectcam/internal/preview"
	"objectcam/processing/capture"
	processing "objectcam/processing/detector"
)

const windowTitle = "Face Detection"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", config.DefaultConfigPath, "path to the JSON config file")
	device := flag.Int("device", -1, "camera index (overrides config)")
	cascadePath := flag.String("cascade", "", "haar cascade XML (overrides config)")
	flag.Parse()

	if err := config.LoadEnvFile(config.DefaultEnvPath); err != nil {
		return err
	}

	cfg, err := config.LoadConfigFile(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	if *device >= 0 {
		cfg.SetDeviceID(*device)
	}
	if *cascadePath != "" {
		cfg.Cascade.Path = *cascadePath
	}
	cfg.SetDetector(config.DetectorCascade)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, os.Stderr)
	if err != nil {
		log.Warn("falling back to info level", "err", err)
	}

	det, err := processing.NewCascade(cfg.CascadeSettings())
	if err != nil {
		return err
	}

	cam, err := capture.NewDevice(cfg)
	if err != nil {
		det.Close()
		return err
	}

	pipeline := processing.NewPipeline(cam, det, processing.FaceStyle)
	window := gocv.NewWindow(windowTitle)

	// camera goes before the window
	defer func() {
		if err := pipeline.Close(); err != nil {
			log.Warn("release camera", "err", err)
		}
		window.Close()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("face detection started, press q in the window to quit", "device", cfg.GetDeviceID())

	show := func(frame gocv.Mat) int {
		window.IMShow(frame)
		return window.WaitKey(1)
	}

	err = preview.Run(ctx, pipeline, show, log)
	if errors.Is(err, capture.ErrFrameRead) {
		log.Error("Can't receive frame (stream end?). Exiting ...")
		return nil
	}

	return err
}
