package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const envPrefix = "OBJECTCAM_"

// LoadEnvFile reads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides config values with OBJECTCAM_* environment variables.
func (c *Config) ApplyEnv() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error

	if v, ok := lookup("DEVICE"); ok {
		id, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sDEVICE: %w", envPrefix, err))
		} else {
			c.Camera.DeviceID = id
		}
	}
	if v, ok := lookup("CONFIDENCE"); ok {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sCONFIDENCE: %w", envPrefix, err))
		} else {
			c.YOLO.ConfidenceThreshold = float32(f)
		}
	}
	if v, ok := lookup("DETECTOR"); ok {
		c.ActiveDetector = DetectorKind(v)
	}

	setString(&c.Camera.File, "VIDEO_FILE")
	setString(&c.YOLO.WeightsPath, "YOLO_WEIGHTS")
	setString(&c.YOLO.ConfigPath, "YOLO_CONFIG")
	setString(&c.YOLO.NamesPath, "YOLO_NAMES")
	setString(&c.Cascade.Path, "CASCADE")
	setString(&c.Remote.Host, "REMOTE_HOST")
	setString(&c.LogLevel, "LOG_LEVEL")

	return errors.Join(errs...)
}

func lookup(key string) (string, bool) {
	v := os.Getenv(envPrefix + key)
	return v, v != ""
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}
