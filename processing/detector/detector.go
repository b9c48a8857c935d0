package processing

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gocv.io/x/gocv"

	"objectcam/internal/config"
	"objectcam/internal/models"
)

var ErrModelLoad = errors.New("failed to load detection model")

// Detector finds boxes on a BGR frame. Implementations are not required to
// be safe for concurrent use.
type Detector interface {
	Detect(frame gocv.Mat) ([]models.Detection, error)
	Close() error
}

// New builds the detector selected in cfg.
func New(cfg *config.Config) (Detector, error) {
	switch kind := cfg.GetDetector(); kind {
	case config.DetectorYOLO:
		det, err := NewYOLO(cfg)
		if err != nil {
			return nil, err
		}
		return det, nil
	case config.DetectorCascade:
		det, err := NewCascade(cfg.CascadeSettings())
		if err != nil {
			return nil, err
		}
		return det, nil
	case config.DetectorRemote:
		det := NewRemoteDetector(cfg.Remote.Host, slog.Default())
		det.Start()
		return det, nil
	default:
		return nil, fmt.Errorf("unknown detector: %s", kind)
	}
}

// CheckModels reports model files the active detector would fail to load.
func CheckModels(cfg *config.Config) error {
	switch cfg.GetDetector() {
	case config.DetectorYOLO:
		yc := cfg.YOLOSettings()
		var errs []error
		for _, p := range []string{yc.WeightsPath, yc.ConfigPath, yc.NamesPath} {
			if _, err := os.Stat(p); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			return fmt.Errorf("%w: %w", ErrModelLoad, errors.Join(errs...))
		}
	case config.DetectorCascade:
		_, err := ResolveCascadePath(cfg.CascadeSettings().Path)
		return err
	}
	return nil
}
