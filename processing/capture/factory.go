package capture

import (
	config "objectcam/internal/config"
)

// NewDevice opens the configured video file when one is set, the webcam otherwise.
func NewDevice(cfg *config.Config) (Device, error) {
	if cfg.Camera.File != "" {
		vc, err := OpenFile(cfg.Camera.File)
		if err != nil {
			return nil, err
		}
		return vc, nil
	}

	vc, err := OpenWebcam(cfg.GetDeviceID(), cfg.Camera.Width, cfg.Camera.Height)
	if err != nil {
		return nil, err
	}
	return vc, nil
}
