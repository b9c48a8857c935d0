package capture

import (
	"fmt"
	"os"

	"gocv.io/x/gocv"
)

// OpenFile plays a local video file through the same Device contract as a
// webcam. Useful for running the detectors without a camera attached.
func OpenFile(path string) (*gocv.VideoCapture, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, path, err)
	}

	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: %s", ErrDeviceUnavailable, path)
	}

	return vc, nil
}
