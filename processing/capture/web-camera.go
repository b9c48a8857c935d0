package capture

import (
	"fmt"

	"gocv.io/x/gocv"
)

// OpenWebcam opens camera index id through the platform's default capture
// backend. A zero width or height keeps the device's native size.
func OpenWebcam(id int, width, height int) (*gocv.VideoCapture, error) {
	vc, err := gocv.OpenVideoCapture(id)
	if err != nil {
		return nil, fmt.Errorf("%w: device %d: %v", ErrDeviceUnavailable, id, err)
	}

	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: device %d", ErrDeviceUnavailable, id)
	}

	if width > 0 && height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}

	return vc, nil
}
