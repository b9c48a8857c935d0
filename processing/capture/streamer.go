package capture

import (
	"errors"

	"gocv.io/x/gocv"
)

var (
	ErrDeviceUnavailable = errors.New("could not open the webcam")
	ErrFrameRead         = errors.New("can't receive frame (stream end?)")
)

// Device is an open capture handle. *gocv.VideoCapture satisfies it.
type Device interface {
	Read(m *gocv.Mat) bool
	IsOpened() bool
	Close() error
}

// ReadFrame reads the next frame into dst, mapping a failed or empty read
// to ErrFrameRead.
func ReadFrame(d Device, dst *gocv.Mat) error {
	if ok := d.Read(dst); !ok || dst.Empty() {
		return ErrFrameRead
	}
	return nil
}
