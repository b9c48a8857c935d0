// Package preview runs a blocking read/detect/show loop against a native
// OpenCV window.
package preview

import (
	"context"
	"log/slog"

	"gocv.io/x/gocv"

	"objectcam/internal/models"
)

const QuitKey = 'q'

// Stepper fills dst with the next annotated frame.
type Stepper interface {
	Step(dst *gocv.Mat) ([]models.Detection, error)
}

// ShowFunc displays a frame and returns the key pressed while waiting, or
// a negative value when none was.
type ShowFunc func(frame gocv.Mat) int

// Run loops until QuitKey is pressed, ctx is cancelled, or a frame step
// fails. The step error is returned; quitting returns nil.
func Run(ctx context.Context, src Stepper, show ShowFunc, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}

	frame := gocv.NewMat()
	defer frame.Close()

	frames := 0
	for {
		if err := ctx.Err(); err != nil {
			log.Info("preview interrupted", "frames", frames)
			return nil
		}

		detections, err := src.Step(&frame)
		if err != nil {
			return err
		}
		frames++

		if len(detections) > 0 {
			log.Debug("detections", "count", len(detections))
		}

		if key := show(frame); key >= 0 && key&0xFF == QuitKey {
			log.Info("quit requested", "frames", frames)
			return nil
		}
	}
}
