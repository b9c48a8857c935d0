package preview

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"

	"objectcam/internal/models"
	"objectcam/processing/capture"
)

var quietLog = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeStepper struct {
	steps  int
	failAt int
}

func (f *fakeStepper) Step(dst *gocv.Mat) ([]models.Detection, error) {
	f.steps++
	if f.failAt > 0 && f.steps >= f.failAt {
		return nil, capture.ErrFrameRead
	}
	return []models.Detection{{Label: models.FaceLabel, Box: image.Rect(0, 0, 1, 1)}}, nil
}

func keysThen(keys ...int) (ShowFunc, *int) {
	shown := 0
	return func(gocv.Mat) int {
		shown++
		if len(keys) == 0 {
			return -1
		}
		k := keys[0]
		keys = keys[1:]
		return k
	}, &shown
}

func TestRun_QuitKey(t *testing.T) {
	src := &fakeStepper{}
	show, shown := keysThen(-1, 'x', 'q')

	err := Run(context.Background(), src, show, quietLog)

	assert.NoError(t, err)
	assert.Equal(t, 3, *shown)
	assert.Equal(t, 3, src.steps)
}

func TestRun_QuitKeyWithModifierBits(t *testing.T) {
	src := &fakeStepper{}
	show, _ := keysThen(0x100000 | 'q')

	assert.NoError(t, Run(context.Background(), src, show, quietLog))
	assert.Equal(t, 1, src.steps)
}

func TestRun_FrameErrorStops(t *testing.T) {
	src := &fakeStepper{failAt: 2}
	show, shown := keysThen()

	err := Run(context.Background(), src, show, quietLog)

	assert.True(t, errors.Is(err, capture.ErrFrameRead))
	assert.Equal(t, 1, *shown)
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &fakeStepper{}
	show, shown := keysThen()

	assert.NoError(t, Run(ctx, src, show, quietLog))
	assert.Zero(t, src.steps)
	assert.Zero(t, *shown)
}
