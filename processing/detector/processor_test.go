package processing

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"objectcam/internal/models"
	"objectcam/processing/capture"
)

type fakeDevice struct {
	frames int
	closed bool
}

func (f *fakeDevice) Read(m *gocv.Mat) bool {
	if f.frames == 0 {
		return false
	}
	f.frames--
	src := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 120, 160, gocv.MatTypeCV8UC3)
	defer src.Close()
	src.CopyTo(m)
	return true
}

func (f *fakeDevice) IsOpened() bool { return !f.closed }
func (f *fakeDevice) Close() error   { f.closed = true; return nil }

type fakeDetector struct {
	detections []models.Detection
	err        error
	closed     bool
}

func (f *fakeDetector) Detect(gocv.Mat) ([]models.Detection, error) { return f.detections, f.err }
func (f *fakeDetector) Close() error                                { f.closed = true; return nil }

func TestAnnotate_DrawsBox(t *testing.T) {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 100, 100, gocv.MatTypeCV8UC3)
	defer img.Close()

	dets := []models.Detection{{Label: "cat", Confidence: 0.9, Box: image.Rect(20, 30, 60, 70)}}
	require.NoError(t, Annotate(&img, dets, ObjectStyle))

	// BGR order: green box edge
	px := img.GetVecbAt(30, 40)
	assert.Equal(t, uint8(0), px[0])
	assert.Equal(t, uint8(255), px[1])
	assert.Equal(t, uint8(0), px[2])

	// inside the box untouched
	inner := img.GetVecbAt(50, 40)
	assert.Equal(t, uint8(0), inner[1])
}

func TestAnnotate_FaceIsBlue(t *testing.T) {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 100, 100, gocv.MatTypeCV8UC3)
	defer img.Close()

	dets := []models.Detection{{Label: models.FaceLabel, Box: image.Rect(10, 10, 50, 50)}}
	require.NoError(t, Annotate(&img, dets, FaceStyle))

	px := img.GetVecbAt(10, 30)
	assert.Equal(t, uint8(255), px[0])
	assert.Equal(t, uint8(0), px[2])
}

func TestPipelineStep(t *testing.T) {
	dev := &fakeDevice{frames: 1}
	det := &fakeDetector{detections: []models.Detection{{Label: "dog", Box: image.Rect(5, 5, 50, 50)}}}
	p := NewPipeline(dev, det, ObjectStyle)

	frame := gocv.NewMat()
	defer frame.Close()

	got, err := p.Step(&frame)
	require.NoError(t, err)
	assert.Equal(t, det.detections, got)
	assert.Equal(t, 160, frame.Cols())

	_, err = p.Step(&frame)
	assert.ErrorIs(t, err, capture.ErrFrameRead)

	require.NoError(t, p.Close())
	assert.True(t, dev.closed)
	assert.True(t, det.closed)
}

func TestPipelineStep_DetectError(t *testing.T) {
	boom := errors.New("boom")
	p := NewPipeline(&fakeDevice{frames: 1}, &fakeDetector{err: boom}, ObjectStyle)

	frame := gocv.NewMat()
	defer frame.Close()

	_, err := p.Step(&frame)
	assert.ErrorIs(t, err, boom)
}

func TestStreamNext(t *testing.T) {
	dev := &fakeDevice{frames: 1}
	det := &fakeDetector{detections: []models.Detection{{Label: "person", Box: image.Rect(0, 0, 40, 40)}}}
	s := NewStream(NewPipeline(dev, det, ObjectStyle))

	frame, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 160, 120), frame.Image.Bounds())
	assert.Len(t, frame.Detections, 1)
	assert.False(t, frame.Captured.IsZero())

	// the annotated edge survives the BGR to RGBA conversion as green
	r, g, b, _ := frame.Image.At(20, 0).RGBA()
	assert.Equal(t, []uint32{0, 0xffff, 0}, []uint32{r, g, b})

	_, err = s.Next()
	assert.ErrorIs(t, err, capture.ErrFrameRead)

	require.NoError(t, s.Close())
	assert.True(t, dev.closed)
}
