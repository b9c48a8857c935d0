package capture

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"objectcam/internal/config"
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
	src := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 4, 4, gocv.MatTypeCV8UC3)
	defer src.Close()
	src.CopyTo(m)
	return true
}

func (f *fakeDevice) IsOpened() bool { return !f.closed }
func (f *fakeDevice) Close() error   { f.closed = true; return nil }

func TestReadFrame(t *testing.T) {
	dev := &fakeDevice{frames: 1}
	mat := gocv.NewMat()
	defer mat.Close()

	require.NoError(t, ReadFrame(dev, &mat))
	assert.Equal(t, 4, mat.Rows())

	assert.ErrorIs(t, ReadFrame(dev, &mat), ErrFrameRead)
}

func TestNewDevice_MissingFile(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Camera.File = filepath.Join(t.TempDir(), "missing.mp4")

	dev, err := NewDevice(cfg)

	assert.Nil(t, dev)
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
}
