package processing

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"objectcam/internal/config"
	"objectcam/internal/models"
)

const FrontalFaceCascade = "haarcascade_frontalface_default.xml"

// cascadeDirs are the places OpenCV packages usually install their bundled
// haarcascades, checked in order.
var cascadeDirs = []string{
	"haarcascades",
	"/usr/share/opencv4/haarcascades",
	"/usr/local/share/opencv4/haarcascades",
	"/opt/homebrew/share/opencv4/haarcascades",
	"/usr/share/opencv/haarcascades",
	"/usr/local/share/opencv/haarcascades",
}

// ResolveCascadePath returns explicit when set, otherwise the first bundled
// frontal-face cascade found on disk.
func ResolveCascadePath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("%w: %v", ErrModelLoad, err)
		}
		return explicit, nil
	}

	dirs := cascadeDirs
	if d := os.Getenv("OPENCV_DATA_DIR"); d != "" {
		dirs = append([]string{filepath.Join(d, "haarcascades"), d}, dirs...)
	}

	for _, dir := range dirs {
		p := filepath.Join(dir, FrontalFaceCascade)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("%w: %s not found in OpenCV data dirs", ErrModelLoad, FrontalFaceCascade)
}

// Cascade detects frontal faces with a Haar cascade on the grayscale frame.
type Cascade struct {
	classifier gocv.CascadeClassifier
	gray       gocv.Mat

	scale        float64
	minNeighbors int
	minSize      image.Point
}

func NewCascade(cfg config.CascadeConfig) (*Cascade, error) {
	path, err := ResolveCascadePath(cfg.Path)
	if err != nil {
		return nil, err
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("%w: %s", ErrModelLoad, path)
	}

	return &Cascade{
		classifier:   classifier,
		gray:         gocv.NewMat(),
		scale:        cfg.ScaleFactor,
		minNeighbors: cfg.MinNeighbors,
		minSize:      image.Pt(cfg.MinSize, cfg.MinSize),
	}, nil
}

func (c *Cascade) Detect(frame gocv.Mat) ([]models.Detection, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	if err := gocv.CvtColor(frame, &c.gray, gocv.ColorBGRToGray); err != nil {
		return nil, fmt.Errorf("convert to grayscale: %w", err)
	}

	rects := c.classifier.DetectMultiScaleWithParams(c.gray, c.scale, c.minNeighbors, 0, c.minSize, image.Point{})

	detections := make([]models.Detection, 0, len(rects))
	for _, r := range rects {
		detections = append(detections, models.Detection{
			Label:      models.FaceLabel,
			Confidence: 1,
			Box:        r,
		})
	}

	return detections, nil
}

func (c *Cascade) Close() error {
	c.gray.Close()
	return c.classifier.Close()
}
