package processing

import (
	"errors"
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"objectcam/internal/config"
	"objectcam/internal/models"
	stream "objectcam/processing/capture"
	"objectcam/processing/session"
)

// Pipeline is the per-frame step: read, detect, draw.
type Pipeline struct {
	device   stream.Device
	detector Detector
	style    Style
}

func NewPipeline(device stream.Device, detector Detector, style Style) *Pipeline {
	return &Pipeline{
		device:   device,
		detector: detector,
		style:    style,
	}
}

// Step reads the next frame into dst and draws the detections on it.
func (p *Pipeline) Step(dst *gocv.Mat) ([]models.Detection, error) {
	if err := stream.ReadFrame(p.device, dst); err != nil {
		return nil, err
	}

	detections, err := p.detector.Detect(*dst)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}

	if err := Annotate(dst, detections, p.style); err != nil {
		return detections, err
	}

	return detections, nil
}

// Close releases the camera first, then the detector.
func (p *Pipeline) Close() error {
	return errors.Join(p.device.Close(), p.detector.Close())
}

// Stream adapts a Pipeline to the UI session, converting BGR frames to
// RGBA images.
type Stream struct {
	pipeline *Pipeline
	frame    gocv.Mat
}

func NewStream(p *Pipeline) *Stream {
	return &Stream{
		pipeline: p,
		frame:    gocv.NewMat(),
	}
}

func (s *Stream) Next() (session.Frame, error) {
	captured := time.Now()
	detections, err := s.pipeline.Step(&s.frame)
	if err != nil {
		return session.Frame{}, err
	}

	img, err := s.frame.ToImage()
	if err != nil {
		return session.Frame{}, fmt.Errorf("convert frame: %w", err)
	}

	return session.Frame{
		Image:      img,
		Detections: detections,
		Captured:   captured,
	}, nil
}

func (s *Stream) Close() error {
	err := s.pipeline.Close()
	s.frame.Close()
	return err
}

// Opener returns a session opener that acquires the configured camera and
// detector each time the camera is opened.
func Opener(cfg *config.Config) session.Opener {
	return func() (session.Stream, error) {
		device, err := stream.NewDevice(cfg)
		if err != nil {
			return nil, err
		}

		det, err := New(cfg)
		if err != nil {
			device.Close()
			return nil, err
		}

		p := NewPipeline(device, det, StyleFor(cfg.GetDetector()))
		return NewStream(p), nil
	}
}
