package processing

import (
	"fmt"
	"image"
	"log/slog"
	"os"

	"gocv.io/x/gocv"

	"objectcam/internal/config"
	"objectcam/internal/models"
)

// YOLO runs a darknet YOLOv3 network through the OpenCV DNN module.
type YOLO struct {
	net          gocv.Net
	outputLayers []string
	classes      []string

	inputSize   image.Point
	scaleFactor float64
	nms         float32
	confidence  func() float32
}

func NewYOLO(cfg *config.Config) (*YOLO, error) {
	yc := cfg.YOLOSettings()

	for _, p := range []string{yc.WeightsPath, yc.ConfigPath} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
		}
	}

	classes, err := LoadClassNamesFile(yc.NamesPath)
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNet(yc.WeightsPath, yc.ConfigPath)
	if net.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrModelLoad, yc.WeightsPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, fmt.Errorf("%w: failed to set preferable backend or target", ErrModelLoad)
	}

	y := &YOLO{
		net:          net,
		outputLayers: outputLayers(net),
		classes:      classes,
		inputSize:    image.Pt(yc.InputSize, yc.InputSize),
		scaleFactor:  yc.ScaleFactor,
		nms:          yc.NMSThreshold,
		confidence:   cfg.GetConfidence,
	}

	slog.Info("yolo network loaded", "weights", yc.WeightsPath, "classes", len(classes), "outputs", y.outputLayers)

	return y, nil
}

func (y *YOLO) Detect(frame gocv.Mat) ([]models.Detection, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	blob := gocv.BlobFromImage(frame, y.scaleFactor, y.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	y.net.SetInput(blob, "")

	outs := y.net.ForwardLayers(y.outputLayers)
	defer func() {
		for i := range outs {
			outs[i].Close()
		}
	}()

	var rows [][]float32
	for _, out := range outs {
		r, err := matRows(out)
		if err != nil {
			return nil, err
		}
		rows = append(rows, r...)
	}

	threshold := y.confidence()
	boxes, confidences, classIDs := decodeYOLO(rows, frame.Cols(), frame.Rows(), threshold)
	if len(boxes) == 0 {
		return nil, nil
	}

	indices := gocv.NMSBoxes(boxes, confidences, threshold, y.nms)

	detections := make([]models.Detection, 0, len(indices))
	for _, i := range indices {
		detections = append(detections, models.Detection{
			Label:      className(y.classes, classIDs[i]),
			Confidence: confidences[i],
			Box:        boxes[i],
		})
	}

	return detections, nil
}

func (y *YOLO) Close() error {
	return y.net.Close()
}

// decodeYOLO turns raw YOLOv3 rows [cx, cy, w, h, objectness, class scores...]
// (normalized to the input) into pixel boxes for a width x height frame,
// keeping rows whose best class score is above threshold.
func decodeYOLO(rows [][]float32, width, height int, threshold float32) ([]image.Rectangle, []float32, []int) {
	var (
		boxes       []image.Rectangle
		confidences []float32
		classIDs    []int
	)

	fw, fh := float32(width), float32(height)

	for _, det := range rows {
		if len(det) <= 5 {
			continue
		}

		classID, confidence := argmax(det[5:])
		if confidence <= threshold {
			continue
		}

		centerX := int(det[0] * fw)
		centerY := int(det[1] * fh)
		w := int(det[2] * fw)
		h := int(det[3] * fh)

		x := int(float32(centerX) - float32(w)/2)
		y := int(float32(centerY) - float32(h)/2)

		boxes = append(boxes, image.Rect(x, y, x+w, y+h))
		confidences = append(confidences, confidence)
		classIDs = append(classIDs, classID)
	}

	return boxes, confidences, classIDs
}

func argmax(scores []float32) (int, float32) {
	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}
	return best, scores[best]
}

// matRows copies a 2D float output blob into per-detection rows.
func matRows(m gocv.Mat) ([][]float32, error) {
	data, err := m.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output blob: %w", err)
	}

	rows, cols := m.Rows(), m.Cols()
	if rows*cols > len(data) {
		return nil, fmt.Errorf("output blob %dx%d larger than its data (%d)", rows, cols, len(data))
	}

	out := make([][]float32, rows)
	for i := 0; i < rows; i++ {
		row := make([]float32, cols)
		copy(row, data[i*cols:(i+1)*cols])
		out[i] = row
	}

	return out, nil
}

func outputLayers(net gocv.Net) []string {
	layerNames := net.GetLayerNames()

	var names []string
	for _, i := range net.GetUnconnectedOutLayers() {
		if i-1 >= 0 && i-1 < len(layerNames) {
			names = append(names, layerNames[i-1])
		}
	}

	return names
}
