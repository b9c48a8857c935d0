package models

import (
	"fmt"
	"image"
)

const FaceLabel = "face"

// Detection is one box found on a frame, in frame pixel coordinates.
type Detection struct {
	Label      string
	Confidence float32
	Box        image.Rectangle
}

func (d Detection) String() string {
	return fmt.Sprintf("%s %.2f %v", d.Label, d.Confidence, d.Box)
}

// DetectionResult is the wire form produced by a remote detection server.
// Box holds normalized [y1, x1, y2, x2].
type DetectionResult struct {
	Label      string    `json:"label"`
	Confidence float32   `json:"confidence"`
	Box        []float32 `json:"box"`
}

// Scale converts a normalized result to pixel coordinates of a w x h frame.
func (r DetectionResult) Scale(w, h int) (Detection, bool) {
	if len(r.Box) != 4 {
		return Detection{}, false
	}

	fw, fh := float32(w), float32(h)

	y1 := int(r.Box[0] * fh)
	x1 := int(r.Box[1] * fw)
	y2 := int(r.Box[2] * fh)
	x2 := int(r.Box[3] * fw)

	return Detection{
		Label:      r.Label,
		Confidence: r.Confidence,
		Box:        image.Rect(x1, y1, x2, y2),
	}, true
}
