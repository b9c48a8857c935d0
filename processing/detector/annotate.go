package processing

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"objectcam/internal/config"
	"objectcam/internal/models"
)

type Style struct {
	Color         color.RGBA
	Thickness     int
	ShowLabel     bool
	FontScale     float64
	TextThickness int
}

var (
	ObjectStyle = Style{
		Color:         color.RGBA{G: 255},
		Thickness:     2,
		ShowLabel:     true,
		FontScale:     0.5,
		TextThickness: 2,
	}

	FaceStyle = Style{
		Color:     color.RGBA{B: 255},
		Thickness: 2,
	}
)

func StyleFor(kind config.DetectorKind) Style {
	if kind == config.DetectorCascade {
		return FaceStyle
	}
	return ObjectStyle
}

// Annotate draws each detection box, and its label when the style asks for
// one, onto img in place.
func Annotate(img *gocv.Mat, detections []models.Detection, style Style) error {
	for _, d := range detections {
		if err := gocv.Rectangle(img, d.Box, style.Color, style.Thickness); err != nil {
			return fmt.Errorf("draw rectangle: %w", err)
		}

		if !style.ShowLabel {
			continue
		}

		pt := image.Pt(d.Box.Min.X, d.Box.Min.Y-10)
		if err := gocv.PutText(img, d.Label, pt, gocv.FontHersheySimplex, style.FontScale, style.Color, style.TextThickness); err != nil {
			return fmt.Errorf("draw label: %w", err)
		}
	}

	return nil
}
