package extract

import (
	"image"

	"github.com/fairshare/billscan/internal/vision"
)

// Receipt silhouette thresholds. The detector is asked for looser limits
// up front (vision.DetectMinAspectRatio and friends); the aspect check here
// is stricter and is the binding constraint.
const (
	receiptMinAspectRatio = 1.4
	receiptMinSizeRatio   = 0.1
)

// FilterRectangles keeps the candidate rectangles that plausibly bound a
// receipt: tall (height/width >= 1.4 in image space) and no smaller than 10%
// of the image width in either dimension. Candidates are judged
// independently and survivors keep the detector's ordering.
func FilterRectangles(candidates []vision.RectObservation, imageWidth, imageHeight int) []vision.RectObservation {
	minSize := float64(imageWidth) * receiptMinSizeRatio

	kept := make([]vision.RectObservation, 0, len(candidates))
	for _, candidate := range candidates {
		rect := imageRect(candidate.Box, imageWidth, imageHeight)
		w := float64(rect.Dx())
		h := float64(rect.Dy())
		if w <= 0 || h/w < receiptMinAspectRatio {
			continue
		}
		// Both dimensions are held against the image width.
		if w < minSize || h < minSize {
			continue
		}
		kept = append(kept, candidate)
	}
	return kept
}

func imageRect(r vision.NormalizedRect, width, height int) image.Rectangle {
	x0 := int(r.X * float64(width))
	y0 := int(r.Y * float64(height))
	x1 := int((r.X + r.W) * float64(width))
	y1 := int((r.Y + r.H) * float64(height))
	return image.Rect(x0, y0, x1, y1)
}
