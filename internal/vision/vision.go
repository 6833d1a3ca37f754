package vision

import "errors"

// Errors reported by recognition collaborators. Anything else they return is
// wrapped around one of these two so callers can branch on the kind.
var (
	// ErrInvalidImage means the supplied image could not be decoded.
	ErrInvalidImage = errors.New("invalid image")
	// ErrRecognitionFailed means the recognition backend reported a failure.
	ErrRecognitionFailed = errors.New("recognition failed")
)

// NormalizedRect is an axis-aligned rectangle in unit coordinates with a
// top-left origin: 0 <= X <= X+W <= 1 and 0 <= Y <= Y+H <= 1.
type NormalizedRect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// MidX returns the horizontal midpoint of the rectangle.
func (r NormalizedRect) MidX() float64 {
	return r.X + r.W/2
}

// Contains reports whether other lies entirely inside r.
func (r NormalizedRect) Contains(other NormalizedRect) bool {
	return other.X >= r.X && other.Y >= r.Y &&
		other.X+other.W <= r.X+r.W && other.Y+other.H <= r.Y+r.H
}

// RecognizedLine is one line of text returned by a text recognizer.
type RecognizedLine struct {
	Text        string         `json:"text"`
	BoundingBox NormalizedRect `json:"bounding_box"`
	Confidence  float64        `json:"confidence"`
}

// RectObservation is a candidate rectangle returned by a rectangle detector,
// in the detector's own confidence order.
type RectObservation struct {
	Box        NormalizedRect `json:"box"`
	Confidence float64        `json:"confidence"`
}

// Detector request thresholds. These are hints passed to the rectangle
// detection backend; the geometry filter applies its own stricter aspect
// check afterwards.
const (
	DetectMinAspectRatio = 0.2
	DetectMaxAspectRatio = 0.98
	DetectMinSize        = 0.1
	DetectMinConfidence  = 0.5
)

// TextRecognizer recognizes text lines in an image. A nil roi means the
// whole image; a non-nil roi restricts recognition to that region and the
// returned bounding boxes stay in whole-image coordinates.
type TextRecognizer interface {
	RecognizeText(imageData []byte, roi *NormalizedRect) ([]RecognizedLine, error)
	// Close closes the recognizer and releases resources
	Close() error
}

// RectangleDetector proposes rectangles that may bound a document.
type RectangleDetector interface {
	DetectRectangles(imageData []byte) ([]RectObservation, error)
	// Close closes the detector and releases resources
	Close() error
}
