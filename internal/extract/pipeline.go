package extract

import (
	"fmt"

	"github.com/fairshare/billscan/internal/vision"
)

// Pipeline is the perception-to-structure entry point. It holds only the
// injected recognition collaborators and keeps no state across calls, so a
// single Pipeline is safe to share between concurrent callers working on
// distinct images. It issues exactly one collaborator request per call and
// neither retries nor times out; bounding latency is the caller's job.
type Pipeline struct {
	detector   vision.RectangleDetector
	recognizer vision.TextRecognizer
}

// NewPipeline creates a Pipeline over the given collaborators.
func NewPipeline(detector vision.RectangleDetector, recognizer vision.TextRecognizer) *Pipeline {
	return &Pipeline{
		detector:   detector,
		recognizer: recognizer,
	}
}

// LocateCandidateRegions finds rectangles in a camera frame that plausibly
// bound a receipt, in the detector's confidence order.
func (p *Pipeline) LocateCandidateRegions(imageData []byte) ([]vision.NormalizedRect, error) {
	frame, err := vision.DecodeFrame(imageData, "image/png")
	if err != nil {
		return nil, err
	}

	candidates, err := p.detector.DetectRectangles(frame.PNG)
	if err != nil {
		return nil, fmt.Errorf("detecting rectangles: %w", err)
	}

	filtered := FilterRectangles(candidates, frame.Width, frame.Height)
	regions := make([]vision.NormalizedRect, len(filtered))
	for i, candidate := range filtered {
		regions[i] = candidate.Box
	}
	return regions, nil
}

// ScoreRegion recognizes the text inside one region of a frame and scores
// how receipt-like it reads, returning the recognized lines alongside so the
// caller can reuse them.
func (p *Pipeline) ScoreRegion(imageData []byte, region vision.NormalizedRect) (float64, []vision.RecognizedLine, error) {
	frame, err := vision.DecodeFrame(imageData, "image/png")
	if err != nil {
		return 0, nil, err
	}

	lines, err := p.recognizer.RecognizeText(frame.PNG, &region)
	if err != nil {
		return 0, nil, fmt.Errorf("recognizing text: %w", err)
	}

	return ScoreLines(lines), lines, nil
}

// ExtractReceipt runs a full-page recognition pass over the image and parses
// the result into a structured receipt. Outputs are freshly allocated; two
// calls over the same image and the same collaborator responses produce
// identical receipts.
func (p *Pipeline) ExtractReceipt(imageData []byte) (*StructuredReceipt, error) {
	frame, err := vision.DecodeFrame(imageData, "image/png")
	if err != nil {
		return nil, err
	}

	lines, err := p.recognizer.RecognizeText(frame.PNG, nil)
	if err != nil {
		return nil, fmt.Errorf("recognizing text: %w", err)
	}

	return ParseLines(lines, frame.Width, frame.Height), nil
}
