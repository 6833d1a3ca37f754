package vision

import (
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract implements TextRecognizer using a local Tesseract install via
// gosseract. It needs no network, which makes it the default for self-hosted
// deployments; recognition quality on crumpled receipts is below the vision
// model backends.
type Tesseract struct {
	language string
}

// NewTesseract creates a new local Tesseract recognizer.
func NewTesseract(language string) (*Tesseract, error) {
	if language == "" {
		language = "eng"
	}
	return &Tesseract{language: language}, nil
}

// RecognizeText runs line-level OCR over the image. Tesseract cannot restrict
// its search area natively, so a region of interest is realized by cropping
// the frame first and mapping boxes back to whole-image coordinates.
func (t *Tesseract) RecognizeText(imageData []byte, roi *NormalizedRect) ([]RecognizedLine, error) {
	frame, err := DecodeFrame(imageData, "image/png")
	if err != nil {
		return nil, err
	}

	ocrData := frame.PNG
	ocrFrame := frame
	if roi != nil {
		ocrData, err = frame.Crop(*roi)
		if err != nil {
			return nil, fmt.Errorf("cropping region of interest: %w", err)
		}
		ocrFrame, err = DecodeFrame(ocrData, "image/png")
		if err != nil {
			return nil, err
		}
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.language); err != nil {
		return nil, fmt.Errorf("%w: setting language: %v", ErrRecognitionFailed, err)
	}
	if err := client.SetImageFromBytes(ocrData); err != nil {
		return nil, fmt.Errorf("%w: setting image: %v", ErrRecognitionFailed, err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("%w: extracting text lines: %v", ErrRecognitionFailed, err)
	}

	lines := make([]RecognizedLine, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		rect := ocrFrame.NormalizedRectFor(box.Box)
		if roi != nil {
			rect = remapFromROI(rect, *roi)
		}
		lines = append(lines, RecognizedLine{
			Text:        box.Word,
			BoundingBox: rect,
			Confidence:  box.Confidence / 100, // tesseract reports 0-100
		})
	}
	return lines, nil
}

// Close closes the recognizer (gosseract clients are per-call)
func (t *Tesseract) Close() error {
	return nil
}
