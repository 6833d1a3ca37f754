package vision

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSON strips markdown fences and surrounding prose from an LLM
// response, leaving just the outermost JSON value.
func extractJSON(text, open, shut string) (string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, open)
	if startIdx == -1 {
		return "", fmt.Errorf("no JSON found in response")
	}
	endIdx := strings.LastIndex(text, shut)
	if endIdx == -1 || endIdx < startIdx {
		return "", fmt.Errorf("invalid JSON in response")
	}
	return text[startIdx : endIdx+1], nil
}

// recognizedLineJSON mirrors the line objects the vision prompt asks for.
type recognizedLineJSON struct {
	Text       string    `json:"text"`
	Box        []float64 `json:"box"` // [x, y, w, h] normalized, top-left origin
	Confidence float64   `json:"confidence"`
}

// parseRecognizedLines parses the JSON array of text lines returned by a
// vision model. Lines with malformed boxes are dropped rather than failing
// the whole response.
func parseRecognizedLines(text string) ([]RecognizedLine, error) {
	body, err := extractJSON(text, "[", "]")
	if err != nil {
		return nil, err
	}

	var raw []recognizedLineJSON
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	lines := make([]RecognizedLine, 0, len(raw))
	for _, l := range raw {
		if len(l.Box) != 4 || strings.TrimSpace(l.Text) == "" {
			continue
		}
		lines = append(lines, RecognizedLine{
			Text:        l.Text,
			BoundingBox: clampBox(l.Box),
			Confidence:  l.Confidence,
		})
	}
	return lines, nil
}

type rectObservationJSON struct {
	Box        []float64 `json:"box"`
	Confidence float64   `json:"confidence"`
}

// parseRectObservations parses the JSON array of candidate rectangles
// returned by a vision model, preserving the model's ordering.
func parseRectObservations(text string) ([]RectObservation, error) {
	body, err := extractJSON(text, "[", "]")
	if err != nil {
		return nil, err
	}

	var raw []rectObservationJSON
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	rects := make([]RectObservation, 0, len(raw))
	for _, r := range raw {
		if len(r.Box) != 4 {
			continue
		}
		rects = append(rects, RectObservation{
			Box:        clampBox(r.Box),
			Confidence: r.Confidence,
		})
	}
	return rects, nil
}

// clampBox clamps a model-reported [x, y, w, h] box into the unit square.
// The origin is clamped first and the extent is then limited to what fits,
// keeping 0 <= x <= x+w <= 1 and 0 <= y <= y+h <= 1.
func clampBox(box []float64) NormalizedRect {
	x := clampUnit(box[0])
	y := clampUnit(box[1])
	return NormalizedRect{
		X: x,
		Y: y,
		W: clampSpan(box[2], x),
		H: clampSpan(box[3], y),
	}
}

func clampSpan(v, origin float64) float64 {
	if v < 0 {
		return 0
	}
	if origin+v > 1 {
		return 1 - origin
	}
	return v
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
