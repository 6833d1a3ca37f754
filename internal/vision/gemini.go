package vision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// recognizeTextPrompt asks the vision model for every text line with its
// normalized bounding box. The box format matches NormalizedRect.
const recognizeTextPrompt = `You are a text recognition engine. Read every line of text in the image.

Return ONLY a valid JSON array, one object per text line, top to bottom:
[
  {"text": "the exact text of the line", "box": [x, y, w, h], "confidence": 0.95}
]

Important:
- box values are normalized to [0,1] with origin at the TOP-LEFT of the image: x and y locate the top-left corner of the line, w and h are its width and height
- confidence is your certainty in the transcription, between 0 and 1
- report lines in reading order, top to bottom
- transcribe text exactly as printed, including numbers and punctuation
- do not merge separate lines
- do not include any text before or after the JSON
- do not use markdown code blocks`

// detectRectanglesPrompt asks the vision model for document-like rectangles.
const detectRectanglesPrompt = `You are a rectangle detection engine. Find rectangular document outlines in the image (paper receipts, tickets, invoices).

Return ONLY a valid JSON array, strongest candidate first:
[
  {"box": [x, y, w, h], "confidence": 0.9}
]

Important:
- box values are normalized to [0,1] with origin at the TOP-LEFT of the image
- only report rectangles with aspect ratio (width/height) between %.2f and %.2f
- only report rectangles whose smaller dimension is at least %.2f of the image
- only report rectangles you are at least %.2f confident about
- return [] if no document outline is visible
- do not include any text before or after the JSON
- do not use markdown code blocks`

// Gemini implements TextRecognizer and RectangleDetector using Google Gemini.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini vision backend.
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// RecognizeText reads text lines from the image. A non-nil roi crops the
// frame before sending it to the model, and the returned boxes are mapped
// back into whole-image coordinates.
func (g *Gemini) RecognizeText(imageData []byte, roi *NormalizedRect) ([]RecognizedLine, error) {
	frame, err := DecodeFrame(imageData, "image/png")
	if err != nil {
		return nil, err
	}

	sendData := frame.PNG
	if roi != nil {
		sendData, err = frame.Crop(*roi)
		if err != nil {
			return nil, fmt.Errorf("cropping region of interest: %w", err)
		}
	}

	text, err := g.generate(sendData, recognizeTextPrompt)
	if err != nil {
		return nil, err
	}

	lines, err := parseRecognizedLines(text)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing recognized lines: %v", ErrRecognitionFailed, err)
	}

	if roi != nil {
		for i := range lines {
			lines[i].BoundingBox = remapFromROI(lines[i].BoundingBox, *roi)
		}
	}
	return lines, nil
}

// DetectRectangles proposes candidate document rectangles in the image.
func (g *Gemini) DetectRectangles(imageData []byte) ([]RectObservation, error) {
	frame, err := DecodeFrame(imageData, "image/png")
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(detectRectanglesPrompt,
		DetectMinAspectRatio, DetectMaxAspectRatio, DetectMinSize, DetectMinConfidence)

	text, err := g.generate(frame.PNG, prompt)
	if err != nil {
		return nil, err
	}

	rects, err := parseRectObservations(text)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing rectangles: %v", ErrRecognitionFailed, err)
	}
	return rects, nil
}

// generate sends one image plus prompt and returns the concatenated text parts
func (g *Gemini) generate(pngData []byte, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	parts := []genai.Part{
		genai.ImageData("png", pngData),
		genai.Text(prompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("%w: generating content: %v", ErrRecognitionFailed, err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no response from gemini", ErrRecognitionFailed)
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}
	return responseText.String(), nil
}

// remapFromROI converts a box reported against the cropped region back into
// whole-image coordinates.
func remapFromROI(box NormalizedRect, roi NormalizedRect) NormalizedRect {
	return NormalizedRect{
		X: roi.X + box.X*roi.W,
		Y: roi.Y + box.Y*roi.H,
		W: box.W * roi.W,
		H: box.H * roi.H,
	}
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
