package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RemoteDetector implements RectangleDetector against a sidecar detection
// service speaking a small JSON protocol: POST /api/detect with the base64
// PNG and thresholds, receive candidate rectangles in confidence order.
type RemoteDetector struct {
	baseURL string
	client  *http.Client
}

// NewRemoteDetector creates a detector client for the given base URL.
func NewRemoteDetector(baseURL string) (*RemoteDetector, error) {
	if baseURL == "" {
		baseURL = "http://localhost:9470"
	}
	return &RemoteDetector{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// detectRequest is the request body for the detection service
type detectRequest struct {
	Image          string  `json:"image"` // base64 PNG
	MinAspectRatio float64 `json:"min_aspect_ratio"`
	MaxAspectRatio float64 `json:"max_aspect_ratio"`
	MinSize        float64 `json:"min_size"`
	MinConfidence  float64 `json:"min_confidence"`
}

// detectResponse is the response from the detection service
type detectResponse struct {
	Rectangles []RectObservation `json:"rectangles"`
}

// DetectRectangles posts the image to the detection service and returns its
// candidates in the order the service ranked them.
func (d *RemoteDetector) DetectRectangles(imageData []byte) ([]RectObservation, error) {
	frame, err := DecodeFrame(imageData, "image/png")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reqBody := detectRequest{
		Image:          base64.StdEncoding.EncodeToString(frame.PNG),
		MinAspectRatio: DetectMinAspectRatio,
		MaxAspectRatio: DetectMaxAspectRatio,
		MinSize:        DetectMinSize,
		MinConfidence:  DetectMinConfidence,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/api/detect", d.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: calling detector API: %v", ErrRecognitionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: detector API error (status %d): %s", ErrRecognitionFailed, resp.StatusCode, string(body))
	}

	var detectResp detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&detectResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrRecognitionFailed, err)
	}

	return detectResp.Rectangles, nil
}

// Close closes the detector client (no-op for HTTP client)
func (d *RemoteDetector) Close() error {
	return nil
}
