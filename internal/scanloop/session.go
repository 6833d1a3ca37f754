// Package scanloop drives the interactive capture flow for live camera
// frames. A Session holds the policy state (how long a receipt has been
// steady in view) while the extraction pipeline itself stays stateless.
package scanloop

import (
	"fmt"
	"log/slog"

	"github.com/fairshare/billscan/internal/extract"
	"github.com/fairshare/billscan/internal/vision"
)

// State is the session's position in the capture flow.
type State string

const (
	StateIdle              State = "idle"
	StateSearching         State = "searching"
	StateCandidateDetected State = "candidate_detected"
	StateStableConfirmed   State = "stable_confirmed"
	StateProcessing        State = "processing"
	StatePreview           State = "preview"
)

const (
	// DefaultStableFrames is how many consecutive confident frames are
	// needed before capture triggers.
	DefaultStableFrames = 3
	// DefaultConfidenceThreshold is the minimum per-frame text confidence
	// for a frame to count toward stability.
	DefaultConfidenceThreshold = 0.6
)

// Session accumulates evidence across frames that a receipt is steady in
// view, then runs extraction exactly once. Not safe for concurrent use.
type Session struct {
	pipeline *extract.Pipeline

	stableFrames        int
	confidenceThreshold float64

	state      State
	streak     int
	lastRegion *vision.NormalizedRect
	lastScore  float64
	result     *extract.StructuredReceipt
}

// NewSession creates a session over the given pipeline with default
// stability settings.
func NewSession(pipeline *extract.Pipeline) *Session {
	return &Session{
		pipeline:            pipeline,
		stableFrames:        DefaultStableFrames,
		confidenceThreshold: DefaultConfidenceThreshold,
		state:               StateIdle,
	}
}

// NewSessionWithPolicy creates a session with explicit stability settings.
func NewSessionWithPolicy(pipeline *extract.Pipeline, stableFrames int, confidenceThreshold float64) *Session {
	s := NewSession(pipeline)
	if stableFrames > 0 {
		s.stableFrames = stableFrames
	}
	s.confidenceThreshold = confidenceThreshold
	return s
}

// State returns the session's current state.
func (s *Session) State() State {
	return s.state
}

// Confidence returns the score of the most recently observed frame.
func (s *Session) Confidence() float64 {
	return s.lastScore
}

// Region returns the candidate region from the most recently observed
// frame, or nil when none was found.
func (s *Session) Region() *vision.NormalizedRect {
	return s.lastRegion
}

// Result returns the extracted receipt once the session reached preview,
// nil before that.
func (s *Session) Result() *extract.StructuredReceipt {
	return s.result
}

// Observe feeds one camera frame to the session and advances its state.
// Frames with no receipt-shaped region reset the stability streak. Once
// enough consecutive frames score at or above the confidence threshold the
// session confirms stability, extracts from the confirming frame and moves
// to preview. Observe is a no-op after preview is reached; call Reset to
// start over.
func (s *Session) Observe(imageData []byte) (State, error) {
	switch s.state {
	case StateProcessing, StatePreview:
		return s.state, nil
	}

	s.state = StateSearching

	regions, err := s.pipeline.LocateCandidateRegions(imageData)
	if err != nil {
		return s.state, fmt.Errorf("locating candidate regions: %w", err)
	}
	if len(regions) == 0 {
		s.streak = 0
		s.lastRegion = nil
		s.lastScore = 0
		return s.state, nil
	}

	region := regions[0]
	s.lastRegion = &region
	s.state = StateCandidateDetected

	score, _, err := s.pipeline.ScoreRegion(imageData, region)
	if err != nil {
		return s.state, fmt.Errorf("scoring region: %w", err)
	}
	s.lastScore = score

	if score < s.confidenceThreshold {
		s.streak = 0
		return s.state, nil
	}

	s.streak++
	if s.streak < s.stableFrames {
		return s.state, nil
	}

	s.state = StateStableConfirmed
	slog.Info("Receipt stable, capturing", "confidence", score, "frames", s.streak)

	s.state = StateProcessing
	receipt, err := s.pipeline.ExtractReceipt(imageData)
	if err != nil {
		// Extraction failed on the confirming frame; go back to
		// searching so the next frame gets another shot.
		s.state = StateSearching
		s.streak = 0
		return s.state, fmt.Errorf("extracting receipt: %w", err)
	}

	s.result = receipt
	s.state = StatePreview
	return s.state, nil
}

// Reset returns the session to idle, discarding any result.
func (s *Session) Reset() {
	s.state = StateIdle
	s.streak = 0
	s.lastRegion = nil
	s.lastScore = 0
	s.result = nil
}
