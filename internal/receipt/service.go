package receipt

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/fairshare/billscan/internal/extract"
	"github.com/fairshare/billscan/internal/vision"
	"github.com/google/uuid"
)

// Extractor is the perception pipeline the service drives. It is satisfied
// by *extract.Pipeline and mocked in tests.
type Extractor interface {
	LocateCandidateRegions(imageData []byte) ([]vision.NormalizedRect, error)
	ScoreRegion(imageData []byte, region vision.NormalizedRect) (float64, []vision.RecognizedLine, error)
	ExtractReceipt(imageData []byte) (*extract.StructuredReceipt, error)
}

// IDGenerator generates unique IDs for receipts
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates random UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles receipt operations
type Service struct {
	db          DB
	extractor   Extractor
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, extractor Extractor, storage Storage) *Service {
	return &Service{
		db:          db,
		extractor:   extractor,
		storage:     storage,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, extractor Extractor, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		extractor:   extractor,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	reg := regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	base = reg.ReplaceAllString(base, "")

	reg = regexp.MustCompile(`\s+`)
	base = reg.ReplaceAllString(base, " ")

	base = strings.TrimSpace(base)

	// Phone-generated filenames can run very long
	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	if base == "" {
		base = "receipt"
	}

	return base + ext
}

// ProcessReceipt stores an uploaded capture, runs the full-page extraction
// over it, and persists the structured result.
func (s *Service) ProcessReceipt(filename string, data []byte, contentType string) (*Receipt, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	// Normalize the capture up front so an undecodable upload fails before
	// anything is written.
	frame, err := vision.DecodeFrame(data, contentType)
	if err != nil {
		return nil, fmt.Errorf("decoding capture: %w", err)
	}

	cleanFilename := sanitizeFilename(filename)

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, cleanFilename), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	structured, err := s.extractor.ExtractReceipt(frame.PNG)
	if err != nil {
		slog.Error("Failed to extract receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		// Clean up the saved file since extraction failed
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("extracting receipt: %w", err)
	}

	receipt := &Receipt{
		ID:                id,
		Items:             structured.Items,
		Subtotal:          *structured.Subtotal,
		VATPercentage:     structured.VATPercentage,
		ServicePercentage: structured.ServicePercentage,
		Total:             structured.Total,
		BoundingBoxes:     structured.BoundingBoxes,
		Filename:          savedPath,
		ContentType:       contentType,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.db.SaveReceipt(receipt); err != nil {
		// Clean up file if database save fails
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}

	return receipt, nil
}

// LocateRegions runs rectangle detection over a live frame and returns the
// candidate receipt regions, strongest first.
func (s *Service) LocateRegions(data []byte, contentType string) ([]vision.NormalizedRect, error) {
	frame, err := vision.DecodeFrame(data, contentType)
	if err != nil {
		return nil, fmt.Errorf("decoding frame: %w", err)
	}
	regions, err := s.extractor.LocateCandidateRegions(frame.PNG)
	if err != nil {
		return nil, fmt.Errorf("locating regions: %w", err)
	}
	return regions, nil
}

// ScoreRegion recognizes and scores one region of a frame.
func (s *Service) ScoreRegion(data []byte, contentType string, region vision.NormalizedRect) (float64, []vision.RecognizedLine, error) {
	frame, err := vision.DecodeFrame(data, contentType)
	if err != nil {
		return 0, nil, fmt.Errorf("decoding frame: %w", err)
	}
	confidence, lines, err := s.extractor.ScoreRegion(frame.PNG, region)
	if err != nil {
		return 0, nil, fmt.Errorf("scoring region: %w", err)
	}
	return confidence, lines, nil
}

// GetReceipt retrieves a receipt by ID
func (s *Service) GetReceipt(id string) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return receipt, nil
}

// ListReceipts returns all receipts
func (s *Service) ListReceipts() ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	return receipts, nil
}

// DeleteReceipt removes a receipt and its file
func (s *Service) DeleteReceipt(id string) error {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return fmt.Errorf("getting receipt for deletion: %w", err)
	}

	if err := s.storage.Delete(receipt.Filename); err != nil {
		// Log error but continue with database deletion
		slog.Warn("Failed to delete file", "filename", receipt.Filename, "error", err)
	}

	if err := s.db.DeleteReceipt(id); err != nil {
		return fmt.Errorf("deleting receipt from database: %w", err)
	}
	return nil
}

// GetReceiptFile retrieves the source image for a receipt
func (s *Service) GetReceiptFile(id string) ([]byte, string, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt: %w", err)
	}

	data, err := s.storage.Get(receipt.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}

	return data, receipt.ContentType, nil
}

// SplitReceipt computes each person's share of a stored receipt.
func (s *Service) SplitReceipt(id string, assignments map[string][]int) (*SplitResult, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}

	result, err := SplitBill(receipt, assignments)
	if err != nil {
		return nil, fmt.Errorf("splitting receipt: %w", err)
	}
	return result, nil
}
