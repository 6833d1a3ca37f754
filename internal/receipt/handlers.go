package receipt

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fairshare/billscan/internal/vision"
)

// maxFormSize bounds uploads at 50MB to handle high-resolution phone photos
const maxFormSize = int64(50 << 20)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// jsonError writes a JSON error body with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// readUpload pulls the "file" part out of a multipart form and returns its
// data, original filename and content type.
func readUpload(r *http.Request) ([]byte, string, string, error) {
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		if err.Error() == "http: request body too large" {
			return nil, "", "", errors.New("file is too large, maximum size is 50MB")
		}
		return nil, "", "", errors.New("error parsing form")
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", "", errors.New("no file provided")
	}
	defer f.Close()

	if header.Size > maxFormSize {
		return nil, "", "", errors.New("file is too large, maximum size is 50MB")
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", "", errors.New("error reading file")
	}

	return data, header.Filename, uploadContentType(header), nil
}

// uploadContentType reads the part's content type, falling back to the file
// extension for clients that omit it.
func uploadContentType(header *multipart.FileHeader) string {
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		switch strings.ToLower(filepath.Ext(header.Filename)) {
		case ".jpg", ".jpeg":
			contentType = "image/jpeg"
		case ".png":
			contentType = "image/png"
		case ".pdf":
			contentType = "application/pdf"
		case ".heic":
			contentType = "image/heic"
		case ".heif":
			contentType = "image/heif"
		default:
			contentType = "application/octet-stream"
		}
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// handleListReceipts returns a list of all receipts
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.service.ListReceipts()
	if err != nil {
		slog.Error("Error listing receipts", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(receipts); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleUploadReceipt handles receipt upload and extraction
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	data, filename, contentType, err := readUpload(r)
	if err != nil {
		slog.Error("Error reading upload", "error", err)
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	receipt, err := s.service.ProcessReceipt(filename, data, contentType)
	if err != nil {
		slog.Error("Error processing receipt", "filename", filename, "error", err)
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(receipt); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleGetReceipt returns a single receipt
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Receipt ID required", http.StatusBadRequest)
		return
	}
	receipt, err := s.service.GetReceipt(id)
	if err != nil {
		corsError(w, "Receipt not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(receipt); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleGetReceiptFile returns the source image for a receipt
func (s *Server) handleGetReceiptFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Receipt ID required", http.StatusBadRequest)
		return
	}
	data, contentType, err := s.service.GetReceiptFile(id)
	if err != nil {
		corsError(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteReceipt deletes a receipt
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Receipt ID required", http.StatusBadRequest)
		return
	}
	if err := s.service.DeleteReceipt(id); err != nil {
		corsError(w, "Error deleting receipt", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleSplitReceipt computes per-person shares of a stored receipt
func (s *Server) handleSplitReceipt(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Receipt ID required", http.StatusBadRequest)
		return
	}

	var req struct {
		Assignments map[string][]int `json:"assignments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := s.service.SplitReceipt(id, req.Assignments)
	if err != nil {
		slog.Error("Error splitting receipt", "id", id, "error", err)
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleLocateRegions runs rectangle detection over an uploaded frame
func (s *Server) handleLocateRegions(w http.ResponseWriter, r *http.Request) {
	data, filename, contentType, err := readUpload(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	regions, err := s.service.LocateRegions(data, contentType)
	if err != nil {
		slog.Error("Error locating regions", "filename", filename, "error", err)
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"regions": regions,
	}); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleScoreRegion recognizes and scores one region of an uploaded frame.
// The region arrives as x/y/w/h form fields in unit coordinates.
func (s *Server) handleScoreRegion(w http.ResponseWriter, r *http.Request) {
	data, filename, contentType, err := readUpload(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	region, err := regionFromForm(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	confidence, lines, err := s.service.ScoreRegion(data, contentType, region)
	if err != nil {
		slog.Error("Error scoring region", "filename", filename, "error", err)
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"confidence": confidence,
		"lines":      lines,
	}); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func regionFromForm(r *http.Request) (vision.NormalizedRect, error) {
	var region vision.NormalizedRect
	for _, field := range []struct {
		name string
		dst  *float64
	}{
		{"x", &region.X},
		{"y", &region.Y},
		{"w", &region.W},
		{"h", &region.H},
	} {
		value, err := strconv.ParseFloat(r.FormValue(field.name), 64)
		if err != nil {
			return vision.NormalizedRect{}, errors.New("region fields x, y, w, h are required")
		}
		*field.dst = value
	}
	unit := vision.NormalizedRect{W: 1, H: 1}
	if region.W <= 0 || region.H <= 0 || !unit.Contains(region) {
		return vision.NormalizedRect{}, errors.New("region must be a sub-rectangle of the unit square")
	}
	return region, nil
}
