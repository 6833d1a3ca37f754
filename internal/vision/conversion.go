package vision

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// Frame is a decoded, normalized camera frame or upload: PNG bytes plus the
// pixel dimensions every geometric conversion is performed against.
type Frame struct {
	PNG    []byte
	Width  int
	Height int
}

// DecodeFrame normalizes an uploaded image or PDF into a Frame. JPEG, PNG,
// GIF, HEIC/HEIF and single-page PDF inputs are accepted; anything that
// cannot be decoded reports ErrInvalidImage.
func DecodeFrame(data []byte, contentType string) (*Frame, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if mimeType == "" {
		mimeType = "image/jpeg" // default
	}

	var img image.Image
	var err error

	switch {
	case mimeType == "application/pdf":
		img, err = pdfToImage(data)
	case isHEICFormat(data) || isHEICMimeType(mimeType):
		img, err = heic.Decode(bytes.NewReader(data))
		if err != nil {
			err = fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
	default:
		img, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			err = fmt.Errorf("decoding image: %w", err)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	bounds := img.Bounds()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}

	return &Frame{
		PNG:    buf.Bytes(),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

// ImageRect converts a normalized rectangle to pixel coordinates against the
// frame's dimensions.
func (f *Frame) ImageRect(r NormalizedRect) image.Rectangle {
	x0 := int(r.X * float64(f.Width))
	y0 := int(r.Y * float64(f.Height))
	x1 := int((r.X + r.W) * float64(f.Width))
	y1 := int((r.Y + r.H) * float64(f.Height))
	return image.Rect(x0, y0, x1, y1)
}

// NormalizedRectFor converts a pixel rectangle back to unit coordinates.
func (f *Frame) NormalizedRectFor(r image.Rectangle) NormalizedRect {
	return NormalizedRect{
		X: float64(r.Min.X) / float64(f.Width),
		Y: float64(r.Min.Y) / float64(f.Height),
		W: float64(r.Dx()) / float64(f.Width),
		H: float64(r.Dy()) / float64(f.Height),
	}
}

// Crop returns the PNG bytes of the region of interest, used by recognizers
// that cannot restrict their search area natively.
func (f *Frame) Crop(roi NormalizedRect) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(f.PNG))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	rect := f.ImageRect(roi).Intersect(img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("empty region of interest")
	}

	type subImager interface {
		SubImage(image.Rectangle) image.Image
	}
	sub, ok := img.(subImager)
	if !ok {
		return nil, fmt.Errorf("image type does not support cropping")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, sub.SubImage(rect)); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// pdfToImage renders the first page of a PDF (most receipts are single page)
func pdfToImage(pdfData []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return img, nil
}

// isHEICFormat checks if the image data is in HEIC/HEIF format
// HEIC files typically start with specific magic bytes
func isHEICFormat(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	// ftyp box at offset 4 with a HEIC-related brand
	if string(data[4:8]) == "ftyp" {
		brand := string(data[8:12])
		if brand == "heic" || brand == "heif" || brand == "mif1" || brand == "msf1" {
			return true
		}
	}
	return false
}

// isHEICMimeType checks if the MIME type indicates HEIC/HEIF format
func isHEICMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return mimeType == "image/heic" || mimeType == "image/heif" ||
		strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}
