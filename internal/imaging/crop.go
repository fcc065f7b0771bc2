package imaging

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// DefaultJPEGQuality is the quality used for crop files.
const DefaultJPEGQuality = 95

// CropFileMode is the permission of written crop files.
const CropFileMode os.FileMode = 0644

// CropBox extracts an axis-aligned rectangle from an image.
//
// Parameters:
//   - img: Source image
//   - x1, y1: Top-left corner (inclusive)
//   - x2, y2: Bottom-right corner (exclusive)
//
// Returns:
//   - *image.NRGBA: The cropped region with its origin at (0,0).
//   - error: Non-nil if the rectangle is empty.
//
// The rectangle is clipped to the image bounds, so a box that overhangs the
// photo edge yields the visible part only.
//
// # Errors
//
//   - Returns error if x2 <= x1 or y2 <= y1
//   - Returns error if the rectangle lies entirely outside the image
func CropBox(img image.Image, x1, y1, x2, y2 int) (*image.NRGBA, error) {
	if x2 <= x1 || y2 <= y1 {
		return nil, fmt.Errorf("invalid crop region (%d,%d)-(%d,%d): x1 must be < x2, y1 must be < y2",
			x1, y1, x2, y2)
	}
	bounds := img.Bounds()
	rect := image.Rect(x1, y1, x2, y2).Intersect(bounds)
	if rect.Empty() {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			x1, y1, x2, y2, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	return imaging.Crop(img, rect), nil
}

// SaveJPEG encodes img as JPEG and writes it to path.
//
// Parameters:
//   - img: Image to encode
//   - path: Destination file; parent directories are created as needed
//   - quality: JPEG quality 1-100; anything else means DefaultJPEGQuality
//
// The file is written under a temporary name in the same directory and
// renamed into place, so readers never see a partial crop. The final file has
// mode CropFileMode.
//
// # Errors
//
//   - Returns error if the directory or temporary file cannot be created
//   - Returns error if encoding, chmod or the rename fails
func SaveJPEG(img image.Image, path string, quality int) error {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create crop directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".crop-*.jpg")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := imaging.Encode(tmp, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to encode crop: %w", err)
	}
	if err := tmp.Chmod(CropFileMode); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to set crop permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close crop: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write crop: %w", err)
	}
	return nil
}
