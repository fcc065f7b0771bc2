package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Load decodes the photo at path, applying its EXIF orientation tag.
//
// Parameters:
//   - path: Absolute or relative file path to the image. Supported formats are
//     those of github.com/disintegration/imaging (JPEG, PNG, GIF, TIFF, BMP).
//
// Returns:
//   - image.Image: The decoded image, rotated or flipped so that pixel
//     coordinates match the upright photo the detector saw.
//   - error: Non-nil if the file cannot be opened or decoded.
//
// The crop stage loads each photo once and keeps it only while that photo's
// regions are cut, so there is no cache.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns error if the file is not a supported image format
func Load(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return img, nil
}
