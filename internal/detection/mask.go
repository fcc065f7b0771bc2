package detection

import (
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
)

// Mask is a binary foreground mask with the pixel dimensions of its source
// image.
type Mask struct {
	Width  int
	Height int
	Pix    []bool
}

// NewMask creates an all-background mask.
func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]bool, width*height),
	}
}

// At reports whether (x, y) is foreground. Points outside the mask are background.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x]
}

// Set marks (x, y) as foreground or background. Points outside the mask are ignored.
func (m *Mask) Set(x, y int, on bool) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Pix[y*m.Width+x] = on
}

// FillRect marks the half-open rectangle [x1,x2)x[y1,y2) as foreground.
func (m *Mask) FillRect(x1, y1, x2, y2 int) {
	for y := y1; y < y2; y++ {
		for x := x1; x < x2; x++ {
			m.Set(x, y, true)
		}
	}
}

// Count returns the number of foreground pixels.
func (m *Mask) Count() int {
	n := 0
	for _, on := range m.Pix {
		if on {
			n++
		}
	}
	return n
}

// MaskFromImage binarizes img: any pixel whose luminance is non-zero is
// foreground. Transparent pixels are background.
func MaskFromImage(img image.Image) *Mask {
	b := img.Bounds()
	flat := imaging.Overlay(imaging.New(b.Dx(), b.Dy(), color.Black), img, image.Pt(0, 0), 1.0)
	gray := segment.Threshold(flat, 1)
	m := NewMask(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+b.Dx()]
		for x, v := range row {
			if v != 0 {
				m.Pix[y*m.Width+x] = true
			}
		}
	}
	return m
}

// LoadMask reads a mask image (PNG or JPEG) from disk.
func LoadMask(path string) (*Mask, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mask: %w", err)
	}
	return MaskFromImage(img), nil
}
