package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"strconv"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Overlay draws detected sign outlines on a copy of a photo, for debugging the
// crop stage.
type Overlay struct {
	canvas *image.RGBA
	shapes int
}

// NewOverlay starts an overlay on a copy of img.
func NewOverlay(img image.Image) *Overlay {
	bounds := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, bounds.Min, draw.Src)
	return &Overlay{canvas: canvas}
}

// PaletteColor returns a distinct, saturated colour for palette slot i of n.
func PaletteColor(i, n int) color.RGBA {
	if n <= 0 {
		n = 1
	}
	hue := float64(i%n) * 360 / float64(n)
	r, g, b := colorful.Hsv(hue, 0.9, 1).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// AddQuad outlines the closed polygon pts and labels its first point with the
// ordinal.
func (o *Overlay) AddQuad(pts [4]image.Point, c color.RGBA, ordinal int) {
	for i := 0; i < 4; i++ {
		o.line(pts[i], pts[(i+1)%4], c)
	}
	drawLabel(o.canvas, pts[0].X+3, pts[0].Y+3, strconv.Itoa(ordinal), color.RGBA{255, 255, 255, 255}, c)
	o.shapes++
}

// Len returns the number of shapes drawn.
func (o *Overlay) Len() int {
	return o.shapes
}

// Save writes the overlay as PNG, creating parent directories as needed.
//
// Parameters:
//   - path: Destination file, conventionally crop/debug/<base>_overlay.png.
//
// Returns:
//   - error: Non-nil if the directory cannot be created or encoding fails.
func (o *Overlay) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create overlay directory: %w", err)
	}
	if err := imaging.Save(o.canvas, path); err != nil {
		return fmt.Errorf("failed to save overlay: %w", err)
	}
	return nil
}

// line draws a 3-pixel-wide segment with Bresenham's algorithm.
func (o *Overlay) line(a, b image.Point, c color.RGBA) {
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	err := dx + dy
	x, y := a.X, a.Y
	for {
		for oy := -1; oy <= 1; oy++ {
			for ox := -1; ox <= 1; ox++ {
				if image.Pt(x+ox, y+oy).In(o.canvas.Rect) {
					o.canvas.SetRGBA(x+ox, y+oy, c)
				}
			}
		}
		if x == b.X && y == b.Y {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

// drawLabel draws a number with a 3x5 pixel font on a filled background.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
	}

	bounds := img.Bounds()
	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			if p := image.Pt(x+dx, y+dy); p.In(bounds) {
				img.SetRGBA(p.X, p.Y, bg)
			}
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel != '1' {
					continue
				}
				if p := image.Pt(cx+col, y+row); p.In(bounds) {
					img.SetRGBA(p.X, p.Y, fg)
				}
			}
		}
		cx += charWidth
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
