package rectify

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/math/f64"

	"github.com/Binnette/hiking-signs-ai/internal/detection"
)

// Size returns the output dimensions for c: the rounded longer edge of each
// opposite pair.
func Size(c detection.Corners) (int, int) {
	width := math.Max(dist(c.TopRight, c.TopLeft), dist(c.BottomRight, c.BottomLeft))
	height := math.Max(dist(c.BottomLeft, c.TopLeft), dist(c.BottomRight, c.TopRight))
	return int(math.Round(width)), int(math.Round(height))
}

// Rectify resamples the quadrilateral c of img into an upright rectangle.
//
// Each output pixel is mapped back into img through the inverse homography
// and sampled bilinearly. Pixels mapping outside img are opaque black.
//
// Parameters:
//   - img: The source photo.
//   - c: Ordered corners of the sign in img coordinates.
//
// Returns:
//   - *image.NRGBA: The rectified sign, sized by Size(c).
//   - error: ErrDegenerate if the output would be smaller than 2x2 or the
//     corners admit no homography.
func Rectify(img image.Image, c detection.Corners) (*image.NRGBA, error) {
	w, h := Size(c)
	if w < 2 || h < 2 {
		return nil, fmt.Errorf("%w: output size %dx%d", ErrDegenerate, w, h)
	}

	dst := [4]f64.Vec2{
		{0, 0},
		{float64(w - 1), 0},
		{float64(w - 1), float64(h - 1)},
		{0, float64(h - 1)},
	}
	src := [4]f64.Vec2{
		vec(c.TopLeft),
		vec(c.TopRight),
		vec(c.BottomRight),
		vec(c.BottomLeft),
	}

	// Pull mapping: output pixel -> photo coordinate.
	m, err := Homography(dst, src)
	if err != nil {
		return nil, err
	}

	photo := imaging.Clone(img)
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := Apply(m, f64.Vec2{float64(x), float64(y)})
			out.SetNRGBA(x, y, bilinear(photo, p[0], p[1]))
		}
	}
	return out, nil
}

// bilinear samples src at (fx, fy) in pixel-centre coordinates. Neighbours
// outside the image contribute black.
func bilinear(src *image.NRGBA, fx, fy float64) color.NRGBA {
	if math.IsInf(fx, 0) || math.IsInf(fy, 0) || math.IsNaN(fx) || math.IsNaN(fy) {
		return color.NRGBA{A: 255}
	}

	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	dx := fx - float64(x0)
	dy := fy - float64(y0)

	var acc [4]float64
	add := func(x, y int, wgt float64) {
		if wgt == 0 {
			return
		}
		var px [4]uint8
		if image.Pt(x, y).In(src.Rect) {
			i := src.PixOffset(x, y)
			copy(px[:], src.Pix[i:i+4])
		} else {
			px[3] = 255
		}
		for k := 0; k < 4; k++ {
			acc[k] += wgt * float64(px[k])
		}
	}

	add(x0, y0, (1-dx)*(1-dy))
	add(x0+1, y0, dx*(1-dy))
	add(x0, y0+1, (1-dx)*dy)
	add(x0+1, y0+1, dx*dy)

	return color.NRGBA{
		R: clamp(acc[0]),
		G: clamp(acc[1]),
		B: clamp(acc[2]),
		A: clamp(acc[3]),
	}
}

func clamp(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func vec(p detection.Point) f64.Vec2 {
	return f64.Vec2{float64(p.X), float64(p.Y)}
}

func dist(a, b detection.Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}
