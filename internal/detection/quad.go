package detection

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrEmptyRegion is returned when a region has no foreground pixels or
// encloses zero area. Callers skip the region.
var ErrEmptyRegion = errors.New("empty region")

// Quad is four corner points in no particular order.
type Quad [4]Point

// Area returns the absolute area of the polygon Quad[0..3] (shoelace formula).
func (q Quad) Area() float64 {
	var s int
	for i := 0; i < 4; i++ {
		j := (i + 1) % 4
		s += q[i].X*q[j].Y - q[j].X*q[i].Y
	}
	return math.Abs(float64(s)) / 2
}

// QuadFromMask returns the corners of the minimum-area rectangle enclosing the
// largest foreground blob of m. Smaller disjoint blobs are ignored.
//
// Parameters:
//   - m: Binary region mask. Blobs are 8-connected.
//
// Returns:
//   - Quad: Four corners in no particular order; pass them to OrderCorners.
//   - error: ErrEmptyRegion if m has no foreground, or the blob or its
//     enclosing rectangle has zero area.
func QuadFromMask(m *Mask) (Quad, error) {
	blob := largestComponent(m)
	if blob == nil {
		return Quad{}, fmt.Errorf("%w: mask has no foreground pixels", ErrEmptyRegion)
	}

	hull := convexHull(blob.extremes())
	if len(hull) < 3 {
		return Quad{}, fmt.Errorf("%w: blob of %d pixels has no area", ErrEmptyRegion, blob.area)
	}

	q := minAreaRect(hull)
	if q.Area() == 0 {
		return Quad{}, fmt.Errorf("%w: enclosing rectangle collapsed", ErrEmptyRegion)
	}
	return q, nil
}

// QuadFromBox returns the corners of an axis-aligned box, using the same
// pixel-centre convention as QuadFromMask.
func QuadFromBox(b Box) (Quad, error) {
	x1 := int(math.Round(b.X1))
	y1 := int(math.Round(b.Y1))
	x2 := int(math.Round(b.X2)) - 1
	y2 := int(math.Round(b.Y2)) - 1
	if x2 <= x1 || y2 <= y1 {
		return Quad{}, fmt.Errorf("%w: box (%.1f,%.1f)-(%.1f,%.1f) has no area", ErrEmptyRegion, b.X1, b.Y1, b.X2, b.Y2)
	}
	return Quad{{x1, y1}, {x2, y1}, {x2, y2}, {x1, y2}}, nil
}

func cross(o, a, b Point) int64 {
	return int64(a.X-o.X)*int64(b.Y-o.Y) - int64(a.Y-o.Y)*int64(b.X-o.X)
}

// convexHull returns the hull of pts in counter-clockwise order (Andrew's
// monotone chain). Collinear points are dropped.
func convexHull(pts []Point) []Point {
	if len(pts) < 3 {
		return pts
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})

	hull := make([]Point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// minAreaRect finds the minimum-area rectangle enclosing hull (rotating
// calipers: the optimal rectangle has one side collinear with a hull edge).
// The first edge wins on equal areas.
func minAreaRect(hull []Point) Quad {
	bestArea := math.Inf(1)
	var best [4][2]float64

	n := len(hull)
	for i := 0; i < n; i++ {
		a, b := hull[i], hull[(i+1)%n]
		dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
		length := math.Hypot(dx, dy)
		if length == 0 {
			continue
		}
		ux, uy := dx/length, dy/length
		vx, vy := -uy, ux

		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			px, py := float64(p.X), float64(p.Y)
			pu := px*ux + py*uy
			pv := px*vx + py*vy
			minU = math.Min(minU, pu)
			maxU = math.Max(maxU, pu)
			minV = math.Min(minV, pv)
			maxV = math.Max(maxV, pv)
		}

		area := (maxU - minU) * (maxV - minV)
		if area < bestArea-1e-9 {
			bestArea = area
			corner := func(u, v float64) [2]float64 {
				return [2]float64{u*ux + v*vx, u*uy + v*vy}
			}
			best = [4][2]float64{
				corner(minU, minV),
				corner(maxU, minV),
				corner(maxU, maxV),
				corner(minU, maxV),
			}
		}
	}

	var q Quad
	for i, c := range best {
		q[i] = Point{X: int(math.Round(c[0])), Y: int(math.Round(c[1]))}
	}
	return q
}
