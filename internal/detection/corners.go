package detection

import (
	"math"
	"sort"
)

// Corners is a quadrilateral with semantic corner labels.
type Corners struct {
	TopLeft     Point `json:"top_left"`
	TopRight    Point `json:"top_right"`
	BottomRight Point `json:"bottom_right"`
	BottomLeft  Point `json:"bottom_left"`
}

// Points returns the corners in TL, TR, BR, BL order.
func (c Corners) Points() [4]Point {
	return [4]Point{c.TopLeft, c.TopRight, c.BottomRight, c.BottomLeft}
}

// OrderCorners labels four unordered points. See the package documentation
// for the rule and its fallback.
func OrderCorners(q Quad) Corners {
	tl, tr, br, bl := 0, 0, 0, 0
	for i := 1; i < 4; i++ {
		sum := q[i].X + q[i].Y
		diff := q[i].Y - q[i].X
		if sum < q[tl].X+q[tl].Y {
			tl = i
		}
		if sum > q[br].X+q[br].Y {
			br = i
		}
		if diff < q[tr].Y-q[tr].X {
			tr = i
		}
		if diff > q[bl].Y-q[bl].X {
			bl = i
		}
	}

	c := Corners{TopLeft: q[tl], TopRight: q[tr], BottomRight: q[br], BottomLeft: q[bl]}
	if distinct(tl, tr, br, bl) && isClockwise(c.Points()) {
		return c
	}
	return orderByAngle(q)
}

func distinct(idx ...int) bool {
	seen := 0
	for _, i := range idx {
		if seen&(1<<i) != 0 {
			return false
		}
		seen |= 1 << i
	}
	return true
}

// isClockwise reports whether p[0..3] is a simple polygon winding clockwise on
// screen (y down), which is a positive cross product at every vertex.
func isClockwise(p [4]Point) bool {
	for i := 0; i < 4; i++ {
		if cross(p[i], p[(i+1)%4], p[(i+2)%4]) <= 0 {
			return false
		}
	}
	return true
}

// orderByAngle sorts the points clockwise around their centroid and rotates
// the sequence to start at the minimum-sum point (lowest index on ties).
func orderByAngle(q Quad) Corners {
	var cx, cy float64
	for _, p := range q {
		cx += float64(p.X)
		cy += float64(p.Y)
	}
	cx /= 4
	cy /= 4

	idx := []int{0, 1, 2, 3}
	angle := func(i int) float64 {
		return math.Atan2(float64(q[i].Y)-cy, float64(q[i].X)-cx)
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return angle(idx[a]) < angle(idx[b])
	})

	start := 0
	for k := 1; k < 4; k++ {
		cur, best := q[idx[k]], q[idx[start]]
		s, bs := cur.X+cur.Y, best.X+best.Y
		if s < bs || (s == bs && idx[k] < idx[start]) {
			start = k
		}
	}

	at := func(k int) Point { return q[idx[(start+k)%4]] }
	return Corners{TopLeft: at(0), TopRight: at(1), BottomRight: at(2), BottomLeft: at(3)}
}
