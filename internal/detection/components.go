package detection

// Point represents a 2D coordinate in pixel space.
type Point struct {
	X int `json:"x"` // Horizontal position (0 = leftmost)
	Y int `json:"y"` // Vertical position (0 = topmost)
}

// component is one 8-connected foreground blob. Only the per-row horizontal
// extremes are kept: they are all the convex hull needs.
type component struct {
	area int
	rows map[int][2]int // y -> [minX, maxX]
}

func (c *component) add(p Point) {
	c.area++
	r, ok := c.rows[p.Y]
	if !ok {
		c.rows[p.Y] = [2]int{p.X, p.X}
		return
	}
	if p.X < r[0] {
		r[0] = p.X
	}
	if p.X > r[1] {
		r[1] = p.X
	}
	c.rows[p.Y] = r
}

// extremes returns the leftmost and rightmost pixel of every row.
func (c *component) extremes() []Point {
	pts := make([]Point, 0, 2*len(c.rows))
	for y, r := range c.rows {
		pts = append(pts, Point{X: r[0], Y: y})
		if r[1] != r[0] {
			pts = append(pts, Point{X: r[1], Y: y})
		}
	}
	return pts
}

// largestComponent returns the foreground blob with the most pixels. Ties go
// to the blob found first in raster order. Returns nil for an empty mask.
func largestComponent(m *Mask) *component {
	visited := make([]bool, len(m.Pix))
	var best *component

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			i := y*m.Width + x
			if !m.Pix[i] || visited[i] {
				continue
			}
			c := &component{rows: make(map[int][2]int)}
			floodFill(m, visited, x, y, c)
			if best == nil || c.area > best.area {
				best = c
			}
		}
	}

	return best
}

// floodFill performs iterative flood-fill from a starting point.
//
// Uses a stack-based approach (not recursive) to avoid stack overflow
// on large blobs. Uses 8-connectivity (includes diagonal neighbors).
func floodFill(m *Mask, visited []bool, startX, startY int, c *component) {
	stack := []Point{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= m.Width || p.Y < 0 || p.Y >= m.Height {
			continue
		}
		i := p.Y*m.Width + p.X
		if visited[i] || !m.Pix[i] {
			continue
		}

		visited[i] = true
		c.add(p)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, Point{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}
}
