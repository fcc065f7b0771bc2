package rectify

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/image/math/f64"
)

// ErrDegenerate is returned when the four correspondences do not define a
// projective transform (three or more collinear points).
var ErrDegenerate = errors.New("degenerate quadrilateral")

// Homography solves the projective transform H with H*src[i] ~ dst[i] for the
// four point pairs. H is row-major with H[8] normalised to 1.
func Homography(src, dst [4]f64.Vec2) (f64.Mat3, error) {
	// Two rows per correspondence:
	//   x y 1 0 0 0 -ux -uy | u
	//   0 0 0 x y 1 -vx -vy | v
	var a [8][9]float64
	for i := 0; i < 4; i++ {
		x, y := src[i][0], src[i][1]
		u, v := dst[i][0], dst[i][1]
		a[2*i] = [9]float64{x, y, 1, 0, 0, 0, -u * x, -u * y, u}
		a[2*i+1] = [9]float64{0, 0, 0, x, y, 1, -v * x, -v * y, v}
	}

	h, err := solve(a)
	if err != nil {
		return f64.Mat3{}, err
	}
	return f64.Mat3{h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7], 1}, nil
}

// solve runs Gaussian elimination with partial pivoting on an augmented 8x9
// system.
func solve(a [8][9]float64) ([8]float64, error) {
	var x [8]float64
	for col := 0; col < 8; col++ {
		pivot := col
		for r := col + 1; r < 8; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-10 {
			return x, fmt.Errorf("%w: singular system at column %d", ErrDegenerate, col)
		}
		a[col], a[pivot] = a[pivot], a[col]

		for r := col + 1; r < 8; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c < 9; c++ {
				a[r][c] -= f * a[col][c]
			}
		}
	}

	for r := 7; r >= 0; r-- {
		s := a[r][8]
		for c := r + 1; c < 8; c++ {
			s -= a[r][c] * x[c]
		}
		x[r] = s / a[r][r]
	}
	return x, nil
}

// Apply maps p through h.
func Apply(h f64.Mat3, p f64.Vec2) f64.Vec2 {
	x, y := p[0], p[1]
	w := h[6]*x + h[7]*y + h[8]
	if w == 0 {
		return f64.Vec2{math.Inf(1), math.Inf(1)}
	}
	return f64.Vec2{
		(h[0]*x + h[1]*y + h[2]) / w,
		(h[3]*x + h[4]*y + h[5]) / w,
	}
}
