// Package rectify maps a labelled sign quadrilateral onto an upright
// rectangle.
//
// # Transform
//
// The output rectangle takes the longer of each pair of opposite edges:
//
//	width  = max(|TR-TL|, |BR-BL|)
//	height = max(|BL-TL|, |BR-TR|)
//
// The destination corners (0,0), (w-1,0), (w-1,h-1), (0,h-1) are matched to
// TL, TR, BR, BL and the eight-parameter homography between the two planes is
// solved directly. Rectify uses the inverse direction (destination to source)
// so every output pixel is pulled from the photo with bilinear sampling.
// Samples falling outside the photo are black.
//
// The result is a best-effort rectification. A sign that is not planar or not
// rectangular is still warped, just not to metric correctness.
package rectify
