// Package detection turns detector output into sign geometry.
//
// The detector itself (a Mask R-CNN / Faster R-CNN style model) runs outside
// this module. Its output is consumed through a JSON contract: per source
// image, zero or more regions, each with a class label, a confidence score,
// and a bounding box and/or a binary pixel mask. This package reads that
// contract and reduces each region to four ordered corner points that the
// rectify package can warp into a fronto-parallel crop.
//
// # Pipeline
//
//  1. ReadDetections parses the detector output file into Regions.
//  2. QuadFromMask keeps the largest 8-connected foreground blob of a mask and
//     returns the corners of its minimum-area enclosing rectangle.
//     QuadFromBox does the same for box-only regions.
//  3. OrderCorners labels the four points top-left, top-right, bottom-right,
//     bottom-left.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Mask points are pixel centres, so a mask covering columns 10..29 yields
//     corners at X=10 and X=29
//
// # Degenerate Regions
//
// A mask without foreground pixels, or whose largest blob has zero area (a
// single pixel or a straight line), never produces a quadrilateral: the
// extractors return an error wrapping ErrEmptyRegion and the caller skips the
// region.
//
// # Corner Labelling
//
// OrderCorners uses the coordinate sum/difference rule (minimum x+y is
// top-left, maximum x+y is bottom-right, minimum y-x is top-right, maximum y-x
// is bottom-left) with lowest input index winning ties. When that rule does
// not produce a simple clockwise polygon, which happens for quadrilaterals
// rotated close to 45 degrees, the points are ordered clockwise around their
// centroid starting from the minimum-sum point instead.
package detection
