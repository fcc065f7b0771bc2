// Package imaging loads source photos and writes the crop-stage image
// artefacts: rectified and axis-aligned sign crops as JPEG, and optional debug
// overlays as PNG.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner, X
// increasing rightward and Y increasing downward. For regions, (x1,y1) is
// inclusive and (x2,y2) is exclusive.
//
// # Orientation
//
// Photos are decoded with EXIF auto-orientation so that pixel coordinates match
// what the detector saw. Masks are never re-oriented.
//
// # Thread Safety
//
// Load, CropBox and SaveJPEG are safe to call from concurrent workers. Overlay
// is not safe for concurrent use; each photo gets its own.
package imaging
