package detection

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Class is a detector class label.
type Class string

const (
	ClassTop         Class = "top"
	ClassDestination Class = "destination"
	ClassPoster      Class = "poster"
	ClassBikeSign    Class = "bike_sign"
	ClassStreetSign  Class = "street_sign"
	ClassPanel       Class = "panel"
)

// DefaultClasses is the class table the detector was trained with, in
// class-id order.
var DefaultClasses = []Class{
	ClassTop,
	ClassDestination,
	ClassPoster,
	ClassBikeSign,
	ClassStreetSign,
	ClassPanel,
}

// ParseClass validates a class label.
func ParseClass(s string) (Class, error) {
	c := Class(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range DefaultClasses {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown class %q", s)
}

// Box is an axis-aligned bounding box in image pixels. (X1, Y1) is inclusive,
// (X2, Y2) is exclusive.
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Empty reports whether the box has no area.
func (b Box) Empty() bool {
	return b.X2 <= b.X1 || b.Y2 <= b.Y1
}

// Region is one detected instance within a source image.
type Region struct {
	// Image is the source image file name (base name, e.g. "IMG_0001.jpg").
	Image string

	// Index is the position of the region in the detector output for Image.
	Index int

	Class Class
	Score float64

	// Box is nil when the detector only produced a mask.
	Box *Box

	// MaskPath is the resolved path of the mask PNG, empty when the detector
	// only produced a box.
	MaskPath string
}

// HasMask reports whether the region carries a pixel mask.
func (r Region) HasMask() bool {
	return r.MaskPath != ""
}

// ImageDetections groups the regions detected in one source image.
type ImageDetections struct {
	Image   string
	Regions []Region
}

// Detections is the parsed detector output file.
type Detections struct {
	Classes []Class
	Images  []ImageDetections
}

type rawRegion struct {
	Class   string    `json:"class,omitempty"`
	ClassID *int      `json:"class_id,omitempty"`
	Score   float64   `json:"score"`
	Box     []float64 `json:"box,omitempty"`
	Mask    string    `json:"mask,omitempty"`
}

type rawImage struct {
	Image   string      `json:"image"`
	Regions []rawRegion `json:"regions"`
}

type rawDetections struct {
	Classes []string   `json:"classes,omitempty"`
	Images  []rawImage `json:"images"`
}

// ReadDetections parses a detector output file. Relative mask paths are
// resolved against the directory containing the file.
func ReadDetections(path string) (*Detections, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read detections: %w", err)
	}
	return ParseDetections(data, filepath.Dir(path))
}

// ParseDetections parses detector output. baseDir is used to resolve relative
// mask paths.
func ParseDetections(data []byte, baseDir string) (*Detections, error) {
	var raw rawDetections
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse detections: %w", err)
	}

	classes := DefaultClasses
	if len(raw.Classes) > 0 {
		classes = make([]Class, len(raw.Classes))
		for i, name := range raw.Classes {
			c, err := ParseClass(name)
			if err != nil {
				return nil, fmt.Errorf("classes[%d]: %w", i, err)
			}
			classes[i] = c
		}
	}

	out := &Detections{
		Classes: classes,
		Images:  make([]ImageDetections, 0, len(raw.Images)),
	}

	for _, img := range raw.Images {
		if img.Image == "" {
			return nil, fmt.Errorf("detection entry without image name")
		}
		det := ImageDetections{
			Image:   filepath.Base(img.Image),
			Regions: make([]Region, 0, len(img.Regions)),
		}
		for i, rr := range img.Regions {
			region, err := rr.toRegion(classes, baseDir)
			if err != nil {
				return nil, fmt.Errorf("%s region %d: %w", img.Image, i, err)
			}
			region.Image = det.Image
			region.Index = i
			det.Regions = append(det.Regions, region)
		}
		out.Images = append(out.Images, det)
	}

	return out, nil
}

func (rr rawRegion) toRegion(classes []Class, baseDir string) (Region, error) {
	var r Region

	switch {
	case rr.Class != "":
		c, err := ParseClass(rr.Class)
		if err != nil {
			return r, err
		}
		r.Class = c
	case rr.ClassID != nil:
		id := *rr.ClassID
		if id < 0 || id >= len(classes) {
			return r, fmt.Errorf("class_id %d outside class table of %d entries", id, len(classes))
		}
		r.Class = classes[id]
	default:
		return r, fmt.Errorf("region has neither class nor class_id")
	}

	if rr.Score < 0 || rr.Score > 1 {
		return r, fmt.Errorf("score %v outside [0,1]", rr.Score)
	}
	r.Score = rr.Score

	if len(rr.Box) > 0 {
		if len(rr.Box) != 4 {
			return r, fmt.Errorf("box must have 4 values, got %d", len(rr.Box))
		}
		r.Box = &Box{X1: rr.Box[0], Y1: rr.Box[1], X2: rr.Box[2], Y2: rr.Box[3]}
	}

	if rr.Mask != "" {
		r.MaskPath = rr.Mask
		if !filepath.IsAbs(r.MaskPath) {
			r.MaskPath = filepath.Join(baseDir, r.MaskPath)
		}
	}

	if r.Box == nil && r.MaskPath == "" {
		return r, fmt.Errorf("region has neither box nor mask")
	}

	return r, nil
}
