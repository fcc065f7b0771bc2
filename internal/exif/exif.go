// Package exif reads the GPS position recorded in a photo's EXIF block.
//
// Coordinates are decimal degrees converted from the degrees/minutes/seconds
// rationals, negated for the southern and western hemispheres.
package exif

import (
	"errors"
	"fmt"
	"math"
	"os"

	goexif "github.com/rwcarlsen/goexif/exif"
)

// ErrNoLocation is returned when a photo has no EXIF block or no usable GPS
// position. The photo is skipped.
var ErrNoLocation = errors.New("no GPS location")

// Location is a WGS84 position in decimal degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Reader returns the location of a photo.
type Reader interface {
	Location(path string) (Location, error)
}

// FileReader reads EXIF from JPEG or TIFF files on disk.
type FileReader struct{}

// Location implements Reader.
func (FileReader) Location(path string) (Location, error) {
	f, err := os.Open(path)
	if err != nil {
		return Location{}, fmt.Errorf("failed to open photo: %w", err)
	}
	defer f.Close()

	x, err := goexif.Decode(f)
	if x == nil {
		return Location{}, fmt.Errorf("%w: %s has no exif data: %v", ErrNoLocation, path, err)
	}

	lat, lon, err := x.LatLong()
	if err != nil {
		return Location{}, fmt.Errorf("%w: %s misses lat/lon in exif data: %v", ErrNoLocation, path, err)
	}
	if !valid(lat, lon) {
		return Location{}, fmt.Errorf("%w: %s has out-of-range position %f,%f", ErrNoLocation, path, lat, lon)
	}
	return Location{Lat: lat, Lon: lon}, nil
}

func valid(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
