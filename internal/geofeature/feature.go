// Package geofeature turns a geolocated photo and its fused sign text into a
// GeoJSON guidepost feature.
//
// Features keep their properties in insertion order: filename, the fixed
// OpenStreetMap tags, the fused text keys, then the Panoramax reference.
// MarshalJSON writes them in that order.
package geofeature

import (
	"bytes"
	"encoding/json"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/Binnette/hiking-signs-ai/internal/exif"
	"github.com/Binnette/hiking-signs-ai/internal/panoramax"
	"github.com/Binnette/hiking-signs-ai/internal/textract"
)

// Property keys set on every feature.
const (
	KeyFilename       = "filename"
	KeyPanoramax      = "panoramax"
	KeyPanoramaxHDURL = "panoramax:hd_href"
)

// Tags are the OpenStreetMap tags of a hiking guidepost.
var Tags = [][2]string{
	{"tourism", "information"},
	{"information", "guidepost"},
	{"hiking", "yes"},
}

// Feature is one guidepost: a point and its ordered properties.
type Feature struct {
	Point      orb.Point
	Properties *textract.Properties
}

type featureDoc struct {
	Type       string               `json:"type"`
	Geometry   *geojson.Geometry    `json:"geometry"`
	Properties *textract.Properties `json:"properties"`
}

// Filename returns the photo the feature was built from.
func (f *Feature) Filename() string {
	name, _ := f.Properties.Get(KeyFilename)
	return name
}

// MarshalJSON encodes f as a GeoJSON Feature with Point geometry.
func (f *Feature) MarshalJSON() ([]byte, error) {
	return Marshal(featureDoc{
		Type:       "Feature",
		Geometry:   geojson.NewGeometry(f.Point),
		Properties: f.Properties,
	})
}

// Marshal encodes v like json.Marshal but leaves '<', '>' and '&' unescaped.
func Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Properties assembles the ordered property set of a feature: filename,
// fixed tags, fused text, then the Panoramax reference when present.
func Properties(filename string, fused *textract.Properties, ref *panoramax.Ref) *textract.Properties {
	p := textract.NewProperties()
	p.Set(KeyFilename, filename)
	for _, tag := range Tags {
		p.Set(tag[0], tag[1])
	}
	p.Merge(fused)
	if ref != nil {
		p.Set(KeyPanoramax, ref.ID)
		p.Set(KeyPanoramaxHDURL, ref.URL)
	}
	return p
}

// Build returns the feature for a photo, or nil when loc is nil. The point
// is [lon, lat].
func Build(filename string, loc *exif.Location, fused *textract.Properties, ref *panoramax.Ref) *Feature {
	if loc == nil {
		return nil
	}
	return &Feature{
		Point:      orb.Point{loc.Lon, loc.Lat},
		Properties: Properties(filename, fused, ref),
	}
}
