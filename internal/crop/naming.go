package crop

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Binnette/hiking-signs-ai/internal/detection"
)

// Kind is the part of a sign a crop represents.
type Kind string

const (
	KindTop         Kind = "top"
	KindDestination Kind = "destination"
)

// Kinds lists the crop kinds in processing order.
var Kinds = []Kind{KindTop, KindDestination}

// KindForClass maps a detector class to a crop kind. Classes without a crop
// kind are not cropped. The trained sign model labels the name plate at the
// top of a guidepost as panel, so panel regions become top crops as well.
func KindForClass(c detection.Class) (Kind, bool) {
	switch c {
	case detection.ClassTop, detection.ClassPanel:
		return KindTop, true
	case detection.ClassDestination:
		return KindDestination, true
	}
	return "", false
}

// BaseName strips directory and extension from a photo filename.
func BaseName(filename string) string {
	name := filepath.Base(filename)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// FileName returns "<base>_<kind>_<ordinal>.jpg".
func FileName(base string, kind Kind, ordinal int) string {
	return fmt.Sprintf("%s_%s_%d.jpg", base, kind, ordinal)
}

// Path returns the crop file path under dir.
func Path(dir, base string, kind Kind, ordinal int) string {
	return filepath.Join(dir, string(kind), FileName(base, kind, ordinal))
}
