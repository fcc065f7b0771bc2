package textract

import (
	"fmt"
	"strconv"

	"github.com/Binnette/hiking-signs-ai/internal/crop"
)

// Facet is the logical part of a sign a crop belongs to.
type Facet string

const (
	FacetName Facet = "name"
	FacetDest Facet = "dest"
)

// Facets lists the facets in the order they are fused.
var Facets = []Facet{FacetName, FacetDest}

// Kind returns the crop kind holding crops of this facet.
func (f Facet) Kind() crop.Kind {
	if f == FacetDest {
		return crop.KindDestination
	}
	return crop.KindTop
}

const allSuffix = "all"

// Key is a parsed fused-property key. Ordinal 0 denotes the "all" aggregate.
type Key struct {
	Facet   Facet
	Backend string
	Ordinal int
}

// OrdinalKey builds <facet>:<backend>:<n>. n must be >= 1.
func OrdinalKey(f Facet, backend string, n int) (Key, error) {
	if n < 1 {
		return Key{}, fmt.Errorf("ordinal must be >= 1, got %d", n)
	}
	k := Key{Facet: f, Backend: backend, Ordinal: n}
	return k, k.validate()
}

// AllKey builds <facet>:<backend>:all.
func AllKey(f Facet, backend string) (Key, error) {
	k := Key{Facet: f, Backend: backend}
	return k, k.validate()
}

// IsAll reports whether k is the aggregate key.
func (k Key) IsAll() bool {
	return k.Ordinal == 0
}

func (k Key) String() string {
	last := allSuffix
	if !k.IsAll() {
		last = strconv.Itoa(k.Ordinal)
	}
	return string(k.Facet) + ":" + k.Backend + ":" + last
}

func (k Key) validate() error {
	if k.Facet != FacetName && k.Facet != FacetDest {
		return fmt.Errorf("unknown facet %q", k.Facet)
	}
	return ValidateBackendName(k.Backend)
}

// ValidateBackendName accepts non-empty names made of lowercase letters,
// digits, '_' and '-'.
func ValidateBackendName(name string) error {
	if name == "" {
		return fmt.Errorf("empty back-end name")
	}
	for _, r := range name {
		ok := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-'
		if !ok {
			return fmt.Errorf("invalid back-end name %q", name)
		}
	}
	return nil
}
