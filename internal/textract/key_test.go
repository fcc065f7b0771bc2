package textract

import (
	"testing"

	"github.com/Binnette/hiking-signs-ai/internal/crop"
)

func TestKeyString(t *testing.T) {
	tests := []struct {
		facet   Facet
		backend string
		ordinal int
		want    string
	}{
		{FacetName, "ocr", 1, "name:ocr:1"},
		{FacetDest, "llm", 12, "dest:llm:12"},
		{FacetName, "llm", 0, "name:llm:all"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			var (
				k   Key
				err error
			)
			if tt.ordinal == 0 {
				k, err = AllKey(tt.facet, tt.backend)
			} else {
				k, err = OrdinalKey(tt.facet, tt.backend, tt.ordinal)
			}
			if err != nil {
				t.Fatalf("building key failed: %v", err)
			}
			if k.String() != tt.want {
				t.Errorf("String: got %q, want %q", k.String(), tt.want)
			}
			if k.IsAll() != (tt.ordinal == 0) {
				t.Errorf("IsAll: got %v", k.IsAll())
			}
		})
	}
}

func TestKeyConstructors_Reject(t *testing.T) {
	tests := []struct {
		name    string
		facet   Facet
		backend string
		ordinal int
	}{
		{"ordinal zero", FacetName, "ocr", 0},
		{"negative ordinal", FacetName, "ocr", -1},
		{"unknown facet", "top", "ocr", 1},
		{"empty backend", FacetName, "", 1},
		{"upper-case backend", FacetName, "OCR", 1},
		{"backend with colon", FacetDest, "a:b", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := OrdinalKey(tt.facet, tt.backend, tt.ordinal); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := AllKey("title", "ocr"); err == nil {
		t.Error("unknown facet must be rejected")
	}
}

func TestFacetKind(t *testing.T) {
	if FacetName.Kind() != crop.KindTop {
		t.Errorf("name facet reads %q crops", FacetName.Kind())
	}
	if FacetDest.Kind() != crop.KindDestination {
		t.Errorf("dest facet reads %q crops", FacetDest.Kind())
	}
}
