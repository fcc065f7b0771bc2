// Package panoramax resolves local photo files to their Panoramax picture
// ids using the _geovisio.toml sidecar written by the upload tool.
package panoramax

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/Binnette/hiking-signs-ai/internal/logging"
)

// DefaultBaseURL is the public picture endpoint of the OpenStreetMap France
// Panoramax instance.
const DefaultBaseURL = "https://panoramax.openstreetmap.fr/images"

var (
	// ErrNotFound is returned when no manifest entry records the file.
	ErrNotFound = errors.New("photo not found in manifest")
	// ErrInvalidID is returned for ids too short to derive a URL from.
	ErrInvalidID = errors.New("invalid picture id")
)

// Ref identifies a picture on Panoramax.
type Ref struct {
	ID  string
	URL string
}

// Resolver looks up photos in a parsed manifest. It is safe for concurrent
// use once created.
type Resolver struct {
	baseURL string
	byPath  map[string]string
	log     *logging.Logger
}

// Load parses the manifest at path. Sections are scanned in key order and
// the first entry recorded for a path wins.
func Load(path, baseURL string, log *logging.Logger) (*Resolver, error) {
	if log == nil {
		log = logging.Discard()
	}
	var raw map[string]interface{}
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	r := &Resolver{baseURL: baseURL, byPath: make(map[string]string), log: log}
	for _, name := range sortedKeys(raw) {
		// Top-level values that are not tables carry manifest metadata.
		sec, ok := raw[name].(map[string]interface{})
		if !ok {
			continue
		}
		pv, ok := sec["pictures"]
		if !ok {
			continue
		}
		pictures, ok := pv.(map[string]interface{})
		if !ok {
			log.Warn("Skipping malformed manifest section", "section", name, "pictures", fmt.Sprintf("%T", pv))
			continue
		}
		for _, k := range sortedKeys(pictures) {
			pic, ok := pictures[k].(map[string]interface{})
			if !ok {
				continue
			}
			picPath, _ := pic["path"].(string)
			id, _ := pic["id"].(string)
			if picPath == "" || id == "" {
				continue
			}
			if _, dup := r.byPath[picPath]; !dup {
				r.byPath[picPath] = id
			}
		}
	}
	log.Debug("Loaded manifest", "path", path, "pictures", len(r.byPath))
	return r, nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Empty returns a resolver that knows no pictures.
func Empty(baseURL string) *Resolver {
	return &Resolver{baseURL: baseURL, byPath: map[string]string{}, log: logging.Discard()}
}

// Len returns the number of known pictures.
func (r *Resolver) Len() int {
	return len(r.byPath)
}

// Resolve returns the picture recorded for filename.
func (r *Resolver) Resolve(filename string) (*Ref, error) {
	id, ok := r.byPath[filename]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, filename)
	}
	if err := uuid.Validate(id); err != nil {
		r.log.Debug("Picture id is not a canonical UUID", "file", filename, "id", id)
	}
	u, err := URL(r.baseURL, id)
	if err != nil {
		return nil, err
	}
	return &Ref{ID: id, URL: u}, nil
}

// URL derives the HD picture URL: the first eight characters of id become
// four two-character path segments and everything after the ninth the file
// name, so "abcd1234-wxyz" maps to <base>/ab/cd/12/34/wxyz.jpg.
func URL(baseURL, id string) (string, error) {
	if len(id) < 9 {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	base := strings.TrimRight(baseURL, "/")
	return fmt.Sprintf("%s/%s/%s/%s/%s/%s.jpg", base, id[0:2], id[2:4], id[4:6], id[6:8], id[9:]), nil
}
