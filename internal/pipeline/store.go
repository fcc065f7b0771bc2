package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/Binnette/hiking-signs-ai/internal/geofeature"
)

// OutputFileMode is the permission of the written GeoJSON file.
const OutputFileMode os.FileMode = 0644

type collectionDoc struct {
	Type     string                `json:"type"`
	Features []*geofeature.Feature `json:"features"`
}

// Store accumulates features and persists the full collection after every
// append. It is safe for concurrent use.
type Store struct {
	path string

	mu       sync.Mutex
	features []*geofeature.Feature
}

// NewStore creates a store writing to path. An existing file at path is
// removed so a run never mixes with the output of an earlier one.
func NewStore(path string) (*Store, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to remove previous output: %w", err)
	}
	return &Store{path: path, features: []*geofeature.Feature{}}, nil
}

// Path returns the output file.
func (s *Store) Path() string {
	return s.path
}

// Append adds f and rewrites the output file. Features are written in
// append order, each with its properties in insertion order. The append and the write form
// one critical section.
func (s *Store) Append(f *geofeature.Feature) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.features = append(s.features, f)
	if err := s.write(); err != nil {
		s.features = s.features[:len(s.features)-1]
		return err
	}
	return nil
}

// Flush writes the current collection, even when empty.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write()
}

// Len returns the number of stored features.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.features)
}

// write must be called with mu held.
func (s *Store) write() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".geojson-*")
	if err != nil {
		return fmt.Errorf("failed to create temp output: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(collectionDoc{Type: "FeatureCollection", Features: s.features}); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode features: %w", err)
	}
	if err := tmp.Chmod(OutputFileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set output mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace output: %w", err)
	}
	return nil
}
