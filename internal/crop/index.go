package crop

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// IndexFile is the index filename inside the crop directory.
const IndexFile = "index.json"

const indexVersion = 1

// Entry is one written crop.
type Entry struct {
	Image   string  `json:"image"`
	Kind    Kind    `json:"kind"`
	Ordinal int     `json:"ordinal"`
	Path    string  `json:"path"`
	Class   string  `json:"class,omitempty"`
	Score   float64 `json:"score,omitempty"`
	Region  int     `json:"region"`
}

// Locator lists the crops of one kind for a photo, in ordinal order.
type Locator interface {
	Crops(base string, kind Kind) []string
}

// Index is the explicit crop manifest. It is safe for concurrent use.
type Index struct {
	dir     string
	mu      sync.Mutex
	entries []Entry
}

type indexFile struct {
	Version int     `json:"version"`
	Entries []Entry `json:"entries"`
}

// NewIndex creates an empty index for the crop directory dir. Entry paths are
// stored relative to dir.
func NewIndex(dir string) *Index {
	return &Index{dir: dir}
}

// IndexPath returns the index location for a crop directory.
func IndexPath(dir string) string {
	return filepath.Join(dir, IndexFile)
}

// Add records a crop. The image is reduced to its base name.
func (ix *Index) Add(e Entry) {
	e.Image = BaseName(e.Image)
	if rel, err := filepath.Rel(ix.dir, e.Path); err == nil && !filepath.IsAbs(rel) {
		e.Path = filepath.ToSlash(rel)
	}
	ix.mu.Lock()
	ix.entries = append(ix.entries, e)
	ix.mu.Unlock()
}

// Len returns the number of entries.
func (ix *Index) Len() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.entries)
}

// Entries returns a sorted copy of the entries.
func (ix *Index) Entries() []Entry {
	ix.mu.Lock()
	out := make([]Entry, len(ix.entries))
	copy(out, ix.entries)
	ix.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Image != b.Image {
			return a.Image < b.Image
		}
		if a.Kind != b.Kind {
			return a.Kind > b.Kind // top before destination
		}
		return a.Ordinal < b.Ordinal
	})
	return out
}

// Crops implements Locator.
func (ix *Index) Crops(base string, kind Kind) []string {
	var paths []string
	for _, e := range ix.Entries() {
		if e.Image == base && e.Kind == kind {
			paths = append(paths, filepath.Join(ix.dir, filepath.FromSlash(e.Path)))
		}
	}
	return paths
}

// Save writes the index to <dir>/index.json atomically.
func (ix *Index) Save() error {
	data, err := json.MarshalIndent(indexFile{Version: indexVersion, Entries: ix.Entries()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode crop index: %w", err)
	}
	if err := os.MkdirAll(ix.dir, 0755); err != nil {
		return fmt.Errorf("failed to create crop directory: %w", err)
	}

	path := IndexPath(ix.dir)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write crop index: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write crop index: %w", err)
	}
	return nil
}

// LoadIndex reads <dir>/index.json. A missing file yields an error matching
// fs.ErrNotExist.
func LoadIndex(dir string) (*Index, error) {
	data, err := os.ReadFile(IndexPath(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to read crop index: %w", err)
	}

	var f indexFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse crop index: %w", err)
	}
	if f.Version != indexVersion {
		return nil, fmt.Errorf("unsupported crop index version %d", f.Version)
	}

	ix := NewIndex(dir)
	ix.entries = f.Entries
	return ix, nil
}

// Prober locates crops by probing ordinals 1, 2, ... until a file is missing.
type Prober struct {
	Dir string
}

// Crops implements Locator.
func (p Prober) Crops(base string, kind Kind) []string {
	var paths []string
	for n := 1; ; n++ {
		path := Path(p.Dir, base, kind, n)
		if _, err := os.Stat(path); err != nil {
			return paths
		}
		paths = append(paths, path)
	}
}

// OpenLocator returns the index of dir when present and a Prober otherwise.
// An unreadable or corrupt index is an error.
func OpenLocator(dir string) (Locator, error) {
	ix, err := LoadIndex(dir)
	if err == nil {
		return ix, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return Prober{Dir: dir}, nil
	}
	return nil, err
}
