package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Binnette/hiking-signs-ai/internal/crop"
	"github.com/Binnette/hiking-signs-ai/internal/exif"
	"github.com/Binnette/hiking-signs-ai/internal/exif/exiftest"
	"github.com/Binnette/hiking-signs-ai/internal/logging"
	"github.com/Binnette/hiking-signs-ai/internal/panoramax"
	"github.com/Binnette/hiking-signs-ai/internal/textract"
)

// stubBackend answers every crop with text, optionally after a random delay,
// and records the highest number of concurrent calls.
type stubBackend struct {
	name     string
	text     func(path string) string
	maxDelay time.Duration

	active  atomic.Int32
	mu      sync.Mutex
	maxSeen int32
}

func (b *stubBackend) Name() string { return b.name }

func (b *stubBackend) Extract(ctx context.Context, req textract.Request) (string, error) {
	n := b.active.Add(1)
	defer b.active.Add(-1)
	b.mu.Lock()
	if n > b.maxSeen {
		b.maxSeen = n
	}
	b.mu.Unlock()

	if b.maxDelay > 0 {
		select {
		case <-time.After(time.Duration(rand.Int63n(int64(b.maxDelay)))):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return b.text(req.Path), nil
}

type stubResolver map[string]panoramax.Ref

func (r stubResolver) Resolve(filename string) (*panoramax.Ref, error) {
	ref, ok := r[filename]
	if !ok {
		return nil, panoramax.ErrNotFound
	}
	return &ref, nil
}

type fixture struct {
	photos string
	crops  string
	output string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	fx := fixture{
		photos: filepath.Join(root, "photos"),
		crops:  filepath.Join(root, "crop"),
		output: filepath.Join(root, "hikingSigns.geojson"),
	}
	for _, d := range []string{fx.photos, fx.crops} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatal(err)
		}
	}
	return fx
}

func (fx fixture) photo(t *testing.T, name string, lat, lon float64) {
	t.Helper()
	if err := exiftest.WriteJPEG(filepath.Join(fx.photos, name), lat, lon); err != nil {
		t.Fatal(err)
	}
}

func (fx fixture) crop(t *testing.T, photo string, kind crop.Kind, n int) {
	t.Helper()
	path := crop.Path(fx.crops, crop.BaseName(photo), kind, n)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("jpeg"), 0644); err != nil {
		t.Fatal(err)
	}
}

func newOrchestrator(t *testing.T, fx fixture, opts Options, backends []textract.Backend, r Resolver) *Orchestrator {
	t.Helper()
	engine, err := textract.NewEngine(backends, textract.Options{}, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	opts.PhotoDir = fx.photos
	opts.Output = fx.output
	return New(opts, engine, crop.Prober{Dir: fx.crops}, exif.FileReader{}, r, logging.Discard())
}

func TestRunEndToEnd(t *testing.T) {
	fx := newFixture(t)
	fx.photo(t, "IMG_1.jpg", 45.0, 6.0)
	fx.crop(t, "IMG_1.jpg", crop.KindTop, 1)

	llm := &stubBackend{name: "llm", text: func(string) string { return "Col du Mont" }}
	o := newOrchestrator(t, fx, Options{}, []textract.Backend{llm}, stubResolver{
		"IMG_1.jpg": {ID: "X", URL: "U"},
	})

	stats, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Photos != 1 || stats.Features != 1 || stats.Skipped != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.RunID == "" {
		t.Error("expected a run id")
	}

	fc := readCollection(t, fx.output)
	if len(fc.Features) != 1 {
		t.Fatalf("got %d features", len(fc.Features))
	}
	f := fc.Features[0]
	pt := f.Point()
	if pt[0] != 6.0 || pt[1] != 45.0 {
		t.Errorf("geometry = %v, want [6 45]", pt)
	}

	want := map[string]string{
		"filename":          "IMG_1.jpg",
		"tourism":           "information",
		"information":       "guidepost",
		"hiking":            "yes",
		"name:llm:1":        "Col du Mont",
		"name:llm:all":      "Col du Mont",
		"panoramax":         "X",
		"panoramax:hd_href": "U",
	}
	got := map[string]string{}
	for k, v := range f.Properties {
		got[k] = fmt.Sprint(v)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("properties = %v, want %v", got, want)
	}
}

func TestRunSkipsPhotosWithoutLocation(t *testing.T) {
	fx := newFixture(t)
	fx.photo(t, "IMG_1.jpg", 45.0, 6.0)
	if err := exiftest.WritePlainJPEG(filepath.Join(fx.photos, "IMG_2.jpg")); err != nil {
		t.Fatal(err)
	}
	// Not a photo.
	if err := os.WriteFile(filepath.Join(fx.photos, "_geovisio.toml"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	o := newOrchestrator(t, fx, Options{}, nil, nil)
	stats, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Photos != 2 || stats.Features != 1 || stats.Skipped != 1 {
		t.Errorf("stats = %+v", stats)
	}

	fc := readCollection(t, fx.output)
	if len(fc.Features) != 1 {
		t.Fatalf("got %d features", len(fc.Features))
	}
	if name := fc.Features[0].Properties.MustString("filename"); name != "IMG_1.jpg" {
		t.Errorf("filename = %q", name)
	}
	if _, ok := fc.Features[0].Properties["panoramax"]; ok {
		t.Error("unexpected panoramax property without a resolver")
	}
}

func TestRunWritesEmptyCollection(t *testing.T) {
	fx := newFixture(t)
	if err := os.WriteFile(fx.output, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}
	o := newOrchestrator(t, fx, Options{}, nil, nil)
	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fc := readCollection(t, fx.output); len(fc.Features) != 0 {
		t.Errorf("got %d features", len(fc.Features))
	}
}

func TestRunParallelNoLostOrDuplicateFeatures(t *testing.T) {
	fx := newFixture(t)
	const n = 24
	for i := 1; i <= n; i++ {
		name := fmt.Sprintf("IMG_%02d.jpg", i)
		fx.photo(t, name, 45+float64(i)/100, 6)
		fx.crop(t, name, crop.KindTop, 1)
		fx.crop(t, name, crop.KindDestination, 1)
		fx.crop(t, name, crop.KindDestination, 2)
	}

	ocr := &stubBackend{
		name:     "ocr",
		text:     func(path string) string { return filepath.Base(path) },
		maxDelay: 5 * time.Millisecond,
	}
	o := newOrchestrator(t, fx, Options{Parallel: true, Workers: 4}, []textract.Backend{ocr}, stubResolver{})

	stats, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Features != n {
		t.Errorf("Features = %d, want %d", stats.Features, n)
	}

	fc := readCollection(t, fx.output)
	if len(fc.Features) != n {
		t.Fatalf("file holds %d features, want %d", len(fc.Features), n)
	}
	seen := map[string]bool{}
	for _, f := range fc.Features {
		name := f.Properties.MustString("filename")
		if seen[name] {
			t.Errorf("duplicate feature %s", name)
		}
		seen[name] = true

		base := crop.BaseName(name)
		if got := f.Properties.MustString("dest:ocr:2", ""); got != base+"_destination_2.jpg" {
			t.Errorf("%s: dest:ocr:2 = %q", name, got)
		}
	}

	if ocr.maxSeen > 4 {
		t.Errorf("saw %d concurrent calls with 4 workers", ocr.maxSeen)
	}
}

func TestRunSequentialOneAtATime(t *testing.T) {
	fx := newFixture(t)
	for i := 1; i <= 5; i++ {
		name := fmt.Sprintf("IMG_%d.jpg", i)
		fx.photo(t, name, 45, 6)
		fx.crop(t, name, crop.KindTop, 1)
	}
	llm := &stubBackend{name: "llm", text: func(string) string { return "x" }, maxDelay: 2 * time.Millisecond}
	o := newOrchestrator(t, fx, Options{Parallel: false, Workers: 4}, []textract.Backend{llm}, nil)

	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if llm.maxSeen != 1 {
		t.Errorf("saw %d concurrent calls in sequential mode", llm.maxSeen)
	}

	// Sequential mode keeps name order.
	fc := readCollection(t, fx.output)
	for i, f := range fc.Features {
		if want := fmt.Sprintf("IMG_%d.jpg", i+1); f.Properties.MustString("filename") != want {
			t.Errorf("feature %d is %s, want %s", i, f.Properties.MustString("filename"), want)
		}
	}
}

func TestRunCancelled(t *testing.T) {
	fx := newFixture(t)
	fx.photo(t, "IMG_1.jpg", 45, 6)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, parallel := range []bool{false, true} {
		o := newOrchestrator(t, fx, Options{Parallel: parallel}, nil, nil)
		if _, err := o.Run(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("parallel=%v: expected context.Canceled, got %v", parallel, err)
		}
	}
}

func TestRunMissingPhotoDir(t *testing.T) {
	fx := newFixture(t)
	fx.photos = filepath.Join(fx.photos, "missing")
	o := newOrchestrator(t, fx, Options{}, nil, nil)
	if _, err := o.Run(context.Background()); err == nil {
		t.Error("expected error for missing photo directory")
	}
}

func TestListPhotos(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.jpg", "a.JPG", "c.png", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.jpg"), 0755); err != nil {
		t.Fatal(err)
	}

	got, err := ListPhotos(dir)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"a.JPG", "b.jpg"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ListPhotos = %v, want %v", got, want)
	}
}
