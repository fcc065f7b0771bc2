package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Binnette/hiking-signs-ai/internal/crop"
	"github.com/Binnette/hiking-signs-ai/internal/exif"
	"github.com/Binnette/hiking-signs-ai/internal/geofeature"
	"github.com/Binnette/hiking-signs-ai/internal/logging"
	"github.com/Binnette/hiking-signs-ai/internal/panoramax"
	"github.com/Binnette/hiking-signs-ai/internal/textract"
)

// PhotoExt is the extension of the photos processed by a run.
const PhotoExt = ".jpg"

// DefaultWorkers is the pool size in parallel mode.
const DefaultWorkers = 4

// Resolver maps a photo filename to its Panoramax picture.
type Resolver interface {
	Resolve(filename string) (*panoramax.Ref, error)
}

// Options configures an Orchestrator.
type Options struct {
	PhotoDir string
	Output   string
	// Parallel fans photos out to Workers goroutines. Otherwise photos are
	// processed one by one.
	Parallel bool
	Workers  int
}

// Stats summarises a run.
type Stats struct {
	RunID    string
	Photos   int
	Features int
	Skipped  int
	Elapsed  time.Duration
}

// Orchestrator runs the geojson stage.
type Orchestrator struct {
	opts     Options
	engine   *textract.Engine
	locator  crop.Locator
	location exif.Reader
	resolver Resolver
	log      *logging.Logger

	features atomic.Int64
	skipped  atomic.Int64
}

// New creates an orchestrator. A nil resolver disables Panoramax enrichment.
func New(opts Options, engine *textract.Engine, locator crop.Locator, location exif.Reader, resolver Resolver, log *logging.Logger) *Orchestrator {
	if opts.Workers < 1 {
		opts.Workers = DefaultWorkers
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Orchestrator{
		opts:     opts,
		engine:   engine,
		locator:  locator,
		location: location,
		resolver: resolver,
		log:      log,
	}
}

// ListPhotos returns the .jpg files of dir sorted by name.
func ListPhotos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), PhotoExt) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Run processes every photo of the photo directory and writes the output
// file after each feature. Per-photo failures are logged and skipped; only
// cancellation and output write failures stop the run.
func (o *Orchestrator) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	stats := Stats{RunID: uuid.NewString()}
	log := o.log.With(stats.RunID[:8])

	photos, err := ListPhotos(o.opts.PhotoDir)
	if err != nil {
		return stats, err
	}
	stats.Photos = len(photos)

	store, err := NewStore(o.opts.Output)
	if err != nil {
		return stats, err
	}

	mode := "sequential"
	if o.opts.Parallel {
		mode = "parallel"
	}
	log.Info("Starting geojson run", "photos", len(photos), "mode", mode, "backends", strings.Join(o.engine.Backends(), ","), "output", store.Path())

	o.features.Store(0)
	o.skipped.Store(0)
	if o.opts.Parallel {
		err = o.runParallel(ctx, photos, store, log)
	} else {
		err = o.runSequential(ctx, photos, store, log)
	}
	if err == nil && store.Len() == 0 {
		err = store.Flush()
	}

	stats.Features = int(o.features.Load())
	stats.Skipped = int(o.skipped.Load())
	stats.Elapsed = time.Since(start)
	log.Info("Finished geojson run", "features", stats.Features, "skipped", stats.Skipped, "elapsed", stats.Elapsed.Round(time.Millisecond))
	return stats, err
}

func (o *Orchestrator) runSequential(ctx context.Context, photos []string, store *Store, log *logging.Logger) error {
	for _, name := range photos {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := o.handle(ctx, name, store, log); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) runParallel(ctx context.Context, photos []string, store *Store, log *logging.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Workers)
	for _, name := range photos {
		if gctx.Err() != nil {
			break
		}
		name := name
		g.Go(func() error {
			return o.handle(gctx, name, store, log)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// handle processes one photo and stores its feature. Only errors that must
// stop the run are returned.
func (o *Orchestrator) handle(ctx context.Context, name string, store *Store, log *logging.Logger) error {
	f, err := o.Process(ctx, name)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("Skipping photo", "file", name, "error", err)
		o.skipped.Add(1)
		return nil
	}
	if err := store.Append(f); err != nil {
		log.Error("Failed to write output", "file", name, "error", err)
		return err
	}
	o.features.Add(1)
	log.Debug("Feature written", "file", name, "properties", f.Properties.Len())
	return nil
}

// Process builds the feature of one photo of the photo directory.
func (o *Orchestrator) Process(ctx context.Context, filename string) (*geofeature.Feature, error) {
	path := filepath.Join(o.opts.PhotoDir, filename)
	loc, err := o.location.Location(path)
	if err != nil {
		return nil, err
	}

	fused, err := o.engine.Fuse(ctx, crop.BaseName(filename), o.locator)
	if err != nil {
		return nil, err
	}

	var ref *panoramax.Ref
	if o.resolver != nil {
		ref, err = o.resolver.Resolve(filename)
		switch {
		case errors.Is(err, panoramax.ErrNotFound):
			o.log.Warn("Photo not in Panoramax manifest", "file", filename)
		case err != nil:
			o.log.Warn("Panoramax lookup failed", "file", filename, "error", err)
		}
	}

	return geofeature.Build(filename, &loc, fused, ref), nil
}
