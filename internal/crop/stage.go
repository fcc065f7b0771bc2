package crop

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"path/filepath"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/Binnette/hiking-signs-ai/internal/detection"
	"github.com/Binnette/hiking-signs-ai/internal/imaging"
	"github.com/Binnette/hiking-signs-ai/internal/logging"
	"github.com/Binnette/hiking-signs-ai/internal/rectify"
)

// Options configures a crop Stage.
type Options struct {
	PhotoDir     string
	CropDir      string
	MinScore     float64
	Workers      int
	DebugOverlay bool
	JPEGQuality  int
}

// Stats summarises a crop run.
type Stats struct {
	Images  int
	Regions int
	Written int
	Skipped int
}

// Stage writes rectified crops for the detections of a batch of photos.
type Stage struct {
	opts Options
	log  *logging.Logger

	regions atomic.Int64
	written atomic.Int64
	skipped atomic.Int64
}

// NewStage creates a crop stage.
func NewStage(opts Options, log *logging.Logger) *Stage {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Stage{
		opts: opts,
		log:  log,
	}
}

// Run crops every eligible region of det and saves the crop index.
//
// Photos are processed by a pool of Workers goroutines. Regions below
// MinScore or whose class maps to no crop kind are ignored.
//
// Parameters:
//   - ctx: Cancels the run. Photos not yet started are skipped.
//   - det: Parsed detector output.
//
// Returns:
//   - *Index: Every crop written, also saved to IndexPath(CropDir).
//   - Stats: Image, region, written and skipped counts.
//   - error: The context error on cancellation (the index is not saved), or
//     an index write failure.
//
// # Errors
//
// Per-photo and per-region failures (unreadable photo, empty mask, degenerate
// quadrilateral, crop write error) are logged and counted as skipped.
func (s *Stage) Run(ctx context.Context, det *detection.Detections) (*Index, Stats, error) {
	ix := NewIndex(s.opts.CropDir)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for _, img := range det.Images {
		img := img
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s.processImage(img, ix)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return ix, s.stats(len(det.Images)), err
	}
	if err := ctx.Err(); err != nil {
		return ix, s.stats(len(det.Images)), err
	}

	if err := ix.Save(); err != nil {
		return ix, s.stats(len(det.Images)), err
	}

	stats := s.stats(len(det.Images))
	s.log.Info("crop stage finished",
		"images", stats.Images, "regions", stats.Regions,
		"written", stats.Written, "skipped", stats.Skipped)
	return ix, stats, nil
}

func (s *Stage) stats(images int) Stats {
	return Stats{
		Images:  images,
		Regions: int(s.regions.Load()),
		Written: int(s.written.Load()),
		Skipped: int(s.skipped.Load()),
	}
}

// processImage handles one photo. Regions are visited in detector order so the
// ordinals are reproducible.
func (s *Stage) processImage(det detection.ImageDetections, ix *Index) {
	photoPath := filepath.Join(s.opts.PhotoDir, det.Image)
	base := BaseName(det.Image)

	regions := make([]detection.Region, len(det.Regions))
	copy(regions, det.Regions)
	sort.SliceStable(regions, func(i, j int) bool { return regions[i].Index < regions[j].Index })

	var (
		photo   image.Image
		overlay *imaging.Overlay
		ordinal = map[Kind]int{}
	)

	for _, r := range regions {
		kind, ok := KindForClass(r.Class)
		if !ok || r.Score <= s.opts.MinScore {
			continue
		}
		s.regions.Add(1)

		if photo == nil {
			var err error
			photo, err = imaging.Load(photoPath)
			if err != nil {
				s.log.Warn("skipping photo", "image", det.Image, "error", err)
				s.skipped.Add(1)
				return
			}
			if s.opts.DebugOverlay {
				overlay = imaging.NewOverlay(photo)
			}
		}

		cropImg, corners, err := s.extract(photo, r)
		if err != nil {
			if errors.Is(err, detection.ErrEmptyRegion) {
				s.log.Debug("skipping empty region", "image", det.Image, "region", r.Index, "error", err)
			} else {
				s.log.Warn("skipping region", "image", det.Image, "region", r.Index, "error", err)
			}
			s.skipped.Add(1)
			continue
		}

		n := ordinal[kind] + 1
		path := Path(s.opts.CropDir, base, kind, n)
		if err := imaging.SaveJPEG(cropImg, path, s.opts.JPEGQuality); err != nil {
			s.log.Warn("failed to write crop", "path", path, "error", err)
			s.skipped.Add(1)
			continue
		}
		ordinal[kind] = n
		s.written.Add(1)

		ix.Add(Entry{
			Image:   det.Image,
			Kind:    kind,
			Ordinal: n,
			Path:    path,
			Class:   string(r.Class),
			Score:   r.Score,
			Region:  r.Index,
		})
		s.log.Debug("crop written", "path", path, "score", r.Score)

		if overlay != nil {
			overlay.AddQuad(toImagePoints(corners), classColor(r.Class), n)
		}
	}

	if overlay != nil && overlay.Len() > 0 {
		path := filepath.Join(s.opts.CropDir, "debug", base+"_overlay.png")
		if err := overlay.Save(path); err != nil {
			s.log.Warn("failed to write overlay", "path", path, "error", err)
		}
	}
}

// extract produces the crop for one region: rectified when a mask is present,
// an axis-aligned cut of the box otherwise.
func (s *Stage) extract(photo image.Image, r detection.Region) (image.Image, detection.Corners, error) {
	if r.HasMask() {
		mask, err := detection.LoadMask(r.MaskPath)
		if err != nil {
			return nil, detection.Corners{}, err
		}
		b := photo.Bounds()
		if mask.Width != b.Dx() || mask.Height != b.Dy() {
			return nil, detection.Corners{}, fmt.Errorf("mask is %dx%d but photo is %dx%d",
				mask.Width, mask.Height, b.Dx(), b.Dy())
		}
		quad, err := detection.QuadFromMask(mask)
		if err != nil {
			return nil, detection.Corners{}, err
		}
		corners := detection.OrderCorners(quad)
		out, err := rectify.Rectify(photo, corners)
		if err != nil {
			return nil, detection.Corners{}, err
		}
		return out, corners, nil
	}

	quad, err := detection.QuadFromBox(*r.Box)
	if err != nil {
		return nil, detection.Corners{}, err
	}
	b := *r.Box
	out, err := imaging.CropBox(photo,
		int(math.Round(b.X1)), int(math.Round(b.Y1)),
		int(math.Round(b.X2)), int(math.Round(b.Y2)))
	if err != nil {
		return nil, detection.Corners{}, err
	}
	return out, detection.OrderCorners(quad), nil
}

func classColor(c detection.Class) color.RGBA {
	for i, known := range detection.DefaultClasses {
		if known == c {
			return imaging.PaletteColor(i, len(detection.DefaultClasses))
		}
	}
	return imaging.PaletteColor(0, 1)
}

func toImagePoints(c detection.Corners) [4]image.Point {
	var out [4]image.Point
	for i, p := range c.Points() {
		out[i] = image.Pt(p.X, p.Y)
	}
	return out
}
