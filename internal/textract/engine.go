package textract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/Binnette/hiking-signs-ai/internal/crop"
	"github.com/Binnette/hiking-signs-ai/internal/logging"
)

// Separator joins the answers recorded under an "all" key.
const Separator = " ;\n"

// Request is one extraction call.
type Request struct {
	// Path is the crop image file.
	Path string
	// Facet is the part of the sign the crop shows.
	Facet Facet
	// Prompt is the instruction for back-ends that take one. Others ignore it.
	Prompt string
}

// Backend extracts text from a crop image.
type Backend interface {
	Name() string
	Extract(ctx context.Context, req Request) (string, error)
}

// Options configures an Engine.
type Options struct {
	// Prompts holds the instruction sent with each facet's crops.
	Prompts map[Facet]string
	// Timeout bounds each Extract call. Zero means no limit.
	Timeout time.Duration
}

// Engine fuses back-end answers over the crops of a photo.
type Engine struct {
	backends []Backend
	opts     Options
	log      *logging.Logger
}

// NewEngine creates an engine over backends, which are called in order for
// every crop. Names must be valid and unique.
func NewEngine(backends []Backend, opts Options, log *logging.Logger) (*Engine, error) {
	seen := make(map[string]bool, len(backends))
	for _, b := range backends {
		name := b.Name()
		if err := ValidateBackendName(name); err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate back-end %q", name)
		}
		seen[name] = true
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Engine{backends: backends, opts: opts, log: log}, nil
}

// Backends returns the back-end names in call order.
func (e *Engine) Backends() []string {
	names := make([]string, len(e.backends))
	for i, b := range e.backends {
		names[i] = b.Name()
	}
	return names
}

// Fuse runs every back-end over every crop of the photo base, top crops
// first.
//
// Parameters:
//   - ctx: Bounds every back-end call; Options.Timeout applies per call.
//   - base: Photo file name without extension.
//   - loc: Source of the crop paths for each kind.
//
// Returns:
//   - *Properties: Per-crop keys then the "all" keys of each facet, in order.
//   - error: Only the cancellation of ctx. The properties gathered so far are
//     returned with it.
//
// # Errors
//
// A failed or empty extraction omits that key and is logged; it never fails
// the photo.
func (e *Engine) Fuse(ctx context.Context, base string, loc crop.Locator) (*Properties, error) {
	props := NewProperties()
	for _, f := range Facets {
		paths := loc.Crops(base, f.Kind())
		if err := e.FuseFacet(ctx, f, paths, props); err != nil {
			return props, err
		}
	}
	return props, nil
}

// FuseFacet folds the answers for one facet's crops into props.
func (e *Engine) FuseFacet(ctx context.Context, f Facet, paths []string, props *Properties) error {
	if len(e.backends) == 0 || len(paths) == 0 {
		return nil
	}

	answers := make([][]string, len(e.backends))
	for _, path := range paths {
		for i, b := range e.backends {
			if err := ctx.Err(); err != nil {
				return err
			}

			text, err := e.extract(ctx, b, Request{Path: path, Facet: f, Prompt: e.opts.Prompts[f]})
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				e.log.Warn("extraction failed", "backend", b.Name(), "crop", path, "error", err)
				continue
			}
			if text == "" {
				e.log.Debug("no text", "backend", b.Name(), "crop", path)
				continue
			}

			answers[i] = append(answers[i], text)
			key, err := OrdinalKey(f, b.Name(), len(answers[i]))
			if err != nil {
				return err
			}
			props.SetKey(key, text)
		}
	}

	for i, b := range e.backends {
		if len(answers[i]) == 0 {
			continue
		}
		key, err := AllKey(f, b.Name())
		if err != nil {
			return err
		}
		props.SetKey(key, strings.Join(answers[i], Separator))
	}
	return nil
}

func (e *Engine) extract(ctx context.Context, b Backend, req Request) (string, error) {
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := b.Extract(ctx, req)
	if err != nil {
		return "", err
	}
	e.log.Debug("extracted", "backend", b.Name(), "crop", req.Path, "elapsed", time.Since(start).Round(time.Millisecond))
	return Normalize(text), nil
}

// Normalize trims surrounding whitespace and converts to NFC.
func Normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
