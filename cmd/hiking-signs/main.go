package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"

	"github.com/Binnette/hiking-signs-ai/internal/config"
	"github.com/Binnette/hiking-signs-ai/internal/crop"
	"github.com/Binnette/hiking-signs-ai/internal/detection"
	"github.com/Binnette/hiking-signs-ai/internal/exif"
	"github.com/Binnette/hiking-signs-ai/internal/llm"
	"github.com/Binnette/hiking-signs-ai/internal/logging"
	"github.com/Binnette/hiking-signs-ai/internal/ocr"
	"github.com/Binnette/hiking-signs-ai/internal/panoramax"
	"github.com/Binnette/hiking-signs-ai/internal/pipeline"
	"github.com/Binnette/hiking-signs-ai/internal/textract"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "--version", "-v", "version":
		fmt.Printf("hiking-signs %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	case "--help", "-h", "help":
		usage()
		return
	case "crop", "geojson":
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	// A missing .env is fine.
	_ = godotenv.Load(".env")

	log := logging.New("hiking-signs")
	cfg, err := loadConfig(os.Args[1], os.Args[2:])
	if err != nil {
		log.Error("Invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if os.Args[1] == "crop" {
		err = runCrop(ctx, cfg, log.With("crop"))
	} else {
		err = runGeoJSON(ctx, cfg, log.With("geojson"))
	}
	if err != nil {
		log.Error("Run failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("hiking-signs - rectify hiking-sign crops and build a GeoJSON of guideposts")
	fmt.Println()
	fmt.Println("Usage: hiking-signs <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  crop       Cut rectified sign crops from detector output")
	fmt.Println("  geojson    Read crops and photo positions, write the GeoJSON file")
	fmt.Println("  version    Print version information")
	fmt.Println("  help       Print this help message")
	fmt.Println()
	fmt.Println("Run 'hiking-signs <command> -h' for the flags of a command.")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  HIKING_SIGNS_LOG_LEVEL=debug    Enable debug logging")
	fmt.Println("  HIKING_SIGNS_<SETTING>          Override a configuration setting, e.g. HIKING_SIGNS_WORKERS=8")
}

// loadConfig layers the configuration file, the environment and the
// command-line flags, in that order.
func loadConfig(cmd string, args []string) (config.Config, error) {
	flags := flag.NewFlagSet(cmd, flag.ContinueOnError)
	var (
		configPath   = flags.String("config", config.DefaultFile, "configuration file")
		photos       = flags.String("photos", "", "photo directory")
		crops        = flags.String("crops", "", "crop directory")
		detections   = flags.String("detections", "", "detector output file (crop)")
		manifest     = flags.String("manifest", "", "Panoramax sidecar manifest (geojson)")
		output       = flags.String("output", "", "GeoJSON output file (geojson)")
		workers      = flags.Int("workers", 0, "worker pool size")
		minScore     = flags.Float64("min-score", 0, "ignore regions scoring at or below this (crop)")
		useOCR       = flags.Bool("ocr", false, "enable the Tesseract back-end (geojson)")
		useLLM       = flags.Bool("llm", false, "enable the LLM back-end (geojson)")
		llmModel     = flags.String("llm-model", "", "LLM model name (geojson)")
		debugOverlay = flags.Bool("debug-overlay", false, "write quadrilateral overlays (crop)")
	)
	if err := flags.Parse(args); err != nil {
		return config.Config{}, err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return cfg, err
	}

	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "photos":
			cfg.PhotoDir = *photos
		case "crops":
			cfg.CropDir = *crops
		case "detections":
			cfg.Detections = *detections
		case "manifest":
			cfg.Manifest = *manifest
		case "output":
			cfg.Output = *output
		case "workers":
			cfg.Workers = *workers
		case "min-score":
			cfg.MinScore = *minScore
		case "ocr":
			cfg.Backends.OCR = *useOCR
		case "llm":
			cfg.Backends.LLM = *useLLM
		case "llm-model":
			cfg.Backends.LLMModel = *llmModel
		case "debug-overlay":
			cfg.DebugOverlay = *debugOverlay
		}
	})
	return cfg, cfg.Validate()
}

func runCrop(ctx context.Context, cfg config.Config, log *logging.Logger) error {
	det, err := detection.ReadDetections(cfg.Detections)
	if err != nil {
		return err
	}

	stage := crop.NewStage(crop.Options{
		PhotoDir:     cfg.PhotoDir,
		CropDir:      cfg.CropDir,
		MinScore:     cfg.MinScore,
		Workers:      cfg.Workers,
		DebugOverlay: cfg.DebugOverlay,
	}, log)
	ix, stats, err := stage.Run(ctx, det)
	if err != nil {
		return err
	}
	log.Info("Crops written", "images", stats.Images, "regions", stats.Regions, "written", stats.Written, "skipped", stats.Skipped, "index", crop.IndexPath(cfg.CropDir), "entries", ix.Len())
	return nil
}

func runGeoJSON(ctx context.Context, cfg config.Config, log *logging.Logger) error {
	backends, err := buildBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	engine, err := textract.NewEngine(backends, textract.Options{
		Prompts: map[textract.Facet]string{
			textract.FacetName: cfg.Backends.LLMPromptTop,
			textract.FacetDest: cfg.Backends.LLMPromptDest,
		},
		Timeout: cfg.BackendTimeout,
	}, log.With("fusion"))
	if err != nil {
		return err
	}

	locator, err := crop.OpenLocator(cfg.CropDir)
	if err != nil {
		return err
	}
	if _, probing := locator.(crop.Prober); probing {
		log.Warn("No crop index, probing crop files on disk", "dir", cfg.CropDir)
	}

	resolver, err := panoramax.Load(cfg.ManifestPath(), cfg.PanoramaxBaseURL, log.With("panoramax"))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		log.Warn("No Panoramax manifest, features will not be linked", "path", cfg.ManifestPath())
		resolver = panoramax.Empty(cfg.PanoramaxBaseURL)
	}

	o := pipeline.New(pipeline.Options{
		PhotoDir: cfg.PhotoDir,
		Output:   cfg.Output,
		Parallel: cfg.Backends.OCR,
		Workers:  cfg.Workers,
	}, engine, locator, exif.FileReader{}, resolver, log)

	_, err = o.Run(ctx)
	return err
}

func buildBackends(ctx context.Context, cfg config.Config, log *logging.Logger) ([]textract.Backend, error) {
	var backends []textract.Backend
	if cfg.Backends.OCR {
		backends = append(backends, ocr.New(ocr.Options{Languages: cfg.Backends.OCRLanguages}))
	}
	if cfg.Backends.LLM {
		client, err := llm.New(llm.Options{
			Endpoint:          cfg.Backends.LLMEndpoint,
			Model:             cfg.Backends.LLMModel,
			RequestsPerSecond: cfg.Backends.LLMRequestsPerSecond,
		}, log.With("llm"))
		if err != nil {
			return nil, err
		}
		if err := client.CheckModel(ctx); err != nil {
			log.Warn("LLM model check failed", "model", client.Model(), "error", err)
		}
		backends = append(backends, client)
	}

	names := make([]string, len(backends))
	for i, b := range backends {
		names[i] = b.Name()
	}
	if len(backends) == 0 {
		log.Warn("No text-extraction back-end enabled, features will carry tags only")
	} else {
		log.Info("Back-ends enabled", "backends", strings.Join(names, ","))
	}
	return backends, nil
}
