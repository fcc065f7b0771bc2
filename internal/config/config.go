// Package config holds the settings of both pipeline stages.
//
// Values come from Default, then an optional YAML file, then HIKING_SIGNS_*
// environment variables. The command line applies its flags last.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Binnette/hiking-signs-ai/internal/llm"
	"github.com/Binnette/hiking-signs-ai/internal/panoramax"
	"github.com/Binnette/hiking-signs-ai/internal/pipeline"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = "hiking-signs.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HIKING_SIGNS_"

// ManifestFile is the Panoramax sidecar name inside the photo directory.
const ManifestFile = "_geovisio.toml"

// Backends selects and configures the text-extraction back-ends.
type Backends struct {
	OCR                  bool     `yaml:"ocr"`
	OCRLanguages         []string `yaml:"ocr_languages"`
	LLM                  bool     `yaml:"llm"`
	LLMModel             string   `yaml:"llm_model"`
	LLMEndpoint          string   `yaml:"llm_endpoint"`
	LLMPromptTop         string   `yaml:"llm_prompt_top"`
	LLMPromptDest        string   `yaml:"llm_prompt_dest"`
	LLMRequestsPerSecond float64  `yaml:"llm_requests_per_second"`
}

// Config is the full configuration.
type Config struct {
	PhotoDir   string `yaml:"photo_dir"`
	CropDir    string `yaml:"crop_dir"`
	Detections string `yaml:"detections"`
	// Manifest defaults to <photo_dir>/_geovisio.toml when empty.
	Manifest string `yaml:"manifest"`
	Output   string `yaml:"output"`

	MinScore       float64       `yaml:"min_score"`
	Workers        int           `yaml:"workers"`
	BackendTimeout time.Duration `yaml:"backend_timeout"`

	Backends Backends `yaml:"backends"`

	PanoramaxBaseURL string `yaml:"panoramax_base_url"`
	DebugOverlay     bool   `yaml:"debug_overlay"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		PhotoDir:   "./photos/HikingSigns",
		CropDir:    "./crop",
		Detections: "./detections.json",
		Output:     "hikingSigns.geojson",
		MinScore:   0.7,
		Workers:    pipeline.DefaultWorkers,
		Backends: Backends{
			OCRLanguages:  []string{"fra"},
			LLM:           true,
			LLMModel:      "moondream",
			LLMEndpoint:   llm.DefaultEndpoint,
			LLMPromptTop:  llm.DefaultPrompt,
			LLMPromptDest: llm.DefaultPrompt,
		},
		PanoramaxBaseURL: panoramax.DefaultBaseURL,
	}
}

// Load builds the configuration from defaults, the YAML file at path and the
// environment. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ManifestPath returns the Panoramax sidecar location.
func (c Config) ManifestPath() string {
	if c.Manifest != "" {
		return c.Manifest
	}
	return filepath.Join(c.PhotoDir, ManifestFile)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.PhotoDir == "" {
		return fmt.Errorf("photo_dir is required")
	}
	if c.CropDir == "" {
		return fmt.Errorf("crop_dir is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.MinScore < 0 || c.MinScore > 1 {
		return fmt.Errorf("min_score must be within [0,1], got %g", c.MinScore)
	}
	if c.BackendTimeout < 0 {
		return fmt.Errorf("backend_timeout must not be negative, got %s", c.BackendTimeout)
	}
	if c.Backends.LLM && strings.TrimSpace(c.Backends.LLMModel) == "" {
		return fmt.Errorf("llm_model is required when the llm back-end is enabled")
	}
	if c.Backends.LLMRequestsPerSecond < 0 {
		return fmt.Errorf("llm_requests_per_second must not be negative, got %g", c.Backends.LLMRequestsPerSecond)
	}
	if c.Backends.OCR && len(c.Backends.OCRLanguages) == 0 {
		return fmt.Errorf("ocr_languages must not be empty when the ocr back-end is enabled")
	}
	return nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"PHOTO_DIR":          &c.PhotoDir,
		"CROP_DIR":           &c.CropDir,
		"DETECTIONS":         &c.Detections,
		"MANIFEST":           &c.Manifest,
		"OUTPUT":             &c.Output,
		"LLM_MODEL":          &c.Backends.LLMModel,
		"LLM_ENDPOINT":       &c.Backends.LLMEndpoint,
		"LLM_PROMPT_TOP":     &c.Backends.LLMPromptTop,
		"LLM_PROMPT_DEST":    &c.Backends.LLMPromptDest,
		"PANORAMAX_BASE_URL": &c.PanoramaxBaseURL,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"OCR":           &c.Backends.OCR,
		"LLM":           &c.Backends.LLM,
		"DEBUG_OVERLAY": &c.DebugOverlay,
	}
	for key, dst := range bools {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = b
		}
	}

	floats := map[string]*float64{
		"MIN_SCORE":               &c.MinScore,
		"LLM_REQUESTS_PER_SECOND": &c.Backends.LLMRequestsPerSecond,
	}
	for key, dst := range floats {
		if v, ok := lookup(key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = f
		}
	}

	if v, ok := lookup("WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sWORKERS: %w", EnvPrefix, err)
		}
		c.Workers = n
	}
	if v, ok := lookup("BACKEND_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sBACKEND_TIMEOUT: %w", EnvPrefix, err)
		}
		c.BackendTimeout = d
	}
	if v, ok := lookup("OCR_LANGUAGES"); ok {
		c.Backends.OCRLanguages = splitList(v)
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '+' || r == ' ' }) {
		out = append(out, part)
	}
	return out
}
