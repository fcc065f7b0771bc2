package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/Binnette/hiking-signs-ai/internal/textract"
)

// Name is the back-end name used in property keys.
const Name = "ocr"

// DefaultMinHeight is the height small crops are upscaled to.
const DefaultMinHeight = 96

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Word is one recognised word with its location and confidence.
type Word struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Bounds     Bounds  `json:"bounds"`
}

// Result contains the text of one image.
type Result struct {
	// FullText is all recognised text with Tesseract's spacing and newlines.
	FullText string `json:"full_text"`
	// Words may be empty if word boxes are unavailable.
	Words []Word `json:"words"`
}

// Options configures the back-end.
type Options struct {
	Languages      []string
	TessdataPrefix string
	MinConfidence  float64
	MinHeight      int
}

// Tesseract implements textract.Backend.
type Tesseract struct {
	opts Options
}

// New creates the back-end. Languages default to French.
func New(opts Options) *Tesseract {
	if len(opts.Languages) == 0 {
		opts.Languages = []string{"fra"}
	}
	if opts.MinHeight <= 0 {
		opts.MinHeight = DefaultMinHeight
	}
	return &Tesseract{opts: opts}
}

// Name implements textract.Backend.
func (t *Tesseract) Name() string { return Name }

// Extract implements textract.Backend. The prompt is ignored. Tesseract calls
// cannot be interrupted; on cancellation Extract returns immediately and the
// call finishes in the background.
func (t *Tesseract) Extract(ctx context.Context, req textract.Request) (string, error) {
	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := t.Recognize(req.Path)
		done <- outcome{res, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case o := <-done:
		if o.err != nil {
			return "", o.err
		}
		return t.text(o.res), nil
	}
}

func (t *Tesseract) text(res *Result) string {
	if t.opts.MinConfidence <= 0 || len(res.Words) == 0 {
		return res.FullText
	}
	return joinWords(res.Words, t.opts.MinConfidence)
}

// Recognize runs OCR on the crop at path.
//
// The crop is converted to grayscale and upscaled when small before it is
// handed to Tesseract. A new gosseract client is created per call.
//
// Parameters:
//   - path: Crop file written by the crop stage (JPEG).
//
// Returns:
//   - *Result: FullText plus the recognised words with their confidence.
//   - error: Non-nil if the crop cannot be loaded or Tesseract fails.
func (t *Tesseract) Recognize(path string) (*Result, error) {
	data, err := t.prepare(path)
	if err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if t.opts.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.opts.TessdataPrefix); err != nil {
			return nil, fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(t.opts.Languages...); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return &Result{FullText: text, Words: []Word{}}, nil
	}

	words := make([]Word, 0, len(boxes))
	for _, box := range boxes {
		if strings.TrimSpace(box.Word) == "" {
			continue
		}
		words = append(words, Word{
			Text:       box.Word,
			Confidence: float64(box.Confidence) / 100.0,
			Bounds: Bounds{
				X1: box.Box.Min.X,
				Y1: box.Box.Min.Y,
				X2: box.Box.Max.X,
				Y2: box.Box.Max.Y,
			},
		})
	}

	return &Result{FullText: text, Words: words}, nil
}

// prepare loads the crop, converts it to grayscale, upscales it when short
// and returns it PNG-encoded.
func (t *Tesseract) prepare(path string) ([]byte, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open crop: %w", err)
	}

	gray := imaging.Grayscale(img)
	if h := gray.Bounds().Dy(); h < t.opts.MinHeight {
		gray = imaging.Resize(gray, 0, t.opts.MinHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return nil, fmt.Errorf("failed to encode crop: %w", err)
	}
	return buf.Bytes(), nil
}

// joinWords keeps words at or above minConf. Words whose top edge is below
// the previous word's bottom edge start a new line.
func joinWords(words []Word, minConf float64) string {
	var (
		b       strings.Builder
		lastBot = -1
		started bool
	)
	for _, w := range words {
		if w.Confidence < minConf {
			continue
		}
		if started {
			if w.Bounds.Y1 >= lastBot {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(w.Text)
		lastBot = w.Bounds.Y2
		started = true
	}
	return b.String()
}
