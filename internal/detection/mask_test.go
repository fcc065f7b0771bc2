package detection

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestMaskFromImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 4))
	img.SetGray(1, 1, color.Gray{Y: 255})
	img.SetGray(2, 1, color.Gray{Y: 40})
	img.SetGray(7, 3, color.Gray{Y: 128})

	m := MaskFromImage(img)

	if m.Width != 8 || m.Height != 4 {
		t.Fatalf("size: got %dx%d", m.Width, m.Height)
	}
	if m.Count() != 3 {
		t.Errorf("Count: got %d, want 3", m.Count())
	}
	for _, p := range []Point{{1, 1}, {2, 1}, {7, 3}} {
		if !m.At(p.X, p.Y) {
			t.Errorf("expected foreground at %v", p)
		}
	}
	if m.At(0, 0) {
		t.Error("expected background at (0,0)")
	}
}

func TestMaskFromImage_TransparentIsBackground(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 6, 6))
	img.SetNRGBA(2, 3, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	m := MaskFromImage(img)

	if m.Count() != 1 || !m.At(2, 3) {
		t.Errorf("expected only (2,3) foreground, got %d pixels", m.Count())
	}
}

func TestMask_OutOfBounds(t *testing.T) {
	m := NewMask(4, 4)
	m.Set(-1, 0, true)
	m.Set(4, 4, true)
	m.FillRect(-5, -5, 2, 2)

	if m.At(-1, 0) || m.At(10, 10) {
		t.Error("out-of-bounds reads must be background")
	}
	if m.Count() != 4 {
		t.Errorf("Count: got %d, want 4", m.Count())
	}
}

func TestLoadMask(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 20, 10))
	for y := 2; y < 8; y++ {
		for x := 3; x < 15; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}

	path := filepath.Join(t.TempDir(), "mask.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	m, err := LoadMask(path)
	if err != nil {
		t.Fatalf("LoadMask failed: %v", err)
	}
	if m.Count() != 6*12 {
		t.Errorf("Count: got %d, want %d", m.Count(), 6*12)
	}

	if _, err := LoadMask(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected error for missing mask")
	}
}
