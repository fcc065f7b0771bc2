package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogger_KeyValues(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("crop", &buf)

	l.Info("crop written", "path", "crop/top/a_top_1.jpg", "ordinal", 1)

	out := buf.String()
	for _, want := range []string{"[crop]", "[INFO]", "crop written", "path=crop/top/a_top_1.jpg", "ordinal=1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestLogger_OddKeyValuesIgnored(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("x", &buf)

	l.Warn("dangling", "key")

	if strings.Contains(buf.String(), "key=") {
		t.Errorf("dangling key should not be printed: %q", buf.String())
	}
}

func TestLogger_DebugToggle(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("x", &buf)

	SetDebug(false)
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug output while disabled: %q", buf.String())
	}

	SetDebug(true)
	defer SetDebug(false)
	l.Debug("shown")
	if !strings.Contains(buf.String(), "[DEBUG] shown") {
		t.Errorf("debug output missing: %q", buf.String())
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("pipeline", &buf).With("fusion")

	l.Error("boom")

	if !strings.Contains(buf.String(), "[pipeline/fusion]") {
		t.Errorf("sub prefix missing: %q", buf.String())
	}
}
