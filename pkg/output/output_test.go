package output

import (
	"bytes"
	"errors"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

func writeTestImage(t *testing.T, w PixelWriter) {
	t.Helper()
	pixels := [][]color.RGBA{
		{{R: 255, G: 0, B: 0, A: 255}, {R: 0, G: 255, B: 0, A: 255}},
		{{R: 0, G: 0, B: 255, A: 255}, {R: 10, G: 20, B: 30, A: 255}},
	}

	if err := w.WriteHeader(2, 2); err != nil {
		t.Fatalf("WriteHeader failed: %v", err)
	}
	for _, row := range pixels {
		for _, c := range row {
			if err := w.WritePixel(c); err != nil {
				t.Fatalf("WritePixel failed: %v", err)
			}
		}
		if err := w.EndRow(); err != nil {
			t.Fatalf("EndRow failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestPPMWriter_Format(t *testing.T) {
	var buf bytes.Buffer
	writeTestImage(t, NewPPMWriter(&buf))

	expected := "P3\n2 2\n255\n255 0 0\n0 255 0\n0 0 255\n10 20 30\n"
	if buf.String() != expected {
		t.Errorf("Unexpected PPM output:\n%q\nexpected:\n%q", buf.String(), expected)
	}
}

type failingWriter struct {
	writes int
}

func (f *failingWriter) Write(p []byte) (int, error) {
	f.writes++
	return 0, errors.New("disk full")
}

func TestPPMWriter_ErrorIsSticky(t *testing.T) {
	dst := &failingWriter{}
	w := NewPPMWriter(dst)

	// Buffered writes succeed until the buffer is flushed
	if err := w.WriteHeader(1, 1); err != nil {
		t.Fatalf("Unexpected buffered error: %v", err)
	}
	if err := w.EndRow(); err == nil {
		t.Fatal("Expected flush error")
	}
	if err := w.WritePixel(color.RGBA{}); err == nil {
		t.Error("Expected error to persist after failed flush")
	}
	if err := w.Close(); err == nil {
		t.Error("Expected Close to report the earlier error")
	}
	if dst.writes != 1 {
		t.Errorf("Expected a single write attempt, got %d", dst.writes)
	}
}

type flushRecorder struct {
	bytes.Buffer
	flushes int
}

func (f *flushRecorder) Flush() { f.flushes++ }

func TestPPMWriter_EndRowFlushesDestination(t *testing.T) {
	dst := &flushRecorder{}
	writeTestImage(t, NewPPMWriter(dst))

	if dst.flushes != 2 {
		t.Errorf("Expected one destination flush per row, got %d", dst.flushes)
	}
}

func TestPNGWriter_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	writeTestImage(t, NewPNGWriter(&buf))

	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("Failed to decode PNG: %v", err)
	}
	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 2 {
		t.Fatalf("Expected 2x2 image, got %v", img.Bounds())
	}

	r, g, b, _ := img.At(1, 1).RGBA()
	if r>>8 != 10 || g>>8 != 20 || b>>8 != 30 {
		t.Errorf("Expected pixel (10,20,30) at (1,1), got (%d,%d,%d)", r>>8, g>>8, b>>8)
	}
	r, _, _, _ = img.At(0, 0).RGBA()
	if r>>8 != 255 {
		t.Errorf("Expected red pixel at (0,0), got r=%d", r>>8)
	}
}

func TestPNGWriter_PixelBeforeHeader(t *testing.T) {
	w := NewPNGWriter(&bytes.Buffer{})
	if err := w.WritePixel(color.RGBA{}); err == nil {
		t.Error("Expected error writing pixel before header")
	}
}

func TestImageWriter(t *testing.T) {
	w := NewImageWriter()
	writeTestImage(t, w)

	img := w.Image()
	if got := img.RGBAAt(0, 1); got != (color.RGBA{R: 0, G: 0, B: 255, A: 255}) {
		t.Errorf("Expected blue at (0,1), got %v", got)
	}
}

func TestNewWriter(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"ppm", false},
		{"PPM", false},
		{"png", false},
		{"", false},
		{"jpeg", true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			w, err := NewWriter(tt.format, &bytes.Buffer{})
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownFormat) {
					t.Errorf("Expected ErrUnknownFormat, got %v", err)
				}
				if err != nil && !strings.Contains(err.Error(), tt.format) {
					t.Errorf("Expected error to name the format, got %v", err)
				}
				return
			}
			if err != nil || w == nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}
