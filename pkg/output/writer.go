// Package output encodes rendered pixels. Pixels arrive in raster order:
// rows top to bottom, each row left to right.
package output

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"strings"
)

// ErrUnknownFormat is returned by NewWriter for unsupported format names
var ErrUnknownFormat = errors.New("unknown output format")

// PixelWriter receives a rendered image one pixel at a time
type PixelWriter interface {
	WriteHeader(width, height int) error
	WritePixel(c color.RGBA) error
	// EndRow is called after the last pixel of every row
	EndRow() error
	// Close finishes the image. It does not close the underlying stream.
	Close() error
}

// Formats lists the supported format names
func Formats() []string {
	return []string{"ppm", "png"}
}

// Extension returns the file extension (with dot) for a format. The empty
// format is PPM, as in NewWriter.
func Extension(format string) string {
	if format == "" {
		return ".ppm"
	}
	return "." + strings.ToLower(format)
}

// NewWriter creates a PixelWriter for the named format
func NewWriter(format string, w io.Writer) (PixelWriter, error) {
	switch strings.ToLower(format) {
	case "ppm", "":
		return NewPPMWriter(w), nil
	case "png":
		return NewPNGWriter(w), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
