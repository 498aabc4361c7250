package output

import (
	"errors"
	"image/color"
	"io"

	"github.com/fogleman/gg"
)

var errNoHeader = errors.New("pixel written before header")

// PNGWriter draws pixels onto a gg context and encodes it as PNG on Close
type PNGWriter struct {
	dst    io.Writer
	dc     *gg.Context
	width  int
	cursor int
}

// NewPNGWriter creates a PNG writer on w
func NewPNGWriter(w io.Writer) *PNGWriter {
	return &PNGWriter{dst: w}
}

// WriteHeader allocates the drawing context
func (p *PNGWriter) WriteHeader(width, height int) error {
	p.dc = gg.NewContext(width, height)
	p.width = width
	p.cursor = 0
	return nil
}

// WritePixel sets the next pixel in raster order
func (p *PNGWriter) WritePixel(c color.RGBA) error {
	if p.dc == nil {
		return errNoHeader
	}
	x, y := p.cursor%p.width, p.cursor/p.width
	p.dc.SetRGB255(int(c.R), int(c.G), int(c.B))
	p.dc.SetPixel(x, y)
	p.cursor++
	return nil
}

// EndRow is a no-op; PNG output is written in one piece
func (p *PNGWriter) EndRow() error {
	return nil
}

// Close encodes the image
func (p *PNGWriter) Close() error {
	if p.dc == nil {
		return errNoHeader
	}
	return p.dc.EncodePNG(p.dst)
}
