package output

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
)

// PPMWriter streams a plain-text P3 portable pixmap:
//
//	P3
//	<width> <height>
//	255
//	<r> <g> <b>    (one line per pixel)
type PPMWriter struct {
	out *bufio.Writer
	dst io.Writer
	err error
}

// NewPPMWriter creates a buffered PPM writer on w
func NewPPMWriter(w io.Writer) *PPMWriter {
	return &PPMWriter{out: bufio.NewWriter(w), dst: w}
}

// WriteHeader writes the P3 header
func (p *PPMWriter) WriteHeader(width, height int) error {
	if p.err != nil {
		return p.err
	}
	_, p.err = fmt.Fprintf(p.out, "P3\n%d %d\n255\n", width, height)
	return p.err
}

// WritePixel writes a single "r g b" line
func (p *PPMWriter) WritePixel(c color.RGBA) error {
	if p.err != nil {
		return p.err
	}
	_, p.err = fmt.Fprintf(p.out, "%d %d %d\n", c.R, c.G, c.B)
	return p.err
}

// EndRow pushes buffered lines to the destination. If the destination can
// flush itself (an http.ResponseWriter, for example) it is flushed too.
func (p *PPMWriter) EndRow() error {
	if err := p.flush(); err != nil {
		return err
	}
	if f, ok := p.dst.(interface{ Flush() }); ok {
		f.Flush()
	}
	return nil
}

// Close flushes any buffered output
func (p *PPMWriter) Close() error {
	return p.flush()
}

func (p *PPMWriter) flush() error {
	if p.err != nil {
		return p.err
	}
	p.err = p.out.Flush()
	return p.err
}
