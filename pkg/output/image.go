package output

import (
	"image"
	"image/color"
)

// ImageWriter collects pixels into an in-memory RGBA image
type ImageWriter struct {
	img    *image.RGBA
	cursor int
}

// NewImageWriter creates an empty ImageWriter
func NewImageWriter() *ImageWriter {
	return &ImageWriter{}
}

func (iw *ImageWriter) WriteHeader(width, height int) error {
	iw.img = image.NewRGBA(image.Rect(0, 0, width, height))
	iw.cursor = 0
	return nil
}

func (iw *ImageWriter) WritePixel(c color.RGBA) error {
	if iw.img == nil {
		return errNoHeader
	}
	width := iw.img.Bounds().Dx()
	iw.img.SetRGBA(iw.cursor%width, iw.cursor/width, c)
	iw.cursor++
	return nil
}

func (iw *ImageWriter) EndRow() error { return nil }

func (iw *ImageWriter) Close() error { return nil }

// Image returns the collected image, nil before WriteHeader
func (iw *ImageWriter) Image() *image.RGBA {
	return iw.img
}
