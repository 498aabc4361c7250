package renderer

import (
	"fmt"
	"time"
)

// RenderStats contains statistics about the rendering process
type RenderStats struct {
	TotalPixels  int           // Total number of pixels written
	TotalSamples int           // Total number of camera rays traced
	Rows         int           // Rows written to the output
	Workers      int           // Goroutines used for rendering
	Elapsed      time.Duration // Wall time including output encoding
}

func (s *RenderStats) addRow(width, samplesPerPixel int) {
	s.Rows++
	s.TotalPixels += width
	s.TotalSamples += width * samplesPerPixel
}

// SamplesPerSecond returns the camera ray throughput, 0 if nothing was timed
func (s RenderStats) SamplesPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.TotalSamples) / s.Elapsed.Seconds()
}

func (s RenderStats) String() string {
	return fmt.Sprintf("%d pixels, %d samples, %d rows on %d workers in %v",
		s.TotalPixels, s.TotalSamples, s.Rows, s.Workers, s.Elapsed.Round(time.Millisecond))
}
