package renderer

import (
	"fmt"
	"image/color"
	"math"
	"sync"

	"github.com/df07/go-weekend-raytracer/pkg/core"
	"github.com/df07/go-weekend-raytracer/pkg/material"
)

// sequenceSampler returns predetermined values; Get2D and Get3D consume
// consecutive 1D values
type sequenceSampler struct {
	values []float64
	index  int
}

func newSequenceSampler(values ...float64) *sequenceSampler {
	return &sequenceSampler{values: values}
}

func (s *sequenceSampler) Get1D() float64 {
	if s.index >= len(s.values) {
		panic("sequenceSampler ran out of values")
	}
	v := s.values[s.index]
	s.index++
	return v
}

func (s *sequenceSampler) Get2D() (float64, float64) {
	return s.Get1D(), s.Get1D()
}

func (s *sequenceSampler) Get3D() core.Vec3 {
	return core.NewVec3(s.Get1D(), s.Get1D(), s.Get1D())
}

// MockMaterial implements material.Material for testing
type MockMaterial struct {
	scatterFn func(rayIn core.Ray, hit material.HitRecord, sampler core.Sampler) (material.ScatterResult, bool)
}

func (m MockMaterial) Scatter(rayIn core.Ray, hit material.HitRecord, sampler core.Sampler) (material.ScatterResult, bool) {
	return m.scatterFn(rayIn, hit, sampler)
}

// MockShape implements geometry.Shape for testing
type MockShape struct {
	hitFn func(ray core.Ray, rayT core.Interval) (*material.HitRecord, bool)
}

func (m MockShape) Hit(ray core.Ray, rayT core.Interval) (*material.HitRecord, bool) {
	return m.hitFn(ray, rayT)
}

// recordingLogger keeps every formatted line
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Printf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

// failingWriter accepts failAfter pixels and then returns err
type failingWriter struct {
	failAfter int
	written   int
	err       error
}

func (f *failingWriter) WriteHeader(width, height int) error { return nil }

func (f *failingWriter) WritePixel(c color.RGBA) error {
	if f.written >= f.failAfter {
		return f.err
	}
	f.written++
	return nil
}

func (f *failingWriter) EndRow() error { return nil }
func (f *failingWriter) Close() error  { return nil }

func vecNear(a, b core.Vec3, tolerance float64) bool {
	return math.Abs(a.X-b.X) <= tolerance &&
		math.Abs(a.Y-b.Y) <= tolerance &&
		math.Abs(a.Z-b.Z) <= tolerance
}
