package renderer

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/df07/go-weekend-raytracer/pkg/core"
	"github.com/df07/go-weekend-raytracer/pkg/geometry"
	"github.com/df07/go-weekend-raytracer/pkg/material"
	"github.com/df07/go-weekend-raytracer/pkg/output"
)

// simpleWorld is a small sphere resting on a large ground sphere
func simpleWorld() *geometry.ShapeList {
	return geometry.NewShapeList(
		geometry.NewSphere(core.NewVec3(0, -100.5, -1), 100, material.NewLambertian(core.NewVec3(0.8, 0.8, 0.0))),
		geometry.NewSphere(core.NewVec3(0, 0, -1), 0.5, material.NewLambertian(core.NewVec3(0.1, 0.2, 0.5))),
	)
}

// materialsWorld mixes every material kind, including a hollow glass sphere
func materialsWorld() *geometry.ShapeList {
	return geometry.NewShapeList(
		geometry.NewSphere(core.NewVec3(0, -100.5, -1), 100, material.NewLambertian(core.NewVec3(0.8, 0.8, 0.0))),
		geometry.NewSphere(core.NewVec3(0, 0, -1.2), 0.5, material.NewLambertian(core.NewVec3(0.1, 0.2, 0.5))),
		geometry.NewSphere(core.NewVec3(-1, 0, -1), 0.5, material.NewDielectric(1.5)),
		geometry.NewSphere(core.NewVec3(-1, 0, -1), 0.4, material.NewDielectric(1.0/1.5)),
		geometry.NewSphere(core.NewVec3(1, 0, -1), 0.5, material.NewMetal(core.NewVec3(0.8, 0.6, 0.2), 1.0)),
	)
}

func newTestRaytracer(t *testing.T, config CameraConfig, world geometry.Shape, options RenderOptions) *Raytracer {
	t.Helper()
	camera, err := NewCamera(config)
	if err != nil {
		t.Fatalf("NewCamera failed: %v", err)
	}
	return NewRaytracer(camera, world, options, nil)
}

func renderPPM(t *testing.T, rt *Raytracer) string {
	t.Helper()
	var buf bytes.Buffer
	if _, err := rt.Render(context.Background(), output.NewPPMWriter(&buf)); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	return buf.String()
}

// parsePixels splits a P3 image into its header lines and pixel lines
func parsePixels(t *testing.T, ppm string) ([]string, [][3]int) {
	t.Helper()
	lines := strings.Split(strings.TrimSuffix(ppm, "\n"), "\n")
	if len(lines) < 3 {
		t.Fatalf("PPM too short: %q", ppm)
	}

	var pixels [][3]int
	for _, line := range lines[3:] {
		fields := strings.Fields(line)
		if len(fields) != 3 {
			t.Fatalf("Malformed pixel line %q", line)
		}
		var px [3]int
		for k, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil || v < 0 || v > 255 {
				t.Fatalf("Invalid channel %q in line %q", f, line)
			}
			px[k] = v
		}
		pixels = append(pixels, px)
	}
	return lines[:3], pixels
}

func TestRayColor_DepthExhaustedIsBlack(t *testing.T) {
	sampler := core.NewSeededSampler(42)
	worlds := map[string]geometry.Shape{
		"empty":  geometry.NewShapeList(),
		"simple": simpleWorld(),
	}
	rays := []core.Ray{
		core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1)),
		core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 1, 0)),
	}

	for name, world := range worlds {
		for _, ray := range rays {
			if c := RayColor(ray, 0, world, sampler); c != (core.Color{}) {
				t.Errorf("%s: expected black at depth 0, got %v", name, c)
			}
		}
	}
}

func TestRayColor_Sky(t *testing.T) {
	world := geometry.NewShapeList()
	sampler := core.NewSeededSampler(42)

	tests := []struct {
		name      string
		direction core.Vec3
		expected  core.Color
	}{
		{"zenith", core.NewVec3(0, 1, 0), core.NewVec3(0.5, 0.7, 1.0)},
		{"nadir", core.NewVec3(0, -1, 0), core.NewVec3(1, 1, 1)},
		{"horizon", core.NewVec3(3, 0, 0), core.NewVec3(0.75, 0.85, 1.0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ray := core.NewRay(core.NewVec3(0, 0, 0), tt.direction)
			got := RayColor(ray, 5, world, sampler)
			if !vecNear(got, tt.expected, 1e-12) {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

// bounceWorld hits every downward ray at the origin with mat; upward rays miss
func bounceWorld(mat material.Material) geometry.Shape {
	return MockShape{
		hitFn: func(ray core.Ray, rayT core.Interval) (*material.HitRecord, bool) {
			if ray.Direction.Y >= 0 {
				return nil, false
			}
			return &material.HitRecord{
				Point:     core.NewVec3(0, 0, 0),
				Normal:    core.NewVec3(0, 1, 0),
				T:         1,
				FrontFace: true,
				Material:  mat,
			}, true
		},
	}
}

func TestRayColor_AttenuationMultipliesIncomingLight(t *testing.T) {
	mat := MockMaterial{
		scatterFn: func(rayIn core.Ray, hit material.HitRecord, sampler core.Sampler) (material.ScatterResult, bool) {
			return material.ScatterResult{
				Scattered:   core.NewRay(hit.Point, core.NewVec3(0, 1, 0)),
				Attenuation: core.NewVec3(0.5, 0.5, 0.5),
			}, true
		},
	}
	world := bounceWorld(mat)
	ray := core.NewRay(core.NewVec3(0, 1, 0), core.NewVec3(0, -1, 0))
	sampler := core.NewSeededSampler(42)

	got := RayColor(ray, 2, world, sampler)
	expected := core.NewVec3(0.25, 0.35, 0.5)
	if !vecNear(got, expected, 1e-12) {
		t.Errorf("Expected attenuated sky %v, got %v", expected, got)
	}

	// With one bounce left the scattered ray runs out of depth
	if got := RayColor(ray, 1, world, sampler); got != (core.Color{}) {
		t.Errorf("Expected black with depth 1, got %v", got)
	}
}

func TestRayColor_AbsorbedIsBlack(t *testing.T) {
	absorbing := MockMaterial{
		scatterFn: func(rayIn core.Ray, hit material.HitRecord, sampler core.Sampler) (material.ScatterResult, bool) {
			return material.ScatterResult{}, false
		},
	}
	ray := core.NewRay(core.NewVec3(0, 1, 0), core.NewVec3(0, -1, 0))

	tests := []struct {
		name  string
		world geometry.Shape
	}{
		{"absorbing material", bounceWorld(absorbing)},
		{"nil material", bounceWorld(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RayColor(ray, 10, tt.world, core.NewSeededSampler(1)); got != (core.Color{}) {
				t.Errorf("Expected black, got %v", got)
			}
		})
	}
}

func TestRayColor_HitInterval(t *testing.T) {
	var seen core.Interval
	world := MockShape{
		hitFn: func(ray core.Ray, rayT core.Interval) (*material.HitRecord, bool) {
			seen = rayT
			return nil, false
		},
	}

	RayColor(core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1)), 1, world, core.NewSeededSampler(1))

	if seen.Min != 0.001 || !math.IsInf(seen.Max, 1) {
		t.Errorf("Expected hit interval (0.001, +Inf), got %+v", seen)
	}
}

func TestRender_EndToEnd(t *testing.T) {
	config := DefaultCameraConfig()
	config.Width = 2
	config.AspectRatio = 1.0
	config.SamplesPerPixel = 1
	config.MaxDepth = 1

	rt := newTestRaytracer(t, config, simpleWorld(), RenderOptions{Seed: 42})
	ppm := renderPPM(t, rt)

	header, pixels := parsePixels(t, ppm)
	if header[0] != "P3" || header[1] != "2 2" || header[2] != "255" {
		t.Errorf("Unexpected header %q", header)
	}
	if len(pixels) != 4 {
		t.Fatalf("Expected exactly 4 pixel lines, got %d", len(pixels))
	}

	// With a single bounce a pixel either hits something and goes black or
	// sees the sky, whose blue channel is always saturated
	for _, px := range pixels {
		if px != [3]int{0, 0, 0} && px[2] != 255 {
			t.Errorf("Unexpected pixel %v for depth 1", px)
		}
	}

	again := renderPPM(t, newTestRaytracer(t, config, simpleWorld(), RenderOptions{Seed: 42}))
	if again != ppm {
		t.Errorf("Render with the same seed is not deterministic:\n%s\nvs\n%s", ppm, again)
	}
}

func TestRender_DepthZeroIsBlack(t *testing.T) {
	config := DefaultCameraConfig()
	config.Width = 4
	config.SamplesPerPixel = 2
	config.MaxDepth = 0

	rt := newTestRaytracer(t, config, simpleWorld(), RenderOptions{Seed: 7})
	_, pixels := parsePixels(t, renderPPM(t, rt))

	if len(pixels) != 16 {
		t.Fatalf("Expected 16 pixels, got %d", len(pixels))
	}
	for i, px := range pixels {
		if px != [3]int{0, 0, 0} {
			t.Errorf("Pixel %d: expected black, got %v", i, px)
		}
	}
}

func TestRender_ParallelMatchesSequential(t *testing.T) {
	config := DefaultCameraConfig()
	config.Width = 16
	config.AspectRatio = 16.0 / 9.0
	config.SamplesPerPixel = 4
	config.MaxDepth = 8

	sequential := renderPPM(t, newTestRaytracer(t, config, materialsWorld(), RenderOptions{Seed: 3, NumWorkers: 1}))

	for _, workers := range []int{2, 4, 64} {
		parallel := renderPPM(t, newTestRaytracer(t, config, materialsWorld(), RenderOptions{Seed: 3, NumWorkers: workers}))
		if parallel != sequential {
			t.Errorf("Output with %d workers differs from sequential render", workers)
		}
	}
}

func TestRender_SeedChangesImage(t *testing.T) {
	config := DefaultCameraConfig()
	config.Width = 8
	config.SamplesPerPixel = 2

	a := renderPPM(t, newTestRaytracer(t, config, materialsWorld(), RenderOptions{Seed: 1}))
	b := renderPPM(t, newTestRaytracer(t, config, materialsWorld(), RenderOptions{Seed: 2}))
	if a == b {
		t.Error("Expected different seeds to produce different images")
	}
}

func TestRender_WriterErrorAborts(t *testing.T) {
	errBoom := errors.New("boom")
	config := DefaultCameraConfig()
	config.Width = 4
	config.SamplesPerPixel = 1

	for _, workers := range []int{1, 4} {
		rt := newTestRaytracer(t, config, simpleWorld(), RenderOptions{NumWorkers: workers})
		writer := &failingWriter{failAfter: 5, err: errBoom}

		stats, err := rt.Render(context.Background(), writer)
		if !errors.Is(err, errBoom) {
			t.Errorf("workers=%d: expected writer error, got %v", workers, err)
		}
		if stats.Rows != 1 {
			t.Errorf("workers=%d: expected 1 complete row before failure, got %d", workers, stats.Rows)
		}
	}
}

func TestRender_Cancelled(t *testing.T) {
	config := DefaultCameraConfig()
	config.Width = 8

	for _, workers := range []int{1, 3} {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		rt := newTestRaytracer(t, config, simpleWorld(), RenderOptions{NumWorkers: workers})
		_, err := rt.Render(ctx, output.NewPPMWriter(&bytes.Buffer{}))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("workers=%d: expected context.Canceled, got %v", workers, err)
		}
	}
}

func TestRender_Stats(t *testing.T) {
	config := DefaultCameraConfig()
	config.Width = 4
	config.AspectRatio = 2.0
	config.SamplesPerPixel = 3

	rt := newTestRaytracer(t, config, simpleWorld(), RenderOptions{NumWorkers: 8})
	stats, err := rt.Render(context.Background(), output.NewImageWriter())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if stats.TotalPixels != 8 || stats.TotalSamples != 24 || stats.Rows != 2 {
		t.Errorf("Unexpected stats %+v", stats)
	}
	// Workers are capped at the number of rows
	if stats.Workers != 2 {
		t.Errorf("Expected 2 workers, got %d", stats.Workers)
	}
}

func TestRender_ProgressLogging(t *testing.T) {
	config := DefaultCameraConfig()
	config.Width = 3
	config.SamplesPerPixel = 1

	logger := &recordingLogger{}
	camera, err := NewCamera(config)
	if err != nil {
		t.Fatalf("NewCamera failed: %v", err)
	}
	rt := NewRaytracer(camera, simpleWorld(), RenderOptions{ReportProgress: true}, logger)

	if _, err := rt.Render(context.Background(), output.NewImageWriter()); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	joined := strings.Join(logger.lines, "")
	if !strings.Contains(joined, "Scanlines remaining: 2") || !strings.Contains(joined, "Scanlines remaining: 0") {
		t.Errorf("Missing progress lines in %q", joined)
	}
	if !strings.HasSuffix(joined, "\n") || !strings.Contains(joined, "Done.") {
		t.Errorf("Missing completion line in %q", joined)
	}
}

func TestRenderImage(t *testing.T) {
	config := DefaultCameraConfig()
	config.Width = 6
	config.AspectRatio = 3.0
	config.SamplesPerPixel = 1

	rt := newTestRaytracer(t, config, simpleWorld(), RenderOptions{})
	img, _, err := rt.RenderImage(context.Background())
	if err != nil {
		t.Fatalf("RenderImage failed: %v", err)
	}
	if img.Bounds().Dx() != 6 || img.Bounds().Dy() != 2 {
		t.Errorf("Expected 6x2 image, got %v", img.Bounds())
	}
	if img.RGBAAt(0, 0).A != 255 {
		t.Errorf("Expected opaque pixels")
	}
}

func TestRowSeed(t *testing.T) {
	seen := map[int64]bool{}
	for row := 0; row < 1000; row++ {
		s := rowSeed(42, row)
		if seen[s] {
			t.Fatalf("Duplicate seed for row %d", row)
		}
		seen[s] = true
	}
	if rowSeed(42, 0) == rowSeed(43, 0) {
		t.Error("Expected base seed to change row seeds")
	}
}
