package renderer

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/df07/go-weekend-raytracer/pkg/core"
	"github.com/df07/go-weekend-raytracer/pkg/geometry"
	"github.com/df07/go-weekend-raytracer/pkg/output"
)

// shadowAcneEpsilon is the lower bound on hit distances for every traced ray
const shadowAcneEpsilon = 0.001

// rowSeedStride spreads consecutive row seeds across the seed space
const rowSeedStride uint64 = 0x9E3779B97F4A7C15

var (
	skyHorizon = core.NewVec3(1.0, 1.0, 1.0)
	skyZenith  = core.NewVec3(0.5, 0.7, 1.0)
)

// RenderOptions controls how a render is executed. None of these settings
// change the rendered image except Seed.
type RenderOptions struct {
	Seed           int64 // Base seed; every row derives its own sampler from it
	NumWorkers     int   // Values below 2 render on the calling goroutine
	ReportProgress bool  // Log remaining scanlines while rendering
}

// Raytracer handles the rendering process
type Raytracer struct {
	camera  *Camera
	world   geometry.Shape
	options RenderOptions
	logger  core.Logger
}

// NewRaytracer creates a new raytracer. A nil logger discards output.
func NewRaytracer(camera *Camera, world geometry.Shape, options RenderOptions, logger core.Logger) *Raytracer {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Raytracer{
		camera:  camera,
		world:   world,
		options: options,
		logger:  logger,
	}
}

// RayColor returns the light carried back along r, following at most depth
// bounces
func RayColor(r core.Ray, depth int, world geometry.Shape, sampler core.Sampler) core.Color {
	// If we've exceeded the ray bounce limit, no more light is gathered
	if depth <= 0 {
		return core.Color{}
	}

	hit, isHit := world.Hit(r, core.NewInterval(shadowAcneEpsilon, math.Inf(1)))
	if !isHit {
		return backgroundGradient(r)
	}

	if hit.Material == nil {
		return core.Color{}
	}
	scatter, didScatter := hit.Material.Scatter(r, *hit, sampler)
	if !didScatter {
		return core.Color{} // Material absorbed the ray
	}

	return scatter.Attenuation.MultiplyVec(RayColor(scatter.Scattered, depth-1, world, sampler))
}

// backgroundGradient blends from white at the horizon to light blue overhead
func backgroundGradient(r core.Ray) core.Color {
	unitDirection := r.Direction.Normalize()
	a := 0.5 * (unitDirection.Y + 1.0)
	return skyHorizon.Multiply(1.0 - a).Add(skyZenith.Multiply(a))
}

// rowSeed derives the sampler seed for one image row
func rowSeed(seed int64, row int) int64 {
	return int64(uint64(seed) + uint64(row+1)*rowSeedStride)
}

// renderRow renders a single row of pixels. Rows are independent so they can
// be rendered in any order on any goroutine.
func (rt *Raytracer) renderRow(j int) []color.RGBA {
	sampler := core.NewSeededSampler(rowSeed(rt.options.Seed, j))
	spp := rt.camera.SamplesPerPixel()
	depth := rt.camera.MaxDepth()

	pixels := make([]color.RGBA, rt.camera.Width())
	for i := range pixels {
		colorAccum := core.Color{}
		for sample := 0; sample < spp; sample++ {
			ray := rt.camera.GetRay(i, j, sampler)
			colorAccum = colorAccum.Add(RayColor(ray, depth, rt.world, sampler))
		}
		pixels[i] = ToRGBA(colorAccum.Multiply(rt.camera.pixelSamplesScale))
	}
	return pixels
}

// numWorkers returns the number of goroutines a render will use
func (rt *Raytracer) numWorkers() int {
	n := rt.options.NumWorkers
	if n < 1 {
		n = 1
	}
	if h := rt.camera.Height(); n > h {
		n = h
	}
	return n
}

// Render traces the whole image and writes it to w in raster order, then
// closes w. It stops with ctx.Err() when ctx is cancelled and with a wrapped
// error when w fails.
func (rt *Raytracer) Render(ctx context.Context, w output.PixelWriter) (RenderStats, error) {
	start := time.Now()
	width, height := rt.camera.Width(), rt.camera.Height()
	stats := RenderStats{
		Workers: rt.numWorkers(),
	}

	if err := w.WriteHeader(width, height); err != nil {
		return stats, fmt.Errorf("writing header: %w", err)
	}

	emit := func(j int, pixels []color.RGBA) error {
		for _, c := range pixels {
			if err := w.WritePixel(c); err != nil {
				return fmt.Errorf("writing row %d: %w", j, err)
			}
		}
		if err := w.EndRow(); err != nil {
			return fmt.Errorf("writing row %d: %w", j, err)
		}
		stats.addRow(width, rt.camera.SamplesPerPixel())
		if rt.options.ReportProgress {
			rt.logger.Printf("\rScanlines remaining: %d ", height-j-1)
		}
		return nil
	}

	var err error
	if stats.Workers > 1 {
		err = rt.renderParallel(ctx, stats.Workers, emit)
	} else {
		err = rt.renderSequential(ctx, emit)
	}
	stats.Elapsed = time.Since(start)
	if err != nil {
		return stats, err
	}

	if err := w.Close(); err != nil {
		return stats, fmt.Errorf("finishing image: %w", err)
	}
	stats.Elapsed = time.Since(start)

	if rt.options.ReportProgress {
		rt.logger.Printf("\rDone.                 \n")
	}
	return stats, nil
}

func (rt *Raytracer) renderSequential(ctx context.Context, emit func(int, []color.RGBA) error) error {
	for j := 0; j < rt.camera.Height(); j++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(j, rt.renderRow(j)); err != nil {
			return err
		}
	}
	return nil
}

// renderParallel renders rows on a worker pool and hands them to emit in
// row order, holding back rows that finish early
func (rt *Raytracer) renderParallel(ctx context.Context, numWorkers int, emit func(int, []color.RGBA) error) error {
	ctx, cancel := context.WithCancel(ctx)

	height := rt.camera.Height()
	pool := NewWorkerPool(ctx, rt, numWorkers)
	pool.Start()
	defer func() {
		// Cancel first so workers skip the rows nobody will read
		cancel()
		pool.Stop()
	}()

	for j := 0; j < height; j++ {
		pool.SubmitTask(RowTask{Row: j})
	}

	pending := make(map[int][]color.RGBA)
	next := 0
	for next < height {
		result, ok := pool.GetResult()
		if !ok {
			break
		}
		if result.Error != nil {
			return result.Error
		}
		pending[result.Row] = result.Pixels

		for pixels, ready := pending[next]; ready; pixels, ready = pending[next] {
			delete(pending, next)
			if err := emit(next, pixels); err != nil {
				return err
			}
			next++
		}
	}
	return nil
}

// RenderImage renders into an in-memory image
func (rt *Raytracer) RenderImage(ctx context.Context) (*image.RGBA, RenderStats, error) {
	iw := output.NewImageWriter()
	stats, err := rt.Render(ctx, iw)
	if err != nil {
		return nil, stats, err
	}
	return iw.Image(), stats, nil
}

// Camera returns the camera used by the raytracer
func (rt *Raytracer) Camera() *Camera {
	return rt.camera
}
