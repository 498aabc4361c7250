package renderer

import (
	"errors"
	"fmt"
	"math"

	"github.com/df07/go-weekend-raytracer/pkg/core"
)

// ErrDegenerateBasis is returned when the up vector is parallel to the view
// direction, leaving the camera without a horizontal axis
var ErrDegenerateBasis = errors.New("camera up vector is parallel to the view direction")

// CameraConfig contains all camera configuration parameters
type CameraConfig struct {
	AspectRatio     float64   `json:"aspectRatio"`     // Ratio of image width over height
	Width           int       `json:"width"`           // Rendered image width in pixels
	SamplesPerPixel int       `json:"samplesPerPixel"` // Random samples for each pixel
	MaxDepth        int       `json:"maxDepth"`        // Maximum number of ray bounces into scene
	VFov            float64   `json:"vfov"`            // Vertical view angle in degrees
	LookFrom        core.Vec3 `json:"lookFrom"`        // Point camera is looking from
	LookAt          core.Vec3 `json:"lookAt"`          // Point camera is looking at
	Up              core.Vec3 `json:"up"`              // Camera-relative "up" direction
	DefocusAngle    float64   `json:"defocusAngle"`    // Variation angle of rays through each pixel, in degrees
	FocusDistance   float64   `json:"focusDistance"`   // Distance from LookFrom to plane of perfect focus
}

// DefaultCameraConfig returns the configuration used when nothing overrides it
func DefaultCameraConfig() CameraConfig {
	return CameraConfig{
		AspectRatio:     1.0,
		Width:           100,
		SamplesPerPixel: 10,
		MaxDepth:        10,
		VFov:            90,
		LookFrom:        core.NewVec3(0, 0, 0),
		LookAt:          core.NewVec3(0, 0, -1),
		Up:              core.NewVec3(0, 1, 0),
		DefocusAngle:    0,
		FocusDistance:   10,
	}
}

// MergeCameraConfig returns base with every non-zero field of override applied
func MergeCameraConfig(base, override CameraConfig) CameraConfig {
	result := base
	if override.AspectRatio != 0 {
		result.AspectRatio = override.AspectRatio
	}
	if override.Width != 0 {
		result.Width = override.Width
	}
	if override.SamplesPerPixel != 0 {
		result.SamplesPerPixel = override.SamplesPerPixel
	}
	if override.MaxDepth != 0 {
		result.MaxDepth = override.MaxDepth
	}
	if override.VFov != 0 {
		result.VFov = override.VFov
	}
	if override.LookFrom != (core.Vec3{}) {
		result.LookFrom = override.LookFrom
	}
	if override.LookAt != (core.Vec3{}) {
		result.LookAt = override.LookAt
	}
	if override.Up != (core.Vec3{}) {
		result.Up = override.Up
	}
	if override.DefocusAngle != 0 {
		result.DefocusAngle = override.DefocusAngle
	}
	if override.FocusDistance != 0 {
		result.FocusDistance = override.FocusDistance
	}
	return result
}

// Validate reports the first configuration value that cannot produce an image
func (c CameraConfig) Validate() error {
	switch {
	case c.Width <= 0:
		return fmt.Errorf("image width must be positive, got %d", c.Width)
	case c.AspectRatio <= 0 || math.IsNaN(c.AspectRatio):
		return fmt.Errorf("aspect ratio must be positive, got %g", c.AspectRatio)
	case c.SamplesPerPixel <= 0:
		return fmt.Errorf("samples per pixel must be positive, got %d", c.SamplesPerPixel)
	case c.MaxDepth < 0:
		return fmt.Errorf("max depth must not be negative, got %d", c.MaxDepth)
	case c.FocusDistance <= 0 || math.IsNaN(c.FocusDistance):
		return fmt.Errorf("focus distance must be positive, got %g", c.FocusDistance)
	case !(c.VFov > 0 && c.VFov < 180):
		return fmt.Errorf("vertical field of view must be in (0, 180) degrees, got %g", c.VFov)
	case c.DefocusAngle < 0 || math.IsNaN(c.DefocusAngle):
		return fmt.Errorf("defocus angle must not be negative, got %g", c.DefocusAngle)
	case c.LookFrom == c.LookAt:
		return fmt.Errorf("look-from and look-at are the same point %v", c.LookFrom)
	}
	return nil
}

// Camera generates primary rays. It is immutable once built and safe for
// concurrent use.
type Camera struct {
	config            CameraConfig
	imageHeight       int
	pixelSamplesScale float64   // Color scale factor for a sum of pixel samples
	center            core.Vec3 // Camera center
	pixel00Loc        core.Vec3 // Location of pixel 0, 0
	pixelDeltaU       core.Vec3 // Offset to pixel to the right
	pixelDeltaV       core.Vec3 // Offset to pixel below
	u, v, w           core.Vec3 // Camera frame basis vectors
	defocusDiskU      core.Vec3 // Defocus disk horizontal radius
	defocusDiskV      core.Vec3 // Defocus disk vertical radius
}

// NewCamera validates config and derives the viewport and lens geometry
func NewCamera(config CameraConfig) (*Camera, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid camera config: %w", err)
	}

	imageHeight := int(float64(config.Width) / config.AspectRatio)
	if imageHeight < 1 {
		imageHeight = 1
	}

	center := config.LookFrom

	w := config.LookFrom.Subtract(config.LookAt).Normalize()
	right := config.Up.Cross(w)
	if right.Length() < 1e-8 {
		return nil, fmt.Errorf("%w: up %v, view direction %v", ErrDegenerateBasis, config.Up, w.Negate())
	}
	u := right.Normalize()
	v := w.Cross(u)

	theta := core.DegreesToRadians(config.VFov)
	h := math.Tan(theta / 2)
	viewportHeight := 2 * h * config.FocusDistance
	viewportWidth := viewportHeight * float64(config.Width) / float64(imageHeight)

	// Vectors across the horizontal and down the vertical viewport edges
	viewportU := u.Multiply(viewportWidth)
	viewportV := v.Negate().Multiply(viewportHeight)

	pixelDeltaU := viewportU.Divide(float64(config.Width))
	pixelDeltaV := viewportV.Divide(float64(imageHeight))

	viewportUpperLeft := center.
		Subtract(w.Multiply(config.FocusDistance)).
		Subtract(viewportU.Divide(2)).
		Subtract(viewportV.Divide(2))
	pixel00Loc := viewportUpperLeft.Add(pixelDeltaU.Add(pixelDeltaV).Multiply(0.5))

	defocusRadius := config.FocusDistance * math.Tan(core.DegreesToRadians(config.DefocusAngle/2))

	return &Camera{
		config:            config,
		imageHeight:       imageHeight,
		pixelSamplesScale: 1.0 / float64(config.SamplesPerPixel),
		center:            center,
		pixel00Loc:        pixel00Loc,
		pixelDeltaU:       pixelDeltaU,
		pixelDeltaV:       pixelDeltaV,
		u:                 u,
		v:                 v,
		w:                 w,
		defocusDiskU:      u.Multiply(defocusRadius),
		defocusDiskV:      v.Multiply(defocusRadius),
	}, nil
}

// GetRay constructs a ray originating from the defocus disk and directed at a
// randomly sampled point around the pixel location i, j
func (c *Camera) GetRay(i, j int, sampler core.Sampler) core.Ray {
	offsetX, offsetY := sampler.Get2D()
	offsetX -= 0.5
	offsetY -= 0.5

	pixelSample := c.pixel00Loc.
		Add(c.pixelDeltaU.Multiply(float64(i) + offsetX)).
		Add(c.pixelDeltaV.Multiply(float64(j) + offsetY))

	origin := c.center
	if c.config.DefocusAngle > 0 {
		origin = c.defocusDiskSample(sampler)
	}

	return core.NewRay(origin, pixelSample.Subtract(origin))
}

// defocusDiskSample returns a random point on the camera lens
func (c *Camera) defocusDiskSample(sampler core.Sampler) core.Vec3 {
	p := core.RandomInUnitDisk(sampler)
	return c.center.Add(c.defocusDiskU.Multiply(p.X)).Add(c.defocusDiskV.Multiply(p.Y))
}

// Width returns the image width in pixels
func (c *Camera) Width() int { return c.config.Width }

// Height returns the derived image height in pixels
func (c *Camera) Height() int { return c.imageHeight }

func (c *Camera) SamplesPerPixel() int { return c.config.SamplesPerPixel }

func (c *Camera) MaxDepth() int { return c.config.MaxDepth }

// Center returns the camera position
func (c *Camera) Center() core.Vec3 { return c.center }

// Forward returns the unit view direction
func (c *Camera) Forward() core.Vec3 { return c.w.Negate() }

// Config returns the configuration the camera was built from
func (c *Camera) Config() CameraConfig { return c.config }
