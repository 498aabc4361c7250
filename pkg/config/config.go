// Package config loads render settings from a JSON file. Every field is
// optional; anything left out keeps the default or the scene's own value.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/df07/go-weekend-raytracer/pkg/core"
	"github.com/df07/go-weekend-raytracer/pkg/output"
	"github.com/df07/go-weekend-raytracer/pkg/renderer"
	"github.com/df07/go-weekend-raytracer/pkg/scene"
)

// ErrInvalid wraps every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Vector is a JSON [x, y, z] triple
type Vector [3]float64

// Vec3 converts the triple to a vector
func (v Vector) Vec3() core.Vec3 {
	return core.NewVec3(v[0], v[1], v[2])
}

// CameraConfig overrides scene camera settings. Pointer fields distinguish
// "not set" from an explicit zero such as "defocusAngle": 0.
type CameraConfig struct {
	AspectRatio     *float64 `json:"aspectRatio,omitempty"`
	Width           *int     `json:"width,omitempty"`
	SamplesPerPixel *int     `json:"samplesPerPixel,omitempty"`
	MaxDepth        *int     `json:"maxDepth,omitempty"`
	VFov            *float64 `json:"vfov,omitempty"`
	LookFrom        *Vector  `json:"lookFrom,omitempty"`
	LookAt          *Vector  `json:"lookAt,omitempty"`
	Up              *Vector  `json:"up,omitempty"`
	DefocusAngle    *float64 `json:"defocusAngle,omitempty"`
	FocusDistance   *float64 `json:"focusDistance,omitempty"`
}

// Config is a complete render job description
type Config struct {
	Scene   string       `json:"scene"`
	Output  string       `json:"output,omitempty"` // Empty picks a timestamped path, "-" is stdout
	Format  string       `json:"format,omitempty"`
	Seed    int64        `json:"seed"`
	Workers int          `json:"workers,omitempty"`
	Camera  CameraConfig `json:"camera"`
}

// Default returns the settings used when no file is given
func Default() *Config {
	return &Config{
		Scene:   "final",
		Format:  "ppm",
		Seed:    42,
		Workers: runtime.NumCPU(),
	}
}

// Load reads and validates a config file
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a config from r on top of Default and validates it.
// Unknown fields are rejected so typos do not go unnoticed.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values a config can set on its own. Camera geometry
// is checked by the renderer once it is merged with the scene.
func (c *Config) Validate() error {
	if !contains(scene.Names(), strings.ToLower(c.Scene)) {
		return fmt.Errorf("%w: unknown scene %q (available: %s)", ErrInvalid, c.Scene, strings.Join(scene.Names(), ", "))
	}
	if c.Format != "" && !contains(output.Formats(), strings.ToLower(c.Format)) {
		return fmt.Errorf("%w: unknown format %q (available: %s)", ErrInvalid, c.Format, strings.Join(output.Formats(), ", "))
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalid, c.Workers)
	}

	cam := c.Camera
	if cam.Width != nil && *cam.Width <= 0 {
		return fmt.Errorf("%w: camera width must be positive, got %d", ErrInvalid, *cam.Width)
	}
	if cam.SamplesPerPixel != nil && *cam.SamplesPerPixel <= 0 {
		return fmt.Errorf("%w: samplesPerPixel must be positive, got %d", ErrInvalid, *cam.SamplesPerPixel)
	}
	if cam.MaxDepth != nil && *cam.MaxDepth < 0 {
		return fmt.Errorf("%w: maxDepth must not be negative, got %d", ErrInvalid, *cam.MaxDepth)
	}
	if cam.AspectRatio != nil && *cam.AspectRatio <= 0 {
		return fmt.Errorf("%w: aspectRatio must be positive, got %g", ErrInvalid, *cam.AspectRatio)
	}
	if cam.FocusDistance != nil && *cam.FocusDistance <= 0 {
		return fmt.Errorf("%w: focusDistance must be positive, got %g", ErrInvalid, *cam.FocusDistance)
	}
	return nil
}

// Apply returns base with every camera field set in the config replaced
func (c *Config) Apply(base renderer.CameraConfig) renderer.CameraConfig {
	cam := c.Camera
	result := base
	if cam.AspectRatio != nil {
		result.AspectRatio = *cam.AspectRatio
	}
	if cam.Width != nil {
		result.Width = *cam.Width
	}
	if cam.SamplesPerPixel != nil {
		result.SamplesPerPixel = *cam.SamplesPerPixel
	}
	if cam.MaxDepth != nil {
		result.MaxDepth = *cam.MaxDepth
	}
	if cam.VFov != nil {
		result.VFov = *cam.VFov
	}
	if cam.LookFrom != nil {
		result.LookFrom = cam.LookFrom.Vec3()
	}
	if cam.LookAt != nil {
		result.LookAt = cam.LookAt.Vec3()
	}
	if cam.Up != nil {
		result.Up = cam.Up.Vec3()
	}
	if cam.DefocusAngle != nil {
		result.DefocusAngle = *cam.DefocusAngle
	}
	if cam.FocusDistance != nil {
		result.FocusDistance = *cam.FocusDistance
	}
	return result
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
