package scene

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/df07/go-weekend-raytracer/pkg/geometry"
	"github.com/df07/go-weekend-raytracer/pkg/renderer"
)

// ErrUnknownScene is returned by New for names that are not registered
var ErrUnknownScene = errors.New("unknown scene")

// Scene contains all the elements needed for rendering
type Scene struct {
	Name         string
	World        *geometry.ShapeList // Objects in the scene
	CameraConfig renderer.CameraConfig
}

// SceneInfo describes a built-in scene
type SceneInfo struct {
	Name         string                `json:"name"`
	DisplayName  string                `json:"displayName"`
	Description  string                `json:"description"`
	CameraConfig renderer.CameraConfig `json:"cameraConfig"`
}

type builder func(seed int64, cameraOverrides ...renderer.CameraConfig) *Scene

type registration struct {
	displayName string
	description string
	build       builder
}

var registry = map[string]registration{
	"simple": {
		displayName: "Simple",
		description: "A diffuse sphere resting on a diffuse ground sphere",
		build: func(seed int64, overrides ...renderer.CameraConfig) *Scene {
			return NewSimpleScene(overrides...)
		},
	},
	"materials": {
		displayName: "Materials",
		description: "Diffuse, hollow glass and fuzzy metal spheres side by side",
		build: func(seed int64, overrides ...renderer.CameraConfig) *Scene {
			return NewMaterialsScene(overrides...)
		},
	},
	"final": {
		displayName: "Random Spheres",
		description: "Hundreds of small random spheres around three large ones, with depth of field",
		build:       NewRandomSpheresScene,
	},
}

// Names returns the registered scene names in sorted order
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List describes every built-in scene. Building a scene to read its camera
// is cheap; the random spheres are generated with seed 0.
func List() []SceneInfo {
	infos := make([]SceneInfo, 0, len(registry))
	for _, name := range Names() {
		reg := registry[name]
		infos = append(infos, SceneInfo{
			Name:         name,
			DisplayName:  reg.displayName,
			Description:  reg.description,
			CameraConfig: reg.build(0).CameraConfig,
		})
	}
	return infos
}

// New builds the named scene. seed drives any random scene content; the
// first camera override, if given, is merged over the scene's own camera.
func New(name string, seed int64, cameraOverrides ...renderer.CameraConfig) (*Scene, error) {
	reg, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownScene, name, strings.Join(Names(), ", "))
	}
	return reg.build(seed, cameraOverrides...), nil
}

// NewCamera builds the camera described by the scene's camera config
func (s *Scene) NewCamera() (*renderer.Camera, error) {
	return renderer.NewCamera(s.CameraConfig)
}

// GetPrimitiveCount returns the total number of primitive objects in the scene
func (s *Scene) GetPrimitiveCount() int {
	return s.World.Len()
}

// applyOverrides merges the first override, if any, over defaults
func applyOverrides(defaults renderer.CameraConfig, overrides []renderer.CameraConfig) renderer.CameraConfig {
	if len(overrides) == 0 {
		return defaults
	}
	return renderer.MergeCameraConfig(defaults, overrides[0])
}
