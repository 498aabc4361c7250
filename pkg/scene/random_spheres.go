package scene

import (
	"github.com/df07/go-weekend-raytracer/pkg/core"
	"github.com/df07/go-weekend-raytracer/pkg/geometry"
	"github.com/df07/go-weekend-raytracer/pkg/material"
	"github.com/df07/go-weekend-raytracer/pkg/renderer"
)

const (
	gridExtent         = 11  // Small spheres span [-gridExtent, gridExtent) on x and z
	smallSphereRadius  = 0.2 // Radius of every grid sphere
	featureClearance   = 0.9 // Grid spheres closer than this to featureCenter are skipped
	diffuseProbability = 0.8
	metalProbability   = 0.15
)

var featureCenter = core.NewVec3(4, smallSphereRadius, 0)

// NewRandomSpheresScene creates the random spheres cover scene: a grid of
// small jittered spheres with random materials around three large spheres.
// The same seed always produces the same spheres.
func NewRandomSpheresScene(seed int64, cameraOverrides ...renderer.CameraConfig) *Scene {
	cameraConfig := renderer.CameraConfig{
		AspectRatio:     16.0 / 9.0,
		Width:           800,
		SamplesPerPixel: 400,
		MaxDepth:        20,
		VFov:            20,
		LookFrom:        core.NewVec3(13, 2, 3),
		LookAt:          core.NewVec3(0, 0, 0),
		Up:              core.NewVec3(0, 1, 0),
		DefocusAngle:    0.6,
		FocusDistance:   10.0,
	}

	sampler := core.NewSeededSampler(seed)
	world := geometry.NewShapeList()

	ground := material.NewLambertian(core.NewVec3(0.5, 0.5, 0.5))
	world.Add(geometry.NewSphere(core.NewVec3(0, -1000, 0), 1000, ground))

	for a := -gridExtent; a < gridExtent; a++ {
		for b := -gridExtent; b < gridExtent; b++ {
			chooseMat := sampler.Get1D()
			center := core.NewVec3(
				float64(a)+0.9*sampler.Get1D(),
				smallSphereRadius,
				float64(b)+0.9*sampler.Get1D(),
			)

			if center.Subtract(featureCenter).Length() <= featureClearance {
				continue
			}

			var mat material.Material
			switch {
			case chooseMat < diffuseProbability:
				albedo := core.RandomVec3(sampler).MultiplyVec(core.RandomVec3(sampler))
				mat = material.NewLambertian(albedo)
			case chooseMat < diffuseProbability+metalProbability:
				albedo := core.RandomVec3Range(sampler, 0.5, 1)
				fuzz := core.RandomFloatRange(sampler, 0, 0.5)
				mat = material.NewMetal(albedo, fuzz)
			default:
				mat = material.NewDielectric(1.5)
			}
			world.Add(geometry.NewSphere(center, smallSphereRadius, mat))
		}
	}

	world.Add(geometry.NewSphere(core.NewVec3(0, 1, 0), 1.0, material.NewDielectric(1.5)))
	world.Add(geometry.NewSphere(core.NewVec3(-4, 1, 0), 1.0, material.NewLambertian(core.NewVec3(0.4, 0.2, 0.1))))
	world.Add(geometry.NewSphere(core.NewVec3(4, 1, 0), 1.0, material.NewMetal(core.NewVec3(0.7, 0.6, 0.5), 0.0)))

	return &Scene{
		Name:         "final",
		World:        world,
		CameraConfig: applyOverrides(cameraConfig, cameraOverrides),
	}
}
