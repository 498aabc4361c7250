package material

import "github.com/df07/go-weekend-raytracer/pkg/core"

// TestSampler provides predetermined values for testing
type TestSampler struct {
	values1D []float64
	values3D []core.Vec3
	index1D  int
	index3D  int
}

// NewTestSampler creates a sampler with predetermined values for each dimension
func NewTestSampler(values1D []float64, values3D []core.Vec3) *TestSampler {
	return &TestSampler{values1D: values1D, values3D: values3D}
}

// Get1D returns the next predetermined 1D value
func (t *TestSampler) Get1D() float64 {
	if t.index1D >= len(t.values1D) {
		panic("TestSampler ran out of 1D values")
	}
	val := t.values1D[t.index1D]
	t.index1D++
	return val
}

// Get2D returns the next two 1D values
func (t *TestSampler) Get2D() (float64, float64) {
	return t.Get1D(), t.Get1D()
}

// Get3D returns the next predetermined 3D value
func (t *TestSampler) Get3D() core.Vec3 {
	if t.index3D >= len(t.values3D) {
		panic("TestSampler ran out of 3D values")
	}
	val := t.values3D[t.index3D]
	t.index3D++
	return val
}

// unitSample returns the Get3D value that RandomUnitVector maps to the unit vector v
func unitSample(v core.Vec3) core.Vec3 {
	return core.NewVec3((v.X+1)/2, (v.Y+1)/2, (v.Z+1)/2)
}

func vecNear(a, b core.Vec3, tolerance float64) bool {
	return a.Subtract(b).Length() <= tolerance
}
