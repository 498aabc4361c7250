package renderer

import (
	"image/color"
	"math"

	"github.com/df07/go-weekend-raytracer/pkg/core"
)

// intensity keeps channels below 1 so that 256*x never reaches 256
var intensity = core.NewInterval(0.000, 0.999)

// LinearToGamma converts a linear channel to gamma 2 space
func LinearToGamma(linear float64) float64 {
	if linear > 0 {
		return math.Sqrt(linear)
	}
	return 0
}

// ToRGBA gamma-corrects and quantizes a linear color to 8 bits per channel
func ToRGBA(c core.Color) color.RGBA {
	return color.RGBA{
		R: quantize(c.X),
		G: quantize(c.Y),
		B: quantize(c.Z),
		A: 255,
	}
}

func quantize(x float64) uint8 {
	return uint8(256 * intensity.Clamp(LinearToGamma(x)))
}
