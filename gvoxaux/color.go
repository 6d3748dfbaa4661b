package gvoxaux

import (
	"image/color"

	math "github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms1"
	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/gvox"
)

var red = color.RGBA{R: 255, A: 255}

// ColorConversionInigoQuilez creates a new color conversion using [Inigo Quilez]'s style.
// Positive values are orange and negative values blue, with bands every characteristic distance. Returns red for NaN values.
//
// [Inigo Quilez]: https://iquilezles.org/articles/distfunctions2d/
func ColorConversionInigoQuilez(characteristicDistance float32) func(float32) color.Color {
	inv := 1. / characteristicDistance
	one := ms3.Vec{X: 1, Y: 1, Z: 1}
	return func(d float32) color.Color {
		if math.IsNaN(d) {
			return red
		}
		d *= inv
		c := ms3.Vec{X: 0.65, Y: 0.85, Z: 1.0}
		if d > 0 {
			c = ms3.Vec{X: 0.9, Y: 0.6, Z: 0.3}
		}
		c = ms3.Scale(1-math.Exp(-6*math.Abs(d)), c)
		c = ms3.Scale(0.8+0.2*math.Cos(150*d), c)
		edge := 1 - ms1.SmoothStep(0, 0.01, math.Abs(d))
		c = ms3.InterpElem(c, one, ms3.Vec{X: edge, Y: edge, Z: edge})
		return color.RGBA{
			R: uint8(ms1.Clamp(c.X, 0, 1) * 255),
			G: uint8(ms1.Clamp(c.Y, 0, 1) * 255),
			B: uint8(ms1.Clamp(c.Z, 0, 1) * 255),
			A: 255,
		}
	}
}

// ColorConversionLinearGradient creates a color conversion function that blends c0 into c1
// in HSV space over a band of gradientLength centered at d=0. Values below the band are c0, above it c1.
func ColorConversionLinearGradient(gradientLength float32, c0, c1 color.Color) func(d float32) color.Color {
	ramp := gvox.NewRamp(gvox.RampStop{At: 0, Color: c0}, gvox.RampStop{At: 1, Color: c1})
	ramp.HSV = true
	if gradientLength <= 0 {
		return func(d float32) color.Color {
			if d < 0 {
				return ramp.Color(0)
			}
			return ramp.Color(1)
		}
	}
	return func(d float32) color.Color {
		if math.IsNaN(d) {
			return red
		}
		return ramp.Color(d/gradientLength + 0.5)
	}
}
