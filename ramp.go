package gvox

import (
	"image/color"
	"slices"

	math "github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms1"
	"golang.org/x/image/math/f32"
)

// HSV interpolation and conversion adapted from Esme Lamb's (@dedelala)
// color manipulation work presented at Gophercon AU 2024.
// https://github.com/dedelala/disco/tree/main/color

// RampStop is a color at a position in [0, 1] of a [Ramp].
type RampStop struct {
	At    float32
	Color color.Color
}

// Ramp is a piecewise color gradient. It implements [glbuild.Curve] so it
// can be baked into gradient textures with [Builder.Gradient].
type Ramp struct {
	stops []rampStop
	// HSV interpolates between stops in hue, saturation and value space
	// instead of linear RGB.
	HSV bool
}

type rampStop struct {
	at         float32
	r, g, b, a float32
}

// NewRamp returns a ramp with the given stops sorted by position. Stop positions are clamped to [0, 1].
func NewRamp(stops ...RampStop) *Ramp {
	r := &Ramp{stops: make([]rampStop, 0, len(stops))}
	for _, s := range stops {
		cr, cg, cb, ca := s.Color.RGBA()
		r.stops = append(r.stops, rampStop{
			at: ms1.Clamp(s.At, 0, 1),
			r:  float32(cr) / 0xffff,
			g:  float32(cg) / 0xffff,
			b:  float32(cb) / 0xffff,
			a:  float32(ca) / 0xffff,
		})
	}
	slices.SortStableFunc(r.stops, func(a, b rampStop) int {
		switch {
		case a.at < b.at:
			return -1
		case a.at > b.at:
			return 1
		}
		return 0
	})
	return r
}

// At returns the RGBA color of the ramp at t. Values of t outside of the
// first and last stop return the color of the nearest stop. An empty ramp is transparent black.
func (r *Ramp) At(t float32) f32.Vec4 {
	if len(r.stops) == 0 {
		return f32.Vec4{}
	}
	if math.IsNaN(t) {
		t = 0
	}
	i, _ := slices.BinarySearchFunc(r.stops, t, func(s rampStop, t float32) int {
		switch {
		case s.at < t:
			return -1
		case s.at > t:
			return 1
		}
		return 0
	})
	switch {
	case i == 0:
		return r.stops[0].vec()
	case i == len(r.stops):
		return r.stops[len(r.stops)-1].vec()
	}
	s0, s1 := r.stops[i-1], r.stops[i]
	span := s1.at - s0.at
	if span <= 0 {
		return s1.vec()
	}
	blend := (t - s0.at) / span
	alpha := ms1.Interp(s0.a, s1.a, blend)
	if !r.HSV {
		return f32.Vec4{
			ms1.Interp(s0.r, s1.r, blend),
			ms1.Interp(s0.g, s1.g, blend),
			ms1.Interp(s0.b, s1.b, blend),
			alpha,
		}
	}
	h0, sat0, v0 := rgbToHSV(s0.r, s0.g, s0.b)
	h1, sat1, v1 := rgbToHSV(s1.r, s1.g, s1.b)
	cr, cg, cb := hsvToRGB(interpHSV(h0, sat0, v0, h1, sat1, v1, blend))
	return f32.Vec4{cr, cg, cb, alpha}
}

// Color returns the ramp color at t as an 8 bit RGBA color.
func (r *Ramp) Color(t float32) color.RGBA {
	c := r.At(t)
	return color.RGBA{
		R: uint8(ms1.Clamp(c[0], 0, 1) * math.MaxUint8),
		G: uint8(ms1.Clamp(c[1], 0, 1) * math.MaxUint8),
		B: uint8(ms1.Clamp(c[2], 0, 1) * math.MaxUint8),
		A: uint8(ms1.Clamp(c[3], 0, 1) * math.MaxUint8),
	}
}

func (s rampStop) vec() f32.Vec4 { return f32.Vec4{s.r, s.g, s.b, s.a} }

func interpHSV(h0, s0, v0, h1, s1, v1, t float32) (h, s, v float32) {
	switch {
	case h1-h0 > 0.5:
		h0 += 1.0
	case h1-h0 < -0.5:
		h1 += 1.0
	}
	h = ms1.Interp(h0, h1, t)
	if h > 1 {
		h -= 1
	}
	s = ms1.Interp(s0, s1, t)
	v = ms1.Interp(v0, v1, t)
	return h, s, v
}

// hsvToRGB converts hue, saturation and brightness values on the range of 0.0
// to 1.0 to RGB floating point values on the range of 0.0 to 1.0
func hsvToRGB(h, s, v float32) (r, g, b float32) {
	var (
		c = s * v
		x = c * (1 - math.Abs(math.Mod(h*6, 2)-1))
		m = v - c
	)
	switch {
	case h >= 0 && h <= 1.0/6:
		r, g, b = c, x, 0
	case h > 1.0/6 && h <= 2.0/6:
		r, g, b = x, c, 0
	case h > 2.0/6 && h <= 3.0/6:
		r, g, b = 0, c, x
	case h > 3.0/6 && h <= 4.0/6:
		r, g, b = 0, x, c
	case h > 4.0/6 && h <= 5.0/6:
		r, g, b = x, 0, c
	case h > 5.0/6 && h <= 1.0:
		r, g, b = c, 0, x
	}
	return r + m, g + m, b + m
}

// rgbToHSV converts red, green, and blue floating point values on the range
// 0.0 to 1.0 to hue, saturation and brightness values on the range 0.0 to 1.0
func rgbToHSV(r, g, b float32) (h, s, v float32) {
	var (
		xmax = max(r, g, b)
		xmin = min(r, g, b)
		c    = xmax - xmin
	)
	v = xmax
	switch {
	case c == 0:
		h = 0
	case v == r:
		h = (g - b) / (c * 6)
	case v == g:
		h = 1.0/3 + (b-r)/(c*6)
	case v == b:
		h = 2.0/3 + (r-g)/(c*6)
	}
	if h < 0 {
		h += 1
	}
	if xmax > 0 {
		s = c / xmax
	}
	return h, s, v
}
