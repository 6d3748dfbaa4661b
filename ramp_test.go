package gvox_test

import (
	"testing"

	math "github.com/chewxy/math32"
	"github.com/soypat/gvox"
	"golang.org/x/image/colornames"
)

var (
	blackColor = colornames.Black
	whiteColor = colornames.White
)

func TestRampLinear(t *testing.T) {
	ramp := gvox.NewRamp(
		gvox.RampStop{At: 1, Color: whiteColor},
		gvox.RampStop{At: 0, Color: blackColor},
	)
	for _, tc := range []struct {
		t, want float32
	}{
		{-1, 0}, {0, 0}, {0.25, 0.25}, {0.5, 0.5}, {1, 1}, {2, 1},
	} {
		got := ramp.At(tc.t)
		for i := 0; i < 3; i++ {
			if math.Abs(got[i]-tc.want) > 1e-6 {
				t.Errorf("At(%g)[%d] = %g, want %g", tc.t, i, got[i], tc.want)
			}
		}
		if got[3] != 1 {
			t.Errorf("At(%g) alpha = %g, want 1", tc.t, got[3])
		}
	}
	if c := ramp.Color(1); c != whiteColor {
		t.Errorf("Color(1) = %v, want white", c)
	}
}

func TestRampHSV(t *testing.T) {
	ramp := gvox.NewRamp(
		gvox.RampStop{At: 0, Color: colornames.Red},
		gvox.RampStop{At: 1, Color: colornames.Blue},
	)
	ramp.HSV = true
	// Red to blue through hue wraps around magenta, never green.
	mid := ramp.At(0.5)
	if mid[1] > 1e-3 {
		t.Errorf("HSV midpoint %v has green component", mid)
	}
	if mid[0] < 0.9 || mid[2] < 0.9 {
		t.Errorf("HSV midpoint %v should be saturated magenta", mid)
	}
	ramp.HSV = false
	lin := ramp.At(0.5)
	if math.Abs(lin[0]-0.5) > 1e-3 || math.Abs(lin[2]-0.5) > 1e-3 {
		t.Errorf("linear midpoint %v", lin)
	}
}

func TestRampEmpty(t *testing.T) {
	var ramp gvox.Ramp
	if got := ramp.At(0.5); got != [4]float32{} {
		t.Errorf("empty ramp must be transparent black, got %v", got)
	}
	if got := gvox.NewRamp(gvox.RampStop{At: 0.3, Color: whiteColor}).At(math.NaN()); got[0] != 1 {
		t.Errorf("NaN on single stop ramp got %v", got)
	}
}
