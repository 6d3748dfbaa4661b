package glbuild_test

import (
	"errors"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gvox/glbuild"
	"golang.org/x/image/math/f32"
)

func TestTypeOf(t *testing.T) {
	check := func(got glbuild.Type, err error, want glbuild.Type) {
		t.Helper()
		if err != nil || got != want {
			t.Errorf("want %s, got %s (%v)", want, got, err)
		}
	}
	typ, err := glbuild.TypeOf[float32]()
	check(typ, err, glbuild.Float)
	typ, err = glbuild.TypeOf[ms2.Vec]()
	check(typ, err, glbuild.Float2)
	typ, err = glbuild.TypeOf[ms3.Vec]()
	check(typ, err, glbuild.Float3)
	typ, err = glbuild.TypeOf[f32.Vec4]()
	check(typ, err, glbuild.Float4)
	typ, err = glbuild.TypeOf[uint32]()
	check(typ, err, glbuild.Uint)
	typ, err = glbuild.TypeOf[int32]()
	check(typ, err, glbuild.Int)
	typ, err = glbuild.TypeOf[[3]uint32]()
	check(typ, err, glbuild.Uint3)

	if _, err := glbuild.TypeOf[float64](); !errors.Is(err, glbuild.ErrUnsupportedType) {
		t.Errorf("float64: want ErrUnsupportedType, got %v", err)
	}
	if _, err := glbuild.TypeOf[int](); !errors.Is(err, glbuild.ErrUnsupportedType) {
		t.Errorf("int: want ErrUnsupportedType, got %v", err)
	}
}

func TestTypeDim(t *testing.T) {
	for typ, want := range map[glbuild.Type]int{
		glbuild.Float: 1, glbuild.Float2: 2, glbuild.Float3: 3, glbuild.Float4: 4,
		glbuild.Uint: 1, glbuild.Int: 1, glbuild.Uint3: 3,
	} {
		if typ.Dim() != want {
			t.Errorf("%s: want dim %d, got %d", typ, want, typ.Dim())
		}
	}
	if glbuild.Float3.String() != "float3" || glbuild.Uint3.String() != "uint3" {
		t.Error("bad type keyword")
	}
	v, err := glbuild.VectorOf(glbuild.Float, 3)
	if err != nil || v != glbuild.Float3 {
		t.Errorf("VectorOf(float, 3) = %s, %v", v, err)
	}
	if _, err := glbuild.VectorOf(glbuild.Int, 3); !errors.Is(err, glbuild.ErrUnsupportedDimensionality) {
		t.Errorf("want ErrUnsupportedDimensionality, got %v", err)
	}
}

func TestMarshal(t *testing.T) {
	u, err := glbuild.Marshal(glbuild.Float3, ms3.Vec{X: 1, Y: 2, Z: 3})
	if err != nil || u.Floats != [4]float32{1, 2, 3, 0} {
		t.Errorf("float3: %v %v", u.Floats, err)
	}
	u, err = glbuild.Marshal(glbuild.Uint, uint32(7))
	if err != nil || u.Uints[0] != 7 {
		t.Errorf("uint: %v %v", u.Uints, err)
	}
	u, err = glbuild.Marshal(glbuild.Int, int32(-7))
	if err != nil || u.Ints[0] != -7 {
		t.Errorf("int: %v %v", u.Ints, err)
	}
	if _, err = glbuild.Marshal(glbuild.Float, ms3.Vec{}); !errors.Is(err, glbuild.ErrUnsupportedType) {
		t.Errorf("type mismatch: want ErrUnsupportedType, got %v", err)
	}
	if _, err = glbuild.Marshal(glbuild.Float, 1.0); !errors.Is(err, glbuild.ErrUnsupportedType) {
		t.Errorf("float64: want ErrUnsupportedType, got %v", err)
	}
}

func TestLiteral(t *testing.T) {
	for _, tc := range []struct {
		got  func() (string, glbuild.Type, error)
		want string
		typ  glbuild.Type
	}{
		{func() (string, glbuild.Type, error) { return glbuild.Literal(float32(1)) }, "1.", glbuild.Float},
		{func() (string, glbuild.Type, error) { return glbuild.Literal(float32(-2.5)) }, "-2.5", glbuild.Float},
		{func() (string, glbuild.Type, error) { return glbuild.Literal(ms2.Vec{X: 1, Y: 0.5}) }, "float2(1., 0.5)", glbuild.Float2},
		{func() (string, glbuild.Type, error) { return glbuild.Literal(ms3.Vec{X: 0, Y: 2, Z: -3}) }, "float3(0., 2., -3.)", glbuild.Float3},
		{func() (string, glbuild.Type, error) { return glbuild.Literal(uint32(4)) }, "4u", glbuild.Uint},
		{func() (string, glbuild.Type, error) { return glbuild.Literal([3]uint32{1, 2, 3}) }, "uint3(1u, 2u, 3u)", glbuild.Uint3},
	} {
		got, typ, err := tc.got()
		if err != nil || got != tc.want || typ != tc.typ {
			t.Errorf("want %s %s, got %s %s (%v)", tc.want, tc.typ, got, typ, err)
		}
	}
	if _, _, err := glbuild.Literal(3.0); !errors.Is(err, glbuild.ErrUnsupportedType) {
		t.Errorf("float64 literal: want ErrUnsupportedType, got %v", err)
	}
	for _, v := range []ms3.Vec{{X: math32.NaN()}, {Y: math32.Inf(1)}, {Z: math32.Inf(-1)}} {
		if lit, _, err := glbuild.Literal(v); !errors.Is(err, glbuild.ErrUnsupportedType) {
			t.Errorf("%v: non-finite literal must fail, got %q", v, lit)
		}
	}
}
