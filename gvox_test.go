package gvox_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gvox"
	"github.com/soypat/gvox/glbuild"
)

func compileDebug(t *testing.T, bld *gvox.Builder, outputs ...glbuild.Output) *glbuild.Unit {
	t.Helper()
	cp := glbuild.NewDefaultCompiler()
	cp.SetDebugNames(true)
	u, err := cp.Compile(bld.Graph(), outputs...)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestBuilderTerrain(t *testing.T) {
	bld := &gvox.Builder{}
	pos := bld.Position()
	noise := bld.SimplexNoise(bld.Const(20), bld.Const(0.01))
	height := bld.Fractal(glbuild.FractalSum, noise, bld.Swizzle(pos, "xz"), bld.Const(2), bld.Const(0.5), 4)
	density := bld.Sub(bld.Swizzle(pos, "y"), height)
	u := compileDebug(t, bld, bld.Output("density", density))
	if len(u.Dispatches) != 1 || u.Dispatches[0].Kernel != "CSVoxel" {
		t.Fatalf("unexpected dispatches %+v", u.Dispatches)
	}
	for _, want := range []string{"snoise(", "for (uint octave_0 = 0u; octave_0 < 4u; octave_0++) {", "density = sub_0;"} {
		if !strings.Contains(u.Source, want) {
			t.Errorf("missing %q in source:\n%s", want, u.Source)
		}
	}
	if bld.Err() != nil {
		t.Error(bld.Err())
	}
}

func TestBuilderTypePanic(t *testing.T) {
	bld := &gvox.Builder{}
	defer func() {
		if recover() == nil {
			t.Error("expected panic on mismatched operand types")
		}
	}()
	bld.Add(bld.Position(), bld.Const(1))
}

func TestBuilderAccumulateErrors(t *testing.T) {
	bld := &gvox.Builder{NoTypePanic: true}
	pos := bld.Position()
	bad := bld.Add(pos, bld.Const(1))
	if bad.IsValid() {
		t.Fatal("mismatched add must return invalid value")
	}
	// Values derived from a failed node don't report more errors.
	bld.Mul(bad, bad)
	bld.Sample(bld.Voronoise(bld.Const(1), bld.Const(1), bld.Const(0.5), bld.Const(0.5)), pos)
	err := bld.Err()
	if !errors.Is(err, glbuild.ErrUnsupportedType) {
		t.Fatalf("want ErrUnsupportedType, got %v", err)
	}
	if n := strings.Count(err.Error(), "\n") + 1; n != 2 {
		t.Errorf("want 2 accumulated errors, got %d: %v", n, err)
	}
}

func TestBuilderNonFiniteConst(t *testing.T) {
	bld := &gvox.Builder{NoTypePanic: true}
	if v := bld.Const(math32.NaN()); v.IsValid() {
		t.Error("NaN constant must return invalid value")
	}
	if v := bld.Vec2(ms2.Vec{X: math32.Inf(1)}); v.IsValid() {
		t.Error("infinite constant must return invalid value")
	}
	if !errors.Is(bld.Err(), glbuild.ErrUnsupportedType) {
		t.Errorf("want ErrUnsupportedType, got %v", bld.Err())
	}
}

func TestBuilderSwizzle(t *testing.T) {
	bld := &gvox.Builder{NoTypePanic: true}
	pos := bld.Position()
	if v := bld.Swizzle(pos, "xz"); v.Type != glbuild.Float2 {
		t.Errorf("xz swizzle type %s", v.Type)
	}
	if v := bld.Swizzle(pos, "bgr"); v.Type != glbuild.Float3 {
		t.Errorf("bgr swizzle type %s", v.Type)
	}
	bld.Swizzle(pos, "xyzwx")
	if !errors.Is(bld.Err(), glbuild.ErrUnsupportedDimensionality) {
		t.Errorf("want ErrUnsupportedDimensionality, got %v", bld.Err())
	}
}

func TestBuilderCacheMemoized(t *testing.T) {
	bld := &gvox.Builder{}
	pos := bld.Position()
	n := bld.Sample(bld.SimplexNoise(bld.Const(1), bld.Const(0.1)), bld.Swizzle(pos, "xz"))
	a := bld.Cache(n, gvox.CacheConfig{Power: 1})
	b := bld.Cache(n, gvox.CacheConfig{Power: 1, Axes: "xz"})
	c := bld.Cache(n, gvox.CacheConfig{Power: 2})
	if a != b {
		t.Error("same cache configuration must return the same node")
	}
	if a == c {
		t.Error("different power must create a new node")
	}
	u := compileDebug(t, bld, bld.Output("density", bld.Add(a, c)))
	if len(u.Dispatches) != 3 || len(u.Textures) != 2 {
		t.Fatalf("want 3 dispatches and 2 textures, got %d and %d", len(u.Dispatches), len(u.Textures))
	}
}

func TestBuilderTransform(t *testing.T) {
	bld := &gvox.Builder{NoTypePanic: true}
	pos := bld.Position()
	moved := bld.Transform(pos, func() ms3.Mat4 { return ms3.RotationMat4(0.5, ms3.Vec{Y: 1}) })
	if !moved.IsValid() || moved.Type != glbuild.Float3 {
		t.Fatalf("bad transform value %+v", moved)
	}
	bld.Transform(pos, func() ms3.Mat4 { return ms3.Mat4{} })
	if err := bld.Err(); err == nil || !strings.Contains(err.Error(), "singular Mat4") {
		t.Errorf("want singular matrix error, got %v", err)
	}
}

func TestBuilderInject(t *testing.T) {
	bld := &gvox.Builder{NoTypePanic: true}
	offset := ms2.Vec{X: 1, Y: 2}
	v := gvox.Inject(bld, func() ms2.Vec { return offset })
	if v.Type != glbuild.Float2 {
		t.Fatalf("injected type %s", v.Type)
	}
	gvox.Inject(bld, func() float64 { return 1 })
	if !errors.Is(bld.Err(), glbuild.ErrUnsupportedType) {
		t.Errorf("float64 injection: want ErrUnsupportedType, got %v", bld.Err())
	}
	bld = &gvox.Builder{}
	pos := bld.Position()
	shifted := bld.Add(bld.Swizzle(pos, "xz"), gvox.Inject(bld, func() ms2.Vec { return offset }))
	u := compileDebug(t, bld, bld.Output("warped", bld.Construct(glbuild.Float3, shifted)))
	if len(u.Injections) != 1 {
		t.Fatalf("want 1 injection, got %d", len(u.Injections))
	}
	offset = ms2.Vec{X: 3, Y: 4}
	got, err := u.Injections[0].Value()
	if err != nil || got.Floats[0] != 3 || got.Floats[1] != 4 {
		t.Errorf("injection must read current value, got %v %v", got.Floats, err)
	}
}

func TestBuilderShapes(t *testing.T) {
	bld := &gvox.Builder{}
	pos := bld.Position()
	sphere := bld.Sphere(pos, bld.Const(10))
	box := bld.Box(pos, bld.Vec3(ms3.Vec{X: 5, Y: 5, Z: 5}))
	ground := bld.Plane(pos, bld.Const(0))
	sdf := bld.Smooth(glbuild.SDFUnion, bld.Const(2), bld.Subtraction(sphere, box), ground)
	u := compileDebug(t, bld, bld.Output("density", sdf))
	body := u.Source[strings.Index(u.Source, "void Voxel("):]
	for _, want := range []string{"opSubtraction(sphere_0, box_0)", "opSmoothUnion(sdf_0, plane_0, c_3)"} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q in source:\n%s", want, u.Source)
		}
	}
}

func TestBuilderGradient(t *testing.T) {
	bld := &gvox.Builder{}
	pos := bld.Position()
	ramp := gvox.NewRamp(
		gvox.RampStop{At: 0, Color: blackColor},
		gvox.RampStop{At: 1, Color: whiteColor},
	)
	shade := bld.Gradient(glbuild.Float4, ramp, bld.Swizzle(pos, "y"), bld.Const(-10), bld.Const(10), gvox.GradientConfig{})
	u := compileDebug(t, bld, bld.Output("albedo", shade))
	if len(u.Bakes) != 1 || u.Bakes[0].Size != 128 {
		t.Fatalf("want one bake of 128 texels, got %+v", u.Bakes)
	}
	tex, ok := u.Texture(u.Bakes[0].Texture)
	if !ok || tex.Writer != "" || tex.Dim != 1 {
		t.Errorf("bad gradient texture %+v", tex)
	}
}
