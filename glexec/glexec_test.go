package glexec_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/gvox"
	"github.com/soypat/gvox/glbuild"
	"github.com/soypat/gvox/glexec"
)

func cachedTerrain(t *testing.T, dialect glbuild.Dialect) *glbuild.Unit {
	t.Helper()
	bld := &gvox.Builder{}
	pos := bld.Position()
	xz := bld.Swizzle(pos, "xz")
	shift := gvox.Inject(bld, func() ms2.Vec { return ms2.Vec{X: 10, Y: -3} })
	n := bld.Sample(bld.SimplexNoise(bld.Const(8), bld.Const(0.05)), bld.Add(xz, shift))
	height := bld.Cache(n, gvox.CacheConfig{Power: 2})
	density := bld.Sub(bld.Swizzle(pos, "y"), height)
	cp := glbuild.NewDefaultCompiler()
	cp.SetDialect(dialect)
	u, err := cp.Compile(bld.Graph(), bld.Output("density", density))
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestWorkGroups(t *testing.T) {
	u := cachedTerrain(t, glbuild.GLSL{})
	if len(u.Dispatches) != 2 {
		t.Fatalf("want 2 dispatches, got %d", len(u.Dispatches))
	}
	cached, final := u.Dispatches[0], u.Dispatches[1]
	if got := glexec.WorkGroups(cached, 256); got != [3]int{8, 8, 1} {
		t.Errorf("cached 2D dispatch at power 2 over 256: want 8,8,1 groups, got %v", got)
	}
	if got := glexec.WorkGroups(final, 100); got != [3]int{13, 13, 13} {
		t.Errorf("final dispatch over 100: want 13,13,13 groups, got %v", got)
	}
	if got := glexec.WorkGroups(cached, 2); got != [3]int{1, 1, 1} {
		t.Errorf("reduced size must be clamped to one texel, got %v", got)
	}
	tex := u.Textures[0]
	if glexec.TextureSize(tex, 256) != 64 || glexec.TextureSize(tex, 3) != 1 {
		t.Errorf("bad texture sizes %d %d", glexec.TextureSize(tex, 256), glexec.TextureSize(tex, 3))
	}
}

func TestBindings(t *testing.T) {
	u := cachedTerrain(t, glbuild.GLSL{})
	tex := u.Textures[0].Name
	cachedKernel := u.Dispatches[0].Kernel
	binds := glexec.Bindings(u, cachedKernel)
	if len(binds) != 1 || !binds[0].Write || binds[0].Uniform != tex+"_write" {
		t.Fatalf("cached kernel bindings %+v", binds)
	}
	binds = glexec.Bindings(u, "CSVoxel")
	if len(binds) != 2 {
		t.Fatalf("final kernel bindings %+v", binds)
	}
	if !binds[0].Write || binds[0].Texture != "density" || binds[0].Uniform != "density_write" {
		t.Errorf("final kernel must write the output first, got %+v", binds[0])
	}
	if binds[1].Write || binds[1].Uniform != tex+"_read" {
		t.Errorf("final kernel must read the cached texture, got %+v", binds[1])
	}
	for _, b := range binds {
		if !strings.Contains(u.Source, b.Uniform+";") {
			t.Errorf("binding %s not declared in source", b.Uniform)
		}
	}
}

func TestProgramSource(t *testing.T) {
	u := cachedTerrain(t, glbuild.GLSL{})
	src := glexec.ProgramSource(u, u.Dispatches[1])
	if !strings.HasPrefix(src, "#version") || !strings.HasSuffix(src, "}\n\x00") {
		t.Errorf("bad program source framing")
	}
	if !strings.Contains(src, "layout(local_size_x = 8, local_size_y = 8, local_size_z = 8) in;") {
		t.Error("missing local size layout")
	}
	if !strings.Contains(src, "\tCSVoxel();\n") {
		t.Error("entry point must call final kernel")
	}
}

func TestMarshal(t *testing.T) {
	u := cachedTerrain(t, glbuild.GLSL{})
	vals, err := glexec.Marshal(u)
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 1 || vals[0].Type != glbuild.Float2 || vals[0].Floats[0] != 10 || vals[0].Floats[1] != -3 {
		t.Errorf("unexpected uniform values %+v", vals)
	}
}

func TestExecutorRequiresGLSL(t *testing.T) {
	u := cachedTerrain(t, glbuild.HLSL{})
	_, err := glexec.NewExecutor(u, glexec.DefaultConfig(32))
	if !errors.Is(err, glexec.ErrDialect) {
		t.Errorf("want ErrDialect, got %v", err)
	}
}
