// Package gvoxaux provides helpers to get started with gvox: recompiling
// graphs as they are edited, executing units on the GPU and rendering
// slices of the results as images.
package gvoxaux

import (
	"errors"
	"fmt"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"time"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gvox/glbuild"
	"github.com/soypat/gvox/glexec"
)

// Recompiler compiles graphs as they change, keeping the last unit that compiled.
type Recompiler struct {
	cp   *glbuild.Compiler
	unit *glbuild.Unit
	log  *slog.Logger
}

// NewRecompiler returns a Recompiler that compiles with cp. A nil cp uses [glbuild.NewDefaultCompiler].
func NewRecompiler(cp *glbuild.Compiler) *Recompiler {
	if cp == nil {
		cp = glbuild.NewDefaultCompiler()
	}
	return &Recompiler{cp: cp, log: glbuild.Logger()}
}

// SetLogger sets the logger failed recompilations are reported to.
func (r *Recompiler) SetLogger(l *slog.Logger) { r.log = l }

// Unit returns the last unit that compiled successfully, or nil.
func (r *Recompiler) Unit() *glbuild.Unit { return r.unit }

// Update compiles the graph. changed is true when the unit's hash differs from
// the previous one, in which case kernels must be rebuilt. The new unit is kept
// either way since its injection getters may differ. On error the previous unit is returned untouched.
func (r *Recompiler) Update(g *glbuild.Graph, outputs ...glbuild.Output) (unit *glbuild.Unit, changed bool, err error) {
	u, err := r.cp.Compile(g, outputs...)
	if err != nil {
		r.log.Error("recompile failed, keeping previous unit", slog.String("err", err.Error()))
		return r.unit, false, err
	}
	changed = r.unit == nil || r.unit.Hash != u.Hash
	r.unit = u
	return u, changed, nil
}

// RenderConfig configures [Render].
type RenderConfig struct {
	// Size is the amount of voxels per axis.
	Size int
	// Output is the name of the output to render. Defaults to the first output.
	Output string
	// Layer is the z index of the rendered slice.
	Layer int
	// ColorConversion maps output values to colors. Defaults to [ColorConversionInigoQuilez].
	ColorConversion func(float32) color.Color
	// Exec places the voxel grid in the world. Size is overwritten.
	Exec glexec.Config
	// PNGOutput receives the rendered slice.
	PNGOutput io.Writer
	Silent    bool
}

// Render is an auxiliary function to aid users in getting setup in using gvox quickly.
// It compiles the graph in the GLSL dialect, runs it on the GPU and encodes a
// slice of a scalar output as a PNG image. Ideally users should implement their
// own execution since applications may vary widely.
func Render(g *glbuild.Graph, outputs []glbuild.Output, cfg RenderConfig) (err error) {
	if cfg.PNGOutput == nil {
		return errors.New("Render requires PNG output in config")
	} else if len(outputs) == 0 {
		return errors.New("Render requires at least one output")
	}
	log := func(args ...any) {
		if !cfg.Silent {
			fmt.Println(args...)
		}
	}
	out := outputs[0]
	for _, o := range outputs {
		if o.Name == cfg.Output {
			out = o
		}
	}
	if out.Value.Type != glbuild.Float {
		return fmt.Errorf("can only render float outputs, %s is %s", out.Name, out.Value.Type)
	}
	cfg = cfg.withDefaults()

	watch := stopwatch()
	cp := glbuild.NewDefaultCompiler()
	cp.SetDialect(glbuild.GLSL{})
	unit, err := cp.Compile(g, outputs...)
	if err != nil {
		return err
	}
	log("compiled", len(unit.Dispatches), "kernels in", watch())

	terminate, err := glexec.Init1x1GLFW()
	if err != nil {
		return err
	}
	defer terminate()
	ex, err := glexec.NewExecutor(unit, cfg.Exec)
	if err != nil {
		return err
	}
	defer ex.Delete()
	watch = stopwatch()
	err = ex.Run()
	if err != nil {
		return err
	}
	values := make([]float32, cfg.Size*cfg.Size*cfg.Size)
	err = ex.ReadOutput(out.Name, values)
	if err != nil {
		return err
	}
	log("evaluated", len(values), "voxels in", watch())

	img, err := SliceImage(values, cfg.Size, cfg.Layer, cfg.ColorConversion)
	if err != nil {
		return err
	}
	return png.Encode(cfg.PNGOutput, img)
}

// withDefaults fills in the unset scale and color conversion. A zero Scale
// takes the default voxel width, keeping the caller's Offset.
func (cfg RenderConfig) withDefaults() RenderConfig {
	if cfg.Exec.Scale == (ms3.Vec{}) {
		cfg.Exec.Scale = glexec.DefaultConfig(cfg.Size).Scale
	}
	cfg.Exec.Size = cfg.Size
	if cfg.ColorConversion == nil {
		cfg.ColorConversion = ColorConversionInigoQuilez(float32(cfg.Size) / 8)
	}
	return cfg
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
