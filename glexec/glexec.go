// Package glexec runs units compiled by glbuild in the GLSL dialect on an OpenGL
// 4.6 compute capable device. Each dispatch of a unit is compiled as its own
// program. Textures are allocated and resized from the unit's descriptors and
// host values are uploaded before every run.
package glexec

import (
	"errors"
	"fmt"
	"slices"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gvox/glbuild"
)

var (
	errNoCGO = errors.New("GPU execution requires CGo and is not supported on TinyGo")
	// ErrDialect is returned when a unit was not compiled to GLSL.
	ErrDialect = errors.New("glexec requires a GLSL unit")
)

// Config is the world placement of the voxel grid. The world position of the
// voxel at integer coordinate id is (id + Offset) * Scale.
type Config struct {
	// Size is the amount of voxels per axis.
	Size   int
	Scale  ms3.Vec
	Offset ms3.Vec
}

// DefaultConfig returns a Config of size voxels per axis, each one unit wide.
func DefaultConfig(size int) Config {
	return Config{Size: size, Scale: ms3.Vec{X: 1, Y: 1, Z: 1}}
}

func (cfg Config) validate() error {
	if cfg.Size <= 0 {
		return fmt.Errorf("glexec: invalid size %d", cfg.Size)
	}
	return nil
}

// TextureSize returns the amount of texels per axis of tex for a grid of size voxels per axis.
func TextureSize(tex glbuild.Texture, size int) int {
	return tex.Resolution(size)
}

// WorkGroups returns the amount of work groups of d to dispatch for a grid of size voxels per axis.
func WorkGroups(d glbuild.Dispatch, size int) [3]int {
	x, y, z := d.WorkGroups(size)
	return [3]int{x, y, z}
}

// Marshal evaluates every injection of the unit and returns the values to upload, in order.
func Marshal(u *glbuild.Unit) ([]glbuild.Uniform, error) {
	vals := make([]glbuild.Uniform, len(u.Injections))
	for i, inj := range u.Injections {
		v, err := inj.Value()
		if err != nil {
			return nil, fmt.Errorf("injection %s: %w", inj.Name, err)
		}
		vals[i] = v
	}
	return vals, nil
}

// Binding is a texture view a kernel must have bound to run.
type Binding struct {
	// Uniform is the texture view name in source.
	Uniform string
	// Texture is the name of the bound texture.
	Texture string
	// Write is true for image views written by the kernel.
	Write bool
}

// Bindings returns the texture views kernel accesses, writes first, in the
// order textures are listed by the unit. Output textures are written by the final kernel.
func Bindings(u *glbuild.Unit, kernel string) []Binding {
	var binds []Binding
	for _, tex := range u.Textures {
		if tex.Writer == kernel {
			binds = append(binds, Binding{Uniform: tex.Name + "_write", Texture: tex.Name, Write: true})
		}
	}
	if final := finalKernel(u); final == kernel {
		for _, out := range u.Outputs {
			binds = append(binds, Binding{Uniform: out.Texture, Texture: out.Name, Write: true})
		}
	}
	for _, tex := range u.Textures {
		if slices.Contains(tex.Readers, kernel) {
			binds = append(binds, Binding{Uniform: tex.Name + "_read", Texture: tex.Name})
		}
	}
	return binds
}

// finalKernel returns the kernel dispatched last, which writes the outputs.
func finalKernel(u *glbuild.Unit) string {
	if len(u.Dispatches) == 0 {
		return ""
	}
	return u.Dispatches[len(u.Dispatches)-1].Kernel
}

// ProgramSource returns the source of the program that runs the dispatch, null terminated.
func ProgramSource(u *glbuild.Unit, d glbuild.Dispatch) string {
	return u.Source + glbuild.GLSL{}.EntryPoint(d.Kernel, d.Threads) + "\x00"
}

func checkUnit(u *glbuild.Unit) error {
	if u == nil {
		return errors.New("glexec: nil unit")
	}
	if u.Dialect != (glbuild.GLSL{}).Name() {
		return fmt.Errorf("%w, got %q", ErrDialect, u.Dialect)
	}
	if len(u.Dispatches) == 0 {
		return errors.New("glexec: unit has no dispatches")
	}
	return nil
}
