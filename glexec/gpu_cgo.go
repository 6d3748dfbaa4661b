//go:build !tinygo && cgo

package glexec

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"github.com/soypat/gvox/glbuild"
	"golang.org/x/image/math/f32"
)

// Init1x1GLFW starts a hidden 1x1 sized GLFW window with a 4.6 core context so that user can start working with GPU.
// It returns a termination function that should be called when user is done running loads on GPU.
func Init1x1GLFW() (terminate func(), err error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("initializing GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 6)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.Visible, glfw.False)
	window, err := glfw.CreateWindow(1, 1, "gvox compute", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("creating GLFW window: %w", err)
	}
	window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("initializing OpenGL: %w", err)
	}
	return glfw.Terminate, nil
}

// Executor runs every dispatch of a unit in order.
type Executor struct {
	unit     *glbuild.Unit
	cfg      Config
	progs    []program
	textures map[string]*texture
	// allocated is the size textures were last allocated for.
	allocated int
	baked     bool
	log       *slog.Logger
}

type program struct {
	prog     glgl.Program
	dispatch glbuild.Dispatch
	binds    []Binding
	locs     map[string]int32
}

type texture struct {
	id     uint32
	target uint32
	dim    int
	comps  int
	res    int
	power  int
	// fixed is the resolution of baked textures, which don't follow the grid size.
	fixed   int
	sampler glbuild.SamplerOptions
}

// NewExecutor compiles one program per dispatch of the unit. A GL context must be current.
func NewExecutor(unit *glbuild.Unit, cfg Config) (*Executor, error) {
	if err := checkUnit(unit); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	ex := &Executor{
		unit:     unit,
		cfg:      cfg,
		textures: make(map[string]*texture),
		log:      glbuild.Logger(),
	}
	for _, d := range unit.Dispatches {
		src := ProgramSource(unit, d)
		prog, err := glgl.CompileProgram(glgl.ShaderSource{Compute: src})
		if err != nil {
			ex.Delete()
			return nil, fmt.Errorf("compiling kernel %s: %w", d.Kernel, err)
		}
		p := program{prog: prog, dispatch: d, binds: Bindings(unit, d.Kernel), locs: make(map[string]int32)}
		ex.progs = append(ex.progs, p)
		ex.log.Debug("compiled program", slog.String("kernel", d.Kernel), slog.Int("bindings", len(p.binds)))
	}
	for _, tex := range unit.Textures {
		ex.textures[tex.Name] = newTexture(tex.Dim, tex.Type.Dim(), tex.Power, tex.Size, tex.Sampler)
	}
	for _, out := range unit.Outputs {
		ex.textures[out.Name] = newTexture(3, out.Type.Dim(), 0, 0, glbuild.SamplerOptions{Filter: glbuild.FilterPoint, Wrap: glbuild.WrapClamp})
	}
	return ex, nil
}

// SetConfig changes the grid placement. Textures are resized on the next [Executor.Run].
func (ex *Executor) SetConfig(cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	ex.cfg = cfg
	return nil
}

// Run uploads host values and dispatches every kernel of the unit.
func (ex *Executor) Run() error {
	if ex.allocated != ex.cfg.Size {
		for _, tex := range ex.textures {
			if err := tex.allocate(ex.cfg.Size); err != nil {
				return err
			}
		}
		ex.allocated = ex.cfg.Size
	}
	if !ex.baked {
		if err := ex.bake(); err != nil {
			return err
		}
		ex.baked = true
	}
	uniforms, err := Marshal(ex.unit)
	if err != nil {
		return err
	}
	for i := range ex.progs {
		p := &ex.progs[i]
		if err := ex.dispatch(p, uniforms); err != nil {
			return fmt.Errorf("kernel %s: %w", p.dispatch.Kernel, err)
		}
	}
	return nil
}

// bake samples gradient curves into their textures.
func (ex *Executor) bake() error {
	var texels []f32.Vec4
	for _, b := range ex.unit.Bakes {
		tex := ex.textures[b.Texture]
		if tex == nil {
			return fmt.Errorf("bake of unknown texture %s", b.Texture)
		}
		texels = b.Texels(texels[:0])
		gl.BindTexture(tex.target, tex.id)
		gl.TexImage1D(tex.target, 0, gl.RGBA32F, int32(len(texels)), 0, gl.RGBA, gl.FLOAT, gl.Ptr(&texels[0]))
		if tex.sampler.Mips {
			gl.GenerateMipmap(tex.target)
		}
		gl.BindTexture(tex.target, 0)
		if err := glgl.Err(); err != nil {
			ex.log.Warn("gradient bake failed", slog.String("texture", b.Texture), slog.String("err", err.Error()))
			return err
		}
	}
	return nil
}

func (ex *Executor) dispatch(p *program, uniforms []glbuild.Uniform) error {
	p.prog.Bind()
	defer p.prog.Unbind()
	if loc := p.location("size"); loc >= 0 {
		gl.Uniform1i(loc, int32(ex.cfg.Size))
	}
	if loc := p.location("scale"); loc >= 0 {
		gl.Uniform3f(loc, ex.cfg.Scale.X, ex.cfg.Scale.Y, ex.cfg.Scale.Z)
	}
	if loc := p.location("offset"); loc >= 0 {
		gl.Uniform3f(loc, ex.cfg.Offset.X, ex.cfg.Offset.Y, ex.cfg.Offset.Z)
	}
	for i, inj := range ex.unit.Injections {
		if loc := p.location(inj.Name); loc >= 0 {
			setUniform(loc, uniforms[i])
		}
	}
	for _, m := range ex.unit.Matrices {
		if loc := p.location(m.Name); loc >= 0 {
			arr := m.Value().Array()
			// Array is row major.
			gl.UniformMatrix4fv(loc, 1, true, &arr[0])
		}
	}
	var imageUnit, textureUnit uint32
	for _, bind := range p.binds {
		tex := ex.textures[bind.Texture]
		loc := p.location(bind.Uniform)
		if tex == nil || loc < 0 {
			continue
		}
		if bind.Write {
			gl.BindImageTexture(imageUnit, tex.id, 0, tex.dim == 3, 0, gl.WRITE_ONLY, tex.internalFormat())
			gl.Uniform1i(loc, int32(imageUnit))
			imageUnit++
		} else {
			gl.ActiveTexture(gl.TEXTURE0 + textureUnit)
			gl.BindTexture(tex.target, tex.id)
			gl.Uniform1i(loc, int32(textureUnit))
			textureUnit++
		}
	}
	if err := glgl.Err(); err != nil {
		ex.log.Warn("binding resources", slog.String("kernel", p.dispatch.Kernel), slog.String("err", err.Error()))
		return err
	}
	groups := WorkGroups(p.dispatch, ex.cfg.Size)
	ex.log.Debug("dispatch", slog.String("kernel", p.dispatch.Kernel),
		slog.Int("x", groups[0]), slog.Int("y", groups[1]), slog.Int("z", groups[2]))
	gl.DispatchCompute(uint32(groups[0]), uint32(groups[1]), uint32(groups[2]))
	gl.MemoryBarrier(gl.ALL_BARRIER_BITS)
	for _, bind := range p.binds {
		tex := ex.textures[bind.Texture]
		if bind.Write && tex != nil && tex.sampler.Mips {
			gl.BindTexture(tex.target, tex.id)
			gl.GenerateMipmap(tex.target)
		}
	}
	if err := glgl.Err(); err != nil {
		ex.log.Warn("dispatch failed", slog.String("kernel", p.dispatch.Kernel), slog.String("err", err.Error()))
		return err
	}
	return nil
}

// ReadOutput reads the output texture named name into dst. dst must hold
// size³ values times the components of the output type.
func (ex *Executor) ReadOutput(name string, dst []float32) error {
	var out *glbuild.OutputTexture
	for i := range ex.unit.Outputs {
		if ex.unit.Outputs[i].Name == name {
			out = &ex.unit.Outputs[i]
		}
	}
	tex := ex.textures[name]
	if out == nil || tex == nil {
		return fmt.Errorf("no output named %q", name)
	}
	if tex.res == 0 {
		return errors.New("ReadOutput called before Run")
	}
	want := tex.res * tex.res * tex.res * tex.comps
	if len(dst) != want {
		return fmt.Errorf("output %s needs buffer of length %d, got %d", name, want, len(dst))
	}
	gl.BindTexture(tex.target, tex.id)
	gl.GetTexImage(tex.target, 0, tex.format(), gl.FLOAT, gl.Ptr(&dst[0]))
	gl.BindTexture(tex.target, 0)
	return glgl.Err()
}

// Delete frees programs and textures. The executor can't be used afterwards.
func (ex *Executor) Delete() {
	for i := range ex.progs {
		ex.progs[i].prog.Delete()
	}
	ex.progs = nil
	for name, tex := range ex.textures {
		if tex.id != 0 {
			gl.DeleteTextures(1, &tex.id)
		}
		delete(ex.textures, name)
	}
}

func (p *program) location(name string) int32 {
	loc, ok := p.locs[name]
	if !ok {
		loc = gl.GetUniformLocation(p.prog.ID(), gl.Str(name+"\x00"))
		p.locs[name] = loc
	}
	return loc
}

func setUniform(loc int32, u glbuild.Uniform) {
	f, i, ui := u.Floats, u.Ints, u.Uints
	switch u.Type {
	case glbuild.Float:
		gl.Uniform1f(loc, f[0])
	case glbuild.Float2:
		gl.Uniform2f(loc, f[0], f[1])
	case glbuild.Float3:
		gl.Uniform3f(loc, f[0], f[1], f[2])
	case glbuild.Float4:
		gl.Uniform4f(loc, f[0], f[1], f[2], f[3])
	case glbuild.Int:
		gl.Uniform1i(loc, i[0])
	case glbuild.Uint:
		gl.Uniform1ui(loc, ui[0])
	case glbuild.Uint3:
		gl.Uniform3ui(loc, ui[0], ui[1], ui[2])
	}
}

func newTexture(dim, comps, power, fixed int, sampler glbuild.SamplerOptions) *texture {
	tex := &texture{dim: dim, comps: comps, power: power, fixed: fixed, sampler: sampler}
	switch dim {
	case 1:
		tex.target = gl.TEXTURE_1D
	case 2:
		tex.target = gl.TEXTURE_2D
	default:
		tex.target = gl.TEXTURE_3D
	}
	return tex
}

// allocate creates or resizes the texture for a grid of size voxels per axis.
func (tex *texture) allocate(size int) error {
	res := tex.fixed
	if res == 0 {
		res = max(size>>tex.power, 1)
	}
	if res == tex.res && tex.id != 0 {
		return nil
	}
	if tex.id == 0 {
		gl.GenTextures(1, &tex.id)
	}
	gl.BindTexture(tex.target, tex.id)
	ifmt := int32(tex.internalFormat())
	r := int32(res)
	switch tex.dim {
	case 1:
		gl.TexImage1D(tex.target, 0, ifmt, r, 0, tex.format(), gl.FLOAT, nil)
	case 2:
		gl.TexImage2D(tex.target, 0, ifmt, r, r, 0, tex.format(), gl.FLOAT, nil)
	default:
		gl.TexImage3D(tex.target, 0, ifmt, r, r, r, 0, tex.format(), gl.FLOAT, nil)
	}
	minFilter, magFilter := filters(tex.sampler)
	wrap := wrapMode(tex.sampler.Wrap)
	gl.TexParameteri(tex.target, gl.TEXTURE_MIN_FILTER, minFilter)
	gl.TexParameteri(tex.target, gl.TEXTURE_MAG_FILTER, magFilter)
	gl.TexParameteri(tex.target, gl.TEXTURE_WRAP_S, wrap)
	gl.TexParameteri(tex.target, gl.TEXTURE_WRAP_T, wrap)
	gl.TexParameteri(tex.target, gl.TEXTURE_WRAP_R, wrap)
	if tex.sampler.Mips {
		gl.GenerateMipmap(tex.target)
	}
	gl.BindTexture(tex.target, 0)
	tex.res = res
	return glgl.Err()
}

func (tex *texture) internalFormat() uint32 {
	switch tex.comps {
	case 1:
		return gl.R32F
	case 2:
		return gl.RG32F
	}
	return gl.RGBA32F
}

func (tex *texture) format() uint32 {
	switch tex.comps {
	case 1:
		return gl.RED
	case 2:
		return gl.RG
	case 3:
		return gl.RGB
	}
	return gl.RGBA
}

func filters(s glbuild.SamplerOptions) (minify, magnify int32) {
	switch s.Filter {
	case glbuild.FilterPoint:
		minify, magnify = gl.NEAREST, gl.NEAREST
		if s.Mips {
			minify = gl.NEAREST_MIPMAP_NEAREST
		}
	case glbuild.FilterTrilinear:
		minify, magnify = gl.LINEAR, gl.LINEAR
		if s.Mips {
			minify = gl.LINEAR_MIPMAP_LINEAR
		}
	default:
		minify, magnify = gl.LINEAR, gl.LINEAR
		if s.Mips {
			minify = gl.LINEAR_MIPMAP_NEAREST
		}
	}
	return minify, magnify
}

func wrapMode(w glbuild.Wrap) int32 {
	switch w {
	case glbuild.WrapClamp:
		return gl.CLAMP_TO_EDGE
	case glbuild.WrapMirror:
		return gl.MIRRORED_REPEAT
	case glbuild.WrapMirrorOnce:
		return gl.MIRROR_CLAMP_TO_EDGE
	}
	return gl.REPEAT
}
