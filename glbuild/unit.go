package glbuild

import (
	"fmt"
	"io"
	"strconv"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"golang.org/x/image/math/f32"
)

// Unit is the result of compiling a graph. It holds kernel source and
// everything the host needs to execute it.
type Unit struct {
	// Source is the full kernel source.
	Source string
	// Dialect is the name of the dialect Source is written in.
	Dialect string
	// Dispatches lists kernels in the order they must be dispatched.
	Dispatches []Dispatch
	// Textures lists backing textures the host must allocate.
	Textures []Texture
	// Outputs lists the textures written by the final kernel, one per compiled output.
	Outputs []OutputTexture
	// Injections must be evaluated and uploaded before every execution.
	Injections []Injection
	// Matrices must be evaluated and uploaded before every execution.
	Matrices []MatrixInjection
	// Bakes fill gradient textures at execution time.
	Bakes []Bake
	// Hash changes when Source or any resource layout changes. It does not
	// depend on injected values.
	Hash uint64
}

// WriteTo writes the unit's source to w.
func (u *Unit) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, u.Source)
	return int64(n), err
}

// Texture returns the backing texture with the given name.
func (u *Unit) Texture(name string) (Texture, bool) {
	for i := range u.Textures {
		if u.Textures[i].Name == name {
			return u.Textures[i], true
		}
	}
	return Texture{}, false
}

// Dispatch describes one kernel dispatch.
type Dispatch struct {
	Kernel string
	// Power is the resolution reduction: the kernel runs over size>>Power texels per axis.
	Power int
	// Dim is 2 or 3.
	Dim     int
	Depth   int
	Threads [3]int
}

// Resolution returns the amount of texels per axis the dispatch covers for a base size.
func (d Dispatch) Resolution(size int) int { return reducedSize(size, d.Power) }

// WorkGroups returns the amount of work groups to dispatch along each axis for a base size.
func (d Dispatch) WorkGroups(size int) (x, y, z int) {
	res := d.Resolution(size)
	x = ceilDiv(res, d.Threads[0])
	y = ceilDiv(res, d.Threads[1])
	z = 1
	if d.Dim == 3 {
		z = ceilDiv(res, d.Threads[2])
	}
	return x, y, z
}

// Texture describes a texture written by one kernel and read by others.
type Texture struct {
	Name string
	// Dim is 1, 2 or 3.
	Dim int
	// Type is the element type.
	Type    Type
	Power   int
	Sampler SamplerOptions
	// Writer is the kernel that writes the texture. Baked textures have no writer.
	Writer  string
	Readers []string
	// Size is the fixed resolution of baked textures. Zero for textures sized by dispatch.
	Size int
}

// Resolution returns the amount of texels per axis for a base size.
func (t Texture) Resolution(size int) int {
	if t.Size > 0 {
		return t.Size
	}
	return reducedSize(size, t.Power)
}

// OutputTexture is a texture written by the final kernel.
type OutputTexture struct {
	Name string
	Type Type
	// Texture is the name of the write view in source.
	Texture string
}

// Injection is a uniform whose value is supplied by the host.
type Injection struct {
	Name string
	Type Type
	get  func() any
}

// Value calls the host getter and marshals the result.
func (inj Injection) Value() (Uniform, error) {
	return Marshal(inj.Type, inj.get())
}

// Uniform is a marshalled uniform value.
type Uniform struct {
	Type   Type
	Floats [4]float32
	Ints   [4]int32
	Uints  [4]uint32
}

// Marshal converts v to a uniform of type typ. The Go type of v must map to typ through [TypeOf].
func Marshal(typ Type, v any) (u Uniform, err error) {
	u.Type = typ
	var got Type
	switch v := v.(type) {
	case float32:
		got = Float
		u.Floats[0] = v
	case ms2.Vec:
		got = Float2
		u.Floats[0], u.Floats[1] = v.X, v.Y
	case ms3.Vec:
		got = Float3
		u.Floats[0], u.Floats[1], u.Floats[2] = v.X, v.Y, v.Z
	case f32.Vec4:
		got = Float4
		u.Floats = v
	case uint32:
		got = Uint
		u.Uints[0] = v
	case int32:
		got = Int
		u.Ints[0] = v
	case [3]uint32:
		got = Uint3
		copy(u.Uints[:], v[:])
	default:
		return u, fmt.Errorf("%w: cannot marshal %T into %s uniform", ErrUnsupportedType, v, typ)
	}
	if got != typ {
		return u, fmt.Errorf("%w: got %s value for %s uniform", ErrUnsupportedType, got, typ)
	}
	return u, nil
}

// MatrixInjection is a float4x4 uniform supplied by the host.
type MatrixInjection struct {
	Name string
	get  func() ms3.Mat4
}

// Value calls the host getter.
func (m MatrixInjection) Value() ms3.Mat4 { return m.get() }

// Bake fills a gradient texture by sampling a curve.
type Bake struct {
	Texture string
	Size    int
	Curve   Curve
}

// Texels samples the curve at the center of each of the Size texels and appends the result to dst.
func (b Bake) Texels(dst []f32.Vec4) []f32.Vec4 {
	inv := 1 / float32(b.Size)
	for i := 0; i < b.Size; i++ {
		dst = append(dst, b.Curve.At((float32(i)+0.5)*inv))
	}
	return dst
}

func reducedSize(size, power int) int {
	return max(size>>power, 1)
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}

// hash mixes the layout of the unit into a single value.
func (u *Unit) hash() uint64 {
	h := hash([]byte(u.Source), 0)
	var buf []byte
	for _, d := range u.Dispatches {
		buf = append(buf[:0], d.Kernel...)
		buf = strconv.AppendInt(buf, int64(d.Power), 10)
		buf = strconv.AppendInt(buf, int64(d.Dim), 10)
		buf = strconv.AppendInt(buf, int64(d.Depth), 10)
		h = hash(buf, h)
	}
	for _, t := range u.Textures {
		buf = append(buf[:0], t.Name...)
		buf = append(buf, byte(t.Dim), byte(t.Type), byte(t.Sampler.Filter), byte(t.Sampler.Wrap))
		buf = strconv.AppendBool(buf, t.Sampler.Mips)
		buf = strconv.AppendBool(buf, t.Sampler.Bicubic)
		buf = strconv.AppendInt(buf, int64(t.Power), 10)
		buf = strconv.AppendInt(buf, int64(t.Size), 10)
		buf = append(buf, t.Writer...)
		for _, r := range t.Readers {
			buf = append(buf, r...)
		}
		h = hash(buf, h)
	}
	for _, inj := range u.Injections {
		buf = append(buf[:0], inj.Name...)
		buf = append(buf, byte(inj.Type))
		h = hash(buf, h)
	}
	for _, m := range u.Matrices {
		h = hash([]byte(m.Name), h)
	}
	return h
}
