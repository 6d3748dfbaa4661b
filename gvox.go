package gvox

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gvox/glbuild"
	"golang.org/x/image/math/f32"
)

// epstol is used to check for badly conditioned transformation matrix determinants.
const epstol = 6e-7

// Builder wraps construction of voxel expression graphs. Operations type check
// their arguments and return a handle to the added node.
// Provides error handling strategies with panics or error accumulation during graph construction.
type Builder struct {
	// NoTypePanic accumulates construction errors, reported by [Builder.Err],
	// instead of panicking. Operations that fail return the zero Value.
	NoTypePanic bool
	g           *glbuild.Graph
	accumErrs   []error
	cached      map[cacheKey]glbuild.Value
}

type cacheKey struct {
	inner, scale, offset glbuild.NodeID
	power                int
	axes                 string
	sampler              glbuild.SamplerOptions
}

// NewBuilder returns a Builder over an empty graph with the position and dispatch id inputs declared.
func NewBuilder() *Builder {
	return &Builder{g: glbuild.NewGraph()}
}

// Graph returns the graph built so far.
func (bld *Builder) Graph() *glbuild.Graph {
	bld.init()
	return bld.g
}

// Err returns the errors accumulated while building with NoTypePanic set, joined by [errors.Join].
func (bld *Builder) Err() error {
	if len(bld.accumErrs) == 0 {
		return nil
	}
	return errors.Join(bld.accumErrs...)
}

func (bld *Builder) init() {
	if bld.g == nil {
		bld.g = glbuild.NewGraph()
	}
}

func (bld *Builder) typeErrorf(msg string, args ...any) {
	bld.fail(fmt.Errorf(msg, args...))
}

func (bld *Builder) fail(err error) {
	if !bld.NoTypePanic {
		panic(err.Error())
	}
	bld.accumErrs = append(bld.accumErrs, err)
}

// valid reports whether all values refer to nodes. Invalid values produced by
// an earlier accumulated error are not reported again.
func (bld *Builder) valid(op string, values ...glbuild.Value) bool {
	for _, v := range values {
		if !v.IsValid() {
			if len(bld.accumErrs) == 0 {
				bld.typeErrorf("%s: invalid argument", op)
			}
			return false
		}
	}
	return true
}

func (bld *Builder) add(typ glbuild.Type, op glbuild.Op) glbuild.Value {
	bld.init()
	v, err := bld.g.Add(typ, op)
	if err != nil {
		bld.fail(err)
		return glbuild.Value{}
	}
	return v
}

// Position is the world position of the voxel being evaluated.
func (bld *Builder) Position() glbuild.Value {
	bld.init()
	return bld.g.Position()
}

// DispatchID is the thread id of the voxel being evaluated.
func (bld *Builder) DispatchID() glbuild.Value {
	bld.init()
	return bld.g.DispatchID()
}

// Output names v as a compiled output.
func (bld *Builder) Output(name string, v glbuild.Value) glbuild.Output {
	return glbuild.Output{Name: name, Value: v}
}

// Const adds a float constant.
func (bld *Builder) Const(v float32) glbuild.Value { return constant(bld, v) }

// Vec2 adds a float2 constant.
func (bld *Builder) Vec2(v ms2.Vec) glbuild.Value { return constant(bld, v) }

// Vec3 adds a float3 constant.
func (bld *Builder) Vec3(v ms3.Vec) glbuild.Value { return constant(bld, v) }

// Vec4 adds a float4 constant.
func (bld *Builder) Vec4(v f32.Vec4) glbuild.Value { return constant(bld, v) }

func constant[T glbuild.Element](bld *Builder, v T) glbuild.Value {
	lit, typ, err := glbuild.Literal(v)
	if err != nil {
		bld.fail(err)
		return glbuild.Value{}
	}
	return bld.add(typ, glbuild.Constant{Literal: lit})
}

// Inject adds a value read from get every time the compiled unit is executed.
// The node's type is derived from T, see [glbuild.TypeOf].
func Inject[T glbuild.Element](bld *Builder, get func() T) glbuild.Value {
	typ, err := glbuild.TypeOf[T]()
	if err != nil {
		bld.fail(err)
		return glbuild.Value{}
	}
	if get == nil {
		bld.typeErrorf("nil injection getter")
		return glbuild.Value{}
	}
	return bld.add(typ, glbuild.Injected{Get: func() any { return get() }})
}

func (bld *Builder) binary(operator byte, a, b glbuild.Value) glbuild.Value {
	if !bld.valid(string(operator), a, b) {
		return glbuild.Value{}
	}
	if a.Type != b.Type {
		bld.fail(fmt.Errorf("%w: %s %c %s operand types must match", glbuild.ErrUnsupportedType, a.Type, operator, b.Type))
		return glbuild.Value{}
	}
	return bld.add(a.Type, glbuild.Binary{A: a.ID, B: b.ID, Operator: operator})
}

// Add returns a+b. Operands must have the same type.
func (bld *Builder) Add(a, b glbuild.Value) glbuild.Value { return bld.binary('+', a, b) }

// Sub returns a-b. Operands must have the same type.
func (bld *Builder) Sub(a, b glbuild.Value) glbuild.Value { return bld.binary('-', a, b) }

// Mul returns the component-wise product a*b. Operands must have the same type.
func (bld *Builder) Mul(a, b glbuild.Value) glbuild.Value { return bld.binary('*', a, b) }

// Div returns the component-wise quotient a/b. Operands must have the same type.
func (bld *Builder) Div(a, b glbuild.Value) glbuild.Value { return bld.binary('/', a, b) }

// Call adds a call to an intrinsic or library function returning typ.
func (bld *Builder) Call(typ glbuild.Type, fn string, args ...glbuild.Value) glbuild.Value {
	if !bld.valid(fn, args...) {
		return glbuild.Value{}
	}
	ids := make([]glbuild.NodeID, len(args))
	for i, arg := range args {
		ids[i] = arg.ID
	}
	return bld.add(typ, glbuild.Call{Func: fn, Args: ids})
}

func (bld *Builder) sameTypeCall(fn string, args ...glbuild.Value) glbuild.Value {
	if !bld.valid(fn, args...) {
		return glbuild.Value{}
	}
	for _, arg := range args[1:] {
		if arg.Type != args[0].Type {
			bld.fail(fmt.Errorf("%w: %s argument types %s and %s differ", glbuild.ErrUnsupportedType, fn, args[0].Type, arg.Type))
			return glbuild.Value{}
		}
	}
	return bld.Call(args[0].Type, fn, args...)
}

// Min returns the component-wise minimum of a and b.
func (bld *Builder) Min(a, b glbuild.Value) glbuild.Value { return bld.sameTypeCall("min", a, b) }

// Max returns the component-wise maximum of a and b.
func (bld *Builder) Max(a, b glbuild.Value) glbuild.Value { return bld.sameTypeCall("max", a, b) }

// Abs returns the component-wise absolute value of a.
func (bld *Builder) Abs(a glbuild.Value) glbuild.Value { return bld.sameTypeCall("abs", a) }

// Floor returns the component-wise floor of a.
func (bld *Builder) Floor(a glbuild.Value) glbuild.Value { return bld.sameTypeCall("floor", a) }

// Frac returns the fractional part of a.
func (bld *Builder) Frac(a glbuild.Value) glbuild.Value { return bld.sameTypeCall("frac", a) }

// Saturate clamps a to [0, 1].
func (bld *Builder) Saturate(a glbuild.Value) glbuild.Value { return bld.sameTypeCall("saturate", a) }

// Clamp clamps x between lo and hi.
func (bld *Builder) Clamp(x, lo, hi glbuild.Value) glbuild.Value {
	return bld.sameTypeCall("clamp", x, lo, hi)
}

// Lerp linearly interpolates between a and b by t.
func (bld *Builder) Lerp(a, b, t glbuild.Value) glbuild.Value {
	return bld.sameTypeCall("lerp", a, b, t)
}

// Length returns the euclidean length of a.
func (bld *Builder) Length(a glbuild.Value) glbuild.Value {
	if !bld.valid("length", a) {
		return glbuild.Value{}
	}
	if !a.Type.IsFloat() {
		bld.fail(fmt.Errorf("%w: length of %s", glbuild.ErrUnsupportedType, a.Type))
		return glbuild.Value{}
	}
	return bld.Call(glbuild.Float, "length", a)
}

// Swizzle selects components of a, i.e: "xz" or "rgb".
func (bld *Builder) Swizzle(a glbuild.Value, selector string) glbuild.Value {
	if !bld.valid("swizzle", a) {
		return glbuild.Value{}
	}
	typ, err := glbuild.VectorOf(a.Type.Scalar(), len(selector))
	if err != nil {
		bld.fail(fmt.Errorf("swizzle %q: %w", selector, err))
		return glbuild.Value{}
	}
	return bld.add(typ, glbuild.Swizzle{A: a.ID, Selector: selector})
}

// Cast converts a to typ.
func (bld *Builder) Cast(a glbuild.Value, typ glbuild.Type) glbuild.Value {
	if !bld.valid("cast", a) {
		return glbuild.Value{}
	}
	return bld.add(typ, glbuild.Cast{A: a.ID})
}

// Construct builds a float vector of type typ. Missing components are zero.
func (bld *Builder) Construct(typ glbuild.Type, inputs ...glbuild.Value) glbuild.Value {
	if !bld.valid("construct", inputs...) {
		return glbuild.Value{}
	}
	ids := make([]glbuild.NodeID, len(inputs))
	for i, in := range inputs {
		ids[i] = in.ID
	}
	return bld.add(typ, glbuild.Construct{Inputs: ids})
}

// Noise is a noise function whose parameters are set but whose position is not.
type Noise struct {
	t glbuild.NoiseTemplate
}

func (bld *Builder) template(kind glbuild.NoiseKind, amplitude, scale glbuild.Value) Noise {
	if !bld.valid(kind.String(), amplitude, scale) {
		return Noise{}
	}
	return Noise{t: glbuild.NoiseTemplate{Kind: kind, Amplitude: amplitude.ID, Scale: scale.ID}}
}

// SimplexNoise returns simplex noise scaled by amplitude sampled at positions multiplied by scale.
func (bld *Builder) SimplexNoise(amplitude, scale glbuild.Value) Noise {
	return bld.template(glbuild.Simplex, amplitude, scale)
}

// VoronoiNoise returns cellular noise. f2 selects the distance to the second closest feature point.
func (bld *Builder) VoronoiNoise(amplitude, scale glbuild.Value, f2 bool) Noise {
	if f2 {
		return bld.template(glbuild.VoronoiF2, amplitude, scale)
	}
	return bld.template(glbuild.VoronoiF1, amplitude, scale)
}

// Voronoise returns Inigo Quilez's voronoise. Randomness and blend are in [0, 1]. 2D only.
func (bld *Builder) Voronoise(amplitude, scale, randomness, blend glbuild.Value) Noise {
	n := bld.template(glbuild.Voronoise, amplitude, scale)
	if n.t.Kind == 0 || !bld.valid("voronoise", randomness, blend) {
		return Noise{}
	}
	n.t.Randomness, n.t.Blend = randomness.ID, blend.ID
	return n
}

// Sample evaluates the noise at position.
func (bld *Builder) Sample(n Noise, position glbuild.Value) glbuild.Value {
	if n.t.Kind == 0 {
		bld.valid("noise", glbuild.Value{})
		return glbuild.Value{}
	}
	if !bld.valid("noise", position) {
		return glbuild.Value{}
	}
	return bld.add(glbuild.Float, glbuild.Noise{NoiseTemplate: n.t, Position: position.ID})
}

// Fractal sums octaves of noise, multiplying the sampling scale by lacunarity and the amplitude by persistence every octave.
func (bld *Builder) Fractal(mode glbuild.FractalMode, n Noise, position, lacunarity, persistence glbuild.Value, octaves int) glbuild.Value {
	if n.t.Kind == 0 {
		bld.valid("fractal", glbuild.Value{})
		return glbuild.Value{}
	}
	if !bld.valid("fractal", position, lacunarity, persistence) {
		return glbuild.Value{}
	}
	if octaves < 0 {
		octaves = 0
	}
	return bld.add(glbuild.Float, glbuild.Fractal{
		Mode:        mode,
		Lacunarity:  lacunarity.ID,
		Persistence: persistence.ID,
		Octaves:     octaves,
		Template:    n.t,
		Position:    position.ID,
	})
}

// Warp displaces a float2 position by two samples of the noise at offset positions.
func (bld *Builder) Warp(n Noise, position, frequency, strength glbuild.Value) glbuild.Value {
	if n.t.Kind == 0 {
		bld.valid("warp", glbuild.Value{})
		return glbuild.Value{}
	}
	if !bld.valid("warp", position, frequency, strength) {
		return glbuild.Value{}
	}
	return bld.add(glbuild.Float2, glbuild.Warp{Template: n.t, Position: position.ID, Frequency: frequency.ID, Strength: strength.ID})
}

func (bld *Builder) combine(op glbuild.SDFOp, smoothing glbuild.Value, operands []glbuild.Value) glbuild.Value {
	if len(operands) == 0 {
		bld.typeErrorf("%s: no operands", op)
		return glbuild.Value{}
	}
	if !bld.valid(op.String(), operands...) {
		return glbuild.Value{}
	}
	ids := make([]glbuild.NodeID, len(operands))
	for i, operand := range operands {
		ids[i] = operand.ID
	}
	return bld.add(glbuild.Float, glbuild.SDFCombine{Operator: op, Operands: ids, Smoothing: smoothing.ID})
}

// Union joins signed distance fields.
func (bld *Builder) Union(sdfs ...glbuild.Value) glbuild.Value {
	return bld.combine(glbuild.SDFUnion, glbuild.Value{}, sdfs)
}

// Intersection of signed distance fields.
func (bld *Builder) Intersection(sdfs ...glbuild.Value) glbuild.Value {
	return bld.combine(glbuild.SDFIntersection, glbuild.Value{}, sdfs)
}

// Subtraction subtracts every following field from the first.
func (bld *Builder) Subtraction(sdfs ...glbuild.Value) glbuild.Value {
	return bld.combine(glbuild.SDFSubtraction, glbuild.Value{}, sdfs)
}

// Smooth combines signed distance fields with the smooth variant of op, blending over distance k.
func (bld *Builder) Smooth(op glbuild.SDFOp, k glbuild.Value, sdfs ...glbuild.Value) glbuild.Value {
	if !bld.valid("smooth "+op.String(), k) {
		return glbuild.Value{}
	}
	return bld.combine(op, k, sdfs)
}

// Distance returns the distance between a and b under metric.
func (bld *Builder) Distance(metric glbuild.Metric, a, b glbuild.Value) glbuild.Value {
	if !bld.valid("distance", a, b) {
		return glbuild.Value{}
	}
	return bld.add(glbuild.Float, glbuild.Distance{Metric: metric, A: a.ID, B: b.ID})
}

func (bld *Builder) shape(kind glbuild.ShapeKind, position, param glbuild.Value) glbuild.Value {
	if !bld.valid("shape", position, param) {
		return glbuild.Value{}
	}
	return bld.add(glbuild.Float, glbuild.Shape{Kind: kind, Position: position.ID, Param: param.ID})
}

// Sphere is the signed distance to a sphere of radius centered at the origin.
func (bld *Builder) Sphere(position, radius glbuild.Value) glbuild.Value {
	return bld.shape(glbuild.Sphere, position, radius)
}

// Box is the signed distance to an axis aligned box centered at the origin.
func (bld *Builder) Box(position, halfSize glbuild.Value) glbuild.Value {
	return bld.shape(glbuild.Box, position, halfSize)
}

// Plane is the signed distance to the plane y=height, negative below it.
func (bld *Builder) Plane(position, height glbuild.Value) glbuild.Value {
	return bld.shape(glbuild.Plane, position, height)
}

// GradientConfig configures [Builder.Gradient].
type GradientConfig struct {
	// Size is the number of texels the curve is baked into. Defaults to 128.
	Size int
	// RemapOutput maps the sampled value back into the mixer range. Float results only.
	RemapOutput bool
	Sampler     glbuild.SamplerOptions
}

// Gradient samples curve at mixer remapped from [lo, hi] to [0, 1]. The result has type typ.
func (bld *Builder) Gradient(typ glbuild.Type, curve glbuild.Curve, mixer, lo, hi glbuild.Value, cfg GradientConfig) glbuild.Value {
	if !bld.valid("gradient", mixer, lo, hi) {
		return glbuild.Value{}
	}
	if cfg.Size == 0 {
		cfg.Size = 128
	}
	return bld.add(typ, glbuild.Gradient{
		Curve:       curve,
		Mixer:       mixer.ID,
		InputMin:    lo.ID,
		InputMax:    hi.ID,
		RemapOutput: cfg.RemapOutput,
		Size:        cfg.Size,
		Sampler:     cfg.Sampler,
	})
}

// CacheConfig configures [Builder.Cache].
type CacheConfig struct {
	// Power reduces the resolution of the backing texture by 2^Power per axis.
	Power int
	// Axes of the dispatch covered by the texture. Defaults to "xz".
	Axes    string
	Sampler glbuild.SamplerOptions
	// Scale and Offset transform the normalized sampling coordinates. Optional.
	Scale, Offset glbuild.Value
}

// Cache computes inner in a separate reduced resolution dispatch and samples the
// result. Caching the same value with the same configuration twice returns the same node.
func (bld *Builder) Cache(inner glbuild.Value, cfg CacheConfig) glbuild.Value {
	if !bld.valid("cache", inner) {
		return glbuild.Value{}
	}
	if cfg.Axes == "" {
		cfg.Axes = "xz"
	}
	key := cacheKey{inner: inner.ID, scale: cfg.Scale.ID, offset: cfg.Offset.ID, power: cfg.Power, axes: cfg.Axes, sampler: cfg.Sampler}
	if v, ok := bld.cached[key]; ok {
		return v
	}
	v := bld.add(inner.Type, glbuild.Cached{
		Inner:        inner.ID,
		Power:        cfg.Power,
		Sampler:      cfg.Sampler,
		Axes:         cfg.Axes,
		SampleScale:  cfg.Scale.ID,
		SampleOffset: cfg.Offset.ID,
	})
	if v.IsValid() {
		if bld.cached == nil {
			bld.cached = make(map[cacheKey]glbuild.Value)
		}
		bld.cached[key] = v
	}
	return v
}

// Hash returns a pseudo-random value of type typ in [0, 1) derived from a.
func (bld *Builder) Hash(a glbuild.Value, typ glbuild.Type) glbuild.Value {
	if !bld.valid("hash", a) {
		return glbuild.Value{}
	}
	return bld.add(typ, glbuild.Hash{A: a.ID})
}

// Transform multiplies a float3 by the matrix returned by get, read on every execution.
// The matrix returned at construction must be invertible.
func (bld *Builder) Transform(a glbuild.Value, get func() ms3.Mat4) glbuild.Value {
	if !bld.valid("transform", a) {
		return glbuild.Value{}
	}
	if get == nil {
		bld.typeErrorf("nil matrix getter")
		return glbuild.Value{}
	}
	m := get()
	det := m.Determinant()
	if math32.Abs(det) < epstol {
		bld.typeErrorf("singular Mat4 (determinant %g)", det)
		return glbuild.Value{}
	}
	return bld.add(glbuild.Float3, glbuild.Transform{A: a.ID, Get: get})
}

// Remap maps x linearly from [inMin, inMax] to [outMin, outMax].
func (bld *Builder) Remap(x, inMin, inMax, outMin, outMax glbuild.Value) glbuild.Value {
	if !bld.valid("remap", x, inMin, inMax, outMin, outMax) {
		return glbuild.Value{}
	}
	return bld.add(x.Type, glbuild.Remap{Mixer: x.ID, InMin: inMin.ID, InMax: inMax.ID, OutMin: outMin.ID, OutMax: outMax.ID})
}
