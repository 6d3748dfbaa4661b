package glbuild

import (
	"github.com/soypat/geometry/ms3"
	"golang.org/x/image/math/f32"
)

// Op is the operation a [Node] performs. The set of operations is closed:
// Op is implemented only by the types in this file.
type Op interface {
	// appendChildren appends the nodes the operation reads, in lowering order.
	appendChildren(dst []NodeID) []NodeID
}

// Input is one of the external inputs of a graph: position or dispatch id.
// Inputs are created by [NewGraph] and can't be added.
type Input struct {
	Name string
}

// Constant is a literal value written verbatim into kernel source.
type Constant struct {
	Literal string
}

// Binary is an arithmetic operation between two operands of the same type.
type Binary struct {
	A, B NodeID
	// Operator is one of '+', '-', '*', '/'.
	Operator byte
}

// Call is an intrinsic or library function call, i.e: min, max, abs, clamp.
type Call struct {
	Func string
	Args []NodeID
}

// Swizzle selects components of A. The node type has len(Selector) components.
type Swizzle struct {
	A        NodeID
	Selector string
}

// Cast converts A to the node's type.
type Cast struct {
	A NodeID
}

// Construct builds a vector out of up to 4 scalar or vector components.
// Components not provided are zero.
type Construct struct {
	Inputs []NodeID
}

// Injected is a value supplied by the host on every execution. It becomes a uniform.
type Injected struct {
	// Get returns the current value. Its dynamic type must map to the node
	// type through [TypeOf].
	Get func() any
}

// NoiseKind selects the library noise function.
type NoiseKind uint8

const (
	_ NoiseKind = iota
	Simplex
	VoronoiF1
	VoronoiF2
	Voronoise
)

func (k NoiseKind) String() string {
	switch k {
	case Simplex:
		return "simplex"
	case VoronoiF1:
		return "voronoiF1"
	case VoronoiF2:
		return "voronoiF2"
	case Voronoise:
		return "voronoise"
	}
	return "<undefined noise>"
}

// NoiseTemplate holds noise parameters without a position. Fractal and warp
// nodes instantiate it with a fresh position every time they are lowered.
type NoiseTemplate struct {
	Kind      NoiseKind
	Amplitude NodeID
	Scale     NodeID
	// Randomness and Blend are used by Voronoise only.
	Randomness NodeID
	Blend      NodeID
}

func (t NoiseTemplate) appendChildren(dst []NodeID) []NodeID {
	dst = append(dst, t.Amplitude, t.Scale)
	if t.Kind == Voronoise {
		dst = append(dst, t.Randomness, t.Blend)
	}
	return dst
}

// Noise evaluates a noise function at Position.
type Noise struct {
	NoiseTemplate
	Position NodeID
}

// FractalMode selects how octaves are folded together.
type FractalMode uint8

const (
	_ FractalMode = iota
	FractalSum
	FractalRidged
	FractalBillow
	FractalMul
)

func (m FractalMode) String() string {
	switch m {
	case FractalSum:
		return "sum"
	case FractalRidged:
		return "ridged"
	case FractalBillow:
		return "billow"
	case FractalMul:
		return "mul"
	}
	return "<undefined fractal mode>"
}

// Fractal sums Octaves instantiations of Template over an unrolled loop.
type Fractal struct {
	Mode        FractalMode
	Lacunarity  NodeID
	Persistence NodeID
	// Octaves is clamped to be non-negative.
	Octaves  int
	Template NoiseTemplate
	Position NodeID
}

// SDFOp is a signed distance field combinator.
type SDFOp uint8

const (
	_ SDFOp = iota
	SDFUnion
	SDFIntersection
	SDFSubtraction
)

func (op SDFOp) String() string {
	switch op {
	case SDFUnion:
		return "Union"
	case SDFIntersection:
		return "Intersection"
	case SDFSubtraction:
		return "Subtraction"
	}
	return "<undefined sdf op>"
}

// SDFCombine left-folds Operands through the combinator. If Smoothing is
// non-zero the smooth variant of the combinator is used.
type SDFCombine struct {
	Operator  SDFOp
	Operands  []NodeID
	Smoothing NodeID
}

// Metric is a distance metric.
type Metric uint8

const (
	_ Metric = iota
	Euclidean
	Manhattan
	Chebyshev
)

// Distance computes the distance between A and B with Metric.
type Distance struct {
	Metric Metric
	A, B   NodeID
}

// ShapeKind is a signed distance field primitive.
type ShapeKind uint8

const (
	_ ShapeKind = iota
	// Sphere's parameter is the radius.
	Sphere
	// Box's parameter is the Float3 half size.
	Box
	// Plane's parameter is the height of a plane normal to +Y.
	Plane
)

// Shape evaluates a signed distance field primitive at Position.
type Shape struct {
	Kind     ShapeKind
	Position NodeID
	Param    NodeID
}

// Curve is a color curve sampled over [0, 1] when baking gradient textures.
type Curve interface {
	At(t float32) f32.Vec4
}

// Gradient samples a 1D texture baked from Curve at Mixer remapped from
// [InputMin, InputMax] to [0, 1].
type Gradient struct {
	Curve              Curve
	Mixer              NodeID
	InputMin, InputMax NodeID
	// RemapOutput remaps the sampled value back to [InputMin, InputMax].
	RemapOutput bool
	// Size is the number of texels baked.
	Size    int
	Sampler SamplerOptions
}

// Filter is a texture filtering mode.
type Filter uint8

const (
	FilterBilinear Filter = iota
	FilterPoint
	FilterTrilinear
)

// Wrap is a texture addressing mode.
type Wrap uint8

const (
	WrapRepeat Wrap = iota
	WrapClamp
	WrapMirror
	WrapMirrorOnce
)

// SamplerOptions configures how a backing texture is stored and sampled.
type SamplerOptions struct {
	Filter Filter
	Wrap   Wrap
	Mips   bool
	// Bicubic samples with a bicubic helper instead of hardware filtering. 2D only.
	Bicubic bool
}

// Cached computes Inner in a separate dispatch at a resolution reduced by
// 2^Power and samples the result from a texture.
type Cached struct {
	Inner   NodeID
	Power   int
	Sampler SamplerOptions
	// Axes selects the dispatch axes, "xz" computes a 2D texture over the XZ plane.
	Axes string
	// SampleScale and SampleOffset transform normalized texture coordinates. Optional.
	SampleScale  NodeID
	SampleOffset NodeID
}

// Hash is a pseudo-random hash of A into the node's type.
type Hash struct {
	A NodeID
}

// Transform multiplies a Float3 by a host supplied matrix.
type Transform struct {
	A   NodeID
	Get func() ms3.Mat4
}

// Warp displaces a Float2 position with two instantiations of a noise template.
type Warp struct {
	Template NoiseTemplate
	Position NodeID
	// Frequency scales the offset positions fed to the noise, Strength scales the displacement.
	Frequency NodeID
	Strength  NodeID
}

// Remap maps Mixer linearly from [InMin, InMax] to [OutMin, OutMax].
type Remap struct {
	Mixer          NodeID
	InMin, InMax   NodeID
	OutMin, OutMax NodeID
}

func (Input) appendChildren(dst []NodeID) []NodeID    { return dst }
func (Constant) appendChildren(dst []NodeID) []NodeID { return dst }
func (Injected) appendChildren(dst []NodeID) []NodeID { return dst }
func (op Binary) appendChildren(dst []NodeID) []NodeID {
	return append(dst, op.A, op.B)
}
func (op Call) appendChildren(dst []NodeID) []NodeID      { return append(dst, op.Args...) }
func (op Swizzle) appendChildren(dst []NodeID) []NodeID   { return append(dst, op.A) }
func (op Cast) appendChildren(dst []NodeID) []NodeID      { return append(dst, op.A) }
func (op Construct) appendChildren(dst []NodeID) []NodeID { return append(dst, op.Inputs...) }
func (op Noise) appendChildren(dst []NodeID) []NodeID {
	return append(op.NoiseTemplate.appendChildren(dst), op.Position)
}
func (op Fractal) appendChildren(dst []NodeID) []NodeID {
	dst = append(dst, op.Position, op.Lacunarity, op.Persistence)
	return op.Template.appendChildren(dst)
}
func (op SDFCombine) appendChildren(dst []NodeID) []NodeID {
	dst = append(dst, op.Operands...)
	if op.Smoothing != 0 {
		dst = append(dst, op.Smoothing)
	}
	return dst
}
func (op Distance) appendChildren(dst []NodeID) []NodeID { return append(dst, op.A, op.B) }
func (op Shape) appendChildren(dst []NodeID) []NodeID    { return append(dst, op.Position, op.Param) }
func (op Gradient) appendChildren(dst []NodeID) []NodeID {
	return append(dst, op.Mixer, op.InputMin, op.InputMax)
}

// Cached children are lowered in a different scope, except for sampling parameters.
func (op Cached) appendChildren(dst []NodeID) []NodeID {
	dst = append(dst, op.Inner)
	if op.SampleScale != 0 {
		dst = append(dst, op.SampleScale)
	}
	if op.SampleOffset != 0 {
		dst = append(dst, op.SampleOffset)
	}
	return dst
}
func (op Hash) appendChildren(dst []NodeID) []NodeID      { return append(dst, op.A) }
func (op Transform) appendChildren(dst []NodeID) []NodeID { return append(dst, op.A) }
func (op Warp) appendChildren(dst []NodeID) []NodeID {
	dst = append(dst, op.Position, op.Frequency, op.Strength)
	return op.Template.appendChildren(dst)
}
func (op Remap) appendChildren(dst []NodeID) []NodeID {
	return append(dst, op.Mixer, op.InMin, op.InMax, op.OutMin, op.OutMax)
}
