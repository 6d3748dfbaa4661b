package glbuild

import (
	"fmt"
	"strings"
)

// NodeID identifies a node in a [Graph]. The zero NodeID refers to no node.
type NodeID uint32

// Node is a single typed operation in a [Graph].
type Node struct {
	Type Type
	Op   Op
}

// Value is a handle to a node and its type.
type Value struct {
	ID   NodeID
	Type Type
}

// IsValid reports whether v refers to a node.
func (v Value) IsValid() bool { return v.ID != 0 && v.Type != typeUndefined }

// Graph is an append-only arena of nodes. A node may only reference nodes
// added before it so a Graph is always acyclic. Nodes are compared by identity:
// two equal operations added twice are two different nodes.
type Graph struct {
	nodes []Node
}

const (
	positionID   NodeID = 1
	dispatchIDID NodeID = 2
)

// NewGraph returns a graph with the position and dispatch id inputs declared.
func NewGraph() *Graph {
	g := &Graph{nodes: make([]Node, 3, 64)}
	g.nodes[positionID] = Node{Type: Float3, Op: Input{Name: "position"}}
	g.nodes[dispatchIDID] = Node{Type: Uint3, Op: Input{Name: "id"}}
	return g
}

// Position is the world position of the voxel being evaluated.
func (g *Graph) Position() Value { return Value{ID: positionID, Type: Float3} }

// DispatchID is the dispatch thread id of the voxel being evaluated.
func (g *Graph) DispatchID() Value { return Value{ID: dispatchIDID, Type: Uint3} }

// Len returns the amount of nodes in the graph including inputs.
func (g *Graph) Len() int { return len(g.nodes) - 1 }

// Node returns the node with the given id. It panics if id is not in the graph.
func (g *Graph) Node(id NodeID) Node {
	if id == 0 || int(id) >= len(g.nodes) {
		panic(fmt.Sprintf("glbuild: node %d not in graph", id))
	}
	return g.nodes[id]
}

func (g *Graph) has(id NodeID) bool { return id != 0 && int(id) < len(g.nodes) }

// Add type checks op and adds it to the graph as a node of type typ.
func (g *Graph) Add(typ Type, op Op) (Value, error) {
	id := NodeID(len(g.nodes))
	if op == nil {
		return Value{}, &GraphError{Node: id, Reason: "nil operation"}
	}
	if _, ok := op.(Input); ok {
		return Value{}, &GraphError{Node: id, Reason: "inputs are declared by NewGraph"}
	}
	var scratch [8]NodeID
	for _, child := range op.appendChildren(scratch[:0]) {
		if !g.has(child) {
			return Value{}, &GraphError{Node: id, Trail: []NodeID{child}, Reason: "references node not in graph"}
		}
	}
	if typ.Dim() == 0 {
		return Value{}, fmt.Errorf("%w: undefined type for %T", ErrUnsupportedType, op)
	}
	err := g.check(typ, op)
	if err != nil {
		return Value{}, err
	}
	g.nodes = append(g.nodes, Node{Type: typ, Op: op})
	return Value{ID: id, Type: typ}, nil
}

func (g *Graph) typeOf(id NodeID) Type { return g.nodes[id].Type }

// want returns an error if the node's type is not one of the types listed.
func (g *Graph) want(what string, id NodeID, types ...Type) error {
	got := g.typeOf(id)
	for _, t := range types {
		if got == t {
			return nil
		}
	}
	return fmt.Errorf("%w: %s is %s, want one of %v", ErrUnsupportedType, what, got, types)
}

func (g *Graph) check(typ Type, op Op) error {
	switch op := op.(type) {
	case Constant:
		if op.Literal == "" {
			return fmt.Errorf("%w: empty constant literal", ErrUnsupportedType)
		}
	case Binary:
		if !strings.ContainsRune("+-*/", rune(op.Operator)) {
			return fmt.Errorf("%w: binary operator %q", ErrUnsupportedType, op.Operator)
		}
		if g.typeOf(op.A) != typ || g.typeOf(op.B) != typ {
			return fmt.Errorf("%w: operands %s %c %s for %s result", ErrUnsupportedType, g.typeOf(op.A), op.Operator, g.typeOf(op.B), typ)
		}
	case Call:
		if op.Func == "" || len(op.Args) == 0 {
			return fmt.Errorf("%w: call needs function name and arguments", ErrUnsupportedType)
		} else if !isIdentifier(op.Func) {
			return fmt.Errorf("%w: invalid function name %q", ErrUnsupportedType, op.Func)
		}
	case Swizzle:
		return checkSelector(op.Selector, g.typeOf(op.A), typ)
	case Cast:
		if typ.Scalar() == Uint && typ.Dim() != g.typeOf(op.A).Dim() {
			return fmt.Errorf("%w: cast %s to %s", ErrUnsupportedDimensionality, g.typeOf(op.A), typ)
		}
	case Construct:
		if typ != Float2 && typ != Float3 && typ != Float4 {
			return fmt.Errorf("%w: construct %s", ErrUnsupportedType, typ)
		}
		if len(op.Inputs) == 0 || len(op.Inputs) > 4 {
			return fmt.Errorf("%w: construct with %d inputs", ErrUnsupportedDimensionality, len(op.Inputs))
		}
		dims := 0
		for _, in := range op.Inputs {
			if !g.typeOf(in).IsFloat() {
				return fmt.Errorf("%w: construct component %s", ErrUnsupportedType, g.typeOf(in))
			}
			dims += g.typeOf(in).Dim()
		}
		if dims > typ.Dim() {
			return fmt.Errorf("%w: %d components into %s", ErrUnsupportedDimensionality, dims, typ)
		}
	case Injected:
		if op.Get == nil {
			return fmt.Errorf("%w: nil injected getter", ErrUnsupportedType)
		}
	case Noise:
		if typ != Float {
			return fmt.Errorf("%w: noise result %s", ErrUnsupportedType, typ)
		}
		return g.checkTemplate(op.NoiseTemplate, g.typeOf(op.Position))
	case Fractal:
		if typ != Float {
			return fmt.Errorf("%w: fractal result %s", ErrUnsupportedType, typ)
		}
		if op.Mode < FractalSum || op.Mode > FractalMul {
			return fmt.Errorf("%w: fractal mode %d", ErrUnsupportedType, op.Mode)
		}
		if err := g.want("lacunarity", op.Lacunarity, Float); err != nil {
			return err
		}
		if err := g.want("persistence", op.Persistence, Float); err != nil {
			return err
		}
		return g.checkTemplate(op.Template, g.typeOf(op.Position))
	case SDFCombine:
		if typ != Float || len(op.Operands) == 0 {
			return fmt.Errorf("%w: sdf combine of %d operands into %s", ErrUnsupportedType, len(op.Operands), typ)
		}
		if op.Operator < SDFUnion || op.Operator > SDFSubtraction {
			return fmt.Errorf("%w: sdf operator %d", ErrUnsupportedType, op.Operator)
		}
		for _, operand := range op.Operands {
			if err := g.want("sdf operand", operand, Float); err != nil {
				return err
			}
		}
		if op.Smoothing != 0 {
			return g.want("smoothing", op.Smoothing, Float)
		}
	case Distance:
		if op.Metric < Euclidean || op.Metric > Chebyshev {
			return fmt.Errorf("%w: distance metric %d", ErrUnsupportedDimensionality, op.Metric)
		}
		ta := g.typeOf(op.A)
		if typ != Float || !ta.IsFloat() || ta != g.typeOf(op.B) {
			return fmt.Errorf("%w: distance between %s and %s", ErrUnsupportedType, ta, g.typeOf(op.B))
		}
	case Shape:
		if typ != Float {
			return fmt.Errorf("%w: shape result %s", ErrUnsupportedType, typ)
		}
		if err := g.want("shape position", op.Position, Float3); err != nil {
			return err
		}
		switch op.Kind {
		case Sphere, Plane:
			return g.want("shape parameter", op.Param, Float)
		case Box:
			return g.want("box half size", op.Param, Float3)
		default:
			return fmt.Errorf("%w: shape kind %d", ErrUnsupportedType, op.Kind)
		}
	case Gradient:
		if !typ.IsFloat() || op.Curve == nil || op.Size <= 0 {
			return fmt.Errorf("%w: gradient of %s with %d texels", ErrUnsupportedType, typ, op.Size)
		}
		if op.RemapOutput && typ != Float {
			return fmt.Errorf("%w: gradient output remap requires float result, got %s", ErrUnsupportedType, typ)
		}
		if op.Sampler.Bicubic {
			return fmt.Errorf("%w: bicubic sampling of 1D gradient", ErrUnsupportedDimensionality)
		}
		for _, id := range [...]NodeID{op.Mixer, op.InputMin, op.InputMax} {
			if err := g.want("gradient mixer and range", id, Float); err != nil {
				return err
			}
		}
	case Cached:
		return g.checkCached(typ, op)
	case Hash:
		ta := g.typeOf(op.A)
		if !ta.IsFloat() || ta.Dim() > 3 || !typ.IsFloat() || typ.Dim() > 3 {
			return fmt.Errorf("%w: hash %s into %s", ErrUnsupportedType, ta, typ)
		}
	case Transform:
		if op.Get == nil {
			return fmt.Errorf("%w: nil matrix getter", ErrUnsupportedType)
		}
		if typ != Float3 {
			return fmt.Errorf("%w: transform result %s", ErrUnsupportedType, typ)
		}
		return g.want("transform input", op.A, Float3)
	case Warp:
		if typ != Float2 {
			return fmt.Errorf("%w: warp result %s", ErrUnsupportedType, typ)
		}
		for _, id := range [...]NodeID{op.Position, op.Frequency, op.Strength} {
			if err := g.want("warp position and factors", id, Float2); err != nil {
				return err
			}
		}
		return g.checkTemplate(op.Template, Float2)
	case Remap:
		if !typ.IsFloat() {
			return fmt.Errorf("%w: remap of %s", ErrUnsupportedType, typ)
		}
		for _, id := range [...]NodeID{op.Mixer, op.InMin, op.InMax, op.OutMin, op.OutMax} {
			if err := g.want("remap argument", id, typ); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: unknown operation %T", ErrUnsupportedType, op)
	}
	return nil
}

func (g *Graph) checkTemplate(t NoiseTemplate, pos Type) error {
	if err := g.want("noise amplitude", t.Amplitude, Float); err != nil {
		return err
	}
	if err := g.want("noise scale", t.Scale, Float); err != nil {
		return err
	}
	switch t.Kind {
	case Simplex, VoronoiF1, VoronoiF2:
		if pos != Float2 && pos != Float3 {
			return fmt.Errorf("%w: %s noise position %s", ErrUnsupportedType, t.Kind, pos)
		}
	case Voronoise:
		if pos != Float2 {
			return fmt.Errorf("%w: voronoise position %s, want float2", ErrUnsupportedType, pos)
		}
		if err := g.want("voronoise randomness", t.Randomness, Float); err != nil {
			return err
		}
		return g.want("voronoise blend", t.Blend, Float)
	default:
		return fmt.Errorf("%w: noise kind %d", ErrUnsupportedType, t.Kind)
	}
	return nil
}

func (g *Graph) checkCached(typ Type, op Cached) error {
	if err := checkAxes(op.Axes); err != nil {
		return err
	}
	if g.typeOf(op.Inner) != typ || !typ.IsFloat() {
		return fmt.Errorf("%w: cached %s as %s", ErrUnsupportedType, g.typeOf(op.Inner), typ)
	}
	if op.Power < 0 || op.Power > 16 {
		return fmt.Errorf("%w: size reduction power %d", ErrUnsupportedDimensionality, op.Power)
	}
	if op.Sampler.Bicubic && len(op.Axes) != 2 {
		return fmt.Errorf("%w: bicubic sampling of %dD texture", ErrUnsupportedDimensionality, len(op.Axes))
	}
	coords, _ := VectorOf(Float, len(op.Axes))
	for _, id := range [...]NodeID{op.SampleScale, op.SampleOffset} {
		if id == 0 {
			continue
		}
		if err := g.want("sample scale and offset", id, Float, coords); err != nil {
			return err
		}
	}
	return nil
}

func checkAxes(axes string) error {
	if len(axes) != 2 && len(axes) != 3 {
		return fmt.Errorf("%w: axis swizzle %q must select 2 or 3 axes", ErrUnsupportedDimensionality, axes)
	}
	var seen [3]bool
	for i := 0; i < len(axes); i++ {
		c := axes[i] - 'x'
		if axes[i] < 'x' || c > 2 || seen[c] {
			return fmt.Errorf("%w: axis swizzle %q", ErrUnsupportedDimensionality, axes)
		}
		seen[c] = true
	}
	return nil
}

const (
	swizzleXYZW = "xyzw"
	swizzleRGBA = "rgba"
)

func checkSelector(sel string, from, to Type) error {
	if len(sel) == 0 || len(sel) > 4 || len(sel) != to.Dim() {
		return fmt.Errorf("%w: selector %q into %s", ErrUnsupportedDimensionality, sel, to)
	}
	if from.Scalar() != to.Scalar() {
		return fmt.Errorf("%w: swizzle %s into %s", ErrUnsupportedType, from, to)
	}
	set := swizzleXYZW
	if strings.IndexByte(swizzleRGBA, sel[0]) >= 0 {
		set = swizzleRGBA
	}
	for i := 0; i < len(sel); i++ {
		idx := strings.IndexByte(set, sel[i])
		if idx < 0 || idx >= from.Dim() {
			return fmt.Errorf("%w: selector %q on %s", ErrUnsupportedDimensionality, sel, from)
		}
	}
	return nil
}
