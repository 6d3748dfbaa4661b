package glbuild

import (
	"strconv"
	"strings"
)

// Lower emits the statements computing node id into the current scope and
// returns its generated name. Children are lowered first. Lowering a node
// already bound in the current scope emits nothing; if the node samples a
// backing texture the current scope's kernel is granted read access again.
func (c *Context) Lower(id NodeID) string {
	s := c.Scope()
	if name, ok := s.bound[id]; ok {
		if tex, ok := s.sampled[id]; ok {
			c.addReader(tex)
		}
		return name
	}
	node := c.g.Node(id)
	if cached, ok := node.Op.(Cached); ok {
		// Inner is lowered inside the extracted scope.
		return c.extract(id, node.Type, cached)
	}
	var buf [8]NodeID
	for _, child := range node.Op.appendChildren(buf[:0]) {
		c.Lower(child)
	}
	return c.lowerOp(id, node.Type, node.Op)
}

func (c *Context) lowerOp(id NodeID, typ Type, op Op) string {
	switch op := op.(type) {
	case Input:
		unboundReference(c.Scope().Name, id)

	case Constant:
		return c.DeclareAndBind(id, Decl{Base: "c", Type: typ, Expr: op.Literal, Const: true})

	case Binary:
		expr := c.Name(op.A) + " " + string(op.Operator) + " " + c.Name(op.B)
		return c.DeclareAndBind(id, Decl{Base: binaryBase(op.Operator), Type: typ, Expr: expr})

	case Call:
		args := make([]string, len(op.Args))
		for i, arg := range op.Args {
			args[i] = c.Name(arg)
		}
		return c.DeclareAndBind(id, Decl{Base: op.Func, Type: typ, Expr: op.Func + "(" + strings.Join(args, ", ") + ")"})

	case Swizzle:
		a := c.Name(op.A)
		return c.DeclareAndBind(id, Decl{Base: a + "_swizzled", Type: typ, Expr: a + "." + op.Selector})

	case Cast:
		a := c.Name(op.A)
		return c.DeclareAndBind(id, Decl{Base: a + "_casted", Type: typ, Expr: castExpr(a, c.g.typeOf(op.A), typ)})

	case Construct:
		args := make([]string, 0, 4)
		dims := 0
		for _, in := range op.Inputs {
			args = append(args, c.Name(in))
			dims += c.g.typeOf(in).Dim()
		}
		for ; dims < typ.Dim(); dims++ {
			args = append(args, "0.0")
		}
		return c.DeclareAndBind(id, Decl{Base: "constructed", Type: typ, Expr: typ.String() + "(" + strings.Join(args, ", ") + ")"})

	case Injected:
		return c.Inject(id, typ, op.Get)

	case Noise:
		p := c.Name(op.Position)
		return c.DeclareAndBind(id, Decl{Base: p + "_noised", Type: typ, Expr: c.noiseExpr(op.NoiseTemplate, p)})

	case Fractal:
		return c.lowerFractal(id, op)

	case SDFCombine:
		return c.lowerSDFCombine(id, op)

	case Distance:
		a, b := c.Name(op.A), c.Name(op.B)
		var fn string
		switch op.Metric {
		case Euclidean:
			fn = "distance"
		case Manhattan:
			fn = "distManhattan"
		case Chebyshev:
			fn = "distChebyshev"
		}
		return c.DeclareAndBind(id, Decl{Base: "dist", Type: typ, Expr: fn + "(" + a + ", " + b + ")"})

	case Shape:
		p, param := c.Name(op.Position), c.Name(op.Param)
		var base, expr string
		switch op.Kind {
		case Sphere:
			base, expr = "sphere", "length("+p+") - "+param
		case Box:
			base, expr = "box", "sdBox("+p+", "+param+")"
		case Plane:
			base, expr = "plane", p+".y - "+param
		}
		return c.DeclareAndBind(id, Decl{Base: base, Type: typ, Expr: expr})

	case Gradient:
		return c.lowerGradient(id, typ, op)

	case Hash:
		a := c.Name(op.A)
		fn := "hash" + strconv.Itoa(typ.Dim()) + strconv.Itoa(c.g.typeOf(op.A).Dim())
		return c.DeclareAndBind(id, Decl{Base: "random", Type: typ, Expr: fn + "(" + a + ")"})

	case Transform:
		m := c.injectMatrix(id, op.Get)
		a := c.Name(op.A)
		return c.DeclareAndBind(id, Decl{Base: "projected", Type: typ, Expr: "mul(" + m + ", float4(" + a + ", 1.0)).xyz"})

	case Warp:
		return c.lowerWarp(id, op)

	case Remap:
		m := c.Name(op.Mixer)
		expr := "Remap(" + m + ", " + c.Name(op.InMin) + ", " + c.Name(op.InMax) + ", " + c.Name(op.OutMin) + ", " + c.Name(op.OutMax) + ")"
		return c.DeclareAndBind(id, Decl{Base: m + "_remapped", Type: typ, Expr: expr})

	case Cached:
		return c.extract(id, typ, op)
	}
	panic("glbuild: unhandled operation " + strconv.FormatUint(uint64(id), 10))
}

func binaryBase(operator byte) string {
	switch operator {
	case '+':
		return "add"
	case '-':
		return "sub"
	case '*':
		return "mul"
	}
	return "div"
}

// castExpr converts a from type `from` to type `to` by constructor, truncating swizzle or zero padding.
func castExpr(a string, from, to Type) string {
	fd, td := from.Dim(), to.Dim()
	switch {
	case fd == td || fd == 1:
		return to.String() + "(" + a + ")"
	case fd > td:
		truncated := a + "." + swizzleXYZW[:td]
		if from.Scalar() == to.Scalar() {
			return truncated
		}
		return to.String() + "(" + truncated + ")"
	}
	// Pad with zeros. Only float vectors are wider than 3 components.
	if from.Scalar() != Float {
		a = "float" + strconv.Itoa(fd) + "(" + a + ")"
	}
	return to.String() + "(" + a + strings.Repeat(", 0.0", td-fd) + ")"
}

// noiseExpr instantiates the template at position p. Template parameters must already be lowered.
func (c *Context) noiseExpr(t NoiseTemplate, p string) string {
	amp, scale := c.Name(t.Amplitude), c.Name(t.Scale)
	scaled := "(" + p + ") * " + scale
	var call string
	switch t.Kind {
	case Simplex:
		call = "snoise(" + scaled + ")"
	case VoronoiF1:
		call = "cellular(" + scaled + ").x"
	case VoronoiF2:
		call = "cellular(" + scaled + ").y"
	case Voronoise:
		call = "voronoise(" + scaled + ", " + c.Name(t.Randomness) + ", " + c.Name(t.Blend) + ")"
	}
	return "(" + call + ") * " + amp
}

// Octave position offsets. Fixed so the same graph always yields the same field.
const (
	fractalHashStep   = "6543.26912"
	fractalHashOffset = "2366.5437"
)

func (c *Context) lowerFractal(id NodeID, op Fractal) string {
	pos := c.Name(op.Position)
	seed := "0.0"
	if op.Mode == FractalMul {
		seed = "1.0"
	}
	sum := c.DeclareAndBind(id, Decl{Base: pos + "_fbm", Type: Float, Expr: seed})
	octaves := max(op.Octaves, 0)
	if octaves == 0 {
		return sum
	}
	scale := c.temp("_fbm_scale", Float, "1.0")
	amp := c.temp("_fbm_amplitude", Float, "1.0")
	i := c.GenID("octave")
	if unroll := c.dialect.Unroll(); unroll != "" {
		c.AddLine(unroll)
	}
	c.AddLine("for (uint " + i + " = 0u; " + i + " < " + strconv.Itoa(octaves) + "u; " + i + "++) {")
	c.indent(1)
	ptyp := c.g.typeOf(op.Position)
	offset := "hash" + strconv.Itoa(ptyp.Dim()) + "1(float(" + i + ") * " + fractalHashStep + ") * " + fractalHashOffset
	p := c.temp("_fbm_pos", ptyp, pos+" * "+scale+" + "+offset)
	v := c.temp("_fbm_value", Float, c.noiseExpr(op.Template, p))
	switch op.Mode {
	case FractalSum:
		c.AddLine(sum + " += " + v + " * " + amp + ";")
	case FractalRidged:
		c.AddLine(sum + " += abs(" + v + ") * " + amp + ";")
	case FractalBillow:
		c.AddLine(sum + " += (" + c.Name(op.Template.Amplitude) + " - abs(" + v + ")) * " + amp + ";")
	case FractalMul:
		c.AddLine(sum + " *= " + v + " * " + amp + ";")
	}
	c.AddLine(scale + " *= " + c.Name(op.Lacunarity) + ";")
	c.AddLine(amp + " *= " + c.Name(op.Persistence) + ";")
	c.indent(-1)
	c.AddLine("}")
	return sum
}

func (c *Context) lowerSDFCombine(id NodeID, op SDFCombine) string {
	acc := c.Name(op.Operands[0])
	if len(op.Operands) == 1 {
		c.Scope().bind(id, acc)
		return acc
	}
	fn := "op" + op.Operator.String()
	var k string
	if op.Smoothing != 0 {
		fn = "opSmooth" + op.Operator.String()
		k = ", " + c.Name(op.Smoothing)
	}
	last := len(op.Operands) - 1
	for i := 1; i <= last; i++ {
		expr := fn + "(" + acc + ", " + c.Name(op.Operands[i]) + k + ")"
		if i == last {
			acc = c.DeclareAndBind(id, Decl{Base: "sdf", Type: Float, Expr: expr})
		} else {
			acc = c.temp("sdf", Float, expr)
		}
	}
	return acc
}

func (c *Context) lowerWarp(id NodeID, op Warp) string {
	p, freq, str := c.Name(op.Position), c.Name(op.Frequency), c.Name(op.Strength)
	ox := c.temp(p+"_warp_x", Float2, "(("+p+" + float2(123.85441, 32.223543)) * "+freq+".x)")
	oy := c.temp(p+"_warp_y", Float2, "(("+p+" + float2(65.4238, -551.15353)) * "+freq+".y)")
	nx := c.temp(p+"_warp_nx", Float, c.noiseExpr(op.Template, ox))
	ny := c.temp(p+"_warp_ny", Float, c.noiseExpr(op.Template, oy))
	expr := "float2(" + p + ".x + " + nx + " * " + str + ".x, " + p + ".y + " + ny + " * " + str + ".y)"
	return c.DeclareAndBind(id, Decl{Base: p + "_warped", Type: Float2, Expr: expr})
}

// lowerGradient bakes the curve into a 1D texture at execution time and samples it at the remapped mixer.
func (c *Context) lowerGradient(id NodeID, typ Type, op Gradient) string {
	tex := c.GenID("_gradient_texture")
	for _, decl := range c.dialect.ReadTexture(tex, 1) {
		c.AddProperty(decl)
	}
	c.bakes = append(c.bakes, Bake{Texture: tex, Size: op.Size, Curve: op.Curve})
	c.addTexture(Texture{
		Name:    tex,
		Dim:     1,
		Type:    Float4,
		Sampler: op.Sampler,
		Readers: []string{c.Scope().Kernel()},
		Size:    op.Size,
	})
	m, lo, hi := c.Name(op.Mixer), c.Name(op.InputMin), c.Name(op.InputMax)
	uv := c.temp(m+"_uv", Float, "Remap("+m+", "+lo+", "+hi+", 0.0, 1.0)")
	sample := c.dialect.Sample(tex, 1, uv, "0.0") + componentSwizzle(typ)
	if op.RemapOutput {
		sample = "Remap(" + sample + ", 0.0, 1.0, " + lo + ", " + hi + ")"
	}
	name := c.DeclareAndBind(id, Decl{Base: m + "_gradient", Type: typ, Expr: sample})
	c.Scope().sampled[id] = tex
	return name
}
