// Package glbuild compiles graphs of typed voxel expression nodes into compute
// kernel source. Each cached sub-expression is extracted into its own scope
// function and kernel dispatched at reduced resolution, with its result
// sampled from a backing texture by the scopes that read it.
package glbuild

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
)

// VersionStr is the GLSL version directive heading GLSL units.
const VersionStr = "#version 430\n"

// Output names a value computed by the final kernel and written to a 3D texture of the same name.
type Output struct {
	Name  string
	Value Value
}

// Compiler generates kernel source and resource descriptors from a [Graph].
// A Compiler may be reused for many compilations but is not safe for concurrent use.
type Compiler struct {
	dialect    Dialect
	debugNames bool
	threads    [3]int
	entry      string
	includes   []string
	log        *slog.Logger
}

// NewDefaultCompiler returns a Compiler generating HLSL with anonymized names
// and 8x8x8 thread groups (8x8x1 for 2D dispatches).
func NewDefaultCompiler() *Compiler {
	return &Compiler{
		dialect: HLSL{},
		threads: [3]int{8, 8, 8},
		entry:   "Voxel",
	}
}

// SetDebugNames enables human readable generated names derived from the
// operation and its operands, i.e: "position_swizzled_0" instead of "_4".
func (cp *Compiler) SetDebugNames(debug bool) { cp.debugNames = debug }

// SetDialect sets the kernel language generated. Nil restores HLSL.
func (cp *Compiler) SetDialect(d Dialect) {
	if d == nil {
		d = HLSL{}
	}
	cp.dialect = d
}

// SetComputeInvocations sets the work group local sizes of 3D dispatches.
// 2D dispatches use x and y. x*y*z must be less than the maximum number of invocations.
func (cp *Compiler) SetComputeInvocations(x, y, z int) {
	if x < 1 || y < 1 || z < 1 {
		panic("zero or negative invocation size")
	}
	cp.threads = [3]int{x, y, z}
}

// ComputeInvocations returns the work group size of 3D dispatches in x, y and z.
func (cp *Compiler) ComputeInvocations() (int, int, int) {
	return cp.threads[0], cp.threads[1], cp.threads[2]
}

// SetEntryKernel sets the name of the root scope function. The final kernel is named "CS"+name.
func (cp *Compiler) SetEntryKernel(name string) {
	if !isIdentifier(name) {
		panic("invalid entry kernel name " + strconv.Quote(name))
	}
	cp.entry = name
}

// SetIncludes replaces the inlined kernel library with #include directives of the given paths.
// Calling it with no arguments inlines the library again.
func (cp *Compiler) SetIncludes(paths ...string) { cp.includes = slices.Clone(paths) }

// SetLogger sets the logger for this compiler. Nil uses the package logger, see [SetLogger].
func (cp *Compiler) SetLogger(l *slog.Logger) { cp.log = l }

func (cp *Compiler) logger() *slog.Logger {
	if cp.log != nil {
		return cp.log
	}
	return Logger()
}

// Compile lowers the outputs and renders the complete kernel source with its
// dispatch and resource descriptors. On error no Unit is returned.
func (cp *Compiler) Compile(g *Graph, outputs ...Output) (*Unit, error) {
	if g == nil {
		return nil, &GraphError{Reason: "nil graph"}
	}
	if err := cp.validateOutputs(g, outputs); err != nil {
		return nil, err
	}
	reachable, err := walkGraph(g, outputs)
	if err != nil {
		return nil, err
	}
	c := newContext(g, cp)
	d := cp.dialect

	args := []Argument{{Name: "position", Type: Float3}, {Name: "id", Type: Uint3}}
	for _, out := range outputs {
		args = append(args, Argument{Name: out.Name, Type: out.Value.Type, Output: true})
	}
	root := newScope(cp.entry, 0, args)
	root.bind(positionID, "position")
	root.bind(dispatchIDID, "id")
	c.scopes = append(c.scopes, root)

	c.AddProperty(d.Uniform("int", "size"))
	c.AddProperty(d.Uniform("float3", "scale"))
	c.AddProperty(d.Uniform("float3", "offset"))
	unitOutputs := make([]OutputTexture, len(outputs))
	for i, out := range outputs {
		c.AddProperty(d.WriteTexture(out.Name, 3, out.Value.Type))
		unitOutputs[i] = OutputTexture{Name: out.Name, Type: out.Value.Type, Texture: writeView(out.Name)}
	}

	for _, out := range outputs {
		gen := c.Lower(out.Value.ID)
		c.declare(Decl{Base: out.Name, Expr: gen, AssignOnly: true})
	}

	// Final kernel evaluating the root scope over every voxel.
	var body []string
	call := root.Name + "((float3(id) + offset) * scale, id"
	for _, out := range outputs {
		body = append(body, out.Value.Type.String()+" "+out.Name+";")
		call += ", " + out.Name
	}
	body = append(body, call+");")
	for _, out := range outputs {
		body = append(body, d.Store(out.Name, 3, "id", out.Name, out.Value.Type))
	}
	c.addKernel(root.Kernel(), 3, 0, 0, body)

	src := cp.render(c)
	dispatches := slices.Clone(c.dispatches)
	slices.SortStableFunc(dispatches, func(a, b Dispatch) int { return b.Depth - a.Depth })
	u := &Unit{
		Source:     string(src),
		Dialect:    d.Name(),
		Dispatches: dispatches,
		Textures:   c.textures,
		Outputs:    unitOutputs,
		Injections: c.injections,
		Matrices:   c.matrices,
		Bakes:      c.bakes,
	}
	u.Hash = u.hash()
	c.log.Debug("compiled unit",
		slog.String("dialect", u.Dialect),
		slog.Int("nodes", reachable),
		slog.Int("scopes", len(c.scopes)),
		slog.Int("kernels", len(u.Dispatches)),
		slog.Int("textures", len(u.Textures)),
		slog.Uint64("hash", u.Hash),
	)
	return u, nil
}

// render concatenates properties, the library, scope functions by descending
// depth, extracted kernels and the final kernel.
func (cp *Compiler) render(c *Context) []byte {
	b := cp.dialect.AppendHeader(make([]byte, 0, 16*1024))
	for _, prop := range c.properties {
		b = append(b, prop...)
		b = append(b, '\n')
	}
	b = append(b, '\n')
	if len(cp.includes) > 0 {
		for _, path := range cp.includes {
			b = append(b, "#include "...)
			b = strconv.AppendQuote(b, path)
			b = append(b, '\n')
		}
		b = append(b, '\n')
	} else {
		b = cp.dialect.AppendLibrary(b)
	}
	scopes := slices.Clone(c.scopes)
	slices.SortStableFunc(scopes, func(a, b *Scope) int { return b.Depth - a.Depth })
	for _, s := range scopes {
		b = s.AppendFunction(b)
		b = append(b, '\n')
	}
	for i, kernel := range c.kernels {
		if i > 0 {
			b = append(b, '\n')
		}
		b = append(b, kernel...)
	}
	return b
}

func (cp *Compiler) validateOutputs(g *Graph, outputs []Output) error {
	if len(outputs) == 0 {
		return &GraphError{Reason: "no outputs"}
	}
	for i, out := range outputs {
		switch {
		case !isIdentifier(out.Name) || isGeneratedName(out.Name):
			return fmt.Errorf("%w: invalid output name %q", ErrUnsupportedType, out.Name)
		case cp.isReservedName(out.Name):
			return fmt.Errorf("%w: output name %q is reserved", ErrUnsupportedType, out.Name)
		case slices.ContainsFunc(outputs[:i], func(o Output) bool { return o.Name == out.Name }):
			return fmt.Errorf("%w: duplicate output %q", ErrUnsupportedType, out.Name)
		case !out.Value.IsValid() || !g.has(out.Value.ID):
			return &GraphError{Node: out.Value.ID, Reason: "output " + out.Name + " not in graph"}
		case g.typeOf(out.Value.ID) != out.Value.Type:
			return fmt.Errorf("%w: output %q declared %s, node is %s", ErrUnsupportedType, out.Name, out.Value.Type, g.typeOf(out.Value.ID))
		case !out.Value.Type.IsFloat():
			return fmt.Errorf("%w: output %q of type %s", ErrUnsupportedType, out.Name, out.Value.Type)
		}
	}
	return nil
}

// walkGraph visits every node reachable from the outputs and checks that
// children precede their parents. It returns the number of nodes visited.
func walkGraph(g *Graph, outputs []Output) (int, error) {
	visited := make([]bool, len(g.nodes))
	type frame struct {
		id    NodeID
		trail []NodeID
	}
	var stack []frame
	for _, out := range outputs {
		stack = append(stack, frame{id: out.Value.ID})
	}
	n := 0
	var buf [8]NodeID
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[f.id] {
			continue
		}
		visited[f.id] = true
		n++
		trail := append(slices.Clip(f.trail), f.id)
		for _, child := range g.nodes[f.id].Op.appendChildren(buf[:0]) {
			if child == 0 || child >= f.id {
				return n, &GraphError{Node: f.id, Trail: trail, Reason: "child " + strconv.FormatUint(uint64(child), 10) + " does not precede its parent"}
			}
			stack = append(stack, frame{id: child, trail: trail})
		}
	}
	return n, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		letter := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		if !letter && (i == 0 || c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// isGeneratedName reports whether s could collide with a name returned by [Context.GenID].
func isGeneratedName(s string) bool {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	return i < len(s) && i > 0 && s[i-1] == '_'
}

// AppendDefineDecl appends a "#define aliasToDefine aliasReplace" line.
func AppendDefineDecl(b []byte, aliasToDefine, aliasReplace string) []byte {
	b = append(b, "#define "...)
	b = append(b, aliasToDefine...)
	b = append(b, ' ')
	b = append(b, aliasReplace...)
	b = append(b, '\n')
	return b
}

const decimalDigits = 9

// AppendFloat appends v with up to 9 decimals and trailing zeros trimmed, i.e: 1 is "1.".
func AppendFloat(b []byte, neg, decimal byte, v float32) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, float64(v), 'f', decimalDigits, 32)
	idx := bytes.IndexByte(b[start:], '.')
	if decimal != '.' && idx >= 0 {
		b[start+idx] = decimal
	}
	if b[start] == '-' {
		b[start] = neg
	}
	end := len(b)
	for i := len(b) - 1; idx >= 0 && i > idx+start && b[i] == '0'; i-- {
		end--
	}
	return b[:end]
}

// AppendFloats appends the values formatted by [AppendFloat] separated by sep. A zero sep omits separators.
func AppendFloats(b []byte, sep, neg, decimal byte, s ...float32) []byte {
	for i, v := range s {
		b = AppendFloat(b, neg, decimal, v)
		if sep != 0 && i != len(s)-1 {
			b = append(b, sep)
		}
	}
	return b
}

func hash(b []byte, in uint64) uint64 {
	x := in
	for len(b) >= 8 {
		x ^= binary.LittleEndian.Uint64(b)
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		x ^= x >> 31
		b = b[8:]
	}
	if len(b) > 0 {
		var buf [8]byte
		copy(buf[:], b)
		x ^= binary.LittleEndian.Uint64(buf[:])
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		x ^= x >> 31
	}
	return x
}
