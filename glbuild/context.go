package glbuild

import (
	"log/slog"
	"strconv"

	"github.com/soypat/geometry/ms3"
)

// Context holds the state of a single compilation: scopes, generated names,
// uniform declarations and the kernels and textures registered while lowering.
// A Context is used once and discarded.
type Context struct {
	g       *Graph
	dialect Dialect
	log     *slog.Logger
	debug   bool

	counters map[string]int
	anon     int

	scopes  []*Scope
	current int
	depth   int

	properties  []string
	propertySet map[string]struct{}
	// uniforms maps injected and transform nodes to their uniform name.
	uniforms map[NodeID]string

	injections []Injection
	matrices   []MatrixInjection
	bakes      []Bake
	kernels    []string
	dispatches []Dispatch
	textures   []Texture

	threads2D, threads3D [3]int
}

func newContext(g *Graph, cfg *Compiler) *Context {
	return &Context{
		g:           g,
		dialect:     cfg.dialect,
		log:         cfg.logger(),
		debug:       cfg.debugNames,
		counters:    make(map[string]int),
		propertySet: make(map[string]struct{}),
		uniforms:    make(map[NodeID]string),
		threads3D:   cfg.threads,
		threads2D:   [3]int{cfg.threads[0], cfg.threads[1], 1},
	}
}

// GenID returns a name not returned before by the context. With debug names
// enabled the result is base followed by a per-base counter, i.e: "c_0", "c_1".
// Otherwise names are anonymized: "_1", "_2".
func (c *Context) GenID(base string) string {
	if !c.debug {
		c.anon++
		return "_" + strconv.Itoa(c.anon)
	}
	n := c.counters[base]
	c.counters[base] = n + 1
	return base + "_" + strconv.Itoa(n)
}

// Scope returns the scope statements are being emitted into.
func (c *Context) Scope() *Scope { return c.scopes[c.current] }

// Depth returns the depth of the current scope.
func (c *Context) Depth() int { return c.depth }

// Name returns the name node id is bound to in the current scope.
// It panics if the node has not been lowered in the current scope.
func (c *Context) Name(id NodeID) string {
	s := c.Scope()
	name, ok := s.bound[id]
	if !ok {
		unboundReference(s.Name, id)
	}
	return name
}

// Decl describes a declaration emitted by [Context.DeclareAndBind].
type Decl struct {
	// Base is the base of the generated name.
	Base string
	Expr string
	Type Type
	// Const qualifies the declaration as constant.
	Const bool
	// Verbatim uses Base as the declared name as is.
	Verbatim bool
	// AssignOnly emits an assignment to the existing variable named Base.
	AssignOnly bool
}

// DeclareAndBind emits a declaration for node id in the current scope and binds
// id to the declared name. If id is already bound in the current scope nothing
// is emitted and the bound name is returned.
func (c *Context) DeclareAndBind(id NodeID, d Decl) string {
	s := c.Scope()
	if name, ok := s.bound[id]; ok {
		return name
	}
	name := c.declare(d)
	s.bind(id, name)
	return name
}

// temp declares a variable that is not bound to any node.
func (c *Context) temp(base string, typ Type, expr string) string {
	return c.declare(Decl{Base: base, Type: typ, Expr: expr})
}

func (c *Context) declare(d Decl) string {
	name := d.Base
	if !d.Verbatim && !d.AssignOnly {
		name = c.GenID(d.Base)
	}
	var line string
	switch {
	case d.AssignOnly:
		line = name + " = " + d.Expr + ";"
	case d.Const:
		line = "const " + d.Type.String() + " " + name + " = " + d.Expr + ";"
	default:
		line = d.Type.String() + " " + name + " = " + d.Expr + ";"
	}
	c.AddLine(line)
	return name
}

// AddLine appends a statement to the current scope at the current indentation.
func (c *Context) AddLine(line string) { c.Scope().addLine(line) }

func (c *Context) indent(delta int) { c.Scope().indent += delta }

// AddProperty appends a global declaration once. Repeated declarations are ignored.
func (c *Context) AddProperty(decl string) {
	if _, ok := c.propertySet[decl]; ok {
		return
	}
	c.propertySet[decl] = struct{}{}
	c.properties = append(c.properties, decl)
}

// Inject declares a uniform for node id whose value is obtained from get at
// execution time. The uniform is declared once per node and bound in the current scope.
func (c *Context) Inject(id NodeID, typ Type, get func() any) string {
	name, ok := c.uniforms[id]
	if !ok {
		name = c.GenID("injected")
		c.uniforms[id] = name
		c.AddProperty(c.dialect.Uniform(typ.String(), name))
		c.injections = append(c.injections, Injection{Name: name, Type: typ, get: get})
	}
	c.Scope().bind(id, name)
	return name
}

// injectMatrix declares a float4x4 uniform for node id.
func (c *Context) injectMatrix(id NodeID, get func() ms3.Mat4) string {
	name, ok := c.uniforms[id]
	if !ok {
		name = c.GenID("matrix")
		c.uniforms[id] = name
		c.AddProperty(c.dialect.Uniform("float4x4", name))
		c.matrices = append(c.matrices, MatrixInjection{Name: name, get: get})
	}
	return name
}

// enterScope creates a child scope of the current scope and makes it current.
// The returned function restores the previous scope.
func (c *Context) enterScope(name string, args []Argument) (child *Scope, exit func()) {
	parent := c.Scope()
	child = newScope(name, parent.Depth+1, args)
	// Inputs keep the names they have in the enclosing scope.
	for _, in := range [...]NodeID{positionID, dispatchIDID} {
		if bound, ok := parent.bound[in]; ok {
			child.bind(in, bound)
		}
	}
	c.scopes = append(c.scopes, child)
	savedCurrent, savedDepth := c.current, c.depth
	c.current = len(c.scopes) - 1
	c.depth = child.Depth
	c.log.Debug("enter scope", slog.String("scope", name), slog.Int("depth", child.Depth))
	return child, func() {
		c.current, c.depth = savedCurrent, savedDepth
	}
}

// addTexture registers a backing texture. Texture names are unique.
func (c *Context) addTexture(t Texture) {
	c.textures = append(c.textures, t)
}

// addReader grants the current scope's kernel read access to texture name.
func (c *Context) addReader(name string) {
	kernel := c.Scope().Kernel()
	for i := range c.textures {
		if c.textures[i].Name == name {
			c.textures[i].Readers = append(c.textures[i].Readers, kernel)
			return
		}
	}
	panic("glbuild: reader added to unregistered texture " + name)
}

func (c *Context) addKernel(name string, dim, power, depth int, body []string) {
	threads := c.threads3D
	if dim == 2 {
		threads = c.threads2D
	}
	src := c.dialect.AppendKernel(nil, name, threads, body)
	c.kernels = append(c.kernels, string(src))
	c.dispatches = append(c.dispatches, Dispatch{
		Kernel:  name,
		Power:   power,
		Dim:     dim,
		Depth:   depth,
		Threads: threads,
	})
	c.log.Debug("register kernel", slog.String("kernel", name), slog.Int("depth", depth), slog.Int("power", power))
}
