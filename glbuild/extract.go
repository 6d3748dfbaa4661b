package glbuild

import (
	"log/slog"
	"strconv"
	"strings"
)

// extract moves the computation of op.Inner into a new scope dispatched by
// its own kernel at a reduced resolution. The kernel writes a backing texture
// which the calling scope samples in place of Inner.
func (c *Context) extract(id NodeID, typ Type, op Cached) string {
	caller := c.Scope()
	dim := len(op.Axes)
	scopeName := c.GenID("CachedScope")
	tex := c.GenID("_cached_texture")
	c.AddProperty(c.dialect.WriteTexture(tex, dim, typ))
	for _, decl := range c.dialect.ReadTexture(tex, dim) {
		c.AddProperty(decl)
	}

	child, exit := c.enterScope(scopeName, []Argument{
		{Name: "position", Type: Float3},
		{Name: "id", Type: Uint3},
		{Name: "result", Type: typ, Output: true},
	})
	inner := c.Lower(op.Inner)
	c.declare(Decl{Base: "result", Expr: inner, AssignOnly: true})
	exit()

	// Sampling parameters belong to the caller.
	coordType, _ := VectorOf(Float, dim)
	uvExpr := "(" + coordType.String() + "(" + c.Name(dispatchIDID) + "." + op.Axes + ") / float(size))"
	if op.SampleScale != 0 {
		uvExpr += " * " + c.Lower(op.SampleScale)
	}
	if op.SampleOffset != 0 {
		uvExpr = "(" + uvExpr + " + " + c.Lower(op.SampleOffset) + ")"
	}
	uv := c.temp(inner+"_uv", coordType, uvExpr)
	var sample string
	if op.Sampler.Bicubic {
		sample = c.dialect.SampleBicubic(tex, uv, "float(max(size >> "+strconv.Itoa(op.Power)+", 1))")
	} else {
		sample = c.dialect.Sample(tex, dim, uv, "0.0")
	}
	name := c.DeclareAndBind(id, Decl{Base: inner + "_cached", Type: typ, Expr: sample + componentSwizzle(typ)})
	caller.sampled[id] = tex

	kernel := child.Kernel()
	c.addKernel(kernel, dim, op.Power, child.Depth, c.extractedKernelBody(child, op, typ, tex))
	c.addTexture(Texture{
		Name:    tex,
		Dim:     dim,
		Type:    typ,
		Power:   op.Power,
		Sampler: op.Sampler,
		Writer:  kernel,
		Readers: []string{caller.Kernel()},
	})
	c.log.Debug("extracted scope",
		slog.String("scope", scopeName),
		slog.Int("depth", child.Depth),
		slog.String("texture", tex),
		slog.String("axes", op.Axes),
	)
	return name
}

// extractedKernelBody maps the reduced resolution dispatch id back to full
// resolution voxel coordinates, calls the scope function and stores the result.
func (c *Context) extractedKernelBody(child *Scope, op Cached, typ Type, tex string) []string {
	remapped := [3]string{"0u", "0u", "0u"}
	for i := 0; i < len(op.Axes); i++ {
		remapped[op.Axes[i]-'x'] = "id." + swizzleXYZW[i:i+1]
	}
	factor := strconv.Itoa(1<<op.Power) + "u"
	storeCoords := "id"
	if len(op.Axes) == 2 {
		storeCoords = "id.xy"
	}
	return []string{
		"uint3 remapped = uint3(" + strings.Join(remapped[:], ", ") + ");",
		"float3 position = (float3(remapped * " + factor + ") + offset) * scale;",
		typ.String() + " result;",
		child.Name + "(position, remapped * " + factor + ", result);",
		c.dialect.Store(tex, len(op.Axes), storeCoords, "result", typ),
	}
}
