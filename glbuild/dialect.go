package glbuild

import (
	"fmt"
	"strconv"

	"github.com/soypat/gvox/glbuild/kernlib"
)

// Dialect renders the target specific parts of kernel source: resource
// declarations, texture access and kernel entry points. Generated expressions
// use HLSL spellings (float3, lerp, frac, mul) which dialects alias when needed.
type Dialect interface {
	// Name identifies the dialect, i.e: "hlsl".
	Name() string
	// AppendHeader appends text that must precede every declaration.
	AppendHeader(b []byte) []byte
	// AppendLibrary appends the kernel library functions.
	AppendLibrary(b []byte) []byte
	// Uniform declares a host supplied value.
	Uniform(typ, name string) string
	// WriteTexture declares the write view of texture name.
	WriteTexture(name string, dim int, elem Type) string
	// ReadTexture declares the read view of texture name and its sampler.
	ReadTexture(name string, dim int) []string
	// Sample returns an expression sampling the read view of texture name.
	// The result has 4 components.
	Sample(name string, dim int, coords, lod string) string
	// SampleBicubic returns a bicubic filtered sample of a 2D texture with texSize texels per side.
	SampleBicubic(name string, coords, texSize string) string
	// Store returns a statement writing value into the write view of texture name.
	Store(name string, dim int, coords, value string, elem Type) string
	// Unroll returns the loop unroll annotation, possibly empty.
	Unroll() string
	// AppendKernel appends a kernel function named name. The body may use
	// the uint3 dispatch thread id variable "id".
	AppendKernel(b []byte, name string, threads [3]int, body []string) []byte
	// EntryPoint returns source that must be appended to make kernel the
	// program entry point. It is empty for dialects where kernels are entry points.
	EntryPoint(kernel string, threads [3]int) string
}

// Texture view names. A texture named "tex" is written through "tex_write",
// read through "tex_read" and sampled with "samplertex_read".
func writeView(tex string) string   { return tex + "_write" }
func readView(tex string) string    { return tex + "_read" }
func samplerName(tex string) string { return "sampler" + tex + "_read" }

// componentSwizzle returns the swizzle that extracts a value of type typ out of a 4 component sample.
func componentSwizzle(typ Type) string {
	switch typ.Dim() {
	case 1:
		return ".x"
	case 2:
		return ".xy"
	case 3:
		return ".xyz"
	}
	return ""
}

// HLSL is the default dialect. Its output follows compute shader conventions
// with one #pragma kernel per dispatch.
type HLSL struct{}

var _ Dialect = HLSL{}

func (HLSL) Name() string { return "hlsl" }

func (HLSL) AppendHeader(b []byte) []byte { return b }

func (HLSL) AppendLibrary(b []byte) []byte {
	b = append(b, kernlib.Common()...)
	return append(b, kernlib.BicubicHLSL()...)
}

func (HLSL) Uniform(typ, name string) string { return typ + " " + name + ";" }

func (HLSL) WriteTexture(name string, dim int, elem Type) string {
	return "RWTexture" + strconv.Itoa(dim) + "D<" + elem.String() + "> " + writeView(name) + ";"
}

func (HLSL) ReadTexture(name string, dim int) []string {
	return []string{
		"Texture" + strconv.Itoa(dim) + "D " + readView(name) + ";",
		"SamplerState " + samplerName(name) + ";",
	}
}

func (HLSL) Sample(name string, dim int, coords, lod string) string {
	return readView(name) + ".SampleLevel(" + samplerName(name) + ", " + coords + ", " + lod + ")"
}

func (HLSL) SampleBicubic(name string, coords, texSize string) string {
	return "SampleBicubic(" + readView(name) + ", " + samplerName(name) + ", " + coords + ", " + texSize + ")"
}

func (HLSL) Store(name string, dim int, coords, value string, elem Type) string {
	return writeView(name) + "[" + coords + "] = " + value + ";"
}

func (HLSL) Unroll() string { return "[unroll]" }

func (HLSL) AppendKernel(b []byte, name string, threads [3]int, body []string) []byte {
	b = append(b, "#pragma kernel "...)
	b = append(b, name...)
	b = fmt.Appendf(b, "\n[numthreads(%d, %d, %d)]\n", threads[0], threads[1], threads[2])
	b = append(b, "void "...)
	b = append(b, name...)
	b = append(b, "(uint3 id : SV_DispatchThreadID) {\n"...)
	b = appendBody(b, body)
	b = append(b, "}\n"...)
	return b
}

func (HLSL) EntryPoint(string, [3]int) string { return "" }

// GLSL targets OpenGL 4.3 compute shaders. Every kernel in a unit is compiled
// as a separate program by appending its [GLSL.EntryPoint].
type GLSL struct{}

var _ Dialect = GLSL{}

// glslAliases maps HLSL spellings used by generated code and the library to GLSL.
var glslAliases = [...][2]string{
	{"float2", "vec2"},
	{"float3", "vec3"},
	{"float4", "vec4"},
	{"uint2", "uvec2"},
	{"uint3", "uvec3"},
	{"int2", "ivec2"},
	{"int3", "ivec3"},
	{"float4x4", "mat4"},
	{"lerp", "mix"},
	{"frac", "fract"},
	{"fmod", "mod"},
	{"saturate(x)", "clamp((x), 0.0, 1.0)"},
	{"mul(m, v)", "((m) * (v))"},
}

func (GLSL) Name() string { return "glsl" }

func (GLSL) AppendHeader(b []byte) []byte {
	b = append(b, VersionStr...)
	for _, alias := range glslAliases {
		b = AppendDefineDecl(b, alias[0], alias[1])
	}
	return b
}

func (GLSL) AppendLibrary(b []byte) []byte {
	b = append(b, kernlib.Common()...)
	return append(b, kernlib.BicubicGLSL()...)
}

func (GLSL) Uniform(typ, name string) string { return "uniform " + typ + " " + name + ";" }

func imageFormat(elem Type) string {
	switch elem.Dim() {
	case 1:
		return "r32f"
	case 2:
		return "rg32f"
	}
	return "rgba32f"
}

func (GLSL) WriteTexture(name string, dim int, elem Type) string {
	return "layout(" + imageFormat(elem) + ") writeonly uniform image" + strconv.Itoa(dim) + "D " + writeView(name) + ";"
}

func (GLSL) ReadTexture(name string, dim int) []string {
	return []string{"uniform sampler" + strconv.Itoa(dim) + "D " + readView(name) + ";"}
}

func (GLSL) Sample(name string, dim int, coords, lod string) string {
	return "textureLod(" + readView(name) + ", " + coords + ", " + lod + ")"
}

func (GLSL) SampleBicubic(name string, coords, texSize string) string {
	return "sampleBicubic(" + readView(name) + ", " + coords + ", " + texSize + ")"
}

func (GLSL) Store(name string, dim int, coords, value string, elem Type) string {
	var texel string
	switch elem.Dim() {
	case 1:
		texel = "float4(" + value + ", 0.0, 0.0, 0.0)"
	case 2:
		texel = "float4(" + value + ", 0.0, 0.0)"
	case 3:
		texel = "float4(" + value + ", 0.0)"
	default:
		texel = value
	}
	return "imageStore(" + writeView(name) + ", int" + strconv.Itoa(dim) + "(" + coords + "), " + texel + ");"
}

func (GLSL) Unroll() string { return "" }

func (GLSL) AppendKernel(b []byte, name string, threads [3]int, body []string) []byte {
	b = append(b, "void "...)
	b = append(b, name...)
	b = append(b, "() {\n\tuint3 id = gl_GlobalInvocationID;\n"...)
	b = appendBody(b, body)
	b = append(b, "}\n"...)
	return b
}

func (GLSL) EntryPoint(kernel string, threads [3]int) string {
	return fmt.Sprintf("\nlayout(local_size_x = %d, local_size_y = %d, local_size_z = %d) in;\nvoid main() {\n\t%s();\n}\n",
		threads[0], threads[1], threads[2], kernel)
}

func appendBody(b []byte, body []string) []byte {
	for _, line := range body {
		b = append(b, '\t')
		b = append(b, line...)
		b = append(b, '\n')
	}
	return b
}
