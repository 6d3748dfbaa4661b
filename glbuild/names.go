package glbuild

import (
	"strings"

	"github.com/soypat/gvox/glbuild/kernlib"
)

// Argument names of scope functions and kernel locals.
var reservedNames = []string{"position", "id", "size", "scale", "offset", "result", "remapped"}

// Keywords, type names and intrinsics of HLSL and GLSL. A declaration with
// one of these names fails to compile or hides the builtin it is named after.
const dialectWords = `
void bool int uint float double half dword min16float min10float min16int min12int min16uint
bool2 bool3 bool4 int2 int3 int4 uint2 uint3 uint4 half2 half3 half4 float2 float3 float4 double2 double3 double4
float2x2 float3x3 float4x4 float2x3 float2x4 float3x2 float3x4 float4x2 float4x3 matrix vector string
vec2 vec3 vec4 ivec2 ivec3 ivec4 uvec2 uvec3 uvec4 bvec2 bvec3 bvec4 dvec2 dvec3 dvec4
mat2 mat3 mat4 mat2x2 mat2x3 mat2x4 mat3x2 mat3x3 mat3x4 mat4x2 mat4x3 mat4x4
sampler sampler1D sampler2D sampler3D samplerCube SamplerState SamplerComparisonState
image1D image2D image3D Texture1D Texture2D Texture3D RWTexture1D RWTexture2D RWTexture3D
Buffer RWBuffer StructuredBuffer RWStructuredBuffer ByteAddressBuffer RWByteAddressBuffer
in out inout uniform const static extern shared groupshared volatile precise inline
layout precision highp mediump lowp flat smooth noperspective nointerpolation centroid sample patch
buffer coherent restrict readonly writeonly invariant attribute varying row_major column_major
cbuffer tbuffer register packoffset numthreads typedef struct class interface namespace template
if else for while do switch case default break continue return discard true false
sizeof asm goto union enum public private this new delete operator typename unsigned signed
input output filter common partition active superp dmat2 dmat3 dmat4 subroutine
abs acos all any asin atan atan2 ceil clamp cos cosh cross ddx ddy degrees determinant distance dot
exp exp2 faceforward floor fma fmod frac fract frexp fwidth inversesqrt isfinite isinf isnan ldexp
length lerp log log2 max min mix mod modf mul normalize pow radians rcp reflect refract round rsqrt
saturate sign sin sincos sinh smoothstep sqrt step tan tanh transpose trunc
texture textureLod texelFetch imageLoad imageStore barrier memoryBarrier main
`

var reservedWords = func() map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(dialectWords) {
		words[w] = struct{}{}
	}
	for _, w := range reservedNames {
		words[w] = struct{}{}
	}
	for _, alias := range glslAliases {
		name, _, _ := strings.Cut(alias[0], "(")
		words[name] = struct{}{}
	}
	for _, fn := range kernlib.Functions() {
		words[fn] = struct{}{}
	}
	return words
}()

// isReservedName reports whether an output named s would collide with a
// declaration, builtin or keyword of the generated source.
func (cp *Compiler) isReservedName(s string) bool {
	switch {
	case s == cp.entry || s == "CS"+cp.entry:
		return true
	case strings.HasPrefix(s, "gl_") || strings.Contains(s, "__"):
		return true
	case strings.HasSuffix(s, "_read") || strings.HasSuffix(s, "_write"):
		// Texture view and sampler names.
		return true
	}
	_, ok := reservedWords[s]
	return ok
}
