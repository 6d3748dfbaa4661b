// Package kernlib embeds the fixed function library included by every
// compiled voxel unit: hashes, noises, signed distance combinators, remapping
// and texture filtering helpers.
//
// The common library is written with HLSL type and intrinsic spellings
// (float3, frac, lerp). GLSL units alias those with #define directives.
package kernlib

import (
	_ "embed"
	"regexp"
	"slices"
)

//go:embed hash.inc
var hashSrc []byte

//go:embed noise.inc
var noiseSrc []byte

//go:embed sdf.inc
var sdfSrc []byte

//go:embed remap.inc
var remapSrc []byte

//go:embed bicubic.hlsl
var bicubicHLSL []byte

//go:embed bicubic.glsl
var bicubicGLSL []byte

var common = join(hashSrc, noiseSrc, sdfSrc, remapSrc)

var functions = declaredFunctions(common, bicubicHLSL, bicubicGLSL)

// Common returns the dialect independent library. Functions provided:
//
//	float hash11(float) ... float3 hash33(float3) // hashNM: N outputs from M inputs.
//	float snoise(float2), float snoise(float3)
//	float2 cellular(float2), float2 cellular(float3) // F1 and F2 distances.
//	float voronoise(float2 p, float u, float v)
//	float opUnion(float, float) and opIntersection, opSubtraction and their opSmooth variants.
//	float sdBox(float3 p, float3 halfSize)
//	float distManhattan(T, T), float distChebyshev(T, T)
//	T Remap(T x, T inMin, T inMax, T outMin, T outMax)
//	float4 cubicWeights(float)
//
// The returned slice must not be modified.
func Common() []byte { return common }

// BicubicHLSL returns the HLSL bicubic texture sampling helper:
//
//	float4 SampleBicubic(Texture2D tex, SamplerState samp, float2 uv, float texSize)
func BicubicHLSL() []byte { return bicubicHLSL }

// BicubicGLSL returns the GLSL bicubic texture sampling helper:
//
//	vec4 sampleBicubic(sampler2D tex, vec2 uv, float texSize)
func BicubicGLSL() []byte { return bicubicGLSL }

// Functions returns the sorted names of every function declared by the
// library in any dialect, including helpers not listed in [Common].
// The returned slice must not be modified.
func Functions() []string { return functions }

var declRe = regexp.MustCompile(`(?m)^\w+\s+(\w+)\s*\(`)

func declaredFunctions(srcs ...[]byte) []string {
	var names []string
	for _, src := range srcs {
		for _, m := range declRe.FindAllSubmatch(src, -1) {
			names = append(names, string(m[1]))
		}
	}
	slices.Sort(names)
	return slices.Compact(names)
}

func join(srcs ...[]byte) []byte {
	var b []byte
	for _, src := range srcs {
		b = append(b, src...)
		if len(b) > 0 && b[len(b)-1] != '\n' {
			b = append(b, '\n')
		}
		b = append(b, '\n')
	}
	return b
}
