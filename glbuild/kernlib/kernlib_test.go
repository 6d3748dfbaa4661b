package kernlib

import (
	"bytes"
	"slices"
	"strings"
	"testing"
)

func TestCommonFunctions(t *testing.T) {
	src := string(Common())
	for _, decl := range []string{
		"float hash11(float p)",
		"float2 hash21(float p)",
		"float3 hash31(float p)",
		"float3 hash33(float3 p3)",
		"float snoise(float2 v)",
		"float snoise(float3 v)",
		"float2 cellular(float2 p)",
		"float2 cellular(float3 p)",
		"float voronoise(float2 p, float u, float v)",
		"float opSmoothUnion(float a, float b, float k)",
		"float opSubtraction(float a, float b)",
		"float sdBox(float3 p, float3 b)",
		"float Remap(float x, float a, float b, float c, float d)",
		"float distChebyshev(float3 a, float3 b)",
		"float4 cubicWeights(float v)",
	} {
		if !strings.Contains(src, decl) {
			t.Errorf("library missing %q", decl)
		}
	}
}

func TestLibraryBalanced(t *testing.T) {
	for name, src := range map[string][]byte{
		"common":  Common(),
		"hlsl":    BicubicHLSL(),
		"glsl":    BicubicGLSL(),
		"hash":    hashSrc,
		"noise":   noiseSrc,
		"sdf":     sdfSrc,
		"remap":   remapSrc,
		"bicubic": bicubicGLSL,
	} {
		if len(src) == 0 {
			t.Errorf("%s: empty source", name)
			continue
		}
		open, closed := bytes.Count(src, []byte("{")), bytes.Count(src, []byte("}"))
		if open != closed {
			t.Errorf("%s: unbalanced braces %d != %d", name, open, closed)
		}
		open, closed = bytes.Count(src, []byte("(")), bytes.Count(src, []byte(")"))
		if open != closed {
			t.Errorf("%s: unbalanced parentheses %d != %d", name, open, closed)
		}
	}
}

func TestFunctions(t *testing.T) {
	names := Functions()
	for _, want := range []string{"hash21", "snoise", "cellular", "voronoise", "opUnion", "sdBox", "Remap", "mod289", "cubicWeights", "SampleBicubic", "sampleBicubic"} {
		if _, found := slices.BinarySearch(names, want); !found {
			t.Errorf("Functions missing %q", want)
		}
	}
	if !slices.IsSorted(names) || len(slices.Compact(slices.Clone(names))) != len(names) {
		t.Errorf("Functions must be sorted and unique: %v", names)
	}
	for _, name := range names {
		if name == "return" || name == "float" {
			t.Errorf("Functions picked up non-function %q", name)
		}
	}
}
