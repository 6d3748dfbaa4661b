package glbuild

import (
	"fmt"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"golang.org/x/image/math/f32"
)

// Type is the numeric type of a node's value as seen by generated kernel code.
// Every node carries exactly one Type, fixed on creation.
type Type uint8

const (
	typeUndefined Type = iota
	Float
	Float2
	Float3
	Float4
	Uint
	Int
	// Uint3 is the type of the dispatch thread id input.
	Uint3
)

// Dim returns the number of components of the type, 1 through 4.
// It returns 0 for an undefined type.
func (t Type) Dim() int {
	switch t {
	case Float, Uint, Int:
		return 1
	case Float2:
		return 2
	case Float3, Uint3:
		return 3
	case Float4:
		return 4
	}
	return 0
}

// String returns the kernel keyword for the type, i.e: "float3".
func (t Type) String() string {
	switch t {
	case Float:
		return "float"
	case Float2:
		return "float2"
	case Float3:
		return "float3"
	case Float4:
		return "float4"
	case Uint:
		return "uint"
	case Int:
		return "int"
	case Uint3:
		return "uint3"
	}
	return "<undefined type>"
}

// IsFloat reports whether t is a float scalar or vector.
func (t Type) IsFloat() bool {
	return t >= Float && t <= Float4
}

// Scalar returns the scalar type of the components of t.
func (t Type) Scalar() Type {
	switch t {
	case Float2, Float3, Float4:
		return Float
	case Uint3:
		return Uint
	}
	return t
}

// VectorOf returns the type with dim components of the scalar type.
func VectorOf(scalar Type, dim int) (Type, error) {
	switch {
	case scalar == Float && dim >= 1 && dim <= 4:
		return Float + Type(dim-1), nil
	case scalar == Uint && dim == 1:
		return Uint, nil
	case scalar == Uint && dim == 3:
		return Uint3, nil
	case scalar == Int && dim == 1:
		return Int, nil
	}
	return typeUndefined, fmt.Errorf("%w: %s with %d components", ErrUnsupportedDimensionality, scalar, dim)
}

// Element is the set of Go types that may be passed to [TypeOf].
// Not all of them have a kernel equivalent.
type Element interface {
	float32 | float64 | int | int32 | uint32 | ms2.Vec | ms3.Vec | f32.Vec4 | [3]uint32
}

// TypeOf returns the kernel [Type] that represents values of Go type T.
// float64 and int have no kernel representation and fail with [ErrUnsupportedType].
func TypeOf[T Element]() (Type, error) {
	var z T
	switch any(z).(type) {
	case float32:
		return Float, nil
	case ms2.Vec:
		return Float2, nil
	case ms3.Vec:
		return Float3, nil
	case f32.Vec4:
		return Float4, nil
	case uint32:
		return Uint, nil
	case int32:
		return Int, nil
	case [3]uint32:
		return Uint3, nil
	}
	return typeUndefined, fmt.Errorf("%w: %T", ErrUnsupportedType, z)
}
