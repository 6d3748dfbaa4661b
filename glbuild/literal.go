package glbuild

import (
	"fmt"
	"strconv"

	"github.com/chewxy/math32"
)

// Literal returns the kernel source literal of v and its type,
// i.e: ms3.Vec{X: 1, Y: 0, Z: -2.5} is "float3(1., 0., -2.5)".
// NaN and infinite components have no literal and return an error.
func Literal[T Element](v T) (string, Type, error) {
	typ, err := TypeOf[T]()
	if err != nil {
		return "", typ, err
	}
	u, err := Marshal(typ, v)
	if err != nil {
		return "", typ, err
	}
	for _, f := range u.Floats[:typ.Dim()] {
		if math32.IsNaN(f) || math32.IsInf(f, 0) {
			return "", typ, fmt.Errorf("%w: non-finite constant %v", ErrUnsupportedType, v)
		}
	}
	return string(u.AppendLiteral(nil)), typ, nil
}

// AppendLiteral appends the uniform value as a kernel source literal.
func (u Uniform) AppendLiteral(b []byte) []byte {
	dim := u.Type.Dim()
	if dim > 1 {
		b = append(b, u.Type.String()...)
		b = append(b, '(')
	}
	for i := 0; i < dim; i++ {
		if i > 0 {
			b = append(b, ", "...)
		}
		switch u.Type.Scalar() {
		case Float:
			b = AppendFloat(b, '-', '.', u.Floats[i])
		case Uint:
			b = strconv.AppendUint(b, uint64(u.Uints[i]), 10)
			b = append(b, 'u')
		case Int:
			b = strconv.AppendInt(b, int64(u.Ints[i]), 10)
		}
	}
	if dim > 1 {
		b = append(b, ')')
	}
	return b
}
