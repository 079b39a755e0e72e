package volume

import (
	"fmt"
	"math"
)

// ScalarType is the per-voxel storage type of a Volume. The numeric values
// match the type codes written in volume headers.
type ScalarType int

const (
	UChar ScalarType = 0
	Int   ScalarType = 1
	Long  ScalarType = 2
	Float ScalarType = 3
	Short ScalarType = 4
)

// Scalar is the set of Go types that back a Volume's storage.
type Scalar interface {
	uint8 | int16 | int32 | int64 | float32
}

// Valid reports whether t is one of the known scalar types.
func (t ScalarType) Valid() bool {
	switch t {
	case UChar, Int, Long, Float, Short:
		return true
	}
	return false
}

// Size returns the number of bytes used by one voxel of type t.
func (t ScalarType) Size() int {
	switch t {
	case UChar:
		return 1
	case Short:
		return 2
	case Int, Float:
		return 4
	case Long:
		return 8
	}
	return 0
}

// Range returns the smallest and largest value representable by t.
func (t ScalarType) Range() (float64, float64) {
	switch t {
	case UChar:
		return 0, math.MaxUint8
	case Short:
		return math.MinInt16, math.MaxInt16
	case Int:
		return math.MinInt32, math.MaxInt32
	case Long:
		return math.MinInt64, math.MaxInt64
	case Float:
		return -math.MaxFloat32, math.MaxFloat32
	}
	return 0, 0
}

// Integral reports whether t holds integers.
func (t ScalarType) Integral() bool {
	return t != Float
}

func (t ScalarType) String() string {
	switch t {
	case UChar:
		return "uchar"
	case Short:
		return "short"
	case Int:
		return "int"
	case Long:
		return "long"
	case Float:
		return "float"
	}
	return fmt.Sprintf("ScalarType(%d)", int(t))
}

// ParseScalarType is the inverse of String.
func ParseScalarType(s string) (ScalarType, error) {
	for _, t := range []ScalarType{UChar, Short, Int, Long, Float} {
		if t.String() == s {
			return t, nil
		}
	}
	switch s {
	case "byte", "uint8":
		return UChar, nil
	case "float32":
		return Float, nil
	}
	return 0, fmt.Errorf("unknown scalar type %q", s)
}

// Saturate converts v to the value that would be stored in a voxel of type t:
// integral types round to nearest and clamp to their range instead of
// wrapping. NaN stores as 0 for integral types. Float clamps to
// ±math.MaxFloat32, infinities included, and keeps NaN.
func (t ScalarType) Saturate(v float64) float64 {
	if !t.Integral() {
		return float64(float32(math.Max(-math.MaxFloat32, math.Min(v, math.MaxFloat32))))
	}
	if math.IsNaN(v) {
		return 0
	}
	lo, hi := t.Range()
	v = math.Round(v)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func scalarTypeOf[T Scalar]() ScalarType {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return UChar
	case int16:
		return Short
	case int32:
		return Int
	case int64:
		return Long
	case float32:
		return Float
	}
	return -1
}
