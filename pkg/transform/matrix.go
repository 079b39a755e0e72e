// Package transform provides the 4x4 homogeneous matrices used to move points
// between voxel, world and Talairach space.
//
// A Matrix is a plain value: the 3x3 linear part sits in the upper-left
// corner, the translation in the last column and the homogeneous row at the
// bottom. Building a matrix never mutates an existing one; composition and
// inversion always return a new value.
package transform

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// SingularTolerance is the smallest |det| accepted by Invert.
const SingularTolerance = 1e-10

var (
	// ErrSingularMatrix is returned when a matrix cannot be inverted.
	ErrSingularMatrix = errors.New("transform: singular matrix")

	// ErrInvalidAxis is returned for an axis outside X, Y, Z.
	ErrInvalidAxis = errors.New("transform: invalid axis")
)

// Axis names one of the three principal axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// ParseAxis accepts "x", "y" or "z" in either case, or the index 0-2.
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "x", "X", "0":
		return AxisX, nil
	case "y", "Y", "1":
		return AxisY, nil
	case "z", "Z", "2":
		return AxisZ, nil
	}
	return 0, errors.Wrapf(ErrInvalidAxis, "%q", s)
}

// Matrix is a 4x4 homogeneous transform, indexed [row][column].
type Matrix [4][4]float64

// Identity returns the identity matrix.
func Identity() Matrix {
	return Matrix{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// FromRotation builds a right-handed rotation of angle radians about a
// principal axis. A positive angle turns Y towards Z for AxisX, Z towards X
// for AxisY and X towards Y for AxisZ.
func FromRotation(axis Axis, angle float64) (Matrix, error) {
	c, s := math.Cos(angle), math.Sin(angle)
	m := Identity()
	switch axis {
	case AxisX:
		m[1][1], m[1][2] = c, -s
		m[2][1], m[2][2] = s, c
	case AxisY:
		m[0][0], m[0][2] = c, s
		m[2][0], m[2][2] = -s, c
	case AxisZ:
		m[0][0], m[0][1] = c, -s
		m[1][0], m[1][1] = s, c
	default:
		return Matrix{}, errors.Wrapf(ErrInvalidAxis, "%d", int(axis))
	}
	return m, nil
}

// FromLinear embeds a 3x3 linear map (rotation, shear, ...) with no translation.
func FromLinear(r [3][3]float64) Matrix {
	m := Identity()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i][j] = r[i][j]
		}
	}
	return m
}

// FromScale builds a diagonal scaling matrix.
func FromScale(sx, sy, sz float64) Matrix {
	m := Identity()
	m[0][0], m[1][1], m[2][2] = sx, sy, sz
	return m
}

// FromTranslation builds a pure translation.
func FromTranslation(dx, dy, dz float64) Matrix {
	m := Identity()
	m[0][3], m[1][3], m[2][3] = dx, dy, dz
	return m
}

// FromAffine builds y = A x + b.
func FromAffine(a [3][3]float64, b r3.Vec) Matrix {
	m := FromLinear(a)
	m[0][3], m[1][3], m[2][3] = b.X, b.Y, b.Z
	return m
}

// Compose returns a * b * rest[0] * ... . The right-most matrix is applied
// first, so Compose(a, b).Apply(p) == a.Apply(b.Apply(p)).
func Compose(a, b Matrix, rest ...Matrix) Matrix {
	out := mul(a, b)
	for _, m := range rest {
		out = mul(out, m)
	}
	return out
}

func mul(a, b Matrix) Matrix {
	var out Matrix
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += a[i][k] * b[k][j]
			}
			out[i][j] = sum
		}
	}
	return out
}

// AboutCenter conjugates m so that it acts around c instead of the origin:
// translate(+c) * m * translate(-c).
func AboutCenter(m Matrix, c r3.Vec) Matrix {
	return Compose(FromTranslation(c.X, c.Y, c.Z), m, FromTranslation(-c.X, -c.Y, -c.Z))
}

func (m Matrix) dense() *mat.Dense {
	data := make([]float64, 0, 16)
	for i := 0; i < 4; i++ {
		data = append(data, m[i][:]...)
	}
	return mat.NewDense(4, 4, data)
}

// Det returns the determinant of the full 4x4 matrix.
func (m Matrix) Det() float64 {
	return mat.Det(m.dense())
}

// Invert returns the inverse of m, or ErrSingularMatrix when |det| is below
// SingularTolerance. It never returns an approximate inverse.
func Invert(m Matrix) (Matrix, error) {
	d := m.dense()
	if det := mat.Det(d); math.Abs(det) < SingularTolerance || math.IsNaN(det) {
		return Matrix{}, errors.Wrapf(ErrSingularMatrix, "determinant %g", det)
	}

	var inv mat.Dense
	if err := inv.Inverse(d); err != nil {
		return Matrix{}, errors.Wrap(ErrSingularMatrix, err.Error())
	}

	var out Matrix
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i][j] = inv.At(i, j)
		}
	}
	return out, nil
}

// Apply transforms p as a homogeneous point. The result is divided by the
// homogeneous coordinate unless it is exactly 1 (or 0, for which the raw
// affine result is returned).
func (m Matrix) Apply(p r3.Vec) r3.Vec {
	x := m[0][0]*p.X + m[0][1]*p.Y + m[0][2]*p.Z + m[0][3]
	y := m[1][0]*p.X + m[1][1]*p.Y + m[1][2]*p.Z + m[1][3]
	z := m[2][0]*p.X + m[2][1]*p.Y + m[2][2]*p.Z + m[2][3]
	w := m[3][0]*p.X + m[3][1]*p.Y + m[3][2]*p.Z + m[3][3]
	if w != 1 && w != 0 {
		return r3.Vec{X: x / w, Y: y / w, Z: z / w}
	}
	return r3.Vec{X: x, Y: y, Z: z}
}

// IsIdentity reports whether m is exactly the identity.
func (m Matrix) IsIdentity() bool {
	return m == Identity()
}

// EqualApprox reports whether every element of a and b differs by at most tol.
func EqualApprox(a, b Matrix, tol float64) bool {
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if math.Abs(a[i][j]-b[i][j]) > tol {
				return false
			}
		}
	}
	return true
}

func (m Matrix) String() string {
	return fmt.Sprintf("[%g %g %g %g; %g %g %g %g; %g %g %g %g; %g %g %g %g]",
		m[0][0], m[0][1], m[0][2], m[0][3],
		m[1][0], m[1][1], m[1][2], m[1][3],
		m[2][0], m[2][1], m[2][2], m[2][3],
		m[3][0], m[3][1], m[3][2], m[3][3])
}
