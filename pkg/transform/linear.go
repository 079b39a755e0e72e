package transform

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Linear is a transform together with its cached inverse. It is only
// constructed through NewLinear, so Forward and Inverse always agree.
type Linear struct {
	forward Matrix
	inverse Matrix
}

// NewLinear inverts m once and keeps both directions.
func NewLinear(m Matrix) (Linear, error) {
	inv, err := Invert(m)
	if err != nil {
		return Linear{}, err
	}
	return Linear{forward: m, inverse: inv}, nil
}

// Forward returns the stored matrix.
func (l Linear) Forward() Matrix { return l.forward }

// Inverse returns the cached inverse.
func (l Linear) Inverse() Matrix { return l.inverse }

// Apply maps p forward.
func (l Linear) Apply(p r3.Vec) r3.Vec { return l.forward.Apply(p) }

// ApplyInverse maps p backward.
func (l Linear) ApplyInverse(p r3.Vec) r3.Vec { return l.inverse.Apply(p) }
