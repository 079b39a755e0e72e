// Package phantom generates synthetic volumes with known structure. They
// stand in for scanner data when exercising transforms from the CLI and in
// tests.
package phantom

import (
	"fmt"
	"math"

	"mrixform/pkg/volume"
)

// Kind selects a phantom shape.
type Kind string

const (
	// Sphere is a bright ball centred in the grid on a dark background.
	Sphere Kind = "sphere"

	// Shells are concentric spherical shells whose intensity grows with radius.
	Shells Kind = "shells"

	// Gradient ramps linearly along x, y and z.
	Gradient Kind = "gradient"

	// Constant holds the same value everywhere.
	Constant Kind = "constant"
)

// Kinds lists every supported phantom.
var Kinds = []Kind{Sphere, Shells, Gradient, Constant}

// Options controls phantom generation.
type Options struct {
	// Size is the edge length of the cubic grid in voxels
	Size int

	// Type is the scalar type of the result
	Type volume.ScalarType

	// Intensity is the brightest value written
	Intensity float64
}

// DefaultOptions returns a 64^3 UChar phantom peaking at 200.
func DefaultOptions() Options {
	return Options{Size: 64, Type: volume.UChar, Intensity: 200}
}

// New builds the phantom named by kind.
func New(kind Kind, opts Options) (*volume.Volume, error) {
	v, err := volume.Allocate(opts.Size, opts.Size, opts.Size, opts.Type)
	if err != nil {
		return nil, fmt.Errorf("phantom %s: %w", kind, err)
	}

	c := float64(opts.Size-1) / 2
	switch kind {
	case Sphere:
		radius := float64(opts.Size) / 4
		fill(v, func(x, y, z float64) float64 {
			if dist(x, y, z, c) <= radius {
				return opts.Intensity
			}
			return 0
		})

	case Shells:
		// Shells are 4 voxels thick, alternating with empty bands
		rmax := float64(opts.Size) / 2
		fill(v, func(x, y, z float64) float64 {
			r := dist(x, y, z, c)
			if r > rmax || int(r/4)%2 == 1 {
				return 0
			}
			return opts.Intensity * (0.25 + 0.75*r/rmax)
		})

	case Gradient:
		span := float64(3 * max(opts.Size-1, 1))
		fill(v, func(x, y, z float64) float64 {
			return opts.Intensity * (x + y + z) / span
		})

	case Constant:
		v.Fill(opts.Intensity)

	default:
		return nil, fmt.Errorf("unknown phantom %q", kind)
	}

	return v, nil
}

func dist(x, y, z, c float64) float64 {
	return math.Sqrt((x-c)*(x-c) + (y-c)*(y-c) + (z-c)*(z-c))
}

func fill(v *volume.Volume, fn func(x, y, z float64) float64) {
	for z := 0; z < v.Depth(); z++ {
		for y := 0; y < v.Height(); y++ {
			for x := 0; x < v.Width(); x++ {
				v.SetUnchecked(x, y, z, 0, fn(float64(x), float64(y), float64(z)))
			}
		}
	}
}
