package volume

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

func fmtShape(width, height, depth, frames int, t ScalarType) string {
	if frames > 1 {
		return fmt.Sprintf("%dx%dx%dx%d %s", width, height, depth, frames, t)
	}
	return fmt.Sprintf("%dx%dx%d %s", width, height, depth, t)
}

func (v *Volume) String() string { return v.describe() }

// resolve maps (x, y, z) through the boundary tables.
func (v *Volume) resolve(x, y, z int) (int, int, int, bool) {
	xi, ok := v.xi.Index(x)
	if !ok {
		return 0, 0, 0, false
	}
	yi, ok := v.yi.Index(y)
	if !ok {
		return 0, 0, 0, false
	}
	zi, ok := v.zi.Index(z)
	if !ok {
		return 0, 0, 0, false
	}
	return xi, yi, zi, true
}

// Read returns the voxel at (x, y, z) of frame 0.
func (v *Volume) Read(x, y, z int) float64 {
	return v.ReadFrame(x, y, z, 0)
}

// ReadFrame returns the voxel at (x, y, z) of frame f. Coordinates outside
// the grid are resolved through the boundary tables; beyond the padding, or
// on a volume without storage, the result is 0.
func (v *Volume) ReadFrame(x, y, z, f int) float64 {
	if v.store == nil || f < 0 || f >= v.frames {
		return 0
	}
	xi, yi, zi, ok := v.resolve(x, y, z)
	if !ok {
		return 0
	}
	return v.store.at(xi, yi, zi+f*v.depth)
}

// Write stores val at (x, y, z) of frame 0.
func (v *Volume) Write(x, y, z int, val float64) {
	v.WriteFrame(x, y, z, 0, val)
}

// WriteFrame stores val, converted to the volume's scalar type, at
// (x, y, z) of frame f. Out-of-range coordinates resolve through the
// boundary tables like ReadFrame; writes beyond the padding are dropped.
func (v *Volume) WriteFrame(x, y, z, f int, val float64) {
	if v.store == nil || f < 0 || f >= v.frames {
		return
	}
	xi, yi, zi, ok := v.resolve(x, y, z)
	if !ok {
		return
	}
	v.store.set(xi, yi, zi+f*v.depth, val)
}

func (v *Volume) checkStrict(x, y, z, f int) error {
	if v.store == nil {
		return ErrNoStorage
	}
	if x < 0 || x >= v.width || y < 0 || y >= v.height || z < 0 || z >= v.depth || f < 0 || f >= v.frames {
		return errors.Wrapf(ErrOutOfBounds, "(%d, %d, %d) frame %d in %s", x, y, z, f, v.describe())
	}
	return nil
}

// ReadStrict is ReadFrame without boundary resolution: it fails with
// ErrOutOfBounds outside the grid.
func (v *Volume) ReadStrict(x, y, z, f int) (float64, error) {
	if err := v.checkStrict(x, y, z, f); err != nil {
		return 0, err
	}
	return v.store.at(x, y, z+f*v.depth), nil
}

// WriteStrict is WriteFrame without boundary resolution.
func (v *Volume) WriteStrict(x, y, z, f int, val float64) error {
	if err := v.checkStrict(x, y, z, f); err != nil {
		return err
	}
	v.store.set(x, y, z+f*v.depth, val)
	return nil
}

// Slices gives direct typed access to the storage of v as
// slices[z+frame*depth][y][x]. T must match the volume's scalar type.
func Slices[T Scalar](v *Volume) ([][][]T, error) {
	if v.store == nil {
		return nil, ErrNoStorage
	}
	s, ok := v.store.(*store[T])
	if !ok {
		return nil, errors.Wrapf(ErrShapeMismatch, "%s storage accessed as %s", v.typ, scalarTypeOf[T]())
	}
	return s.slices, nil
}

// Fill sets every voxel of every frame to val.
func (v *Volume) Fill(val float64) {
	if v.store == nil {
		return
	}
	for z := 0; z < v.depth*v.frames; z++ {
		for y := 0; y < v.height; y++ {
			for x := 0; x < v.width; x++ {
				v.store.set(x, y, z, val)
			}
		}
	}
}

// Clear zeroes every voxel.
func (v *Volume) Clear() {
	if v.store != nil {
		v.store.clear()
	}
}

// ValueRange returns the smallest and largest voxel value over all frames.
func (v *Volume) ValueRange() (float64, float64, error) {
	if v.store == nil {
		return 0, 0, ErrNoStorage
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for z := 0; z < v.depth*v.frames; z++ {
		for y := 0; y < v.height; y++ {
			for x := 0; x < v.width; x++ {
				val := v.store.at(x, y, z)
				lo = math.Min(lo, val)
				hi = math.Max(hi, val)
			}
		}
	}
	return lo, hi, nil
}

// Values returns frame f flattened in z, y, x order.
func (v *Volume) Values(f int) ([]float64, error) {
	if v.store == nil {
		return nil, ErrNoStorage
	}
	if f < 0 || f >= v.frames {
		return nil, errors.Wrapf(ErrOutOfBounds, "frame %d of %d", f, v.frames)
	}
	out := make([]float64, 0, v.width*v.height*v.depth)
	for z := 0; z < v.depth; z++ {
		for y := 0; y < v.height; y++ {
			for x := 0; x < v.width; x++ {
				out = append(out, v.store.at(x, y, z+f*v.depth))
			}
		}
	}
	return out, nil
}

// CopyVoxel copies one voxel from src to v. When the scalar types match the
// value is copied bit for bit; otherwise it is converted with saturation.
// Coordinates must be inside both grids.
func (v *Volume) CopyVoxel(src *Volume, sx, sy, sz, sf, dx, dy, dz, df int) {
	v.store.copyVoxel(src.store, sx, sy, sz+sf*src.depth, dx, dy, dz+df*v.depth)
}

// SetUnchecked stores val at an in-range coordinate without boundary
// resolution. It is meant for inner loops that already validated indices.
func (v *Volume) SetUnchecked(x, y, z, f int, val float64) {
	v.store.set(x, y, z+f*v.depth, val)
}

// AtUnchecked is the read counterpart of SetUnchecked.
func (v *Volume) AtUnchecked(x, y, z, f int) float64 {
	return v.store.at(x, y, z+f*v.depth)
}
