package volume

import (
	"github.com/pkg/errors"
)

// Region is an axis-aligned box in voxel units: origin (X, Y, Z) and
// extents (DX, DY, DZ).
type Region struct {
	X, Y, Z    int
	DX, DY, DZ int
}

// Empty reports whether r covers no voxels.
func (r Region) Empty() bool {
	return r.DX <= 0 || r.DY <= 0 || r.DZ <= 0
}

// Contains reports whether (x, y, z) lies inside r.
func (r Region) Contains(x, y, z int) bool {
	return x >= r.X && x < r.X+r.DX &&
		y >= r.Y && y < r.Y+r.DY &&
		z >= r.Z && z < r.Z+r.DZ
}

// Bounds returns the whole grid as a region.
func (v *Volume) Bounds() Region {
	return Region{DX: v.width, DY: v.height, DZ: v.depth}
}

// ClipRegion intersects r with the grid. The result may be Empty.
func (v *Volume) ClipRegion(r Region) Region {
	x0, y0, z0 := max(r.X, 0), max(r.Y, 0), max(r.Z, 0)
	x1 := min(r.X+r.DX, v.width)
	y1 := min(r.Y+r.DY, v.height)
	z1 := min(r.Z+r.DZ, v.depth)
	return Region{
		X: x0, Y: y0, Z: z0,
		DX: max(x1-x0, 0), DY: max(y1-y0, 0), DZ: max(z1-z0, 0),
	}
}

// Extract copies the box at (x0, y0, z0) of size (dx, dy, dz) into a new
// volume of exactly that size, or into dst when it is given. The box is
// clipped to the source grid first.
func Extract(src, dst *Volume, x0, y0, z0, dx, dy, dz int) (*Volume, error) {
	r := src.ClipRegion(Region{X: x0, Y: y0, Z: z0, DX: dx, DY: dy, DZ: dz})
	if r.Empty() {
		return nil, errors.Wrapf(ErrInvalidDimension, "region %+v outside %s", Region{x0, y0, z0, dx, dy, dz}, src.describe())
	}
	if dst == nil {
		var err error
		dst, err = CloneAs(src, r.DX, r.DY, r.DZ, src.typ)
		if err != nil {
			return nil, err
		}
		dst.XStart = src.XStart + float64(r.X)*src.XSize
		dst.YStart = src.YStart + float64(r.Y)*src.YSize
		dst.ZStart = src.ZStart + float64(r.Z)*src.ZSize
		dst.XEnd = dst.XStart + float64(r.DX)*src.XSize
		dst.YEnd = dst.YStart + float64(r.DY)*src.YSize
		dst.ZEnd = dst.ZStart + float64(r.DZ)*src.ZSize
	}
	return ExtractInto(src, dst, r.X, r.Y, r.Z, r.DX, r.DY, r.DZ, 0, 0, 0)
}

// ExtractRegion is Extract driven by a Region.
func ExtractRegion(src, dst *Volume, r Region) (*Volume, error) {
	return Extract(src, dst, r.X, r.Y, r.Z, r.DX, r.DY, r.DZ)
}

// ExtractInto copies the box at (x0, y0, z0) of size (dx, dy, dz) from src
// to position (x1, y1, z1) of dst, for every frame. Both boxes are clipped
// so the copy never leaves either grid.
func ExtractInto(src, dst *Volume, x0, y0, z0, dx, dy, dz, x1, y1, z1 int) (*Volume, error) {
	if src.store == nil {
		return nil, errors.Wrap(ErrNoStorage, "extract source")
	}
	if dst == nil {
		return nil, errors.Wrap(ErrShapeMismatch, "nil destination")
	}
	if src.frames != dst.frames {
		return nil, errors.Wrapf(ErrShapeMismatch, "frames %d vs %d", src.frames, dst.frames)
	}
	if err := dst.AllocateStorage(); err != nil {
		return nil, err
	}

	// clip against the source, shifting the destination origin with it
	if x0 < 0 {
		x1, dx, x0 = x1-x0, dx+x0, 0
	}
	if y0 < 0 {
		y1, dy, y0 = y1-y0, dy+y0, 0
	}
	if z0 < 0 {
		z1, dz, z0 = z1-z0, dz+z0, 0
	}
	if x1 < 0 {
		x0, dx, x1 = x0-x1, dx+x1, 0
	}
	if y1 < 0 {
		y0, dy, y1 = y0-y1, dy+y1, 0
	}
	if z1 < 0 {
		z0, dz, z1 = z0-z1, dz+z1, 0
	}
	dx = min(dx, src.width-x0, dst.width-x1)
	dy = min(dy, src.height-y0, dst.height-y1)
	dz = min(dz, src.depth-z0, dst.depth-z1)
	if dx <= 0 || dy <= 0 || dz <= 0 {
		return dst, nil
	}

	for f := 0; f < src.frames; f++ {
		for z := 0; z < dz; z++ {
			for y := 0; y < dy; y++ {
				dst.store.copyRow(src.store, y0+y, z0+z+f*src.depth, y1+y, z1+z+f*dst.depth, x0, x1, dx)
			}
		}
	}
	return dst, nil
}

// BoundingBox returns the smallest region of frame 0 containing every voxel
// whose value is at least thresh. The region is Empty when none qualify.
func (v *Volume) BoundingBox(thresh float64) (Region, error) {
	if v.store == nil {
		return Region{}, ErrNoStorage
	}
	x0, y0, z0 := v.width, v.height, v.depth
	x1, y1, z1 := -1, -1, -1
	for z := 0; z < v.depth; z++ {
		for y := 0; y < v.height; y++ {
			for x := 0; x < v.width; x++ {
				if v.store.at(x, y, z) < thresh {
					continue
				}
				x0, y0, z0 = min(x0, x), min(y0, y), min(z0, z)
				x1, y1, z1 = max(x1, x), max(y1, y), max(z1, z)
			}
		}
	}
	if x1 < 0 {
		return Region{}, nil
	}
	return Region{X: x0, Y: y0, Z: z0, DX: x1 - x0 + 1, DY: y1 - y0 + 1, DZ: z1 - z0 + 1}, nil
}
