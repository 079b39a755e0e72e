package volume

import (
	"gonum.org/v1/gonum/spatial/r3"

	"mrixform/pkg/transform"
)

// VoxelToWorld maps a continuous voxel coordinate to physical space:
// world = start + index*size on each axis.
func (v *Volume) VoxelToWorld(p r3.Vec) r3.Vec {
	return r3.Vec{
		X: v.XStart + p.X*v.XSize,
		Y: v.YStart + p.Y*v.YSize,
		Z: v.ZStart + p.Z*v.ZSize,
	}
}

// WorldToVoxel is the inverse of VoxelToWorld. The result stays continuous;
// callers that need an index round it themselves.
func (v *Volume) WorldToVoxel(p r3.Vec) r3.Vec {
	return r3.Vec{
		X: (p.X - v.XStart) / v.XSize,
		Y: (p.Y - v.YStart) / v.YSize,
		Z: (p.Z - v.ZStart) / v.ZSize,
	}
}

// VoxelToWorldMatrix returns VoxelToWorld as a homogeneous matrix.
func (v *Volume) VoxelToWorldMatrix() transform.Matrix {
	return transform.Compose(
		transform.FromTranslation(v.XStart, v.YStart, v.ZStart),
		transform.FromScale(v.XSize, v.YSize, v.ZSize),
	)
}

// Center returns the voxel coordinate of the middle of the grid.
func (v *Volume) Center() r3.Vec {
	return r3.Vec{
		X: float64(v.width-1) / 2,
		Y: float64(v.height-1) / 2,
		Z: float64(v.depth-1) / 2,
	}
}

// SetTransform embeds the world-to-Talairach matrix m. The inverse is
// computed once here; a singular m is rejected and the previous transform
// is kept.
func (v *Volume) SetTransform(m transform.Matrix) error {
	l, err := transform.NewLinear(m)
	if err != nil {
		return err
	}
	v.talairach = &l
	return nil
}

// Transform returns the embedded world-to-Talairach transform, or nil.
func (v *Volume) Transform() *transform.Linear {
	if v.talairach == nil {
		return nil
	}
	t := *v.talairach
	return &t
}

// HasTransform reports whether a Talairach transform is embedded.
func (v *Volume) HasTransform() bool { return v.talairach != nil }

// ClearTransform removes the embedded transform.
func (v *Volume) ClearTransform() { v.talairach = nil }
