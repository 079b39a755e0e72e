// Package coords maps points between voxel indices, physical (world)
// coordinates and Talairach atlas space.
//
// Talairach mappings always go through the transform embedded in the
// volume. A volume without one is an error (volume.ErrNoTransform); there is
// no identity fallback.
package coords

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"

	"mrixform/pkg/transform"
	"mrixform/pkg/volume"
)

func talairach(v *volume.Volume) (*transform.Linear, error) {
	if v == nil || v.Released() {
		return nil, errors.Wrap(volume.ErrNoTransform, "released volume")
	}
	t := v.Transform()
	if t == nil {
		return nil, errors.Wrapf(volume.ErrNoTransform, "volume %s", v)
	}
	return t, nil
}

// VoxelToWorld maps a voxel coordinate of v to physical space.
func VoxelToWorld(v *volume.Volume, p r3.Vec) r3.Vec {
	return v.VoxelToWorld(p)
}

// WorldToVoxel maps a physical point to a continuous voxel coordinate of v.
func WorldToVoxel(v *volume.Volume, p r3.Vec) r3.Vec {
	return v.WorldToVoxel(p)
}

// VoxelToTalairach maps a voxel coordinate of v to Talairach physical
// coordinates.
func VoxelToTalairach(v *volume.Volume, p r3.Vec) (r3.Vec, error) {
	t, err := talairach(v)
	if err != nil {
		return r3.Vec{}, err
	}
	return t.Apply(v.VoxelToWorld(p)), nil
}

// TalairachToVoxel is the inverse of VoxelToTalairach.
func TalairachToVoxel(v *volume.Volume, p r3.Vec) (r3.Vec, error) {
	t, err := talairach(v)
	if err != nil {
		return r3.Vec{}, err
	}
	return v.WorldToVoxel(t.ApplyInverse(p)), nil
}

// VoxelToTalairachVoxel maps a voxel of v to the voxel of the Talairach
// frame laid out with v's own geometry.
func VoxelToTalairachVoxel(v *volume.Volume, p r3.Vec) (r3.Vec, error) {
	t, err := talairach(v)
	if err != nil {
		return r3.Vec{}, err
	}
	return v.WorldToVoxel(t.Apply(v.VoxelToWorld(p))), nil
}

// TalairachVoxelToVoxel is the exact inverse of VoxelToTalairachVoxel,
// computed with the cached inverse transform.
func TalairachVoxelToVoxel(v *volume.Volume, p r3.Vec) (r3.Vec, error) {
	t, err := talairach(v)
	if err != nil {
		return r3.Vec{}, err
	}
	return v.WorldToVoxel(t.ApplyInverse(v.VoxelToWorld(p))), nil
}

// VoxelToTalairachVoxelMatrix returns VoxelToTalairachVoxel as one matrix,
// suitable for driving the resampler.
func VoxelToTalairachVoxelMatrix(v *volume.Volume) (transform.Matrix, error) {
	t, err := talairach(v)
	if err != nil {
		return transform.Matrix{}, err
	}
	v2w := v.VoxelToWorldMatrix()
	w2v, err := transform.Invert(v2w)
	if err != nil {
		return transform.Matrix{}, err
	}
	return transform.Compose(w2v, t.Forward(), v2w), nil
}

// TransformRegion maps the box r of src into dst: each of its 8 corner
// voxels goes from src voxel space to Talairach space and back into dst
// voxel space. The result is the enclosing axis-aligned box, clamped to
// dst's grid. An empty r maps to the empty region.
func TransformRegion(src, dst *volume.Volume, r volume.Region) (volume.Region, error) {
	ts, err := talairach(src)
	if err != nil {
		return volume.Region{}, err
	}
	td, err := talairach(dst)
	if err != nil {
		return volume.Region{}, err
	}

	if r.Empty() {
		return volume.Region{}, nil
	}

	lo := r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi := r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	xs := [2]int{r.X, r.X + r.DX - 1}
	ys := [2]int{r.Y, r.Y + r.DY - 1}
	zs := [2]int{r.Z, r.Z + r.DZ - 1}
	for _, x := range xs {
		for _, y := range ys {
			for _, z := range zs {
				p := r3.Vec{X: float64(x), Y: float64(y), Z: float64(z)}
				q := dst.WorldToVoxel(td.ApplyInverse(ts.Apply(src.VoxelToWorld(p))))
				lo = r3.Vec{X: math.Min(lo.X, q.X), Y: math.Min(lo.Y, q.Y), Z: math.Min(lo.Z, q.Z)}
				hi = r3.Vec{X: math.Max(hi.X, q.X), Y: math.Max(hi.Y, q.Y), Z: math.Max(hi.Z, q.Z)}
			}
		}
	}

	x0, y0, z0 := int(math.Floor(lo.X+eps)), int(math.Floor(lo.Y+eps)), int(math.Floor(lo.Z+eps))
	x1, y1, z1 := int(math.Ceil(hi.X-eps)), int(math.Ceil(hi.Y-eps)), int(math.Ceil(hi.Z-eps))
	out := volume.Region{X: x0, Y: y0, Z: z0, DX: x1 - x0 + 1, DY: y1 - y0 + 1, DZ: z1 - z0 + 1}
	return dst.ClipRegion(out), nil
}

// eps absorbs round-off so that a corner landing a hair off an integer
// does not grow the box by a whole voxel.
const eps = 1e-9
