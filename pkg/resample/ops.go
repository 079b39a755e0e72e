package resample

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"

	"mrixform/pkg/coords"
	"mrixform/pkg/transform"
	"mrixform/pkg/volume"
)

// rotate resamples src rotated by angle radians about axis, around the grid
// centre. dst must have src's shape.
func (r *Resampler) rotate(src, dst *volume.Volume, axis transform.Axis, angle float64, mode Interpolation) (*volume.Volume, error) {
	if err := requireSameShape(src, dst); err != nil {
		return nil, err
	}
	rot, err := transform.FromRotation(axis, angle)
	if err != nil {
		return nil, err
	}
	if src == nil || src.Released() {
		return nil, errors.Wrap(volume.ErrInvalidDimension, "rotate released volume")
	}
	return r.Resample(src, dst, transform.AboutCenter(rot, src.Center()), mode)
}

// RotateX rotates src about the x axis through its centre, nearest-neighbour.
func (r *Resampler) RotateX(src, dst *volume.Volume, angle float64) (*volume.Volume, error) {
	return r.rotate(src, dst, transform.AxisX, angle, Nearest)
}

// RotateY rotates src about the y axis through its centre, nearest-neighbour.
func (r *Resampler) RotateY(src, dst *volume.Volume, angle float64) (*volume.Volume, error) {
	return r.rotate(src, dst, transform.AxisY, angle, Nearest)
}

// RotateZ rotates src about the z axis through its centre, nearest-neighbour.
func (r *Resampler) RotateZ(src, dst *volume.Volume, angle float64) (*volume.Volume, error) {
	return r.rotate(src, dst, transform.AxisZ, angle, Nearest)
}

// RotateXI is RotateX with trilinear interpolation.
func (r *Resampler) RotateXI(src, dst *volume.Volume, angle float64) (*volume.Volume, error) {
	return r.rotate(src, dst, transform.AxisX, angle, Trilinear)
}

// RotateYI is RotateY with trilinear interpolation.
func (r *Resampler) RotateYI(src, dst *volume.Volume, angle float64) (*volume.Volume, error) {
	return r.rotate(src, dst, transform.AxisY, angle, Trilinear)
}

// RotateZI is RotateZ with trilinear interpolation.
func (r *Resampler) RotateZI(src, dst *volume.Volume, angle float64) (*volume.Volume, error) {
	return r.rotate(src, dst, transform.AxisZ, angle, Trilinear)
}

// RotateAxis dispatches to the rotation about axis with the given kernel.
func (r *Resampler) RotateAxis(src, dst *volume.Volume, axis transform.Axis, angle float64, mode Interpolation) (*volume.Volume, error) {
	return r.rotate(src, dst, axis, angle, mode)
}

// Rotate applies the 3x3 rotation rot about origin (in voxel coordinates),
// nearest-neighbour.
func (r *Resampler) Rotate(src, dst *volume.Volume, rot [3][3]float64, origin r3.Vec) (*volume.Volume, error) {
	if err := requireSameShape(src, dst); err != nil {
		return nil, err
	}
	return r.Resample(src, dst, transform.AboutCenter(transform.FromLinear(rot), origin), Nearest)
}

// RotateI is Rotate with trilinear interpolation.
func (r *Resampler) RotateI(src, dst *volume.Volume, rot [3][3]float64, origin r3.Vec) (*volume.Volume, error) {
	if err := requireSameShape(src, dst); err != nil {
		return nil, err
	}
	return r.Resample(src, dst, transform.AboutCenter(transform.FromLinear(rot), origin), Trilinear)
}

// Scale stretches src by (sx, sy, sz) about voxel (0, 0, 0),
// nearest-neighbour. dst may have any shape; a nil dst gets src's shape.
func (r *Resampler) Scale(src, dst *volume.Volume, sx, sy, sz float64) (*volume.Volume, error) {
	return r.Resample(src, dst, transform.FromScale(sx, sy, sz), Nearest)
}

// ScaleI is Scale with trilinear interpolation.
func (r *Resampler) ScaleI(src, dst *volume.Volume, sx, sy, sz float64) (*volume.Volume, error) {
	return r.Resample(src, dst, transform.FromScale(sx, sy, sz), Trilinear)
}

// Translate shifts src by a whole number of voxels. No interpolation takes
// place: every destination voxel is a copy of src at (x-dx, y-dy, z-dz),
// resolved through the source boundary tables at the edges.
func (r *Resampler) Translate(src, dst *volume.Volume, dx, dy, dz int) (*volume.Volume, error) {
	if err := requireSameShape(src, dst); err != nil {
		return nil, err
	}
	dst, err := prepare(src, dst)
	if err != nil {
		return nil, err
	}
	if dst == src {
		return r.inPlace(src, func(tmp *volume.Volume) error {
			r.shift(src, tmp, dx, dy, dz)
			return nil
		})
	}
	r.shift(src, dst, dx, dy, dz)
	return dst, nil
}

func (r *Resampler) shift(src, dst *volume.Volume, dx, dy, dz int) {
	w, h, d := src.Width(), src.Height(), src.Depth()
	r.parallel(dst, "translating", func(f, z int) {
		sz := z - dz
		for y := 0; y < dst.Height(); y++ {
			sy := y - dy
			for x := 0; x < dst.Width(); x++ {
				sx := x - dx
				if sx < 0 || sx >= w || sy < 0 || sy >= h || sz < 0 || sz >= d {
					dst.SetUnchecked(x, y, z, f, 0)
					continue
				}
				dst.CopyVoxel(src, sx, sy, sz, f, x, y, z, f)
			}
		}
	})
}

// TranslateI shifts src by a fractional number of voxels with trilinear
// interpolation.
func (r *Resampler) TranslateI(src, dst *volume.Volume, dx, dy, dz float64) (*volume.Volume, error) {
	if err := requireSameShape(src, dst); err != nil {
		return nil, err
	}
	return r.Resample(src, dst, transform.FromTranslation(dx, dy, dz), Trilinear)
}

// Affine resamples src through the voxel-to-voxel matrix m,
// nearest-neighbour. A nil m fails with volume.ErrNoTransform.
func (r *Resampler) Affine(src, dst *volume.Volume, m *transform.Matrix) (*volume.Volume, error) {
	if m == nil {
		return nil, errors.Wrap(volume.ErrNoTransform, "affine")
	}
	return r.Resample(src, dst, *m, Nearest)
}

// AffineI is Affine with trilinear interpolation.
func (r *Resampler) AffineI(src, dst *volume.Volume, m *transform.Matrix) (*volume.Volume, error) {
	if m == nil {
		return nil, errors.Wrap(volume.ErrNoTransform, "affine")
	}
	return r.Resample(src, dst, *m, Trilinear)
}

// Talairach resamples src into Talairach voxel space using its embedded
// transform. It fails with volume.ErrNoTransform when src has none.
func (r *Resampler) Talairach(src, dst *volume.Volume, mode Interpolation) (*volume.Volume, error) {
	m, err := coords.VoxelToTalairachVoxelMatrix(src)
	if err != nil {
		return nil, err
	}
	return r.Resample(src, dst, m, mode)
}
