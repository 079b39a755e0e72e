// Package volume holds the dense voxel grid shared by every stage of the
// transform pipeline.
//
// A Volume owns a typed 3-D (optionally multi-frame) array addressed as
// slices[z][y][x], the geometry that places it in physical space, an optional
// world-to-Talairach transform, and one boundary table per axis. Frame f of a
// multi-frame volume lives at slice z + f*depth.
package volume

import (
	"github.com/pkg/errors"

	"mrixform/pkg/transform"
)

var (
	// ErrInvalidDimension is returned for a non-positive shape or unknown type.
	ErrInvalidDimension = errors.New("volume: invalid dimension")

	// ErrShapeMismatch is returned when two volumes are incompatible for an operation.
	ErrShapeMismatch = errors.New("volume: shape mismatch")

	// ErrNoTransform is returned when a Talairach mapping is requested on a
	// volume without an embedded transform.
	ErrNoTransform = errors.New("volume: no transform")

	// ErrOutOfBounds is returned by strict accessors outside the grid.
	ErrOutOfBounds = errors.New("volume: out of bounds")

	// ErrNoStorage is returned when voxel data is needed from a header-only volume.
	ErrNoStorage = errors.New("volume: no voxel storage")
)

// Orientation is the direction in which the slices were acquired.
type Orientation int

const (
	Coronal Orientation = iota
	Sagittal
	Horizontal

	Axial = Horizontal
)

func (o Orientation) String() string {
	switch o {
	case Coronal:
		return "coronal"
	case Sagittal:
		return "sagittal"
	case Horizontal:
		return "horizontal"
	}
	return "unknown"
}

// Acquisition holds scanner parameters carried along with the header.
type Acquisition struct {
	FOV   float64 // field of view in mm
	Thick float64 // slice thickness in mm
	TR    float64 // repetition time
	TE    float64 // echo time
	TI    float64 // inversion time
}

// Volume is a voxel grid. The shape is fixed at allocation; geometry fields
// may be edited freely.
type Volume struct {
	// Physical size of a voxel along each axis, in mm.
	XSize, YSize, ZSize float64

	// Physical extent of the grid along each axis.
	XStart, XEnd float64
	YStart, YEnd float64
	ZStart, ZEnd float64

	Orientation Orientation
	Acquisition Acquisition

	// Name is a free-form label, typically the source file prefix.
	Name string

	width, height, depth, frames int
	typ                          ScalarType

	store voxelStore

	talairach *transform.Linear

	policy     BoundaryPolicy
	xi, yi, zi BoundaryTable
}

func checkShape(width, height, depth, frames int, t ScalarType) error {
	if width < 1 || height < 1 || depth < 1 || frames < 1 {
		return errors.Wrapf(ErrInvalidDimension, "%dx%dx%d with %d frames", width, height, depth, frames)
	}
	if !t.Valid() {
		return errors.Wrapf(ErrInvalidDimension, "scalar type %s", t)
	}
	return nil
}

// Allocate returns a zeroed single-frame volume.
func Allocate(width, height, depth int, t ScalarType) (*Volume, error) {
	return AllocateSequence(width, height, depth, t, 1)
}

// AllocateSequence returns a zeroed volume with the given number of frames.
func AllocateSequence(width, height, depth int, t ScalarType, frames int) (*Volume, error) {
	v, err := allocateHeader(width, height, depth, t, frames)
	if err != nil {
		return nil, err
	}
	v.store = newVoxelStore(t, width, height, depth*frames)
	return v, nil
}

// AllocateHeader returns a single-frame volume with geometry and boundary
// tables but no voxel storage. Call AllocateStorage once the data is needed.
func AllocateHeader(width, height, depth int, t ScalarType) (*Volume, error) {
	return allocateHeader(width, height, depth, t, 1)
}

func allocateHeader(width, height, depth int, t ScalarType, frames int) (*Volume, error) {
	if err := checkShape(width, height, depth, frames, t); err != nil {
		return nil, err
	}
	v := &Volume{
		width:  width,
		height: height,
		depth:  depth,
		frames: frames,
		typ:    t,
		XSize:  1,
		YSize:  1,
		ZSize:  1,
	}
	v.initExtents()
	v.rebuildTables()
	return v, nil
}

// initExtents centres the grid on the origin, one voxel per mm.
func (v *Volume) initExtents() {
	v.XStart, v.XEnd = -float64(v.width)/2*v.XSize, float64(v.width)/2*v.XSize
	v.YStart, v.YEnd = -float64(v.height)/2*v.YSize, float64(v.height)/2*v.YSize
	v.ZStart, v.ZEnd = -float64(v.depth)/2*v.ZSize, float64(v.depth)/2*v.ZSize
	v.Acquisition.FOV = max(v.XEnd-v.XStart, v.YEnd-v.YStart)
	v.Acquisition.Thick = v.ZSize
}

func (v *Volume) rebuildTables() {
	v.xi = NewBoundaryTable(v.width, v.policy)
	v.yi = NewBoundaryTable(v.height, v.policy)
	v.zi = NewBoundaryTable(v.depth, v.policy)
}

// AllocateStorage attaches zeroed storage to a header-only volume. It is a
// no-op when storage already exists.
func (v *Volume) AllocateStorage() error {
	if v == nil || v.width < 1 {
		return errors.Wrap(ErrInvalidDimension, "released volume")
	}
	if v.store == nil {
		v.store = newVoxelStore(v.typ, v.width, v.height, v.depth*v.frames)
	}
	return nil
}

// Clone returns a volume with the geometry, type, frames and transform of src
// and fresh zeroed storage.
func Clone(src *Volume) (*Volume, error) {
	if src == nil || src.width < 1 {
		return nil, errors.Wrap(ErrInvalidDimension, "clone of released volume")
	}
	dst, err := AllocateSequence(src.width, src.height, src.depth, src.typ, src.frames)
	if err != nil {
		return nil, err
	}
	if err := CopyHeader(src, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

// CloneAs is Clone with a different shape and scalar type; geometry and
// transform are still copied from src.
func CloneAs(src *Volume, width, height, depth int, t ScalarType) (*Volume, error) {
	if src == nil || src.width < 1 {
		return nil, errors.Wrap(ErrInvalidDimension, "clone of released volume")
	}
	dst, err := AllocateSequence(width, height, depth, t, src.frames)
	if err != nil {
		return nil, err
	}
	dst.copyGeometry(src)
	return dst, nil
}

// CopyHeader copies geometry, orientation, acquisition parameters, boundary
// policy and transform from src to dst. Shape and scalar type are copied too
// when dst has no storage yet; when it does, they must already match.
// dst's voxel storage is never touched.
func CopyHeader(src, dst *Volume) error {
	if src == nil || dst == nil {
		return errors.Wrap(ErrShapeMismatch, "nil volume")
	}
	if dst.store != nil {
		if !SameShape(src, dst) || src.typ != dst.typ {
			return errors.Wrapf(ErrShapeMismatch, "header %s onto %s", src.describe(), dst.describe())
		}
	} else {
		dst.width, dst.height, dst.depth, dst.frames = src.width, src.height, src.depth, src.frames
		dst.typ = src.typ
	}
	dst.copyGeometry(src)
	return nil
}

func (v *Volume) copyGeometry(src *Volume) {
	v.XSize, v.YSize, v.ZSize = src.XSize, src.YSize, src.ZSize
	v.XStart, v.XEnd = src.XStart, src.XEnd
	v.YStart, v.YEnd = src.YStart, src.YEnd
	v.ZStart, v.ZEnd = src.ZStart, src.ZEnd
	v.Orientation = src.Orientation
	v.Acquisition = src.Acquisition
	v.Name = src.Name
	v.policy = src.policy
	if src.talairach != nil {
		t := *src.talairach
		v.talairach = &t
	} else {
		v.talairach = nil
	}
	v.rebuildTables()
}

// Copy copies header and voxel data from src into dst, allocating dst when
// it is nil. Scalar types may differ; values are converted with saturation.
func Copy(src, dst *Volume) (*Volume, error) {
	if src == nil || src.store == nil {
		return nil, errors.Wrap(ErrNoStorage, "copy source")
	}
	if dst == nil {
		var err error
		if dst, err = Clone(src); err != nil {
			return nil, err
		}
	} else {
		if !SameShape(src, dst) {
			return nil, errors.Wrapf(ErrShapeMismatch, "copy %s into %s", src.describe(), dst.describe())
		}
		if err := dst.AllocateStorage(); err != nil {
			return nil, err
		}
		dst.copyGeometry(src)
	}
	for z := 0; z < src.depth*src.frames; z++ {
		for y := 0; y < src.height; y++ {
			dst.store.copyRow(src.store, y, z, y, z, 0, 0, src.width)
		}
	}
	return dst, nil
}

// Release drops storage, boundary tables and the transform. It is safe to
// call on a nil or already released volume.
func (v *Volume) Release() {
	if v == nil {
		return
	}
	v.store = nil
	v.talairach = nil
	v.xi, v.yi, v.zi = BoundaryTable{}, BoundaryTable{}, BoundaryTable{}
	v.width, v.height, v.depth, v.frames = 0, 0, 0, 0
}

// Released reports whether Release has been called.
func (v *Volume) Released() bool {
	return v == nil || v.width == 0
}

// Width returns the number of voxels along x.
func (v *Volume) Width() int { return v.width }

// Height returns the number of voxels along y.
func (v *Volume) Height() int { return v.height }

// Depth returns the number of slices per frame.
func (v *Volume) Depth() int { return v.depth }

// Frames returns the number of concatenated frames.
func (v *Volume) Frames() int { return v.frames }

// Type returns the scalar type tag.
func (v *Volume) Type() ScalarType { return v.typ }

// HasStorage reports whether voxel data is attached.
func (v *Volume) HasStorage() bool { return v != nil && v.store != nil }

// Bytes returns the size of the voxel data in bytes.
func (v *Volume) Bytes() int {
	return v.width * v.height * v.depth * v.frames * v.typ.Size()
}

// BoundaryPolicy returns the policy the boundary tables were built with.
func (v *Volume) BoundaryPolicy() BoundaryPolicy { return v.policy }

// SetBoundaryPolicy rebuilds the boundary tables for p.
func (v *Volume) SetBoundaryPolicy(p BoundaryPolicy) {
	v.policy = p
	v.rebuildTables()
}

// BoundaryTables returns the x, y and z lookup tables.
func (v *Volume) BoundaryTables() (BoundaryTable, BoundaryTable, BoundaryTable) {
	return v.xi, v.yi, v.zi
}

// SameShape reports whether a and b have identical dimensions and frames.
func SameShape(a, b *Volume) bool {
	return a.width == b.width && a.height == b.height && a.depth == b.depth && a.frames == b.frames
}

// CheckSize fails with ErrShapeMismatch unless v has the given dimensions.
func (v *Volume) CheckSize(width, height, depth int) error {
	if v.width != width || v.height != height || v.depth != depth {
		return errors.Wrapf(ErrShapeMismatch, "%s, want %dx%dx%d", v.describe(), width, height, depth)
	}
	return nil
}

func (v *Volume) describe() string {
	if v == nil {
		return "<nil>"
	}
	return fmtShape(v.width, v.height, v.depth, v.frames, v.typ)
}
