package volume

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"mrixform/pkg/transform"
)

// fillPattern writes a value that identifies every voxel uniquely.
func fillPattern(v *Volume) {
	for f := 0; f < v.Frames(); f++ {
		for z := 0; z < v.Depth(); z++ {
			for y := 0; y < v.Height(); y++ {
				for x := 0; x < v.Width(); x++ {
					v.WriteFrame(x, y, z, f, float64(x+10*y+100*z+1000*f))
				}
			}
		}
	}
}

func TestAllocate(t *testing.T) {
	for _, typ := range []ScalarType{UChar, Short, Int, Long, Float} {
		t.Run(typ.String(), func(t *testing.T) {
			v, err := Allocate(4, 3, 2, typ)
			require.NoError(t, err)
			assert.Equal(t, 4, v.Width())
			assert.Equal(t, 3, v.Height())
			assert.Equal(t, 2, v.Depth())
			assert.Equal(t, 1, v.Frames())
			assert.Equal(t, typ, v.Type())
			assert.Equal(t, 4*3*2*typ.Size(), v.Bytes())

			lo, hi, err := v.ValueRange()
			require.NoError(t, err)
			assert.Zero(t, lo)
			assert.Zero(t, hi)
		})
	}
}

func TestAllocateInvalidDimension(t *testing.T) {
	cases := [][4]int{{0, 1, 1, 1}, {1, -1, 1, 1}, {1, 1, 0, 1}, {1, 1, 1, 0}}
	for _, c := range cases {
		_, err := AllocateSequence(c[0], c[1], c[2], UChar, c[3])
		assert.True(t, errors.Is(err, ErrInvalidDimension), "shape %v", c)
	}
	_, err := Allocate(2, 2, 2, ScalarType(42))
	assert.True(t, errors.Is(err, ErrInvalidDimension))
}

func TestSequenceFramesAreIndependent(t *testing.T) {
	v, err := AllocateSequence(3, 3, 2, Short, 3)
	require.NoError(t, err)
	fillPattern(v)

	assert.Equal(t, 2121.0, v.ReadFrame(1, 2, 1, 2))
	assert.Equal(t, 121.0, v.ReadFrame(1, 2, 1, 0))

	slices, err := Slices[int16](v)
	require.NoError(t, err)
	require.Len(t, slices, 6)
	assert.Equal(t, int16(2121), slices[1+2*v.Depth()][2][1])
}

func TestSlicesTypeMismatch(t *testing.T) {
	v, err := Allocate(2, 2, 2, Float)
	require.NoError(t, err)
	_, err = Slices[uint8](v)
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	f, err := Slices[float32](v)
	require.NoError(t, err)
	f[1][1][1] = 2.5
	assert.Equal(t, 2.5, v.Read(1, 1, 1))
}

func TestHeaderOnly(t *testing.T) {
	v, err := AllocateHeader(5, 5, 5, UChar)
	require.NoError(t, err)
	assert.False(t, v.HasStorage())

	assert.Zero(t, v.Read(1, 1, 1))
	_, err = v.ReadStrict(1, 1, 1, 0)
	assert.True(t, errors.Is(err, ErrNoStorage))

	require.NoError(t, v.AllocateStorage())
	v.Write(1, 1, 1, 9)
	assert.Equal(t, 9.0, v.Read(1, 1, 1))
}

func TestReadThroughBoundaryTables(t *testing.T) {
	v, err := Allocate(4, 4, 4, Int)
	require.NoError(t, err)
	fillPattern(v)

	// clamp to edge
	assert.Equal(t, v.Read(0, 2, 3), v.Read(-3, 2, 3))
	assert.Equal(t, v.Read(3, 0, 3), v.Read(7, -1, 3))
	// beyond the padding reads background
	assert.Zero(t, v.Read(-1000, 0, 0))

	v.SetBoundaryPolicy(Wrap)
	assert.Equal(t, v.Read(3, 2, 1), v.Read(-1, 2, 1))
	assert.Equal(t, v.Read(0, 1, 1), v.Read(4, 1, 1))
}

func TestStrictAccess(t *testing.T) {
	v, err := Allocate(3, 3, 3, Float)
	require.NoError(t, err)

	require.NoError(t, v.WriteStrict(2, 2, 2, 0, 1.5))
	got, err := v.ReadStrict(2, 2, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.5, got)

	for _, c := range [][4]int{{3, 0, 0, 0}, {0, -1, 0, 0}, {0, 0, 3, 0}, {0, 0, 0, 1}} {
		_, err := v.ReadStrict(c[0], c[1], c[2], c[3])
		assert.True(t, errors.Is(err, ErrOutOfBounds), "read %v", c)
		err = v.WriteStrict(c[0], c[1], c[2], c[3], 1)
		assert.True(t, errors.Is(err, ErrOutOfBounds), "write %v", c)
	}
}

func TestWriteSaturates(t *testing.T) {
	tests := []struct {
		typ  ScalarType
		in   float64
		want float64
	}{
		{UChar, 300, 255},
		{UChar, -5, 0},
		{UChar, 4.6, 5},
		{Short, 40000, math.MaxInt16},
		{Short, -40000, math.MinInt16},
		{Int, 1e12, math.MaxInt32},
		{Long, 1e30, math.MaxInt64},
		{Float, 0.25, 0.25},
		{Float, 1e300, math.MaxFloat32},
		{Float, -1e300, -math.MaxFloat32},
		{Float, math.Inf(1), math.MaxFloat32},
	}
	for _, tt := range tests {
		v, err := Allocate(1, 1, 1, tt.typ)
		require.NoError(t, err)
		v.Write(0, 0, 0, tt.in)
		assert.Equal(t, tt.want, v.Read(0, 0, 0), "%s <- %g", tt.typ, tt.in)
	}

	assert.True(t, math.IsNaN(Float.Saturate(math.NaN())))
	assert.Zero(t, Int.Saturate(math.NaN()))
}

func TestCloneAndCopy(t *testing.T) {
	src, err := AllocateSequence(4, 5, 6, Short, 2)
	require.NoError(t, err)
	src.XSize, src.YSize, src.ZSize = 0.5, 0.75, 2
	src.Orientation = Sagittal
	src.Name = "subject01"
	require.NoError(t, src.SetTransform(transform.FromTranslation(1, 2, 3)))
	fillPattern(src)

	c, err := Clone(src)
	require.NoError(t, err)
	assert.True(t, SameShape(src, c))
	assert.Equal(t, src.Type(), c.Type())
	assert.Equal(t, 0.75, c.YSize)
	assert.Equal(t, Sagittal, c.Orientation)
	assert.True(t, c.HasTransform())
	lo, hi, err := c.ValueRange()
	require.NoError(t, err)
	assert.Zero(t, lo)
	assert.Zero(t, hi)

	cp, err := Copy(src, nil)
	require.NoError(t, err)
	a, err := src.Values(1)
	require.NoError(t, err)
	b, err := cp.Values(1)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// the clone owns its own transform
	src.ClearTransform()
	assert.True(t, cp.HasTransform())
}

func TestCopyAcrossTypes(t *testing.T) {
	src, err := Allocate(2, 2, 2, Float)
	require.NoError(t, err)
	src.Fill(300.4)

	dst, err := Allocate(2, 2, 2, UChar)
	require.NoError(t, err)
	_, err = Copy(src, dst)
	require.NoError(t, err)
	assert.Equal(t, 255.0, dst.Read(1, 1, 1))

	small, err := Allocate(1, 2, 2, UChar)
	require.NoError(t, err)
	_, err = Copy(src, small)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestCopyHeader(t *testing.T) {
	src, err := Allocate(8, 8, 8, Float)
	require.NoError(t, err)
	src.XSize = 2

	hdr, err := AllocateHeader(1, 1, 1, UChar)
	require.NoError(t, err)
	require.NoError(t, CopyHeader(src, hdr))
	assert.Equal(t, 8, hdr.Width())
	assert.Equal(t, Float, hdr.Type())
	assert.Equal(t, 2.0, hdr.XSize)
	assert.False(t, hdr.HasStorage())
	xi, _, _ := hdr.BoundaryTables()
	assert.Equal(t, 8+2*8, xi.Len())

	withData, err := Allocate(4, 4, 4, Float)
	require.NoError(t, err)
	err = CopyHeader(src, withData)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestRelease(t *testing.T) {
	v, err := Allocate(2, 2, 2, UChar)
	require.NoError(t, err)
	require.NoError(t, v.SetTransform(transform.Identity()))
	v.Release()
	assert.True(t, v.Released())
	assert.False(t, v.HasStorage())
	assert.False(t, v.HasTransform())
	v.Release()

	var nilVol *Volume
	nilVol.Release()

	_, err = Clone(v)
	assert.True(t, errors.Is(err, ErrInvalidDimension))
}

func TestVoxelWorldRoundTrip(t *testing.T) {
	v, err := Allocate(10, 10, 10, UChar)
	require.NoError(t, err)
	v.XSize, v.YSize, v.ZSize = 1.5, 0.5, 3
	v.XStart, v.YStart, v.ZStart = -7.5, -2.5, 10

	p := r3.Vec{X: 3, Y: 4.25, Z: 9}
	w := v.VoxelToWorld(p)
	assert.Equal(t, r3.Vec{X: -3, Y: -0.375, Z: 37}, w)
	if diff := cmp.Diff(p, v.WorldToVoxel(w), cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(w, v.VoxelToWorldMatrix().Apply(p), cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("matrix form mismatch (-want +got):\n%s", diff)
	}
}

func TestSetTransformRejectsSingular(t *testing.T) {
	v, err := AllocateHeader(2, 2, 2, UChar)
	require.NoError(t, err)
	require.NoError(t, v.SetTransform(transform.FromScale(2, 2, 2)))

	err = v.SetTransform(transform.FromScale(0, 1, 1))
	assert.True(t, errors.Is(err, transform.ErrSingularMatrix))
	// previous transform kept
	assert.Equal(t, transform.FromScale(2, 2, 2), v.Transform().Forward())
}

func TestCheckSize(t *testing.T) {
	v, err := Allocate(3, 4, 5, UChar)
	require.NoError(t, err)
	assert.NoError(t, v.CheckSize(3, 4, 5))
	assert.True(t, errors.Is(v.CheckSize(4, 4, 5), ErrShapeMismatch))
}

func TestScalarTypeParse(t *testing.T) {
	for _, typ := range []ScalarType{UChar, Short, Int, Long, Float} {
		got, err := ParseScalarType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}
	_, err := ParseScalarType("complex")
	assert.Error(t, err)
}
