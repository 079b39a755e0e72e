package volume

import "math"

// voxelStore is the type-erased view of a store[T]. Volume dispatches through
// it so that callers only deal with the ScalarType tag.
type voxelStore interface {
	at(x, y, z int) float64
	set(x, y, z int, v float64)
	copyVoxel(src voxelStore, sx, sy, sz, dx, dy, dz int)
	copyRow(src voxelStore, sy, sz, dy, dz, sx0, dx0, n int)
	clear()
	clone() voxelStore
}

// store keeps voxels as slices[z][y][x]. Every slice is one contiguous buffer
// carved into rows, so a row is always contiguous in memory.
type store[T Scalar] struct {
	slices [][][]T
	conv   func(float64) T
}

func newStore[T Scalar](width, height, nslices int, conv func(float64) T) *store[T] {
	s := &store[T]{slices: make([][][]T, nslices), conv: conv}
	for z := range s.slices {
		buf := make([]T, width*height)
		rows := make([][]T, height)
		for y := range rows {
			rows[y] = buf[y*width : (y+1)*width : (y+1)*width]
		}
		s.slices[z] = rows
	}
	return s
}

func (s *store[T]) at(x, y, z int) float64 {
	return float64(s.slices[z][y][x])
}

func (s *store[T]) set(x, y, z int, v float64) {
	s.slices[z][y][x] = s.conv(v)
}

// copyVoxel copies without a float64 round trip when both stores share T.
func (s *store[T]) copyVoxel(src voxelStore, sx, sy, sz, dx, dy, dz int) {
	if o, ok := src.(*store[T]); ok {
		s.slices[dz][dy][dx] = o.slices[sz][sy][sx]
		return
	}
	s.slices[dz][dy][dx] = s.conv(src.at(sx, sy, sz))
}

func (s *store[T]) copyRow(src voxelStore, sy, sz, dy, dz, sx0, dx0, n int) {
	if o, ok := src.(*store[T]); ok {
		copy(s.slices[dz][dy][dx0:dx0+n], o.slices[sz][sy][sx0:sx0+n])
		return
	}
	row := s.slices[dz][dy]
	for i := 0; i < n; i++ {
		row[dx0+i] = s.conv(src.at(sx0+i, sy, sz))
	}
}

func (s *store[T]) clear() {
	for _, rows := range s.slices {
		for _, row := range rows {
			clear(row)
		}
	}
}

func (s *store[T]) clone() voxelStore {
	height := 0
	width := 0
	if len(s.slices) > 0 {
		height = len(s.slices[0])
		if height > 0 {
			width = len(s.slices[0][0])
		}
	}
	return newStore[T](width, height, len(s.slices), s.conv)
}

func newVoxelStore(t ScalarType, width, height, nslices int) voxelStore {
	switch t {
	case UChar:
		return newStore(width, height, nslices, func(v float64) uint8 { return uint8(UChar.Saturate(v)) })
	case Short:
		return newStore(width, height, nslices, func(v float64) int16 { return int16(Short.Saturate(v)) })
	case Int:
		return newStore(width, height, nslices, func(v float64) int32 { return int32(Int.Saturate(v)) })
	case Long:
		return newStore(width, height, nslices, func(v float64) int64 {
			v = Long.Saturate(v)
			// 2^63 is representable as float64 but not as int64
			if v >= math.MaxInt64 {
				return math.MaxInt64
			}
			return int64(v)
		})
	case Float:
		return newStore(width, height, nslices, func(v float64) float32 { return float32(Float.Saturate(v)) })
	}
	return nil
}
