package volume

import "fmt"

// MinPad is the smallest padding on either side of a boundary table.
const MinPad = 8

// BoundaryPolicy decides how an out-of-range coordinate inside the padding is
// folded back into [0, dim).
type BoundaryPolicy int

const (
	// Clamp maps coordinates to the nearest edge voxel.
	Clamp BoundaryPolicy = iota
	// Wrap treats the axis as periodic.
	Wrap
)

func (p BoundaryPolicy) String() string {
	switch p {
	case Clamp:
		return "clamp"
	case Wrap:
		return "wrap"
	}
	return fmt.Sprintf("BoundaryPolicy(%d)", int(p))
}

// ParseBoundaryPolicy is the inverse of String.
func ParseBoundaryPolicy(s string) (BoundaryPolicy, error) {
	switch s {
	case "clamp", "":
		return Clamp, nil
	case "wrap":
		return Wrap, nil
	}
	return 0, fmt.Errorf("unknown boundary policy %q", s)
}

// BoundaryTable maps any integer coordinate in [-pad, dim+pad) to a valid
// index in [0, dim). It is built once per axis and only read afterwards, so
// it can be shared by concurrent samplers.
type BoundaryTable struct {
	pad int
	idx []int
}

// NewBoundaryTable builds the lookup for an axis of length dim.
func NewBoundaryTable(dim int, policy BoundaryPolicy) BoundaryTable {
	if dim < 1 {
		return BoundaryTable{}
	}
	pad := max(dim, MinPad)
	idx := make([]int, dim+2*pad)
	for i := range idx {
		c := i - pad
		switch policy {
		case Wrap:
			idx[i] = ((c % dim) + dim) % dim
		default:
			idx[i] = min(max(c, 0), dim-1)
		}
	}
	return BoundaryTable{pad: pad, idx: idx}
}

// Index resolves c. The second result is false when c lies beyond the
// padding, in which case the caller treats the sample as background.
func (b BoundaryTable) Index(c int) (int, bool) {
	i := c + b.pad
	if i < 0 || i >= len(b.idx) {
		return 0, false
	}
	return b.idx[i], true
}

// Pad returns the number of padded entries on each side.
func (b BoundaryTable) Pad() int { return b.pad }

// Len returns the total table length including both paddings.
func (b BoundaryTable) Len() int { return len(b.idx) }
