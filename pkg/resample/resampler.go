// Package resample produces a transformed volume by sampling a source volume
// through a voxel-to-voxel transform.
//
// For every destination voxel the inverse transform gives a continuous source
// coordinate, which is sampled with nearest-neighbour or trilinear
// interpolation. Out-of-range source coordinates resolve through the source
// volume's boundary tables (clamp-to-edge by default); coordinates beyond the
// tables' padding read as background 0.
//
// Work is split by destination slice across Params.Workers goroutines. The
// source is only read and every worker writes a disjoint set of slices, so
// no locking is needed. All validation happens before the first voxel is
// written.
package resample

import (
	"fmt"
	"math"
	"runtime"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"

	"mrixform/pkg/transform"
	"mrixform/pkg/volume"
)

// Interpolation selects the sampling kernel.
type Interpolation int

const (
	Nearest Interpolation = iota
	Trilinear
)

func (i Interpolation) String() string {
	switch i {
	case Nearest:
		return "nearest"
	case Trilinear:
		return "trilinear"
	}
	return fmt.Sprintf("Interpolation(%d)", int(i))
}

// ParseInterpolation is the inverse of String.
func ParseInterpolation(s string) (Interpolation, error) {
	switch s {
	case "nearest", "nn", "":
		return Nearest, nil
	case "trilinear", "linear":
		return Trilinear, nil
	}
	return 0, fmt.Errorf("unknown interpolation %q", s)
}

// ProgressCallback receives the number of finished destination slices.
type ProgressCallback func(completed, total int, message string)

// Params configures a Resampler.
type Params struct {
	// Workers is the number of goroutines sampling in parallel. Zero means
	// one per CPU.
	Workers int

	// Progress, when set, is called after every finished destination slice.
	Progress ProgressCallback
}

// Resampler runs resampling jobs. It holds no per-job state and may be used
// from several goroutines.
type Resampler struct {
	params Params
}

// NewResampler returns a Resampler configured by params. A nil params uses
// the defaults.
func NewResampler(params *Params) *Resampler {
	r := &Resampler{}
	if params != nil {
		r.params = *params
	}
	if r.params.Workers <= 0 {
		r.params.Workers = runtime.NumCPU()
	}
	return r
}

// Workers returns the configured parallelism.
func (r *Resampler) Workers() int { return r.params.Workers }

// Resample fills dst by sampling src through the forward voxel transform m
// (source voxel -> destination voxel). m is inverted once up front. A nil
// dst is allocated as a clone of src.
func (r *Resampler) Resample(src, dst *volume.Volume, m transform.Matrix, mode Interpolation) (*volume.Volume, error) {
	inv, err := transform.Invert(m)
	if err != nil {
		return nil, errors.Wrap(err, "resample")
	}
	return r.ResampleInverse(src, dst, inv, mode)
}

// ResampleInverse is Resample given the inverse map (destination voxel ->
// source voxel) directly.
func (r *Resampler) ResampleInverse(src, dst *volume.Volume, inv transform.Matrix, mode Interpolation) (*volume.Volume, error) {
	if mode != Nearest && mode != Trilinear {
		return nil, fmt.Errorf("resample: unsupported interpolation %s", mode)
	}
	dst, err := prepare(src, dst)
	if err != nil {
		return nil, err
	}
	if dst == src {
		return r.inPlace(src, func(tmp *volume.Volume) error {
			r.sampleAll(src, tmp, inv, mode)
			return nil
		})
	}
	r.sampleAll(src, dst, inv, mode)
	return dst, nil
}

// prepare validates src and dst and allocates dst when needed. Nothing is
// written to dst's voxels here.
func prepare(src, dst *volume.Volume) (*volume.Volume, error) {
	if src == nil || src.Released() {
		return nil, errors.Wrap(volume.ErrInvalidDimension, "resample source released")
	}
	if !src.HasStorage() {
		return nil, errors.Wrap(volume.ErrNoStorage, "resample source")
	}
	if dst == nil {
		return volume.Clone(src)
	}
	if dst.Released() {
		return nil, errors.Wrap(volume.ErrInvalidDimension, "resample destination released")
	}
	if dst.Frames() != src.Frames() {
		return nil, errors.Wrapf(volume.ErrShapeMismatch, "source has %d frames, destination %d", src.Frames(), dst.Frames())
	}
	if err := dst.AllocateStorage(); err != nil {
		return nil, err
	}
	return dst, nil
}

// requireSameShape is the extra precondition of operations that keep the
// grid shape, like rotation and translation.
func requireSameShape(src, dst *volume.Volume) error {
	if src == nil || dst == nil || src.Released() || dst.Released() {
		return nil
	}
	if err := dst.CheckSize(src.Width(), src.Height(), src.Depth()); err != nil {
		return errors.Wrap(err, "destination must match source dimensions")
	}
	return nil
}

// inPlace runs fill into a scratch clone of v and copies the result back.
func (r *Resampler) inPlace(v *volume.Volume, fill func(tmp *volume.Volume) error) (*volume.Volume, error) {
	tmp, err := volume.Clone(v)
	if err != nil {
		return nil, err
	}
	if err := fill(tmp); err != nil {
		return nil, err
	}
	if _, err := volume.Copy(tmp, v); err != nil {
		return nil, err
	}
	tmp.Release()
	return v, nil
}

// parallel calls fn once per destination (frame, z) slice, spreading the
// slices over the configured workers in contiguous chunks.
func (r *Resampler) parallel(dst *volume.Volume, message string, fn func(f, z int)) {
	total := dst.Frames() * dst.Depth()
	workers := min(r.params.Workers, total)
	perWorker := (total + workers - 1) / workers

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed int
	)
	for w := 0; w < workers; w++ {
		start := w * perWorker
		end := min(start+perWorker, total)
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for s := start; s < end; s++ {
				fn(s/dst.Depth(), s%dst.Depth())
				if r.params.Progress != nil {
					mu.Lock()
					completed++
					r.params.Progress(completed, total, message)
					mu.Unlock()
				}
			}
		}(start, end)
	}
	wg.Wait()
}

// coordinates beyond this magnitude (or NaN) are background without lookup
const maxCoord = 1 << 30

func (r *Resampler) sampleAll(src, dst *volume.Volume, inv transform.Matrix, mode Interpolation) {
	affine := inv[3] == [4]float64{0, 0, 0, 1}
	xi, yi, zi := src.BoundaryTables()
	sampler := &sampler{src: src, xi: xi, yi: yi, zi: zi}

	r.parallel(dst, "resampling "+mode.String(), func(f, z int) {
		for y := 0; y < dst.Height(); y++ {
			// p(x) = base + x*step for affine maps
			base := inv.Apply(r3.Vec{X: 0, Y: float64(y), Z: float64(z)})
			step := r3.Vec{X: inv[0][0], Y: inv[1][0], Z: inv[2][0]}
			for x := 0; x < dst.Width(); x++ {
				var p r3.Vec
				if affine {
					fx := float64(x)
					p = r3.Vec{X: base.X + fx*step.X, Y: base.Y + fx*step.Y, Z: base.Z + fx*step.Z}
				} else {
					p = inv.Apply(r3.Vec{X: float64(x), Y: float64(y), Z: float64(z)})
				}
				if !(math.Abs(p.X) < maxCoord && math.Abs(p.Y) < maxCoord && math.Abs(p.Z) < maxCoord) {
					dst.SetUnchecked(x, y, z, f, 0)
					continue
				}
				switch mode {
				case Nearest:
					sampler.nearest(dst, p, x, y, z, f)
				case Trilinear:
					dst.SetUnchecked(x, y, z, f, sampler.trilinear(p, f))
				}
			}
		}
	})
}

// sampler reads src through its boundary tables.
type sampler struct {
	src        *volume.Volume
	xi, yi, zi volume.BoundaryTable
}

func (s *sampler) nearest(dst *volume.Volume, p r3.Vec, x, y, z, f int) {
	sx, okx := s.xi.Index(int(math.Floor(p.X + 0.5)))
	sy, oky := s.yi.Index(int(math.Floor(p.Y + 0.5)))
	sz, okz := s.zi.Index(int(math.Floor(p.Z + 0.5)))
	if !okx || !oky || !okz {
		dst.SetUnchecked(x, y, z, f, 0)
		return
	}
	dst.CopyVoxel(s.src, sx, sy, sz, f, x, y, z, f)
}

func (s *sampler) at(xa, ya, za int, okx, oky, okz bool, f int) float64 {
	if !okx || !oky || !okz {
		return 0
	}
	return s.src.AtUnchecked(xa, ya, za, f)
}

// trilinear blends the 8 voxels around p. Each corner is resolved through
// the boundary tables on its own, so a corner past the padding contributes
// background while the others still count.
func (s *sampler) trilinear(p r3.Vec, f int) float64 {
	x0f, y0f, z0f := math.Floor(p.X), math.Floor(p.Y), math.Floor(p.Z)
	fx, fy, fz := p.X-x0f, p.Y-y0f, p.Z-z0f
	x0, y0, z0 := int(x0f), int(y0f), int(z0f)

	xa, oxa := s.xi.Index(x0)
	xb, oxb := s.xi.Index(x0 + 1)
	ya, oya := s.yi.Index(y0)
	yb, oyb := s.yi.Index(y0 + 1)
	za, oza := s.zi.Index(z0)
	zb, ozb := s.zi.Index(z0 + 1)
	if !oxa && !oxb || !oya && !oyb || !oza && !ozb {
		return 0
	}

	c000 := s.at(xa, ya, za, oxa, oya, oza, f)
	c100 := s.at(xb, ya, za, oxb, oya, oza, f)
	c010 := s.at(xa, yb, za, oxa, oyb, oza, f)
	c110 := s.at(xb, yb, za, oxb, oyb, oza, f)
	c001 := s.at(xa, ya, zb, oxa, oya, ozb, f)
	c101 := s.at(xb, ya, zb, oxb, oya, ozb, f)
	c011 := s.at(xa, yb, zb, oxa, oyb, ozb, f)
	c111 := s.at(xb, yb, zb, oxb, oyb, ozb, f)

	c00 := lerp(c000, c100, fx)
	c10 := lerp(c010, c110, fx)
	c01 := lerp(c001, c101, fx)
	c11 := lerp(c011, c111, fx)
	c0 := lerp(c00, c10, fy)
	c1 := lerp(c01, c11, fy)
	return lerp(c0, c1, fz)
}

// lerp returns a exactly when t is 0 and equal inputs stay unchanged.
func lerp(a, b, t float64) float64 {
	if a == b {
		return a
	}
	return a*(1-t) + b*t
}

// PrintProgress renders a progress bar on stdout. It can be passed as
// Params.Progress.
func PrintProgress(completed, total int, message string) {
	if total <= 0 {
		if message != "" {
			fmt.Println(message)
		}
		return
	}
	const width = 40
	percentage := float64(completed) / float64(total) * 100
	bars := int(percentage / 100 * width)
	fmt.Printf("\r%s [%s%s] %.1f%%", message, strings.Repeat("=", bars), strings.Repeat(" ", width-bars), percentage)
	if completed >= total {
		fmt.Println()
	}
}
