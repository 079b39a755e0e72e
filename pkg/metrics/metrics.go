// Package metrics compares volumes voxel by voxel. It is used to measure how
// far a resampled volume drifts from a reference, e.g. after a forward and
// inverse transform.
package metrics

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"mrixform/pkg/volume"
)

// Metrics holds the comparison between a reference and a test volume.
type Metrics struct {
	// RMSE is the root mean square voxel difference.
	RMSE float64

	// MaxAbsDiff is the largest absolute voxel difference.
	MaxAbsDiff float64

	// MeanAbsDiff is the mean absolute voxel difference.
	MeanAbsDiff float64

	// SSIM is the global structural similarity index, computed over the
	// dynamic range of the reference. 1 means identical.
	SSIM float64

	// EntropyDiff is the absolute difference of the 256-bin histogram
	// entropies, in bits.
	EntropyDiff float64

	// MI is the mutual information of the two volumes in bits, from a
	// joint 64x64 histogram.
	MI float64
}

// values flattens every frame of v.
func values(v *volume.Volume) ([]float64, error) {
	out := make([]float64, 0, v.Width()*v.Height()*v.Depth()*v.Frames())
	for f := 0; f < v.Frames(); f++ {
		vals, err := v.Values(f)
		if err != nil {
			return nil, err
		}
		out = append(out, vals...)
	}
	return out, nil
}

func pair(a, b *volume.Volume) ([]float64, []float64, error) {
	if a == nil || b == nil || !volume.SameShape(a, b) {
		return nil, nil, errors.Wrapf(volume.ErrShapeMismatch, "compare %s with %s", a, b)
	}
	va, err := values(a)
	if err != nil {
		return nil, nil, err
	}
	vb, err := values(b)
	if err != nil {
		return nil, nil, err
	}
	return va, vb, nil
}

// Compare computes Metrics for test against reference. Both must have the
// same shape; scalar types may differ.
func Compare(reference, test *volume.Volume) (Metrics, error) {
	ref, tst, err := pair(reference, test)
	if err != nil {
		return Metrics{}, err
	}

	diff := make([]float64, len(ref))
	floats.SubTo(diff, ref, tst)
	sq := make([]float64, len(diff))
	floats.MulTo(sq, diff, diff)
	for i := range diff {
		diff[i] = math.Abs(diff[i])
	}

	return Metrics{
		RMSE:        math.Sqrt(stat.Mean(sq, nil)),
		MaxAbsDiff:  floats.Max(diff),
		MeanAbsDiff: stat.Mean(diff, nil),
		SSIM:        ssim(ref, tst),
		EntropyDiff: math.Abs(Entropy(ref) - Entropy(tst)),
		MI:          MutualInformation(ref, tst),
	}, nil
}

func ssim(x, y []float64) float64 {
	const k1, k2 = 0.01, 0.03
	l := floats.Max(x) - floats.Min(x)
	if l == 0 {
		l = 1
	}
	c1 := (k1 * l) * (k1 * l)
	c2 := (k2 * l) * (k2 * l)

	muX := stat.Mean(x, nil)
	muY := stat.Mean(y, nil)
	var sigmaX, sigmaY, sigmaXY float64
	if len(x) > 1 {
		sigmaX = stat.Variance(x, nil)
		sigmaY = stat.Variance(y, nil)
		sigmaXY = stat.Covariance(x, y, nil)
	}

	num := (2*muX*muY + c1) * (2*sigmaXY + c2)
	den := (muX*muX + muY*muY + c1) * (sigmaX + sigmaY + c2)
	if den == 0 {
		return 0
	}
	return num / den
}

// Entropy is the Shannon entropy in bits of a 256-bin histogram of data.
func Entropy(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	lo, hi := floats.Min(data), floats.Max(data)
	if hi <= lo {
		return 0
	}

	const numBins = 256
	hist := make([]float64, numBins)
	for _, v := range data {
		hist[bin(v, lo, hi, numBins)]++
	}
	floats.Scale(1/float64(len(data)), hist)
	// stat.Entropy uses the natural log
	return stat.Entropy(hist) / math.Ln2
}

func bin(v, lo, hi float64, n int) int {
	if hi <= lo {
		return 0
	}
	return min(max(int((v-lo)/(hi-lo)*float64(n)), 0), n-1)
}

// MutualInformation returns I(X;Y) = H(X) + H(Y) - H(X,Y) in bits, with
// each variable quantized into 64 bins over its own range. Slices of
// different lengths give 0.
func MutualInformation(x, y []float64) float64 {
	if len(x) == 0 || len(x) != len(y) {
		return 0
	}
	const numBins = 64
	xlo, xhi := floats.Min(x), floats.Max(x)
	ylo, yhi := floats.Min(y), floats.Max(y)

	joint := make([]float64, numBins*numBins)
	px := make([]float64, numBins)
	py := make([]float64, numBins)
	for i := range x {
		bx, by := bin(x[i], xlo, xhi, numBins), bin(y[i], ylo, yhi, numBins)
		joint[bx*numBins+by]++
		px[bx]++
		py[by]++
	}
	n := 1 / float64(len(x))
	floats.Scale(n, joint)
	floats.Scale(n, px)
	floats.Scale(n, py)

	mi := (stat.Entropy(px) + stat.Entropy(py) - stat.Entropy(joint)) / math.Ln2
	return math.Max(mi, 0)
}

func combine(a, b, dst *volume.Volume, op func(x, y float64) float64) (*volume.Volume, error) {
	if a == nil || b == nil || !volume.SameShape(a, b) {
		return nil, errors.Wrapf(volume.ErrShapeMismatch, "%s and %s", a, b)
	}
	if !a.HasStorage() || !b.HasStorage() {
		return nil, volume.ErrNoStorage
	}
	if dst == nil {
		var err error
		if dst, err = volume.Clone(a); err != nil {
			return nil, err
		}
	} else if !volume.SameShape(a, dst) {
		return nil, errors.Wrapf(volume.ErrShapeMismatch, "destination %s", dst)
	} else if err := dst.AllocateStorage(); err != nil {
		return nil, err
	}

	for f := 0; f < a.Frames(); f++ {
		for z := 0; z < a.Depth(); z++ {
			for y := 0; y < a.Height(); y++ {
				for x := 0; x < a.Width(); x++ {
					dst.SetUnchecked(x, y, z, f, op(a.AtUnchecked(x, y, z, f), b.AtUnchecked(x, y, z, f)))
				}
			}
		}
	}
	return dst, nil
}

// Subtract writes a - b into dst (allocated like a when nil). Results are
// saturated to dst's scalar type.
func Subtract(a, b, dst *volume.Volume) (*volume.Volume, error) {
	return combine(a, b, dst, func(x, y float64) float64 { return x - y })
}

// AbsDiff writes |a - b| into dst (allocated like a when nil).
func AbsDiff(a, b, dst *volume.Volume) (*volume.Volume, error) {
	return combine(a, b, dst, func(x, y float64) float64 { return math.Abs(x - y) })
}
