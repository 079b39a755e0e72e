package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"mrixform/pkg/transform"
	"mrixform/pkg/volume"
)

// Viewer renders 2D slices of a volume for inspection. Voxel values are
// mapped linearly from the volume's value range onto 16-bit gray.
type Viewer struct {
	// vol is the volume being displayed
	vol *volume.Volume

	// lo and hi bound the voxel values used for gray scaling
	lo, hi float64
}

// NewViewer creates a new viewer for v. The gray scale is fixed from the
// value range of v at construction time.
func NewViewer(v *volume.Volume) (*Viewer, error) {
	if v == nil {
		return nil, fmt.Errorf("viewer needs a volume")
	}
	lo, hi, err := v.ValueRange()
	if err != nil {
		return nil, fmt.Errorf("viewer: %w", err)
	}
	return &Viewer{vol: v, lo: lo, hi: hi}, nil
}

// gray maps a voxel value onto the 16-bit range
func (v *Viewer) gray(val float64) color.Gray16 {
	if v.hi <= v.lo {
		return color.Gray16{}
	}
	n := (val - v.lo) / (v.hi - v.lo)
	return color.Gray16{Y: uint16(math.Max(0, math.Min(65535, math.Round(n*65535))))}
}

// sliceLen returns how many slices exist along axis
func (v *Viewer) sliceLen(axis transform.Axis) int {
	switch axis {
	case transform.AxisX:
		return v.vol.Width()
	case transform.AxisY:
		return v.vol.Height()
	default:
		return v.vol.Depth()
	}
}

// ExtractSlice extracts a 2D slice of frame from the volume along the specified axis.
// X slices are laid out depth by height, Y slices width by depth and Z slices
// width by height.
func (v *Viewer) ExtractSlice(axisName string, position, frame int) (*image.Gray16, error) {
	axis, err := transform.ParseAxis(axisName)
	if err != nil {
		return nil, err
	}
	if position < 0 || position >= v.sliceLen(axis) {
		return nil, fmt.Errorf("position %d outside [0, %d) along %s", position, v.sliceLen(axis), axis)
	}
	if frame < 0 || frame >= v.vol.Frames() {
		return nil, fmt.Errorf("frame %d outside [0, %d)", frame, v.vol.Frames())
	}

	w, h, d := v.vol.Width(), v.vol.Height(), v.vol.Depth()
	var img *image.Gray16

	switch axis {
	case transform.AxisX:
		// Extract slice along YZ plane
		img = image.NewGray16(image.Rect(0, 0, d, h))
		for y := 0; y < h; y++ {
			for z := 0; z < d; z++ {
				img.SetGray16(z, y, v.gray(v.vol.AtUnchecked(position, y, z, frame)))
			}
		}

	case transform.AxisY:
		// Extract slice along XZ plane
		img = image.NewGray16(image.Rect(0, 0, w, d))
		for z := 0; z < d; z++ {
			for x := 0; x < w; x++ {
				img.SetGray16(x, z, v.gray(v.vol.AtUnchecked(x, position, z, frame)))
			}
		}

	default:
		// Extract slice along XY plane
		img = image.NewGray16(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.SetGray16(x, y, v.gray(v.vol.AtUnchecked(x, y, position, frame)))
			}
		}
	}

	return img, nil
}

// ExtractSliceScaled extracts a slice like ExtractSlice and stretches it so
// one pixel covers pixelSize mm along both image axes. This undoes anisotropic
// voxel sizes when viewing.
func (v *Viewer) ExtractSliceScaled(axisName string, position, frame int, pixelSize float64) (*image.Gray16, error) {
	if pixelSize <= 0 {
		return nil, fmt.Errorf("pixel size must be positive, got %g", pixelSize)
	}
	img, err := v.ExtractSlice(axisName, position, frame)
	if err != nil {
		return nil, err
	}
	axis, _ := transform.ParseAxis(axisName)

	var sx, sy float64
	switch axis {
	case transform.AxisX:
		sx, sy = v.vol.ZSize, v.vol.YSize
	case transform.AxisY:
		sx, sy = v.vol.XSize, v.vol.ZSize
	default:
		sx, sy = v.vol.XSize, v.vol.YSize
	}

	b := img.Bounds()
	w := max(1, int(math.Round(float64(b.Dx())*sx/pixelSize)))
	h := max(1, int(math.Round(float64(b.Dy())*sy/pixelSize)))
	if w == b.Dx() && h == b.Dy() {
		return img, nil
	}

	dst := image.NewGray16(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Rect, img, b, draw.Src, nil)
	return dst, nil
}

// ExtractRegion extracts a 3D subregion from the volume as a new volume.
// The region must lie fully inside the grid.
func (v *Viewer) ExtractRegion(startX, startY, startZ, sizeX, sizeY, sizeZ int) (*volume.Volume, error) {
	// Validate parameters
	if startX < 0 || startY < 0 || startZ < 0 {
		return nil, fmt.Errorf("start coordinates must be non-negative")
	}

	if sizeX <= 0 || sizeY <= 0 || sizeZ <= 0 {
		return nil, fmt.Errorf("size dimensions must be positive")
	}

	r := volume.Region{X: startX, Y: startY, Z: startZ, DX: sizeX, DY: sizeY, DZ: sizeZ}
	if v.vol.ClipRegion(r) != r {
		return nil, fmt.Errorf("region extends beyond volume boundaries")
	}

	return volume.ExtractRegion(v.vol, nil, r)
}

// SaveSlice saves an extracted slice as a JPEG image
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveSliceSequence extracts and saves every slice of frame 0 along the specified axis
func (v *Viewer) SaveSliceSequence(axisName string, outputDir string) error {
	axis, err := transform.ParseAxis(axisName)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for pos := 0; pos < v.sliceLen(axis); pos++ {
		img, err := v.ExtractSlice(axisName, pos, 0)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.jpg", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
