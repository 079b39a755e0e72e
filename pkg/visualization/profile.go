package visualization

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"mrixform/pkg/transform"
	"mrixform/pkg/volume"
)

// ProfileSeries is one labelled volume drawn on a profile plot.
type ProfileSeries struct {
	Label  string
	Volume *volume.Volume
}

var profileColors = []color.RGBA{
	{R: 31, G: 119, B: 180, A: 255},
	{R: 255, G: 127, B: 14, A: 255},
	{R: 44, G: 160, B: 44, A: 255},
	{R: 214, G: 39, B: 40, A: 255},
}

// Profile returns the voxel values of frame 0 along the line through the grid
// centre parallel to axis.
func Profile(v *volume.Volume, axis transform.Axis) (plotter.XYs, error) {
	if !v.HasStorage() {
		return nil, fmt.Errorf("profile: %w", volume.ErrNoStorage)
	}
	cx, cy, cz := v.Width()/2, v.Height()/2, v.Depth()/2

	var n int
	switch axis {
	case transform.AxisX:
		n = v.Width()
	case transform.AxisY:
		n = v.Height()
	case transform.AxisZ:
		n = v.Depth()
	default:
		return nil, fmt.Errorf("profile: %w", transform.ErrInvalidAxis)
	}

	pts := make(plotter.XYs, n)
	for i := 0; i < n; i++ {
		x, y, z := cx, cy, cz
		switch axis {
		case transform.AxisX:
			x = i
		case transform.AxisY:
			y = i
		default:
			z = i
		}
		pts[i] = plotter.XY{X: float64(i), Y: v.AtUnchecked(x, y, z, 0)}
	}
	return pts, nil
}

// SaveProfilePlot draws the centre line profile of every series along axis
// and saves it as a PNG (or any format gonum/plot infers from the extension).
func SaveProfilePlot(series []ProfileSeries, axisName, filename string) error {
	axis, err := transform.ParseAxis(axisName)
	if err != nil {
		return err
	}
	if len(series) == 0 {
		return fmt.Errorf("profile plot needs at least one volume")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Centre profile along %s", axis)
	p.X.Label.Text = "voxel"
	p.Y.Label.Text = "intensity"
	p.Add(plotter.NewGrid())

	for i, s := range series {
		pts, err := Profile(s.Volume, axis)
		if err != nil {
			return fmt.Errorf("%s: %w", s.Label, err)
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("%s: %w", s.Label, err)
		}
		line.Color = profileColors[i%len(profileColors)]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.Label, line)
	}
	p.Legend.Top = true

	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	return p.Save(10*vg.Inch, 4*vg.Inch, filename)
}
