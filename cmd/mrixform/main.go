package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"mrixform/internal/phantom"
	"mrixform/pkg/config"
	"mrixform/pkg/metrics"
	"mrixform/pkg/resample"
	"mrixform/pkg/transform"
	"mrixform/pkg/visualization"
	"mrixform/pkg/volume"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "mrixform.yaml", "YAML configuration file (defaults are used when missing)")
	initConfig := flag.Bool("init-config", false, "Write the default configuration to -config and exit")
	kind := flag.String("phantom", string(phantom.Sphere), "Synthetic input volume: sphere, shells, gradient or constant")
	size := flag.Int("size", 64, "Edge length of the phantom in voxels")
	scalarType := flag.String("type", "", "Voxel type: uchar, short, int, long or float (overrides config)")
	rotateAxis := flag.String("rotate-axis", "z", "Rotation axis: x, y or z")
	angle := flag.Float64("angle", 0, "Rotation angle in degrees")
	scale := flag.String("scale", "1", "Scale factor, either one value or sx,sy,sz")
	translate := flag.String("translate", "0,0,0", "Translation in voxels as dx,dy,dz")
	interp := flag.String("interp", "", "Interpolation: nearest or trilinear (overrides config)")
	numCores := flag.Int("cores", 0, "Number of CPU cores to use (overrides config)")
	restore := flag.Bool("restore", true, "Apply the inverse transform and report how far the result drifts")
	extractSlices := flag.Bool("extract-slices", false, "Extract and save transformed slices along all axes")
	slicesDir := flag.String("slices-dir", "", "Directory to save extracted slices (overrides config)")
	profilePlot := flag.String("profile", "", "Save centre line intensity profiles along -rotate-axis to this PNG (overrides config)")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Command line flags win over the config file
	if *scalarType != "" {
		cfg.Resampling.ScalarType = *scalarType
	}
	if *interp != "" {
		cfg.Resampling.Interpolation = *interp
	}
	if *numCores > 0 {
		cfg.Processing.NumCores = *numCores
	}
	if *extractSlices {
		cfg.Output.ExtractSlices = true
	}
	if *slicesDir != "" {
		cfg.Output.SlicesDir = *slicesDir
	}
	if *profilePlot != "" {
		cfg.Output.ProfilePlot = *profilePlot
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid settings: %v", err)
	}

	typ, _ := volume.ParseScalarType(cfg.Resampling.ScalarType)
	mode, _ := cfg.InterpolationMode()
	policy, _ := cfg.BoundaryPolicy()

	axis, err := transform.ParseAxis(*rotateAxis)
	if err != nil {
		log.Fatalf("Invalid rotation axis: %v", err)
	}
	scales, err := parseTriple(*scale, 1)
	if err != nil {
		log.Fatalf("Invalid scale: %v", err)
	}
	shift, err := parseTriple(*translate, 0)
	if err != nil {
		log.Fatalf("Invalid translation: %v", err)
	}

	fmt.Println("================================")
	fmt.Println("VOLUME TRANSFORM AND RESAMPLING")
	fmt.Println("================================")

	// Build the input volume
	opts := phantom.DefaultOptions()
	opts.Size = *size
	opts.Type = typ
	src, err := phantom.New(phantom.Kind(*kind), opts)
	if err != nil {
		log.Fatalf("Failed to build phantom: %v", err)
	}
	src.SetBoundaryPolicy(policy)
	fmt.Printf("Input: %s phantom %s\n", *kind, src)

	// Degrees come in, the engine works in radians
	radians := *angle * math.Pi / 180
	m, err := buildTransform(src, axis, radians, scales, shift)
	if err != nil {
		log.Fatalf("Failed to build transform: %v", err)
	}
	if cfg.Output.Verbose {
		fmt.Printf("Voxel transform:\n%s\n", m)
	}
	lin, err := transform.NewLinear(m)
	if err != nil {
		log.Fatalf("Transform is not invertible: %v", err)
	}
	if err := checkRoundTrip(lin, src, cfg.Transform.RoundTripTolerance); err != nil {
		log.Fatalf("Transform check failed: %v", err)
	}

	resampler := resample.NewResampler(cfg.ResamplerParams())
	fmt.Printf("Resampling with %s interpolation on %d cores...\n", mode, resampler.Workers())

	startTime := time.Now()
	result, err := resampler.ResampleInverse(src, nil, lin.Inverse(), mode)
	if err != nil {
		log.Fatalf("Transform failed: %v", err)
	}
	fmt.Printf("Transform completed in %.3f seconds\n", time.Since(startTime).Seconds())

	series := []visualization.ProfileSeries{{Label: "source", Volume: src}, {Label: "transformed", Volume: result}}
	if *restore {
		// Sampling through the forward matrix undoes the first pass
		startTime = time.Now()
		restored, err := resampler.ResampleInverse(result, nil, lin.Forward(), mode)
		if err != nil {
			log.Fatalf("Restore failed: %v", err)
		}
		fmt.Printf("Restore completed in %.3f seconds\n\n", time.Since(startTime).Seconds())

		mt, err := metrics.Compare(src, restored)
		if err != nil {
			log.Fatalf("Comparison failed: %v", err)
		}
		fmt.Printf("Round trip metrics:\n")
		fmt.Printf("=======================================\n")
		fmt.Printf("Root Mean Square Error (RMSE): %.6f\n", mt.RMSE)
		fmt.Printf("Max Absolute Difference: %.3f\n", mt.MaxAbsDiff)
		fmt.Printf("Mean Absolute Difference: %.6f\n", mt.MeanAbsDiff)
		fmt.Printf("Structural Similarity Index (SSIM): %.4f\n", mt.SSIM)
		fmt.Printf("Entropy Difference: %.4f bits\n", mt.EntropyDiff)
		fmt.Printf("Mutual Information (MI): %.4f bits\n", mt.MI)
		series = append(series, visualization.ProfileSeries{Label: "restored", Volume: restored})
	}

	if cfg.Output.ProfilePlot != "" {
		if err := visualization.SaveProfilePlot(series, axis.String(), cfg.Output.ProfilePlot); err != nil {
			log.Printf("Warning: failed to save profile plot: %v", err)
		} else {
			fmt.Printf("Profile plot saved to: %s\n", cfg.Output.ProfilePlot)
		}
	}

	// Extract and save slices if requested
	if cfg.Output.ExtractSlices {
		fmt.Println("\nExtracting transformed slices along all axes...")
		if err := saveSlices(result, cfg.Output.SlicesDir); err != nil {
			log.Printf("Warning: %v", err)
		} else {
			fmt.Println("Slice extraction completed!")
		}
	}
}

// buildTransform composes the voxel map: rotate and scale about the grid
// centre, then translate.
func buildTransform(src *volume.Volume, axis transform.Axis, radians float64, scales, shift [3]float64) (transform.Matrix, error) {
	rot, err := transform.FromRotation(axis, radians)
	if err != nil {
		return transform.Matrix{}, err
	}
	for _, s := range scales {
		if s == 0 {
			return transform.Matrix{}, fmt.Errorf("scale factors must be non-zero")
		}
	}
	linear := transform.Compose(rot, transform.FromScale(scales[0], scales[1], scales[2]))
	return transform.Compose(
		transform.FromTranslation(shift[0], shift[1], shift[2]),
		transform.AboutCenter(linear, src.Center()),
	), nil
}

// checkRoundTrip maps the grid corners forward and back and reports drift
// beyond tol voxels.
func checkRoundTrip(lin transform.Linear, v *volume.Volume, tol float64) error {
	w, h, d := float64(v.Width()-1), float64(v.Height()-1), float64(v.Depth()-1)
	for _, p := range []r3.Vec{{}, {X: w}, {Y: h}, {Z: d}, {X: w, Y: h}, {X: w, Z: d}, {Y: h, Z: d}, {X: w, Y: h, Z: d}} {
		back := lin.ApplyInverse(lin.Apply(p))
		if drift := r3.Norm(r3.Sub(back, p)); drift > tol {
			return fmt.Errorf("voxel %v drifts by %g after a round trip", p, drift)
		}
	}
	return nil
}

// parseTriple reads "v" or "a,b,c". A single value is used for all three
// axes and an empty string yields fill.
func parseTriple(s string, fill float64) ([3]float64, error) {
	out := [3]float64{fill, fill, fill}
	s = strings.TrimSpace(s)
	if s == "" {
		return out, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 1 && len(parts) != 3 {
		return out, fmt.Errorf("expected 1 or 3 comma separated values, got %q", s)
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return out, fmt.Errorf("bad number %q: %w", p, err)
		}
		if len(parts) == 1 {
			return [3]float64{v, v, v}, nil
		}
		out[i] = v
	}
	return out, nil
}

// saveSlices writes every slice of v along each axis under dir/<axis>.
func saveSlices(v *volume.Volume, dir string) error {
	viewer, err := visualization.NewViewer(v)
	if err != nil {
		return err
	}
	for _, axis := range []string{"x", "y", "z"} {
		axisDir := filepath.Join(dir, axis)
		fmt.Printf("Saving %s-axis slices to: %s\n", axis, axisDir)
		if err := viewer.SaveSliceSequence(axis, axisDir); err != nil {
			return fmt.Errorf("failed to save %s-axis slices: %w", axis, err)
		}
	}
	return nil
}
