package visualization

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"mrixform/pkg/volume"
)

// createLayeredVolume builds a volume where every Z slice holds its own index
func createLayeredVolume(t *testing.T, width, height, depth int) *volume.Volume {
	t.Helper()
	v, err := volume.Allocate(width, height, depth, volume.Float)
	if err != nil {
		t.Fatalf("Failed to allocate volume: %v", err)
	}
	for z := 0; z < depth; z++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				v.Write(x, y, z, float64(z))
			}
		}
	}
	return v
}

// TestNewViewer verifies that a new viewer picks up the value range
func TestNewViewer(t *testing.T) {
	vol := createLayeredVolume(t, 10, 10, 5)

	viewer, err := NewViewer(vol)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	if viewer.lo != 0 || viewer.hi != 4 {
		t.Errorf("Expected value range [0, 4], got [%f, %f]", viewer.lo, viewer.hi)
	}

	if _, err := NewViewer(nil); err == nil {
		t.Error("Expected error for nil volume, got nil")
	}

	header, err := volume.AllocateHeader(4, 4, 4, volume.UChar)
	if err != nil {
		t.Fatalf("Failed to allocate header: %v", err)
	}
	if _, err := NewViewer(header); err == nil {
		t.Error("Expected error for header-only volume, got nil")
	}
}

// TestExtractSlice verifies that slices are correctly extracted from the volume
func TestExtractSlice(t *testing.T) {
	width, height, depth := 10, 10, 5
	vol := createLayeredVolume(t, width, height, depth)

	viewer, err := NewViewer(vol)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	// Test extracting Z slices
	for z := 0; z < depth; z++ {
		img, err := viewer.ExtractSlice("z", z, 0)
		if err != nil {
			t.Fatalf("Failed to extract Z slice at position %d: %v", z, err)
		}

		bounds := img.Bounds()
		if bounds.Dx() != width || bounds.Dy() != height {
			t.Errorf("Expected Z slice dimensions %dx%d, got %dx%d",
				width, height, bounds.Dx(), bounds.Dy())
		}

		expectedValue := uint16(math.Round(float64(z) / float64(depth-1) * 65535))
		centerValue := img.Gray16At(width/2, height/2).Y
		if centerValue != expectedValue {
			t.Errorf("Expected Z slice value %d at center, got %d", expectedValue, centerValue)
		}
	}

	// X slices run along depth horizontally
	imgX, err := viewer.ExtractSlice("x", width/2, 0)
	if err != nil {
		t.Fatalf("Failed to extract X slice: %v", err)
	}
	if b := imgX.Bounds(); b.Dx() != depth || b.Dy() != height {
		t.Errorf("Expected X slice dimensions %dx%d, got %dx%d", depth, height, b.Dx(), b.Dy())
	}
	if got := imgX.Gray16At(depth-1, 0).Y; got != 65535 {
		t.Errorf("Expected last depth column to be white, got %d", got)
	}

	imgY, err := viewer.ExtractSlice("Y", height/2, 0)
	if err != nil {
		t.Fatalf("Failed to extract Y slice: %v", err)
	}
	if b := imgY.Bounds(); b.Dx() != width || b.Dy() != depth {
		t.Errorf("Expected Y slice dimensions %dx%d, got %dx%d", width, depth, b.Dx(), b.Dy())
	}

	// Test invalid axis
	if _, err := viewer.ExtractSlice("invalid", 0, 0); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}

	// Test out of bounds position and frame
	if _, err := viewer.ExtractSlice("z", depth, 0); err == nil {
		t.Error("Expected error for out of bounds position, got nil")
	}
	if _, err := viewer.ExtractSlice("z", 0, 1); err == nil {
		t.Error("Expected error for out of bounds frame, got nil")
	}
}

// TestExtractSliceConstant verifies that a flat volume renders black
func TestExtractSliceConstant(t *testing.T) {
	vol, err := volume.Allocate(4, 4, 4, volume.UChar)
	if err != nil {
		t.Fatalf("Failed to allocate volume: %v", err)
	}
	vol.Fill(7)

	viewer, err := NewViewer(vol)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}
	img, err := viewer.ExtractSlice("z", 2, 0)
	if err != nil {
		t.Fatalf("Failed to extract slice: %v", err)
	}
	if got := img.Gray16At(1, 1).Y; got != 0 {
		t.Errorf("Expected black pixel, got %d", got)
	}
}

// TestExtractSliceScaled verifies that anisotropic voxels are stretched
func TestExtractSliceScaled(t *testing.T) {
	vol := createLayeredVolume(t, 10, 10, 5)
	vol.ZSize = 2

	viewer, err := NewViewer(vol)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	img, err := viewer.ExtractSliceScaled("x", 0, 0, 1)
	if err != nil {
		t.Fatalf("Failed to extract scaled slice: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 10 || b.Dy() != 10 {
		t.Errorf("Expected scaled slice 10x10, got %dx%d", b.Dx(), b.Dy())
	}

	// Z slices are isotropic and come back unchanged
	imgZ, err := viewer.ExtractSliceScaled("z", 1, 0, 1)
	if err != nil {
		t.Fatalf("Failed to extract scaled slice: %v", err)
	}
	if b := imgZ.Bounds(); b.Dx() != 10 || b.Dy() != 10 {
		t.Errorf("Expected Z slice 10x10, got %dx%d", b.Dx(), b.Dy())
	}

	if _, err := viewer.ExtractSliceScaled("z", 0, 0, 0); err == nil {
		t.Error("Expected error for zero pixel size, got nil")
	}
}

// TestExtractRegion verifies that 3D regions are correctly extracted
func TestExtractRegion(t *testing.T) {
	width, height, depth := 10, 10, 5
	vol, err := volume.Allocate(width, height, depth, volume.Short)
	if err != nil {
		t.Fatalf("Failed to allocate volume: %v", err)
	}
	for z := 0; z < depth; z++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				vol.Write(x, y, z, float64(x+10*y+100*z))
			}
		}
	}

	viewer, err := NewViewer(vol)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	startX, startY, startZ := 2, 3, 1
	sizeX, sizeY, sizeZ := 4, 3, 2

	region, err := viewer.ExtractRegion(startX, startY, startZ, sizeX, sizeY, sizeZ)
	if err != nil {
		t.Fatalf("Failed to extract region: %v", err)
	}

	if region.Width() != sizeX || region.Height() != sizeY || region.Depth() != sizeZ {
		t.Errorf("Expected region %dx%dx%d, got %s", sizeX, sizeY, sizeZ, region)
	}

	for z := 0; z < sizeZ; z++ {
		for y := 0; y < sizeY; y++ {
			for x := 0; x < sizeX; x++ {
				want := vol.Read(startX+x, startY+y, startZ+z)
				if got := region.Read(x, y, z); got != want {
					t.Errorf("Region value mismatch at (%d,%d,%d): expected %f, got %f",
						x, y, z, want, got)
				}
			}
		}
	}

	// Test invalid parameters
	if _, err := viewer.ExtractRegion(-1, 0, 0, 1, 1, 1); err == nil {
		t.Error("Expected error for negative start coordinate, got nil")
	}

	if _, err := viewer.ExtractRegion(0, 0, 0, 0, 1, 1); err == nil {
		t.Error("Expected error for zero size, got nil")
	}

	if _, err := viewer.ExtractRegion(width-1, 0, 0, 2, 1, 1); err == nil {
		t.Error("Expected error for region extending beyond volume, got nil")
	}
}

// TestSaveSliceSequence verifies that a sequence of slices can be saved
func TestSaveSliceSequence(t *testing.T) {
	// Skip this test in short mode
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	width, height, depth := 5, 5, 3
	vol := createLayeredVolume(t, width, height, depth)

	viewer, err := NewViewer(vol)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	outputDir := filepath.Join(t.TempDir(), "slices")
	if err := viewer.SaveSliceSequence("Z", outputDir); err != nil {
		t.Fatalf("Failed to save slice sequence: %v", err)
	}

	for z := 0; z < depth; z++ {
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_z_%03d.jpg", z))
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			t.Errorf("Expected slice file does not exist: %s", filename)
		}
	}

	if err := viewer.SaveSliceSequence("invalid", outputDir); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
}
