package sstack

import(
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/tiff"
)

func writeTestTIFF(t *testing.T, filename string, w, h int, val func(x, y int) uint16) {
	t.Helper()
	img := image.NewRGBA64(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA64(x, y, color.RGBA64{R: val(x, y), G: val(x, y) + 1, B: val(x, y) + 2, A: 0xffff})
		}
	}
	if writer, err := os.Create(filename); err != nil {
		t.Fatalf("create %s: %v", filename, err)
	} else {
		defer writer.Close()
		if err := tiff.Encode(writer, img, nil); err != nil {
			t.Fatalf("encode %s: %v", filename, err)
		}
	}
}

func TestLoadFrameSet(t *testing.T) {
	dir := t.TempDir()
	base := func(x, y int) uint16 { return uint16(1000*x + 100*y) }
	writeTestTIFF(t, filepath.Join(dir, "frame-b.tif"), 4, 3, func(x, y int) uint16 { return base(x, y) + 7 })
	writeTestTIFF(t, filepath.Join(dir, "frame-a.tif"), 4, 3, base)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}

	fs, err := LoadFrameSet(dir)
	if err != nil {
		t.Fatalf("LoadFrameSet: %v", err)
	}

	if fs.NumFrames() != 2 {
		t.Fatalf("got %d frames, want 2", fs.NumFrames())
	}
	if want := (ImageShape{Width: 4, Height: 3, Channels: 3}); fs.Shape != want {
		t.Errorf("shape: got %s, want %s", fs.Shape, want)
	}
	if !strings.HasSuffix(fs.Frames[0].Filename, "frame-a.tif") {
		t.Errorf("frames should register in lexical order, got %s first", fs.Frames[0].Filename)
	}
	for i, w := range fs.Weights() {
		if w != 1.0 {
			t.Errorf("frame %d has no EXIF so weight should default to 1, got %f", i, w)
		}
	}

	// frame-b is index 1; channel 1 is G = base+7+1
	dst := make([]float64, 2*4)
	if err := fs.ReadRows(1, 1, 1, 2, dst); err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	for y := 1; y <= 2; y++ {
		for x := 0; x < 4; x++ {
			want := float64(base(x, y) + 8)
			if got := dst[(y-1)*4+x]; got != want {
				t.Fatalf("(%d,%d): got %f, want %f", x, y, got, want)
			}
		}
	}

	if err := fs.ReadRows(2, 0, 0, 0, dst); err == nil {
		t.Errorf("frame out of range should fail")
	}
}

func TestLoadFrameSetShapeMismatch(t *testing.T) {
	dir := t.TempDir()
	writeTestTIFF(t, filepath.Join(dir, "a.tif"), 4, 3, func(x, y int) uint16 { return 1 })
	writeTestTIFF(t, filepath.Join(dir, "b.tif"), 5, 3, func(x, y int) uint16 { return 1 })

	if _, err := LoadFrameSet(dir); err == nil {
		t.Errorf("mismatched frame dimensions should fail the load")
	}
}

func TestLoadFrameSetEmpty(t *testing.T) {
	if _, err := LoadFrameSet(t.TempDir()); err == nil {
		t.Errorf("a frame set with no frames should fail")
	}
	if _, err := LoadFrameSet(filepath.Join(t.TempDir(), "no-such-dir")); err == nil {
		t.Errorf("a missing path should fail")
	}
}

func TestLoadFrameSetMono(t *testing.T) {
	dir := t.TempDir()
	img := image.NewGray16(image.Rect(0, 0, 3, 2))
	img.SetGray16(2, 1, color.Gray16{Y: 4242})
	filename := filepath.Join(dir, "mono.tiff")
	if writer, err := os.Create(filename); err != nil {
		t.Fatal(err)
	} else {
		defer writer.Close()
		if err := tiff.Encode(writer, img, nil); err != nil {
			t.Fatal(err)
		}
	}

	fs, err := LoadFrameSet(dir)
	if err != nil {
		t.Fatalf("LoadFrameSet: %v", err)
	}
	if fs.Shape.Channels != 1 {
		t.Fatalf("grayscale TIFF should probe as 1 channel, got %d", fs.Shape.Channels)
	}

	dst := make([]float64, 3)
	if err := fs.ReadRows(0, 0, 1, 1, dst); err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if dst[2] != 4242 {
		t.Errorf("mono sample: got %f, want 4242", dst[2])
	}
}
