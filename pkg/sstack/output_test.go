package sstack

import(
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/mdouchement/hdr/hdrcolor"

	"github.com/gnthibault/siril-sub007/pkg/smath"
)

func TestStackImageWriteRows(t *testing.T) {
	si := NewStackImage(ImageShape{Width: 4, Height: 6, Channels: 2})

	data := make([]float64, 3*4)
	for i := range data {
		data[i] = float64(i + 1)
	}
	if err := si.WriteRows(1, 2, 4, data); err != nil {
		t.Fatalf("WriteRows: %v", err)
	}
	if got := si.Sample(1, 0, 2); got != 1 {
		t.Errorf("(1,0,2): got %f, want 1", got)
	}
	if got := si.Sample(1, 3, 4); got != 12 {
		t.Errorf("(1,3,4): got %f, want 12", got)
	}
	if got := si.Sample(1, 0, 1); got != 0 {
		t.Errorf("row 1 should be untouched, got %f", got)
	}

	if err := si.WriteRows(2, 0, 0, data); err == nil {
		t.Errorf("channel out of range should fail")
	}
	if err := si.WriteRows(0, 4, 6, data); err == nil {
		t.Errorf("rows out of range should fail")
	}
	if err := si.WriteRows(0, 0, 5, data); err == nil {
		t.Errorf("short data should fail")
	}
}

func TestStackImageAt(t *testing.T) {
	si := NewStackImage(ImageShape{Width: 2, Height: 2, Channels: 3})
	si.Plane(0).Set(0, 0, 65535.0)
	si.Plane(1).Set(0, 0, -100.0)   // clamps up to 0
	si.Plane(2).Set(0, 0, 131070.0) // clamps down to full scale

	c := si.At(0, 0).(color.RGBA64)
	if c.R != 0xffff || c.G != 0 || c.B != 0xffff || c.A != 0xffff {
		t.Errorf("clamped pixel: got %+v", c)
	}

	if got, want := si.Bounds(), image.Rect(0, 0, 2, 2); got != want {
		t.Errorf("bounds: got %v, want %v", got, want)
	}

	si.Plane(0).Set(1, 1, 0.5*65535.0)
	lin := si.At(1, 1).(color.RGBA64)
	si.GammaExpand = true
	gam := si.At(1, 1).(color.RGBA64)
	want := uint16(smath.GammaExpand_F64(0.5) * 65535.0)
	if gam.R != want {
		t.Errorf("gamma pixel: got %d, want %d", gam.R, want)
	}
	if gam.R <= lin.R {
		t.Errorf("sRGB companding should brighten midtones: %d vs %d", gam.R, lin.R)
	}
}

func TestStackImageHDRAt(t *testing.T) {
	si := NewStackImage(ImageShape{Width: 2, Height: 1, Channels: 3})
	si.Plane(0).Set(0, 0, 131070.0)
	si.Plane(1).Set(0, 0, 65535.0)

	c := si.HDRAt(0, 0).(hdrcolor.RGB)
	if c.R != 2.0 || c.G != 1.0 || c.B != 0.0 {
		t.Errorf("HDR view must stay linear and unclamped: got %+v", c)
	}
	if got := si.Size(); got != 2 {
		t.Errorf("size: got %d, want 2", got)
	}
}

func TestStackImageMono(t *testing.T) {
	si := NewStackImage(ImageShape{Width: 1, Height: 1, Channels: 1})
	si.Plane(0).Set(0, 0, 65535.0)
	c := si.At(0, 0).(color.RGBA64)
	if c.R != c.G || c.G != c.B || c.R != 0xffff {
		t.Errorf("mono pixel should replicate across RGB: got %+v", c)
	}
}

func TestWriteToFilename(t *testing.T) {
	si := NewStackImage(ImageShape{Width: 3, Height: 2, Channels: 3})
	si.Plane(0).Set(1, 1, 65535.0)

	filename := filepath.Join(t.TempDir(), "stack.png")
	if err := si.WriteToFilename(filename); err != nil {
		t.Fatalf("write png: %v", err)
	}

	if reader, err := os.Open(filename); err != nil {
		t.Fatalf("reopen '%s': %v", filename, err)
	} else {
		defer reader.Close()
		img, err := png.Decode(reader)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		r, _, _, _ := img.At(1, 1).RGBA()
		if r != 0xffff {
			t.Errorf("round-tripped pixel: got %d, want 65535", r)
		}
	}

	if err := si.WriteToFilename(filepath.Join(t.TempDir(), "stack.xyz")); err == nil {
		t.Errorf("unhandled extension should fail")
	}
}
