package sstack

import(
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mdouchement/hdr/hdrcolor"
	"golang.org/x/image/tiff"

	"github.com/gnthibault/siril-sub007/pkg/smath"
)

// A StackImage is the stacked output buffer: one float64 plane per
// channel. It is the standard OutputRowWriter, and doubles as an
// image.Image (16-bit, clamped) and an hdr.Image, so every encoder
// can read straight out of it.
type StackImage struct {
	Shape ImageShape

	// GammaExpand applies sRGB gamma when rendering LDR pixels via
	// At(). The HDR view stays linear regardless.
	GammaExpand bool

	planes []smath.Grid
}

func NewStackImage(shape ImageShape) *StackImage {
	si := StackImage{Shape: shape, planes: make([]smath.Grid, shape.Channels)}
	for ch := range si.planes {
		si.planes[ch] = smath.NewGrid(shape.Width, shape.Height)
	}
	return &si
}

// WriteRows lands one stacked block. Blocks from a plan never overlap,
// so concurrent calls touch disjoint rows.
func (si *StackImage)WriteRows(channel, startRow, endRow int, data []float64) error {
	if err := checkRowRange(si.Shape, channel, startRow, endRow); err != nil {
		return err
	}
	w := si.Shape.Width
	if len(data) < (endRow-startRow+1)*w {
		return fmt.Errorf("write ch%d rows %d-%d: have %d samples, want %d",
			channel, startRow, endRow, len(data), (endRow-startRow+1)*w)
	}

	for y := startRow; y <= endRow; y++ {
		si.planes[channel].SetRow(y, data[(y-startRow)*w:])
	}
	return nil
}

func (si *StackImage)Sample(channel, x, y int) float64 { return si.planes[channel].Get(x, y) }
func (si *StackImage)Plane(channel int) *smath.Grid    { return &si.planes[channel] }

// Implement image.Image. Sample space is 16-bit, and this LDR view
// clamps; unbounded data (sum stacks) belongs in the HDR writer.
func (si *StackImage)ColorModel() color.Model { return color.RGBA64Model }
func (si *StackImage)Bounds() image.Rectangle { return image.Rect(0, 0, si.Shape.Width, si.Shape.Height) }

func (si *StackImage)At(x, y int) color.Color {
	r, g, b := si.rgbAt(x, y)
	out := func(v float64) uint16 {
		v = smath.Clamp(v/65535.0, 0.0, 1.0)
		if si.GammaExpand {
			v = smath.GammaExpand_F64(v)
		}
		return uint16(v * 65535.0)
	}
	return color.RGBA64{R: out(r), G: out(g), B: out(b), A: 0xffff}
}

// Implement hdr.Image
func (si *StackImage)HDRAt(x, y int) hdrcolor.Color {
	r, g, b := si.rgbAt(x, y)
	return hdrcolor.RGB{R: r / 65535.0, G: g / 65535.0, B: b / 65535.0}
}

func (si *StackImage)Size() int { return si.Shape.Width * si.Shape.Height }

func (si *StackImage)rgbAt(x, y int) (float64, float64, float64) {
	if si.Shape.Channels == 1 {
		v := si.planes[0].Get(x, y)
		return v, v, v
	}
	r, g, b := si.planes[0].Get(x, y), 0.0, 0.0
	if si.Shape.Channels > 1 { g = si.planes[1].Get(x, y) }
	if si.Shape.Channels > 2 { b = si.planes[2].Get(x, y) }
	return r, g, b
}

// WriteToFilename dispatches on extension: .png and .tif/.tiff write
// the clamped 16-bit view, .hdr writes Radiance RGBE from the linear
// HDR view.
func (si *StackImage)WriteToFilename(filename string) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":          return WritePNG(si, filename)
	case ".tif", ".tiff": return WriteTIFF(si, filename)
	case ".hdr":          return WriteHDR(si, filename)
	}
	return fmt.Errorf("write '%s': unhandled image extension", filename)
}

func WritePNG(img image.Image, filename string) error {
	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	} else {
		defer writer.Close()
		return png.Encode(writer, img)
	}
}

func WriteTIFF(img image.Image, filename string) error {
	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	} else {
		defer writer.Close()
		return tiff.Encode(writer, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	}
}

func WriteHDR(img hdr.Image, filename string) error {
	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	} else {
		defer writer.Close()
		return rgbe.Encode(writer, img)
	}
}
