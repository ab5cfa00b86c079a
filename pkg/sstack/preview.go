package sstack

import(
	"fmt"
	"image"
	"log"

	"github.com/mdouchement/hdr/tmo"
	"golang.org/x/image/draw"
)

var(
	Tonemappers = []string{"drago03", "durand", "icam06", "linear", "reinhard05"}
)

func ListTonemappers() string {
	return fmt.Sprintf("%v", Tonemappers)
}

// Tweak the tmo parameters to better handle stacked frames. By default
// they almost always overexpose on the small but important bright areas.
func SetupTonemapper(img *StackImage, name string) tmo.ToneMappingOperator {
	switch name {
	case "drago03":
		op := tmo.NewDefaultDrago03(img)
		op.Bias = 1.0            // Otherwise image overexposes, blows out the highlights
		return op

	case "durand":
		return tmo.NewDefaultDurand(img)

	case "icam06":
		op := tmo.NewDefaultICam06(img)
		op.Contrast    = 0.65
		op.MaxClipping = 0.99999 // Otherwise image overexposes, blows out the highlights
		return op

	case "linear":
		return tmo.NewLinear(img)

	case "reinhard05":
		op := tmo.NewDefaultReinhard05(img)
		op.Chromatic  = 0.005
		op.Light      = 0.005    // Otherwise image overexposes, blows out the highlights
		return op
	}

	log.Fatalf("ToneMapper %q not recognized, wanted %s\n", name, ListTonemappers())
	return nil
}

// RenderPreview tonemaps the stacked buffer down to LDR and scales the
// result to fit maxDim on the long side. Debug artifact, not a color
// pipeline.
func RenderPreview(si *StackImage, tonemapper string, maxDim int) image.Image {
	op := SetupTonemapper(si, tonemapper)
	img := op.Perform()

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return img
	}

	scale := float64(maxDim) / float64(w)
	if h > w {
		scale = float64(maxDim) / float64(h)
	}
	nw, nh := int(float64(w)*scale), int(float64(h)*scale)
	if nw < 1 { nw = 1 }
	if nh < 1 { nh = 1 }

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func WritePreview(si *StackImage, filename, tonemapper string, maxDim int) error {
	return WritePNG(RenderPreview(si, tonemapper, maxDim), filename)
}
